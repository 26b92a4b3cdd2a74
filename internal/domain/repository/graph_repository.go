package repository

import (
	"context"

	"chain-forensics/internal/domain/entity"

	"github.com/google/uuid"
)

// GraphRepository defines the interface for the visualization graph store
type GraphRepository interface {
	// SyncEdges merges wallets and one SENT_TO relationship per address pair
	SyncEdges(ctx context.Context, edges []entity.GraphEdge) error

	// SaveCycleFindings stores the wash trading cycles of an analysis run
	SaveCycleFindings(ctx context.Context, runID uuid.UUID, findings []entity.CycleFinding) error

	// SaveFanOutFindings stores the fan-out windows of an analysis run
	SaveFanOutFindings(ctx context.Context, runID uuid.UUID, findings []entity.FanOutFinding) error

	// SaveLabels sets label properties on wallet nodes
	SaveLabels(ctx context.Context, labels []*entity.AddressLabel) error

	// PruneFindings deletes finding nodes of every run except keep and
	// returns how many were removed. uuid.Nil removes all of them.
	PruneFindings(ctx context.Context, keep uuid.UUID) (int64, error)
}
