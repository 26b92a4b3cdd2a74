package service

import (
	"context"

	"chain-forensics/internal/domain/entity"
)

// AnalysisService defines the interface for ingesting transfers and running detection
type AnalysisService interface {
	// IngestTransfer validates, persists and adds one transfer event
	IngestTransfer(ctx context.Context, event *entity.TransferEvent) error

	// IngestBatch ingests several events, continuing past rejected ones
	IngestBatch(ctx context.Context, events []*entity.TransferEvent) error

	// Reseed rebuilds the in-memory ledger from the ledger store
	Reseed(ctx context.Context) (int, error)

	// Reset drops the in-memory ledger
	Reset()

	DetectWashTrading(minLen, maxLen int) []entity.CycleFinding
	DetectFanOut(params entity.FanOutParams) []entity.FanOutFinding

	// RunAnalysis runs every detector and pushes the report downstream
	RunAnalysis(ctx context.Context) (*entity.AnalysisReport, error)

	ProfileAddress(ctx context.Context, address string) (*entity.AddressProfile, error)
	LedgerStats() entity.LedgerStats
}

// FindingPublisher hands finished reports to downstream consumers
type FindingPublisher interface {
	PublishReport(ctx context.Context, report *entity.AnalysisReport) error
	Close() error
}
