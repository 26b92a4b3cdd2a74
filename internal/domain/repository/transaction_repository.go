package repository

import (
	"context"

	"chain-forensics/internal/domain/entity"
)

// TransferRepository defines the interface for the durable transfer ledger
type TransferRepository interface {
	// EnsureSchema creates the ledger tables when missing
	EnsureSchema(ctx context.Context) error

	// SaveTransfer stores one transfer. inserted is false when the
	// (hash, msg_index) pair was already stored.
	SaveTransfer(ctx context.Context, event *entity.TransferEvent) (inserted bool, err error)

	// BatchSaveTransfers stores several transfers in one transaction and returns
	// how many were new
	BatchSaveTransfers(ctx context.Context, events []*entity.TransferEvent) (int, error)

	// ListTransfers returns stored transfers oldest first. limit <= 0 means all.
	ListTransfers(ctx context.Context, limit int) ([]*entity.TransferEvent, error)

	// CountTransfers returns the number of stored transfers
	CountTransfers(ctx context.Context) (int, error)

	// Truncate drops every stored transfer
	Truncate(ctx context.Context) error
}

// LabelRepository defines the interface for persisted address labels
type LabelRepository interface {
	// UpsertLabels writes the labels, replacing older labels of the same address
	UpsertLabels(ctx context.Context, labels []*entity.AddressLabel) error

	// GetLabel retrieves the label of an address, entity.ErrNotFound when none
	GetLabel(ctx context.Context, address string) (*entity.AddressLabel, error)
}
