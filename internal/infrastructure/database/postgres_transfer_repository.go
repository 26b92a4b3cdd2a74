package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"chain-forensics/internal/domain/entity"
	"chain-forensics/internal/domain/repository"
	"chain-forensics/internal/infrastructure/logger"

	"go.uber.org/zap"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS transactions (
  id         bigserial   PRIMARY KEY,
  tx_hash    text        NOT NULL,
  msg_index  int         NOT NULL DEFAULT 0,
  height     bigint      NOT NULL DEFAULT 0,
  sender     text        NOT NULL,
  receiver   text        NOT NULL,
  amount     numeric     NOT NULL CHECK (amount >= 0),
  timestamp  timestamptz NOT NULL,
  tx_type    text        NOT NULL DEFAULT '',
  network    text        NOT NULL DEFAULT '',
  UNIQUE (tx_hash, msg_index)
);
CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions(timestamp, id);
CREATE INDEX IF NOT EXISTS idx_transactions_sender ON transactions(sender);

CREATE TABLE IF NOT EXISTS address_labels (
  address    text        PRIMARY KEY,
  label      text        NOT NULL,
  category   text        NOT NULL,
  risk_level text        NOT NULL,
  reasons    text        NOT NULL DEFAULT '',
  updated_at timestamptz NOT NULL DEFAULT now()
);
`

const insertTransfer = `
INSERT INTO transactions (tx_hash, msg_index, height, sender, receiver, amount, timestamp, tx_type, network)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (tx_hash, msg_index) DO NOTHING`

// reasonSeparator joins label reasons into one column
const reasonSeparator = "; "

// PostgresTransferRepository implements TransferRepository and LabelRepository
type PostgresTransferRepository struct {
	client *PostgresClient
	logger *logger.Logger
}

// NewPostgresTransferRepository creates a new Postgres ledger repository
func NewPostgresTransferRepository(client *PostgresClient, logger *logger.Logger) *PostgresTransferRepository {
	return &PostgresTransferRepository{
		client: client,
		logger: logger.WithComponent("postgres-transfer-repo"),
	}
}

var (
	_ repository.TransferRepository = (*PostgresTransferRepository)(nil)
	_ repository.LabelRepository    = (*PostgresTransferRepository)(nil)
)

// EnsureSchema creates the ledger tables when missing
func (r *PostgresTransferRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.client.DB().ExecContext(ctx, ledgerSchema); err != nil {
		return fmt.Errorf("failed to ensure ledger schema: %w", err)
	}
	return nil
}

// SaveTransfer stores one transfer, skipping an already stored (hash, msg_index)
func (r *PostgresTransferRepository) SaveTransfer(ctx context.Context, event *entity.TransferEvent) (bool, error) {
	res, err := r.client.DB().ExecContext(ctx, insertTransfer, transferArgs(event)...)
	if err != nil {
		return false, fmt.Errorf("failed to save transfer %s: %w", event.Key(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to save transfer %s: %w", event.Key(), err)
	}
	return n > 0, nil
}

// BatchSaveTransfers stores several transfers in one transaction
func (r *PostgresTransferRepository) BatchSaveTransfers(ctx context.Context, events []*entity.TransferEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := r.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transfer batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertTransfer)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare transfer batch: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, event := range events {
		res, err := stmt.ExecContext(ctx, transferArgs(event)...)
		if err != nil {
			return 0, fmt.Errorf("failed to save transfer %s: %w", event.Key(), err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transfer batch: %w", err)
	}

	r.logger.Debug("Saved transfer batch",
		zap.Int("events", len(events)),
		zap.Int("inserted", inserted))
	return inserted, nil
}

// ListTransfers returns stored transfers ordered by timestamp, then insertion
func (r *PostgresTransferRepository) ListTransfers(ctx context.Context, limit int) ([]*entity.TransferEvent, error) {
	query := `
SELECT tx_hash, msg_index, height, sender, receiver, amount::text, timestamp, tx_type, network
FROM transactions
ORDER BY timestamp, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	var events []*entity.TransferEvent
	for rows.Next() {
		var e entity.TransferEvent
		if err := rows.Scan(&e.Hash, &e.MsgIndex, &e.Height, &e.From, &e.To,
			&e.Amount, &e.Timestamp, &e.TxType, &e.Network); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	return events, nil
}

// CountTransfers returns the number of stored transfers
func (r *PostgresTransferRepository) CountTransfers(ctx context.Context) (int, error) {
	var n int
	if err := r.client.DB().QueryRowContext(ctx, `SELECT count(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transfers: %w", err)
	}
	return n, nil
}

// Truncate drops every stored transfer and label
func (r *PostgresTransferRepository) Truncate(ctx context.Context) error {
	if _, err := r.client.DB().ExecContext(ctx, `TRUNCATE TABLE transactions, address_labels RESTART IDENTITY`); err != nil {
		return fmt.Errorf("failed to truncate ledger: %w", err)
	}
	r.logger.Info("Truncated ledger tables")
	return nil
}

// UpsertLabels writes labels, replacing older labels of the same address
func (r *PostgresTransferRepository) UpsertLabels(ctx context.Context, labels []*entity.AddressLabel) error {
	if len(labels) == 0 {
		return nil
	}

	tx, err := r.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin label upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const upsert = `
INSERT INTO address_labels (address, label, category, risk_level, reasons, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (address) DO UPDATE SET
  label = EXCLUDED.label,
  category = EXCLUDED.category,
  risk_level = EXCLUDED.risk_level,
  reasons = EXCLUDED.reasons,
  updated_at = EXCLUDED.updated_at`

	for _, l := range labels {
		if _, err := tx.ExecContext(ctx, upsert, l.Address, string(l.Label), l.Category,
			string(l.RiskLevel), strings.Join(l.Reasons, reasonSeparator), l.UpdatedAt); err != nil {
			return fmt.Errorf("failed to upsert label for %s: %w", l.Address, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit labels: %w", err)
	}
	return nil
}

// GetLabel retrieves the stored label of an address
func (r *PostgresTransferRepository) GetLabel(ctx context.Context, address string) (*entity.AddressLabel, error) {
	var (
		l       entity.AddressLabel
		label   string
		risk    string
		reasons string
	)
	err := r.client.DB().QueryRowContext(ctx,
		`SELECT address, label, category, risk_level, reasons, updated_at FROM address_labels WHERE address = $1`,
		address,
	).Scan(&l.Address, &label, &l.Category, &risk, &reasons, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("label for %s: %w", address, entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get label for %s: %w", address, err)
	}

	l.Label = entity.LabelKind(label)
	l.RiskLevel = entity.RiskLevel(risk)
	l.Reasons = splitReasons(reasons)
	return &l, nil
}

func transferArgs(e *entity.TransferEvent) []any {
	return []any{e.Hash, e.MsgIndex, e.Height, e.From, e.To, strings.TrimSpace(e.Amount), e.Timestamp.UTC(), e.TxType, e.Network}
}

func splitReasons(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, reasonSeparator)
}
