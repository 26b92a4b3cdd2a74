package database

import (
	"context"
	"os"
	"testing"
	"time"

	"chain-forensics/internal/domain/entity"
	"chain-forensics/internal/infrastructure/config"
	"chain-forensics/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSplitReasons(t *testing.T) {
	assert.Equal(t, []string{}, splitReasons(""))
	assert.Equal(t, []string{"a", "b"}, splitReasons("a"+reasonSeparator+"b"))
}

func TestTransferArgsNormalizes(t *testing.T) {
	ts := time.Date(2025, 3, 1, 19, 0, 0, 0, time.FixedZone("ICT", 7*3600))
	args := transferArgs(&entity.TransferEvent{Hash: "h", From: "a", To: "b", Amount: " 1.5 ", Timestamp: ts})
	require.Len(t, args, 9)
	assert.Equal(t, "1.5", args[5])
	assert.Equal(t, ts.UTC(), args[6])
}

// newTestRepository connects to the database named by PG_DSN and skips the
// test when it is unset.
func newTestRepository(t *testing.T) *PostgresTransferRepository {
	t.Helper()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	log := logger.Wrap(zaptest.NewLogger(t))
	client := NewPostgresClient(&config.PostgresConfig{DSN: dsn, MaxOpenConns: 2, MaxIdleConns: 2}, log)
	require.NoError(t, client.Connect(context.Background()))
	t.Cleanup(func() { _ = client.Close() })

	repo := NewPostgresTransferRepository(client, log)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	require.NoError(t, repo.Truncate(context.Background()))
	return repo
}

func TestPostgresLedgerRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	later := &entity.TransferEvent{Hash: "TX_2", From: "B", To: "A", Amount: "5", Timestamp: t0.Add(time.Minute)}
	earlier := &entity.TransferEvent{Hash: "TX_1", From: "A", To: "B", Amount: "10.5", Timestamp: t0}

	inserted, err := repo.SaveTransfer(ctx, later)
	require.NoError(t, err)
	assert.True(t, inserted)

	n, err := repo.BatchSaveTransfers(ctx, []*entity.TransferEvent{earlier, later})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := repo.CountTransfers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	events, err := repo.ListTransfers(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "TX_1", events[0].Hash)
	assert.Equal(t, "10.5", events[0].Amount)
	assert.Equal(t, "TX_2", events[1].Hash)
}

func TestPostgresLabels(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.GetLabel(ctx, "A")
	require.ErrorIs(t, err, entity.ErrNotFound)

	label := &entity.AddressLabel{
		Address:   "A",
		Label:     entity.LabelWashTrader,
		Category:  entity.CategoryPattern,
		RiskLevel: entity.RiskLevelHigh,
		Reasons:   []string{"member of 1 wash trading cycle(s) moving 15"},
		UpdatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.UpsertLabels(ctx, []*entity.AddressLabel{label}))

	label.RiskLevel = entity.RiskLevelCritical
	require.NoError(t, repo.UpsertLabels(ctx, []*entity.AddressLabel{label}))

	got, err := repo.GetLabel(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, entity.RiskLevelCritical, got.RiskLevel)
	assert.Equal(t, label.Reasons, got.Reasons)
}
