package messaging

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"chain-forensics/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settleCounts struct {
	ack, nak, term int
}

func countingDelivery(event *entity.TransferEvent, c *settleCounts) *TransferDelivery {
	return NewTransferDelivery(event,
		func() error { c.ack++; return nil },
		func() error { c.nak++; return nil },
		func() error { c.term++; return nil })
}

type ingesterFunc func(context.Context, *entity.TransferEvent) error

func (f ingesterFunc) IngestTransfer(ctx context.Context, e *entity.TransferEvent) error {
	return f(ctx, e)
}

func TestSettleOutcomes(t *testing.T) {
	cases := map[string]struct {
		err  error
		want settleCounts
	}{
		"ingested":      {nil, settleCounts{ack: 1}},
		"invalid event": {fmt.Errorf("wrapped: %w", entity.ErrInvalidTransfer), settleCounts{term: 1}},
		"store failure": {errors.New("db down"), settleCounts{nak: 1}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var c settleCounts
			require.NoError(t, countingDelivery(nil, &c).Settle(tc.err))
			assert.Equal(t, tc.want, c)
		})
	}
}

func TestSettleWithoutCallbacks(t *testing.T) {
	d := NewTransferDelivery(nil, nil, nil, nil)
	assert.NoError(t, d.Settle(nil))
	assert.NoError(t, d.Settle(errors.New("db down")))
}

func TestIngestSettlesAfterIngestion(t *testing.T) {
	var c settleCounts
	boom := errors.New("db down")
	var seen []string
	ing := ingesterFunc(func(_ context.Context, e *entity.TransferEvent) error {
		seen = append(seen, e.Key())
		// no settle callback may run before ingestion returns
		assert.Equal(t, settleCounts{}, c)
		return boom
	})

	err := countingDelivery(&entity.TransferEvent{Hash: "TX_1"}, &c).Ingest(context.Background(), ing)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"TX_1:0"}, seen)
	assert.Equal(t, settleCounts{nak: 1}, c)
}

func TestIngestJoinsSettleError(t *testing.T) {
	ackErr := errors.New("ack lost")
	d := NewTransferDelivery(&entity.TransferEvent{Hash: "TX_1"}, func() error { return ackErr }, nil, nil)
	err := d.Ingest(context.Background(), ingesterFunc(func(context.Context, *entity.TransferEvent) error { return nil }))
	require.ErrorIs(t, err, ackErr)
}
