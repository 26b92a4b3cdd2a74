package messaging

import (
	"sync"
	"testing"

	"chain-forensics/internal/domain/entity"
	"chain-forensics/internal/infrastructure/config"
	"chain-forensics/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTransferEvent(t *testing.T) {
	payload := []byte(`{"hash":"0xabc","msg_index":1,"height":42,"from":"sei1a","to":"sei1b",
		"amount":"12.5","timestamp":"2025-03-01T12:00:00Z","tx_type":"bank_send","network":"pacific-1"}`)

	event, err := DecodeTransferEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, "0xabc:1", event.Key())
	assert.Equal(t, int64(42), event.Height)

	rec, err := event.Record()
	require.NoError(t, err)
	assert.Equal(t, "12.5", rec.Amount.String())
}

func TestDecodeTransferEventRejects(t *testing.T) {
	cases := map[string]string{
		"not json":        `{"hash":`,
		"missing hash":    `{"from":"a","to":"b","amount":"1","timestamp":"2025-03-01T12:00:00Z"}`,
		"negative amount": `{"hash":"h","from":"a","to":"b","amount":"-1","timestamp":"2025-03-01T12:00:00Z"}`,
		"bad amount":      `{"hash":"h","from":"a","to":"b","amount":"ten","timestamp":"2025-03-01T12:00:00Z"}`,
		"no timestamp":    `{"hash":"h","from":"a","to":"b","amount":"1"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeTransferEvent([]byte(payload))
			require.ErrorIs(t, err, entity.ErrInvalidTransfer)
		})
	}
}

func TestEnqueueAfterCloseDoesNotPanic(t *testing.T) {
	consumer := NewNATSConsumer(&config.NATSConfig{MaxPendingMessages: 1}, logger.NewNop())

	assert.True(t, consumer.enqueue(NewTransferDelivery(nil, nil, nil, nil)))
	// full
	assert.False(t, consumer.enqueue(NewTransferDelivery(nil, nil, nil, nil)))

	<-consumer.GetMessageChannel()
	consumer.closeChannel()
	consumer.closeChannel()

	assert.NotPanics(t, func() {
		assert.False(t, consumer.enqueue(NewTransferDelivery(nil, nil, nil, nil)))
	})
	_, open := <-consumer.GetMessageChannel()
	assert.False(t, open)
}

func TestConcurrentEnqueueAndClose(t *testing.T) {
	consumer := NewNATSConsumer(&config.NATSConfig{MaxPendingMessages: 1000}, logger.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				consumer.enqueue(NewTransferDelivery(nil, nil, nil, nil))
			}
		}()
	}
	consumer.closeChannel()
	wg.Wait()

	for range consumer.GetMessageChannel() {
	}
}

func TestDisconnectWithoutConnection(t *testing.T) {
	consumer := NewNATSConsumer(&config.NATSConfig{MaxPendingMessages: 1}, logger.NewNop())
	require.NoError(t, consumer.Disconnect())
	require.NoError(t, consumer.Disconnect())
	assert.False(t, consumer.IsConnected())
}
