package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"chain-forensics/internal/domain/entity"
	"chain-forensics/internal/infrastructure/logger"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testReport() *entity.AnalysisReport {
	return &entity.AnalysisReport{
		RunID:       uuid.MustParse("7b1d5a0e-4a57-4a8e-9a55-8d2f0c3e6b11"),
		GeneratedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		WashTrading: []entity.CycleFinding{{
			Cycle:       []string{"A", "B"},
			Length:      2,
			TotalVolume: decimal.NewFromInt(15),
		}},
		FanOuts: []entity.FanOutFinding{},
	}
}

func TestPublishReportEnvelope(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var env Envelope
		if err := json.Unmarshal(val, &env); err != nil {
			return err
		}
		if env.Type != EventAnalysisReport {
			return errors.New("unexpected envelope type " + env.Type)
		}
		if env.TS != 1700000000000 {
			return errors.New("unexpected envelope timestamp")
		}
		var report entity.AnalysisReport
		if err := json.Unmarshal(env.Data, &report); err != nil {
			return err
		}
		if len(report.WashTrading) != 1 || !report.WashTrading[0].TotalVolume.Equal(decimal.NewFromInt(15)) {
			return errors.New("report payload mismatch")
		}
		return nil
	})

	pub := NewKafkaPublisherWithProducer(producer, "findings", logger.Wrap(zaptest.NewLogger(t)))
	pub.now = func() time.Time { return time.UnixMilli(1700000000000) }

	require.NoError(t, pub.PublishReport(context.Background(), testReport()))
	require.NoError(t, pub.Close())
}

func TestPublishReportFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	pub := NewKafkaPublisherWithProducer(producer, "findings", logger.Wrap(zaptest.NewLogger(t)))
	err := pub.PublishReport(context.Background(), testReport())
	require.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, pub.Close())
}

func TestDisabledPublisherIsNoop(t *testing.T) {
	pub := NewKafkaPublisherWithProducer(nil, "findings", logger.NewNop())
	assert.NoError(t, pub.PublishReport(context.Background(), testReport()))
	assert.NoError(t, pub.Close())
}

func TestPublishReportCanceledContext(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	pub := NewKafkaPublisherWithProducer(producer, "findings", logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, pub.PublishReport(ctx, testReport()), context.Canceled)
	require.NoError(t, pub.Close())
}
