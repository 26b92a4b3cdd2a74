package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chain-forensics/internal/domain/entity"
	"chain-forensics/internal/infrastructure/config"
	"chain-forensics/internal/infrastructure/logger"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// EventAnalysisReport is the envelope type of published analysis reports
const EventAnalysisReport = "analysis_report"

// Envelope wraps every payload written to the findings topic
type Envelope struct {
	Type string          `json:"type"`
	TS   int64           `json:"ts"` // unix milli
	Data json.RawMessage `json:"data"`
}

// KafkaPublisher writes analysis reports to Kafka for the narration layer
type KafkaPublisher struct {
	topic    string
	producer sarama.SyncProducer
	logger   *logger.Logger
	now      func() time.Time
}

// NewKafkaPublisher connects a sync producer. A disabled config yields a
// publisher that drops every report.
func NewKafkaPublisher(cfg *config.KafkaConfig, log *logger.Logger) (*KafkaPublisher, error) {
	if !cfg.Enabled {
		log.WithComponent("kafka-publisher").Info("Kafka is disabled, reports will not be published")
		return NewKafkaPublisherWithProducer(nil, cfg.Topic, log), nil
	}

	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true

	p, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(p, cfg.Topic, log), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer; nil disables publishing
func NewKafkaPublisherWithProducer(p sarama.SyncProducer, topic string, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		topic:    topic,
		producer: p,
		logger:   log.WithComponent("kafka-publisher"),
		now:      time.Now,
	}
}

// PublishReport sends one report keyed by its run id
func (k *KafkaPublisher) PublishReport(ctx context.Context, report *entity.AnalysisReport) error {
	if k.producer == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b, err := k.encode(EventAnalysisReport, report)
	if err != nil {
		return err
	}

	partition, offset, err := k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(report.RunID.String()),
		Value: sarama.ByteEncoder(b),
	})
	if err != nil {
		return fmt.Errorf("kafka publish failed: %w", err)
	}

	k.logger.Info("Published analysis report",
		zap.String("run_id", report.RunID.String()),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.Int("wash_trading", len(report.WashTrading)),
		zap.Int("fan_outs", len(report.FanOuts)))
	return nil
}

func (k *KafkaPublisher) encode(typ string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", typ, err)
	}
	return json.Marshal(Envelope{
		Type: typ,
		TS:   k.now().UnixMilli(),
		Data: data,
	})
}

// Close closes the producer
func (k *KafkaPublisher) Close() error {
	if k.producer != nil {
		return k.producer.Close()
	}
	return nil
}
