package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"chain-forensics/internal/domain/entity"
	"chain-forensics/internal/infrastructure/config"
	"chain-forensics/internal/infrastructure/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	fetchBatchSize = 10
	fetchMaxWait   = 5 * time.Second
	drainTimeout   = 10 * time.Second
)

var errChannelFull = errors.New("message channel is full")

// NATSConsumer handles NATS JetStream consumption of transfer events
type NATSConsumer struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	sub     *nats.Subscription
	config  *config.NATSConfig
	logger  *logger.Logger
	msgChan chan *TransferDelivery
	running atomic.Bool
	wg      sync.WaitGroup
	drained chan struct{}

	// chanMu guards sends on msgChan against its close
	chanMu     sync.RWMutex
	chanClosed bool
}

// NewNATSConsumer creates a new NATS consumer
func NewNATSConsumer(cfg *config.NATSConfig, logger *logger.Logger) *NATSConsumer {
	return &NATSConsumer{
		config:  cfg,
		logger:  logger.WithComponent("nats-consumer"),
		msgChan: make(chan *TransferDelivery, cfg.MaxPendingMessages),
	}
}

// Subject returns the subject transfer events are published on
func (n *NATSConsumer) Subject() string {
	return fmt.Sprintf("%s.events", n.config.SubjectPrefix)
}

// Connect connects to NATS server and sets up consumer
func (n *NATSConsumer) Connect(ctx context.Context) error {
	if !n.config.Enabled {
		n.logger.Info("NATS is disabled, skipping connection")
		return nil
	}

	n.logger.Info("Connecting to NATS server", zap.String("url", n.config.URL))

	drained := make(chan struct{})
	n.drained = drained

	opts := []nats.Option{
		nats.Name("chain-forensics"),
		nats.Timeout(n.config.ConnectTimeout),
		nats.ReconnectWait(n.config.ReconnectDelay),
		nats.MaxReconnects(n.config.ReconnectAttempts),
		nats.DrainTimeout(drainTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			n.logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			n.logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			n.logger.Info("NATS connection closed")
			close(drained)
		}),
	}

	conn, err := nats.Connect(n.config.URL, opts...)
	if err != nil {
		n.logger.Error("Failed to connect to NATS", zap.Error(err))
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	n.conn = conn

	// Try JetStream first, if not available fall back to core NATS
	js, err := conn.JetStream()
	if err != nil {
		n.logger.Warn("JetStream not available, using core NATS", zap.Error(err))
		return n.setupCoreNATSSubscription()
	}

	n.js = js
	return n.setupJetStreamSubscription()
}

// setupJetStreamSubscription binds a pull subscription to the durable consumer
func (n *NATSConsumer) setupJetStreamSubscription() error {
	subject := n.Subject()
	durable := n.config.ConsumerGroup

	n.logger.Info("Setting up JetStream subscription",
		zap.String("subject", subject),
		zap.String("consumer", durable),
		zap.String("stream", n.config.StreamName))

	sub, err := n.js.PullSubscribe(subject, durable, nats.BindStream(n.config.StreamName))
	if err != nil {
		n.logger.Warn("Failed to create pull subscription, falling back to core NATS", zap.Error(err))
		n.js = nil
		return n.setupCoreNATSSubscription()
	}

	n.sub = sub
	n.running.Store(true)

	n.wg.Add(1)
	go n.processJetStreamMessages()

	n.logger.Info("Successfully connected to NATS JetStream",
		zap.String("subject", subject),
		zap.String("consumer", durable))

	return nil
}

// processJetStreamMessages processes messages from JetStream pull subscription
func (n *NATSConsumer) processJetStreamMessages() {
	defer n.wg.Done()
	n.logger.Info("Starting JetStream message processing")

	for n.running.Load() {
		msgs, err := n.sub.Fetch(fetchBatchSize, nats.MaxWait(fetchMaxWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			if !n.running.Load() {
				break
			}
			n.logger.Error("Failed to fetch messages", zap.Error(err))
			continue
		}

		n.logger.Debug("Fetched messages from JetStream", zap.Int("count", len(msgs)))

		for _, msg := range msgs {
			n.handleMessage(msg)
		}
	}

	n.logger.Info("Stopped JetStream message processing")
}

// setupCoreNATSSubscription sets up core NATS subscription
func (n *NATSConsumer) setupCoreNATSSubscription() error {
	subject := n.Subject()
	queueGroup := n.config.ConsumerGroup

	n.logger.Info("Setting up core NATS subscription",
		zap.String("subject", subject),
		zap.String("queue_group", queueGroup))

	sub, err := n.conn.QueueSubscribe(subject, queueGroup, n.handleMessage)
	if err != nil {
		n.logger.Error("Failed to subscribe to subject", zap.Error(err))
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	n.sub = sub
	n.running.Store(true)

	n.logger.Info("Successfully connected to core NATS",
		zap.String("subject", subject),
		zap.String("queue_group", queueGroup))

	return nil
}

// DecodeTransferEvent parses and validates one message payload
func DecodeTransferEvent(data []byte) (*entity.TransferEvent, error) {
	var event entity.TransferEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrInvalidTransfer, err)
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return &event, nil
}

// handleMessage decodes incoming NATS messages and queues them unsettled.
// Malformed payloads are terminated so they are not redelivered.
func (n *NATSConsumer) handleMessage(msg *nats.Msg) {
	event, err := DecodeTransferEvent(msg.Data)
	delivery := newMsgDelivery(event, msg, n.js != nil)
	if err != nil {
		n.logger.Error("Rejected transfer event", zap.Error(err))
		_ = delivery.Settle(err)
		return
	}

	n.logger.Debug("Processing transfer",
		zap.String("hash", event.Hash),
		zap.Int("msg_index", event.MsgIndex),
		zap.String("from", event.From),
		zap.String("to", event.To),
		zap.String("amount", event.Amount))

	if !n.enqueue(delivery) {
		n.logger.Warn("Message channel is full or closed, dropping message", zap.String("hash", event.Hash))
		_ = delivery.Settle(errChannelFull)
	}
}

func (n *NATSConsumer) enqueue(delivery *TransferDelivery) bool {
	n.chanMu.RLock()
	defer n.chanMu.RUnlock()
	if n.chanClosed {
		return false
	}
	select {
	case n.msgChan <- delivery:
		return true
	default:
		return false
	}
}

func (n *NATSConsumer) closeChannel() {
	n.chanMu.Lock()
	defer n.chanMu.Unlock()
	if !n.chanClosed {
		n.chanClosed = true
		close(n.msgChan)
	}
}

// Disconnect drains the subscription, waits for in-flight handlers and
// closes the message channel
func (n *NATSConsumer) Disconnect() error {
	n.running.Store(false)

	if n.conn != nil {
		if err := n.conn.Drain(); err != nil {
			n.logger.Warn("Failed to drain NATS connection", zap.Error(err))
			n.conn.Close()
		}
		select {
		case <-n.drained:
		case <-time.After(drainTimeout + time.Second):
			n.logger.Warn("Timed out waiting for NATS drain")
		}
	}
	n.wg.Wait()
	n.sub = nil
	n.conn = nil
	n.closeChannel()
	n.logger.Info("Disconnected from NATS")
	return nil
}

// IsConnected checks if connected to NATS
func (n *NATSConsumer) IsConnected() bool {
	return n.running.Load() && n.conn != nil && n.conn.IsConnected()
}

// GetMessageChannel returns the channel of unsettled deliveries. Consumers
// must Settle every delivery they receive.
func (n *NATSConsumer) GetMessageChannel() <-chan *TransferDelivery {
	return n.msgChan
}
