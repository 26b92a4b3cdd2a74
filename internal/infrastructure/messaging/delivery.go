package messaging

import (
	"context"
	"errors"

	"chain-forensics/internal/domain/entity"

	"github.com/nats-io/nats.go"
)

// TransferIngester accepts decoded transfer events
type TransferIngester interface {
	IngestTransfer(ctx context.Context, event *entity.TransferEvent) error
}

// TransferDelivery is a decoded transfer event that has not been
// acknowledged to the broker yet
type TransferDelivery struct {
	Event *entity.TransferEvent

	ack  func() error
	nak  func() error
	term func() error
}

// NewTransferDelivery wraps an event with its settle callbacks. Nil
// callbacks are skipped.
func NewTransferDelivery(event *entity.TransferEvent, ack, nak, term func() error) *TransferDelivery {
	return &TransferDelivery{Event: event, ack: ack, nak: nak, term: term}
}

// newMsgDelivery binds the settle callbacks to a NATS message. JetStream
// messages are acked, nak'd or terminated; core NATS requests get a reply.
func newMsgDelivery(event *entity.TransferEvent, msg *nats.Msg, jetStream bool) *TransferDelivery {
	if msg.Reply == "" {
		return NewTransferDelivery(event, nil, nil, nil)
	}
	if jetStream {
		return NewTransferDelivery(event,
			func() error { return msg.Ack() },
			func() error { return msg.Nak() },
			func() error { return msg.Term() })
	}
	return NewTransferDelivery(event,
		func() error { return msg.Respond([]byte("OK")) },
		func() error { return msg.Respond([]byte("ERROR: transfer not stored, retry")) },
		func() error { return msg.Respond([]byte("ERROR: invalid transfer event")) })
}

// Settle reports the ingestion outcome to the broker: success acks, an
// invalid event is terminated, anything else is nak'd for redelivery.
func (d *TransferDelivery) Settle(err error) error {
	var settle func() error
	switch {
	case err == nil:
		settle = d.ack
	case errors.Is(err, entity.ErrInvalidTransfer):
		settle = d.term
	default:
		settle = d.nak
	}
	if settle == nil {
		return nil
	}
	return settle()
}

// Ingest hands the event to ing and settles the delivery with the result
func (d *TransferDelivery) Ingest(ctx context.Context, ing TransferIngester) error {
	err := ing.IngestTransfer(ctx, d.Event)
	if settleErr := d.Settle(err); settleErr != nil {
		return errors.Join(err, settleErr)
	}
	return err
}
