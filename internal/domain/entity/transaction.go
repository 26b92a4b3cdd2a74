package entity

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransferRecord is a single value transfer fed into the detector.
// It is never mutated after creation.
type TransferRecord struct {
	Sender    string          `json:"sender"`
	Receiver  string          `json:"receiver"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewTransferRecord validates the amount and timestamp and builds a record.
// Sender and receiver may be equal; the engine keeps self transfers.
func NewTransferRecord(sender, receiver string, amount decimal.Decimal, timestamp time.Time) (TransferRecord, error) {
	if amount.IsNegative() {
		return TransferRecord{}, fmt.Errorf("%w: %w (%s)", ErrInvalidTransfer, ErrNegativeAmount, amount.String())
	}
	if timestamp.IsZero() {
		return TransferRecord{}, fmt.Errorf("%w: %w", ErrInvalidTransfer, ErrInvalidTimestamp)
	}
	return TransferRecord{
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		Timestamp: timestamp,
	}, nil
}

// TransferEvent represents a decoded transfer as delivered by the upstream
// indexer over NATS and as stored in the ledger table
type TransferEvent struct {
	Hash      string    `json:"hash"`
	MsgIndex  int       `json:"msg_index"`
	Height    int64     `json:"height"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Amount    string    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
	TxType    string    `json:"tx_type"`
	Network   string    `json:"network"`
}

// Key identifies a transfer across redeliveries.
func (e *TransferEvent) Key() string {
	return e.Hash + ":" + strconv.Itoa(e.MsgIndex)
}

// Validate checks the event shape before it reaches the ledger.
func (e *TransferEvent) Validate() error {
	if strings.TrimSpace(e.Hash) == "" {
		return fmt.Errorf("%w: %w: hash", ErrInvalidTransfer, ErrMissingField)
	}
	if strings.TrimSpace(e.From) == "" {
		return fmt.Errorf("%w: %w: from", ErrInvalidTransfer, ErrMissingField)
	}
	if strings.TrimSpace(e.To) == "" {
		return fmt.Errorf("%w: %w: to", ErrInvalidTransfer, ErrMissingField)
	}
	_, err := e.Record()
	return err
}

// Record converts the event into a validated transfer record.
func (e *TransferEvent) Record() (TransferRecord, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(e.Amount))
	if err != nil {
		return TransferRecord{}, fmt.Errorf("%w: %w %q", ErrInvalidTransfer, ErrInvalidAmount, e.Amount)
	}
	return NewTransferRecord(e.From, e.To, amount, e.Timestamp)
}
