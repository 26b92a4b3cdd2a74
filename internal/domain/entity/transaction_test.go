package entity

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ts = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func validEvent() *TransferEvent {
	return &TransferEvent{
		Hash:      "TX_1",
		MsgIndex:  2,
		From:      "alice",
		To:        "bob",
		Amount:    " 12.5 ",
		Timestamp: ts,
	}
}

func TestNewTransferRecord(t *testing.T) {
	rec, err := NewTransferRecord("a", "a", decimal.Zero, ts)
	require.NoError(t, err)
	assert.Equal(t, "a", rec.Sender)
	assert.Equal(t, "a", rec.Receiver)

	_, err = NewTransferRecord("a", "b", decimal.NewFromInt(-1), ts)
	require.ErrorIs(t, err, ErrInvalidTransfer)
	require.ErrorIs(t, err, ErrNegativeAmount)

	_, err = NewTransferRecord("a", "b", decimal.NewFromInt(1), time.Time{})
	require.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestTransferEventKey(t *testing.T) {
	assert.Equal(t, "TX_1:2", validEvent().Key())
}

func TestTransferEventRecord(t *testing.T) {
	rec, err := validEvent().Record()
	require.NoError(t, err)
	assert.True(t, rec.Amount.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, ts, rec.Timestamp)
}

func TestTransferEventValidate(t *testing.T) {
	require.NoError(t, validEvent().Validate())

	cases := map[string]struct {
		mutate func(*TransferEvent)
		want   error
	}{
		"blank hash":      {func(e *TransferEvent) { e.Hash = " " }, ErrMissingField},
		"missing from":    {func(e *TransferEvent) { e.From = "" }, ErrMissingField},
		"missing to":      {func(e *TransferEvent) { e.To = "" }, ErrMissingField},
		"bad amount":      {func(e *TransferEvent) { e.Amount = "ten" }, ErrInvalidAmount},
		"negative amount": {func(e *TransferEvent) { e.Amount = "-3" }, ErrNegativeAmount},
		"zero timestamp":  {func(e *TransferEvent) { e.Timestamp = time.Time{} }, ErrInvalidTimestamp},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			e := validEvent()
			tc.mutate(e)
			err := e.Validate()
			require.ErrorIs(t, err, ErrInvalidTransfer)
			require.ErrorIs(t, err, tc.want)
		})
	}
}
