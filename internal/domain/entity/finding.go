package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CycleFinding is a closed value cycle retained by the wash trading detector
type CycleFinding struct {
	Cycle       []string        `json:"cycle"`
	Length      int             `json:"length"`
	TotalVolume decimal.Decimal `json:"total_volume"`
}

// Contains reports whether the address is a member of the cycle.
func (f CycleFinding) Contains(address string) bool {
	for _, addr := range f.Cycle {
		if addr == address {
			return true
		}
	}
	return false
}

// TimeWindow is a closed interval [Start, End]
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the closed interval.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// String renders the window as "start - end" in RFC 3339.
func (w TimeWindow) String() string {
	return w.Start.Format(time.RFC3339Nano) + " - " + w.End.Format(time.RFC3339Nano)
}

// FanOutFinding is one qualifying window of rapid one-to-many disbursement
type FanOutFinding struct {
	Sender           string          `json:"sender"`
	Recipients       []string        `json:"recipients"`
	RecipientCount   int             `json:"recipient_count"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	TransactionCount int             `json:"transaction_count"`
	TimeWindow       TimeWindow      `json:"time_window"`
}

// FanOutParams are the thresholds of a fan-out query
type FanOutParams struct {
	TimeWindow    time.Duration
	MinRecipients int
	MinAmount     decimal.Decimal
}

// CycleParams bound a wash trading query
type CycleParams struct {
	MinLength int
	MaxLength int
}

const (
	DefaultMinCycleLength = 2
	DefaultMaxCycleLength = 10
	DefaultFanOutWindow   = 60 * time.Minute
	DefaultMinRecipients  = 10
)

// DefaultCycleParams returns the stock cycle bounds (2..10).
func DefaultCycleParams() CycleParams {
	return CycleParams{MinLength: DefaultMinCycleLength, MaxLength: DefaultMaxCycleLength}
}

// DefaultFanOutParams returns 60 minutes, 10 recipients and no amount floor.
func DefaultFanOutParams() FanOutParams {
	return FanOutParams{
		TimeWindow:    DefaultFanOutWindow,
		MinRecipients: DefaultMinRecipients,
		MinAmount:     decimal.Zero,
	}
}

// GraphEdge is the collapsed view of transfers between an ordered address pair
type GraphEdge struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Weight    decimal.Decimal `json:"weight"`
	Timestamp time.Time       `json:"timestamp"`
}

// AnalysisReport bundles the output of one analysis run
type AnalysisReport struct {
	RunID       uuid.UUID       `json:"run_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Stats       LedgerStats     `json:"stats"`
	WashTrading []CycleFinding  `json:"wash_trading"`
	FanOuts     []FanOutFinding `json:"fan_outs"`
	Labels      []*AddressLabel `json:"labels"`
}
