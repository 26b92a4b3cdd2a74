package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerStats aggregates the whole ledger
type LedgerStats struct {
	TransactionCount int             `json:"transaction_count"`
	AddressCount     int             `json:"address_count"`
	EdgeCount        int             `json:"edge_count"`
	TotalVolume      decimal.Decimal `json:"total_volume"`
	AverageAmount    decimal.Decimal `json:"average_amount"`
	FirstSeen        time.Time       `json:"first_seen"`
	LastSeen         time.Time       `json:"last_seen"`
}

// AddressProfile is the deep-dive view of one sending address
type AddressProfile struct {
	Address          string          `json:"address"`
	TransactionCount int             `json:"transaction_count"`
	TotalVolume      decimal.Decimal `json:"total_volume"`
	AverageAmount    decimal.Decimal `json:"average_amount"`
	ActiveDays       int             `json:"active_days"`
	TxPerDay         float64         `json:"tx_per_day"`
	FirstSeen        time.Time       `json:"first_seen"`
	LastSeen         time.Time       `json:"last_seen"`
	Cycles           []CycleFinding  `json:"cycles"`
	FanOuts          []FanOutFinding `json:"fan_outs"`
	Label            *AddressLabel   `json:"label,omitempty"`
}
