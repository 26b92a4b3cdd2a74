package entity

import (
	"time"
)

// LabelKind is the behavioral label attached to an address
type LabelKind string

const (
	LabelWashTrader LabelKind = "WASH_TRADER" // Member of a closed value cycle
	LabelFanOutHub  LabelKind = "FAN_OUT_HUB" // Rapid one-to-many disburser
	LabelWhale      LabelKind = "WHALE"       // Large total outflow
	LabelShrimp     LabelKind = "SHRIMP"      // Dust-sized total outflow
	LabelUser       LabelKind = "USER"        // Nothing notable
)

// RiskLevel represents the risk level of an address
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
	RiskLevelUnknown  RiskLevel = "UNKNOWN"
)

// Label categories, matching the category column of the address_labels table
const (
	CategoryPattern = "PATTERN"
	CategoryVolume  = "VOLUME"
)

// AddressLabel is a rule-derived classification of one address
type AddressLabel struct {
	Address   string    `json:"address"`
	Label     LabelKind `json:"label"`
	Category  string    `json:"category"`
	RiskLevel RiskLevel `json:"risk_level"`
	Reasons   []string  `json:"reasons"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Category returns the broad category of a label kind
func (k LabelKind) Category() string {
	switch k {
	case LabelWashTrader, LabelFanOutHub:
		return CategoryPattern
	default:
		return CategoryVolume
	}
}

// DefaultRiskLevel returns the default risk level for a label kind
func (k LabelKind) DefaultRiskLevel() RiskLevel {
	switch k {
	case LabelWashTrader, LabelFanOutHub:
		return RiskLevelHigh
	case LabelWhale:
		return RiskLevelMedium
	case LabelShrimp, LabelUser:
		return RiskLevelLow
	default:
		return RiskLevelUnknown
	}
}

// IsHighRisk checks if the risk level warrants investigation
func (r RiskLevel) IsHighRisk() bool {
	return r == RiskLevelHigh || r == RiskLevelCritical
}

// rank orders risk levels for comparisons
func (r RiskLevel) rank() int {
	switch r {
	case RiskLevelLow:
		return 1
	case RiskLevelMedium:
		return 2
	case RiskLevelHigh:
		return 3
	case RiskLevelCritical:
		return 4
	default:
		return 0
	}
}

// Exceeds reports whether r is strictly riskier than other.
func (r RiskLevel) Exceeds(other RiskLevel) bool {
	return r.rank() > other.rank()
}
