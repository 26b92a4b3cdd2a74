package service

import (
	"chain-forensics/internal/domain/entity"

	"github.com/shopspring/decimal"
)

const hoursPerDay = 24

// BuildAddressProfile computes outflow statistics of one sender over a
// ledger and attaches the findings that involve it. Active days count whole
// days between the first and last transfer, with a floor of one.
func BuildAddressProfile(address string, ledger []entity.TransferRecord, cycles []entity.CycleFinding, fanOuts []entity.FanOutFinding) *entity.AddressProfile {
	profile := &entity.AddressProfile{
		Address:       address,
		TotalVolume:   decimal.Zero,
		AverageAmount: decimal.Zero,
		ActiveDays:    1,
		Cycles:        []entity.CycleFinding{},
		FanOuts:       []entity.FanOutFinding{},
	}

	for _, c := range cycles {
		if c.Contains(address) {
			profile.Cycles = append(profile.Cycles, c)
		}
	}
	for _, f := range fanOuts {
		if f.Sender == address {
			profile.FanOuts = append(profile.FanOuts, f)
		}
	}

	for _, tx := range ledger {
		if tx.Sender != address {
			continue
		}
		if profile.TransactionCount == 0 || tx.Timestamp.Before(profile.FirstSeen) {
			profile.FirstSeen = tx.Timestamp
		}
		if profile.TransactionCount == 0 || tx.Timestamp.After(profile.LastSeen) {
			profile.LastSeen = tx.Timestamp
		}
		profile.TransactionCount++
		profile.TotalVolume = profile.TotalVolume.Add(tx.Amount)
	}

	if profile.TransactionCount == 0 {
		return profile
	}

	if days := int(profile.LastSeen.Sub(profile.FirstSeen).Hours()) / hoursPerDay; days > 0 {
		profile.ActiveDays = days
	}
	profile.TxPerDay = float64(profile.TransactionCount) / float64(profile.ActiveDays)
	profile.AverageAmount = profile.TotalVolume.Div(decimal.NewFromInt(int64(profile.TransactionCount)))
	return profile
}
