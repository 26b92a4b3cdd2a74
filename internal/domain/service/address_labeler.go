package service

import (
	"fmt"
	"sort"
	"time"

	"chain-forensics/internal/domain/entity"
	"chain-forensics/internal/infrastructure/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// criticalCycleCount is the number of cycles after which a wash trader is critical
const criticalCycleCount = 3

// LabelThresholds are the total-outflow bounds of the volume labels
type LabelThresholds struct {
	Whale  decimal.Decimal
	Shrimp decimal.Decimal
}

// DefaultLabelThresholds returns whale above 4000 and shrimp below 10.
func DefaultLabelThresholds() LabelThresholds {
	return LabelThresholds{
		Whale:  decimal.NewFromInt(4000),
		Shrimp: decimal.NewFromInt(10),
	}
}

// AddressLabeler turns detector findings and ledger volume into per-address labels
type AddressLabeler struct {
	thresholds LabelThresholds
	logger     *logger.Logger
	now        func() time.Time
}

// NewAddressLabeler creates a new address labeler
func NewAddressLabeler(thresholds LabelThresholds, log *logger.Logger) *AddressLabeler {
	if log == nil {
		log = logger.NewNop()
	}
	return &AddressLabeler{
		thresholds: thresholds,
		logger:     log.WithComponent("address-labeler"),
		now:        time.Now,
	}
}

type senderActivity struct {
	total decimal.Decimal
	count int
}

// Label assigns one label to every sending address in the ledger. Pattern
// labels win over volume labels; the result is ordered by risk, then by the
// order in which senders first appear.
func (l *AddressLabeler) Label(ledger []entity.TransferRecord, cycles []entity.CycleFinding, fanOuts []entity.FanOutFinding) []*entity.AddressLabel {
	var order []string
	activity := make(map[string]*senderActivity)
	for _, tx := range ledger {
		a, ok := activity[tx.Sender]
		if !ok {
			a = &senderActivity{total: decimal.Zero}
			activity[tx.Sender] = a
			order = append(order, tx.Sender)
		}
		a.total = a.total.Add(tx.Amount)
		a.count++
	}

	cycleCount := make(map[string]int)
	cycleVolume := make(map[string]decimal.Decimal)
	for _, c := range cycles {
		for _, addr := range c.Cycle {
			cycleCount[addr]++
			cycleVolume[addr] = cycleVolume[addr].Add(c.TotalVolume)
		}
	}

	peakRecipients := make(map[string]int)
	for _, f := range fanOuts {
		if f.RecipientCount > peakRecipients[f.Sender] {
			peakRecipients[f.Sender] = f.RecipientCount
		}
	}

	now := l.now().UTC()
	labels := make([]*entity.AddressLabel, 0, len(order))
	for _, addr := range order {
		label := l.classify(addr, activity[addr], cycleCount[addr], cycleVolume[addr], peakRecipients[addr])
		label.UpdatedAt = now
		labels = append(labels, label)
	}

	sort.SliceStable(labels, func(i, j int) bool {
		return labels[i].RiskLevel.Exceeds(labels[j].RiskLevel)
	})

	l.logger.Debug("Labeled addresses",
		zap.Int("addresses", len(labels)),
		zap.Int("cycles", len(cycles)),
		zap.Int("fan_outs", len(fanOuts)))
	return labels
}

func (l *AddressLabeler) classify(addr string, a *senderActivity, cycles int, cycleVol decimal.Decimal, recipients int) *entity.AddressLabel {
	label := &entity.AddressLabel{Address: addr}

	switch {
	case cycles > 0:
		label.Label = entity.LabelWashTrader
		label.RiskLevel = entity.LabelWashTrader.DefaultRiskLevel()
		if cycles >= criticalCycleCount {
			label.RiskLevel = entity.RiskLevelCritical
		}
		label.Reasons = append(label.Reasons,
			fmt.Sprintf("member of %d wash trading cycle(s) moving %s", cycles, cycleVol.String()))
		if recipients > 0 {
			label.RiskLevel = entity.RiskLevelCritical
			label.Reasons = append(label.Reasons,
				fmt.Sprintf("fanned out to %d recipients within one window", recipients))
		}
	case recipients > 0:
		label.Label = entity.LabelFanOutHub
		label.RiskLevel = entity.LabelFanOutHub.DefaultRiskLevel()
		label.Reasons = append(label.Reasons,
			fmt.Sprintf("fanned out to %d recipients within one window", recipients))
	case a.total.GreaterThan(l.thresholds.Whale):
		label.Label = entity.LabelWhale
		label.RiskLevel = entity.LabelWhale.DefaultRiskLevel()
		label.Reasons = append(label.Reasons,
			fmt.Sprintf("sent %s over %d transfer(s)", a.total.String(), a.count))
	case a.total.LessThan(l.thresholds.Shrimp):
		label.Label = entity.LabelShrimp
		label.RiskLevel = entity.LabelShrimp.DefaultRiskLevel()
		label.Reasons = append(label.Reasons,
			fmt.Sprintf("sent %s over %d transfer(s)", a.total.String(), a.count))
	default:
		label.Label = entity.LabelUser
		label.RiskLevel = entity.LabelUser.DefaultRiskLevel()
	}

	label.Category = label.Label.Category()
	return label
}
