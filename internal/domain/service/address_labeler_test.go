package service

import (
	"testing"
	"time"

	"chain-forensics/internal/domain/entity"
	"chain-forensics/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func record(from, to string, amount int64) entity.TransferRecord {
	return entity.TransferRecord{Sender: from, Receiver: to, Amount: amt(amount), Timestamp: t0}
}

func newTestLabeler(t *testing.T) *AddressLabeler {
	l := NewAddressLabeler(DefaultLabelThresholds(), logger.Wrap(zaptest.NewLogger(t)))
	l.now = func() time.Time { return t0 }
	return l
}

func byAddress(labels []*entity.AddressLabel) map[string]*entity.AddressLabel {
	out := make(map[string]*entity.AddressLabel, len(labels))
	for _, l := range labels {
		out[l.Address] = l
	}
	return out
}

func TestLabelVolumeThresholds(t *testing.T) {
	ledger := []entity.TransferRecord{
		record("shrimp", "x", 9),
		record("user", "x", 10),
		record("user", "x", 3990),
		record("whale", "x", 4000),
		record("whale", "x", 1),
	}

	labels := byAddress(newTestLabeler(t).Label(ledger, nil, nil))
	require.Len(t, labels, 3)

	assert.Equal(t, entity.LabelShrimp, labels["shrimp"].Label)
	assert.Equal(t, entity.RiskLevelLow, labels["shrimp"].RiskLevel)
	assert.Equal(t, entity.CategoryVolume, labels["shrimp"].Category)

	// Exactly 4000 is not above the whale threshold.
	assert.Equal(t, entity.LabelUser, labels["user"].Label)

	assert.Equal(t, entity.LabelWhale, labels["whale"].Label)
	assert.Equal(t, entity.RiskLevelMedium, labels["whale"].RiskLevel)
	assert.Equal(t, t0, labels["whale"].UpdatedAt)

	_, receiverLabeled := labels["x"]
	assert.False(t, receiverLabeled)
}

func TestLabelPatterns(t *testing.T) {
	ledger := []entity.TransferRecord{
		record("user", "x", 100),
		record("A", "B", 10),
		record("B", "A", 5),
		record("hub", "r1", 10000),
	}
	cycles := []entity.CycleFinding{{Cycle: []string{"A", "B"}, Length: 2, TotalVolume: amt(15)}}
	fanOuts := []entity.FanOutFinding{{Sender: "hub", RecipientCount: 12}}

	labels := newTestLabeler(t).Label(ledger, cycles, fanOuts)
	require.Len(t, labels, 4)

	// High risk first, ties in sender order.
	assert.Equal(t, "A", labels[0].Address)
	assert.Equal(t, "B", labels[1].Address)
	assert.Equal(t, "hub", labels[2].Address)
	assert.Equal(t, "user", labels[3].Address)

	assert.Equal(t, entity.LabelWashTrader, labels[0].Label)
	assert.Equal(t, entity.RiskLevelHigh, labels[0].RiskLevel)
	assert.Equal(t, entity.CategoryPattern, labels[0].Category)
	require.Len(t, labels[0].Reasons, 1)
	assert.Contains(t, labels[0].Reasons[0], "moving 15")

	// A fan-out hub is never downgraded to whale.
	assert.Equal(t, entity.LabelFanOutHub, labels[2].Label)
	assert.Equal(t, entity.RiskLevelHigh, labels[2].RiskLevel)
}

func TestLabelCriticalEscalation(t *testing.T) {
	ledger := []entity.TransferRecord{
		record("A", "B", 1),
		record("B", "A", 1),
		record("C", "A", 1),
	}
	cycles := []entity.CycleFinding{
		{Cycle: []string{"A", "B"}},
		{Cycle: []string{"A", "C"}},
		{Cycle: []string{"A", "B", "C"}},
	}
	fanOuts := []entity.FanOutFinding{{Sender: "B", RecipientCount: 10}}

	labels := byAddress(newTestLabeler(t).Label(ledger, cycles, fanOuts))

	assert.Equal(t, entity.RiskLevelCritical, labels["A"].RiskLevel)
	assert.Equal(t, entity.RiskLevelCritical, labels["B"].RiskLevel)
	assert.Len(t, labels["B"].Reasons, 2)
	assert.Equal(t, entity.RiskLevelHigh, labels["C"].RiskLevel)
}

func TestLabelEmptyLedger(t *testing.T) {
	labels := NewAddressLabeler(DefaultLabelThresholds(), nil).Label(nil, nil, nil)
	require.NotNil(t, labels)
	assert.Empty(t, labels)
}
