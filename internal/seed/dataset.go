package seed

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"chain-forensics/internal/domain/entity"
)

// Planted addresses of the demo dataset
const (
	SuspectAddress  = "bbn1badguy9999999999999999999999999999999"
	LaunderAddress  = "bbn1launder00000000000000000000000000000a"
	HubAddress      = "bbn1mastermind99999999999999999999999999"
	SuspectMules    = 12
	BotArmySize     = 20
	NoiseTransfers  = 50
	defaultNetwork  = "bbn-test-5"
	defaultTxType   = "Transfer"
	fundingTxType   = "BTC_Stake"
	botActionTxType = "Governance_Vote"
)

var exitAddresses = []string{
	"bbn1exchangedeposit0000000000000000000001",
	"bbn1exchangedeposit0000000000000000000002",
	"bbn1exchangedeposit0000000000000000000003",
}

// Generator plants the crime scene and background noise
type Generator struct {
	r      *rand.Rand
	now    time.Time
	height int64
}

// NewGenerator returns a generator whose output is fixed by seed and now.
func NewGenerator(seed int64, now time.Time) *Generator {
	return &Generator{r: rand.New(rand.NewSource(seed)), now: now.UTC()}
}

// Dataset builds every planted pattern followed by the noise, in ingestion order.
func (g *Generator) Dataset() []*entity.TransferEvent {
	var events []*entity.TransferEvent
	events = append(events, g.FanOut()...)
	events = append(events, g.WashPair()...)
	events = append(events, g.BotArmy()...)
	events = append(events, g.Noise(NoiseTransfers)...)
	return events
}

// FanOut plants the suspect disbursing to 12 mules one minute apart.
func (g *Generator) FanOut() []*entity.TransferEvent {
	base := g.now.Add(-2 * time.Hour)
	events := make([]*entity.TransferEvent, 0, SuspectMules)
	for i := 0; i < SuspectMules; i++ {
		events = append(events, g.event(50000+int64(i), SuspectAddress, g.address("mule", i),
			5000, base.Add(time.Duration(i)*time.Minute), defaultTxType))
	}
	return events
}

// WashPair plants the suspect and the launderer swapping the same amount.
func (g *Generator) WashPair() []*entity.TransferEvent {
	base := g.now.Add(-time.Hour)
	return []*entity.TransferEvent{
		g.event(50100, SuspectAddress, LaunderAddress, 10000, base, defaultTxType),
		g.event(50101, LaunderAddress, SuspectAddress, 10000, base.Add(5*time.Minute), defaultTxType),
	}
}

// BotArmy plants the hub funding 20 bots ten seconds apart, then every bot
// casting three to five small transfers towards exchange deposit addresses.
func (g *Generator) BotArmy() []*entity.TransferEvent {
	bots := make([]string, BotArmySize)
	for i := range bots {
		bots[i] = g.address("bot", i)
	}

	var events []*entity.TransferEvent
	funding := g.now.Add(-time.Hour)
	for i, bot := range bots {
		events = append(events, g.event(60000+int64(i), HubAddress, bot,
			int64(1000+g.r.Intn(4001)), funding.Add(time.Duration(i)*10*time.Second), fundingTxType))
	}

	activity := g.now.Add(-30 * time.Minute)
	height := int64(60050)
	for _, bot := range bots {
		n := 3 + g.r.Intn(3)
		for j := 0; j < n; j++ {
			exit := exitAddresses[g.r.Intn(len(exitAddresses))]
			events = append(events, g.event(height, bot, exit,
				int64(10+g.r.Intn(41)), activity.Add(time.Duration(j)*time.Minute), botActionTxType))
			height++
		}
	}
	return events
}

// Noise adds n unrelated small transfers between fresh users.
func (g *Generator) Noise(n int) []*entity.TransferEvent {
	base := g.now.Add(-2 * time.Hour)
	events := make([]*entity.TransferEvent, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, g.event(int64(40000+g.r.Intn(9001)), g.address("user", i), g.address("peer", i),
			int64(1+g.r.Intn(100)), base.Add(-time.Duration(g.r.Intn(1001))*time.Minute), defaultTxType))
	}
	return events
}

func (g *Generator) address(kind string, i int) string {
	return fmt.Sprintf("bbn1%s%d%08x", kind, i, g.r.Uint32())
}

func (g *Generator) event(height int64, from, to string, amount int64, ts time.Time, txType string) *entity.TransferEvent {
	g.height++
	return &entity.TransferEvent{
		Hash:      hash(from, to, height, ts, amount, g.height),
		Height:    height,
		From:      from,
		To:        to,
		Amount:    strconv.FormatInt(amount, 10),
		Timestamp: ts,
		TxType:    txType,
		Network:   defaultNetwork,
	}
}

func hash(from, to string, height int64, ts time.Time, amount, seq int64) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%s|%d|%d|%d|%d", from, to, height, ts.UnixNano(), amount, seq)))
	return "0x" + hex.EncodeToString(sum[:])
}
