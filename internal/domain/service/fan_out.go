package service

import (
	"sort"

	"chain-forensics/internal/domain/entity"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DetectFanOut reports, for every sender and every one of its transfers,
// the window [t, t+TimeWindow] starting at that transfer when it reaches
// MinRecipients distinct receivers. Overlapping windows of one sender are all
// reported. Findings are ranked by recipient count, highest first.
//
// Each window start scans forward through the rest of that sender's history,
// so the cost per sender is quadratic in its transfer count.
func (d *SuspiciousBehaviorDetector) DetectFanOut(params entity.FanOutParams) []entity.FanOutFinding {
	findings := []entity.FanOutFinding{}
	window := params.TimeWindow
	if window < 0 {
		window = 0
	}

	var senders []string
	activity := make(map[string][]entity.TransferRecord)
	for _, tx := range d.ledger {
		if tx.Amount.LessThan(params.MinAmount) {
			continue
		}
		if _, ok := activity[tx.Sender]; !ok {
			senders = append(senders, tx.Sender)
		}
		activity[tx.Sender] = append(activity[tx.Sender], tx)
	}

	for _, sender := range senders {
		txs := activity[sender]
		sort.SliceStable(txs, func(i, j int) bool {
			return txs[i].Timestamp.Before(txs[j].Timestamp)
		})

		for i := range txs {
			tw := entity.TimeWindow{
				Start: txs[i].Timestamp,
				End:   txs[i].Timestamp.Add(window),
			}

			seen := make(map[string]struct{})
			var recipients []string
			total := decimal.Zero
			count := 0
			for _, tx := range txs[i:] {
				if !tw.Contains(tx.Timestamp) {
					break
				}
				count++
				total = total.Add(tx.Amount)
				if _, ok := seen[tx.Receiver]; !ok {
					seen[tx.Receiver] = struct{}{}
					recipients = append(recipients, tx.Receiver)
				}
			}

			if len(recipients) < params.MinRecipients {
				continue
			}
			findings = append(findings, entity.FanOutFinding{
				Sender:           sender,
				Recipients:       recipients,
				RecipientCount:   len(recipients),
				TotalAmount:      total,
				TransactionCount: count,
				TimeWindow:       tw,
			})
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].RecipientCount > findings[j].RecipientCount
	})

	d.logger.Debug("Fan-out detection finished",
		zap.Int("senders", len(senders)),
		zap.Int("findings", len(findings)),
		zap.Duration("time_window", window))
	return findings
}
