package service

import (
	"errors"
	"sort"

	"chain-forensics/internal/domain/entity"
	"chain-forensics/internal/domain/graph"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DetectWashTrading finds simple cycles with minLen..maxLen nodes and ranks
// them by the summed weight of their edges, highest first. If a search budget
// is set and enumeration cannot finish within it the result is empty.
func (d *SuspiciousBehaviorDetector) DetectWashTrading(minLen, maxLen int) []entity.CycleFinding {
	findings := []entity.CycleFinding{}

	if minLen < 1 {
		minLen = 1
	}
	if maxLen < minLen {
		d.logger.Warn("Skipping wash trading detection",
			zap.Int("min_cycle_length", minLen),
			zap.Int("max_cycle_length", maxLen),
			zap.Error(graph.ErrInvalidCycleBounds))
		return findings
	}

	cycles, err := d.graph.SimpleCycles(maxLen, d.searchBudget)
	if err != nil {
		level := d.logger.Error
		if errors.Is(err, graph.ErrSearchBudgetExceeded) {
			level = d.logger.Warn
		}
		level("Cycle enumeration abandoned",
			zap.Int("nodes", d.graph.NodeCount()),
			zap.Int("edges", d.graph.EdgeCount()),
			zap.Int("max_cycle_length", maxLen),
			zap.Error(err))
		return findings
	}

	for _, cycle := range cycles {
		if len(cycle) < minLen || len(cycle) > maxLen {
			continue
		}
		findings = append(findings, entity.CycleFinding{
			Cycle:       cycle,
			Length:      len(cycle),
			TotalVolume: d.cycleVolume(cycle),
		})
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].TotalVolume.GreaterThan(findings[j].TotalVolume)
	})

	d.logger.Debug("Wash trading detection finished",
		zap.Int("cycles_enumerated", len(cycles)),
		zap.Int("cycles_retained", len(findings)))
	return findings
}

// cycleVolume sums the consecutive edges of a closed cycle. An edge missing
// from the graph contributes zero.
func (d *SuspiciousBehaviorDetector) cycleVolume(cycle []string) decimal.Decimal {
	total := decimal.Zero
	for i := range cycle {
		total = total.Add(d.graph.Weight(cycle[i], cycle[(i+1)%len(cycle)]))
	}
	return total
}
