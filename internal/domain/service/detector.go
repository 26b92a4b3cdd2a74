package service

import (
	"time"

	"chain-forensics/internal/domain/entity"
	"chain-forensics/internal/domain/graph"
	"chain-forensics/internal/infrastructure/logger"

	"github.com/shopspring/decimal"
)

// DetectorOption configures a SuspiciousBehaviorDetector
type DetectorOption func(*SuspiciousBehaviorDetector)

// WithEdgePolicy selects how repeated transfers collapse in the graph view.
func WithEdgePolicy(policy graph.EdgePolicy) DetectorOption {
	return func(d *SuspiciousBehaviorDetector) {
		d.policy = policy
	}
}

// WithSearchBudget caps the steps spent enumerating cycles per query. The
// default is no cap; zero or less disables it.
func WithSearchBudget(steps int) DetectorOption {
	return func(d *SuspiciousBehaviorDetector) {
		d.searchBudget = steps
	}
}

// SuspiciousBehaviorDetector owns the transfer ledger and its collapsed graph
// view and runs the pattern detectors over them.
//
// It does no locking. Callers that ingest and query from several goroutines
// must serialize access or query a Snapshot.
type SuspiciousBehaviorDetector struct {
	ledger       []entity.TransferRecord
	graph        *graph.TransactionGraph
	policy       graph.EdgePolicy
	searchBudget int
	logger       *logger.Logger
}

// NewSuspiciousBehaviorDetector creates an empty detector
func NewSuspiciousBehaviorDetector(log *logger.Logger, opts ...DetectorOption) *SuspiciousBehaviorDetector {
	if log == nil {
		log = logger.NewNop()
	}
	d := &SuspiciousBehaviorDetector{
		policy: graph.EdgePolicyLatest,
		logger: log.WithComponent("behavior-detector"),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.graph = graph.New(d.policy)
	return d
}

// AddTransaction appends a transfer to the ledger and upserts the
// sender -> receiver edge. Detector results are not recomputed.
func (d *SuspiciousBehaviorDetector) AddTransaction(sender, receiver string, amount decimal.Decimal, timestamp time.Time) error {
	rec, err := entity.NewTransferRecord(sender, receiver, amount, timestamp)
	if err != nil {
		return err
	}
	d.add(rec)
	return nil
}

// AddRecord ingests an already built record, validating it again.
func (d *SuspiciousBehaviorDetector) AddRecord(rec entity.TransferRecord) error {
	return d.AddTransaction(rec.Sender, rec.Receiver, rec.Amount, rec.Timestamp)
}

func (d *SuspiciousBehaviorDetector) add(rec entity.TransferRecord) {
	d.ledger = append(d.ledger, rec)
	d.graph.AddEdge(rec.Sender, rec.Receiver, rec.Amount, rec.Timestamp)
}

// Len returns the number of ledger records.
func (d *SuspiciousBehaviorDetector) Len() int {
	return len(d.ledger)
}

// Transactions returns a copy of the ledger in insertion order.
func (d *SuspiciousBehaviorDetector) Transactions() []entity.TransferRecord {
	return append([]entity.TransferRecord(nil), d.ledger...)
}

// Edge returns the collapsed graph edge between two addresses.
func (d *SuspiciousBehaviorDetector) Edge(from, to string) (entity.GraphEdge, bool) {
	return d.graph.Edge(from, to)
}

// Edges returns every collapsed graph edge.
func (d *SuspiciousBehaviorDetector) Edges() []entity.GraphEdge {
	return d.graph.Edges()
}

// Graph exposes the collapsed graph view. Callers must not mutate it.
func (d *SuspiciousBehaviorDetector) Graph() *graph.TransactionGraph {
	return d.graph
}

// EdgePolicy returns the collapse policy of the graph view.
func (d *SuspiciousBehaviorDetector) EdgePolicy() graph.EdgePolicy {
	return d.graph.Policy()
}

// Stats aggregates the ledger.
func (d *SuspiciousBehaviorDetector) Stats() entity.LedgerStats {
	stats := entity.LedgerStats{
		TransactionCount: len(d.ledger),
		AddressCount:     d.graph.NodeCount(),
		EdgeCount:        d.graph.EdgeCount(),
		TotalVolume:      decimal.Zero,
		AverageAmount:    decimal.Zero,
	}
	for i, tx := range d.ledger {
		stats.TotalVolume = stats.TotalVolume.Add(tx.Amount)
		if i == 0 || tx.Timestamp.Before(stats.FirstSeen) {
			stats.FirstSeen = tx.Timestamp
		}
		if i == 0 || tx.Timestamp.After(stats.LastSeen) {
			stats.LastSeen = tx.Timestamp
		}
	}
	if len(d.ledger) > 0 {
		stats.AverageAmount = stats.TotalVolume.Div(decimal.NewFromInt(int64(len(d.ledger))))
	}
	return stats
}

// Snapshot returns an independent copy for querying outside a lock.
func (d *SuspiciousBehaviorDetector) Snapshot() *SuspiciousBehaviorDetector {
	return &SuspiciousBehaviorDetector{
		ledger:       d.Transactions(),
		graph:        d.graph.Clone(),
		policy:       d.policy,
		searchBudget: d.searchBudget,
		logger:       d.logger,
	}
}

// Reset drops every record and starts a fresh graph.
func (d *SuspiciousBehaviorDetector) Reset() {
	d.ledger = nil
	d.graph = graph.New(d.policy)
}
