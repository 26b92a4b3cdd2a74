package database

import (
	"context"
	"fmt"

	"chain-forensics/internal/domain/entity"
	"chain-forensics/internal/domain/repository"
	"chain-forensics/internal/infrastructure/logger"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

const neo4jBatchSize = 500

// Neo4JGraphRepository implements GraphRepository interface
type Neo4JGraphRepository struct {
	client *Neo4JClient
	logger *logger.Logger
}

// NewNeo4JGraphRepository creates a new Neo4J graph repository
func NewNeo4JGraphRepository(client *Neo4JClient, logger *logger.Logger) repository.GraphRepository {
	return &Neo4JGraphRepository{
		client: client,
		logger: logger.WithComponent("neo4j-graph-repo"),
	}
}

const syncEdgesQuery = `
	UNWIND $edges as edge
	MERGE (from:Wallet {address: edge.from})
	MERGE (to:Wallet {address: edge.to})
	MERGE (from)-[r:SENT_TO]->(to)
	SET r.weight = edge.weight,
		r.weight_value = edge.weight_value,
		r.timestamp = edge.timestamp
`

// SyncEdges merges wallets and one SENT_TO relationship per address pair
func (r *Neo4JGraphRepository) SyncEdges(ctx context.Context, edges []entity.GraphEdge) error {
	if len(edges) == 0 {
		return nil
	}

	if err := r.writeBatches(ctx, syncEdgesQuery, "edges", edgeParams(edges)); err != nil {
		return fmt.Errorf("failed to sync edges: %w", err)
	}

	r.logger.Debug("Synced graph edges", zap.Int("edges", len(edges)))
	return nil
}

const saveCyclesQuery = `
	UNWIND $cycles as cycle
	MERGE (c:WashCycle {id: cycle.id})
	SET c.run_id = cycle.run_id,
		c.length = cycle.length,
		c.total_volume = cycle.total_volume,
		c.total_volume_value = cycle.total_volume_value,
		c.path = cycle.path
	WITH c, cycle
	UNWIND cycle.members as member
	MERGE (w:Wallet {address: member.address})
	MERGE (w)-[m:MEMBER_OF]->(c)
	SET m.position = member.position
`

// SaveCycleFindings stores one WashCycle node per cycle
func (r *Neo4JGraphRepository) SaveCycleFindings(ctx context.Context, runID uuid.UUID, findings []entity.CycleFinding) error {
	if len(findings) == 0 {
		return nil
	}
	if err := r.writeBatches(ctx, saveCyclesQuery, "cycles", cycleParams(runID, findings)); err != nil {
		return fmt.Errorf("failed to save cycle findings: %w", err)
	}
	r.logger.Debug("Saved cycle findings", zap.String("run_id", runID.String()), zap.Int("cycles", len(findings)))
	return nil
}

const saveFanOutsQuery = `
	UNWIND $fan_outs as fo
	MERGE (f:FanOut {id: fo.id})
	SET f.run_id = fo.run_id,
		f.recipient_count = fo.recipient_count,
		f.total_amount = fo.total_amount,
		f.transaction_count = fo.transaction_count,
		f.window_start = fo.window_start,
		f.window_end = fo.window_end
	MERGE (s:Wallet {address: fo.sender})
	MERGE (s)-[:DISBURSED]->(f)
	WITH f, fo
	UNWIND fo.recipients as recipient
	MERGE (w:Wallet {address: recipient})
	MERGE (f)-[:PAID]->(w)
`

// SaveFanOutFindings stores one FanOut node per window, linked from the
// sender and to every recipient
func (r *Neo4JGraphRepository) SaveFanOutFindings(ctx context.Context, runID uuid.UUID, findings []entity.FanOutFinding) error {
	if len(findings) == 0 {
		return nil
	}
	if err := r.writeBatches(ctx, saveFanOutsQuery, "fan_outs", fanOutParams(runID, findings)); err != nil {
		return fmt.Errorf("failed to save fan-out findings: %w", err)
	}
	r.logger.Debug("Saved fan-out findings", zap.String("run_id", runID.String()), zap.Int("fan_outs", len(findings)))
	return nil
}

const saveLabelsQuery = `
	UNWIND $labels as label
	MERGE (w:Wallet {address: label.address})
	SET w.label = label.label,
		w.category = label.category,
		w.risk_level = label.risk_level,
		w.label_reasons = label.reasons,
		w.label_updated_at = label.updated_at
`

// SaveLabels sets label properties on wallet nodes
func (r *Neo4JGraphRepository) SaveLabels(ctx context.Context, labels []*entity.AddressLabel) error {
	if len(labels) == 0 {
		return nil
	}
	if err := r.writeBatches(ctx, saveLabelsQuery, "labels", labelParams(labels)); err != nil {
		return fmt.Errorf("failed to save labels: %w", err)
	}
	return nil
}

const pruneFindingsQuery = `
	MATCH (n)
	WHERE (n:WashCycle OR n:FanOut) AND n.run_id <> $run_id
	DETACH DELETE n
	RETURN count(n) as deleted
`

// PruneFindings deletes WashCycle and FanOut nodes of older runs
func (r *Neo4JGraphRepository) PruneFindings(ctx context.Context, keep uuid.UUID) (int64, error) {
	session := r.client.NewSession(ctx)
	defer session.Close(ctx)

	deleted, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, pruneFindingsQuery, map[string]any{"run_id": keepParam(keep)})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		n, _ := record.Get("deleted")
		count, _ := n.(int64)
		return count, nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune findings: %w", err)
	}

	count := deleted.(int64)
	r.logger.Debug("Pruned finding nodes", zap.String("kept_run_id", keep.String()), zap.Int64("deleted", count))
	return count, nil
}

// keepParam maps uuid.Nil to a run id no node carries.
func keepParam(keep uuid.UUID) string {
	if keep == uuid.Nil {
		return ""
	}
	return keep.String()
}

// writeBatches runs query once per batch of rows, bound to $key
func (r *Neo4JGraphRepository) writeBatches(ctx context.Context, query, key string, rows []map[string]any) error {
	for _, batch := range batches(rows, neo4jBatchSize) {
		if err := r.write(ctx, query, map[string]any{key: batch}); err != nil {
			return err
		}
	}
	return nil
}

func batches(rows []map[string]any, size int) [][]map[string]any {
	var out [][]map[string]any
	for start := 0; start < len(rows); start += size {
		out = append(out, rows[start:min(start+size, len(rows))])
	}
	return out
}

func (r *Neo4JGraphRepository) write(ctx context.Context, query string, params map[string]any) error {
	session := r.client.NewSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}

func edgeParams(edges []entity.GraphEdge) []map[string]any {
	params := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		params = append(params, map[string]any{
			"from":         e.From,
			"to":           e.To,
			"weight":       e.Weight.String(),
			"weight_value": e.Weight.InexactFloat64(),
			"timestamp":    e.Timestamp.UTC(),
		})
	}
	return params
}

func findingID(runID uuid.UUID, kind string, i int) string {
	return fmt.Sprintf("%s:%s:%d", runID, kind, i)
}

func cycleParams(runID uuid.UUID, findings []entity.CycleFinding) []map[string]any {
	params := make([]map[string]any, 0, len(findings))
	for i, f := range findings {
		members := make([]map[string]any, 0, len(f.Cycle))
		for pos, addr := range f.Cycle {
			members = append(members, map[string]any{"address": addr, "position": pos})
		}
		params = append(params, map[string]any{
			"id":                 findingID(runID, "cycle", i),
			"run_id":             runID.String(),
			"length":             f.Length,
			"total_volume":       f.TotalVolume.String(),
			"total_volume_value": f.TotalVolume.InexactFloat64(),
			"path":               f.Cycle,
			"members":            members,
		})
	}
	return params
}

func fanOutParams(runID uuid.UUID, findings []entity.FanOutFinding) []map[string]any {
	params := make([]map[string]any, 0, len(findings))
	for i, f := range findings {
		params = append(params, map[string]any{
			"id":                findingID(runID, "fanout", i),
			"run_id":            runID.String(),
			"sender":            f.Sender,
			"recipients":        f.Recipients,
			"recipient_count":   f.RecipientCount,
			"total_amount":      f.TotalAmount.String(),
			"transaction_count": f.TransactionCount,
			"window_start":      f.TimeWindow.Start.UTC(),
			"window_end":        f.TimeWindow.End.UTC(),
		})
	}
	return params
}

func labelParams(labels []*entity.AddressLabel) []map[string]any {
	params := make([]map[string]any, 0, len(labels))
	for _, l := range labels {
		reasons := l.Reasons
		if reasons == nil {
			reasons = []string{}
		}
		params = append(params, map[string]any{
			"address":    l.Address,
			"label":      string(l.Label),
			"category":   l.Category,
			"risk_level": string(l.RiskLevel),
			"reasons":    reasons,
			"updated_at": l.UpdatedAt.UTC(),
		})
	}
	return params
}
