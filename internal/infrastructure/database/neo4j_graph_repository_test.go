package database

import (
	"fmt"
	"testing"
	"time"

	"chain-forensics/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runID = uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")

func TestEdgeParams(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("ICT", 7*3600))
	params := edgeParams([]entity.GraphEdge{{
		From:      "A",
		To:        "B",
		Weight:    decimal.RequireFromString("10.25"),
		Timestamp: ts,
	}})

	require.Len(t, params, 1)
	assert.Equal(t, "A", params[0]["from"])
	assert.Equal(t, "10.25", params[0]["weight"])
	assert.InDelta(t, 10.25, params[0]["weight_value"], 1e-9)
	assert.Equal(t, time.UTC, params[0]["timestamp"].(time.Time).Location())
}

func TestCycleParamsPositions(t *testing.T) {
	params := cycleParams(runID, []entity.CycleFinding{
		{Cycle: []string{"A", "B", "C"}, Length: 3, TotalVolume: decimal.NewFromInt(30)},
		{Cycle: []string{"D", "E"}, Length: 2, TotalVolume: decimal.NewFromInt(5)},
	})

	require.Len(t, params, 2)
	assert.Equal(t, runID.String()+":cycle:0", params[0]["id"])
	assert.Equal(t, runID.String()+":cycle:1", params[1]["id"])

	members := params[0]["members"].([]map[string]any)
	require.Len(t, members, 3)
	for i, addr := range []string{"A", "B", "C"} {
		assert.Equal(t, addr, members[i]["address"])
		assert.Equal(t, i, members[i]["position"])
	}
	assert.Equal(t, "30", params[0]["total_volume"])
}

func TestFanOutParams(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	params := fanOutParams(runID, []entity.FanOutFinding{{
		Sender:           "hub",
		Recipients:       []string{"r1", "r2"},
		RecipientCount:   2,
		TotalAmount:      decimal.NewFromInt(200),
		TransactionCount: 3,
		TimeWindow:       entity.TimeWindow{Start: start, End: start.Add(time.Hour)},
	}})

	require.Len(t, params, 1)
	assert.Equal(t, "hub", params[0]["sender"])
	assert.Equal(t, []string{"r1", "r2"}, params[0]["recipients"])
	assert.Equal(t, "200", params[0]["total_amount"])
	assert.Equal(t, start.Add(time.Hour), params[0]["window_end"])
}

func TestLabelParamsNeverNilReasons(t *testing.T) {
	params := labelParams([]*entity.AddressLabel{{
		Address:   "A",
		Label:     entity.LabelUser,
		Category:  entity.CategoryVolume,
		RiskLevel: entity.RiskLevelLow,
	}})
	require.Len(t, params, 1)
	assert.Equal(t, []string{}, params[0]["reasons"])
	assert.Equal(t, "USER", params[0]["label"])
}

func TestKeepParam(t *testing.T) {
	assert.Equal(t, "", keepParam(uuid.Nil))
	assert.Equal(t, runID.String(), keepParam(runID))
}

func TestFindingBatchesKeepIDs(t *testing.T) {
	findings := make([]entity.CycleFinding, 2*neo4jBatchSize+1)
	for i := range findings {
		findings[i] = entity.CycleFinding{Cycle: []string{"A", "B"}, Length: 2, TotalVolume: decimal.NewFromInt(1)}
	}

	got := batches(cycleParams(runID, findings), neo4jBatchSize)
	require.Len(t, got, 3)
	assert.Len(t, got[0], neo4jBatchSize)
	assert.Len(t, got[1], neo4jBatchSize)
	require.Len(t, got[2], 1)
	assert.Equal(t, runID.String()+":cycle:0", got[0][0]["id"])
	assert.Equal(t, fmt.Sprintf("%s:cycle:%d", runID, 2*neo4jBatchSize), got[2][0]["id"])
}

func TestBatchesEmpty(t *testing.T) {
	assert.Empty(t, batches(nil, neo4jBatchSize))
}
