package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeWindowClosedInterval(t *testing.T) {
	w := TimeWindow{Start: ts, End: ts.Add(time.Hour)}

	assert.True(t, w.Contains(ts))
	assert.True(t, w.Contains(ts.Add(time.Hour)))
	assert.False(t, w.Contains(ts.Add(-time.Microsecond)))
	assert.False(t, w.Contains(ts.Add(time.Hour+time.Microsecond)))
}

func TestTimeWindowString(t *testing.T) {
	w := TimeWindow{Start: ts, End: ts.Add(time.Hour)}
	assert.Equal(t, "2025-03-01T12:00:00Z - 2025-03-01T13:00:00Z", w.String())
}

func TestCycleFindingContains(t *testing.T) {
	f := CycleFinding{Cycle: []string{"A", "B"}}
	assert.True(t, f.Contains("B"))
	assert.False(t, f.Contains("C"))
}
