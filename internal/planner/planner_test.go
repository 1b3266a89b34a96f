package planner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgload/pkg/pgload"
)

func TestComputeStartBatch(t *testing.T) {
	tests := []struct {
		name      string
		rowCount  int64
		batchSize int64
		want      int64
	}{
		{"empty destination", 0, 10, 0},
		{"unknown count", -1, 10, 0},
		{"exact multiple", 10, 10, 1},
		{"partial batch", 15, 10, 1},
		{"just below boundary", 9, 10, 0},
		{"large", 25_000, 10_000, 2},
		{"invalid batch size", 10, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeStartBatch(tt.rowCount, tt.batchSize))
		})
	}
}

func TestTotalBatches(t *testing.T) {
	assert.Equal(t, int64(0), TotalBatches(0, 10))
	assert.Equal(t, int64(1), TotalBatches(1, 10))
	assert.Equal(t, int64(1), TotalBatches(10, 10))
	assert.Equal(t, int64(3), TotalBatches(25, 10))
	assert.Equal(t, int64(25), TotalBatches(25, 1))
}

func TestPartition_CoversEveryRecordOnce(t *testing.T) {
	for _, tc := range []struct{ total, batch int64 }{
		{0, 10}, {1, 1}, {25, 10}, {30, 10}, {7, 3}, {100, 1000},
	} {
		spans := Partition(tc.total, tc.batch)
		seen := make([]int, tc.total)
		for i, s := range spans {
			require.Equal(t, int64(i), s.Index)
			require.LessOrEqual(t, s.Len(), tc.batch)
			require.Positive(t, s.Len())
			for r := s.Start; r < s.End; r++ {
				seen[r]++
			}
		}
		for r, n := range seen {
			assert.Equal(t, 1, n, "record %d of total=%d batch=%d", r, tc.total, tc.batch)
		}
	}
}

func TestWindow(t *testing.T) {
	start, end := Window(2, 25, 10)
	assert.Equal(t, int64(20), start)
	assert.Equal(t, int64(25), end)

	start, end = Window(5, 25, 10)
	assert.Equal(t, int64(25), start)
	assert.Equal(t, int64(25), end)
}

func TestNew(t *testing.T) {
	p, err := New(25, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.TotalBatches)
	assert.Equal(t, int64(1), p.StartBatch)
	assert.Equal(t, int64(10), p.ResumeLine())
	assert.False(t, p.IsComplete())

	remaining := p.Remaining()
	require.Len(t, remaining, 2)
	assert.Equal(t, Span{Index: 1, Start: 10, End: 20}, remaining[0])
	assert.Equal(t, Span{Index: 2, Start: 20, End: 25}, remaining[1])
}

func TestNew_DestinationAheadOfSource(t *testing.T) {
	p, err := New(25, 10, 40)
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.StartBatch)
	assert.True(t, p.IsComplete())
	assert.Empty(t, p.Remaining())
	assert.Equal(t, int64(25), p.ResumeLine())
}

func TestNew_DestinationHoldsShortLastBatch(t *testing.T) {
	// 25 = 2*10 + 5: the short last batch is committed, so nothing is reloaded.
	p, err := New(25, 10, 25)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ComputeStartBatch(25, 10))
	assert.Equal(t, int64(3), p.StartBatch)
	assert.True(t, p.IsComplete())
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(10, 0, 0)
	assert.True(t, errors.Is(err, pgload.ErrInvalidConfig))

	_, err = New(-1, 10, 0)
	assert.True(t, errors.Is(err, pgload.ErrInvalidConfig))
}
