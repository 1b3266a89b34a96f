// Package planner partitions a source into fixed-size batches and computes
// where an interrupted load resumes.
//
// Every function here is pure: no I/O, no clocks, no randomness.
package planner

import (
	"fmt"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// ComputeStartBatch returns the batch a load resumes at, given how many rows
// the destination already holds. A row count of zero or less means there is
// no prior progress (or it could not be determined) and the load starts at 0.
//
// When rowCount is not a multiple of batchSize the partially covered batch is
// loaded again from its first record. That batch's already committed rows are
// inserted a second time unless the destination rejects duplicates.
func ComputeStartBatch(rowCount, batchSize int64) int64 {
	if rowCount <= 0 || batchSize <= 0 {
		return 0
	}
	return rowCount / batchSize
}

// TotalBatches returns ceil(total / batchSize).
func TotalBatches(total, batchSize int64) int64 {
	if total <= 0 || batchSize <= 0 {
		return 0
	}
	return (total + batchSize - 1) / batchSize
}

// Window returns the half-open record range [start, end) covered by batch i.
func Window(i, total, batchSize int64) (start, end int64) {
	start = i * batchSize
	if start > total {
		start = total
	}
	end = start + batchSize
	if end > total {
		end = total
	}
	return start, end
}

// Span is the record range of one batch.
type Span struct {
	Index int64
	Start int64
	End   int64
}

// Len returns the number of records in the span.
func (s Span) Len() int64 {
	return s.End - s.Start
}

// Partition splits [0, total) into consecutive batches. The spans are disjoint
// and their union is the whole range.
func Partition(total, batchSize int64) []Span {
	n := TotalBatches(total, batchSize)
	spans := make([]Span, 0, n)
	for i := int64(0); i < n; i++ {
		start, end := Window(i, total, batchSize)
		spans = append(spans, Span{Index: i, Start: start, End: end})
	}
	return spans
}

// Plan is the batch layout of one run.
type Plan struct {
	Total        int64
	BatchSize    int64
	TotalBatches int64
	StartBatch   int64
}

// New builds the plan for a source of total records, resuming after rowCount
// destination rows. A destination holding total rows or more needs nothing.
func New(total, batchSize, rowCount int64) (Plan, error) {
	if batchSize <= 0 {
		return Plan{}, fmt.Errorf("batch size must be positive, got %d: %w", batchSize, pgload.ErrInvalidConfig)
	}
	if total < 0 {
		return Plan{}, fmt.Errorf("record count cannot be negative, got %d: %w", total, pgload.ErrInvalidConfig)
	}

	p := Plan{
		Total:        total,
		BatchSize:    batchSize,
		TotalBatches: TotalBatches(total, batchSize),
		StartBatch:   ComputeStartBatch(rowCount, batchSize),
	}
	// Every record is already in the destination, including a short last batch.
	if p.StartBatch > p.TotalBatches || rowCount >= total {
		p.StartBatch = p.TotalBatches
	}
	return p, nil
}

// ResumeLine is the first record offset the run reads.
func (p Plan) ResumeLine() int64 {
	start, _ := Window(p.StartBatch, p.Total, p.BatchSize)
	return start
}

// Remaining returns the spans still to load.
func (p Plan) Remaining() []Span {
	all := Partition(p.Total, p.BatchSize)
	return all[p.StartBatch:]
}

// Window returns the record range of batch i within this plan.
func (p Plan) Window(i int64) (start, end int64) {
	return Window(i, p.Total, p.BatchSize)
}

// IsComplete reports whether nothing is left to load.
func (p Plan) IsComplete() bool {
	return p.StartBatch >= p.TotalBatches
}
