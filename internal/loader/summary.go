package loader

import (
	"time"

	"github.com/google/uuid"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// Summary describes what a run did. It is returned even when the run fails.
type Summary struct {
	RunID uuid.UUID
	Table string

	// TotalRecords excludes the header line.
	TotalRecords int64

	// ExistingRows is the destination row count found at startup (-1 if unknown).
	ExistingRows int64
	Decision     pgload.ResumeDecision

	StartBatch       int64
	TotalBatches     int64
	BatchesCommitted int64
	RowsCommitted    int64

	// Retries counts transient failures absorbed by the executor.
	Retries int

	// Resubmissions counts failed windows submitted again under FailureRetry.
	Resubmissions int

	// FailedBatch is the index of the batch that ended the run, or -1.
	FailedBatch int64

	// Interrupted is set when cancellation stopped the loop.
	Interrupted bool

	Elapsed time.Duration
}

// Complete reports whether every planned batch is in the destination.
func (s Summary) Complete() bool {
	return s.FailedBatch < 0 && !s.Interrupted && s.StartBatch+s.BatchesCommitted >= s.TotalBatches
}
