package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	appintegration "github.com/catalogsync/backend/internal/application/integration"
)

// JobStatus represents the status of a catalog sync job
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSuccess   JobStatus = "SUCCESS"
	JobStatusPartial   JobStatus = "PARTIAL"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

// JobRequest describes where a catalog run starts and how it pages
type JobRequest struct {
	Cursor    string
	PageSize  int
	FilterTag string
}

// CatalogSyncJob is one operator-style run over the catalog: batches are
// requested until the source reports no next cursor.
type CatalogSyncJob struct {
	ID          uuid.UUID
	Request     JobRequest
	Status      JobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time

	Batches   int
	Processed int
	Failed    int
	Skipped   int
	BatchIDs  []string
	// NextCursor is where a follow-up run resumes; nil once the catalog is exhausted
	NextCursor *string
}

// NewCatalogSyncJob creates a pending job
func NewCatalogSyncJob(req JobRequest) *CatalogSyncJob {
	return &CatalogSyncJob{
		ID:      uuid.New(),
		Request: req,
		Status:  JobStatusPending,
	}
}

// Start marks the job as running
func (j *CatalogSyncJob) Start(now time.Time) {
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// AddBatch accumulates the counts of a finished batch
func (j *CatalogSyncJob) AddBatch(result *appintegration.BatchResult) {
	j.Batches++
	j.Processed += result.ProcessedCount
	j.Failed += result.FailedCount
	j.Skipped += result.SkippedCount
	j.BatchIDs = append(j.BatchIDs, result.BatchID)
	j.NextCursor = result.NextCursor
}

// Complete marks the job as finished. Item failures make it partial.
func (j *CatalogSyncJob) Complete(now time.Time) {
	j.CompletedAt = &now
	if j.Failed == 0 {
		j.Status = JobStatusSuccess
	} else {
		j.Status = JobStatusPartial
	}
}

// Fail stops the job on a batch-fatal error. cursor is the batch that did not run.
func (j *CatalogSyncJob) Fail(err error, cursor string, now time.Time) {
	j.CompletedAt = &now
	j.Error = err.Error()
	j.NextCursor = &cursor
	if errors.Is(err, context.Canceled) {
		j.Status = JobStatusCancelled
		return
	}
	j.Status = JobStatusFailed
}

// Done reports whether the whole catalog was walked
func (j *CatalogSyncJob) Done() bool {
	return (j.Status == JobStatusSuccess || j.Status == JobStatusPartial) && j.NextCursor == nil
}

// Summary is the one-line operator message for the run
func (j *CatalogSyncJob) Summary() string {
	if j.Error != "" {
		return fmt.Sprintf("Stopped after %d batches: %s", j.Batches, j.Error)
	}
	return fmt.Sprintf("Processed %d items (%d failed, %d skipped) in %d batches",
		j.Processed, j.Failed, j.Skipped, j.Batches)
}
