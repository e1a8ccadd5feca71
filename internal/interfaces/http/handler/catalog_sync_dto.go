package handler

import (
	"time"

	"github.com/catalogsync/backend/internal/infrastructure/scheduler"
)

// RunBatchRequest is the body of POST /catalog-sync/batches
type RunBatchRequest struct {
	// Cursor resumes after a previous batch; empty starts at the newest item
	Cursor string `json:"cursor" binding:"max=1024"`
	// PageSize defaults to the configured size when omitted
	PageSize    int                 `json:"page_size" binding:"omitempty,max=250"`
	FilterTag   string              `json:"filter_tag" binding:"max=255"`
	Credentials *CredentialsRequest `json:"credentials"`
}

// CredentialsRequest overrides the configured platform credentials for one batch
type CredentialsRequest struct {
	ShopDomain        string `json:"shop_domain" binding:"omitempty,hostname"`
	AccessToken       string `json:"access_token"`
	DestinationAPIKey string `json:"destination_api_key"`
}

// StartJobRequest is the body of POST /catalog-sync/jobs
type StartJobRequest struct {
	Cursor    string `json:"cursor" binding:"max=1024"`
	PageSize  int    `json:"page_size" binding:"omitempty,min=1,max=250"`
	FilterTag string `json:"filter_tag" binding:"max=255"`
}

// JobResponse is the operator view of a catalog sync job
type JobResponse struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Cursor      string     `json:"cursor"`
	Batches     int        `json:"batches"`
	Processed   int        `json:"processed_count"`
	Failed      int        `json:"failed_count"`
	Skipped     int        `json:"skipped_count"`
	BatchIDs    []string   `json:"batch_ids"`
	NextCursor  *string    `json:"next_cursor"`
	Done        bool       `json:"done"`
	Summary     string     `json:"summary"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ToJobResponse converts a job to its DTO
func ToJobResponse(job *scheduler.CatalogSyncJob) JobResponse {
	batchIDs := job.BatchIDs
	if batchIDs == nil {
		batchIDs = []string{}
	}
	return JobResponse{
		ID:          job.ID.String(),
		Status:      string(job.Status),
		Cursor:      job.Request.Cursor,
		Batches:     job.Batches,
		Processed:   job.Processed,
		Failed:      job.Failed,
		Skipped:     job.Skipped,
		BatchIDs:    batchIDs,
		NextCursor:  job.NextCursor,
		Done:        job.Done(),
		Summary:     job.Summary(),
		Error:       job.Error,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
}
