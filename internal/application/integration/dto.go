package integration

import (
	"time"

	"github.com/catalogsync/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Batch DTOs
// ---------------------------------------------------------------------------

// BatchRequest asks for one bounded batch of the catalog
type BatchRequest struct {
	// Cursor resumes after the previous batch; empty starts from the beginning
	Cursor string
	// PageSize overrides the configured page size when positive
	PageSize int
	// FilterTag overrides the configured filter tag when set
	FilterTag string
	// Credentials override the configured shop and destination credentials
	Credentials integration.Credentials
	// BatchID correlates logs and reports; generated when empty
	BatchID string
}

// BatchResult summarizes one batch
type BatchResult struct {
	BatchID        string       `json:"batch_id"`
	ProcessedCount int          `json:"processed_count"`
	FailedCount    int          `json:"failed_count"`
	SkippedCount   int          `json:"skipped_count"`
	Items          []ItemResult `json:"per_item_results"`
	// NextCursor is nil at the end of the catalog
	NextCursor     *string   `json:"next_cursor"`
	ReportLocation string    `json:"report_location,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// HasMore returns true if the caller should invoke another batch
func (r *BatchResult) HasMore() bool {
	return r.NextCursor != nil
}

// ItemResult is the per-item detail of a batch
type ItemResult struct {
	SourceID   string   `json:"source_id"`
	Handle     string   `json:"handle"`
	Title      string   `json:"title"`
	Status     string   `json:"status"`
	SkipReason string   `json:"skip_reason,omitempty"`
	OrderID    string   `json:"order_id,omitempty"`
	FailedAt   string   `json:"failed_at,omitempty"`
	Error      string   `json:"error,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	DurationMs int64    `json:"duration_ms"`
}

// ToItemResult converts an item run to its DTO
func ToItemResult(run *integration.ItemRun) ItemResult {
	r := ItemResult{
		SourceID:   run.SourceID,
		Handle:     run.Handle,
		Title:      run.Title,
		Status:     string(run.State),
		SkipReason: string(run.SkipReason),
		OrderID:    run.OrderID,
		Error:      run.Reason(),
		Warnings:   run.Warnings,
		DurationMs: run.Duration().Milliseconds(),
	}
	if run.Failure != nil {
		r.FailedAt = string(run.Failure.Stage)
	}
	return r
}

// ---------------------------------------------------------------------------
// Outcome DTOs
// ---------------------------------------------------------------------------

// OutcomeResponse represents a stored sync outcome
type OutcomeResponse struct {
	SourceID           string    `json:"source_id"`
	Handle             string    `json:"handle"`
	Title              string    `json:"title"`
	DestinationOrderID string    `json:"destination_order_id"`
	LastError          *string   `json:"last_error"`
	Successful         bool      `json:"successful"`
	LastAttemptAt      time.Time `json:"last_attempt_at"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ToOutcomeResponse converts a domain outcome to its DTO
func ToOutcomeResponse(o *integration.SyncOutcome) OutcomeResponse {
	return OutcomeResponse{
		SourceID:           o.SourceID,
		Handle:             o.Handle,
		Title:              o.Title,
		DestinationOrderID: o.DestinationOrderID,
		LastError:          o.LastError,
		Successful:         o.IsSuccessful(),
		LastAttemptAt:      o.LastAttemptAt,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

// ListOutcomesQuery selects a page of outcomes
type ListOutcomesQuery struct {
	Status    string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// OutcomeListResult is one page of outcomes
type OutcomeListResult struct {
	Items    []OutcomeResponse `json:"items"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}
