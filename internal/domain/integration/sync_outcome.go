package integration

import (
	"strings"
	"time"
)

// UnsetOrderID is the destination order id persisted on failed attempts
const UnsetOrderID = "0"

// ---------------------------------------------------------------------------
// SyncOutcome
// ---------------------------------------------------------------------------

// SyncOutcome is the durable record of the last synchronization attempt
// for a source item. There is exactly one per SourceID.
type SyncOutcome struct {
	SourceID string
	Handle   string
	Title    string
	// DestinationOrderID is UnsetOrderID on failure
	DestinationOrderID string
	// LastError nil is the sole success marker
	LastError     *string
	LastAttemptAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewSuccessfulOutcome records a successful attempt
func NewSuccessfulOutcome(p *ProductRecord, orderID string, at time.Time) *SyncOutcome {
	return &SyncOutcome{
		SourceID:           p.SourceID,
		Handle:             p.Handle,
		Title:              p.Title,
		DestinationOrderID: orderID,
		LastAttemptAt:      at,
	}
}

// NewFailedOutcome records a failed attempt with its reason
func NewFailedOutcome(p *ProductRecord, reason string, at time.Time) *SyncOutcome {
	if reason == "" {
		reason = ReasonUnknown
	}
	return &SyncOutcome{
		SourceID:           p.SourceID,
		Handle:             p.Handle,
		Title:              p.Title,
		DestinationOrderID: UnsetOrderID,
		LastError:          &reason,
		LastAttemptAt:      at,
	}
}

// IsSuccessful returns true if the attempt recorded no error
func (o *SyncOutcome) IsSuccessful() bool {
	return o != nil && o.LastError == nil
}

// ErrorMessage returns the recorded error or empty string
func (o *SyncOutcome) ErrorMessage() string {
	if o == nil || o.LastError == nil {
		return ""
	}
	return *o.LastError
}

// Validate checks the identifying fields
func (o *SyncOutcome) Validate() error {
	if strings.TrimSpace(o.SourceID) == "" {
		return ErrOutcomeInvalidSource
	}
	return nil
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// OutcomeStatus filters outcomes by result
type OutcomeStatus string

const (
	OutcomeStatusAll     OutcomeStatus = ""
	OutcomeStatusSuccess OutcomeStatus = "success"
	OutcomeStatusFailed  OutcomeStatus = "failed"
)

// IsValid returns true if the status filter is known
func (s OutcomeStatus) IsValid() bool {
	switch s {
	case OutcomeStatusAll, OutcomeStatusSuccess, OutcomeStatusFailed:
		return true
	default:
		return false
	}
}

// OutcomeFilter selects outcomes for listing, ordered by title
type OutcomeFilter struct {
	Status   OutcomeStatus
	Search   string
	Page     int
	PageSize int
	// SortBy names a column; empty lists by title
	SortBy    string
	SortOrder string
}

// Normalize applies paging defaults
func (f *OutcomeFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
}

// Offset returns the row offset for the page
func (f OutcomeFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}
