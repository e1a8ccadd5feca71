package integration

import (
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Item State Machine
// ---------------------------------------------------------------------------

// ItemState is the stage an item has reached in the per-item sub-pipeline
type ItemState string

const (
	ItemStateFetched         ItemState = "FETCHED"
	ItemStateSkipped         ItemState = "SKIPPED"
	ItemStateMatching        ItemState = "MATCHING"
	ItemStateImagesAssigned  ItemState = "IMAGES_ASSIGNED"
	ItemStateOrderCreated    ItemState = "ORDER_CREATED"
	ItemStateServicesLinked  ItemState = "SERVICES_LINKED"
	ItemStateMetadataWritten ItemState = "METADATA_WRITTEN"
	ItemStateSuccess         ItemState = "SUCCESS"
	ItemStateFailed          ItemState = "FAILED"
)

// String returns the string representation of ItemState
func (s ItemState) String() string {
	return string(s)
}

// IsValid returns true if the state is known
func (s ItemState) IsValid() bool {
	_, ok := itemTransitions[s]
	return ok
}

// IsTerminal returns true for SKIPPED, SUCCESS and FAILED
func (s ItemState) IsTerminal() bool {
	switch s {
	case ItemStateSkipped, ItemStateSuccess, ItemStateFailed:
		return true
	default:
		return false
	}
}

// canFail reports whether the state may transition directly to FAILED
func (s ItemState) canFail() bool {
	switch s {
	case ItemStateMatching, ItemStateImagesAssigned, ItemStateOrderCreated,
		ItemStateServicesLinked, ItemStateMetadataWritten:
		return true
	default:
		return false
	}
}

var itemTransitions = map[ItemState][]ItemState{
	ItemStateFetched:         {ItemStateSkipped, ItemStateMatching},
	ItemStateMatching:        {ItemStateImagesAssigned},
	ItemStateImagesAssigned:  {ItemStateOrderCreated},
	ItemStateOrderCreated:    {ItemStateServicesLinked},
	ItemStateServicesLinked:  {ItemStateMetadataWritten},
	ItemStateMetadataWritten: {ItemStateSuccess},
	ItemStateSkipped:         nil,
	ItemStateSuccess:         nil,
	ItemStateFailed:          nil,
}

// CanTransitionTo reports whether next is a legal successor of s
func (s ItemState) CanTransitionTo(next ItemState) bool {
	if next == ItemStateFailed {
		return s.canFail()
	}
	for _, allowed := range itemTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// ItemRun
// ---------------------------------------------------------------------------

// SkipReason explains why an item was not processed
type SkipReason string

const (
	// SkipReasonAlreadySynced means a stored outcome without error exists
	SkipReasonAlreadySynced SkipReason = "already_synced"
	// SkipReasonLocked means another invocation holds the item lock
	SkipReasonLocked SkipReason = "locked"
)

// ItemRun tracks one item's progress through the sub-pipeline
type ItemRun struct {
	SourceID   string
	Handle     string
	Title      string
	State      ItemState
	SkipReason SkipReason
	// OrderID is set once the destination accepted the order
	OrderID string
	// Failure is set when State is FAILED
	Failure *ItemFailure
	// Warnings collects tolerated errors (upload, link, writeback, persistence)
	Warnings  []string
	StartedAt time.Time
	EndedAt   time.Time
}

// NewItemRun starts a run for the product in FETCHED state
func NewItemRun(p *ProductRecord, now time.Time) *ItemRun {
	return &ItemRun{
		SourceID:  p.SourceID,
		Handle:    p.Handle,
		Title:     p.Title,
		State:     ItemStateFetched,
		StartedAt: now,
	}
}

// Advance moves the run to next, rejecting illegal transitions
func (r *ItemRun) Advance(next ItemState) error {
	if !r.State.CanTransitionTo(next) {
		return fmt.Errorf("integration: illegal item transition %s -> %s", r.State, next)
	}
	r.State = next
	return nil
}

// Skip marks the run as skipped
func (r *ItemRun) Skip(reason SkipReason, now time.Time) error {
	if err := r.Advance(ItemStateSkipped); err != nil {
		return err
	}
	r.SkipReason = reason
	r.EndedAt = now
	return nil
}

// Fail marks the run as failed with the given failure
func (r *ItemRun) Fail(failure *ItemFailure, now time.Time) error {
	if failure.Stage == "" {
		failure.Stage = r.State
	}
	if err := r.Advance(ItemStateFailed); err != nil {
		return err
	}
	r.Failure = failure
	r.EndedAt = now
	return nil
}

// Succeed marks the run as successful
func (r *ItemRun) Succeed(now time.Time) error {
	if err := r.Advance(ItemStateSuccess); err != nil {
		return err
	}
	r.EndedAt = now
	return nil
}

// Warn records a tolerated error
func (r *ItemRun) Warn(err error) {
	if err != nil {
		r.Warnings = append(r.Warnings, err.Error())
	}
}

// Reason returns the failure reason, or empty if the run did not fail
func (r *ItemRun) Reason() string {
	if r.Failure == nil {
		return ""
	}
	return r.Failure.Error()
}

// Duration returns the elapsed time of the run
func (r *ItemRun) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}
