package integration

import "errors"

// ---------------------------------------------------------------------------
// Catalog Sync Errors
// ---------------------------------------------------------------------------

var (
	// Batch-fatal errors
	ErrUpstreamFetchFailure = errors.New("integration: upstream fetch failed")
	ErrInvalidPageSize      = errors.New("integration: page size must be positive")

	// Item-fatal errors
	ErrReferenceDataMissing = errors.New("integration: reference data missing")
	ErrNoUploadedImages     = errors.New("integration: no uploaded images")
	ErrOrderCreationFailure = errors.New("integration: order creation failed")

	// Tolerated errors
	ErrImageUploadFailure = errors.New("integration: image upload failed")
	ErrServiceLinkFailure = errors.New("integration: service link failed")
	ErrWritebackFailure   = errors.New("integration: metadata writeback failed")
	ErrPersistenceFailure = errors.New("integration: persistence failed")

	// Platform errors shared by adapters
	ErrPlatformNotConfigured   = errors.New("integration: platform not configured")
	ErrPlatformUnavailable     = errors.New("integration: platform temporarily unavailable")
	ErrPlatformRequestFailed   = errors.New("integration: platform request failed")
	ErrPlatformInvalidResponse = errors.New("integration: invalid platform response")
	ErrPlatformAuthFailed      = errors.New("integration: platform authentication failed")
	ErrPlatformRateLimited     = errors.New("integration: platform rate limited")

	// Outcome errors
	ErrOutcomeNotFound      = errors.New("integration: sync outcome not found")
	ErrOutcomeInvalidSource = errors.New("integration: invalid source id")
	ErrOutcomeInvalidFilter = errors.New("integration: invalid outcome filter")
)

// Failure reasons persisted as SyncOutcome.LastError
const (
	ReasonNoUploadedImages    = "no uploaded images"
	ReasonOrderCreationFailed = "Order creation failed"
	ReasonUnknown             = "Unknown sync error"
)

// CategoryNotFoundReason returns the persisted reason for an unresolved
// category name. The name is quoted verbatim, without escaping.
func CategoryNotFoundReason(name string) string {
	return "Category \"" + name + "\" not found"
}

// ItemFailure is an item-fatal error. Reason is the operator-facing text
// stored on the outcome; Err is the classified cause.
type ItemFailure struct {
	Stage  ItemState
	Reason string
	Err    error
}

// NewItemFailure creates an item failure for the given stage
func NewItemFailure(stage ItemState, reason string, cause error) *ItemFailure {
	return &ItemFailure{Stage: stage, Reason: reason, Err: cause}
}

// Error returns the failure reason
func (f *ItemFailure) Error() string {
	if f.Reason == "" {
		return ReasonUnknown
	}
	return f.Reason
}

// Unwrap exposes the classified cause to errors.Is
func (f *ItemFailure) Unwrap() error {
	return f.Err
}
