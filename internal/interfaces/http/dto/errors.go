package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeInvalidPageSize = "ERR_VALIDATION_PAGE_SIZE"
)

// Resource error codes
const (
	ErrCodeNotFound = "ERR_NOT_FOUND"
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeJobRunning is returned when a catalog walk is already in progress
	ErrCodeJobRunning = "ERR_CONFLICT_JOB_RUNNING"
)

// Input error codes
const (
	ErrCodeBadRequest  = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Upstream error codes
const (
	// ErrCodeUpstream is a batch-fatal failure talking to the source or destination
	ErrCodeUpstream = "ERR_UPSTREAM"
	// ErrCodeNotConfigured means platform credentials are missing
	ErrCodeNotConfigured = "ERR_NOT_CONFIGURED"
	// ErrCodeInterrupted means the caller went away mid-batch
	ErrCodeInterrupted = "ERR_INTERRUPTED"
)

// Rate limiting error codes
const (
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeInvalidPageSize: http.StatusBadRequest,

	ErrCodeNotFound:   http.StatusNotFound,
	ErrCodeConflict:   http.StatusConflict,
	ErrCodeJobRunning: http.StatusConflict,

	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeInvalidJSON: http.StatusBadRequest,

	ErrCodeUpstream:      http.StatusBadGateway,
	ErrCodeNotConfigured: http.StatusServiceUnavailable,
	// 499 is the nginx convention for a client that closed the request
	ErrCodeInterrupted: 499,

	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
