package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	appintegration "github.com/catalogsync/backend/internal/application/integration"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/scheduler"
	"github.com/catalogsync/backend/internal/interfaces/http/dto"
	"github.com/catalogsync/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Accepted sends a 202 for work continuing in the background
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.ErrorWithCode(c, dto.ErrCodeBadRequest, message)
}

// HandleError maps service errors to HTTP responses. Batch-fatal upstream
// failures keep their message so the operator sees the cause.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	code, message := classify(err)
	h.ErrorWithCode(c, code, message)
}

func classify(err error) (code, message string) {
	switch {
	case errors.Is(err, integration.ErrInvalidPageSize):
		return dto.ErrCodeInvalidPageSize, err.Error()
	case errors.Is(err, integration.ErrOutcomeInvalidSource),
		errors.Is(err, integration.ErrOutcomeInvalidFilter):
		return dto.ErrCodeBadRequest, err.Error()
	case errors.Is(err, integration.ErrOutcomeNotFound):
		return dto.ErrCodeNotFound, "Sync outcome not found"
	case errors.Is(err, appintegration.ErrReportNotFound):
		return dto.ErrCodeNotFound, "Batch report not found"
	case errors.Is(err, scheduler.ErrJobAlreadyRunning):
		return dto.ErrCodeJobRunning, "A catalog sync job is already running"
	case errors.Is(err, integration.ErrPlatformNotConfigured):
		return dto.ErrCodeNotConfigured, err.Error()
	case errors.Is(err, appintegration.ErrBatchInterrupted):
		return dto.ErrCodeInterrupted, err.Error()
	case errors.Is(err, integration.ErrUpstreamFetchFailure),
		errors.Is(err, integration.ErrReferenceDataMissing),
		errors.Is(err, integration.ErrPlatformUnavailable),
		errors.Is(err, integration.ErrPlatformRequestFailed),
		errors.Is(err, integration.ErrPlatformInvalidResponse),
		errors.Is(err, integration.ErrPlatformAuthFailed),
		errors.Is(err, integration.ErrPlatformRateLimited):
		return dto.ErrCodeUpstream, err.Error()
	default:
		return dto.ErrCodeInternal, "An unexpected error occurred"
	}
}

// queryInt parses an optional integer query parameter
func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// bindOptionalJSON binds a JSON body where every field is optional; an empty
// body leaves dst at its zero value
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
