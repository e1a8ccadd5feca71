package handler

import (
	"context"
	"slices"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appintegration "github.com/catalogsync/backend/internal/application/integration"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/logger"
	"github.com/catalogsync/backend/internal/infrastructure/scheduler"
	"github.com/catalogsync/backend/internal/interfaces/http/dto"
	"github.com/catalogsync/backend/internal/interfaces/http/middleware"
	"github.com/catalogsync/backend/internal/interfaces/http/router"
)

// BatchService runs one bounded batch
type BatchService interface {
	RunBatch(ctx context.Context, req appintegration.BatchRequest) (*appintegration.BatchResult, error)
}

// OutcomeQueries reads and resets stored outcomes
type OutcomeQueries interface {
	Get(ctx context.Context, sourceID string) (*appintegration.OutcomeResponse, error)
	List(ctx context.Context, query appintegration.ListOutcomesQuery) (*appintegration.OutcomeListResult, error)
	Reset(ctx context.Context, sourceID string) error
}

// ReportReader loads archived batch reports
type ReportReader interface {
	Load(ctx context.Context, batchID string) (*appintegration.BatchResult, error)
}

// JobLauncher runs whole-catalog jobs in the background
type JobLauncher interface {
	Launch(req scheduler.JobRequest) (*scheduler.CatalogSyncJob, error)
	Current() *scheduler.CatalogSyncJob
	History(limit int) []*scheduler.CatalogSyncJob
}

// CatalogSyncHandler exposes the driving surface of the catalog sync
type CatalogSyncHandler struct {
	BaseHandler
	batches  BatchService
	outcomes OutcomeQueries
	reports  ReportReader
	jobs     JobLauncher
	logger   *zap.Logger
	// batchGuard wraps the expensive trigger endpoints (rate limiting)
	batchGuard []gin.HandlerFunc
}

// CatalogSyncHandlerOption configures a CatalogSyncHandler
type CatalogSyncHandlerOption func(*CatalogSyncHandler)

// WithJobLauncher enables the /jobs endpoints
func WithJobLauncher(jobs JobLauncher) CatalogSyncHandlerOption {
	return func(h *CatalogSyncHandler) { h.jobs = jobs }
}

// WithTriggerMiddleware adds middleware in front of POST /batches and POST /jobs
func WithTriggerMiddleware(mw ...gin.HandlerFunc) CatalogSyncHandlerOption {
	return func(h *CatalogSyncHandler) { h.batchGuard = append(h.batchGuard, mw...) }
}

// WithHandlerLogger sets the fallback logger used outside logger.GinMiddleware
func WithHandlerLogger(l *zap.Logger) CatalogSyncHandlerOption {
	return func(h *CatalogSyncHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewCatalogSyncHandler creates a new CatalogSyncHandler
func NewCatalogSyncHandler(batches BatchService, outcomes OutcomeQueries, reports ReportReader, opts ...CatalogSyncHandlerOption) *CatalogSyncHandler {
	h := &CatalogSyncHandler{
		batches:  batches,
		outcomes: outcomes,
		reports:  reports,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the catalog sync route group
func (h *CatalogSyncHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("catalog-sync", "/catalog-sync")

	g.POST("/batches", h.guarded(h.RunBatch)...)
	g.GET("/batches/:batchId", h.GetBatchReport)

	g.GET("/outcomes", h.ListOutcomes)
	g.GET("/outcomes/:sourceId", h.GetOutcome)
	g.DELETE("/outcomes/:sourceId", h.ResetOutcome)

	if h.jobs != nil {
		g.POST("/jobs", h.guarded(h.StartJob)...)
		g.GET("/jobs/current", h.CurrentJob)
		g.GET("/jobs", h.ListJobs)
	}
	return g
}

func (h *CatalogSyncHandler) guarded(fn gin.HandlerFunc) []gin.HandlerFunc {
	return append(slices.Clone(h.batchGuard), fn)
}

// RegisterRoutes implements router.RouteRegistrar
func (h *CatalogSyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	h.Routes().RegisterRoutes(rg)
}

// log prefers the request-scoped logger installed by logger.GinMiddleware
func (h *CatalogSyncHandler) log(c *gin.Context) *zap.Logger {
	ctx := c.Request.Context()
	if ctx.Value(logger.LoggerKey) != nil {
		return logger.WithTraceContext(ctx, logger.FromContext(ctx))
	}
	return logger.WithTraceContext(ctx, h.logger)
}

// RunBatch processes one page of the catalog and returns its per-item results.
// The caller repeats with next_cursor until it is null.
func (h *CatalogSyncHandler) RunBatch(c *gin.Context) {
	var req RunBatchRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	batchReq := appintegration.BatchRequest{
		Cursor:    req.Cursor,
		PageSize:  req.PageSize,
		FilterTag: req.FilterTag,
		BatchID:   middleware.GetRequestID(c),
	}
	if req.Credentials != nil {
		batchReq.Credentials = integration.Credentials{
			ShopDomain:        req.Credentials.ShopDomain,
			AccessToken:       req.Credentials.AccessToken,
			DestinationAPIKey: req.Credentials.DestinationAPIKey,
		}
	}

	result, err := h.batches.RunBatch(c.Request.Context(), batchReq)
	if err != nil {
		h.log(c).Warn("catalog batch rejected", zap.String("cursor", req.Cursor), zap.Error(err))
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GetBatchReport returns an archived batch result
func (h *CatalogSyncHandler) GetBatchReport(c *gin.Context) {
	result, err := h.reports.Load(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListOutcomes returns a page of stored outcomes, by title unless sort_by is set
func (h *CatalogSyncHandler) ListOutcomes(c *gin.Context) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		h.BadRequest(c, "page must be an integer")
		return
	}
	pageSize, err := queryInt(c, "page_size", 0)
	if err != nil {
		h.BadRequest(c, "page_size must be an integer")
		return
	}

	result, err := h.outcomes.List(c.Request.Context(), appintegration.ListOutcomesQuery{
		Status:    c.Query("status"),
		Search:    c.Query("search"),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// GetOutcome returns the stored outcome of one source item
func (h *CatalogSyncHandler) GetOutcome(c *gin.Context) {
	outcome, err := h.outcomes.Get(c.Request.Context(), c.Param("sourceId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, outcome)
}

// ResetOutcome deletes an outcome so the next batch attempts the item again
func (h *CatalogSyncHandler) ResetOutcome(c *gin.Context) {
	if err := h.outcomes.Reset(c.Request.Context(), c.Param("sourceId")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// StartJob launches a whole-catalog run in the background
func (h *CatalogSyncHandler) StartJob(c *gin.Context) {
	var req StartJobRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	job, err := h.jobs.Launch(scheduler.JobRequest{
		Cursor:    req.Cursor,
		PageSize:  req.PageSize,
		FilterTag: req.FilterTag,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.log(c).Info("catalog sync job launched", zap.String("job_id", job.ID.String()))
	h.Accepted(c, ToJobResponse(job))
}

// CurrentJob returns the in-flight or most recent job
func (h *CatalogSyncHandler) CurrentJob(c *gin.Context) {
	job := h.jobs.Current()
	if job == nil {
		h.ErrorWithCode(c, dto.ErrCodeNotFound, "No catalog sync job has run yet")
		return
	}
	h.Success(c, ToJobResponse(job))
}

// ListJobs returns finished jobs, newest first
func (h *CatalogSyncHandler) ListJobs(c *gin.Context) {
	limit, err := queryInt(c, "limit", 20)
	if err != nil || limit < 0 {
		h.BadRequest(c, "limit must be a non-negative integer")
		return
	}

	history := h.jobs.History(limit)
	jobs := make([]JobResponse, len(history))
	for i, job := range history {
		jobs[i] = ToJobResponse(job)
	}
	h.Success(c, jobs)
}
