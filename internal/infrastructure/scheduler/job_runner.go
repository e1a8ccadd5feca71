package scheduler

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	appintegration "github.com/catalogsync/backend/internal/application/integration"
	"github.com/catalogsync/backend/internal/infrastructure/telemetry"
)

// BatchRunner runs one bounded batch of the catalog
type BatchRunner interface {
	RunBatch(ctx context.Context, req appintegration.BatchRequest) (*appintegration.BatchResult, error)
}

// JobRunnerConfig holds configuration for catalog runs
type JobRunnerConfig struct {
	// RunInterval triggers a full run periodically; 0 disables the loop
	RunInterval time.Duration
	// MaxBatches bounds one run; 0 means until the catalog is exhausted
	MaxBatches int
	// JobTimeout bounds one run; 0 means no timeout
	JobTimeout time.Duration
	// HistorySize is the number of finished jobs kept for inspection
	HistorySize int
}

// DefaultJobRunnerConfig returns default configuration
func DefaultJobRunnerConfig() JobRunnerConfig {
	return JobRunnerConfig{
		JobTimeout:  6 * time.Hour,
		HistorySize: 50,
	}
}

// Validate validates the configuration
func (c *JobRunnerConfig) Validate() error {
	if c.RunInterval < 0 || c.MaxBatches < 0 || c.JobTimeout < 0 || c.HistorySize < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// JobRunner drives RunBatch until the cursor is exhausted, one run at a time
type JobRunner struct {
	config  JobRunnerConfig
	batches BatchRunner
	logger  *zap.Logger
	now     func() time.Time

	busy atomic.Bool

	// jobMu guards the fields of current while a run mutates it
	jobMu   sync.RWMutex
	current *CatalogSyncJob

	// rootCtx parents launched runs; Stop cancels it
	rootCtx    context.Context
	rootCancel context.CancelFunc

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	historyMu sync.RWMutex
	history   []*CatalogSyncJob
}

// NewJobRunner creates a new job runner
func NewJobRunner(config JobRunnerConfig, batches BatchRunner, logger *zap.Logger) (*JobRunner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.HistorySize == 0 {
		config.HistorySize = DefaultJobRunnerConfig().HistorySize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	rootCtx, rootCancel := context.WithCancel(context.Background())
	return &JobRunner{
		config:     config,
		batches:    batches,
		logger:     logger,
		now:        time.Now,
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
		history:    make([]*CatalogSyncJob, 0, config.HistorySize),
	}, nil
}

// Trigger runs a job now and returns it once finished.
// ErrJobAlreadyRunning is returned while another run is in flight.
func (r *JobRunner) Trigger(ctx context.Context, req JobRequest) (*CatalogSyncJob, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return nil, ErrJobAlreadyRunning
	}
	defer r.busy.Store(false)

	job := NewCatalogSyncJob(req)
	r.setCurrent(job)
	err := r.run(ctx, job)
	return job, err
}

// Launch starts a run in the background and returns a snapshot of the
// pending job. The run outlives the caller's request; Stop cancels it.
func (r *JobRunner) Launch(req JobRequest) (*CatalogSyncJob, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return nil, ErrJobAlreadyRunning
	}

	job := NewCatalogSyncJob(req)
	r.setCurrent(job)
	snapshot := r.Current()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.busy.Store(false)
		_ = r.run(r.rootCtx, job)
	}()
	return snapshot, nil
}

// Current returns a copy of the in-flight or most recent job, nil before the first run
func (r *JobRunner) Current() *CatalogSyncJob {
	r.jobMu.RLock()
	defer r.jobMu.RUnlock()
	if r.current == nil {
		return nil
	}
	snapshot := *r.current
	snapshot.BatchIDs = slices.Clone(r.current.BatchIDs)
	return &snapshot
}

func (r *JobRunner) setCurrent(job *CatalogSyncJob) {
	r.jobMu.Lock()
	r.current = job
	r.jobMu.Unlock()
}

// update applies a mutation to a job that Current may be reading
func (r *JobRunner) update(mutate func()) {
	r.jobMu.Lock()
	defer r.jobMu.Unlock()
	mutate()
}

// run walks the catalog batch by batch, stopping on the first batch-fatal error
func (r *JobRunner) run(ctx context.Context, job *CatalogSyncJob) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "catalog_sync_job", "run",
		telemetry.WithAttribute(telemetry.SpanAttrCursor, job.Request.Cursor),
		telemetry.WithSpanKind(trace.SpanKindInternal),
	)
	defer span.End()

	if r.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.JobTimeout)
		defer cancel()
	}

	r.update(func() { job.Start(r.now()) })
	log := r.logger.With(zap.String("job_id", job.ID.String()))
	log.Info("Catalog sync job started", zap.String("cursor", job.Request.Cursor))

	cursor := job.Request.Cursor
	for {
		if r.config.MaxBatches > 0 && job.Batches >= r.config.MaxBatches {
			r.update(func() { job.NextCursor = &cursor })
			log.Info("Catalog sync job reached batch limit", zap.Int("max_batches", r.config.MaxBatches))
			break
		}

		result, err := r.batches.RunBatch(ctx, appintegration.BatchRequest{
			Cursor:    cursor,
			PageSize:  job.Request.PageSize,
			FilterTag: job.Request.FilterTag,
		})
		if err != nil {
			r.update(func() { job.Fail(err, cursor, r.now()) })
			telemetry.RecordError(span, err)
			r.finish(span, job)
			log.Error("Catalog sync job stopped",
				zap.Int("batches", job.Batches),
				zap.String("cursor", cursor),
				zap.Error(err),
			)
			return err
		}

		r.update(func() { job.AddBatch(result) })
		log.Debug("Catalog sync batch finished",
			zap.String("batch_id", result.BatchID),
			zap.Int("processed_count", result.ProcessedCount),
			zap.Int("failed_count", result.FailedCount),
			zap.Int("skipped_count", result.SkippedCount),
		)
		if !result.HasMore() {
			break
		}
		cursor = *result.NextCursor
	}

	r.update(func() { job.Complete(r.now()) })
	telemetry.SetOK(span)
	r.finish(span, job)
	log.Info("Catalog sync job completed",
		zap.String("status", string(job.Status)),
		zap.String("summary", job.Summary()),
	)
	return nil
}

func (r *JobRunner) finish(span trace.Span, job *CatalogSyncJob) {
	telemetry.SetAttributes(span,
		telemetry.SpanAttrBatches, job.Batches,
		telemetry.SpanAttrProcessed, job.Processed,
		telemetry.SpanAttrFailed, job.Failed,
		telemetry.SpanAttrSkipped, job.Skipped,
	)
	r.addToHistory(job)
}

// Start launches the periodic loop when RunInterval is set
func (r *JobRunner) Start(ctx context.Context) error {
	if r.config.RunInterval <= 0 {
		r.logger.Info("Periodic catalog sync disabled")
		return nil
	}

	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = true
	ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	r.wg.Add(1)
	go r.loop(ctx)

	r.logger.Info("Catalog sync runner started",
		zap.Duration("run_interval", r.config.RunInterval),
		zap.Int("max_batches", r.config.MaxBatches),
	)
	return nil
}

// Stop cancels the loop and any launched run, then waits for them to return
func (r *JobRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.isRunning {
		r.isRunning = false
		r.cancel()
	}
	r.mu.Unlock()
	r.rootCancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("Catalog sync runner stopped gracefully")
		return nil
	case <-ctx.Done():
		r.logger.Warn("Catalog sync runner stop timed out")
		return ctx.Err()
	}
}

func (r *JobRunner) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Trigger(ctx, JobRequest{}); errors.Is(err, ErrJobAlreadyRunning) {
				r.logger.Debug("Skipping scheduled catalog sync, previous run still active")
			}
		}
	}
}

func (r *JobRunner) addToHistory(job *CatalogSyncJob) {
	r.historyMu.Lock()
	defer r.historyMu.Unlock()

	r.history = append([]*CatalogSyncJob{job}, r.history...)
	if len(r.history) > r.config.HistorySize {
		r.history = r.history[:r.config.HistorySize]
	}
}

// History returns finished jobs, newest first
func (r *JobRunner) History(limit int) []*CatalogSyncJob {
	r.historyMu.RLock()
	defer r.historyMu.RUnlock()

	if limit <= 0 || limit > len(r.history) {
		limit = len(r.history)
	}
	result := make([]*CatalogSyncJob, limit)
	copy(result, r.history[:limit])
	return result
}
