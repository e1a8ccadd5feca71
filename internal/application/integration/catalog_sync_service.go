package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/logger"
)

// ErrBatchInterrupted is returned when pacing is cut short by context cancellation
var ErrBatchInterrupted = errors.New("catalog sync: batch interrupted")

// CatalogSyncService runs bounded batches of the catalog sync pipeline.
// Each batch reads one source page, loads the destination taxonomy and
// drives every item through its stage sequence. Item failures are recorded
// as outcomes and never escape the batch.
type CatalogSyncService struct {
	sessions integration.SessionFactory
	outcomes integration.SyncOutcomeRepository
	pacer    integration.Pacer
	locker   integration.ItemLocker
	archiver ReportArchiver
	recorder SyncRecorder
	settings SyncSettings
	logger   *zap.Logger
	now      func() time.Time
}

// CatalogSyncOption configures a CatalogSyncService
type CatalogSyncOption func(*CatalogSyncService)

// WithItemLocker guards each item's stage sequence with a lock
func WithItemLocker(locker integration.ItemLocker) CatalogSyncOption {
	return func(s *CatalogSyncService) {
		s.locker = locker
	}
}

// WithReportArchiver stores every finished batch result
func WithReportArchiver(archiver ReportArchiver) CatalogSyncOption {
	return func(s *CatalogSyncService) {
		s.archiver = archiver
	}
}

// WithSyncRecorder sets the metrics recorder
func WithSyncRecorder(recorder SyncRecorder) CatalogSyncOption {
	return func(s *CatalogSyncService) {
		if recorder != nil {
			s.recorder = recorder
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) CatalogSyncOption {
	return func(s *CatalogSyncService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) CatalogSyncOption {
	return func(s *CatalogSyncService) {
		s.now = now
	}
}

// NewCatalogSyncService creates a new CatalogSyncService
func NewCatalogSyncService(
	sessions integration.SessionFactory,
	outcomes integration.SyncOutcomeRepository,
	pacer integration.Pacer,
	settings SyncSettings,
	opts ...CatalogSyncOption,
) *CatalogSyncService {
	settings.normalize()
	s := &CatalogSyncService{
		sessions: sessions,
		outcomes: outcomes,
		pacer:    pacer,
		recorder: noopRecorder{},
		settings: settings,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settings returns the effective settings
func (s *CatalogSyncService) Settings() SyncSettings {
	return s.settings
}

// batchScope carries the per-invocation collaborators of one batch
type batchScope struct {
	src      integration.Source
	dst      integration.Destination
	tax      *integration.Taxonomy
	pageSize int
	log      *zap.Logger
}

// RunBatch processes one page of the source catalog.
// Session, catalog and taxonomy failures are batch-fatal and returned as errors;
// the caller may retry with the same cursor.
func (s *CatalogSyncService) RunBatch(ctx context.Context, req BatchRequest) (result *BatchResult, err error) {
	started := s.now()
	batchID := req.BatchID
	if batchID == "" {
		batchID = uuid.NewString()
	}
	ctx, log := logger.WithBatchID(ctx, s.logger, batchID)
	defer func() {
		s.recorder.RecordBatch(ctx, result, err)
	}()

	pageReq := integration.PageRequest{
		Cursor:        req.Cursor,
		PageSize:      req.PageSize,
		FilterTag:     req.FilterTag,
		RequireImages: s.settings.RequireImages,
	}
	if pageReq.PageSize == 0 {
		pageReq.PageSize = s.settings.PageSize
	}
	if pageReq.FilterTag == "" {
		pageReq.FilterTag = s.settings.FilterTag
	}
	if err := pageReq.Validate(); err != nil {
		return nil, err
	}

	src, err := s.sessions.Source(req.Credentials)
	if err != nil {
		return nil, err
	}
	dst, err := s.sessions.Destination(req.Credentials)
	if err != nil {
		return nil, err
	}

	page, err := src.FetchPage(ctx, pageReq)
	if err != nil {
		if !errors.Is(err, integration.ErrUpstreamFetchFailure) {
			err = fmt.Errorf("%w: %w", integration.ErrUpstreamFetchFailure, err)
		}
		log.Error("catalog fetch failed", zap.String("cursor", req.Cursor), zap.Error(err))
		return nil, err
	}
	log.Info("catalog page fetched",
		zap.String("cursor", req.Cursor),
		zap.Int("items", len(page.Items)),
		zap.Bool("has_more", page.HasMore()),
	)

	result = &BatchResult{
		BatchID:   batchID,
		Items:     make([]ItemResult, 0, len(page.Items)),
		StartedAt: started,
	}
	if page.HasMore() {
		next := page.NextCursor
		result.NextCursor = &next
	}

	if len(page.Items) > 0 {
		tax, err := integration.LoadTaxonomy(ctx, dst)
		if err != nil {
			log.Error("taxonomy load failed", zap.Error(err))
			return nil, err
		}

		scope := &batchScope{src: src, dst: dst, tax: tax, pageSize: pageReq.PageSize, log: log}
		runs, err := s.processPage(ctx, scope, page.Items)
		if err != nil {
			log.Warn("batch interrupted", zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrBatchInterrupted, err)
		}
		for _, run := range runs {
			switch run.State {
			case integration.ItemStateSuccess:
				result.ProcessedCount++
			case integration.ItemStateFailed:
				result.FailedCount++
			case integration.ItemStateSkipped:
				result.SkippedCount++
			}
			result.Items = append(result.Items, ToItemResult(run))
		}
	}

	result.FinishedAt = s.now()
	s.archive(context.WithoutCancel(ctx), result, log)

	log.Info("catalog batch finished",
		zap.Int("processed", result.ProcessedCount),
		zap.Int("failed", result.FailedCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Duration("duration", result.FinishedAt.Sub(started)),
	)
	return result, nil
}

// processPage runs every item of the page. Results keep arrival order.
func (s *CatalogSyncService) processPage(ctx context.Context, scope *batchScope, items []integration.ProductRecord) ([]*integration.ItemRun, error) {
	runs := make([]*integration.ItemRun, len(items))

	if s.settings.Workers <= 1 {
		for i := range items {
			run, err := s.processItem(ctx, scope, &items[i])
			if err != nil {
				return nil, err
			}
			runs[i] = run
			if (i+1)%scope.pageSize == 0 {
				scope.log.Info("page cooldown", zap.Int("examined", i+1))
				if err := s.pacer.PageCooldown(ctx); err != nil {
					return nil, err
				}
			}
		}
		return runs, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.Workers)
	for i := range items {
		g.Go(func() error {
			run, err := s.processItem(gctx, scope, &items[i])
			if err != nil {
				return err
			}
			runs[i] = run
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(items) >= scope.pageSize {
		scope.log.Info("page cooldown", zap.Int("examined", len(items)))
		if err := s.pacer.PageCooldown(ctx); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// processItem drives one item to a terminal state. Cancellation of ctx is
// honoured only before the item starts and while pacing; once an item is
// under way its stages and outcome write run on a detached context. The
// returned error is non-nil only when the item was interrupted.
func (s *CatalogSyncService) processItem(ctx context.Context, scope *batchScope, p *integration.ProductRecord) (run *integration.ItemRun, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	itemCtx, log := logger.WithSourceID(context.WithoutCancel(ctx), scope.log, p.SourceID)
	log = log.With(zap.String("handle", p.Handle))

	run = integration.NewItemRun(p, s.now())
	defer func() {
		if err == nil {
			s.recorder.RecordItem(itemCtx, run)
		}
	}()

	if s.locker != nil && s.settings.LockEnabled {
		token, ok, lockErr := s.locker.Acquire(itemCtx, p.SourceID, s.settings.LockTTL)
		switch {
		case lockErr != nil:
			log.Warn("item lock unavailable, continuing unguarded", zap.Error(lockErr))
			run.Warn(lockErr)
		case !ok:
			log.Info("item locked by another run, skipping")
			return run, run.Skip(integration.SkipReasonLocked, s.now())
		default:
			defer func() {
				if err := s.locker.Release(itemCtx, p.SourceID, token); err != nil {
					log.Warn("failed to release item lock", zap.Error(err))
				}
			}()
		}
	}

	prior, findErr := s.outcomes.FindOne(itemCtx, p.SourceID)
	switch {
	case findErr == nil && prior.IsSuccessful():
		log.Debug("item already synced, skipping", zap.String("order_id", prior.DestinationOrderID))
		return run, run.Skip(integration.SkipReasonAlreadySynced, s.now())
	case findErr != nil && !errors.Is(findErr, integration.ErrOutcomeNotFound):
		log.Warn("outcome lookup failed, treating item as new", zap.Error(findErr))
		run.Warn(findErr)
	}

	if err := s.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	if stageErr := s.runStages(itemCtx, scope, p, run, log); stageErr != nil {
		log.Error("item pipeline aborted", zap.Error(stageErr))
		if !run.State.IsTerminal() {
			_ = run.Fail(integration.NewItemFailure(run.State, integration.ReasonUnknown, stageErr), s.now())
		}
	}

	switch run.State {
	case integration.ItemStateSuccess:
		log.Info("item synced", zap.String("order_id", run.OrderID), zap.Int("warnings", len(run.Warnings)))
	case integration.ItemStateFailed:
		log.Warn("item failed",
			zap.String("stage", string(run.Failure.Stage)),
			zap.String("reason", run.Reason()),
			zap.Error(run.Failure.Err),
		)
	}

	s.persist(itemCtx, p, run, log)
	return run, nil
}

// runStages walks MATCHING through SUCCESS. Item failures are recorded on
// run; the returned error reports an illegal transition.
func (s *CatalogSyncService) runStages(ctx context.Context, scope *batchScope, p *integration.ProductRecord, run *integration.ItemRun, log *zap.Logger) error {
	if err := run.Advance(integration.ItemStateMatching); err != nil {
		return err
	}

	md := integration.ParseItemMetadata(p.CustomFields, s.settings.MetadataPrefix)
	category, ok := scope.tax.FindCategory(md.Category)
	if !ok {
		return run.Fail(integration.NewItemFailure(run.State,
			integration.CategoryNotFoundReason(md.Category), integration.ErrReferenceDataMissing), s.now())
	}

	uploads := s.uploadImages(ctx, scope.dst, p, run, log)
	assigned := integration.MatchImageSlots(uploads, category.ImageSlots, s.settings.SlotPolicy)
	if len(assigned) == 0 {
		return run.Fail(integration.NewItemFailure(run.State,
			integration.ReasonNoUploadedImages, integration.ErrNoUploadedImages), s.now())
	}
	if err := run.Advance(integration.ItemStateImagesAssigned); err != nil {
		return err
	}

	defaults := s.settings.Defaults
	if domain := scope.src.ShopDomain(); domain != "" {
		defaults.ShopDomain = domain
	}
	order, err := scope.dst.CreateOrder(ctx, integration.BuildOrderDraft(p, md, category, assigned, defaults))
	if err != nil {
		return run.Fail(integration.NewItemFailure(run.State, integration.ReasonOrderCreationFailed, err), s.now())
	}
	run.OrderID = order.IDString()
	if err := run.Advance(integration.ItemStateOrderCreated); err != nil {
		return err
	}

	s.linkServices(ctx, scope, md, order, run, log)
	if err := run.Advance(integration.ItemStateServicesLinked); err != nil {
		return err
	}

	s.writeBack(ctx, scope.src, p, order, run, log)
	if err := run.Advance(integration.ItemStateMetadataWritten); err != nil {
		return err
	}

	return run.Succeed(s.now())
}

// uploadImages fans out one upload per tagged image and joins them.
// Individual failures become warnings.
func (s *CatalogSyncService) uploadImages(ctx context.Context, dst integration.ImageUploader, p *integration.ProductRecord, run *integration.ItemRun, log *zap.Logger) []integration.UploadedImage {
	images := p.TaggedImages()
	ids := make([]int64, len(images))
	errs := make([]error, len(images))

	var g errgroup.Group
	if s.settings.UploadConcurrency > 0 {
		g.SetLimit(s.settings.UploadConcurrency)
	}
	for i, img := range images {
		g.Go(func() error {
			ids[i], errs[i] = dst.UploadImage(ctx, img.URL)
			return nil
		})
	}
	_ = g.Wait()

	uploads := make([]integration.UploadedImage, 0, len(images))
	for i, img := range images {
		if errs[i] != nil {
			log.Warn("image upload failed", zap.String("url", img.URL), zap.Error(errs[i]))
			run.Warn(errs[i])
			continue
		}
		uploads = append(uploads, integration.UploadedImage{ImageID: ids[i], DescriptiveTag: img.DescriptiveTag})
	}
	return uploads
}

func (s *CatalogSyncService) linkServices(ctx context.Context, scope *batchScope, md integration.ItemMetadata, order *integration.OrderResult, run *integration.ItemRun, log *zap.Logger) {
	ids, unresolved := scope.tax.ResolveServiceIDs(md.Services)
	if len(unresolved) > 0 {
		log.Warn("unresolved service names", zap.Strings("services", unresolved))
		run.Warn(fmt.Errorf("%w: unknown services %s", integration.ErrReferenceDataMissing, strings.Join(unresolved, ", ")))
	}
	if len(ids) == 0 {
		return
	}
	if err := scope.dst.LinkServices(ctx, order.ID, ids); err != nil {
		log.Warn("service link failed", zap.Int64("order_id", order.ID), zap.Error(err))
		run.Warn(err)
	}
}

func (s *CatalogSyncService) writeBack(ctx context.Context, src integration.MetadataWriter, p *integration.ProductRecord, order *integration.OrderResult, run *integration.ItemRun, log *zap.Logger) {
	for _, field := range integration.WritebackFields(order, s.settings.MetadataPrefix, s.settings.DashboardURL) {
		if err := src.WriteField(ctx, p.SourceID, field.Key, field.Value); err != nil {
			log.Warn("metadata writeback failed", zap.String("key", field.Key), zap.Error(err))
			run.Warn(err)
		}
	}
}

// persist records the outcome of a processed item. Failures are logged only.
func (s *CatalogSyncService) persist(ctx context.Context, p *integration.ProductRecord, run *integration.ItemRun, log *zap.Logger) {
	var outcome *integration.SyncOutcome
	switch run.State {
	case integration.ItemStateSuccess:
		outcome = integration.NewSuccessfulOutcome(p, run.OrderID, s.now())
	case integration.ItemStateFailed:
		outcome = integration.NewFailedOutcome(p, run.Reason(), s.now())
	default:
		return
	}
	if err := s.outcomes.Upsert(ctx, outcome); err != nil {
		log.Error("failed to persist sync outcome", zap.Error(err))
		run.Warn(err)
	}
}

func (s *CatalogSyncService) archive(ctx context.Context, result *BatchResult, log *zap.Logger) {
	if s.archiver == nil {
		return
	}
	location, err := s.archiver.Archive(ctx, result)
	if err != nil {
		log.Warn("failed to archive batch report", zap.Error(err))
		return
	}
	result.ReportLocation = location
}
