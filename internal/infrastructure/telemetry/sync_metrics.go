package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	appintegration "github.com/catalogsync/backend/internal/application/integration"
	"github.com/catalogsync/backend/internal/domain/integration"
)

// Batch result attribute values
const (
	BatchResultCompleted   = "completed"
	BatchResultUpstream    = "upstream_error"
	BatchResultInterrupted = "interrupted"
	BatchResultRejected    = "rejected"
)

// SyncMetrics records catalog sync pipeline measurements
type SyncMetrics struct {
	logger *zap.Logger

	itemsTotal    *Counter
	warningsTotal *Counter
	itemDuration  *Histogram

	batchesTotal  *Counter
	batchDuration *Histogram
}

// Ensure SyncMetrics implements SyncRecorder
var _ appintegration.SyncRecorder = (*SyncMetrics)(nil)

// NewSyncMetrics creates the catalog sync instruments on meter
func NewSyncMetrics(meter metric.Meter, logger *zap.Logger) (*SyncMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &SyncMetrics{logger: logger}
	var err error

	if m.itemsTotal, err = NewCounter(meter, "catalogsync.items.total",
		"Items examined by terminal state", "{item}"); err != nil {
		return nil, err
	}
	if m.warningsTotal, err = NewCounter(meter, "catalogsync.item.warnings.total",
		"Tolerated errors recorded on items", "{warning}"); err != nil {
		return nil, err
	}
	if m.itemDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "catalogsync.item.duration",
		Description: "Time from fetch to terminal state per item",
		Unit:        "s",
		Boundaries:  ItemDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.batchesTotal, err = NewCounter(meter, "catalogsync.batches.total",
		"Batches run by result", "{batch}"); err != nil {
		return nil, err
	}
	if m.batchDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "catalogsync.batch.duration",
		Description: "Wall time of completed batches",
		Unit:        "s",
		Boundaries:  BatchDurationBuckets,
	}); err != nil {
		return nil, err
	}

	logger.Debug("Catalog sync metrics initialized")
	return m, nil
}

// RecordItem records one item that reached a terminal state
func (m *SyncMetrics) RecordItem(ctx context.Context, run *integration.ItemRun) {
	if run == nil || !run.State.IsTerminal() {
		return
	}

	attrs := []attribute.KeyValue{AttrItemState.String(string(run.State))}
	switch run.State {
	case integration.ItemStateSkipped:
		attrs = append(attrs, AttrSkipReason.String(string(run.SkipReason)))
	case integration.ItemStateFailed:
		if run.Failure != nil {
			attrs = append(attrs, AttrFailedStage.String(string(run.Failure.Stage)))
		}
	}

	m.itemsTotal.Inc(ctx, attrs...)
	if n := len(run.Warnings); n > 0 {
		m.warningsTotal.Add(ctx, int64(n))
	}
	if run.State != integration.ItemStateSkipped {
		m.itemDuration.RecordDuration(ctx, run.Duration(), AttrItemState.String(string(run.State)))
	}
}

// RecordBatch records the result of one batch invocation
func (m *SyncMetrics) RecordBatch(ctx context.Context, result *appintegration.BatchResult, err error) {
	outcome := BatchOutcome(err)
	m.batchesTotal.Inc(ctx, AttrBatchResult.String(outcome))
	if err != nil || result == nil {
		return
	}
	m.batchDuration.RecordDuration(ctx, result.FinishedAt.Sub(result.StartedAt))
}

// BatchOutcome classifies a batch error for metric attributes
func BatchOutcome(err error) string {
	switch {
	case err == nil:
		return BatchResultCompleted
	case errors.Is(err, appintegration.ErrBatchInterrupted):
		return BatchResultInterrupted
	case errors.Is(err, integration.ErrUpstreamFetchFailure),
		errors.Is(err, integration.ErrPlatformNotConfigured):
		return BatchResultUpstream
	default:
		return BatchResultRejected
	}
}
