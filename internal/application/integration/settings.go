package integration

import (
	"context"
	"errors"
	"time"

	"github.com/catalogsync/backend/internal/domain/integration"
)

// SyncSettings configures the catalog sync pipeline
type SyncSettings struct {
	PageSize       int
	FilterTag      string
	RequireImages  bool
	SlotPolicy     integration.SlotPolicy
	MetadataPrefix string
	// Workers bounds in-flight items; 1 keeps strict arrival order
	Workers int
	// UploadConcurrency bounds the per-item image fan-out; 0 is unbounded
	UploadConcurrency int
	LockEnabled       bool
	LockTTL           time.Duration
	Defaults          integration.OrderDefaults
	DashboardURL      string
}

// DefaultSyncSettings returns the settings used when nothing is configured
func DefaultSyncSettings() SyncSettings {
	return SyncSettings{
		PageSize:          20,
		SlotPolicy:        integration.SlotPolicyAttach,
		MetadataPrefix:    integration.DefaultMetadataPrefix,
		Workers:           1,
		UploadConcurrency: 4,
		LockTTL:           5 * time.Minute,
		Defaults: integration.OrderDefaults{
			DocumentationName: integration.DefaultDocumentationName,
			FallbackBrandID:   integration.DefaultBrandID,
		},
	}
}

func (s *SyncSettings) normalize() {
	d := DefaultSyncSettings()
	if s.PageSize <= 0 {
		s.PageSize = d.PageSize
	}
	if !s.SlotPolicy.IsValid() {
		s.SlotPolicy = d.SlotPolicy
	}
	if s.MetadataPrefix == "" {
		s.MetadataPrefix = d.MetadataPrefix
	}
	if s.Workers < 1 {
		s.Workers = d.Workers
	}
	if s.LockTTL <= 0 {
		s.LockTTL = d.LockTTL
	}
}

// ErrReportNotFound is returned when no archived report exists for a batch
var ErrReportNotFound = errors.New("catalog sync: batch report not found")

// ReportArchiver stores a finished batch result outside the database
type ReportArchiver interface {
	// Archive returns a location for the stored report
	Archive(ctx context.Context, result *BatchResult) (string, error)
}

// ReportStore archives batch reports and reads them back by batch id
type ReportStore interface {
	ReportArchiver
	Load(ctx context.Context, batchID string) (*BatchResult, error)
}

// SyncRecorder receives pipeline measurements
type SyncRecorder interface {
	RecordItem(ctx context.Context, run *integration.ItemRun)
	RecordBatch(ctx context.Context, result *BatchResult, err error)
}

type noopRecorder struct{}

func (noopRecorder) RecordItem(context.Context, *integration.ItemRun) {}
func (noopRecorder) RecordBatch(context.Context, *BatchResult, error) {}
