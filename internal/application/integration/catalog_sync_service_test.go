package integration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/logger"
)

// MockSource is a mock implementation of integration.Source
type MockSource struct {
	mock.Mock
}

func (m *MockSource) FetchPage(ctx context.Context, req integration.PageRequest) (*integration.CatalogPage, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.CatalogPage), args.Error(1)
}

func (m *MockSource) WriteField(ctx context.Context, sourceID, key, value string) error {
	args := m.Called(ctx, sourceID, key, value)
	return args.Error(0)
}

func (m *MockSource) ShopDomain() string {
	args := m.Called()
	return args.String(0)
}

// MockDestination is a mock implementation of integration.Destination
type MockDestination struct {
	mock.Mock
}

func (m *MockDestination) ListCategories(ctx context.Context) ([]integration.TaxonomyCategory, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.TaxonomyCategory), args.Error(1)
}

func (m *MockDestination) ListServices(ctx context.Context) ([]integration.TaxonomyService, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.TaxonomyService), args.Error(1)
}

func (m *MockDestination) UploadImage(ctx context.Context, imageURL string) (int64, error) {
	args := m.Called(ctx, imageURL)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDestination) CreateOrder(ctx context.Context, draft integration.OrderDraft) (*integration.OrderResult, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.OrderResult), args.Error(1)
}

func (m *MockDestination) LinkServices(ctx context.Context, orderID int64, serviceIDs []int64) error {
	args := m.Called(ctx, orderID, serviceIDs)
	return args.Error(0)
}

type stubSessions struct {
	src integration.Source
	dst integration.Destination
	err error
}

func (s *stubSessions) Source(integration.Credentials) (integration.Source, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.src, nil
}

func (s *stubSessions) Destination(integration.Credentials) (integration.Destination, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.dst, nil
}

// memoryOutcomes is an in-memory SyncOutcomeRepository
type memoryOutcomes struct {
	mu        sync.Mutex
	rows      map[string]*integration.SyncOutcome
	upserts   int
	upsertErr error
	findErr   error
}

func newMemoryOutcomes(seed ...*integration.SyncOutcome) *memoryOutcomes {
	r := &memoryOutcomes{rows: make(map[string]*integration.SyncOutcome)}
	for _, o := range seed {
		r.rows[o.SourceID] = o
	}
	return r
}

func (r *memoryOutcomes) Upsert(ctx context.Context, o *integration.SyncOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	// a database driver refuses work on a cancelled context
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.rows[o.SourceID] = o
	return nil
}

func (r *memoryOutcomes) FindOne(_ context.Context, sourceID string) (*integration.SyncOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	o, ok := r.rows[sourceID]
	if !ok {
		return nil, integration.ErrOutcomeNotFound
	}
	return o, nil
}

func (r *memoryOutcomes) List(context.Context, integration.OutcomeFilter) ([]integration.SyncOutcome, int64, error) {
	return nil, 0, nil
}

func (r *memoryOutcomes) Delete(_ context.Context, sourceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, sourceID)
	return nil
}

func (r *memoryOutcomes) get(sourceID string) *integration.SyncOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[sourceID]
}

type recordingPacer struct {
	mu        sync.Mutex
	waits     int
	cooldowns int
	waitErr   error
}

func (p *recordingPacer) Wait(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.waitErr != nil {
		return p.waitErr
	}
	p.waits++
	return nil
}

func (p *recordingPacer) PageCooldown(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cooldowns++
	return nil
}

type stubLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	released []string
	err      error
}

func (l *stubLocker) Acquire(_ context.Context, sourceID string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", false, l.err
	}
	if l.held[sourceID] {
		return "", false, nil
	}
	return "tok-" + sourceID, true, nil
}

func (l *stubLocker) Release(_ context.Context, sourceID, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released = append(l.released, sourceID)
	return nil
}

type stubArchiver struct {
	location string
	err      error
	archived []*BatchResult
}

func (a *stubArchiver) Archive(_ context.Context, result *BatchResult) (string, error) {
	a.archived = append(a.archived, result)
	return a.location, a.err
}

type countingRecorder struct {
	mu      sync.Mutex
	items   []integration.ItemState
	batches int
	errs    []error
}

func (r *countingRecorder) RecordItem(_ context.Context, run *integration.ItemRun) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, run.State)
}

func (r *countingRecorder) RecordBatch(_ context.Context, _ *BatchResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches++
	r.errs = append(r.errs, err)
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testCategories() []integration.TaxonomyCategory {
	return []integration.TaxonomyCategory{
		{
			ID:     10,
			Name:   "Sneakers",
			Brands: []integration.TaxonomyBrand{{ID: 7, Name: "Nike"}},
			ImageSlots: []integration.ImageSlot{
				{ID: 100, Description: "Front"},
				{ID: 101, Description: "Back"},
			},
		},
	}
}

func testServices() []integration.TaxonomyService {
	return []integration.TaxonomyService{
		{ID: 1, Name: "Express"},
		{ID: 2, Name: "Certificate"},
	}
}

func sneaker(id string) integration.ProductRecord {
	return integration.ProductRecord{
		SourceID: id,
		Handle:   "sneaker-" + id,
		Title:    "Sneaker " + id,
		Images: []integration.ProductImage{
			{URL: "https://cdn.example.com/" + id + "/front.jpg", DescriptiveTag: "Front"},
			{URL: "https://cdn.example.com/" + id + "/back.jpg", DescriptiveTag: "Back"},
			{URL: "https://cdn.example.com/" + id + "/plain.jpg"},
		},
		CustomFields: integration.NewCustomFields(map[string]string{
			"rau_category": "Sneakers",
			"rau_brand":    "Nike",
			"rau_services": "Express, Certificate",
		}),
	}
}

func successfulOutcome(id string) *integration.SyncOutcome {
	p := sneaker(id)
	return integration.NewSuccessfulOutcome(&p, "777", testNow.Add(-time.Hour))
}

type syncFixture struct {
	src      *MockSource
	dst      *MockDestination
	outcomes *memoryOutcomes
	pacer    *recordingPacer
	recorder *countingRecorder
}

func newSyncFixture(seed ...*integration.SyncOutcome) *syncFixture {
	f := &syncFixture{
		src:      new(MockSource),
		dst:      new(MockDestination),
		outcomes: newMemoryOutcomes(seed...),
		pacer:    &recordingPacer{},
		recorder: &countingRecorder{},
	}
	f.src.On("ShopDomain").Return("shop.example.com").Maybe()
	return f
}

func (f *syncFixture) service(settings SyncSettings, opts ...CatalogSyncOption) *CatalogSyncService {
	opts = append([]CatalogSyncOption{
		WithClock(func() time.Time { return testNow }),
		WithLogger(zap.NewNop()),
		WithSyncRecorder(f.recorder),
	}, opts...)
	return NewCatalogSyncService(&stubSessions{src: f.src, dst: f.dst}, f.outcomes, f.pacer, settings, opts...)
}

func (f *syncFixture) page(cursor string, next string, items ...integration.ProductRecord) {
	f.src.On("FetchPage", mock.Anything, mock.MatchedBy(func(r integration.PageRequest) bool {
		return r.Cursor == cursor
	})).Return(&integration.CatalogPage{Items: items, NextCursor: next}, nil)
}

func (f *syncFixture) taxonomy() {
	f.dst.On("ListCategories", mock.Anything).Return(testCategories(), nil)
	f.dst.On("ListServices", mock.Anything).Return(testServices(), nil)
}

func (f *syncFixture) uploads(id string) {
	f.dst.On("UploadImage", mock.Anything, "https://cdn.example.com/"+id+"/front.jpg").Return(int64(501), nil)
	f.dst.On("UploadImage", mock.Anything, "https://cdn.example.com/"+id+"/back.jpg").Return(int64(502), nil)
}

func titled(title string) any {
	return mock.MatchedBy(func(d integration.OrderDraft) bool { return d.Title == title })
}

func assertCountInvariant(t *testing.T, result *BatchResult) {
	t.Helper()
	nonSkipped := 0
	for _, item := range result.Items {
		if item.Status != string(integration.ItemStateSkipped) {
			nonSkipped++
		}
	}
	assert.Equal(t, nonSkipped, result.ProcessedCount+result.FailedCount)
	assert.Equal(t, len(result.Items), result.ProcessedCount+result.FailedCount+result.SkippedCount)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestCatalogSyncService_RunBatch_HappyPath(t *testing.T) {
	f := newSyncFixture()
	f.page("", "", sneaker("p1"))
	f.taxonomy()
	f.uploads("p1")

	var draft integration.OrderDraft
	f.dst.On("CreateOrder", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { draft = args.Get(1).(integration.OrderDraft) }).
		Return(&integration.OrderResult{ID: 9001, StatusDescription: "Pending"}, nil)
	f.dst.On("LinkServices", mock.Anything, int64(9001), []int64{1, 2}).Return(nil)
	f.src.On("WriteField", mock.Anything, "p1", mock.Anything, mock.Anything).Return(nil)

	svc := f.service(DefaultSyncSettings())
	result, err := svc.RunBatch(context.Background(), BatchRequest{BatchID: "batch-1"})
	require.NoError(t, err)

	assert.Equal(t, "batch-1", result.BatchID)
	assert.Equal(t, 1, result.ProcessedCount)
	assert.Equal(t, 0, result.FailedCount)
	assert.Nil(t, result.NextCursor)
	assert.False(t, result.HasMore())
	require.Len(t, result.Items, 1)
	assert.Equal(t, "SUCCESS", result.Items[0].Status)
	assert.Equal(t, "9001", result.Items[0].OrderID)
	assert.Empty(t, result.Items[0].Warnings)
	assertCountInvariant(t, result)

	assert.Equal(t, int64(10), draft.CategoryID)
	assert.Equal(t, int64(7), draft.BrandID)
	assert.Equal(t, "https://shop.example.com/products/sneaker-p1", draft.WebLink)
	assert.Equal(t, integration.IdempotencyKey("p1"), draft.IdempotencyKey)
	require.Len(t, draft.Images, 2)
	assert.Equal(t, int64(100), *draft.Images[0].SlotID)
	assert.Equal(t, int64(501), draft.Images[0].ImageID)
	assert.Equal(t, int64(101), *draft.Images[1].SlotID)
	assert.Equal(t, int64(502), draft.Images[1].ImageID)

	stored := f.outcomes.get("p1")
	require.NotNil(t, stored)
	assert.True(t, stored.IsSuccessful())
	assert.Equal(t, "9001", stored.DestinationOrderID)

	f.src.AssertNumberOfCalls(t, "WriteField", 7)
	f.src.AssertCalled(t, "WriteField", mock.Anything, "p1", "rau_order_id", "9001")
	assert.Equal(t, 1, f.pacer.waits)
	assert.Equal(t, 0, f.pacer.cooldowns)
	assert.Equal(t, []integration.ItemState{integration.ItemStateSuccess}, f.recorder.items)
	assert.Equal(t, 1, f.recorder.batches)
	f.dst.AssertExpectations(t)
}

func TestCatalogSyncService_RunBatch_SkipsSyncedAndFailsUnknownCategory(t *testing.T) {
	unknown := sneaker("p2")
	unknown.CustomFields.Set("rau_category", "Watches")

	f := newSyncFixture(successfulOutcome("p1"))
	f.page("", "", sneaker("p1"), unknown)
	f.taxonomy()

	svc := f.service(DefaultSyncSettings())
	result, err := svc.RunBatch(context.Background(), BatchRequest{})
	require.NoError(t, err)

	assert.NotEmpty(t, result.BatchID)
	assert.Equal(t, 0, result.ProcessedCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.Equal(t, 1, result.SkippedCount)
	assertCountInvariant(t, result)

	assert.Equal(t, "SKIPPED", result.Items[0].Status)
	assert.Equal(t, string(integration.SkipReasonAlreadySynced), result.Items[0].SkipReason)
	assert.Equal(t, "FAILED", result.Items[1].Status)
	assert.Equal(t, "MATCHING", result.Items[1].FailedAt)
	assert.Equal(t, `Category "Watches" not found`, result.Items[1].Error)

	assert.Equal(t, "777", f.outcomes.get("p1").DestinationOrderID)
	failed := f.outcomes.get("p2")
	require.NotNil(t, failed)
	assert.Equal(t, `Category "Watches" not found`, failed.ErrorMessage())
	assert.Equal(t, integration.UnsetOrderID, failed.DestinationOrderID)

	assert.Equal(t, 1, f.pacer.waits)
	f.dst.AssertNotCalled(t, "UploadImage", mock.Anything, mock.Anything)
	f.dst.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestCatalogSyncService_RunBatch_AllUploadsFail(t *testing.T) {
	f := newSyncFixture()
	f.page("", "", sneaker("p1"))
	f.taxonomy()
	f.dst.On("UploadImage", mock.Anything, mock.Anything).Return(int64(0), integration.ErrImageUploadFailure)

	svc := f.service(DefaultSyncSettings())
	result, err := svc.RunBatch(context.Background(), BatchRequest{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.FailedCount)
	item := result.Items[0]
	assert.Equal(t, integration.ReasonNoUploadedImages, item.Error)
	assert.Len(t, item.Warnings, 2)

	// the untagged image is never uploaded
	f.dst.AssertNumberOfCalls(t, "UploadImage", 2)
	f.dst.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	f.src.AssertNotCalled(t, "WriteField", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	stored := f.outcomes.get("p1")
	require.NotNil(t, stored)
	assert.Equal(t, integration.ReasonNoUploadedImages, stored.ErrorMessage())
}

func TestCatalogSyncService_RunBatch_PageCooldown(t *testing.T) {
	f := newSyncFixture(successfulOutcome("p1"), successfulOutcome("p2"))
	f.page("c1", "c2", sneaker("p1"), sneaker("p2"))
	f.taxonomy()

	settings := DefaultSyncSettings()
	settings.PageSize = 2
	svc := f.service(settings)

	result, err := svc.RunBatch(context.Background(), BatchRequest{Cursor: "c1"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.SkippedCount)
	require.NotNil(t, result.NextCursor)
	assert.Equal(t, "c2", *result.NextCursor)
	assert.Equal(t, 1, f.pacer.cooldowns)
	assert.Equal(t, 0, f.pacer.waits)
}

func TestCatalogSyncService_RunBatch_PageRequest(t *testing.T) {
	f := newSyncFixture()
	f.src.On("FetchPage", mock.Anything, integration.PageRequest{
		Cursor:        "abc",
		PageSize:      5,
		FilterTag:     "auth",
		RequireImages: true,
	}).Return(&integration.CatalogPage{}, nil)

	settings := DefaultSyncSettings()
	settings.FilterTag = "auth"
	settings.RequireImages = true
	svc := f.service(settings)

	result, err := svc.RunBatch(context.Background(), BatchRequest{Cursor: "abc", PageSize: 5})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Nil(t, result.NextCursor)

	// an empty page needs no reference data
	f.dst.AssertNotCalled(t, "ListCategories", mock.Anything)
	f.src.AssertExpectations(t)
}

func TestCatalogSyncService_RunBatch_BatchFatal(t *testing.T) {
	t.Run("invalid page size", func(t *testing.T) {
		f := newSyncFixture()
		_, err := f.service(DefaultSyncSettings()).RunBatch(context.Background(), BatchRequest{PageSize: -1})
		assert.ErrorIs(t, err, integration.ErrInvalidPageSize)
		f.src.AssertNotCalled(t, "FetchPage", mock.Anything, mock.Anything)
	})

	t.Run("session not configured", func(t *testing.T) {
		f := newSyncFixture()
		sessions := &stubSessions{err: integration.ErrPlatformNotConfigured}
		svc := NewCatalogSyncService(sessions, f.outcomes, f.pacer, DefaultSyncSettings())
		_, err := svc.RunBatch(context.Background(), BatchRequest{})
		assert.ErrorIs(t, err, integration.ErrPlatformNotConfigured)
	})

	t.Run("catalog fetch failure", func(t *testing.T) {
		f := newSyncFixture()
		f.src.On("FetchPage", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

		result, err := f.service(DefaultSyncSettings()).RunBatch(context.Background(), BatchRequest{})
		assert.Nil(t, result)
		assert.ErrorIs(t, err, integration.ErrUpstreamFetchFailure)
		assert.Zero(t, f.outcomes.upserts)
		require.Len(t, f.recorder.errs, 1)
		assert.Error(t, f.recorder.errs[0])
	})

	t.Run("taxonomy failure", func(t *testing.T) {
		f := newSyncFixture()
		f.page("", "", sneaker("p1"))
		f.dst.On("ListCategories", mock.Anything).Return(nil, errors.New("503"))
		f.dst.On("ListServices", mock.Anything).Return(testServices(), nil).Maybe()

		result, err := f.service(DefaultSyncSettings()).RunBatch(context.Background(), BatchRequest{})
		assert.Nil(t, result)
		assert.ErrorIs(t, err, integration.ErrUpstreamFetchFailure)
		assert.Zero(t, f.outcomes.upserts)
		f.dst.AssertNotCalled(t, "UploadImage", mock.Anything, mock.Anything)
	})

	t.Run("pacing interrupted", func(t *testing.T) {
		f := newSyncFixture()
		f.page("", "", sneaker("p1"))
		f.taxonomy()
		f.pacer.waitErr = context.Canceled

		result, err := f.service(DefaultSyncSettings()).RunBatch(context.Background(), BatchRequest{})
		assert.Nil(t, result)
		assert.ErrorIs(t, err, ErrBatchInterrupted)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, f.outcomes.upserts)
	})
}

func TestCatalogSyncService_RunBatch_OrderCreationFailure(t *testing.T) {
	f := newSyncFixture()
	f.page("", "", sneaker("p1"))
	f.taxonomy()
	f.uploads("p1")
	f.dst.On("CreateOrder", mock.Anything, mock.Anything).
		Return(nil, errors.Join(integration.ErrOrderCreationFailure, errors.New("422")))

	result, err := f.service(DefaultSyncSettings()).RunBatch(context.Background(), BatchRequest{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.FailedCount)
	assert.Equal(t, "IMAGES_ASSIGNED", result.Items[0].FailedAt)
	assert.Equal(t, integration.ReasonOrderCreationFailed, result.Items[0].Error)
	assert.Equal(t, integration.ReasonOrderCreationFailed, f.outcomes.get("p1").ErrorMessage())
	f.dst.AssertNotCalled(t, "LinkServices", mock.Anything, mock.Anything, mock.Anything)
	f.src.AssertNotCalled(t, "WriteField", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCatalogSyncService_RunBatch_ToleratedErrors(t *testing.T) {
	p := sneaker("p1")
	p.CustomFields.Set("rau_services", "Express, Gold")

	f := newSyncFixture()
	f.page("", "", p)
	f.taxonomy()
	f.dst.On("UploadImage", mock.Anything, "https://cdn.example.com/p1/front.jpg").Return(int64(501), nil)
	f.dst.On("UploadImage", mock.Anything, "https://cdn.example.com/p1/back.jpg").Return(int64(0), integration.ErrImageUploadFailure)
	f.dst.On("CreateOrder", mock.Anything, mock.Anything).Return(&integration.OrderResult{ID: 42}, nil)
	f.dst.On("LinkServices", mock.Anything, int64(42), []int64{1}).Return(integration.ErrServiceLinkFailure)
	f.src.On("WriteField", mock.Anything, "p1", "rau_note", mock.Anything).Return(integration.ErrWritebackFailure)
	f.src.On("WriteField", mock.Anything, "p1", mock.Anything, mock.Anything).Return(nil)
	f.outcomes.upsertErr = integration.ErrPersistenceFailure

	result, err := f.service(DefaultSyncSettings()).RunBatch(context.Background(), BatchRequest{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.ProcessedCount)
	item := result.Items[0]
	assert.Equal(t, "SUCCESS", item.Status)
	assert.Equal(t, "42", item.OrderID)
	// upload, unresolved service, link, writeback, persistence
	assert.Len(t, item.Warnings, 5)
	assertCountInvariant(t, result)
}

func TestCatalogSyncService_RunBatch_NoServicesSkipsLink(t *testing.T) {
	p := sneaker("p1")
	p.CustomFields.Set("rau_services", "")

	f := newSyncFixture()
	f.page("", "", p)
	f.taxonomy()
	f.uploads("p1")
	f.dst.On("CreateOrder", mock.Anything, mock.Anything).Return(&integration.OrderResult{ID: 5}, nil)
	f.src.On("WriteField", mock.Anything, "p1", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service(DefaultSyncSettings()).RunBatch(context.Background(), BatchRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProcessedCount)
	f.dst.AssertNotCalled(t, "LinkServices", mock.Anything, mock.Anything, mock.Anything)
}

func TestCatalogSyncService_RunBatch_RetriesFailedOutcome(t *testing.T) {
	p := sneaker("p1")
	f := newSyncFixture(integration.NewFailedOutcome(&p, "no uploaded images", testNow.Add(-time.Hour)))
	f.page("", "", p)
	f.taxonomy()
	f.uploads("p1")
	f.dst.On("CreateOrder", mock.Anything, mock.Anything).Return(&integration.OrderResult{ID: 11}, nil)
	f.dst.On("LinkServices", mock.Anything, int64(11), mock.Anything).Return(nil)
	f.src.On("WriteField", mock.Anything, "p1", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service(DefaultSyncSettings()).RunBatch(context.Background(), BatchRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProcessedCount)
	assert.True(t, f.outcomes.get("p1").IsSuccessful())
}

func TestCatalogSyncService_RunBatch_ItemLock(t *testing.T) {
	f := newSyncFixture()
	f.page("", "", sneaker("p1"), sneaker("p2"))
	f.taxonomy()
	f.uploads("p2")
	f.dst.On("CreateOrder", mock.Anything, mock.Anything).Return(&integration.OrderResult{ID: 3}, nil)
	f.dst.On("LinkServices", mock.Anything, int64(3), mock.Anything).Return(nil)
	f.src.On("WriteField", mock.Anything, "p2", mock.Anything, mock.Anything).Return(nil)

	locker := &stubLocker{held: map[string]bool{"p1": true}}
	settings := DefaultSyncSettings()
	settings.LockEnabled = true

	result, err := f.service(settings, WithItemLocker(locker)).RunBatch(context.Background(), BatchRequest{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.SkippedCount)
	assert.Equal(t, string(integration.SkipReasonLocked), result.Items[0].SkipReason)
	assert.Equal(t, 1, result.ProcessedCount)
	assert.Equal(t, []string{"p2"}, locker.released)
	assert.Nil(t, f.outcomes.get("p1"))
}

func TestCatalogSyncService_RunBatch_LockUnavailableContinues(t *testing.T) {
	f := newSyncFixture(successfulOutcome("p1"))
	f.page("", "", sneaker("p1"))
	f.taxonomy()

	settings := DefaultSyncSettings()
	settings.LockEnabled = true
	locker := &stubLocker{err: errors.New("redis down")}

	result, err := f.service(settings, WithItemLocker(locker)).RunBatch(context.Background(), BatchRequest{})
	require.NoError(t, err)
	assert.Equal(t, string(integration.SkipReasonAlreadySynced), result.Items[0].SkipReason)
}

func TestCatalogSyncService_RunBatch_OutcomeLookupErrorTreatsItemAsNew(t *testing.T) {
	f := newSyncFixture()
	f.outcomes.findErr = integration.ErrPersistenceFailure
	f.page("", "", sneaker("p1"))
	f.taxonomy()
	f.dst.On("UploadImage", mock.Anything, mock.Anything).Return(int64(0), integration.ErrImageUploadFailure)

	result, err := f.service(DefaultSyncSettings()).RunBatch(context.Background(), BatchRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FailedCount)
	assert.Contains(t, result.Items[0].Warnings, integration.ErrPersistenceFailure.Error())
}

func TestCatalogSyncService_RunBatch_ConcurrentWorkersKeepOrder(t *testing.T) {
	f := newSyncFixture()
	items := []integration.ProductRecord{sneaker("p1"), sneaker("p2"), sneaker("p3")}
	f.page("", "", items...)
	f.taxonomy()
	for i, p := range items {
		f.uploads(p.SourceID)
		f.dst.On("CreateOrder", mock.Anything, titled(p.Title)).
			Return(&integration.OrderResult{ID: int64(100 + i)}, nil)
	}
	f.dst.On("LinkServices", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.src.On("WriteField", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	settings := DefaultSyncSettings()
	settings.Workers = 3
	settings.PageSize = 3

	result, err := f.service(settings).RunBatch(context.Background(), BatchRequest{})
	require.NoError(t, err)

	assert.Equal(t, 3, result.ProcessedCount)
	for i, item := range result.Items {
		assert.Equal(t, items[i].SourceID, item.SourceID)
	}
	assert.Equal(t, "101", result.Items[1].OrderID)
	assert.Equal(t, 3, f.pacer.waits)
	assert.Equal(t, 1, f.pacer.cooldowns)
}

// cancellingDestination cancels the batch on the first upload. Like an HTTP
// client, it refuses any call made on an already cancelled context.
type cancellingDestination struct {
	*MockDestination
	cancel context.CancelFunc
	once   sync.Once
}

func (d *cancellingDestination) UploadImage(ctx context.Context, imageURL string) (int64, error) {
	d.once.Do(d.cancel)
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return d.MockDestination.UploadImage(ctx, imageURL)
}

func (d *cancellingDestination) CreateOrder(ctx context.Context, draft integration.OrderDraft) (*integration.OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.MockDestination.CreateOrder(ctx, draft)
}

func TestCatalogSyncService_RunBatch_CancelledMidItem(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newSyncFixture()
	f.page("", "", sneaker("p1"), sneaker("p2"))
	f.taxonomy()
	f.uploads("p1")
	f.dst.On("CreateOrder", mock.Anything, titled("Sneaker p1")).Return(&integration.OrderResult{ID: 21}, nil)
	f.dst.On("LinkServices", mock.Anything, int64(21), mock.Anything).Return(nil)
	f.src.On("WriteField", mock.Anything, "p1", mock.Anything, mock.Anything).Return(nil)

	dst := &cancellingDestination{MockDestination: f.dst, cancel: cancel}
	svc := NewCatalogSyncService(&stubSessions{src: f.src, dst: dst}, f.outcomes, f.pacer, DefaultSyncSettings(),
		WithClock(func() time.Time { return testNow }),
		WithSyncRecorder(f.recorder),
	)

	result, err := svc.RunBatch(ctx, BatchRequest{})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrBatchInterrupted)
	assert.ErrorIs(t, err, context.Canceled)

	// the item under way finishes and is recorded as it really ended
	p1 := f.outcomes.get("p1")
	require.NotNil(t, p1)
	assert.True(t, p1.IsSuccessful())
	assert.Equal(t, "21", p1.DestinationOrderID)
	assert.NotEqual(t, integration.ReasonNoUploadedImages, p1.ErrorMessage())
	assert.Equal(t, []integration.ItemState{integration.ItemStateSuccess}, f.recorder.items)

	// the next item is never started
	assert.Nil(t, f.outcomes.get("p2"))
	assert.Equal(t, 1, f.pacer.waits)
	f.dst.AssertNotCalled(t, "CreateOrder", mock.Anything, titled("Sneaker p2"))
}

func TestCatalogSyncService_RunBatch_CorrelationIDs(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	f := newSyncFixture()
	f.page("", "", sneaker("p1"))
	f.taxonomy()
	f.uploads("p1")
	var orderCtx context.Context
	f.dst.On("CreateOrder", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { orderCtx = args.Get(0).(context.Context) }).
		Return(&integration.OrderResult{ID: 8}, nil)
	f.dst.On("LinkServices", mock.Anything, int64(8), mock.Anything).Return(nil)
	f.src.On("WriteField", mock.Anything, "p1", mock.Anything, mock.Anything).Return(nil)

	_, err := f.service(DefaultSyncSettings(), WithLogger(zap.New(core))).
		RunBatch(context.Background(), BatchRequest{BatchID: "batch-7"})
	require.NoError(t, err)

	// adapters see the ids through the context
	require.NotNil(t, orderCtx)
	assert.Equal(t, "batch-7", orderCtx.Value(logger.BatchIDKey))
	assert.Equal(t, "p1", orderCtx.Value(logger.SourceIDKey))

	synced := recorded.FilterMessage("item synced").All()
	require.Len(t, synced, 1)
	fields := synced[0].ContextMap()
	assert.Equal(t, "batch-7", fields["batch_id"])
	assert.Equal(t, "p1", fields["source_id"])
	assert.Equal(t, "sneaker-p1", fields["handle"])
}

func TestCatalogSyncService_RunBatch_ThreeItemsSequential(t *testing.T) {
	f := newSyncFixture()
	items := []integration.ProductRecord{sneaker("p1"), sneaker("p2"), sneaker("p3")}
	f.page("", "", items...)
	f.taxonomy()
	for i, p := range items {
		f.uploads(p.SourceID)
		f.dst.On("CreateOrder", mock.Anything, titled(p.Title)).
			Return(&integration.OrderResult{ID: int64(200 + i)}, nil).Once()
	}
	f.dst.On("LinkServices", mock.Anything, mock.Anything, []int64{1, 2}).Return(nil)
	f.src.On("WriteField", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	settings := DefaultSyncSettings()
	settings.Workers = 1

	result, err := f.service(settings).RunBatch(context.Background(), BatchRequest{})
	require.NoError(t, err)

	assert.Equal(t, 3, result.ProcessedCount)
	assert.Zero(t, result.FailedCount)
	assert.Zero(t, result.SkippedCount)
	assertCountInvariant(t, result)
	for i, item := range result.Items {
		assert.Equal(t, items[i].SourceID, item.SourceID)
		assert.Equal(t, "SUCCESS", item.Status)
	}
	assert.Equal(t, 3, f.pacer.waits)
	assert.Zero(t, f.pacer.cooldowns)
	assert.Equal(t, 3, f.outcomes.upserts)
	for _, p := range items {
		assert.True(t, f.outcomes.get(p.SourceID).IsSuccessful())
	}
	f.dst.AssertNumberOfCalls(t, "CreateOrder", 3)
}

func TestCatalogSyncService_RunBatch_SkipsSyncedAndRetriesFailed(t *testing.T) {
	a := sneaker("a")
	b := sneaker("b")
	f := newSyncFixture(
		successfulOutcome("a"),
		integration.NewFailedOutcome(&b, integration.ReasonOrderCreationFailed, testNow.Add(-time.Hour)),
	)
	f.page("", "", a, b)
	f.taxonomy()
	f.uploads("b")
	f.dst.On("CreateOrder", mock.Anything, titled(b.Title)).Return(&integration.OrderResult{ID: 31}, nil)
	f.dst.On("LinkServices", mock.Anything, int64(31), mock.Anything).Return(nil)
	f.src.On("WriteField", mock.Anything, "b", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service(DefaultSyncSettings()).RunBatch(context.Background(), BatchRequest{})
	require.NoError(t, err)

	require.Len(t, result.Items, 2)
	assert.Equal(t, string(integration.SkipReasonAlreadySynced), result.Items[0].SkipReason)
	assert.Equal(t, "SUCCESS", result.Items[1].Status)
	assert.Equal(t, "31", result.Items[1].OrderID)
	assert.Equal(t, 1, result.SkippedCount)
	assert.Equal(t, 1, result.ProcessedCount)

	// b starts again from matching, so its images are uploaded anew
	f.dst.AssertCalled(t, "UploadImage", mock.Anything, "https://cdn.example.com/b/front.jpg")
	f.dst.AssertNotCalled(t, "UploadImage", mock.Anything, "https://cdn.example.com/a/front.jpg")
	assert.Equal(t, "777", f.outcomes.get("a").DestinationOrderID)
	assert.True(t, f.outcomes.get("b").IsSuccessful())
	assert.Equal(t, 1, f.pacer.waits)
}

func TestCatalogSyncService_RunBatch_ArchivesReport(t *testing.T) {
	t.Run("location recorded", func(t *testing.T) {
		f := newSyncFixture()
		f.page("", "", sneaker("p1"))
		f.taxonomy()
		f.outcomes.rows["p1"] = successfulOutcome("p1")
		archiver := &stubArchiver{location: "s3://reports/batch-9.json"}

		result, err := f.service(DefaultSyncSettings(), WithReportArchiver(archiver)).
			RunBatch(context.Background(), BatchRequest{BatchID: "batch-9"})
		require.NoError(t, err)
		assert.Equal(t, "s3://reports/batch-9.json", result.ReportLocation)
		require.Len(t, archiver.archived, 1)
		assert.Equal(t, testNow, archiver.archived[0].FinishedAt)
	})

	t.Run("archive failure is tolerated", func(t *testing.T) {
		f := newSyncFixture()
		f.page("", "", sneaker("p1"))
		f.taxonomy()
		f.outcomes.rows["p1"] = successfulOutcome("p1")
		archiver := &stubArchiver{err: errors.New("bucket missing")}

		result, err := f.service(DefaultSyncSettings(), WithReportArchiver(archiver)).
			RunBatch(context.Background(), BatchRequest{})
		require.NoError(t, err)
		assert.Empty(t, result.ReportLocation)
	})
}

func TestNewCatalogSyncService_NormalizesSettings(t *testing.T) {
	svc := NewCatalogSyncService(&stubSessions{}, newMemoryOutcomes(), &recordingPacer{}, SyncSettings{
		SlotPolicy: "bogus",
		Workers:    -1,
	})

	s := svc.Settings()
	assert.Equal(t, 20, s.PageSize)
	assert.Equal(t, integration.SlotPolicyAttach, s.SlotPolicy)
	assert.Equal(t, integration.DefaultMetadataPrefix, s.MetadataPrefix)
	assert.Equal(t, 1, s.Workers)
	assert.Equal(t, 5*time.Minute, s.LockTTL)
}
