package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/persistence/models"
)

// GormSyncOutcomeRepository implements SyncOutcomeRepository using GORM
type GormSyncOutcomeRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormSyncOutcomeRepository creates a new GormSyncOutcomeRepository
func NewGormSyncOutcomeRepository(db *gorm.DB) *GormSyncOutcomeRepository {
	return &GormSyncOutcomeRepository{db: db, now: time.Now}
}

// Upsert creates or overwrites the single row for outcome.SourceID.
// CreatedAt is preserved on conflict.
func (r *GormSyncOutcomeRepository) Upsert(ctx context.Context, outcome *integration.SyncOutcome) error {
	if err := outcome.Validate(); err != nil {
		return err
	}

	model := models.SyncOutcomeModelFromDomain(outcome)
	now := r.now()
	if model.LastAttemptAt.IsZero() {
		model.LastAttemptAt = now
	}
	if model.DestinationOrderID == "" {
		model.DestinationOrderID = integration.UnsetOrderID
	}
	model.CreatedAt = now
	model.UpdatedAt = now

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "source_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"handle",
			"title",
			"destination_order_id",
			"last_error",
			"last_attempt_at",
			"updated_at",
		}),
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrPersistenceFailure, err)
	}
	return nil
}

// FindOne finds the outcome for a source item
func (r *GormSyncOutcomeRepository) FindOne(ctx context.Context, sourceID string) (*integration.SyncOutcome, error) {
	var model models.SyncOutcomeModel
	if err := r.db.WithContext(ctx).First(&model, "source_id = ?", sourceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrOutcomeNotFound
		}
		return nil, fmt.Errorf("%w: %v", integration.ErrPersistenceFailure, err)
	}
	return model.ToDomain(), nil
}

// List returns outcomes ordered by title, then source id
func (r *GormSyncOutcomeRepository) List(ctx context.Context, filter integration.OutcomeFilter) ([]integration.SyncOutcome, int64, error) {
	filter.Normalize()

	var total int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.SyncOutcomeModel{}), filter).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", integration.ErrPersistenceFailure, err)
	}

	var outcomeModels []models.SyncOutcomeModel
	if err := r.applyFilter(r.db.WithContext(ctx), filter).
		Order(outcomeOrder(filter.SortBy, filter.SortOrder)).
		Order("source_id ASC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&outcomeModels).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", integration.ErrPersistenceFailure, err)
	}

	outcomes := make([]integration.SyncOutcome, len(outcomeModels))
	for i, model := range outcomeModels {
		outcomes[i] = *model.ToDomain()
	}
	return outcomes, total, nil
}

// applyFilter applies status and search conditions without pagination
func (r *GormSyncOutcomeRepository) applyFilter(query *gorm.DB, filter integration.OutcomeFilter) *gorm.DB {
	switch filter.Status {
	case integration.OutcomeStatusSuccess:
		query = query.Where("last_error IS NULL")
	case integration.OutcomeStatusFailed:
		query = query.Where("last_error IS NOT NULL")
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(handle) LIKE ?", pattern, pattern)
	}
	return query
}

// Delete removes the outcome row for a source item
func (r *GormSyncOutcomeRepository) Delete(ctx context.Context, sourceID string) error {
	result := r.db.WithContext(ctx).Delete(&models.SyncOutcomeModel{}, "source_id = ?", sourceID)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", integration.ErrPersistenceFailure, result.Error)
	}
	if result.RowsAffected == 0 {
		return integration.ErrOutcomeNotFound
	}
	return nil
}

// Ensure GormSyncOutcomeRepository implements SyncOutcomeRepository
var _ integration.SyncOutcomeRepository = (*GormSyncOutcomeRepository)(nil)
