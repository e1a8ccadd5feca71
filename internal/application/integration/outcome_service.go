package integration

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/catalogsync/backend/internal/domain/integration"
)

// OutcomeService exposes the stored sync outcomes to operators
type OutcomeService struct {
	outcomes integration.SyncOutcomeRepository
	logger   *zap.Logger
}

// NewOutcomeService creates a new OutcomeService
func NewOutcomeService(outcomes integration.SyncOutcomeRepository, logger *zap.Logger) *OutcomeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutcomeService{outcomes: outcomes, logger: logger}
}

// Get returns the outcome for a source item
func (s *OutcomeService) Get(ctx context.Context, sourceID string) (*OutcomeResponse, error) {
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		return nil, integration.ErrOutcomeInvalidSource
	}
	outcome, err := s.outcomes.FindOne(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	resp := ToOutcomeResponse(outcome)
	return &resp, nil
}

// List returns a page of outcomes, ordered by title unless a sort field is given
func (s *OutcomeService) List(ctx context.Context, query ListOutcomesQuery) (*OutcomeListResult, error) {
	filter := integration.OutcomeFilter{
		Status:    integration.OutcomeStatus(strings.ToLower(strings.TrimSpace(query.Status))),
		Search:    strings.TrimSpace(query.Search),
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	if !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: invalid outcome status %q", integration.ErrOutcomeInvalidFilter, query.Status)
	}
	filter.Normalize()

	outcomes, total, err := s.outcomes.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]OutcomeResponse, len(outcomes))
	for i := range outcomes {
		items[i] = ToOutcomeResponse(&outcomes[i])
	}
	return &OutcomeListResult{
		Items:    items,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// Reset deletes the outcome so the item is attempted again on the next batch
func (s *OutcomeService) Reset(ctx context.Context, sourceID string) error {
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		return integration.ErrOutcomeInvalidSource
	}
	if err := s.outcomes.Delete(ctx, sourceID); err != nil {
		return err
	}
	s.logger.Info("sync outcome reset", zap.String("source_id", sourceID))
	return nil
}
