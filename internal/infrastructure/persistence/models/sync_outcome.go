package models

import (
	"time"

	"github.com/catalogsync/backend/internal/domain/integration"
)

// SyncOutcomeModel is the persistence model for the SyncOutcome domain entity.
// SourceID is the primary key, so a source item can never have two rows.
type SyncOutcomeModel struct {
	SourceID           string    `gorm:"type:varchar(255);primaryKey"`
	Handle             string    `gorm:"type:varchar(255);not null"`
	Title              string    `gorm:"type:varchar(512);not null;index:idx_sync_outcomes_title"`
	DestinationOrderID string    `gorm:"type:varchar(64);not null"`
	LastError          *string   `gorm:"type:text"`
	LastAttemptAt      time.Time `gorm:"not null;index:idx_sync_outcomes_last_attempt"`
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncOutcomeModel) TableName() string {
	return "sync_outcomes"
}

// ToDomain converts the persistence model to a domain SyncOutcome
func (m *SyncOutcomeModel) ToDomain() *integration.SyncOutcome {
	return &integration.SyncOutcome{
		SourceID:           m.SourceID,
		Handle:             m.Handle,
		Title:              m.Title,
		DestinationOrderID: m.DestinationOrderID,
		LastError:          m.LastError,
		LastAttemptAt:      m.LastAttemptAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncOutcome
func (m *SyncOutcomeModel) FromDomain(o *integration.SyncOutcome) {
	m.SourceID = o.SourceID
	m.Handle = o.Handle
	m.Title = o.Title
	m.DestinationOrderID = o.DestinationOrderID
	m.LastError = o.LastError
	m.LastAttemptAt = o.LastAttemptAt
	m.CreatedAt = o.CreatedAt
	m.UpdatedAt = o.UpdatedAt
}

// SyncOutcomeModelFromDomain creates a new persistence model from a domain SyncOutcome
func SyncOutcomeModelFromDomain(o *integration.SyncOutcome) *SyncOutcomeModel {
	m := &SyncOutcomeModel{}
	m.FromDomain(o)
	return m
}
