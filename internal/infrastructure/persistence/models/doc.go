// Package models contains GORM persistence models that map to database tables.
// Models are kept apart from domain entities; each model carries the GORM tags
// and the ToDomain/FromDomain mappers for its entity.
package models

// All returns every persistence model, in migration order
func All() []any {
	return []any{
		&SyncOutcomeModel{},
	}
}
