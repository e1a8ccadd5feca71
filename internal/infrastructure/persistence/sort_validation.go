package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.ToLower(strings.TrimSpace(sortField))
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// OutcomeSortFields contains the sync_outcomes columns a listing may order by
var OutcomeSortFields = map[string]bool{
	"title":           true,
	"handle":          true,
	"source_id":       true,
	"last_attempt_at": true,
	"updated_at":      true,
}

// outcomeOrder returns the ORDER BY clause for a listing. Without an explicit
// field the listing is alphabetical by title.
func outcomeOrder(sortBy, sortOrder string) string {
	if strings.TrimSpace(sortBy) == "" {
		return "title ASC"
	}
	return ValidateSortField(sortBy, OutcomeSortFields, "title") + " " + ValidateSortOrder(sortOrder)
}
