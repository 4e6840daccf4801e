package types

import (
	"strings"
	"time"
)

// EmployeeRecord is one employee as resolved from the directory.
// Email is the primary key; it is stored as received and compared case-insensitively (see EmailKey).
// Team and Title hold the catalog-resolved names, falling back to the raw upstream value.
// The *ID fields keep the raw upstream identifiers for debugging and re-resolution.
type EmployeeRecord struct {
	Email        string `json:"email"`
	DisplayName  string `json:"name"`
	Team         string `json:"team"`
	Title        string `json:"title"`
	Manager      string `json:"manager"`
	DepartmentID string `json:"departmentId,omitempty"`
	TitleID      string `json:"titleId,omitempty"`
	SiteID       string `json:"siteId,omitempty"`
	TeamID       string `json:"teamId,omitempty"`
}

// CacheEntry wraps a record with the time it was fetched. Expiry is global, not per entry.
// The record is embedded so the persisted form is flat.
type CacheEntry struct {
	EmployeeRecord
	Timestamp time.Time `json:"timestamp"`
}

// CacheState is the persisted mirror of the directory cache.
// LastCacheUpdate is kept as text so a corrupt value degrades to "stale" instead of failing the load.
type CacheState struct {
	Employees       map[string]CacheEntry `json:"employees"`
	LastCacheUpdate string                `json:"lastCacheUpdate"`
}

// LastUpdate parses LastCacheUpdate. A missing or malformed value yields the zero time,
// which every staleness check treats as maximally stale.
func (s CacheState) LastUpdate() time.Time {
	if s.LastCacheUpdate == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.LastCacheUpdate)
	if err != nil {
		return time.Time{}
	}
	return t
}

// EmailKey is the lookup form of an email address: trimmed and lowercased.
func EmailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
