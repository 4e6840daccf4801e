package ports

import (
	"commitlens/internal/types"
	"context"
)

// DirectoryFetcher retrieves the complete employee roster keyed by email.
// An empty map with a nil error is still a failed fetch from the cache's point of view.
type DirectoryFetcher interface {
	FetchAll(ctx context.Context) (map[string]types.EmployeeRecord, error)
}

// EmployeeLookup resolves an author email to an employee.
type EmployeeLookup interface {
	Lookup(ctx context.Context, email string) (*types.EmployeeRecord, bool)
}
