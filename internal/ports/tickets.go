package ports

import (
	"commitlens/internal/types"
	"context"
	"time"
)

// TicketSource resolves a ticket ID. Unknown tickets yield (nil,nil).
type TicketSource interface {
	FetchTicketInfo(ctx context.Context, ticketID string) (*types.TicketInfo, error)
}

// CommitSource supplies commits for a repository and date range.
type CommitSource interface {
	Commits(ctx context.Context, repo string, since, until time.Time) ([]types.CommitRecord, error)
}
