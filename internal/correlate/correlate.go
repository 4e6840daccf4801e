// Package correlate joins commits with the employee directory and the issue tracker.
package correlate

import (
	"commitlens/internal/ports"
	"commitlens/internal/types"
	"context"
	"regexp"
	"time"

	log "github.com/sirupsen/logrus"
)

var ticketPattern = regexp.MustCompile(`\b[A-Z][A-Z0-9]+-\d+\b`)

// TicketIDs returns the distinct ticket references in msg, in order of first appearance.
func TicketIDs(msg string) []string {
	found := ticketPattern.FindAllString(msg, -1)
	seen := make(map[string]struct{}, len(found))
	out := make([]string, 0, len(found))
	for _, id := range found {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

type Correlator struct {
	people  ports.EmployeeLookup
	tickets ports.TicketSource
}

// New returns a Correlator. tickets may be nil, in which case rows carry no ticket data.
func New(people ports.EmployeeLookup, tickets ports.TicketSource) *Correlator {
	return &Correlator{people: people, tickets: tickets}
}

// Rows builds one row per commit, preserving input order. Unknown authors and unresolvable
// tickets are not errors; only context cancellation stops the run.
func (c *Correlator) Rows(ctx context.Context, commits []types.CommitRecord) ([]types.CommitRow, error) {
	rows := make([]types.CommitRow, 0, len(commits))
	resolved := map[string]*types.TicketInfo{}

	for _, cm := range commits {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		row := types.CommitRow{Commit: cm}
		if rec, ok := c.people.Lookup(ctx, cm.AuthorEmail); ok {
			row.Author = rec
		}
		for _, id := range TicketIDs(cm.Message) {
			ti, ok := resolved[id]
			if !ok {
				ti = c.ticket(ctx, id)
				resolved[id] = ti
			}
			if ti != nil {
				row.Tickets = append(row.Tickets, *ti)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FromSource pulls commits from src and correlates them.
func (c *Correlator) FromSource(ctx context.Context, src ports.CommitSource, repo string, since, until time.Time) ([]types.CommitRow, error) {
	commits, err := src.Commits(ctx, repo, since, until)
	if err != nil {
		return nil, err
	}
	return c.Rows(ctx, commits)
}

func (c *Correlator) ticket(ctx context.Context, id string) *types.TicketInfo {
	if c.tickets == nil {
		return nil
	}
	ti, err := c.tickets.FetchTicketInfo(ctx, id)
	if err != nil {
		log.WithError(err).WithField("ticket", id).Warn("ticket lookup failed")
		return nil
	}
	return ti
}
