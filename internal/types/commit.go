package types

import "time"

// CommitRecord is what a commit source hands to the correlation step.
type CommitRecord struct {
	Hash         string    `json:"hash"`
	AuthorEmail  string    `json:"authorEmail"`
	AuthorName   string    `json:"authorName,omitempty"`
	Message      string    `json:"message"`
	ChangedFiles []string  `json:"changedFiles,omitempty"`
	When         time.Time `json:"when"`
}

// TicketInfo is the issue tracker's view of a ticket.
type TicketInfo struct {
	ID      string   `json:"id"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

// CommitRow is one commit joined with its author and referenced tickets.
// Author is nil when the directory has no such employee.
type CommitRow struct {
	Commit  CommitRecord    `json:"commit"`
	Author  *EmployeeRecord `json:"author,omitempty"`
	Tickets []TicketInfo    `json:"tickets,omitempty"`
}
