// Package domain contains the core data structures and domain logic for the application.
package domain

import "time"

// Repository identifies one repository discovered while listing an organization.
type Repository struct {
	Org           string `json:"org"`
	Name          string `json:"name"`
	Archived      bool   `json:"archived"`
	DefaultBranch string `json:"default_branch"`
}

// FullName returns the "org/name" form used by the GitHub API and in all output.
func (r Repository) FullName() string {
	return r.Org + "/" + r.Name
}

// BranchPair names the two branches whose difference makes up a release.
type BranchPair struct {
	Release string
	Stable  string
}

// Change is one logical unit of work between the stable and release branches:
// a merged pull request, or a commit with no associated pull request.
type Change struct {
	// ID is the PR number as a string, or the commit SHA for direct commits.
	// Unique within a repository.
	ID        string
	PRNumber  int // 0 for direct commits
	Title     string
	Author    string
	URL       string
	CreatedAt time.Time
	MergedAt  time.Time
	Labels    []string

	// Ticket is the linked issue-tracker key ("ABC-12"), empty when none was found.
	Ticket        string
	TicketSummary string
	TicketType    string
	TicketStatus  string
	EpicKey       string

	Repo string
}

// IsDirectCommit reports whether the change was synthesized from a bare commit.
func (c Change) IsDirectCommit() bool {
	return c.PRNumber == 0
}
