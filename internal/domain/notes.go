package domain

import "time"

// RepoNotes is the categorized change set of a single repository. Sections
// always appear in CategoryOrder, including empty ones, so the rendered
// document reflects the scanned repository set rather than the non-empty subset.
type RepoNotes struct {
	Repository Repository
	Sections   []Section
}

// ChangeCount returns the number of changes across all sections.
func (rn RepoNotes) ChangeCount() int {
	var n int
	for _, s := range rn.Sections {
		n += len(s.Changes)
	}
	return n
}

// ReleaseNotes is the fully assembled document model for one run. It is
// immutable after the orchestrator's join barrier; rendering only reads it.
type ReleaseNotes struct {
	Version       string
	Organizations []string
	Branches      BranchPair
	GeneratedAt   time.Time
	Repos         []RepoNotes
	Report        RunReport
}

// HasChanges reports whether any repository contributed at least one change.
// The caller uses this to refuse writing an empty document.
func (n *ReleaseNotes) HasChanges() bool {
	for _, r := range n.Repos {
		if r.ChangeCount() > 0 {
			return true
		}
	}
	return false
}
