package domain

// Outcome is the terminal state a repository reaches during a run.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeResolved
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "pending"
	}
}

// RepoResult records the terminal state of one repository and, for non-resolved
// outcomes, the reason.
type RepoResult struct {
	Repo    string
	Outcome Outcome
	Reason  string
}

// RunReport accumulates per-repository and per-organization outcomes. It is
// assembled sequentially after the worker join, so it needs no locking.
type RunReport struct {
	Results     []RepoResult
	SkippedOrgs []RepoResult // organizations whose listing failed
}

// Resolved returns the number of repositories that reached OutcomeResolved.
func (r *RunReport) Resolved() int {
	var n int
	for _, res := range r.Results {
		if res.Outcome == OutcomeResolved {
			n++
		}
	}
	return n
}

// NotResolved returns every repository entry that ended in a non-resolved state.
func (r *RunReport) NotResolved() []RepoResult {
	var out []RepoResult
	for _, res := range r.Results {
		if res.Outcome != OutcomeResolved {
			out = append(out, res)
		}
	}
	return out
}
