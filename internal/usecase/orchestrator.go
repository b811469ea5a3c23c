package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okamurashp/orgkeeper/internal/domain"
	"github.com/okamurashp/orgkeeper/internal/gateway"
)

const defaultConcurrency = 4

// RunConfig is the single configuration value handed to the orchestrator; the
// CLI owns flag parsing and builds one of these.
type RunConfig struct {
	Organizations []string
	Branches      domain.BranchPair
	Version       string
	// Skip lists full repository names excluded from the run.
	Skip        []string
	Concurrency int
	// Timeout bounds the whole run. Zero means no limit. On expiry the
	// already-resolved repositories still render.
	Timeout time.Duration
}

// Orchestrator drives a release-notes run: organization listing, the bounded
// per-repository worker pool, outcome bookkeeping and the join barrier before
// rendering. A nil jira disables ticket enrichment.
type Orchestrator struct {
	gh     gateway.GitHub
	jira   JiraService
	logger *log.Logger
}

// NewOrchestrator creates a new Orchestrator instance.
func NewOrchestrator(gh gateway.GitHub, jira JiraService, logger *log.Logger) *Orchestrator {
	return &Orchestrator{gh: gh, jira: jira, logger: logger}
}

// repoSlot is one worker's private result cell. Each worker writes only its
// own index, so the pool shares no mutable state.
type repoSlot struct {
	result domain.RepoResult
	notes  *domain.RepoNotes
}

// Run produces the release notes document model, or an error when nothing at
// all could be resolved. Per-repository failures never abort the run; they end
// up in the report and in the document's trailer sections.
func (o *Orchestrator) Run(ctx context.Context, cfg RunConfig, generatedAt time.Time) (*domain.ReleaseNotes, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	var report domain.RunReport
	var repos []domain.Repository
	for _, org := range cfg.Organizations {
		listed, err := o.gh.ListRepositories(ctx, org)
		if err != nil {
			var authErr *gateway.AuthError
			if errors.As(err, &authErr) {
				return nil, err
			}
			o.logger.Printf("Skipping org %s: %v", org, err)
			report.SkippedOrgs = append(report.SkippedOrgs, domain.RepoResult{
				Repo:    org,
				Outcome: domain.OutcomeFailed,
				Reason:  err.Error(),
			})
			continue
		}
		repos = append(repos, listed...)
	}
	if len(cfg.Organizations) > 0 && len(report.SkippedOrgs) == len(cfg.Organizations) {
		return nil, fmt.Errorf("listing failed for every requested organization")
	}

	skip := make(map[string]bool, len(cfg.Skip))
	for _, name := range cfg.Skip {
		skip[name] = true
	}

	resolver := NewResolver(o.gh, o.logger)
	slots := make([]repoSlot, len(repos))
	eg := new(errgroup.Group)
	eg.SetLimit(cfg.Concurrency)
	for i, repo := range repos {
		i, repo := i, repo
		eg.Go(func() error {
			slots[i] = o.processRepo(ctx, resolver, repo, cfg, skip)
			return nil
		})
	}
	// Join barrier: rendering must not start before every repository reached a
	// terminal state.
	_ = eg.Wait()

	notes := &domain.ReleaseNotes{
		Version:       cfg.Version,
		Organizations: cfg.Organizations,
		Branches:      cfg.Branches,
		GeneratedAt:   generatedAt,
	}
	for _, slot := range slots {
		report.Results = append(report.Results, slot.result)
		if slot.notes != nil {
			notes.Repos = append(notes.Repos, *slot.notes)
		}
	}
	notes.Report = report

	if report.Resolved() == 0 {
		return nil, fmt.Errorf("no repositories resolved: nothing to render")
	}
	return notes, nil
}

func (o *Orchestrator) processRepo(ctx context.Context, resolver *Resolver, repo domain.Repository, cfg RunConfig, skip map[string]bool) repoSlot {
	result := domain.RepoResult{Repo: repo.FullName()}
	if repo.Archived {
		o.logger.Printf("%s: archived repository, skipping it", repo.FullName())
		result.Outcome = domain.OutcomeSkipped
		result.Reason = "archived repository"
		return repoSlot{result: result}
	}
	if skip[repo.FullName()] {
		o.logger.Printf("%s: excluded repository, skipping it", repo.FullName())
		result.Outcome = domain.OutcomeSkipped
		result.Reason = "excluded repository"
		return repoSlot{result: result}
	}

	changes, err := resolver.Resolve(ctx, repo, cfg.Branches)
	if err != nil {
		result.Outcome, result.Reason = classifyRepoError(ctx, err)
		o.logger.Printf("%s: %s (%s)", repo.FullName(), result.Reason, result.Outcome)
		return repoSlot{result: result}
	}
	if o.jira != nil {
		o.enrichTickets(ctx, changes)
	}
	result.Outcome = domain.OutcomeResolved
	return repoSlot{
		result: result,
		notes: &domain.RepoNotes{
			Repository: repo,
			Sections:   BuildSections(changes),
		},
	}
}

// classifyRepoError converts a resolution error into the repository's terminal
// state. Branch and rate-limit problems are skips; anything else is a failure.
func classifyRepoError(ctx context.Context, err error) (domain.Outcome, string) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.OutcomeSkipped, "timeout"
	}
	var branchErr *gateway.BranchNotFoundError
	if errors.As(err, &branchErr) {
		return domain.OutcomeSkipped, fmt.Sprintf("branch %q does not exist", branchErr.Branch)
	}
	var rateErr *gateway.RateLimitError
	if errors.As(err, &rateErr) {
		return domain.OutcomeSkipped, err.Error()
	}
	return domain.OutcomeFailed, err.Error()
}

// enrichTickets resolves each distinct ticket once and copies the Jira fields
// onto every change carrying it. Lookup failures degrade to the bare key.
func (o *Orchestrator) enrichTickets(ctx context.Context, changes []domain.Change) {
	cache := make(map[string]*gateway.JiraIssue)
	for i := range changes {
		key := changes[i].Ticket
		if key == "" {
			continue
		}
		issue, cached := cache[key]
		if !cached {
			var err error
			issue, err = o.jira.GetIssue(ctx, key)
			if err != nil {
				o.logger.Printf("could not enrich ticket %s: %v", key, err)
				issue = nil
			}
			cache[key] = issue
		}
		if issue == nil {
			continue
		}
		changes[i].TicketSummary = issue.Summary
		changes[i].TicketType = issue.Type
		changes[i].TicketStatus = issue.Status
		changes[i].EpicKey = issue.ParentKey
	}
}
