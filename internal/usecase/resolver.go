// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/okamurashp/orgkeeper/internal/domain"
	"github.com/okamurashp/orgkeeper/internal/gateway"
)

var (
	ticketPattern  = regexp.MustCompile(`\b[A-Z][A-Z0-9]+-\d+\b`)
	htmlComment    = regexp.MustCompile(`(?s)<!--.*?-->`)
	multipleSpaces = regexp.MustCompile(`\s+`)
)

// Resolver turns a branch-pair comparison into the ordered list of logical
// changes for one repository.
type Resolver struct {
	gh     gateway.GitHub
	logger *log.Logger
}

// NewResolver creates a new Resolver instance.
func NewResolver(gh gateway.GitHub, logger *log.Logger) *Resolver {
	return &Resolver{gh: gh, logger: logger}
}

// Resolve maps every commit between stable and release to the pull request
// that merged it, oldest first. A pull request reached through several commits
// yields a single change; commits with no merged pull request become
// direct-commit changes identified by their SHA.
func (r *Resolver) Resolve(ctx context.Context, repo domain.Repository, branches domain.BranchPair) ([]domain.Change, error) {
	commits, err := r.gh.CompareBranches(ctx, repo, branches.Stable, branches.Release)
	if err != nil {
		return nil, err
	}
	r.logger.Printf("%s: %d commits between %s and %s", repo.FullName(), len(commits), branches.Stable, branches.Release)

	seen := make(map[int]bool)
	var changes []domain.Change
	for _, commit := range commits {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		prs, err := r.gh.PullRequestsForCommit(ctx, repo, commit.SHA)
		if err != nil {
			// A failed lookup downgrades the commit to a direct-commit entry
			// instead of aborting the repository.
			r.logger.Printf("%s: could not resolve pull requests for commit %s: %v", repo.FullName(), commit.SHA, err)
			prs = nil
		}
		var merged *gateway.PullRequest
		for i := range prs {
			if prs[i].Merged {
				merged = &prs[i]
				break
			}
		}
		if merged == nil {
			changes = append(changes, directCommitChange(repo, commit))
			continue
		}
		if seen[merged.Number] {
			continue
		}
		seen[merged.Number] = true
		changes = append(changes, changeFromPullRequest(repo, *merged))
	}
	return changes, nil
}

func changeFromPullRequest(repo domain.Repository, pr gateway.PullRequest) domain.Change {
	return domain.Change{
		ID:        strconv.Itoa(pr.Number),
		PRNumber:  pr.Number,
		Title:     sanitizeTitle(pr.Title),
		Author:    pr.Author,
		URL:       pr.URL,
		CreatedAt: pr.CreatedAt,
		MergedAt:  pr.MergedAt,
		Labels:    pr.Labels,
		Ticket:    extractTicket(pr.Title, pr.Body),
		Repo:      repo.FullName(),
	}
}

func directCommitChange(repo domain.Repository, commit gateway.Commit) domain.Change {
	title, _, _ := strings.Cut(commit.Message, "\n")
	return domain.Change{
		ID:       commit.SHA,
		Title:    sanitizeTitle(title),
		MergedAt: commit.CommittedAt,
		Ticket:   extractTicket(title, ""),
		Repo:     repo.FullName(),
	}
}

// extractTicket returns the first ticket reference found, scanning the title
// before the body. HTML comments are stripped first so that templated,
// commented-out examples in PR bodies do not match.
func extractTicket(title, body string) string {
	if m := ticketPattern.FindString(title); m != "" {
		return m
	}
	return ticketPattern.FindString(htmlComment.ReplaceAllString(body, ""))
}

// sanitizeTitle trims the title and collapses runs of whitespace.
func sanitizeTitle(title string) string {
	return multipleSpaces.ReplaceAllString(strings.TrimSpace(title), " ")
}
