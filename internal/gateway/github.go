// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/okamurashp/orgkeeper/internal/domain"
)

// Commit is one raw commit descriptor from a branch comparison, oldest first.
type Commit struct {
	SHA         string
	Message     string
	CommittedAt time.Time
}

// PullRequest is the metadata of a pull request associated with a commit.
type PullRequest struct {
	Number    int
	Title     string
	Body      string
	Author    string
	URL       string
	Merged    bool
	CreatedAt time.Time
	MergedAt  time.Time
	Labels    []string
}

// BranchProtection summarizes the protection settings the auditor cares about.
type BranchProtection struct {
	Protected               bool
	RequiredApprovals       int
	RequiresStatusChecks    bool
	EnforceAdmins           bool
	RequiresCodeOwnerReview bool
	DismissStaleReviews     bool
	AllowDeletions          bool
	AllowForcePushes        bool
	RestrictsPushes         bool
}

// Issue is a GitHub issue, fetched for Jira mirroring.
type Issue struct {
	Number int
	Title  string
	Body   string
	URL    string
	Author string
}

// GitHub defines the behavior of a gateway for fetching information from GitHub.
type GitHub interface {
	ListRepositories(ctx context.Context, org string) ([]domain.Repository, error)
	CompareBranches(ctx context.Context, repo domain.Repository, base, head string) ([]Commit, error)
	BranchExists(ctx context.Context, repo domain.Repository, branch string) (bool, error)
	PullRequestsForCommit(ctx context.Context, repo domain.Repository, sha string) ([]PullRequest, error)
	BranchProtection(ctx context.Context, repo domain.Repository, branch string) (*BranchProtection, error)
	FileExists(ctx context.Context, repo domain.Repository, ref, path string) (bool, error)
	Issue(ctx context.Context, owner, name string, number int) (*Issue, error)
	PullRequest(ctx context.Context, owner, name string, number int) (*PullRequest, error)
}

// GitHubGateway is the concrete implementation of the GitHub interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        *log.Logger
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(token string, logger *log.Logger) (*GitHubGateway, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	return &GitHubGateway{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		logger:        logger,
	}, nil
}

// ListRepositories returns every repository of the organization, sorted by
// name, with pagination fully drained.
func (g *GitHubGateway) ListRepositories(ctx context.Context, org string) ([]domain.Repository, error) {
	g.logger.Printf("Listing repositories for org %s...", org)
	opts := &github.RepositoryListByOrgOptions{ListOptions: github.ListOptions{PerPage: 100}}
	var repos []domain.Repository
	for {
		var page []*github.Repository
		var resp *github.Response
		err := withRetry(ctx, g.logger, "list repositories", func() error {
			var err error
			page, resp, err = g.restClient.Repositories.ListByOrg(ctx, org, opts)
			return err
		})
		if err != nil {
			return nil, classify(err, fmt.Sprintf("organization %q", org))
		}
		for _, r := range page {
			repos = append(repos, domain.Repository{
				Org:           org,
				Name:          r.GetName(),
				Archived:      r.GetArchived(),
				DefaultBranch: r.GetDefaultBranch(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Println("  Fetching next page of repositories...")
	}
	sort.Slice(repos, func(i, j int) bool { return repos[i].Name < repos[j].Name })
	g.logger.Printf("Found %d repositories in org %s.", len(repos), org)
	return repos, nil
}

// CompareBranches returns the commits reachable from head but not base, oldest
// first. A 404 is probed so the error names which of the two branches is missing.
func (g *GitHubGateway) CompareBranches(ctx context.Context, repo domain.Repository, base, head string) ([]Commit, error) {
	opts := &github.ListOptions{PerPage: 100}
	var commits []Commit
	for {
		var cmp *github.CommitsComparison
		var resp *github.Response
		err := withRetry(ctx, g.logger, "compare branches", func() error {
			var err error
			cmp, resp, err = g.restClient.Repositories.CompareCommits(ctx, repo.Org, repo.Name, base, head, opts)
			return err
		})
		if err != nil {
			if isNotFound(err) {
				if missing := g.missingBranch(ctx, repo, base, head); missing != nil {
					return nil, missing
				}
			}
			return nil, classify(err, fmt.Sprintf("comparison %s...%s in %s", base, head, repo.FullName()))
		}
		for _, rc := range cmp.Commits {
			commits = append(commits, Commit{
				SHA:         rc.GetSHA(),
				Message:     rc.GetCommit().GetMessage(),
				CommittedAt: rc.GetCommit().GetCommitter().GetDate().Time,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Printf("  Fetching next page of compared commits for %s...", repo.FullName())
	}
	return commits, nil
}

// BranchExists reports whether the branch exists in the repository.
func (g *GitHubGateway) BranchExists(ctx context.Context, repo domain.Repository, branch string) (bool, error) {
	err := withRetry(ctx, g.logger, "get branch", func() error {
		_, _, err := g.restClient.Repositories.GetBranch(ctx, repo.Org, repo.Name, branch, 0)
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classify(err, fmt.Sprintf("branch %s in %s", branch, repo.FullName()))
	}
	return true, nil
}

// missingBranch probes base then head and names the first branch that does not
// exist, or nil when both resolve (the 404 had another cause).
func (g *GitHubGateway) missingBranch(ctx context.Context, repo domain.Repository, base, head string) error {
	for _, branch := range []string{base, head} {
		_, _, err := g.restClient.Repositories.GetBranch(ctx, repo.Org, repo.Name, branch, 0)
		if err != nil && isNotFound(err) {
			return &BranchNotFoundError{Repo: repo.FullName(), Branch: branch}
		}
	}
	return nil
}

// associatedPRsQuery fetches the pull requests associated with one commit. The
// GraphQL form returns everything the resolver needs in a single round trip,
// where REST would take one extra call per PR to see labels and timestamps.
type associatedPRsQuery struct {
	Repository struct {
		Object struct {
			Commit struct {
				AssociatedPullRequests struct {
					Nodes []struct {
						Number    int
						Title     string
						Body      string
						URL       string `graphql:"url"`
						Merged    bool
						CreatedAt githubv4.DateTime
						MergedAt  githubv4.DateTime
						Author    struct {
							Login string
						}
						Labels struct {
							Nodes []struct {
								Name string
							}
						} `graphql:"labels(first: 20)"`
					}
				} `graphql:"associatedPullRequests(first: 10)"`
			} `graphql:"... on Commit"`
		} `graphql:"object(oid: $sha)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// PullRequestsForCommit returns the pull requests that carried the commit into
// the repository, in the order GitHub associates them.
func (g *GitHubGateway) PullRequestsForCommit(ctx context.Context, repo domain.Repository, sha string) ([]PullRequest, error) {
	variables := map[string]interface{}{
		"owner": githubv4.String(repo.Org),
		"name":  githubv4.String(repo.Name),
		"sha":   githubv4.GitObjectID(sha),
	}
	var q associatedPRsQuery
	err := withRetry(ctx, g.logger, "associated pull requests", func() error {
		return g.graphqlClient.Query(ctx, &q, variables)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query pull requests for commit %s: %w", sha, err)
	}
	var prs []PullRequest
	for _, node := range q.Repository.Object.Commit.AssociatedPullRequests.Nodes {
		pr := PullRequest{
			Number:    node.Number,
			Title:     node.Title,
			Body:      node.Body,
			URL:       node.URL,
			Author:    node.Author.Login,
			Merged:    node.Merged,
			CreatedAt: node.CreatedAt.Time,
			MergedAt:  node.MergedAt.Time,
		}
		for _, l := range node.Labels.Nodes {
			pr.Labels = append(pr.Labels, l.Name)
		}
		prs = append(prs, pr)
	}
	return prs, nil
}

// BranchProtection returns the protection summary for one branch. An
// unprotected branch yields a zero-value summary, not an error.
func (g *GitHubGateway) BranchProtection(ctx context.Context, repo domain.Repository, branch string) (*BranchProtection, error) {
	var prot *github.Protection
	err := withRetry(ctx, g.logger, "branch protection", func() error {
		var err error
		prot, _, err = g.restClient.Repositories.GetBranchProtection(ctx, repo.Org, repo.Name, branch)
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return &BranchProtection{}, nil
		}
		return nil, classify(err, fmt.Sprintf("branch protection for %s@%s", repo.FullName(), branch))
	}
	bp := &BranchProtection{
		Protected:            true,
		RequiresStatusChecks: prot.GetRequiredStatusChecks() != nil,
		RestrictsPushes:      prot.GetRestrictions() != nil,
	}
	if admins := prot.GetEnforceAdmins(); admins != nil {
		bp.EnforceAdmins = admins.Enabled
	}
	if reviews := prot.GetRequiredPullRequestReviews(); reviews != nil {
		bp.RequiredApprovals = reviews.RequiredApprovingReviewCount
		bp.RequiresCodeOwnerReview = reviews.RequireCodeOwnerReviews
		bp.DismissStaleReviews = reviews.DismissStaleReviews
	}
	if del := prot.GetAllowDeletions(); del != nil {
		bp.AllowDeletions = del.Enabled
	}
	if fp := prot.GetAllowForcePushes(); fp != nil {
		bp.AllowForcePushes = fp.Enabled
	}
	return bp, nil
}

// FileExists reports whether path exists on the given ref.
func (g *GitHubGateway) FileExists(ctx context.Context, repo domain.Repository, ref, path string) (bool, error) {
	opts := &github.RepositoryContentGetOptions{Ref: ref}
	err := withRetry(ctx, g.logger, "get contents", func() error {
		_, _, _, err := g.restClient.Repositories.GetContents(ctx, repo.Org, repo.Name, path, opts)
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classify(err, fmt.Sprintf("contents %s in %s", path, repo.FullName()))
	}
	return true, nil
}

// Issue fetches one issue for mirroring.
func (g *GitHubGateway) Issue(ctx context.Context, owner, name string, number int) (*Issue, error) {
	var issue *github.Issue
	err := withRetry(ctx, g.logger, "get issue", func() error {
		var err error
		issue, _, err = g.restClient.Issues.Get(ctx, owner, name, number)
		return err
	})
	if err != nil {
		return nil, classify(err, fmt.Sprintf("issue %s/%s#%d", owner, name, number))
	}
	return &Issue{
		Number: issue.GetNumber(),
		Title:  issue.GetTitle(),
		Body:   issue.GetBody(),
		URL:    issue.GetHTMLURL(),
		Author: issue.GetUser().GetLogin(),
	}, nil
}

// PullRequest fetches one pull request for mirroring.
func (g *GitHubGateway) PullRequest(ctx context.Context, owner, name string, number int) (*PullRequest, error) {
	var pr *github.PullRequest
	err := withRetry(ctx, g.logger, "get pull request", func() error {
		var err error
		pr, _, err = g.restClient.PullRequests.Get(ctx, owner, name, number)
		return err
	})
	if err != nil {
		return nil, classify(err, fmt.Sprintf("pull request %s/%s#%d", owner, name, number))
	}
	out := &PullRequest{
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		Body:      pr.GetBody(),
		URL:       pr.GetHTMLURL(),
		Author:    pr.GetUser().GetLogin(),
		Merged:    pr.GetMerged(),
		CreatedAt: pr.GetCreatedAt().Time,
		MergedAt:  pr.GetMergedAt().Time,
	}
	for _, l := range pr.Labels {
		out.Labels = append(out.Labels, l.GetName())
	}
	return out, nil
}
