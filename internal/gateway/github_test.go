package gateway

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okamurashp/orgkeeper/internal/domain"
)

// setupTestGateway creates a GitHubGateway that communicates with a mock HTTP server.
func setupTestGateway(t *testing.T, handler http.Handler) (*GitHubGateway, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	// Setup REST client to point to the mock server.
	restClient := github.NewClient(server.Client())
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	restClient.BaseURL = baseURL

	// Use NewEnterpriseClient to point the GraphQL client to our mock server's URL.
	graphqlClient := githubv4.NewEnterpriseClient(server.URL, server.Client())
	logger := log.New(io.Discard, "", 0)

	return &GitHubGateway{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		logger:        logger,
	}, server
}

func TestGitHubGateway_ListRepositories(t *testing.T) {
	t.Run("happy path - drains pagination and sorts by name", func(t *testing.T) {
		var server *httptest.Server
		gw, server := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Path, "/orgs/acme/repos")
			if r.URL.Query().Get("page") == "2" {
				fmt.Fprint(w, `[{"name": "alpha", "archived": false, "default_branch": "develop"}]`)
				return
			}
			w.Header().Set("Link", fmt.Sprintf(`<%s/orgs/acme/repos?page=2>; rel="next"`, server.URL))
			fmt.Fprint(w, `[{"name": "zulu", "archived": true, "default_branch": "main"}]`)
		}))

		repos, err := gw.ListRepositories(context.Background(), "acme")
		require.NoError(t, err)
		require.Len(t, repos, 2)
		assert.Equal(t, domain.Repository{Org: "acme", Name: "alpha", DefaultBranch: "develop"}, repos[0])
		assert.Equal(t, domain.Repository{Org: "acme", Name: "zulu", Archived: true, DefaultBranch: "main"}, repos[1])
	})

	t.Run("401 maps to AuthError", func(t *testing.T) {
		gw, _ := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"message": "Bad credentials"}`)
		}))
		_, err := gw.ListRepositories(context.Background(), "acme")
		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
	})

	t.Run("404 maps to NotFoundError naming the org", func(t *testing.T) {
		gw, _ := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message": "Not Found"}`)
		}))
		_, err := gw.ListRepositories(context.Background(), "ghost")
		var nfErr *NotFoundError
		require.ErrorAs(t, err, &nfErr)
		assert.Contains(t, nfErr.Resource, "ghost")
	})

	t.Run("primary rate limit is retried, then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		gw, _ := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.Header().Set("X-RateLimit-Limit", "60")
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Reset", "1")
				w.WriteHeader(http.StatusForbidden)
				fmt.Fprint(w, `{"message": "API rate limit exceeded"}`)
				return
			}
			fmt.Fprint(w, `[{"name": "alpha"}]`)
		}))

		repos, err := gw.ListRepositories(context.Background(), "acme")
		require.NoError(t, err)
		assert.Len(t, repos, 1)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("exhausted rate limit surfaces RateLimitError", func(t *testing.T) {
		var calls atomic.Int32
		gw, _ := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("X-RateLimit-Limit", "60")
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", "1")
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"message": "API rate limit exceeded"}`)
		}))

		_, err := gw.ListRepositories(context.Background(), "acme")
		var rateErr *RateLimitError
		require.ErrorAs(t, err, &rateErr)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("transient 500 is retried", func(t *testing.T) {
		var calls atomic.Int32
		gw, _ := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, `{"message": "Internal Server Error"}`)
				return
			}
			fmt.Fprint(w, `[{"name": "alpha"}]`)
		}))

		repos, err := gw.ListRepositories(context.Background(), "acme")
		require.NoError(t, err)
		assert.Len(t, repos, 1)
		assert.Equal(t, int32(2), calls.Load())
	})
}

func TestGitHubGateway_CompareBranches(t *testing.T) {
	t.Run("happy path - returns commits oldest first", func(t *testing.T) {
		gw, _ := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Path, "/repos/acme/widget/compare/master...develop")
			fmt.Fprint(w, `{"commits": [
				{"sha": "aaa", "commit": {"message": "first", "committer": {"date": "2026-02-01T10:00:00Z"}}},
				{"sha": "bbb", "commit": {"message": "second", "committer": {"date": "2026-02-02T10:00:00Z"}}}
			]}`)
		}))

		repo := domain.Repository{Org: "acme", Name: "widget"}
		commits, err := gw.CompareBranches(context.Background(), repo, "master", "develop")
		require.NoError(t, err)
		require.Len(t, commits, 2)
		assert.Equal(t, "aaa", commits[0].SHA)
		assert.Equal(t, "first", commits[0].Message)
		assert.False(t, commits[0].CommittedAt.IsZero())
	})

	t.Run("missing head branch yields BranchNotFoundError", func(t *testing.T) {
		gw, _ := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.URL.Path == "/repos/acme/widget/branches/master":
				fmt.Fprint(w, `{"name": "master"}`)
			default:
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"message": "Not Found"}`)
			}
		}))

		repo := domain.Repository{Org: "acme", Name: "widget"}
		_, err := gw.CompareBranches(context.Background(), repo, "master", "develop")
		var branchErr *BranchNotFoundError
		require.ErrorAs(t, err, &branchErr)
		assert.Equal(t, "develop", branchErr.Branch)
		assert.Equal(t, "acme/widget", branchErr.Repo)
	})
}

func TestGitHubGateway_PullRequestsForCommit(t *testing.T) {
	gw, _ := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"repository": {"object": {"associatedPullRequests": {"nodes": [{
			"number": 124,
			"title": "fix: null check",
			"body": "Related Jira Key: ABC-12",
			"url": "https://github.com/acme/widget/pull/124",
			"merged": true,
			"createdAt": "2026-02-08T09:00:00Z",
			"mergedAt": "2026-02-10T09:00:00Z",
			"author": {"login": "dev"},
			"labels": {"nodes": [{"name": "bug"}]}
		}]}}}}}`)
	}))

	repo := domain.Repository{Org: "acme", Name: "widget"}
	prs, err := gw.PullRequestsForCommit(context.Background(), repo, "aaa")
	require.NoError(t, err)
	require.Len(t, prs, 1)
	assert.Equal(t, 124, prs[0].Number)
	assert.Equal(t, "fix: null check", prs[0].Title)
	assert.Equal(t, "dev", prs[0].Author)
	assert.True(t, prs[0].Merged)
	assert.Equal(t, []string{"bug"}, prs[0].Labels)
	assert.True(t, prs[0].MergedAt.After(prs[0].CreatedAt))
}

func TestGitHubGateway_BranchProtection(t *testing.T) {
	t.Run("protected branch", func(t *testing.T) {
		gw, _ := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Path, "/repos/acme/widget/branches/develop/protection")
			fmt.Fprint(w, `{
				"required_status_checks": {"strict": true, "contexts": []},
				"enforce_admins": {"enabled": true},
				"required_pull_request_reviews": {"required_approving_review_count": 2, "require_code_owner_reviews": true, "dismiss_stale_reviews": true},
				"allow_deletions": {"enabled": false},
				"allow_force_pushes": {"enabled": true},
				"restrictions": {"users": [], "teams": [], "apps": []}
			}`)
		}))
		repo := domain.Repository{Org: "acme", Name: "widget"}
		prot, err := gw.BranchProtection(context.Background(), repo, "develop")
		require.NoError(t, err)
		assert.True(t, prot.Protected)
		assert.Equal(t, 2, prot.RequiredApprovals)
		assert.True(t, prot.RequiresStatusChecks)
		assert.True(t, prot.EnforceAdmins)
		assert.True(t, prot.RequiresCodeOwnerReview)
		assert.True(t, prot.DismissStaleReviews)
		assert.False(t, prot.AllowDeletions)
		assert.True(t, prot.AllowForcePushes)
		assert.True(t, prot.RestrictsPushes)
	})

	t.Run("unprotected branch yields zero-value summary", func(t *testing.T) {
		gw, _ := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message": "Branch not protected"}`)
		}))
		repo := domain.Repository{Org: "acme", Name: "widget"}
		prot, err := gw.BranchProtection(context.Background(), repo, "develop")
		require.NoError(t, err)
		assert.False(t, prot.Protected)
	})
}

func TestGitHubGateway_FileExists(t *testing.T) {
	gw, _ := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/repos/acme/widget/contents/.github/dependabot.yml" {
			fmt.Fprint(w, `{"name": "dependabot.yml", "type": "file"}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	}))

	repo := domain.Repository{Org: "acme", Name: "widget"}
	exists, err := gw.FileExists(context.Background(), repo, "develop", ".github/dependabot.yml")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = gw.FileExists(context.Background(), repo, "develop", "docs/ISSUE_TEMPLATE.md")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGitHubGateway_BranchExists(t *testing.T) {
	gw, _ := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/repos/acme/widget/branches/develop" {
			fmt.Fprint(w, `{"name": "develop"}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	}))

	repo := domain.Repository{Org: "acme", Name: "widget"}
	exists, err := gw.BranchExists(context.Background(), repo, "develop")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = gw.BranchExists(context.Background(), repo, "gone")
	require.NoError(t, err)
	assert.False(t, exists)
}
