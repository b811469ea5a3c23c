package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/okamurashp/orgkeeper/internal/domain"
	"github.com/okamurashp/orgkeeper/internal/gateway"
)

// mockGitHub is a mock implementation of the gateway.GitHub interface.
// It allows us to simulate the behavior of the GitHub gateway without making real API calls.
type mockGitHub struct {
	mock.Mock
}

func (m *mockGitHub) ListRepositories(ctx context.Context, org string) ([]domain.Repository, error) {
	args := m.Called(ctx, org)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Repository), args.Error(1)
}

func (m *mockGitHub) CompareBranches(ctx context.Context, repo domain.Repository, base, head string) ([]gateway.Commit, error) {
	args := m.Called(ctx, repo, base, head)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]gateway.Commit), args.Error(1)
}

func (m *mockGitHub) BranchExists(ctx context.Context, repo domain.Repository, branch string) (bool, error) {
	args := m.Called(ctx, repo, branch)
	return args.Bool(0), args.Error(1)
}

func (m *mockGitHub) PullRequestsForCommit(ctx context.Context, repo domain.Repository, sha string) ([]gateway.PullRequest, error) {
	args := m.Called(ctx, repo, sha)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]gateway.PullRequest), args.Error(1)
}

func (m *mockGitHub) BranchProtection(ctx context.Context, repo domain.Repository, branch string) (*gateway.BranchProtection, error) {
	args := m.Called(ctx, repo, branch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.BranchProtection), args.Error(1)
}

func (m *mockGitHub) FileExists(ctx context.Context, repo domain.Repository, ref, path string) (bool, error) {
	args := m.Called(ctx, repo, ref, path)
	return args.Bool(0), args.Error(1)
}

func (m *mockGitHub) Issue(ctx context.Context, owner, name string, number int) (*gateway.Issue, error) {
	args := m.Called(ctx, owner, name, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Issue), args.Error(1)
}

func (m *mockGitHub) PullRequest(ctx context.Context, owner, name string, number int) (*gateway.PullRequest, error) {
	args := m.Called(ctx, owner, name, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PullRequest), args.Error(1)
}

// mockJira is a mock implementation of the JiraService interface.
type mockJira struct {
	mock.Mock
}

func (m *mockJira) GetIssue(ctx context.Context, key string) (*gateway.JiraIssue, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.JiraIssue), args.Error(1)
}

func (m *mockJira) SearchIssueKeys(ctx context.Context, project string) ([]string, error) {
	args := m.Called(ctx, project)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockJira) RemoteLinkURLs(ctx context.Context, key string) ([]string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockJira) CreateIssue(ctx context.Context, project, summary, description string) (string, error) {
	args := m.Called(ctx, project, summary, description)
	return args.String(0), args.Error(1)
}

func (m *mockJira) AddRemoteLink(ctx context.Context, key, linkURL, title string) error {
	args := m.Called(ctx, key, linkURL, title)
	return args.Error(0)
}
