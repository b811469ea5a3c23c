package usecase

import (
	"context"

	"github.com/okamurashp/orgkeeper/internal/gateway"
)

// JiraService is the slice of the Jira client the usecases consume. Satisfied
// by *gateway.JiraClient.
type JiraService interface {
	GetIssue(ctx context.Context, key string) (*gateway.JiraIssue, error)
	SearchIssueKeys(ctx context.Context, project string) ([]string, error)
	RemoteLinkURLs(ctx context.Context, key string) ([]string, error)
	CreateIssue(ctx context.Context, project, summary, description string) (string, error)
	AddRemoteLink(ctx context.Context, key, linkURL, title string) error
}
