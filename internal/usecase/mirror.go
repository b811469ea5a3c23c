package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/okamurashp/orgkeeper/internal/gateway"
)

const (
	dependabotLogin  = "dependabot[bot]"
	defaultComponent = "Infrastructure"
)

// MirrorRequest identifies one GitHub issue or pull request to mirror into a
// Jira project. Exactly one of IssueNumber/PRNumber is set.
type MirrorRequest struct {
	Owner       string
	Repo        string
	IssueNumber int
	PRNumber    int
	Project     string
}

// MirrorResult reports what the mirror run did.
type MirrorResult struct {
	Created  bool
	IssueKey string
	Reason   string
}

// Mirrorer creates Jira tasks for GitHub issues and dependabot pull requests,
// linking each task back to its GitHub URL and never creating duplicates.
type Mirrorer struct {
	gh     gateway.GitHub
	jira   JiraService
	logger *log.Logger
}

// NewMirrorer creates a new Mirrorer instance.
func NewMirrorer(gh gateway.GitHub, jira JiraService, logger *log.Logger) *Mirrorer {
	return &Mirrorer{gh: gh, jira: jira, logger: logger}
}

// Mirror performs one mirroring run.
func (m *Mirrorer) Mirror(ctx context.Context, req MirrorRequest) (*MirrorResult, error) {
	if (req.IssueNumber == 0) == (req.PRNumber == 0) {
		return nil, fmt.Errorf("exactly one of an issue number or a pull request number is required")
	}

	var title, url string
	component := defaultComponent
	if req.PRNumber != 0 {
		pr, err := m.gh.PullRequest(ctx, req.Owner, req.Repo, req.PRNumber)
		if err != nil {
			return nil, err
		}
		if pr.Author != dependabotLogin {
			m.logger.Println("Not a dependabot PR, doing nothing")
			return &MirrorResult{Reason: "not a dependabot pull request"}, nil
		}
		title, url = pr.Title, pr.URL
	} else {
		issue, err := m.gh.Issue(ctx, req.Owner, req.Repo, req.IssueNumber)
		if err != nil {
			return nil, err
		}
		title, url = issue.Title, issue.URL
		component = m.issueComponent(issue.Body)
	}

	linked, err := m.alreadyLinked(ctx, req.Project, url)
	if err != nil {
		return nil, err
	}
	if linked != "" {
		m.logger.Println("GitHub URL already associated with a Jira issue, doing nothing")
		return &MirrorResult{IssueKey: linked, Reason: "already linked"}, nil
	}

	description := fmt.Sprintf("See linked GitHub URL. Component: %s", component)
	key, err := m.jira.CreateIssue(ctx, req.Project, title, description)
	if err != nil {
		return nil, err
	}
	m.logger.Printf("Created Jira issue %s", key)
	if err := m.jira.AddRemoteLink(ctx, key, url, title); err != nil {
		return nil, fmt.Errorf("created %s but failed to add remote link: %w", key, err)
	}
	m.logger.Printf("%s: added %s", key, url)
	return &MirrorResult{Created: true, IssueKey: key}, nil
}

// alreadyLinked returns the key of the first project issue whose remote links
// already contain the GitHub URL, or "".
func (m *Mirrorer) alreadyLinked(ctx context.Context, project, url string) (string, error) {
	keys, err := m.jira.SearchIssueKeys(ctx, project)
	if err != nil {
		return "", err
	}
	for _, key := range keys {
		links, err := m.jira.RemoteLinkURLs(ctx, key)
		if err != nil {
			return "", err
		}
		for _, link := range links {
			if link == url {
				return key, nil
			}
		}
	}
	return "", nil
}

// issueComponent reads the "### Component" header the issue template puts at
// the top of the body.
func (m *Mirrorer) issueComponent(body string) string {
	lines := strings.Split(body, "\n")
	if len(lines) < 3 || strings.TrimSpace(lines[0]) != "### Component" {
		m.logger.Println("Failed to determine Component of GitHub issue, template related problem?")
		return defaultComponent
	}
	component := strings.TrimSpace(lines[2])
	if component == "" || component == "Other" {
		m.logger.Println("GitHub Issue Component is Other, defaulting to Infrastructure")
		return defaultComponent
	}
	return component
}
