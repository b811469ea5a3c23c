package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// JiraIssue is the subset of issue fields the release notes and the mirror use.
type JiraIssue struct {
	Key       string
	Summary   string
	Type      string
	Status    string
	ParentKey string
}

// JiraConfig carries the connection settings for a Jira Cloud instance.
type JiraConfig struct {
	BaseURL string
	Email   string
	Token   string
}

// Configured reports whether enough settings are present to talk to Jira.
func (c JiraConfig) Configured() bool {
	return c.BaseURL != "" && c.Email != "" && c.Token != ""
}

// JiraClient is a minimal client for the Jira Cloud REST API. Only the
// operations the tools need are implemented.
type JiraClient struct {
	baseURL    string
	email      string
	token      string
	httpClient *http.Client
	logger     *log.Logger
}

// NewJiraClient creates a client for the given instance.
func NewJiraClient(cfg JiraConfig, logger *log.Logger) *JiraClient {
	return &JiraClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		email:      cfg.Email,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (c *JiraClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode jira request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("jira request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{Err: fmt.Errorf("jira returned %s", resp.Status)}
	case resp.StatusCode == http.StatusNotFound:
		return &NotFoundError{Resource: "jira resource " + path}
	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("jira returned %s for %s %s: %s", resp.Status, method, path, msg)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode jira response for %s: %w", path, err)
	}
	return nil
}

type jiraIssueResponse struct {
	Key    string `json:"key"`
	Fields struct {
		Summary   string `json:"summary"`
		IssueType struct {
			Name string `json:"name"`
		} `json:"issuetype"`
		Status struct {
			Name string `json:"name"`
		} `json:"status"`
		Parent struct {
			Key string `json:"key"`
		} `json:"parent"`
	} `json:"fields"`
}

func (r jiraIssueResponse) toIssue() *JiraIssue {
	return &JiraIssue{
		Key:       r.Key,
		Summary:   r.Fields.Summary,
		Type:      r.Fields.IssueType.Name,
		Status:    r.Fields.Status.Name,
		ParentKey: r.Fields.Parent.Key,
	}
}

// GetIssue fetches one issue by key, restricted to the fields the callers read.
func (c *JiraClient) GetIssue(ctx context.Context, key string) (*JiraIssue, error) {
	var resp jiraIssueResponse
	path := fmt.Sprintf("/rest/api/3/issue/%s?fields=summary,issuetype,status,parent", url.PathEscape(key))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.toIssue(), nil
}

// SearchIssueKeys returns every issue key in the project, draining pagination.
func (c *JiraClient) SearchIssueKeys(ctx context.Context, project string) ([]string, error) {
	var keys []string
	startAt := 0
	for {
		var resp struct {
			StartAt    int                 `json:"startAt"`
			MaxResults int                 `json:"maxResults"`
			Total      int                 `json:"total"`
			Issues     []jiraIssueResponse `json:"issues"`
		}
		path := fmt.Sprintf("/rest/api/3/search?jql=%s&fields=key&maxResults=100&startAt=%d",
			url.QueryEscape("project="+project), startAt)
		if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return nil, err
		}
		for _, issue := range resp.Issues {
			keys = append(keys, issue.Key)
		}
		startAt += len(resp.Issues)
		if startAt >= resp.Total || len(resp.Issues) == 0 {
			break
		}
		c.logger.Printf("  Fetching next page of jira issues for project %s...", project)
	}
	return keys, nil
}

// RemoteLinkURLs returns the URLs of every remote link attached to the issue.
func (c *JiraClient) RemoteLinkURLs(ctx context.Context, key string) ([]string, error) {
	var resp []struct {
		Object struct {
			URL string `json:"url"`
		} `json:"object"`
	}
	path := fmt.Sprintf("/rest/api/3/issue/%s/remotelink", url.PathEscape(key))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(resp))
	for _, link := range resp {
		urls = append(urls, link.Object.URL)
	}
	return urls, nil
}

// CreateIssue creates a Task-type issue in the project and returns its key.
func (c *JiraClient) CreateIssue(ctx context.Context, project, summary, description string) (string, error) {
	req := map[string]interface{}{
		"fields": map[string]interface{}{
			"project":   map[string]string{"key": project},
			"summary":   summary,
			"issuetype": map[string]string{"name": "Task"},
			"description": map[string]interface{}{
				"type":    "doc",
				"version": 1,
				"content": []interface{}{
					map[string]interface{}{
						"type": "paragraph",
						"content": []interface{}{
							map[string]string{"type": "text", "text": description},
						},
					},
				},
			},
		},
	}
	var resp struct {
		Key string `json:"key"`
	}
	if err := c.do(ctx, http.MethodPost, "/rest/api/3/issue", req, &resp); err != nil {
		return "", err
	}
	return resp.Key, nil
}

// AddRemoteLink attaches a web link to the issue.
func (c *JiraClient) AddRemoteLink(ctx context.Context, key, linkURL, title string) error {
	req := map[string]interface{}{
		"object": map[string]string{
			"url":   linkURL,
			"title": title,
		},
	}
	path := fmt.Sprintf("/rest/api/3/issue/%s/remotelink", url.PathEscape(key))
	return c.do(ctx, http.MethodPost, path, req, nil)
}
