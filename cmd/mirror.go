// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okamurashp/orgkeeper/internal/gateway"
	"github.com/okamurashp/orgkeeper/internal/usecase"
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Mirrors a GitHub issue or dependabot PR into a Jira project",
	Long: `Creates a Jira task for the given GitHub issue, or for a pull request when
it was opened by dependabot, and attaches the GitHub URL as a remote link.
Nothing is created when the URL is already linked from the project.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := newLogger(cmd)

		repo, _ := cmd.Flags().GetString("repo")
		issueNumber, _ := cmd.Flags().GetInt("github-issue-number")
		prNumber, _ := cmd.Flags().GetInt("pull-request-number")
		project, _ := cmd.Flags().GetString("jira-project")
		jiraURL, _ := cmd.Flags().GetString("jira-url")
		jiraEmail, _ := cmd.Flags().GetString("jira-email")

		owner, name, ok := strings.Cut(repo, "/")
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: --repo must be in owner/name form, got %q.\n", repo)
			os.Exit(1)
		}

		token := os.Getenv("GITHUB_TOKEN")
		if token == "" {
			fmt.Fprintln(os.Stderr, "Error: GITHUB_TOKEN environment variable is not set.")
			os.Exit(1)
		}
		jiraCfg := gateway.JiraConfig{BaseURL: jiraURL, Email: jiraEmail, Token: os.Getenv("JIRA_TOKEN")}
		if !jiraCfg.Configured() {
			fmt.Fprintln(os.Stderr, "Error: --jira-url, --jira-email and JIRA_TOKEN are all required.")
			os.Exit(1)
		}

		githubGateway, err := gateway.NewGitHubGateway(token, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create GitHub gateway: %v\n", err)
			os.Exit(1)
		}
		jira := gateway.NewJiraClient(jiraCfg, logger)

		mirrorer := usecase.NewMirrorer(githubGateway, jira, logger)
		result, err := mirrorer.Mirror(ctx, usecase.MirrorRequest{
			Owner:       owner,
			Repo:        name,
			IssueNumber: issueNumber,
			PRNumber:    prNumber,
			Project:     project,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Mirror failed: %v\n", err)
			os.Exit(1)
		}
		if result.Created {
			fmt.Printf("Created Jira issue %s\n", result.IssueKey)
			return
		}
		fmt.Printf("Nothing created: %s\n", result.Reason)
	},
}

func init() {
	rootCmd.AddCommand(mirrorCmd)
	mirrorCmd.Flags().String("repo", "", "GitHub repository in owner/name form (required)")
	mirrorCmd.Flags().Int("github-issue-number", 0, "GitHub issue number to mirror")
	mirrorCmd.Flags().Int("pull-request-number", 0, "GitHub pull request number to mirror")
	mirrorCmd.Flags().String("jira-project", "", "Jira project key (required)")
	mirrorCmd.Flags().String("jira-url", "", "Jira base URL (required)")
	mirrorCmd.Flags().String("jira-email", "", "Jira account email (required)")
	mirrorCmd.MarkFlagRequired("repo")
	mirrorCmd.MarkFlagRequired("jira-project")
	mirrorCmd.MarkFlagRequired("jira-url")
	mirrorCmd.MarkFlagRequired("jira-email")
	mirrorCmd.MarkFlagsMutuallyExclusive("github-issue-number", "pull-request-number")
	mirrorCmd.MarkFlagsOneRequired("github-issue-number", "pull-request-number")
}
