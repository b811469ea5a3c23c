// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/okamurashp/orgkeeper/internal/domain"
	"github.com/okamurashp/orgkeeper/internal/gateway"
	"github.com/okamurashp/orgkeeper/internal/usecase"
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Generates aggregated release notes for one or more organizations",
	Long: `Compares the release branch against the stable branch in every repository
of the given organizations, resolves merged pull requests and their linked
tickets, and writes one aggregated markdown document. When Jira credentials
are configured (--jira-url, --jira-email, JIRA_TOKEN), ticket references are
enriched with their Jira summary, status and epic.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := newLogger(cmd)

		orgs, _ := cmd.Flags().GetStringArray("org")
		releaseBranch, _ := cmd.Flags().GetString("release-branch")
		stableBranch, _ := cmd.Flags().GetString("stable-branch")
		output, _ := cmd.Flags().GetString("output")
		version, _ := cmd.Flags().GetString("release-version")
		skip, _ := cmd.Flags().GetStringArray("skip")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		jiraURL, _ := cmd.Flags().GetString("jira-url")
		jiraEmail, _ := cmd.Flags().GetString("jira-email")

		token := os.Getenv("GITHUB_TOKEN")
		if token == "" {
			fmt.Fprintln(os.Stderr, "Error: GITHUB_TOKEN environment variable is not set.")
			os.Exit(1)
		}

		githubGateway, err := gateway.NewGitHubGateway(token, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create GitHub gateway: %v\n", err)
			os.Exit(1)
		}

		var jira usecase.JiraService
		jiraCfg := gateway.JiraConfig{BaseURL: jiraURL, Email: jiraEmail, Token: os.Getenv("JIRA_TOKEN")}
		if jiraCfg.Configured() {
			jira = gateway.NewJiraClient(jiraCfg, logger)
		}

		orchestrator := usecase.NewOrchestrator(githubGateway, jira, logger)
		notes, err := orchestrator.Run(ctx, usecase.RunConfig{
			Organizations: orgs,
			Branches:      domain.BranchPair{Release: releaseBranch, Stable: stableBranch},
			Version:       version,
			Skip:          skip,
			Concurrency:   concurrency,
			Timeout:       timeout,
		}, time.Now())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate release notes: %v\n", err)
			os.Exit(1)
		}

		// An all-empty result is an error for the caller, not an empty file.
		if !notes.HasChanges() {
			fmt.Fprintln(os.Stderr, "Error: no changes found in any repository, not writing an output file.")
			os.Exit(1)
		}

		document := usecase.Render(notes)
		if err := os.WriteFile(output, []byte(document), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", output, err)
			os.Exit(1)
		}

		fmt.Printf("Wrote release notes for %d repositories to %s\n", notes.Report.Resolved(), output)
		for _, res := range notes.Report.NotResolved() {
			fmt.Printf("  %s: %s (%s)\n", res.Repo, res.Reason, res.Outcome)
		}
	},
}

func init() {
	rootCmd.AddCommand(notesCmd)
	notesCmd.Flags().StringArrayP("org", "o", nil, "Target GitHub organization (repeatable, required)")
	notesCmd.Flags().String("release-branch", "", "Branch containing the unreleased changes (required)")
	notesCmd.Flags().String("stable-branch", "master", "Branch representing the last published state")
	notesCmd.Flags().String("output", "", "Path of the output markdown file (required)")
	notesCmd.Flags().String("release-version", "", "Version string for the document header (required)")
	notesCmd.Flags().StringArray("skip", nil, "Full repository name to exclude (repeatable)")
	notesCmd.Flags().Int("concurrency", 4, "Number of repositories processed in parallel")
	notesCmd.Flags().Duration("timeout", 0, "Global timeout for the whole run (0 disables)")
	notesCmd.Flags().String("jira-url", "", "Jira base URL for ticket enrichment")
	notesCmd.Flags().String("jira-email", "", "Jira account email for ticket enrichment")
	notesCmd.MarkFlagRequired("org")
	notesCmd.MarkFlagRequired("release-branch")
	notesCmd.MarkFlagRequired("output")
	notesCmd.MarkFlagRequired("release-version")
}
