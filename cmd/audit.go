// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/okamurashp/orgkeeper/internal/gateway"
	"github.com/okamurashp/orgkeeper/internal/policy"
	"github.com/okamurashp/orgkeeper/internal/usecase"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audits repository settings against a policy baseline",
	Long: `Checks every repository of the given organizations against a YAML policy
baseline: default branch, branch protection rules, required and forbidden
files. The command exits nonzero when any check fails.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := newLogger(cmd)

		orgs, _ := cmd.Flags().GetStringArray("org")
		policyPath, _ := cmd.Flags().GetString("policy")

		token := os.Getenv("GITHUB_TOKEN")
		if token == "" {
			fmt.Fprintln(os.Stderr, "Error: GITHUB_TOKEN environment variable is not set.")
			os.Exit(1)
		}

		baseline, err := policy.Load(policyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load policy: %v\n", err)
			os.Exit(1)
		}

		githubGateway, err := gateway.NewGitHubGateway(token, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create GitHub gateway: %v\n", err)
			os.Exit(1)
		}

		auditor := usecase.NewAuditor(githubGateway, baseline, logger)
		findings, err := auditor.AuditOrgs(ctx, orgs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Audit failed: %v\n", err)
			os.Exit(1)
		}

		var failures int
		for _, f := range findings {
			line := fmt.Sprintf("%s: %s: %s", f.Repo, f.Check, f.Message)
			switch f.Level {
			case usecase.LevelPass:
				fmt.Println(color.GreenString("✅ %s", line))
			case usecase.LevelWarn:
				fmt.Println(color.YellowString("⚠️  %s", line))
			case usecase.LevelFail:
				failures++
				fmt.Println(color.RedString("❌ %s", line))
			}
		}
		fmt.Printf("\n%d findings, %d failures\n", len(findings), failures)
		if failures > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().StringArrayP("org", "o", nil, "Target GitHub organization (repeatable, required)")
	auditCmd.Flags().String("policy", "", "Path to the YAML policy baseline (required)")
	auditCmd.MarkFlagRequired("org")
	auditCmd.MarkFlagRequired("policy")
}
