package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/okamurashp/orgkeeper/internal/domain"
)

// Render converts the assembled release notes into a markdown document. It is
// a pure function of its input: identical notes produce byte-identical output,
// so reruns over the same data diff clean.
func Render(n *domain.ReleaseNotes) string {
	var b strings.Builder
	b.WriteString("# Release Notes\n\n")
	fmt.Fprintf(&b, "- Version: %s\n", n.Version)
	fmt.Fprintf(&b, "- Organizations: %s\n", strings.Join(n.Organizations, ", "))
	fmt.Fprintf(&b, "- Release branch: %s\n", n.Branches.Release)
	fmt.Fprintf(&b, "- Stable branch: %s\n", n.Branches.Stable)
	fmt.Fprintf(&b, "- Generated: %s\n", n.GeneratedAt.UTC().Format(time.RFC3339))

	for _, repo := range n.Repos {
		fmt.Fprintf(&b, "\n## %s - %s\n", repo.Repository.FullName(), n.Version)
		if repo.ChangeCount() == 0 {
			fmt.Fprintf(&b, "\nNo changes between %s and %s.\n", n.Branches.Stable, n.Branches.Release)
			continue
		}
		for _, section := range repo.Sections {
			fmt.Fprintf(&b, "\n**%s**\n\n", section.Category)
			if len(section.Changes) == 0 {
				b.WriteString("- None\n")
				continue
			}
			for _, c := range section.Changes {
				b.WriteString(renderChange(c))
			}
		}
		if line := leadTimeLine(repo); line != "" {
			b.WriteString(line)
		}
	}

	if skipped := n.Report.NotResolved(); len(skipped) > 0 {
		b.WriteString("\n## Skipped Repositories\n\n")
		for _, res := range skipped {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", res.Repo, res.Reason, res.Outcome)
		}
	}
	if len(n.Report.SkippedOrgs) > 0 {
		b.WriteString("\n## Skipped Organizations\n\n")
		for _, res := range n.Report.SkippedOrgs {
			fmt.Fprintf(&b, "- %s: %s\n", res.Repo, res.Reason)
		}
	}
	return b.String()
}

func renderChange(c domain.Change) string {
	if c.IsDirectCommit() {
		return fmt.Sprintf("- %s (commit %s)%s\n", c.Title, shortSHA(c.ID), ticketSuffix(c))
	}
	return fmt.Sprintf("- %s ([#%d](%s)) by @%s%s\n", c.Title, c.PRNumber, c.URL, c.Author, ticketSuffix(c))
}

// ticketSuffix renders the linked ticket, enriched with Jira metadata when the
// run had Jira credentials.
func ticketSuffix(c domain.Change) string {
	if c.Ticket == "" {
		return ""
	}
	if c.TicketSummary == "" {
		return fmt.Sprintf(" [%s]", c.Ticket)
	}
	suffix := fmt.Sprintf(" [%s: %s", c.Ticket, c.TicketSummary)
	if c.TicketStatus != "" {
		suffix += fmt.Sprintf(" (%s)", c.TicketStatus)
	}
	if c.EpicKey != "" {
		suffix += fmt.Sprintf(", epic %s", c.EpicKey)
	}
	return suffix + "]"
}

// leadTimeLine summarizes how long the repository's pull requests took from
// creation to merge.
func leadTimeLine(rn domain.RepoNotes) string {
	var days []float64
	for _, section := range rn.Sections {
		for _, c := range section.Changes {
			if c.IsDirectCommit() || c.CreatedAt.IsZero() || c.MergedAt.IsZero() {
				continue
			}
			days = append(days, c.MergedAt.Sub(c.CreatedAt).Hours()/24)
		}
	}
	if len(days) == 0 {
		return ""
	}
	median, err := stats.Median(days)
	if err != nil {
		return ""
	}
	mean, err := stats.Mean(days)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("\n%d merged pull requests, lead time to merge: median %.1f days, mean %.1f days\n",
		len(days), median, mean)
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
