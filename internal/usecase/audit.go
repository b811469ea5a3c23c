package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/okamurashp/orgkeeper/internal/domain"
	"github.com/okamurashp/orgkeeper/internal/gateway"
	"github.com/okamurashp/orgkeeper/internal/policy"
)

// Level grades one audit finding.
type Level int

const (
	LevelPass Level = iota
	LevelWarn
	LevelFail
)

// Finding is one audit check outcome for one repository.
type Finding struct {
	Repo    string
	Check   string
	Level   Level
	Message string
}

// Auditor checks the repositories of one or more organizations against a
// policy baseline.
type Auditor struct {
	gh     gateway.GitHub
	policy *policy.Policy
	logger *log.Logger
}

// NewAuditor creates a new Auditor instance.
func NewAuditor(gh gateway.GitHub, p *policy.Policy, logger *log.Logger) *Auditor {
	return &Auditor{gh: gh, policy: p, logger: logger}
}

// AuditOrgs evaluates every repository of every organization and returns the
// flat finding list. Invalid credentials abort; an unknown organization
// becomes a failing finding and the audit continues.
func (a *Auditor) AuditOrgs(ctx context.Context, orgs []string) ([]Finding, error) {
	var findings []Finding
	for _, org := range orgs {
		repos, err := a.gh.ListRepositories(ctx, org)
		if err != nil {
			var authErr *gateway.AuthError
			if errors.As(err, &authErr) {
				return nil, err
			}
			findings = append(findings, Finding{
				Repo:    org,
				Check:   "organization",
				Level:   LevelFail,
				Message: err.Error(),
			})
			continue
		}
		for _, repo := range repos {
			if repo.Archived {
				findings = append(findings, Finding{
					Repo:    repo.FullName(),
					Check:   "repository",
					Level:   LevelWarn,
					Message: "archived repository, skipping it",
				})
				continue
			}
			if a.policy.Blacklisted(repo.FullName()) {
				findings = append(findings, Finding{
					Repo:    repo.FullName(),
					Check:   "repository",
					Level:   LevelWarn,
					Message: "blacklisted repository, skipping it",
				})
				continue
			}
			findings = append(findings, a.auditRepo(ctx, repo)...)
		}
	}
	return findings, nil
}

func (a *Auditor) auditRepo(ctx context.Context, repo domain.Repository) []Finding {
	a.logger.Printf("Auditing %s...", repo.FullName())
	var findings []Finding
	add := func(check string, level Level, format string, args ...interface{}) {
		findings = append(findings, Finding{
			Repo:    repo.FullName(),
			Check:   check,
			Level:   level,
			Message: fmt.Sprintf(format, args...),
		})
	}

	if repo.DefaultBranch == a.policy.DefaultBranch {
		add("default-branch", LevelPass, "default branch is %q", a.policy.DefaultBranch)
	} else {
		add("default-branch", LevelFail, "default branch is %q, want %q", repo.DefaultBranch, a.policy.DefaultBranch)
	}

	for _, bp := range a.policy.Branches {
		findings = append(findings, a.auditBranch(ctx, repo, bp)...)
	}

	for _, path := range a.policy.RequiredFiles {
		exists, err := a.gh.FileExists(ctx, repo, a.policy.DefaultBranch, path)
		switch {
		case err != nil:
			add("required-file", LevelFail, "could not check %s: %v", path, err)
		case exists:
			add("required-file", LevelPass, "branch contains %s", path)
		default:
			add("required-file", LevelFail, "branch does not contain %s", path)
		}
	}
	for _, path := range a.policy.ForbiddenFiles {
		exists, err := a.gh.FileExists(ctx, repo, a.policy.DefaultBranch, path)
		switch {
		case err != nil:
			add("forbidden-file", LevelFail, "could not check %s: %v", path, err)
		case exists:
			add("forbidden-file", LevelFail, "branch contains legacy file %s", path)
		default:
			add("forbidden-file", LevelPass, "branch does not contain %s", path)
		}
	}
	return findings
}

func (a *Auditor) auditBranch(ctx context.Context, repo domain.Repository, bp policy.BranchPolicy) []Finding {
	var findings []Finding
	add := func(level Level, format string, args ...interface{}) {
		findings = append(findings, Finding{
			Repo:    repo.FullName(),
			Check:   "branch-protection",
			Level:   level,
			Message: fmt.Sprintf(format, args...),
		})
	}

	exists, err := a.gh.BranchExists(ctx, repo, bp.Name)
	if err != nil {
		add(LevelFail, "%s: could not check branch: %v", bp.Name, err)
		return findings
	}
	if !exists {
		add(LevelWarn, "%s: branch does not exist, skipping it", bp.Name)
		return findings
	}

	prot, err := a.gh.BranchProtection(ctx, repo, bp.Name)
	if err != nil {
		add(LevelFail, "%s: could not fetch protection: %v", bp.Name, err)
		return findings
	}
	if bp.RequireProtection && !prot.Protected {
		add(LevelFail, "%s: branch protection rules disabled", bp.Name)
		return findings
	}
	if bp.RequireProtection {
		add(LevelPass, "%s: branch protection rules enabled", bp.Name)
	}
	if bp.RequiredApprovals > 0 {
		if prot.RequiredApprovals >= bp.RequiredApprovals {
			add(LevelPass, "%s: requires %d approving reviews", bp.Name, prot.RequiredApprovals)
		} else {
			add(LevelFail, "%s: requires %d approving reviews, want at least %d", bp.Name, prot.RequiredApprovals, bp.RequiredApprovals)
		}
	}
	if bp.RequireStatusChecks {
		if prot.RequiresStatusChecks {
			add(LevelPass, "%s: status checks required", bp.Name)
		} else {
			add(LevelFail, "%s: status checks not required", bp.Name)
		}
	}
	if bp.EnforceAdmins {
		if prot.EnforceAdmins {
			add(LevelPass, "%s: rules apply to administrators", bp.Name)
		} else {
			add(LevelFail, "%s: administrators can bypass rules", bp.Name)
		}
	}
	if bp.DismissStaleReviews {
		if prot.DismissStaleReviews {
			add(LevelPass, "%s: stale reviews are dismissed", bp.Name)
		} else {
			add(LevelFail, "%s: stale reviews are not dismissed", bp.Name)
		}
	}
	if bp.ForbidDeletions {
		if prot.AllowDeletions {
			add(LevelFail, "%s: branch can be deleted", bp.Name)
		} else {
			add(LevelPass, "%s: branch deletion disabled", bp.Name)
		}
	}
	if bp.ForbidForcePushes {
		if prot.AllowForcePushes {
			add(LevelFail, "%s: force pushes allowed", bp.Name)
		} else {
			add(LevelPass, "%s: force pushes disabled", bp.Name)
		}
	}
	if bp.RestrictPushes {
		if prot.RestrictsPushes {
			add(LevelPass, "%s: pushes restricted to listed actors", bp.Name)
		} else {
			add(LevelFail, "%s: pushes not restricted", bp.Name)
		}
	}
	return findings
}
