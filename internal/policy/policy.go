// Package policy loads the repository-settings baseline the audit command
// checks organizations against.
package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BranchPolicy states what protection one branch must carry.
type BranchPolicy struct {
	Name                string `yaml:"name"`
	RequireProtection   bool   `yaml:"require_protection"`
	RequiredApprovals   int    `yaml:"required_approvals"`
	RequireStatusChecks bool   `yaml:"require_status_checks"`
	EnforceAdmins       bool   `yaml:"enforce_admins"`
	DismissStaleReviews bool   `yaml:"dismiss_stale_reviews"`
	ForbidDeletions     bool   `yaml:"forbid_deletions"`
	ForbidForcePushes   bool   `yaml:"forbid_force_pushes"`
	RestrictPushes      bool   `yaml:"restrict_pushes"`
}

// Policy is the audit baseline, normally read from a YAML file.
type Policy struct {
	DefaultBranch  string         `yaml:"default_branch"`
	Branches       []BranchPolicy `yaml:"branches"`
	RequiredFiles  []string       `yaml:"required_files"`
	ForbiddenFiles []string       `yaml:"forbidden_files"`
	// Blacklist holds full repository names excluded from the audit.
	Blacklist []string `yaml:"blacklist"`
}

// Load reads and validates a policy file.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse policy file %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy file %s: %w", path, err)
	}
	return &p, nil
}

// Validate checks the invariants a usable policy must hold.
func (p *Policy) Validate() error {
	if p.DefaultBranch == "" {
		return fmt.Errorf("default_branch must be set")
	}
	for i, b := range p.Branches {
		if b.Name == "" {
			return fmt.Errorf("branches[%d]: name must be set", i)
		}
		if b.RequiredApprovals < 0 {
			return fmt.Errorf("branches[%d]: required_approvals must not be negative", i)
		}
	}
	return nil
}

// Blacklisted reports whether the repository is excluded from audits.
func (p *Policy) Blacklisted(fullName string) bool {
	for _, name := range p.Blacklist {
		if name == fullName {
			return true
		}
	}
	return false
}
