package usecase

import (
	"sort"
	"strings"

	"github.com/okamurashp/orgkeeper/internal/domain"
)

// labelCategories maps lowercased GitHub labels to categories. Labels win over
// title conventions.
var labelCategories = map[string]domain.Category{
	"feature":       domain.CategoryFeature,
	"enhancement":   domain.CategoryFeature,
	"feat":          domain.CategoryFeature,
	"bug":           domain.CategoryFix,
	"fix":           domain.CategoryFix,
	"bugfix":        domain.CategoryFix,
	"hotfix":        domain.CategoryFix,
	"documentation": domain.CategoryDocumentation,
	"docs":          domain.CategoryDocumentation,
	"chore":         domain.CategoryChore,
	"maintenance":   domain.CategoryChore,
	"dependencies":  domain.CategoryChore,
	"ci":            domain.CategoryChore,
	"build":         domain.CategoryChore,
	"refactor":      domain.CategoryChore,
}

// prefixCategories maps conventional-commit title prefixes to categories.
var prefixCategories = map[string]domain.Category{
	"feat":     domain.CategoryFeature,
	"feature":  domain.CategoryFeature,
	"fix":      domain.CategoryFix,
	"bugfix":   domain.CategoryFix,
	"hotfix":   domain.CategoryFix,
	"docs":     domain.CategoryDocumentation,
	"doc":      domain.CategoryDocumentation,
	"chore":    domain.CategoryChore,
	"build":    domain.CategoryChore,
	"ci":       domain.CategoryChore,
	"refactor": domain.CategoryChore,
}

// Categorize assigns exactly one category to a change. The rule order is
// fixed: direct commits are uncategorized, then labels are matched
// case-insensitively, then the title-prefix convention applies.
func Categorize(c domain.Change) domain.Category {
	if c.IsDirectCommit() {
		return domain.CategoryUncategorized
	}
	for _, label := range c.Labels {
		if cat, ok := labelCategories[strings.ToLower(label)]; ok {
			return cat
		}
	}
	if cat, ok := prefixCategories[titlePrefix(c.Title)]; ok {
		return cat
	}
	return domain.CategoryUncategorized
}

// titlePrefix extracts the conventional-commit keyword from titles like
// "feat(scope)!: add thing", lowercased, or "" when the title has no prefix.
func titlePrefix(title string) string {
	head, _, ok := strings.Cut(title, ":")
	if !ok {
		return ""
	}
	head = strings.TrimSpace(head)
	if i := strings.IndexByte(head, '('); i >= 0 {
		head = head[:i]
	}
	head = strings.TrimSuffix(head, "!")
	if strings.ContainsAny(head, " \t") {
		return ""
	}
	return strings.ToLower(head)
}

// Deduplicate resolves tickets referenced by multiple changes of the same
// repository: the change with the latest merge timestamp survives. Changes
// without a ticket are never deduplicated against each other. The relative
// order of survivors is preserved, which makes the operation idempotent.
func Deduplicate(changes []domain.Change) []domain.Change {
	winners := make(map[string]domain.Change)
	for _, c := range changes {
		if c.Ticket == "" {
			continue
		}
		if best, ok := winners[c.Ticket]; !ok || c.MergedAt.After(best.MergedAt) {
			winners[c.Ticket] = c
		}
	}
	out := make([]domain.Change, 0, len(changes))
	for _, c := range changes {
		if c.Ticket != "" && winners[c.Ticket].ID != c.ID {
			continue
		}
		out = append(out, c)
	}
	return out
}

// BuildSections categorizes and deduplicates the changes of one repository and
// arranges them into the fixed section order. Every category appears in the
// result, empty or not, so rendering reflects the full structure.
func BuildSections(changes []domain.Change) []domain.Section {
	changes = Deduplicate(changes)
	buckets := make(map[domain.Category][]domain.Change)
	for _, c := range changes {
		cat := Categorize(c)
		buckets[cat] = append(buckets[cat], c)
	}
	sections := make([]domain.Section, 0, len(domain.CategoryOrder))
	for _, cat := range domain.CategoryOrder {
		list := buckets[cat]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].MergedAt.Before(list[j].MergedAt)
		})
		sections = append(sections, domain.Section{Category: cat, Changes: list})
	}
	return sections
}
