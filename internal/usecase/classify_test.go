package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/okamurashp/orgkeeper/internal/domain"
)

func TestCategorize(t *testing.T) {
	testCases := []struct {
		name     string
		change   domain.Change
		expected domain.Category
	}{
		{
			name:     "label wins over title prefix",
			change:   domain.Change{PRNumber: 1, Title: "fix: broken build", Labels: []string{"enhancement"}},
			expected: domain.CategoryFeature,
		},
		{
			name:     "label match is case-insensitive",
			change:   domain.Change{PRNumber: 2, Title: "some work", Labels: []string{"Bug"}},
			expected: domain.CategoryFix,
		},
		{
			name:     "unknown labels fall through to title prefix",
			change:   domain.Change{PRNumber: 3, Title: "docs: update readme", Labels: []string{"triage"}},
			expected: domain.CategoryDocumentation,
		},
		{
			name:     "conventional prefix with scope and bang",
			change:   domain.Change{PRNumber: 4, Title: "feat(api)!: new endpoint"},
			expected: domain.CategoryFeature,
		},
		{
			name:     "colon inside a sentence is not a prefix",
			change:   domain.Change{PRNumber: 5, Title: "update config: now with more yaml"},
			expected: domain.CategoryUncategorized,
		},
		{
			name:     "no label and no prefix",
			change:   domain.Change{PRNumber: 6, Title: "miscellaneous work"},
			expected: domain.CategoryUncategorized,
		},
		{
			name:     "direct commits are always uncategorized",
			change:   domain.Change{ID: "abc1234", Title: "fix: something", Labels: []string{"bug"}},
			expected: domain.CategoryUncategorized,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Categorize(tc.change))
			// Assignment must be deterministic.
			assert.Equal(t, tc.expected, Categorize(tc.change))
		})
	}
}

func TestDeduplicate(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	older := domain.Change{ID: "10", PRNumber: 10, Ticket: "ABC-12", MergedAt: base, Repo: "org/repo"}
	newer := domain.Change{ID: "11", PRNumber: 11, Ticket: "ABC-12", MergedAt: base.Add(time.Hour), Repo: "org/repo"}
	noTicketA := domain.Change{ID: "12", PRNumber: 12, MergedAt: base}
	noTicketB := domain.Change{ID: "13", PRNumber: 13, MergedAt: base}

	t.Run("latest merge wins for a shared ticket", func(t *testing.T) {
		got := Deduplicate([]domain.Change{older, newer})
		assert.Equal(t, []domain.Change{newer}, got)
	})

	t.Run("changes without tickets are never deduplicated", func(t *testing.T) {
		got := Deduplicate([]domain.Change{noTicketA, noTicketB})
		assert.Len(t, got, 2)
	})

	t.Run("idempotent", func(t *testing.T) {
		once := Deduplicate([]domain.Change{older, newer, noTicketA, noTicketB})
		twice := Deduplicate(once)
		assert.Equal(t, once, twice)
	})
}

func TestBuildSections(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	feature := domain.Change{ID: "1", PRNumber: 1, Title: "feat: a", MergedAt: base.Add(2 * time.Hour)}
	earlierFeature := domain.Change{ID: "2", PRNumber: 2, Title: "feat: b", MergedAt: base.Add(time.Hour)}
	fix := domain.Change{ID: "3", PRNumber: 3, Title: "fix: c", Labels: []string{"bug"}, MergedAt: base}

	sections := BuildSections([]domain.Change{feature, earlierFeature, fix})

	// All five categories present, in fixed order.
	assert.Len(t, sections, len(domain.CategoryOrder))
	for i, cat := range domain.CategoryOrder {
		assert.Equal(t, cat, sections[i].Category)
	}

	// Within a category, changes are ordered by merge timestamp ascending.
	assert.Equal(t, []domain.Change{earlierFeature, feature}, sections[0].Changes)
	assert.Equal(t, []domain.Change{fix}, sections[1].Changes)
	assert.Empty(t, sections[2].Changes)
}
