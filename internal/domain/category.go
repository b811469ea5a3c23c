package domain

// Category is the classification bucket assigned to every Change.
type Category string

const (
	CategoryFeature       Category = "Features"
	CategoryFix           Category = "Fixes"
	CategoryDocumentation Category = "Documentation"
	CategoryChore         Category = "Chores"
	CategoryUncategorized Category = "Uncategorized"
)

// CategoryOrder is the fixed rendering order. Every repository section renders
// all of these, empty or not.
var CategoryOrder = []Category{
	CategoryFeature,
	CategoryFix,
	CategoryDocumentation,
	CategoryChore,
	CategoryUncategorized,
}

// Section holds the ordered changes of one category within one repository.
type Section struct {
	Category Category
	Changes  []Change
}
