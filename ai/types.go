package ai

// DocumentCategories defines the valid categories for enriched metadata.
// These categories are used by enrichers to classify documents.
var DocumentCategories = []string{
	"admission",
	"budget",
	"circular",
	"curriculum",
	"examination",
	"guideline",
	"infrastructure",
	"minutes",
	"notification",
	"policy",
	"regulation",
	"report",
	"research",
	"scholarship",
	"tender",
	"other",
}
