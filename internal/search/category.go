package search

import "fmt"

// Category identifies one family of stored vectors that is ranked independently.
type Category string

const (
	CategorySummary    Category = "Summary"
	CategoryFacts      Category = "Sachverhalt"
	CategoryRuling     Category = "Entscheide"
	CategoryLegalBasis Category = "Grundlagen"
	CategoryArticles   Category = "Artikel"
)

// JudgmentCategories returns the judgment vector families in label order.
func JudgmentCategories() []Category {
	return []Category{CategoryRuling, CategoryLegalBasis, CategoryFacts, CategorySummary}
}

// Column returns the blob column holding the vectors of this category.
func (c Category) Column() string {
	switch c {
	case CategorySummary:
		return "summary_vector"
	case CategoryFacts:
		return "sachverhalt_vector"
	case CategoryRuling:
		return "entscheid_vector"
	case CategoryLegalBasis:
		return "grundlagen_vector"
	case CategoryArticles:
		return "vector"
	}
	return ""
}

// IsJudgment reports whether hits of this category hydrate into judgment records.
func (c Category) IsJudgment() bool {
	switch c {
	case CategorySummary, CategoryFacts, CategoryRuling, CategoryLegalBasis:
		return true
	}
	return false
}

// ParseCategory accepts both the display label and the lower-case English alias.
func ParseCategory(s string) (Category, error) {
	switch s {
	case string(CategorySummary), "summary":
		return CategorySummary, nil
	case string(CategoryFacts), "facts":
		return CategoryFacts, nil
	case string(CategoryRuling), "ruling":
		return CategoryRuling, nil
	case string(CategoryLegalBasis), "legal_basis":
		return CategoryLegalBasis, nil
	case string(CategoryArticles), "articles":
		return CategoryArticles, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}
