package search

import "fmt"

// ArticleSchema is the closed set of statute tables an article vector can point at.
// Only FederalArticleSchema and CantonalArticleSchema implement it.
type ArticleSchema interface {
	// Table is the source table name stored alongside the vector.
	Table() string
	articleSchema()
}

// FederalArticleSchema is the federal statute table ("articles").
type FederalArticleSchema struct{}

func (FederalArticleSchema) Table() string { return "articles" }
func (FederalArticleSchema) articleSchema() {}

// CantonalArticleSchema is the cantonal statute table of Bern ("articles_bern").
type CantonalArticleSchema struct{}

func (CantonalArticleSchema) Table() string { return "articles_bern" }
func (CantonalArticleSchema) articleSchema() {}

// ParseArticleSchema maps a stored source_table value onto its schema variant.
func ParseArticleSchema(table string) (ArticleSchema, error) {
	switch table {
	case "articles":
		return FederalArticleSchema{}, nil
	case "articles_bern":
		return CantonalArticleSchema{}, nil
	}
	return nil, fmt.Errorf("unknown article source table %q", table)
}

// ArticleSchemas lists every schema variant.
func ArticleSchemas() []ArticleSchema {
	return []ArticleSchema{FederalArticleSchema{}, CantonalArticleSchema{}}
}

const (
	// ArticleTypeParagraph marks a vector of a single paragraph row.
	ArticleTypeParagraph = "abs"
	// ArticleTypeArticle marks a vector of a whole article.
	ArticleTypeArticle = "art"
)

// ArticleRef locates the statute text behind an article vector.
type ArticleRef struct {
	SRN    string
	ArtID  string
	TypeCD string
	TypeID string
	Schema ArticleSchema
}

func (r ArticleRef) String() string {
	table := ""
	if r.Schema != nil {
		table = r.Schema.Table()
	}
	return fmt.Sprintf("%s:%s/%s/%s:%s", table, r.SRN, r.ArtID, r.TypeCD, r.TypeID)
}
