package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArticleSchema(t *testing.T) {
	s, err := ParseArticleSchema("articles")
	require.NoError(t, err)
	assert.IsType(t, FederalArticleSchema{}, s)

	s, err = ParseArticleSchema("articles_bern")
	require.NoError(t, err)
	assert.IsType(t, CantonalArticleSchema{}, s)

	_, err = ParseArticleSchema("articles_zh")
	assert.Error(t, err)
}

func TestArticleSchemaTableRoundTrip(t *testing.T) {
	for _, s := range ArticleSchemas() {
		parsed, err := ParseArticleSchema(s.Table())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range append(JudgmentCategories(), CategoryArticles) {
		got, err := ParseCategory(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, got)
		assert.NotEmpty(t, c.Column())
	}
	got, err := ParseCategory("legal_basis")
	require.NoError(t, err)
	assert.Equal(t, CategoryLegalBasis, got)
	_, err = ParseCategory("nope")
	assert.Error(t, err)
}
