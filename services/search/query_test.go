package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePlainTerms(t *testing.T) {
	assert := require.New(t)
	service := newTestService(&stubDB{})

	query := service.parse("मराठा  साम्राज्य")
	assert.Equal([]string{"मराठा", "साम्राज्य"}, query.Terms)
	assert.Empty(query.Prefixes)
	assert.Empty(query.Phrase)
}

func TestParseKeepsShortTerms(t *testing.T) {
	assert := require.New(t)
	service := newTestService(&stubDB{})

	query := service.parse("a मराठा")
	assert.Equal([]string{"a", "मराठा"}, query.Terms)
}

func TestParseWildcardPrefix(t *testing.T) {
	assert := require.New(t)
	service := newTestService(&stubDB{})

	query := service.parse("शिवा* साम्राज्य")
	assert.Equal([]string{"साम्राज्य"}, query.Terms)
	assert.Equal([]string{"शिवा"}, query.Prefixes)

	// A bare wildcard matches nothing and is dropped.
	query = service.parse("* मराठा")
	assert.Equal([]string{"मराठा"}, query.Terms)
	assert.Empty(query.Prefixes)
}

func TestParseQuotedPhrase(t *testing.T) {
	assert := require.New(t)
	service := newTestService(&stubDB{})

	query := service.parse(`"मराठा साम्राज्य"`)
	assert.Equal("मराठा साम्राज्य", query.Phrase)
	assert.Empty(query.Terms)
}

func TestParseUnbalancedQuotesFallsBackToPlainTerms(t *testing.T) {
	assert := require.New(t)
	service := newTestService(&stubDB{})

	query := service.parse(`"मराठा साम्राज्य`)
	assert.Empty(query.Phrase)
	assert.Equal([]string{"मराठा", "साम्राज्य"}, query.Terms)

	query = service.parse(`मराठा "साम्राज्य" इतिहास`)
	assert.Empty(query.Phrase)
	assert.Equal([]string{"मराठा", "साम्राज्य", "इतिहास"}, query.Terms)
}

func TestParseEmptyPhraseFallsBack(t *testing.T) {
	assert := require.New(t)
	service := newTestService(&stubDB{})

	query := service.parse(`""`)
	assert.True(query.IsEmpty())
}
