package excerpt

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// mapStore is an in-memory PageStore.
type mapStore map[string]string

func (m mapStore) ReadLines(name string) ([]string, bool) {
	content, ok := m[name]
	if !ok {
		return nil, false
	}
	if content == "" {
		return nil, true
	}
	return strings.Split(content, "\n"), true
}

func newTestService(pages mapStore) *Service {
	return New(slog.New(slog.NewJSONHandler(os.Stderr, nil)), pages)
}

func TestExtractStitchesNextPage(t *testing.T) {
	assert := require.New(t)
	service := newTestService(mapStore{
		"book_page_0000.txt": "लाईन१\nलाईन२\nमजकूर\nलाईन४\nलाईन५",
		"book_page_0001.txt": "पुढील१\nपुढील२\nपुढील३",
	})

	context := service.Extract("book_page_0000.txt", "मजकूर", 5)

	assert.Equal(2, context.MatchLine)
	assert.Equal([]string{"book_page_0000.txt", "book_page_0001.txt"}, context.Sources)
	assert.Contains(context.Content, "मजकूर")
	assert.Contains(context.Content, "[→ book_page_0001.txt]")
	assert.Contains(context.Content, "पुढील३")
	assert.Equal(2, context.LinesBefore)
	assert.Equal(2, context.LinesAfter)
}

func TestExtractStitchesPreviousPage(t *testing.T) {
	assert := require.New(t)
	service := newTestService(mapStore{
		"book_page_0001.txt": "मजकूर\nनंतर१\nनंतर२\nनंतर३",
		"book_page_0000.txt": "आधी१\nआधी२\nआधी३\nआधी४",
	})

	context := service.Extract("book_page_0001.txt", "मजकूर", 3)

	assert.Equal(0, context.MatchLine)
	assert.Equal([]string{"book_page_0000.txt", "book_page_0001.txt"}, context.Sources)
	assert.Contains(context.Content, "[← book_page_0000.txt]")
	// Only the trailing shortfall of the previous page is pulled in.
	assert.NotContains(context.Content, "आधी१")
	assert.Contains(context.Content, "आधी२")
	assert.Contains(context.Content, "आधी४")
}

func TestExtractMissingAdjacentFileDegrades(t *testing.T) {
	assert := require.New(t)
	service := newTestService(mapStore{
		"book_page_0000.txt": "मजकूर\nनंतर",
	})

	context := service.Extract("book_page_0000.txt", "मजकूर", 5)

	assert.Equal([]string{"book_page_0000.txt"}, context.Sources)
	assert.NotContains(context.Content, "[→")
	assert.NotContains(context.Content, "[←")
}

func TestExtractNonConventionalFilenameSkipsStitching(t *testing.T) {
	assert := require.New(t)
	service := newTestService(mapStore{
		"prastavana.txt": "मजकूर",
	})

	context := service.Extract("prastavana.txt", "मजकूर", 5)

	assert.Equal([]string{"prastavana.txt"}, context.Sources)
	assert.Equal("मजकूर", context.Content)
}

func TestExtractNoAnchorReturnsWholePage(t *testing.T) {
	assert := require.New(t)
	service := newTestService(mapStore{
		"book_page_0000.txt": "पहिली\nदुसरी\nतिसरी",
	})

	context := service.Extract("book_page_0000.txt", "सापडणार-नाही", 2)

	assert.Equal(0, context.MatchLine)
	assert.Equal("पहिली\nदुसरी\nतिसरी", context.Content)
	assert.Equal([]string{"book_page_0000.txt"}, context.Sources)
	assert.Equal(0, context.LinesBefore)
	assert.Equal(2, context.LinesAfter)
}

func TestExtractUnreadablePage(t *testing.T) {
	assert := require.New(t)
	service := newTestService(mapStore{})

	context := service.Extract("book_page_0042.txt", "मजकूर", 5)

	assert.Empty(context.Content)
	assert.Equal([]string{"book_page_0042.txt"}, context.Sources)
	assert.Equal(0, context.LinesBefore)
	assert.Equal(0, context.LinesAfter)
}

func TestExtractShortAnchorTermsIgnored(t *testing.T) {
	assert := require.New(t)
	service := newTestService(mapStore{
		// "a" appears on the first line but is too short to anchor;
		// the two-char term anchors on the second line.
		"book_page_0000.txt": "a word here\nदुसरी ओळ xy\nतिसरी",
	})

	context := service.Extract("book_page_0000.txt", "a xy", 0)

	assert.Equal(1, context.MatchLine)
	assert.Equal("दुसरी ओळ xy", context.Content)
}

func TestExtractCaseInsensitiveAnchor(t *testing.T) {
	assert := require.New(t)
	service := newTestService(mapStore{
		"book_page_0000.txt": "Shivaji Maharaj\nइतर",
	})

	context := service.Extract("book_page_0000.txt", "shivaji", 0)
	assert.Equal(0, context.MatchLine)
	assert.Equal("Shivaji Maharaj", context.Content)
}
