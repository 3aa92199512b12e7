package searchdb

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marathi-corpus/shodh/normalize"
)

func newTestDB(t *testing.T) *BleveDB {
	t.Helper()
	indexPath := filepath.Join(t.TempDir(), "pages.bleve")
	return New(slog.New(slog.NewJSONHandler(os.Stderr, nil)), indexPath, normalize.New())
}

func intPtr(v int) *int { return &v }

func testDocuments() []Document {
	docs := []Document{
		{
			DocID:      0,
			FilePath:   "book_page_0000.txt",
			PageNumber: intPtr(0),
			Content:    "मराठा साम्राज्य आणि शिवाजी महाराज",
		},
		{
			DocID:      1,
			FilePath:   "book_page_0001.txt",
			PageNumber: intPtr(1),
			Content:    "पेशवे आणि मराठा फौज",
		},
		{
			DocID:    2,
			FilePath: "prastavana.txt",
			Content:  "प्रस्तावना मजकूर",
		},
	}
	for i := range docs {
		docs[i].ContentPreview = docs[i].Content
		docs[i].CharCount = len([]rune(docs[i].Content))
	}
	return docs
}

func TestSearchBeforeBuildReturnsUnavailable(t *testing.T) {
	assert := require.New(t)
	db := newTestDB(t)
	defer db.Close()

	assert.False(db.IsLoaded())

	_, err := db.Search(Query{Terms: []string{"मराठा"}}, 10, 0)
	assert.ErrorIs(err, ErrIndexUnavailable)

	_, err = db.DocCount()
	assert.ErrorIs(err, ErrIndexUnavailable)
}

func TestBuildOpenRoundTrip(t *testing.T) {
	assert := require.New(t)
	db := newTestDB(t)
	defer db.Close()

	docs := testDocuments()
	assert.NoError(db.Build(docs))
	assert.True(db.IsLoaded())

	count, err := db.DocCount()
	assert.NoError(err)
	assert.Equal(uint64(len(docs)), count)

	for _, want := range docs {
		got, err := db.GetDocument(want.DocID)
		assert.NoError(err)
		assert.Equal(want.FilePath, got.FilePath)
		assert.Equal(want.Content, got.Content)
		assert.Equal(want.ContentPreview, got.ContentPreview)
		assert.Equal(want.CharCount, got.CharCount)
		if want.PageNumber == nil {
			assert.Nil(got.PageNumber)
		} else {
			assert.NotNil(got.PageNumber)
			assert.Equal(*want.PageNumber, *got.PageNumber)
		}
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	assert := require.New(t)
	db := newTestDB(t)
	defer db.Close()

	assert.NoError(db.Build(testDocuments()))

	_, err := db.GetDocument(999)
	assert.ErrorIs(err, ErrDocumentNotFound)
}

func TestSearchFindsTerm(t *testing.T) {
	assert := require.New(t)
	db := newTestDB(t)
	defer db.Close()

	assert.NoError(db.Build(testDocuments()))

	response, err := db.Search(Query{Terms: []string{"मराठा"}}, 10, 0)
	assert.NoError(err)
	assert.Len(response.Results, 2)
	for _, result := range response.Results {
		assert.Contains(result.Content, "मराठा")
		assert.LessOrEqual(result.Score, response.MaxScore)
	}
}

func TestSearchEmptyQueryReturnsNoResults(t *testing.T) {
	assert := require.New(t)
	db := newTestDB(t)
	defer db.Close()

	assert.NoError(db.Build(testDocuments()))

	response, err := db.Search(Query{}, 10, 0)
	assert.NoError(err)
	assert.Empty(response.Results)
}

func TestSearchPrefix(t *testing.T) {
	assert := require.New(t)
	db := newTestDB(t)
	defer db.Close()

	assert.NoError(db.Build(testDocuments()))

	response, err := db.Search(Query{Prefixes: []string{"पेश"}}, 10, 0)
	assert.NoError(err)
	assert.Len(response.Results, 1)
	assert.Equal("book_page_0001.txt", response.Results[0].FilePath)
}

func TestSearchExactRequiresContiguousPhrase(t *testing.T) {
	assert := require.New(t)
	db := newTestDB(t)
	defer db.Close()

	assert.NoError(db.Build(testDocuments()))

	response, err := db.SearchExact("मराठा साम्राज्य", 10)
	assert.NoError(err)
	assert.Len(response.Results, 1)
	assert.Equal("book_page_0000.txt", response.Results[0].FilePath)

	// Both words occur in doc 1 ("मराठा फौज" + "आणि") but never contiguously
	// in this order, so a phrase query must not return it.
	response, err = db.SearchExact("मराठा आणि", 10)
	assert.NoError(err)
	assert.Empty(response.Results)
}

func TestLookupPostingsSortedByDocID(t *testing.T) {
	assert := require.New(t)
	db := newTestDB(t)
	defer db.Close()

	assert.NoError(db.Build(testDocuments()))

	postings, err := db.Lookup("मराठा")
	assert.NoError(err)
	assert.Len(postings, 2)
	assert.Equal(0, postings[0].DocID)
	assert.Equal(1, postings[1].DocID)
	for _, posting := range postings {
		assert.GreaterOrEqual(posting.Frequency, 1)
	}

	postings, err = db.Lookup("अनुपस्थित")
	assert.NoError(err)
	assert.Empty(postings)
}

func TestRebuildReplacesIndexAtomically(t *testing.T) {
	assert := require.New(t)
	db := newTestDB(t)
	defer db.Close()

	assert.NoError(db.Build(testDocuments()))

	replacement := []Document{{
		DocID:          0,
		FilePath:       "nava_page_0000.txt",
		Content:        "नवीन मजकूर",
		ContentPreview: "नवीन मजकूर",
		CharCount:      10,
	}}
	assert.NoError(db.Build(replacement))

	count, err := db.DocCount()
	assert.NoError(err)
	assert.Equal(uint64(1), count)

	// No staging or retired directories left behind.
	_, err = os.Stat(db.indexPath + ".staging")
	assert.True(os.IsNotExist(err))
	_, err = os.Stat(db.indexPath + ".previous")
	assert.True(os.IsNotExist(err))
}

func TestReloadPicksUpNewIndex(t *testing.T) {
	assert := require.New(t)
	db := newTestDB(t)
	defer db.Close()

	err := db.Reload()
	assert.ErrorIs(err, ErrIndexUnavailable)

	assert.NoError(db.Build(testDocuments()))
	assert.NoError(db.Reload())

	count, err := db.DocCount()
	assert.NoError(err)
	assert.Equal(uint64(3), count)
}
