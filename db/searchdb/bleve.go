package searchdb

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	unicodetokenizer "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/marathi-corpus/shodh/logger"
	"github.com/marathi-corpus/shodh/normalize"
)

const indexingBatchSize = 100

// ContentPreviewLength is how many runes of page content are kept as the
// preview used for fuzzy comparison and truncated display.
const ContentPreviewLength = 500

const (
	indexFieldDocID      = "doc_id"
	indexFieldPath       = "file_path"
	indexFieldPageNumber = "page_number"
	indexFieldCharCount  = "char_count"
	indexFieldContent    = "content"
	indexFieldPreview    = "content_preview"
	indexFieldNormalized = "content_normalized"
	indexFieldFolded     = "content_folded"
)

// The raw page text is the authoritative surface form; normalized and folded
// variants only extend recall, so they rank below it.
const (
	boostForRawContent = 2.0
	boostForVariant    = 1.0
)

const devanagariAnalyzer = "devanagari"

var storedFields = []string{
	indexFieldDocID,
	indexFieldPath,
	indexFieldPageNumber,
	indexFieldCharCount,
	indexFieldContent,
	indexFieldPreview,
}

// BleveDB is the on-disk inverted index. Builds write a complete new index to
// a staging directory and atomically swap it into place; the serving handle is
// replaced under a lock, and retired handles stay open until Close so that
// in-flight searches finish against the snapshot they acquired.
type BleveDB struct {
	indexPath  string
	logger     logger.Logger
	normalizer *normalize.Normalizer

	mu      sync.RWMutex
	index   bleve.Index
	retired []bleve.Index
}

func New(logger logger.Logger, indexPath string, normalizer *normalize.Normalizer) *BleveDB {
	b := &BleveDB{
		indexPath:  indexPath,
		logger:     logger,
		normalizer: normalizer,
	}

	if err := b.Reload(); err != nil {
		logger.Warn("search index not loaded yet", "path", indexPath, "err", err.Error())
	}

	return b
}

// Reload opens the on-disk index and makes it the serving snapshot. The
// previous snapshot, if any, keeps serving in-flight searches and is closed
// at shutdown. On failure the previous snapshot stays in place.
func (b *BleveDB) Reload() error {
	index, err := bleve.Open(b.indexPath)
	if err != nil {
		if err == bleve.ErrorIndexPathDoesNotExist {
			return &IndexUnavailableError{Path: b.indexPath}
		}
		return &CorruptError{Path: b.indexPath, Err: err}
	}

	b.mu.Lock()
	if b.index != nil {
		b.retired = append(b.retired, b.index)
	}
	b.index = index
	b.mu.Unlock()

	return nil
}

func (b *BleveDB) IsLoaded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index != nil
}

func (b *BleveDB) current() (bleve.Index, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.index == nil {
		return nil, &IndexUnavailableError{Path: b.indexPath}
	}
	return b.index, nil
}

// Build writes a brand new index for documents and publishes it atomically.
// The previously published index stays untouched until the staged one is
// fully written and verified loadable.
func (b *BleveDB) Build(documents []Document) error {
	stagingPath := b.indexPath + ".staging"
	if err := os.RemoveAll(stagingPath); err != nil {
		return fmt.Errorf("failed to clear staging directory: %w", err)
	}

	if err := b.writeIndex(stagingPath, documents); err != nil {
		os.RemoveAll(stagingPath)
		return err
	}

	if err := b.verifyIndex(stagingPath, len(documents)); err != nil {
		os.RemoveAll(stagingPath)
		return err
	}

	if err := b.swapIndex(stagingPath); err != nil {
		os.RemoveAll(stagingPath)
		return err
	}

	return b.Reload()
}

func (b *BleveDB) writeIndex(path string, documents []Document) error {
	index, err := bleve.New(path, createIndexMapping())
	if err != nil {
		b.logger.Error("could not create staging index", "path", path, "err", err.Error())
		return fmt.Errorf("failed to create staging index: %w", err)
	}
	defer index.Close()

	batch := index.NewBatch()
	for i, doc := range documents {
		if err := batch.Index(strconv.Itoa(doc.DocID), b.indexableFields(doc)); err != nil {
			b.logger.Error("could not index document", "file_path", doc.FilePath, "err", err.Error())
			return err
		}

		if (i+1)%indexingBatchSize == 0 {
			if err := index.Batch(batch); err != nil {
				return err
			}
			batch = index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			b.logger.Error("could not flush final batch", "err", err.Error())
			return err
		}
	}

	return nil
}

// indexableFields expands one document into its bleve field map. The raw page
// text and its normalized and case-folded variants land in separate indexed
// fields so an OCR-garbled query form can still match; queries weight the raw
// field above the variants.
func (b *BleveDB) indexableFields(doc Document) map[string]interface{} {
	raw, normalized, folded := b.normalizer.IndexForms(doc.Content)

	fields := map[string]interface{}{
		indexFieldDocID:      doc.DocID,
		indexFieldPath:       doc.FilePath,
		indexFieldCharCount:  doc.CharCount,
		indexFieldContent:    raw,
		indexFieldPreview:    doc.ContentPreview,
		indexFieldNormalized: normalized,
		indexFieldFolded:     folded,
	}
	if doc.PageNumber != nil {
		fields[indexFieldPageNumber] = *doc.PageNumber
	}

	return fields
}

func (b *BleveDB) verifyIndex(path string, wantDocs int) error {
	index, err := bleve.Open(path)
	if err != nil {
		b.logger.Error("staged index failed verification", "path", path, "err", err.Error())
		return &CorruptError{Path: path, Err: err}
	}
	defer index.Close()

	count, err := index.DocCount()
	if err != nil {
		return &CorruptError{Path: path, Err: err}
	}
	if count != uint64(wantDocs) {
		return &CorruptError{Path: path, Err: fmt.Errorf("staged index holds %d of %d documents", count, wantDocs)}
	}

	return nil
}

// swapIndex replaces the published index directory with the staged one via
// renames, never delete-then-write.
func (b *BleveDB) swapIndex(stagingPath string) error {
	previousPath := b.indexPath + ".previous"
	if err := os.RemoveAll(previousPath); err != nil {
		return fmt.Errorf("failed to clear previous index: %w", err)
	}

	if _, err := os.Stat(b.indexPath); err == nil {
		if err := os.Rename(b.indexPath, previousPath); err != nil {
			return fmt.Errorf("failed to retire published index: %w", err)
		}
	}

	if err := os.Rename(stagingPath, b.indexPath); err != nil {
		// Put the old index back so readers keep a usable copy.
		os.Rename(previousPath, b.indexPath)
		return fmt.Errorf("failed to publish staged index: %w", err)
	}

	if err := os.RemoveAll(previousPath); err != nil {
		b.logger.Warn("could not remove retired index directory", "path", previousPath, "err", err.Error())
	}

	return nil
}

func createIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()

	// Unicode segmentation with no stemming, stop words or case folding:
	// Devanagari has neither a stemmer here nor a stop-word list, and the
	// folded variant arrives pre-lowercased from the normalizer.
	if err := indexMapping.AddCustomAnalyzer(devanagariAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicodetokenizer.Name,
		"token_filters": []string{},
	}); err != nil {
		panic(fmt.Sprintf("failed to register analyzer: %s", err))
	}
	indexMapping.DefaultAnalyzer = devanagariAnalyzer

	docMapping := bleve.NewDocumentMapping()

	pathFieldMapping := bleve.NewTextFieldMapping()
	pathFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt(indexFieldPath, pathFieldMapping)

	docIDFieldMapping := bleve.NewNumericFieldMapping()
	docMapping.AddFieldMappingsAt(indexFieldDocID, docIDFieldMapping)

	pageFieldMapping := bleve.NewNumericFieldMapping()
	docMapping.AddFieldMappingsAt(indexFieldPageNumber, pageFieldMapping)

	charCountFieldMapping := bleve.NewNumericFieldMapping()
	docMapping.AddFieldMappingsAt(indexFieldCharCount, charCountFieldMapping)

	// Raw content is both indexed (with positions, for phrase queries) and
	// stored for display.
	contentFieldMapping := bleve.NewTextFieldMapping()
	contentFieldMapping.Analyzer = devanagariAnalyzer
	contentFieldMapping.Store = true
	contentFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt(indexFieldContent, contentFieldMapping)

	previewFieldMapping := bleve.NewTextFieldMapping()
	previewFieldMapping.Index = false
	previewFieldMapping.Store = true
	docMapping.AddFieldMappingsAt(indexFieldPreview, previewFieldMapping)

	normalizedFieldMapping := bleve.NewTextFieldMapping()
	normalizedFieldMapping.Analyzer = devanagariAnalyzer
	normalizedFieldMapping.Store = false
	normalizedFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt(indexFieldNormalized, normalizedFieldMapping)

	foldedFieldMapping := bleve.NewTextFieldMapping()
	foldedFieldMapping.Analyzer = devanagariAnalyzer
	foldedFieldMapping.Store = false
	foldedFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt(indexFieldFolded, foldedFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}

// Search evaluates a parsed query and returns hits in relevance order.
func (b *BleveDB) Search(q Query, limit int, offset int) (*Response, error) {
	index, err := b.current()
	if err != nil {
		return nil, err
	}

	if q.IsEmpty() {
		return &Response{Results: []Result{}}, nil
	}

	searchRequest := bleve.NewSearchRequestOptions(b.buildSearchQuery(q), limit, offset, false)
	searchRequest.Fields = storedFields

	return b.runSearch(index, searchRequest)
}

// SearchExact evaluates a phrase-only query: a document qualifies only when
// the term sequence appears contiguously and in order.
func (b *BleveDB) SearchExact(phrase string, limit int) (*Response, error) {
	index, err := b.current()
	if err != nil {
		return nil, err
	}

	phrase = b.normalizer.Normalize(phrase)
	if phrase == "" {
		return &Response{Results: []Result{}}, nil
	}

	phraseQuery := bleve.NewMatchPhraseQuery(phrase)
	phraseQuery.SetField(indexFieldNormalized)

	searchRequest := bleve.NewSearchRequestOptions(phraseQuery, limit, 0, false)
	searchRequest.Fields = storedFields

	return b.runSearch(index, searchRequest)
}

func (b *BleveDB) buildSearchQuery(q Query) query.Query {
	variantFields := []struct {
		name  string
		boost float64
	}{
		{indexFieldContent, boostForRawContent},
		{indexFieldNormalized, boostForVariant},
		{indexFieldFolded, boostForVariant},
	}

	disjunctQuery := bleve.NewDisjunctionQuery()

	if q.Phrase != "" {
		for _, field := range variantFields {
			phraseQuery := bleve.NewMatchPhraseQuery(q.Phrase)
			phraseQuery.SetField(field.name)
			phraseQuery.SetBoost(field.boost)
			disjunctQuery.AddQuery(phraseQuery)
		}
		return disjunctQuery
	}

	if len(q.Terms) > 0 {
		text := strings.Join(q.Terms, " ")
		for _, field := range variantFields {
			matchQuery := bleve.NewMatchQuery(text)
			matchQuery.SetField(field.name)
			matchQuery.SetBoost(field.boost)
			disjunctQuery.AddQuery(matchQuery)
		}
	}

	for _, prefix := range q.Prefixes {
		for _, field := range variantFields {
			prefixQuery := bleve.NewPrefixQuery(prefix)
			prefixQuery.SetField(field.name)
			prefixQuery.SetBoost(field.boost)
			disjunctQuery.AddQuery(prefixQuery)
		}
	}

	return disjunctQuery
}

func (b *BleveDB) runSearch(index bleve.Index, searchRequest *bleve.SearchRequest) (*Response, error) {
	start := time.Now()

	searchResult, err := index.Search(searchRequest)
	if err != nil {
		b.logger.Error("search failed", "err", err.Error())
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, 0, len(searchResult.Hits))
	for _, hit := range searchResult.Hits {
		doc := documentFromFields(hit.Fields)
		results = append(results, Result{Document: doc, Score: hit.Score})
	}

	return &Response{
		Results:    results,
		Total:      searchResult.Total,
		MaxScore:   searchResult.MaxScore,
		SearchTime: time.Since(start).String(),
	}, nil
}

// GetDocument fetches one document's stored fields by doc id.
func (b *BleveDB) GetDocument(docID int) (*Document, error) {
	index, err := b.current()
	if err != nil {
		return nil, err
	}

	docIDQuery := bleve.NewDocIDQuery([]string{strconv.Itoa(docID)})
	searchRequest := bleve.NewSearchRequestOptions(docIDQuery, 1, 0, false)
	searchRequest.Fields = storedFields

	searchResult, err := index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("document lookup failed: %w", err)
	}
	if len(searchResult.Hits) == 0 {
		return nil, &DocumentNotFoundError{DocID: docID}
	}

	doc := documentFromFields(searchResult.Hits[0].Fields)
	return &doc, nil
}

// Lookup returns the posting list of one normalized term, sorted by ascending
// doc id. The list is empty when the term is absent.
func (b *BleveDB) Lookup(term string) ([]Posting, error) {
	index, err := b.current()
	if err != nil {
		return nil, err
	}

	term = b.normalizer.Normalize(term)
	if term == "" {
		return []Posting{}, nil
	}

	termQuery := bleve.NewTermQuery(term)
	termQuery.SetField(indexFieldNormalized)

	count, err := index.DocCount()
	if err != nil {
		return nil, err
	}

	searchRequest := bleve.NewSearchRequestOptions(termQuery, int(count), 0, false)
	searchRequest.Fields = []string{indexFieldDocID}
	searchRequest.IncludeLocations = true

	searchResult, err := index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("term lookup failed: %w", err)
	}

	postings := make([]Posting, 0, len(searchResult.Hits))
	for _, hit := range searchResult.Hits {
		docID, err := strconv.Atoi(hit.ID)
		if err != nil {
			continue
		}
		frequency := 0
		for _, locations := range hit.Locations[indexFieldNormalized] {
			frequency += len(locations)
		}
		postings = append(postings, Posting{DocID: docID, Frequency: frequency})
	}

	sort.Slice(postings, func(i, j int) bool { return postings[i].DocID < postings[j].DocID })

	return postings, nil
}

func (b *BleveDB) DocCount() (uint64, error) {
	index, err := b.current()
	if err != nil {
		return 0, err
	}
	return index.DocCount()
}

func (b *BleveDB) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error
	for _, retired := range b.retired {
		if err := retired.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.retired = nil

	if b.index != nil {
		if err := b.index.Close(); err != nil {
			b.logger.Error("could not close search index", "err", err.Error())
			if firstErr == nil {
				firstErr = err
			}
		}
		b.index = nil
	}

	return firstErr
}

func documentFromFields(fields map[string]interface{}) Document {
	doc := Document{}
	if docID, ok := fields[indexFieldDocID].(float64); ok {
		doc.DocID = int(docID)
	}
	if path, ok := fields[indexFieldPath].(string); ok {
		doc.FilePath = path
	}
	if page, ok := fields[indexFieldPageNumber].(float64); ok {
		pageNumber := int(page)
		doc.PageNumber = &pageNumber
	}
	if charCount, ok := fields[indexFieldCharCount].(float64); ok {
		doc.CharCount = int(charCount)
	}
	if content, ok := fields[indexFieldContent].(string); ok {
		doc.Content = content
	}
	if preview, ok := fields[indexFieldPreview].(string); ok {
		doc.ContentPreview = preview
	}
	return doc
}
