// Package search is the query engine: it parses raw user queries, evaluates
// them against the index store and reranks candidates by fuzzy similarity so
// OCR-faithful matches surface first.
package search

import (
	"strings"

	"github.com/marathi-corpus/shodh/db/searchdb"
	"github.com/marathi-corpus/shodh/logger"
	"github.com/marathi-corpus/shodh/normalize"
)

// Keyword relevance dominates the final ranking; fuzzy similarity only nudges
// it toward OCR-faithful matches.
const (
	primaryWeight = 0.7
	fuzzyWeight   = 0.3
)

// rerankHeadroom is how many times more candidates than requested are fetched
// when fuzzy reranking is on, so the reranker can reorder without losing true
// top results. Only this window is ever reranked; a document with low keyword
// relevance beyond it stays unsurfaced, which bounds reranking cost.
const rerankHeadroom = 3

// Result is one ranked hit. PrimaryScore and FuzzyScore are on a 0-100 scale;
// PrimaryScore is relative to the best candidate of the same query, not
// absolute across queries.
type Result struct {
	DocID          int     `json:"doc_id"`
	FilePath       string  `json:"file_path"`
	PageNumber     *int    `json:"page_number"`
	Content        string  `json:"content"`
	ContentPreview string  `json:"content_preview"`
	PrimaryScore   float64 `json:"primary_score"`
	FuzzyScore     float64 `json:"fuzzy_score"`
	CombinedScore  float64 `json:"combined_score"`
}

type Response struct {
	Results    []Result `json:"results"`
	Total      uint64   `json:"total"`
	SearchTime string   `json:"search_time"`
}

type Service struct {
	logger     logger.Logger
	db         searchdb.DB
	normalizer *normalize.Normalizer
}

func New(logger logger.Logger, db searchdb.DB, normalizer *normalize.Normalizer) *Service {
	return &Service{
		logger:     logger,
		db:         db,
		normalizer: normalizer,
	}
}

// Search runs a keyword search and returns results [offset, offset+limit) of
// the ranked sequence. An empty or whitespace-only query yields an empty
// result set, not an error.
func (s *Service) Search(rawQuery string, limit int, offset int, useFuzzy bool) (*Response, error) {
	if strings.TrimSpace(rawQuery) == "" {
		return &Response{Results: []Result{}}, nil
	}

	query := s.parse(rawQuery)
	if query.IsEmpty() {
		return &Response{Results: []Result{}}, nil
	}

	fetchCount := offset + limit
	if useFuzzy {
		fetchCount *= rerankHeadroom
	}

	response, err := s.db.Search(query, fetchCount, 0)
	if err != nil {
		return nil, err
	}

	results := scoreCandidates(response)

	if useFuzzy {
		rerank(rawQuery, results)
	}

	return &Response{
		Results:    paginate(results, limit, offset),
		Total:      response.Total,
		SearchTime: response.SearchTime,
	}, nil
}

// SearchExact runs a phrase-only search: only documents containing the literal
// contiguous phrase qualify. Match confidence is treated as maximal, so the
// primary score maps directly to the final score.
func (s *Service) SearchExact(rawQuery string, limit int) (*Response, error) {
	if strings.TrimSpace(rawQuery) == "" {
		return &Response{Results: []Result{}}, nil
	}

	response, err := s.db.SearchExact(rawQuery, limit)
	if err != nil {
		return nil, err
	}

	results := scoreCandidates(response)
	for i := range results {
		results[i].FuzzyScore = 100
		results[i].CombinedScore = results[i].PrimaryScore
	}

	return &Response{
		Results:    results,
		Total:      response.Total,
		SearchTime: response.SearchTime,
	}, nil
}

// scoreCandidates converts index scores to the 0-100 scale relative to the
// best candidate of this query. Combined starts equal to primary; reranking
// overwrites it when enabled.
func scoreCandidates(response *searchdb.Response) []Result {
	results := make([]Result, 0, len(response.Results))
	for _, hit := range response.Results {
		primary := 0.0
		if response.MaxScore > 0 {
			primary = hit.Score / response.MaxScore * 100
		}
		results = append(results, Result{
			DocID:          hit.DocID,
			FilePath:       hit.FilePath,
			PageNumber:     hit.PageNumber,
			Content:        hit.Content,
			ContentPreview: hit.ContentPreview,
			PrimaryScore:   roundScore(primary),
			CombinedScore:  roundScore(primary),
		})
	}
	return results
}

func paginate(results []Result, limit int, offset int) []Result {
	if offset >= len(results) {
		return []Result{}
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}

func roundScore(score float64) float64 {
	return float64(int(score*100+0.5)) / 100
}
