// Package semantic is a thin client over remote services: an embedding API, a
// vector similarity store and a summarization API. It fails independently of
// the keyword search path.
package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/marathi-corpus/shodh/logger"
)

const (
	embeddingModel = "gemini-embedding-001"
	summaryModel   = "gemini-2.5-flash-lite"
	embeddingTask  = "RETRIEVAL_QUERY"
	// Must match the dimensionality the corpus vectors were generated with.
	embeddingDimension = 768

	geminiBaseURL  = "https://generativelanguage.googleapis.com/v1beta/models"
	requestTimeout = 30 * time.Second
)

// ErrUnavailable means the semantic path is not configured (no API key or
// vector store endpoint).
var ErrUnavailable = errors.New("semantic search not available")

// Result is one semantically similar chunk with its provenance.
type Result struct {
	ChunkID    string  `json:"chunk_id"`
	Text       string  `json:"text"`
	Book       string  `json:"book"`
	SourceFile string  `json:"source_file"`
	ChunkIndex int     `json:"chunk_index"`
	PageRange  string  `json:"page_range"`
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"`
}

type Response struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Summary string   `json:"summary,omitempty"`
}

type Config struct {
	APIKey         string
	VectorStoreURL string
	Collection     string
}

type Service struct {
	logger logger.Logger
	config Config
	client *http.Client

	// geminiBaseURL is only overridden in tests.
	geminiBaseURL string
}

func New(logger logger.Logger, config Config) *Service {
	return &Service{
		logger:        logger,
		config:        config,
		client:        &http.Client{Timeout: requestTimeout},
		geminiBaseURL: geminiBaseURL,
	}
}

// IsConfigured reports whether both remote dependencies are set up.
func (s *Service) IsConfigured() bool {
	return s.config.APIKey != "" && s.config.VectorStoreURL != ""
}

// Search embeds the query, finds nearest neighbors in the vector store and
// optionally summarizes the retrieved passages.
func (s *Service) Search(ctx context.Context, query string, limit int, includeSummary bool) (*Response, error) {
	if !s.IsConfigured() {
		return nil, ErrUnavailable
	}

	embedding, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := s.queryVectorStore(ctx, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("vector store query failed: %w", err)
	}

	response := &Response{
		Query:   query,
		Results: results,
		Total:   len(results),
	}

	if includeSummary && len(results) > 0 {
		summary, err := s.summarize(ctx, query, results)
		if err != nil {
			// Summarization failure never fails the search.
			s.logger.Warn("summarization failed", "err", err.Error())
		} else {
			response.Summary = summary
		}
	}

	return response, nil
}

func (s *Service) embedQuery(ctx context.Context, query string) ([]float64, error) {
	url := fmt.Sprintf("%s/%s:embedContent?key=%s", s.geminiBaseURL, embeddingModel, s.config.APIKey)

	body := map[string]interface{}{
		"model": "models/" + embeddingModel,
		"content": map[string]interface{}{
			"parts": []map[string]string{{"text": query}},
		},
		"taskType":             embeddingTask,
		"outputDimensionality": embeddingDimension,
	}

	var parsed struct {
		Embedding struct {
			Values []float64 `json:"values"`
		} `json:"embedding"`
	}
	if err := s.postJSON(ctx, url, body, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Embedding.Values) == 0 {
		return nil, errors.New("no embedding returned")
	}

	return parsed.Embedding.Values, nil
}

func (s *Service) queryVectorStore(ctx context.Context, embedding []float64, limit int) ([]Result, error) {
	url := fmt.Sprintf("%s/api/v1/collections/%s/query", s.config.VectorStoreURL, s.config.Collection)

	body := map[string]interface{}{
		"query_embeddings": [][]float64{embedding},
		"n_results":        limit,
		"include":          []string{"documents", "metadatas", "distances"},
	}

	var parsed struct {
		IDs       [][]string                 `json:"ids"`
		Documents [][]string                 `json:"documents"`
		Metadatas [][]map[string]interface{} `json:"metadatas"`
		Distances [][]float64                `json:"distances"`
	}
	if err := s.postJSON(ctx, url, body, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.IDs) == 0 {
		return []Result{}, nil
	}

	// Each parallel array may be absent or shorter than ids; a sparse
	// response degrades to sparse results, never an error.
	var documents []string
	if len(parsed.Documents) > 0 {
		documents = parsed.Documents[0]
	}
	var distances []float64
	if len(parsed.Distances) > 0 {
		distances = parsed.Distances[0]
	}
	var metadatas []map[string]interface{}
	if len(parsed.Metadatas) > 0 {
		metadatas = parsed.Metadatas[0]
	}

	results := make([]Result, 0, len(parsed.IDs[0]))
	for i, chunkID := range parsed.IDs[0] {
		result := Result{ChunkID: chunkID}
		if i < len(documents) {
			result.Text = documents[i]
		}
		if i < len(distances) {
			result.Distance = distances[i]
			result.Similarity = similarityFromDistance(result.Distance)
		}
		if i < len(metadatas) {
			metadata := metadatas[i]
			result.Book, _ = metadata["book"].(string)
			result.SourceFile, _ = metadata["source_file"].(string)
			result.PageRange, _ = metadata["page_range"].(string)
			if chunkIndex, ok := metadata["chunk_index"].(float64); ok {
				result.ChunkIndex = int(chunkIndex)
			}
		}
		results = append(results, result)
	}

	return results, nil
}

func (s *Service) summarize(ctx context.Context, query string, results []Result) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", s.geminiBaseURL, summaryModel, s.config.APIKey)

	var passages bytes.Buffer
	for i, result := range results {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&passages, "Passage %d (%s):\n%s\n\n", i+1, result.Book, result.Text)
	}

	prompt := fmt.Sprintf(
		"Summarize what the following passages from Marathi history texts say about %q. Answer in prose.\n\n%s",
		query, passages.String())

	body := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := s.postJSON(ctx, url, body, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no summary returned")
	}

	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

func (s *Service) postJSON(ctx context.Context, url string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := s.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}
	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("remote service returned %d: %s", response.StatusCode, truncate(string(data), 200))
	}

	return json.Unmarshal(data, out)
}

// similarityFromDistance maps an embedding distance to a 0-100 percentage.
func similarityFromDistance(distance float64) float64 {
	similarity := (1 - distance/2) * 100
	if similarity < 0 {
		return 0
	}
	if similarity > 100 {
		return 100
	}
	return similarity
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
