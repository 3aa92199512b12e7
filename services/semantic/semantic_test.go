package semantic

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestService(geminiURL, vectorStoreURL string) *Service {
	service := New(slog.New(slog.NewJSONHandler(os.Stderr, nil)), Config{
		APIKey:         "test-key",
		VectorStoreURL: vectorStoreURL,
		Collection:     "marathi_history",
	})
	service.geminiBaseURL = geminiURL
	return service
}

func newFakeGemini(t *testing.T, summary string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "embedContent"):
			json.NewEncoder(w).Encode(map[string]any{
				"embedding": map[string]any{"values": []float64{0.1, 0.2, 0.3}},
			})
		case strings.Contains(r.URL.Path, "generateContent"):
			json.NewEncoder(w).Encode(map[string]any{
				"candidates": []any{
					map[string]any{"content": map[string]any{
						"parts": []any{map[string]any{"text": summary}},
					}},
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newFakeVectorStore(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/collections/marathi_history/query", r.URL.Path)

		var request map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		require.NotEmpty(t, request["query_embeddings"])

		json.NewEncoder(w).Encode(map[string]any{
			"ids":       [][]string{{"chunk-1", "chunk-2"}},
			"documents": [][]string{{"स्वराज्याची स्थापना", "पेशवे दफ्तर"}},
			"metadatas": [][]map[string]any{{
				{"book": "riyasat", "source_file": "riyasat_page_0000.txt", "page_range": "0-1", "chunk_index": float64(0)},
				{"book": "riyasat", "source_file": "riyasat_page_0001.txt", "page_range": "1-2", "chunk_index": float64(1)},
			}},
			"distances": [][]float64{{0.2, 0.8}},
		})
	}))
}

func TestSearchUnconfigured(t *testing.T) {
	assert := require.New(t)
	service := New(slog.New(slog.NewJSONHandler(os.Stderr, nil)), Config{})

	_, err := service.Search(context.Background(), "स्वराज्य", 5, false)
	assert.ErrorIs(err, ErrUnavailable)
}

func TestSearchReturnsRankedChunks(t *testing.T) {
	assert := require.New(t)
	gemini := newFakeGemini(t, "")
	defer gemini.Close()
	vectorStore := newFakeVectorStore(t)
	defer vectorStore.Close()

	service := newTestService(gemini.URL, vectorStore.URL)

	response, err := service.Search(context.Background(), "स्वराज्य", 5, false)
	assert.NoError(err)
	assert.Equal(2, response.Total)
	assert.Empty(response.Summary)

	first := response.Results[0]
	assert.Equal("chunk-1", first.ChunkID)
	assert.Equal("स्वराज्याची स्थापना", first.Text)
	assert.Equal("riyasat", first.Book)
	assert.Equal("riyasat_page_0000.txt", first.SourceFile)
	assert.Equal("0-1", first.PageRange)
	assert.Equal(0.2, first.Distance)
	assert.InDelta(90, first.Similarity, 0.001)

	second := response.Results[1]
	assert.Equal(1, second.ChunkIndex)
	assert.InDelta(60, second.Similarity, 0.001)
}

func TestSearchWithSummary(t *testing.T) {
	assert := require.New(t)
	gemini := newFakeGemini(t, "स्वराज्याच्या स्थापनेबद्दलचा सारांश")
	defer gemini.Close()
	vectorStore := newFakeVectorStore(t)
	defer vectorStore.Close()

	service := newTestService(gemini.URL, vectorStore.URL)

	response, err := service.Search(context.Background(), "स्वराज्य", 5, true)
	assert.NoError(err)
	assert.Equal("स्वराज्याच्या स्थापनेबद्दलचा सारांश", response.Summary)
}

func TestSearchSparseVectorStoreResponse(t *testing.T) {
	assert := require.New(t)
	gemini := newFakeGemini(t, "")
	defer gemini.Close()
	// Ids present but every parallel array empty.
	vectorStore := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ids":       [][]string{{"chunk-1"}},
			"documents": [][]string{},
			"metadatas": [][]map[string]any{},
			"distances": [][]float64{},
		})
	}))
	defer vectorStore.Close()

	service := newTestService(gemini.URL, vectorStore.URL)

	response, err := service.Search(context.Background(), "स्वराज्य", 5, false)
	assert.NoError(err)
	assert.Equal(1, response.Total)
	assert.Equal("chunk-1", response.Results[0].ChunkID)
	assert.Empty(response.Results[0].Text)
	assert.Zero(response.Results[0].Distance)
	assert.Zero(response.Results[0].Similarity)
}

func TestSearchEmbeddingFailure(t *testing.T) {
	assert := require.New(t)
	gemini := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer gemini.Close()
	vectorStore := newFakeVectorStore(t)
	defer vectorStore.Close()

	service := newTestService(gemini.URL, vectorStore.URL)

	_, err := service.Search(context.Background(), "स्वराज्य", 5, false)
	assert.Error(err)
	assert.Contains(err.Error(), "failed to embed query")
}

func TestSimilarityFromDistance(t *testing.T) {
	assert := require.New(t)
	assert.Equal(float64(100), similarityFromDistance(0))
	assert.Equal(float64(50), similarityFromDistance(1))
	assert.Equal(float64(0), similarityFromDistance(2))
	assert.Equal(float64(0), similarityFromDistance(3))
}
