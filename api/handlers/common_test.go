// Common test helpers
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/marathi-corpus/shodh/corpus"
	"github.com/marathi-corpus/shodh/db/kvdb"
	"github.com/marathi-corpus/shodh/db/searchdb"
	"github.com/marathi-corpus/shodh/logger"
	"github.com/marathi-corpus/shodh/metrics"
	"github.com/marathi-corpus/shodh/normalize"
	"github.com/marathi-corpus/shodh/services/semantic"
	"github.com/marathi-corpus/shodh/validation"
)

var testPages = map[string]string{
	"riyasat_page_0000.txt": "शिवाजी महाराज यांनी स्वराज्याची स्थापना केली\nमराठा साम्राज्याचा उदय",
	"riyasat_page_0001.txt": "पेशवे दफ्तरातील कागदपत्रे\nसातारा आणि पुणे दरबार",
	"riyasat_page_0002.txt": "इंग्रज आणि मराठे यांच्यातील तह\nशेवटचा बाजीराव पेशवा",
	"bakhar_page_0000.txt":  "पानिपतची बखर\nसदाशिवराव भाऊ यांची मोहीम",
}

type testCase struct {
	name           string
	queryParams    map[string]string
	expectedStatus int
	checkResponse  func(t *testing.T, body map[string]any)
}

func newTestLogger() logger.Logger {

	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}

// setupTestServer wires the full route table against real databases rooted in
// a temporary directory, the same way the server does at startup.
func setupTestServer(t *testing.T, assert *require.Assertions) *gin.Engine {
	t.Helper()

	tempDir := t.TempDir()
	corpusDir := filepath.Join(tempDir, "corpus")
	assert.NoError(os.MkdirAll(corpusDir, 0755))
	for name, content := range testPages {
		assert.NoError(os.WriteFile(filepath.Join(corpusDir, name), []byte(content), 0644))
	}

	testLogger := newTestLogger()
	normalizer := normalize.New()

	searchDB := searchdb.New(testLogger, filepath.Join(tempDir, "pages.bleve"), normalizer)
	kvDB, err := kvdb.New(testLogger, filepath.Join(tempDir, "metadata.db"))
	assert.NoError(err, "could not create kv database")
	validator, err := validation.New(testLogger)
	assert.NoError(err, "could not create validator")
	m := metrics.New()

	ctx, cancel := context.WithCancel(context.Background())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	apiGroup := router.Group("/api")

	apiGroup.GET("/health", Health(searchDB))
	SetupSearch(apiGroup, testLogger, searchDB, normalizer, m, validator)
	SetupContext(apiGroup, testLogger, corpus.NewDirStore(corpusDir), 5, validator)
	SetupIndex(ctx, apiGroup, testLogger, searchDB, kvDB, m, corpusDir)
	SetupSemantic(apiGroup, testLogger, semantic.New(testLogger, semantic.Config{}), m, validator)

	t.Cleanup(func() {
		cancel()
		assert.NoError(searchDB.Close(), "could not close search database")
		assert.NoError(kvDB.Close(), "could not close kv database")
	})

	return router
}

func makeTestHTTPRequest(router *gin.Engine, assert *require.Assertions, method string, endpoint string, queryParams map[string]string) *httptest.ResponseRecorder {

	w := httptest.NewRecorder()

	if len(queryParams) > 0 {
		endpoint = endpoint + "?"
		for key, value := range queryParams {
			if endpoint[len(endpoint)-1] != '?' {
				endpoint = endpoint + "&"
			}
			endpoint = endpoint + key + "=" + url.QueryEscape(value)
		}
	}

	req, err := http.NewRequest(method, endpoint, nil)
	assert.NoError(err)

	router.ServeHTTP(w, req)

	return w
}

// buildTestIndex kicks off a build over the test corpus and waits for it to
// finish so search tests run against a populated index.
func buildTestIndex(t *testing.T, assert *require.Assertions, router *gin.Engine) {
	t.Helper()

	w := makeTestHTTPRequest(router, assert, http.MethodPost, "/api/index", nil)
	assert.Equal(http.StatusAccepted, w.Code, "index build should be accepted")

	var accepted struct {
		Data IndexResponse `json:"data"`
	}
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &accepted))
	assert.NotEmpty(accepted.Data.RequestID)

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		w := makeTestHTTPRequest(router, assert, http.MethodGet, "/api/index/status/"+accepted.Data.RequestID, nil)
		assert.Equal(http.StatusOK, w.Code)

		var status struct {
			Data IndexStatusResponse `json:"data"`
		}
		assert.NoError(json.Unmarshal(w.Body.Bytes(), &status))
		assert.False(status.Data.Failed, "index build failed")
		if status.Data.Progress == 100 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("index build did not complete in time")
}

func unmarshalResponse(assert *require.Assertions, w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &body), fmt.Sprintf("response gotten was %s", w.Body.String()))
	return body
}

func dataField(assert *require.Assertions, body map[string]any) map[string]any {
	data, ok := body["data"].(map[string]any)
	assert.True(ok, "expected data field in response")
	return data
}

func resultFilePaths(assert *require.Assertions, data map[string]any) []string {
	results, ok := data["results"].([]any)
	assert.True(ok, "expected results field in response data")

	var paths []string
	for _, result := range results {
		resultMap, ok := result.(map[string]any)
		assert.True(ok)
		path, ok := resultMap["file_path"].(string)
		assert.True(ok)
		paths = append(paths, path)
	}
	return paths
}
