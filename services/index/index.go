// Package index orchestrates corpus index builds: discovering page files,
// reading them in parallel, and publishing a fresh index atomically while the
// old one keeps serving.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marathi-corpus/shodh/corpus"
	"github.com/marathi-corpus/shodh/db/kvdb"
	"github.com/marathi-corpus/shodh/db/searchdb"
	"github.com/marathi-corpus/shodh/logger"
	"github.com/marathi-corpus/shodh/metrics"
)

const (
	ProgressStatusDiscovered = 10
	ProgressStatusRead       = 60
	ProgressStatusComplete   = 100
	ProgressStatusFailed     = -1

	maxParallelPageReads = 8
	maxIndexBuildingTime = 30 * time.Minute
)

// LatestStatsKey is where the most recent build's statistics live in the
// metadata store.
const LatestStatsKey = "latest"

type Service struct {
	logger        logger.Logger
	searchDB      searchdb.DB
	metadataStore kvdb.DB
	metrics       *metrics.Metrics
	corpusDir     string
	buildIndexC   chan string
}

func New(ctx context.Context, logger logger.Logger, searchDB searchdb.DB, metadataStore kvdb.DB, m *metrics.Metrics, corpusDir string) *Service {
	indexService := &Service{
		logger:        logger,
		searchDB:      searchDB,
		metadataStore: metadataStore,
		metrics:       m,
		corpusDir:     corpusDir,
		buildIndexC:   make(chan string),
	}

	go indexService.run(ctx)
	return indexService
}

// Build enqueues an index build. Builds are exclusive: a request while one is
// running is refused rather than queued behind it.
func (s *Service) Build(requestID string) error {
	s.setRequestStatus(requestID, 0)

	select {
	case s.buildIndexC <- requestID:
		return nil
	default:
		s.logger.Warn("request to index while indexing is already in progress")
		s.clearRequestStatus(requestID)
		return errors.New("indexing already in progress")
	}
}

// GetStatus retrieves the progress of a build request as a percentage, or
// ProgressStatusFailed.
func (s *Service) GetStatus(requestID string) (int, error) {
	value, err := s.metadataStore.Get(kvdb.RequestsBucket, requestID)
	if err != nil {
		return 0, fmt.Errorf("request not found: %w", err)
	}

	status, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid status value: %w", err)
	}

	return status, nil
}

// LatestStats returns the statistics of the most recent completed build.
func (s *Service) LatestStats() (*kvdb.BuildStats, error) {
	value, err := s.metadataStore.Get(kvdb.BuildsBucket, LatestStatsKey)
	if err != nil {
		return nil, err
	}

	var stats kvdb.BuildStats
	if err := json.Unmarshal([]byte(value), &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal build stats: %w", err)
	}

	return &stats, nil
}

func (s *Service) run(ctx context.Context) {
	for {
		select {
		case requestID := <-s.buildIndexC:
			buildCtx, cancel := context.WithTimeout(ctx, maxIndexBuildingTime)
			if err := s.BuildSync(buildCtx, requestID); err != nil {
				s.logger.Error("index build failed", "request_id", requestID, "err", err.Error())
			}
			cancel()
		case <-ctx.Done():
			s.logger.Info("index service stopped", "reason", ctx.Err())
			return
		}
	}
}

// BuildSync runs one full corpus build: discover pages, read them, build and
// publish the index, record statistics. Per-page failures are skipped and
// counted; index-level failures abort the build and leave the previously
// published index untouched.
func (s *Service) BuildSync(ctx context.Context, requestID string) error {
	s.pruneRequests(requestID)

	names, err := corpus.ListPages(s.corpusDir)
	if err != nil {
		s.failBuild(requestID, fmt.Errorf("failed to list corpus pages: %w", err))
		return err
	}
	s.logger.Info("discovered corpus pages", "count", len(names), "corpus_dir", s.corpusDir)
	s.setRequestStatus(requestID, ProgressStatusDiscovered)

	pages := s.readPages(ctx, names)
	if err := ctx.Err(); err != nil {
		s.failBuild(requestID, err)
		return err
	}
	s.setRequestStatus(requestID, ProgressStatusRead)

	var documents []searchdb.Document
	skipped := 0
	for _, page := range pages {
		if !page.ok {
			skipped++
			continue
		}
		documents = append(documents, newDocument(len(documents), page))
	}

	if err := s.searchDB.Build(documents); err != nil {
		s.failBuild(requestID, fmt.Errorf("failed to build search index: %w", err))
		return err
	}

	docCount, err := s.searchDB.DocCount()
	if err != nil {
		s.failBuild(requestID, err)
		return err
	}

	stats := kvdb.BuildStats{
		TotalFiles:    len(names),
		IndexedFiles:  len(documents),
		SkippedFiles:  skipped,
		DocumentCount: docCount,
		BuiltAt:       time.Now().UTC(),
	}
	s.recordStats(stats)

	s.metrics.DocsIndexedTotal.Add(float64(len(documents)))
	s.metrics.IndexBuildsTotal.WithLabelValues("success").Inc()

	s.setRequestStatus(requestID, ProgressStatusComplete)
	s.logger.Info("index build complete",
		"request_id", requestID,
		"total_files", stats.TotalFiles,
		"indexed", stats.IndexedFiles,
		"skipped", stats.SkippedFiles,
		"doc_count", stats.DocumentCount)

	return nil
}

type pageContent struct {
	name    string
	content string
	ok      bool
}

// readPages reads every page file with bounded parallelism, preserving corpus
// order so doc ids stay deterministic. Unreadable or empty pages are marked
// skipped, never fatal.
func (s *Service) readPages(ctx context.Context, names []string) []pageContent {
	pages := make([]pageContent, len(names))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(maxParallelPageReads)

	for i, name := range names {
		i, name := i, name
		pages[i] = pageContent{name: name}
		group.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			data, err := os.ReadFile(filepath.Join(s.corpusDir, name))
			if err != nil {
				s.logger.Warn("skipping unreadable page", "file", name, "err", err.Error())
				return nil
			}
			content := string(data)
			if strings.TrimSpace(content) == "" {
				s.logger.Warn("skipping empty page", "file", name)
				return nil
			}

			pages[i].content = content
			pages[i].ok = true
			return nil
		})
	}

	group.Wait()

	return pages
}

func newDocument(docID int, page pageContent) searchdb.Document {
	doc := searchdb.Document{
		DocID:          docID,
		FilePath:       page.name,
		Content:        page.content,
		ContentPreview: preview(page.content),
		CharCount:      len([]rune(page.content)),
	}
	if pageNumber, ok := corpus.ExtractPageNumber(page.name); ok {
		doc.PageNumber = &pageNumber
	}
	return doc
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= searchdb.ContentPreviewLength {
		return content
	}
	return string(runes[:searchdb.ContentPreviewLength])
}

func (s *Service) failBuild(requestID string, err error) {
	s.logger.Error("failed to create index", "request_id", requestID, "err", err.Error())
	s.metrics.IndexBuildsTotal.WithLabelValues("failure").Inc()
	s.setRequestStatus(requestID, ProgressStatusFailed)
}

func (s *Service) recordStats(stats kvdb.BuildStats) {
	data, err := json.Marshal(stats)
	if err != nil {
		s.logger.Error("failed to marshal build stats", "err", err.Error())
		return
	}
	if err := s.metadataStore.Set(kvdb.BuildsBucket, LatestStatsKey, string(data)); err != nil {
		s.logger.Error("failed to record build stats", "err", err.Error())
	}
}

func (s *Service) setRequestStatus(requestID string, status int) {
	if err := s.metadataStore.Set(kvdb.RequestsBucket, requestID, strconv.Itoa(status)); err != nil {
		s.logger.Error("failed to update request status", "request_id", requestID, "status", status, "err", err.Error())
	}
}

func (s *Service) clearRequestStatus(requestID string) {
	if err := s.metadataStore.Delete(kvdb.RequestsBucket, requestID); err != nil {
		s.logger.Warn("failed to clear request status", "request_id", requestID, "err", err.Error())
	}
}

// pruneRequests drops progress entries of earlier builds, so the requests
// bucket only ever holds the build that is running.
func (s *Service) pruneRequests(current string) {
	keys, err := s.metadataStore.GetAllKeys(kvdb.RequestsBucket)
	if err != nil {
		s.logger.Warn("failed to list request statuses for pruning", "err", err.Error())
		return
	}
	for _, key := range keys {
		if key == current {
			continue
		}
		s.clearRequestStatus(key)
	}
}
