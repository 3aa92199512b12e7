// Command indexer rebuilds the search index from a corpus directory without
// going through the HTTP API. Meant for initial ingestion and cron rebuilds; a
// running server picks up the result via POST /api/reload.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/marathi-corpus/shodh/config"
	"github.com/marathi-corpus/shodh/db/kvdb"
	"github.com/marathi-corpus/shodh/db/searchdb"
	"github.com/marathi-corpus/shodh/logger"
	"github.com/marathi-corpus/shodh/metrics"
	"github.com/marathi-corpus/shodh/normalize"
	"github.com/marathi-corpus/shodh/services/index"
)

func main() {
	godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	corpusDir := flag.String("corpus", cfg.GetCorpusDir(), "directory of one-file-per-page OCR text files")
	storageDir := flag.String("storage", "", "directory for the index and metadata store (default from config)")
	flag.Parse()

	indexPath := cfg.GetIndexPath()
	kvdbPath := cfg.GetKVDBPath()
	if *storageDir != "" {
		indexPath = filepath.Join(*storageDir, "pages.bleve")
		kvdbPath = filepath.Join(*storageDir, "metadata.db")
	}

	log := logger.New()

	metadataStore, err := kvdb.New(log, kvdbPath)
	if err != nil {
		return fmt.Errorf("failed to open metadata store: %w", err)
	}
	defer metadataStore.Close()

	searchDB := searchdb.New(log, indexPath, normalize.New())
	defer searchDB.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	indexService := index.New(ctx, log, searchDB, metadataStore, metrics.New(), *corpusDir)

	if err := indexService.BuildSync(ctx, uuid.New().String()); err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}

	stats, err := indexService.LatestStats()
	if err != nil {
		return fmt.Errorf("failed to read build stats: %w", err)
	}
	fmt.Printf("indexed %d of %d files (%d skipped), %d documents\n",
		stats.IndexedFiles, stats.TotalFiles, stats.SkippedFiles, stats.DocumentCount)

	return nil
}
