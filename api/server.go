package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marathi-corpus/shodh/config"
	"github.com/marathi-corpus/shodh/corpus"
	"github.com/marathi-corpus/shodh/db/kvdb"
	"github.com/marathi-corpus/shodh/db/searchdb"
	"github.com/marathi-corpus/shodh/logger"
	"github.com/marathi-corpus/shodh/metrics"
	"github.com/marathi-corpus/shodh/normalize"
	"github.com/marathi-corpus/shodh/services/semantic"
	"github.com/marathi-corpus/shodh/validation"
)

type server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     *config.Config
	kvdb       kvdb.DB
	searchdb   searchdb.DB
	normalizer *normalize.Normalizer
	pages      corpus.PageStore
	semantic   *semantic.Service
	validator  *validation.Validator
	metrics    *metrics.Metrics
	logger     logger.Logger
}

func Run(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)

	defer cancel()

	s := &server{
		config: cfg,
		logger: logger.New(),
	}
	if err := s.setupDependencies(); err != nil {
		return err
	}
	s.setupRouter(ctx)
	s.setupHTTPServer()
	s.setupGracefulShutdown(ctx)

	return nil
}

func (s *server) setupDependencies() error {
	var err error
	s.kvdb, err = kvdb.New(s.logger, s.config.GetKVDBPath())
	if err != nil {
		s.logger.Error("error creating kvDB", "err", err.Error())
		return err
	}
	s.normalizer = normalize.New()
	s.searchdb = searchdb.New(s.logger, s.config.GetIndexPath(), s.normalizer)
	s.pages = corpus.NewDirStore(s.config.GetCorpusDir())
	s.semantic = semantic.New(s.logger, semantic.Config{
		APIKey:         s.config.GetGeminiAPIKey(),
		VectorStoreURL: s.config.GetVectorStoreURL(),
		Collection:     s.config.GetVectorCollection(),
	})
	s.validator, err = validation.New(s.logger)
	if err != nil {
		s.logger.Error("error creating validator", "err", err.Error())
		return err
	}
	s.metrics = metrics.New()

	return nil
}

func (s *server) setupRouter(ctx context.Context) {
	router := newRouter()

	router.Use(loggingMiddleware(s.logger))
	router.Use(metricsMiddleware(s.metrics))

	setupRoutes(ctx, router, routeDependencies{
		logger:     s.logger,
		config:     s.config,
		searchDB:   s.searchdb,
		kvDB:       s.kvdb,
		normalizer: s.normalizer,
		pages:      s.pages,
		semantic:   s.semantic,
		validator:  s.validator,
		metrics:    s.metrics,
	})

	s.router = router
}

func (s *server) setupHTTPServer() {

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", s.config.GetPort()),
		Handler: s.router.Handler(),
	}
	s.httpServer = httpServer
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()
}

func (s *server) setupGracefulShutdown(ctx context.Context) {

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		s.shutdown()
	}()

	wg.Wait()
}

// shutdown drains in-flight requests before closing the stores they depend
// on; a request completing inside the grace window must never hit a closed
// database.
func (s *server) shutdown() {
	s.logger.Info("starting to shut down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("error shutting down http server", "err", err)
	}

	s.kvdb.Close()
	s.searchdb.Close()
	s.logger.Info("shut down http server successfully")
}
