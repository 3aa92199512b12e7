package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marathi-corpus/shodh/api/handlers"
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

type routeDependencies struct {
	logger     logger.Logger
	config     *config.Config
	searchDB   searchdb.DB
	kvDB       kvdb.DB
	normalizer *normalize.Normalizer
	pages      corpus.PageStore
	semantic   *semantic.Service
	validator  *validation.Validator
	metrics    *metrics.Metrics
}

func setupRoutes(ctx context.Context, router *gin.Engine, deps routeDependencies) {
	router.GET("/", landing())
	router.GET("/metrics", gin.WrapH(deps.metrics.Handler()))

	apiGroup := router.Group("/api")
	apiGroup.GET("/health", handlers.Health(deps.searchDB))

	handlers.SetupSearch(apiGroup, deps.logger, deps.searchDB, deps.normalizer, deps.metrics, deps.validator)
	handlers.SetupContext(apiGroup, deps.logger, deps.pages, deps.config.GetContextLines(), deps.validator)
	handlers.SetupIndex(ctx, apiGroup, deps.logger, deps.searchDB, deps.kvDB, deps.metrics, deps.config.GetCorpusDir())
	handlers.SetupSemantic(apiGroup, deps.logger, deps.semantic, deps.metrics, deps.validator)
}

func landing() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "shodh",
			"endpoints": []string{
				"/api/health",
				"/api/search",
				"/api/search/exact",
				"/api/search/semantic",
				"/api/context",
				"/api/index",
				"/api/index/status/:id",
				"/api/reload",
				"/metrics",
			},
		})
	}
}

func newRouter() *gin.Engine {
	router := gin.Default()
	router.UseRawPath = true
	router.Use(_CORSMiddleware())
	router.Use(gin.Recovery())

	return router
}
