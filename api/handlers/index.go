package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/marathi-corpus/shodh/db/kvdb"
	"github.com/marathi-corpus/shodh/db/searchdb"
	"github.com/marathi-corpus/shodh/logger"
	"github.com/marathi-corpus/shodh/metrics"
	"github.com/marathi-corpus/shodh/services/index"
)

type IndexResponse struct {
	RequestID string `json:"request_id"`
}

type IndexStatusResponse struct {
	RequestID string `json:"request_id"`
	Progress  int    `json:"progress"`
	Failed    bool   `json:"failed"`
}

func SetupIndex(ctx context.Context, router *gin.RouterGroup, logger logger.Logger, searchDB searchdb.DB, kvDB kvdb.DB, m *metrics.Metrics, corpusDir string) {
	service := index.New(ctx, logger, searchDB, kvDB, m, corpusDir)
	router.POST("/index", handleIndex(service, logger))
	router.GET("/index/status/:id", handleIndexStatus(service, logger))
	router.GET("/index/stats", handleIndexStats(service, logger))
	router.POST("/reload", handleReload(searchDB, logger))
}

func handleIndex(service *index.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		if err := service.Build(requestID); err != nil {
			logger.Warn("could not start index build", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusConflict, []string{err.Error()})
			return
		}

		writeResponse(c, IndexResponse{RequestID: requestID}, http.StatusAccepted, nil)
	}
}

func handleIndexStatus(service *index.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Param("id")
		if _, err := uuid.Parse(requestID); err != nil {
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{"invalid request id"})
			return
		}

		status, err := service.GetStatus(requestID)
		if err != nil {
			logger.Warn("could not get index build status", "request_id", requestID, "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotFound, []string{"unknown request id"})
			return
		}

		statusResponse := IndexStatusResponse{RequestID: requestID, Progress: status}
		if status == index.ProgressStatusFailed {
			statusResponse.Progress = 0
			statusResponse.Failed = true
		}

		writeResponse(c, statusResponse, http.StatusOK, nil)
	}
}

func handleIndexStats(service *index.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := service.LatestStats()
		if err != nil {
			logger.Warn("no build stats available", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotFound, []string{"no completed build"})
			return
		}

		writeResponse(c, stats, http.StatusOK, nil)
	}
}

// handleReload swaps the serving index for the latest on-disk one, for when a
// build happened out of process.
func handleReload(searchDB searchdb.DB, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := searchDB.Reload(); err != nil {
			logger.Error("index reload failed", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusServiceUnavailable, []string{err.Error()})
			return
		}

		writeResponse(c, nil, http.StatusNoContent, nil)
	}
}
