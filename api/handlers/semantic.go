package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marathi-corpus/shodh/logger"
	"github.com/marathi-corpus/shodh/metrics"
	"github.com/marathi-corpus/shodh/services/semantic"
	"github.com/marathi-corpus/shodh/validation"
)

const defaultSemanticResults = 5

type SemanticSearchRequest struct {
	Query   string `form:"query" json:"query" validate:"required,valid_query,min=1,max=1000"`
	Limit   int    `form:"limit" json:"limit" validate:"min=0,max=20"`
	Summary bool   `form:"summary" json:"summary"`
}

func SetupSemantic(router *gin.RouterGroup, logger logger.Logger, service *semantic.Service, m *metrics.Metrics, validator *validation.Validator) {
	router.GET("/search/semantic", handleSemanticSearch(service, logger, m, validator))
}

func handleSemanticSearch(service *semantic.Service, logger logger.Logger, m *metrics.Metrics, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := SemanticSearchRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from semantic search request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request parameters"})
			return
		}
		if request.Limit == 0 {
			request.Limit = defaultSemanticResults
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate semantic search request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		results, err := service.Search(c.Request.Context(), request.Query, request.Limit, request.Summary)
		if err != nil {
			if errors.Is(err, semantic.ErrUnavailable) {
				m.SearchQueriesTotal.WithLabelValues("semantic", "unavailable").Inc()
				c.Abort()
				writeResponse(c, nil, http.StatusServiceUnavailable, []string{err.Error()})
				return
			}
			m.SearchQueriesTotal.WithLabelValues("semantic", "error").Inc()
			logger.Error("semantic search failed", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusBadGateway, []string{err.Error()})
			return
		}
		m.SearchQueriesTotal.WithLabelValues("semantic", "success").Inc()

		writeResponse(c, results, http.StatusOK, nil)
	}
}
