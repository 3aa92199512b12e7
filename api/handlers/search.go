package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marathi-corpus/shodh/db/searchdb"
	"github.com/marathi-corpus/shodh/logger"
	"github.com/marathi-corpus/shodh/metrics"
	"github.com/marathi-corpus/shodh/normalize"
	"github.com/marathi-corpus/shodh/services/search"
	"github.com/marathi-corpus/shodh/validation"
)

const defaultResultsPerPage = 20

type SearchRequest struct {
	Query  string `form:"query" json:"query" validate:"required,valid_query,min=1,max=1000"`
	Limit  int    `form:"limit" json:"limit" validate:"min=0,max=100"`
	Offset int    `form:"offset" json:"offset" validate:"min=0"`
	Fuzzy  *bool  `form:"fuzzy" json:"fuzzy"`
}

func (r *SearchRequest) setDefaults() {
	if r.Limit == 0 {
		r.Limit = defaultResultsPerPage
	}

	// Fuzzy reranking is on unless the caller turns it off.
	if r.Fuzzy == nil {
		fuzzy := true
		r.Fuzzy = &fuzzy
	}
}

type SearchResponse struct {
	Query       string          `json:"query"`
	Results     []search.Result `json:"results"`
	SearchTime  string          `json:"search_time"`
	PageDetails Pagination      `json:"page_details"`
}

func SetupSearch(router *gin.RouterGroup, logger logger.Logger, searchDB searchdb.DB, normalizer *normalize.Normalizer, m *metrics.Metrics, validator *validation.Validator) {
	service := search.New(logger, searchDB, normalizer)
	router.GET("/search", handleSearch(service, logger, m, validator))
	router.GET("/search/exact", handleSearchExact(service, logger, m, validator))
}

func handleSearch(service *search.Service, logger logger.Logger, m *metrics.Metrics, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request, ok := bindSearchRequest(c, logger, validator)
		if !ok {
			return
		}

		start := time.Now()
		results, err := service.Search(request.Query, request.Limit, request.Offset, *request.Fuzzy)
		m.SearchLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			m.SearchQueriesTotal.WithLabelValues("keyword", "error").Inc()
			writeSearchError(c, logger, err)
			return
		}
		m.SearchQueriesTotal.WithLabelValues("keyword", "success").Inc()

		writeResponse(c, SearchResponse{
			Query:       request.Query,
			Results:     results.Results,
			SearchTime:  results.SearchTime,
			PageDetails: calculatePagination(int(results.Total), request.Limit, request.Offset),
		}, http.StatusOK, nil)
	}
}

func handleSearchExact(service *search.Service, logger logger.Logger, m *metrics.Metrics, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request, ok := bindSearchRequest(c, logger, validator)
		if !ok {
			return
		}

		results, err := service.SearchExact(request.Query, request.Limit)
		if err != nil {
			m.SearchQueriesTotal.WithLabelValues("exact", "error").Inc()
			writeSearchError(c, logger, err)
			return
		}
		m.SearchQueriesTotal.WithLabelValues("exact", "success").Inc()

		writeResponse(c, SearchResponse{
			Query:       request.Query,
			Results:     results.Results,
			SearchTime:  results.SearchTime,
			PageDetails: calculatePagination(int(results.Total), request.Limit, 0),
		}, http.StatusOK, nil)
	}
}

func bindSearchRequest(c *gin.Context, logger logger.Logger, validator *validation.Validator) (SearchRequest, bool) {
	request := SearchRequest{}
	if err := c.ShouldBindQuery(&request); err != nil {
		logger.Warn("could not extract expected params from search request", "err", err.Error())
		c.Abort()
		writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request parameters"})
		return request, false
	}
	request.setDefaults()

	if err := validator.Validate(request); err != nil {
		logger.Warn("could not validate search request", "err", err.Error())
		c.Abort()
		writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
		return request, false
	}

	return request, true
}

func writeSearchError(c *gin.Context, logger logger.Logger, err error) {
	logger.Error("search failed", "err", err.Error())
	c.Abort()

	status := http.StatusInternalServerError
	if errors.Is(err, searchdb.ErrIndexUnavailable) {
		status = http.StatusServiceUnavailable
	}
	writeResponse(c, nil, status, []string{err.Error()})
}
