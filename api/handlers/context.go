package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marathi-corpus/shodh/corpus"
	"github.com/marathi-corpus/shodh/logger"
	"github.com/marathi-corpus/shodh/services/excerpt"
	"github.com/marathi-corpus/shodh/validation"
)

type ContextRequest struct {
	File  string `form:"file" json:"file" validate:"required,valid_page_file"`
	Query string `form:"query" json:"query" validate:"required,valid_query,min=1,max=1000"`
	Lines int    `form:"lines" json:"lines" validate:"min=0,max=50"`
}

type ContextResponse struct {
	File    string          `json:"file"`
	Query   string          `json:"query"`
	Lines   int             `json:"lines"`
	Context excerpt.Context `json:"context"`
}

func SetupContext(router *gin.RouterGroup, logger logger.Logger, pages corpus.PageStore, defaultLines int, validator *validation.Validator) {
	service := excerpt.New(logger, pages)
	router.GET("/context", handleContext(service, logger, defaultLines, validator))
}

func handleContext(service *excerpt.Service, logger logger.Logger, defaultLines int, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := ContextRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from context request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request parameters"})
			return
		}
		if request.Lines == 0 {
			request.Lines = defaultLines
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate context request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		context := service.Extract(request.File, request.Query, request.Lines)

		writeResponse(c, ContextResponse{
			File:    request.File,
			Query:   request.Query,
			Lines:   request.Lines,
			Context: context,
		}, http.StatusOK, nil)
	}
}
