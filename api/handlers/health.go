package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marathi-corpus/shodh/db/searchdb"
)

type HealthResponse struct {
	Status        string `json:"status"`
	IndexLoaded   bool   `json:"index_loaded"`
	DocumentCount uint64 `json:"document_count"`
}

// Health reports liveness plus whether an index is loaded. The service is
// healthy even without an index; searches just fail until one is built.
func Health(searchDB searchdb.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		health := HealthResponse{Status: "ok", IndexLoaded: searchDB.IsLoaded()}
		if health.IndexLoaded {
			if count, err := searchDB.DocCount(); err == nil {
				health.DocumentCount = count
			}
		}

		c.JSON(http.StatusOK, health)
	}
}
