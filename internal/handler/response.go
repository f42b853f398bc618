// Package handler contains the gin handlers of the HTTP API.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mesopotato/enrich-justice/internal/search"
	"github.com/mesopotato/enrich-justice/internal/service"
)

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": data, "message": "success"})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"code": status, "data": nil, "message": message})
}

// statusOf maps a search or service error onto an HTTP status and a client message.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrEmptyQuery):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, search.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, search.ErrTimeout):
		return http.StatusGatewayTimeout, "search timed out"
	case errors.Is(err, search.ErrEmbeddingFailed):
		return http.StatusBadGateway, "embedding service unavailable"
	case search.IsDecodeError(err):
		return http.StatusInternalServerError, "stored vector data is corrupt"
	case errors.Is(err, search.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage unavailable"
	}
	return http.StatusInternalServerError, "internal error"
}
