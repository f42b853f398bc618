package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mesopotato/enrich-justice/internal/service"
	"github.com/mesopotato/enrich-justice/pkg/log"
)

// SearchHandler serves similarity queries over HTTP.
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler creates a SearchHandler.
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// Search handles GET /search?query=...&topN=...
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("query")
	topN, err := strconv.Atoi(c.DefaultQuery("topN", "0"))
	if err != nil {
		topN = 0
	}
	log.Infof("[SearchHandler] query: %s, topN: %d", query, topN)

	res, err := h.searchService.Search(c.Request.Context(), query, topN, nil)
	if err != nil {
		status, msg := statusOf(err)
		log.Errorf("[SearchHandler] search failed: %v", err)
		fail(c, status, msg)
		return
	}
	success(c, res)
}
