package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mesopotato/enrich-justice/internal/service"
	"github.com/mesopotato/enrich-justice/pkg/log"
)

// DocumentHandler serves judgment source files.
type DocumentHandler struct {
	documentService service.DocumentService
}

// NewDocumentHandler creates a DocumentHandler.
func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// DownloadDecision handles GET /decisions/:id/download and returns a presigned URL.
func (h *DocumentHandler) DownloadDecision(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "invalid decision id")
		return
	}
	info, err := h.documentService.GenerateDownloadURL(c.Request.Context(), id)
	if err != nil {
		status, msg := statusOf(err)
		log.Errorf("[DocumentHandler] download url for %d failed: %v", id, err)
		fail(c, status, msg)
		return
	}
	success(c, info)
}
