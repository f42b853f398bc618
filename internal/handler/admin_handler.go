package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mesopotato/enrich-justice/internal/model"
	"github.com/mesopotato/enrich-justice/internal/service"
	"github.com/mesopotato/enrich-justice/pkg/log"
)

// AdminHandler triggers enrichment jobs.
type AdminHandler struct {
	adminService service.AdminService
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

type EnrichmentRequest struct {
	Model string `json:"model"`
}

// EnqueueEnrichment handles POST /admin/enrichment.
func (h *AdminHandler) EnqueueEnrichment(c *gin.Context) {
	var req EnrichmentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	h.respond(c, "enrichment", func() (*model.EnqueueResponseDTO, error) {
		return h.adminService.EnqueuePendingJudgments(c.Request.Context(), req.Model)
	})
}

// EnqueueArticleEmbedding handles POST /admin/articles/embed.
func (h *AdminHandler) EnqueueArticleEmbedding(c *gin.Context) {
	h.respond(c, "article embedding", func() (*model.EnqueueResponseDTO, error) {
		return h.adminService.EnqueueArticleEmbedding(c.Request.Context())
	})
}

// EnqueueSummaryVectors handles POST /admin/summaries/embed.
func (h *AdminHandler) EnqueueSummaryVectors(c *gin.Context) {
	h.respond(c, "summary vectors", func() (*model.EnqueueResponseDTO, error) {
		return h.adminService.EnqueueSummaryVectors(c.Request.Context())
	})
}

func (h *AdminHandler) respond(c *gin.Context, what string, enqueue func() (*model.EnqueueResponseDTO, error)) {
	res, err := enqueue()
	if err != nil {
		log.Errorf("[AdminHandler] enqueueing %s failed: %v", what, err)
		status, msg := statusOf(err)
		if status == http.StatusInternalServerError {
			msg = "task queue unavailable"
		}
		fail(c, status, msg)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"code": http.StatusAccepted, "data": res, "message": "success"})
}
