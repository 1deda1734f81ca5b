package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kosarica/price-archive/internal/database"
)

// StatusRequest represents query parameters for the ingestion status
type StatusRequest struct {
	Limit int `form:"limit" binding:"min=0,max=100"`
}

// StatusResponse represents the ingestion status of the catalog
type StatusResponse struct {
	LatestDate string                  `json:"latestDate"`
	Runs       []database.IngestionLog `json:"runs"`
}

// Status returns the latest ingested date and recent ingestion runs
// GET /v1/status?limit=10
func (h *Handlers) Status(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Limit == 0 {
		req.Limit = 10
	}

	ctx := c.Request.Context()

	latest, err := h.catalog.LatestIngestedDate(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Status failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch status"})
		return
	}

	runs, err := h.catalog.Log(ctx, req.Limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Status failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch status"})
		return
	}
	if runs == nil {
		runs = []database.IngestionLog{}
	}

	c.JSON(http.StatusOK, StatusResponse{LatestDate: latest, Runs: runs})
}
