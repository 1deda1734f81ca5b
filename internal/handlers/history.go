package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kosarica/price-archive/internal/query"
)

// HistoryRequest represents query parameters for a price history
type HistoryRequest struct {
	Barcode string `form:"barcode"`
	Name    string `form:"name"`
	City    string `form:"city"`
	Chain   string `form:"chain"`
	Days    int    `form:"days" binding:"min=0,max=90"`
}

// HistoryResponse represents the response for a price history
type HistoryResponse struct {
	History []query.HistoryEntry `json:"history"`
}

// History returns per-chain price aggregates over recent dates
// GET /v1/history?barcode=&name=&city=&chain=&days=7
func (h *Handlers) History(c *gin.Context) {
	var req HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Days == 0 {
		req.Days = 7
	}

	entries, err := h.svc.History(c.Request.Context(), query.HistoryParams{
		Barcode: req.Barcode,
		Name:    req.Name,
		City:    req.City,
		Chain:   req.Chain,
		Days:    req.Days,
	})
	if err != nil {
		if errors.Is(err, query.ErrBadRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log.Error().Err(err).Msg("History failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch history"})
		return
	}

	if entries == nil {
		entries = []query.HistoryEntry{}
	}
	c.JSON(http.StatusOK, HistoryResponse{History: entries})
}
