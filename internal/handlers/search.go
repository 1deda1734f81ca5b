package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kosarica/price-archive/internal/dates"
	"github.com/kosarica/price-archive/internal/query"
)

// SearchRequest represents query parameters for a product search
type SearchRequest struct {
	Query string `form:"q" binding:"required"`
	Date  string `form:"date"`
	City  string `form:"city"`
}

// Search searches products by name, brand, or barcode
// GET /v1/search?q=&date=&city=
func (h *Handlers) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date := req.Date
	if date == "" {
		date = dates.Today()
	}
	if !dates.IsValid(date) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	result, err := h.svc.Search(c.Request.Context(), date, req.Query, req.City)
	if err != nil {
		if errors.Is(err, query.ErrBadRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log.Error().Err(err).Str("q", req.Query).Msg("Search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search products"})
		return
	}

	c.JSON(http.StatusOK, result)
}
