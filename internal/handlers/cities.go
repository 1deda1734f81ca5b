package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CitiesResponse represents the response for the city list
type CitiesResponse struct {
	Cities []string `json:"cities"`
}

// Cities returns the known city names, alphabetically sorted
// GET /v1/cities
func (h *Handlers) Cities(c *gin.Context) {
	cities, err := h.svc.Cities(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Cities failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cities"})
		return
	}

	c.JSON(http.StatusOK, CitiesResponse{Cities: cities})
}
