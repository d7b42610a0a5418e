package mandihttp

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"mandimind/internal/advisor"
	"mandimind/internal/analytics"
	"mandimind/internal/market"
	"mandimind/internal/negotiation"
)

type handlers struct {
	comparisons  advisor.ComparisonSource
	feed         market.Feed
	negotiations negotiation.Reader
	engine       SuggestionEngine
	location     string
}

// GET /api/market/comparison?commodity=wheat&reference_price=2000
func (h *handlers) marketComparison(c *gin.Context) {
	commodity := strings.TrimSpace(c.Query("commodity"))
	if err := market.ValidateCommodity(commodity); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var reference float64
	if raw := strings.TrimSpace(c.Query("reference_price")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reference_price must be a positive number"})
			return
		}
		reference = v
	}
	comp := h.comparisons.Build(c.Request.Context(), commodity, reference)
	c.JSON(http.StatusOK, comp)
}

// GET /api/market/anomalies?commodity=wheat&location=Pune
func (h *handlers) marketAnomalies(c *gin.Context) {
	commodity := strings.TrimSpace(c.Query("commodity"))
	if err := market.ValidateCommodity(commodity); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	location := strings.TrimSpace(c.Query("location"))
	if location == "" {
		location = h.location
	}
	observations, err := h.feed.CurrentPrices(c.Request.Context(), commodity, location)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "price feed unavailable"})
		return
	}
	anomalies := analytics.DetectAnomalies(observations)
	c.JSON(http.StatusOK, gin.H{
		"commodity": commodity,
		"observed":  len(observations),
		"anomalies": anomalies,
	})
}

type suggestionRequest struct {
	CurrentOffer float64 `json:"current_offer" binding:"required"`
	Role         string  `json:"role" binding:"required"`
	Dynamic      bool    `json:"dynamic"`
}

// POST /api/negotiations/:id/suggestion
func (h *handlers) negotiationSuggestion(c *gin.Context) {
	if h.negotiations == nil || h.engine == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "advisory engine not configured"})
		return
	}
	var req suggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role, err := negotiation.ParseRole(req.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, err := h.negotiations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, negotiation.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "negotiation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "loading negotiation failed"})
		return
	}

	var s advisor.Suggestion
	if req.Dynamic {
		s, err = h.engine.GetDynamicSuggestion(c.Request.Context(), n, req.CurrentOffer, role, n.Messages)
	} else {
		s, err = h.engine.GetSuggestion(c.Request.Context(), n, req.CurrentOffer, role)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s)
}
