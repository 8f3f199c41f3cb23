package http

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/currency/domain"
)

// GetState returns the active currency, catalog and stored preference
func (h *Handler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.currencies.State())
}

// SetActive switches the display currency
func (h *Handler) SetActive(c *gin.Context) {
	var req setCurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := h.currencies.SetCurrency(c.Request.Context(), req.Code)
	switch {
	case errors.Is(err, domain.ErrUnsupportedCurrency):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported currency", "code": req.Code})
		return
	case err != nil:
		// the active currency already changed; only the stored preference is stale
		c.JSON(http.StatusOK, gin.H{"state": h.currencies.State(), "persisted": false, "warning": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.currencies.State(), "persisted": true})
}

// Detect runs IP geolocation for the caller
func (h *Handler) Detect(c *gin.Context) {
	code := h.currencies.DetectUserLocation(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"detected_currency": code, "state": h.currencies.State()})
}

// Convert prices an amount. from defaults to the base currency, to to the active one.
func (h *Handler) Convert(c *gin.Context) {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a number"})
		return
	}

	state := h.currencies.State()
	from := c.DefaultQuery("from", state.Base)
	to := c.DefaultQuery("to", state.Active)
	if from == "" || to == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to are required"})
		return
	}

	conv, ok := h.currencies.ConvertAndLog(c.Request.Context(), amount, from, to)
	resp := convertResponse{Conversion: conv, Available: ok}
	if ok {
		resp.Formatted = h.currencies.Format(conv.Result, conv.To)
	}
	c.JSON(http.StatusOK, resp)
}

// Format renders an amount in code, or the active currency
func (h *Handler) Format(c *gin.Context) {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a number"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"formatted": h.currencies.Format(amount, c.Query("code"))})
}

// UpsertRate stores a manual exchange rate
func (h *Handler) UpsertRate(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := h.currencies.UpdateExchangeRate(c.Request.Context(), req.FromCurrency, req.ToCurrency, req.Rate, req.MarkupPercentage)
	if errors.Is(err, domain.ErrInvalidRate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update exchange rate"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.currencies.State()})
}

// RefreshRates reloads the catalog and rate table
func (h *Handler) RefreshRates(c *gin.Context) {
	if err := h.currencies.RefreshExchangeRates(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to refresh exchange rates"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.currencies.State()})
}
