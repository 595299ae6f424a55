package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yasinarafat4/reluxrent-sub000/internal/models"
	"github.com/yasinarafat4/reluxrent-sub000/internal/services"
)

// RestCurrencyHandler handles currency reference data endpoints.
type RestCurrencyHandler struct {
	currencyService services.ICurrencyService
}

// NewRestCurrencyHandler creates a new RestCurrencyHandler.
func NewRestCurrencyHandler(currencyService services.ICurrencyService) *RestCurrencyHandler {
	return &RestCurrencyHandler{currencyService: currencyService}
}

// ListCurrencies handles GET /v1/currencies
func (h *RestCurrencyHandler) ListCurrencies(c *gin.Context) {
	currencies, err := h.currencyService.ListCurrencies(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": currencies})
}

type upsertCurrencyRequest struct {
	Code string  `json:"code" binding:"required"`
	Name string  `json:"name"`
	Rate float64 `json:"rate" binding:"required"`
}

// UpsertCurrency handles PUT /v1/admin/currencies (admin)
func (h *RestCurrencyHandler) UpsertCurrency(c *gin.Context) {
	var req upsertCurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if req.Rate <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rate must be positive"})
		return
	}
	currency := &models.Currency{Code: req.Code, Name: req.Name, Rate: req.Rate}
	if err := h.currencyService.UpsertCurrency(c.Request.Context(), currency); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, currency)
}
