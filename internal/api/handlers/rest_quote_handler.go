package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yasinarafat4/reluxrent-sub000/internal/models"
	"github.com/yasinarafat4/reluxrent-sub000/internal/services"
	"github.com/yasinarafat4/reluxrent-sub000/internal/utils"
)

// RestQuoteHandler handles quote preview requests.
type RestQuoteHandler struct {
	bookingService services.IBookingService
}

// NewRestQuoteHandler creates a new RestQuoteHandler.
func NewRestQuoteHandler(bookingService services.IBookingService) *RestQuoteHandler {
	return &RestQuoteHandler{bookingService: bookingService}
}

func queryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.DefaultQuery(name, "0"))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// GetQuote handles GET /v1/quote?propertyId&start&end&adults&children&infants&currency
func (h *RestQuoteHandler) GetQuote(c *gin.Context) {
	propertyID, err := utils.ParseSixID(c.Query("propertyId"))
	if err != nil || propertyID == (utils.SixID{}) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid propertyId"})
		return
	}
	r, err := parseDateRange(c.Query("start"), c.Query("end"))
	if err != nil {
		respondError(c, err)
		return
	}
	guests := models.GuestCount{
		Adults:   queryInt(c, "adults"),
		Children: queryInt(c, "children"),
		Infants:  queryInt(c, "infants"),
	}

	preview, err := h.bookingService.PreviewQuote(c.Request.Context(), propertyID, r, guests, c.Query("currency"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nights":             preview.Nights,
		"subtotal":           preview.Quote.Subtotal,
		"discountTier":       preview.Quote.DiscountTier,
		"discountAmount":     preview.Quote.DiscountAmount,
		"guestServiceFee":    preview.Quote.GuestServiceFee,
		"hostServiceFee":     preview.Quote.HostServiceFee,
		"guestTotal":         preview.Quote.GuestTotal,
		"hostNet":            preview.Quote.HostNet,
		"currency":           preview.Quote.CurrencyCode,
		"payingCurrency":     preview.PayingCurrencyCode,
		"guestTotalInPaying": preview.GuestTotalInPaying,
	})
}
