package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yasinarafat4/reluxrent-sub000/internal/models"
	"github.com/yasinarafat4/reluxrent-sub000/internal/services"
	"github.com/yasinarafat4/reluxrent-sub000/internal/utils"
)

// RestPropertyHandler handles property and calendar endpoints.
type RestPropertyHandler struct {
	propertyService services.IPropertyService
}

// NewRestPropertyHandler creates a new RestPropertyHandler.
func NewRestPropertyHandler(propertyService services.IPropertyService) *RestPropertyHandler {
	return &RestPropertyHandler{propertyService: propertyService}
}

type createPropertyRequest struct {
	Title              string  `json:"title" binding:"required"`
	Currency           string  `json:"currency" binding:"required"`
	BasePrice          float64 `json:"basePrice" binding:"required"`
	CleaningFee        float64 `json:"cleaningFee"`
	ExtraGuestFee      float64 `json:"extraGuestFee"`
	MinimumStayNights  int     `json:"minimumStayNights"`
	Accommodates       int     `json:"accommodates" binding:"required"`
	WeeklyDiscountPct  float64 `json:"weeklyDiscountPct"`
	MonthlyDiscountPct float64 `json:"monthlyDiscountPct"`
	CancellationPolicy string  `json:"cancellationPolicyId"`
}

// CreateProperty handles POST /v1/property (host)
func (h *RestPropertyHandler) CreateProperty(c *gin.Context) {
	hostID, ok := actorID(c)
	if !ok {
		return
	}
	var req createPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	policyID, err := utils.ParseSixID(req.CancellationPolicy)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cancellationPolicyId"})
		return
	}

	property, err := h.propertyService.CreateProperty(c.Request.Context(), hostID, &models.Property{
		Title:              req.Title,
		CurrencyCode:       req.Currency,
		BasePrice:          req.BasePrice,
		CleaningFee:        req.CleaningFee,
		ExtraGuestFee:      req.ExtraGuestFee,
		MinimumStayNights:  req.MinimumStayNights,
		Accommodates:       req.Accommodates,
		WeeklyDiscountPct:  req.WeeklyDiscountPct,
		MonthlyDiscountPct: req.MonthlyDiscountPct,
		CancellationPolicy: policyID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, property)
}

// GetProperty handles GET /v1/property/:id
func (h *RestPropertyHandler) GetProperty(c *gin.Context) {
	propertyID, ok := pathID(c, "id")
	if !ok {
		return
	}
	property, err := h.propertyService.FindPropertyByID(c.Request.Context(), propertyID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, property)
}

// UpdateProperty handles PUT /v1/property/:id (host)
func (h *RestPropertyHandler) UpdateProperty(c *gin.Context) {
	hostID, ok := actorID(c)
	if !ok {
		return
	}
	propertyID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	property, err := h.propertyService.UpdateProperty(c.Request.Context(), propertyID, hostID, updates)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, property)
}

// GetCalendar handles GET /v1/property/:id/calendar?start&end
func (h *RestPropertyHandler) GetCalendar(c *gin.Context) {
	propertyID, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := parseDateRange(c.Query("start"), c.Query("end"))
	if err != nil {
		respondError(c, err)
		return
	}
	nights, blocked, err := h.propertyService.GetCalendar(c.Request.Context(), propertyID, r)
	if err != nil {
		respondError(c, err)
		return
	}

	blockedStrs := make([]string, len(blocked))
	for i, d := range blocked {
		blockedStrs[i] = d.Format("2006-01-02")
	}
	c.JSON(http.StatusOK, gin.H{"nights": nights, "blockedDates": blockedStrs})
}

type calendarOverrideEntry struct {
	Date     string  `json:"date" binding:"required"`
	Price    float64 `json:"price"`
	Bookable *bool   `json:"bookable"`
}

type setCalendarRequest struct {
	Overrides []calendarOverrideEntry `json:"overrides" binding:"required"`
}

// SetCalendar handles PUT /v1/property/:id/calendar (host)
func (h *RestPropertyHandler) SetCalendar(c *gin.Context) {
	hostID, ok := actorID(c)
	if !ok {
		return
	}
	propertyID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req setCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	overrides := make([]models.DateOverride, 0, len(req.Overrides))
	for _, entry := range req.Overrides {
		date, err := time.Parse("2006-01-02", entry.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date: " + entry.Date})
			return
		}
		bookable := true
		if entry.Bookable != nil {
			bookable = *entry.Bookable
		}
		overrides = append(overrides, models.DateOverride{Date: date, Price: entry.Price, Bookable: bookable})
	}

	if err := h.propertyService.SetDateOverrides(c.Request.Context(), propertyID, hostID, overrides); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": len(overrides)})
}
