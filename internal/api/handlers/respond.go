package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yasinarafat4/reluxrent-sub000/internal/api/middleware"
	"github.com/yasinarafat4/reluxrent-sub000/internal/models"
	"github.com/yasinarafat4/reluxrent-sub000/internal/utils"
)

// actorID extracts the authenticated user's ID from the gin context. Aborts
// with 401 when the auth middleware did not run or the ID is malformed.
func actorID(c *gin.Context) (utils.SixID, bool) {
	raw, exists := c.Get(middleware.ContextKeyUserID)
	if !exists {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return utils.SixID{}, false
	}
	idStr, ok := raw.(string)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return utils.SixID{}, false
	}
	id, err := utils.ParseSixID(idStr)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID in token"})
		return utils.SixID{}, false
	}
	return id, true
}

// pathID parses a SixID path parameter, aborting with 400 on garbage.
func pathID(c *gin.Context, name string) (utils.SixID, bool) {
	id, err := utils.ParseSixID(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return utils.SixID{}, false
	}
	return id, true
}

// parseDateRange builds a DateRange from two YYYY-MM-DD strings.
func parseDateRange(startStr, endStr string) (models.DateRange, error) {
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return models.DateRange{}, models.ErrInvalidRange
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return models.DateRange{}, models.ErrInvalidRange
	}
	return models.NewDateRange(start, end)
}

// respondError translates the domain error taxonomy into HTTP statuses.
// Conflicts carry the unavailable dates so clients can offer alternatives.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var conflict *models.ConflictError
	switch {
	case errors.As(err, &conflict):
		dates := make([]string, len(conflict.Dates))
		for i, d := range conflict.Dates {
			dates[i] = d.Format("2006-01-02")
		}
		c.JSON(http.StatusConflict, gin.H{"error": "Dates unavailable", "conflictingDates": dates})
	case errors.Is(err, models.ErrOfferExpired):
		c.JSON(http.StatusGone, gin.H{"error": "Special offer has expired"})
	case errors.Is(err, models.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrMinimumStayNotMet),
		errors.Is(err, models.ErrGuestCountExceeded):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidRange),
		errors.Is(err, models.ErrEmptyRange),
		errors.Is(err, models.ErrUnknownCurrency),
		errors.Is(err, models.ErrPolicyMissing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, mongo.ErrNoDocuments):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	// Ownership failures come back as plain errors from the services.
	case strings.Contains(err.Error(), "does not belong"),
		strings.Contains(err.Error(), "does not involve"),
		strings.Contains(err.Error(), "cannot book their own"):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case strings.Contains(err.Error(), "not found"):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
