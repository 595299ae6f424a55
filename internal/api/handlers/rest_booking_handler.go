package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/yasinarafat4/reluxrent-sub000/internal/models"
	"github.com/yasinarafat4/reluxrent-sub000/internal/services"
	"github.com/yasinarafat4/reluxrent-sub000/internal/tasks"
	"github.com/yasinarafat4/reluxrent-sub000/internal/utils"
)

// IAsynqClient defines the asynq client methods the handlers use. An
// interface so tests can mock enqueueing.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RestBookingHandler handles the booking lifecycle endpoints.
type RestBookingHandler struct {
	bookingService services.IBookingService
	taskClient     IAsynqClient
}

// NewRestBookingHandler creates a new RestBookingHandler.
func NewRestBookingHandler(bookingService services.IBookingService, taskClient IAsynqClient) *RestBookingHandler {
	return &RestBookingHandler{bookingService: bookingService, taskClient: taskClient}
}

type createBookingRequest struct {
	PropertyID  string            `json:"propertyId" binding:"required"`
	BookingType string            `json:"bookingType" binding:"required"`
	Start       string            `json:"start"`
	End         string            `json:"end"`
	Guests      models.GuestCount `json:"guests"`
	Currency    string            `json:"currency"`
	Message     string            `json:"message"`
}

// CreateBooking handles POST /v1/bookings
func (h *RestBookingHandler) CreateBooking(c *gin.Context) {
	guestID, ok := actorID(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	input := &services.CreateBookingInput{
		Type:         models.BookingType(req.BookingType),
		Guests:       req.Guests,
		CurrencyCode: req.Currency,
		Message:      req.Message,
	}
	var err error
	if input.PropertyID, err = utils.ParseSixID(req.PropertyID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid propertyId"})
		return
	}
	if req.Start != "" || req.End != "" {
		r, err := parseDateRange(req.Start, req.End)
		if err != nil {
			respondError(c, err)
			return
		}
		input.Range = &r
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), guestID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"bookingId": booking.ID, "status": booking.Status})
}

// GetBooking handles GET /v1/bookings/:id
func (h *RestBookingHandler) GetBooking(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	booking, err := h.bookingService.FindBookingByID(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, err)
		return
	}
	if booking.GuestID != userID && booking.HostID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a party to this booking"})
		return
	}
	c.JSON(http.StatusOK, booking)
}

// ListBookings handles GET /v1/bookings?role=guest|host&limit=N
func (h *RestBookingHandler) ListBookings(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	limit := queryInt(c, "limit")
	bookings, err := h.bookingService.FindBookingsByUser(c.Request.Context(), userID, c.Query("role"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": bookings})
}

type submitRequestRequest struct {
	Start  string            `json:"start" binding:"required"`
	End    string            `json:"end" binding:"required"`
	Guests models.GuestCount `json:"guests"`
}

// SubmitRequest handles POST /v1/bookings/:id/request (inquiry -> request)
func (h *RestBookingHandler) SubmitRequest(c *gin.Context) {
	guestID, ok := actorID(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req submitRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	r, err := parseDateRange(req.Start, req.End)
	if err != nil {
		respondError(c, err)
		return
	}
	booking, err := h.bookingService.SubmitRequest(c.Request.Context(), bookingID, guestID, r, req.Guests)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookingId": booking.ID, "status": booking.Status})
}

// PreApprove handles POST /v1/bookings/:id/pre-approve (host)
func (h *RestBookingHandler) PreApprove(c *gin.Context) {
	hostID, ok := actorID(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.bookingService.PreApprove(c.Request.Context(), bookingID, hostID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.StatusPreApproved})
}

// Decline handles POST /v1/bookings/:id/decline (host)
func (h *RestBookingHandler) Decline(c *gin.Context) {
	hostID, ok := actorID(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.bookingService.Decline(c.Request.Context(), bookingID, hostID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.StatusCancelled})
}

// Withdraw handles POST /v1/bookings/:id/withdraw (guest)
func (h *RestBookingHandler) Withdraw(c *gin.Context) {
	guestID, ok := actorID(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.bookingService.Withdraw(c.Request.Context(), bookingID, guestID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.StatusWithdrawn})
}

// Accept handles POST /v1/bookings/:id/accept (guest pays a pre-approval)
func (h *RestBookingHandler) Accept(c *gin.Context) {
	guestID, ok := actorID(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	booking, err := h.bookingService.AcceptPreApproval(c.Request.Context(), bookingID, guestID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": booking.Status, "quote": booking.Quote})
}

type specialOfferRequest struct {
	Price  float64           `json:"price" binding:"required"`
	Start  string            `json:"start" binding:"required"`
	End    string            `json:"end" binding:"required"`
	Guests models.GuestCount `json:"guests"`
}

// MakeSpecialOffer handles POST /v1/bookings/:id/special-offer (host)
func (h *RestBookingHandler) MakeSpecialOffer(c *gin.Context) {
	hostID, ok := actorID(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req specialOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	r, err := parseDateRange(req.Start, req.End)
	if err != nil {
		respondError(c, err)
		return
	}

	booking, err := h.bookingService.MakeSpecialOffer(c.Request.Context(), bookingID, hostID, &services.SpecialOfferInput{
		Price:  req.Price,
		Range:  r,
		Guests: req.Guests,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	// Schedule the expiry exactly at the deadline; the periodic sweep is the
	// backstop if this enqueue is lost.
	if h.taskClient != nil {
		task, taskErr := tasks.NewOfferExpireTask(bookingID)
		if taskErr == nil {
			delay := time.Until(booking.Offer.ExpiresAt)
			_, taskErr = h.taskClient.EnqueueContext(c.Request.Context(), task, asynq.ProcessIn(delay))
		}
		if taskErr != nil {
			log.Printf("Warning: failed to schedule expiry for offer on booking %s: %v", bookingID.String(), taskErr)
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"offerId":   booking.Offer.ID,
		"expiresAt": booking.Offer.ExpiresAt,
		"status":    booking.Status,
	})
}

// AcceptOffer handles POST /v1/bookings/:id/accept-offer (guest)
func (h *RestBookingHandler) AcceptOffer(c *gin.Context) {
	guestID, ok := actorID(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	booking, err := h.bookingService.AcceptOffer(c.Request.Context(), bookingID, guestID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": booking.Status, "quote": booking.Quote})
}

// WithdrawOffer handles POST /v1/bookings/:id/withdraw-offer (host)
func (h *RestBookingHandler) WithdrawOffer(c *gin.Context) {
	hostID, ok := actorID(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.bookingService.WithdrawOffer(c.Request.Context(), bookingID, hostID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.StatusPendingHost})
}

// Cancel handles POST /v1/bookings/:id/cancel (guest or host)
func (h *RestBookingHandler) Cancel(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	refund, err := h.bookingService.Cancel(c.Request.Context(), bookingID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	booking, err := h.bookingService.FindBookingByID(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refundAmount": refund, "currency": booking.CurrencyCode})
}
