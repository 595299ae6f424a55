package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yasinarafat4/reluxrent-sub000/internal/config"
	"github.com/yasinarafat4/reluxrent-sub000/internal/db"
	"github.com/yasinarafat4/reluxrent-sub000/internal/models"
	"github.com/yasinarafat4/reluxrent-sub000/internal/payment"
	"github.com/yasinarafat4/reluxrent-sub000/internal/pricing"
	"github.com/yasinarafat4/reluxrent-sub000/internal/utils"
)

// QuotePreview is the read-only answer to "what would this stay cost".
// The breakdown is always in the property's listing currency; the guest
// total is additionally converted into the paying currency.
type QuotePreview struct {
	Nights             []pricing.NightlyPrice `json:"nights"`
	Quote              *models.Quote          `json:"quote"`
	Rates              *models.RateSnapshot   `json:"-"`
	PayingCurrencyCode string                 `json:"paying_currency_code"`
	GuestTotalInPaying float64                `json:"guest_total_in_paying_currency"`
}

// CreateBookingInput is the payload for opening a booking of any type.
type CreateBookingInput struct {
	PropertyID   utils.SixID
	Type         models.BookingType
	Range        *models.DateRange
	Guests       models.GuestCount
	CurrencyCode string
	Message      string
}

// SpecialOfferInput is the host's alternate proposal for a pending request.
type SpecialOfferInput struct {
	Price  float64
	Range  models.DateRange
	Guests models.GuestCount
}

// IBookingService drives the booking lifecycle state machine. Every status
// change goes through a conditional single-document update, so a booking can
// never take two racing transitions; the losing writer gets a diagnosis
// instead of a silent overwrite.
type IBookingService interface {
	PreviewQuote(ctx context.Context, propertyID utils.SixID, r models.DateRange, guests models.GuestCount, payingCurrency string) (*QuotePreview, error)
	CreateBooking(ctx context.Context, guestID utils.SixID, input *CreateBookingInput) (*models.Booking, error)
	SubmitRequest(ctx context.Context, bookingID, guestID utils.SixID, r models.DateRange, guests models.GuestCount) (*models.Booking, error)
	FindBookingByID(ctx context.Context, bookingID utils.SixID) (*models.Booking, error)
	FindBookingsByUser(ctx context.Context, userID utils.SixID, role string, limit int) ([]models.Booking, error)

	// Host side.
	PreApprove(ctx context.Context, bookingID, hostID utils.SixID) error
	Decline(ctx context.Context, bookingID, hostID utils.SixID) error
	MakeSpecialOffer(ctx context.Context, bookingID, hostID utils.SixID, input *SpecialOfferInput) (*models.Booking, error)
	WithdrawOffer(ctx context.Context, bookingID, hostID utils.SixID) error

	// Guest side.
	Withdraw(ctx context.Context, bookingID, guestID utils.SixID) error
	AcceptPreApproval(ctx context.Context, bookingID, guestID utils.SixID) (*models.Booking, error)
	AcceptOffer(ctx context.Context, bookingID, guestID utils.SixID) (*models.Booking, error)

	// Either party on a confirmed booking.
	Cancel(ctx context.Context, bookingID, actorID utils.SixID) (float64, error)

	// Background expiry. ExpireOffer targets one booking (scheduled task);
	// ExpireDueOffers sweeps everything past its deadline.
	ExpireOffer(ctx context.Context, bookingID utils.SixID) error
	ExpireDueOffers(ctx context.Context, now time.Time) (int, error)
}

const bookingsCollection = "bookings"

// bookingService implements IBookingService.
type bookingService struct {
	db            *mongo.Database
	cfg           *config.Config
	configService IConfigService
	properties    IPropertyService
	currencies    ICurrencyService
	availability  IAvailabilityService
	policies      IPolicyService
	processor     payment.Processor
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	database *mongo.Database,
	cfg *config.Config,
	configService IConfigService,
	properties IPropertyService,
	currencies ICurrencyService,
	availability IAvailabilityService,
	policies IPolicyService,
	processor payment.Processor,
) IBookingService {
	return &bookingService{
		db:            database,
		cfg:           cfg,
		configService: configService,
		properties:    properties,
		currencies:    currencies,
		availability:  availability,
		policies:      policies,
		processor:     processor,
	}
}

// quoteParams reads the fee percentages and tier thresholds from dynamic
// config on every call, falling back to the .env defaults.
func (s *bookingService) quoteParams(ctx context.Context) pricing.QuoteParams {
	return pricing.QuoteParams{
		GuestFeePct:      s.configService.GetFloat64(ctx, ConfigKeyGuestFeePct, s.cfg.GuestFeePct),
		HostFeePct:       s.configService.GetFloat64(ctx, ConfigKeyHostFeePct, s.cfg.HostFeePct),
		WeeklyMinNights:  s.configService.GetInt(ctx, ConfigKeyWeeklyDiscountMinNights, s.cfg.WeeklyDiscountMinNights),
		MonthlyMinNights: s.configService.GetInt(ctx, ConfigKeyMonthlyDiscountMinNights, s.cfg.MonthlyDiscountMinNights),
	}
}

// validateStay enforces the property's minimum stay and capacity limits,
// and rejects stays starting before today.
func validateStay(property *models.Property, r models.DateRange, guests models.GuestCount) error {
	if r.Start.Before(models.Midnight(time.Now().UTC())) {
		return fmt.Errorf("stay starts %s, in the past: %w", r.Start.Format("2006-01-02"), models.ErrInvalidRange)
	}
	if r.Nights() < property.MinimumStayNights {
		return fmt.Errorf("%d night(s) requested, minimum is %d: %w", r.Nights(), property.MinimumStayNights, models.ErrMinimumStayNotMet)
	}
	if guests.Counted() > property.Accommodates {
		return fmt.Errorf("%d guests for a property sleeping %d: %w", guests.Counted(), property.Accommodates, models.ErrGuestCountExceeded)
	}
	if guests.Counted() < 1 {
		return fmt.Errorf("at least one adult or child is required: %w", models.ErrGuestCountExceeded)
	}
	return nil
}

// resolveAndQuote resolves the calendar for a range and computes the quote.
// Host-blocked nights are a conflict the same way reserved nights are.
func (s *bookingService) resolveAndQuote(ctx context.Context, property *models.Property, r models.DateRange) ([]pricing.NightlyPrice, *models.Quote, error) {
	nights, blocked, err := pricing.ResolveCalendar(property, r)
	if err != nil {
		return nil, nil, err
	}
	if len(blocked) > 0 {
		return nil, nil, &models.ConflictError{Dates: blocked}
	}
	quote, err := pricing.ComputeQuote(nights, property, s.quoteParams(ctx))
	if err != nil {
		return nil, nil, err
	}
	return nights, quote, nil
}

// PreviewQuote prices a stay without touching any reservation state. Nights
// already held by other bookings are reported as a conflict up front so the
// guest does not find out at payment time.
func (s *bookingService) PreviewQuote(ctx context.Context, propertyID utils.SixID, r models.DateRange, guests models.GuestCount, payingCurrency string) (*QuotePreview, error) {
	property, err := s.properties.FindPropertyByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if err := validateStay(property, r, guests); err != nil {
		return nil, err
	}

	nights, quote, err := s.resolveAndQuote(ctx, property, r)
	if err != nil {
		return nil, err
	}

	taken, err := s.availability.UnavailableDates(ctx, propertyID, r)
	if err != nil {
		return nil, fmt.Errorf("availability check failed for property %s: %w", propertyID.String(), err)
	}
	if len(taken) > 0 {
		return nil, &models.ConflictError{Dates: taken}
	}

	payingCurrency = strings.ToUpper(strings.TrimSpace(payingCurrency))
	if payingCurrency == "" {
		payingCurrency = property.CurrencyCode
	}
	rates, err := s.currencies.SnapshotRates(ctx, payingCurrency, property.CurrencyCode)
	if err != nil {
		return nil, err
	}

	return &QuotePreview{
		Nights:             nights,
		Quote:              quote,
		Rates:              rates,
		PayingCurrencyCode: payingCurrency,
		GuestTotalInPaying: pricing.Convert(quote.GuestTotal, rates),
	}, nil
}

// CreateBooking opens a booking of any type. An INQUIRY is a dateless
// conversation starter; a REQUEST prices the stay and parks it with the host;
// an instant BOOKING reserves the nights, charges the guest and confirms in
// one call.
func (s *bookingService) CreateBooking(ctx context.Context, guestID utils.SixID, input *CreateBookingInput) (*models.Booking, error) {
	property, err := s.properties.FindPropertyByID(ctx, input.PropertyID)
	if err != nil {
		return nil, err
	}
	if property.HostID == guestID {
		return nil, errors.New("hosts cannot book their own property")
	}

	payingCurrency := strings.ToUpper(strings.TrimSpace(input.CurrencyCode))
	if payingCurrency == "" {
		payingCurrency = property.CurrencyCode
	}

	now := time.Now().UTC()
	booking := &models.Booking{
		PropertyID:   property.ID,
		GuestID:      guestID,
		HostID:       property.HostID,
		Type:         input.Type,
		Guests:       input.Guests,
		Message:      input.Message,
		CurrencyCode: payingCurrency,
		PolicyID:     property.CancellationPolicy,
		Transitions:  []models.Transition{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	switch input.Type {
	case models.BookingTypeInquiry:
		// Dateless by definition; an attached range is kept for context only.
		booking.Status = models.StatusInquiry
		booking.Range = input.Range

	case models.BookingTypeRequest:
		if input.Range == nil {
			return nil, models.ErrInvalidRange
		}
		if err := validateStay(property, *input.Range, input.Guests); err != nil {
			return nil, err
		}
		_, quote, err := s.resolveAndQuote(ctx, property, *input.Range)
		if err != nil {
			return nil, err
		}
		rates, err := s.currencies.SnapshotRates(ctx, payingCurrency, property.CurrencyCode)
		if err != nil {
			return nil, err
		}
		booking.Status = models.StatusPendingHost
		booking.Range = input.Range
		booking.Quote = quote
		booking.Rates = rates
		booking.Transitions = []models.Transition{
			{From: models.StatusRequested, To: models.StatusPendingHost, Actor: guestID, At: now},
		}

	case models.BookingTypeBooking:
		if input.Range == nil {
			return nil, models.ErrInvalidRange
		}
		if err := validateStay(property, *input.Range, input.Guests); err != nil {
			return nil, err
		}
		booking.Status = models.StatusRequested
		booking.Range = input.Range

	default:
		return nil, fmt.Errorf("unknown booking type %q", input.Type)
	}

	collection := s.db.Collection(bookingsCollection)
	operation := func() error {
		booking.ID = utils.NewSixID()
		_, insertErr := collection.InsertOne(ctx, booking)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert booking for guest %s after multiple retries: %w", guestID.String(), err)
	}

	if input.Type != models.BookingTypeBooking {
		return booking, nil
	}

	// Instant booking: reserve, charge, confirm. Any failure from here on
	// lands the booking in CANCELLED with its dates released.
	if err := s.confirm(ctx, booking, property, guestID); err != nil {
		return nil, err
	}
	return s.FindBookingByID(ctx, booking.ID)
}

// confirm reserves the nights, captures the payment and moves the booking to
// CONFIRMED. The quote is recomputed from the live calendar at this moment
// and frozen together with the rate snapshot.
func (s *bookingService) confirm(ctx context.Context, booking *models.Booking, property *models.Property, actor utils.SixID) error {
	_, quote, err := s.resolveAndQuote(ctx, property, *booking.Range)
	if err != nil {
		s.markCancelled(ctx, booking.ID, booking.Status, actor)
		return err
	}
	rates, err := s.currencies.SnapshotRates(ctx, booking.CurrencyCode, property.CurrencyCode)
	if err != nil {
		s.markCancelled(ctx, booking.ID, booking.Status, actor)
		return err
	}

	token, err := s.availability.Reserve(ctx, property.ID, booking.ID, *booking.Range)
	if err != nil {
		s.markCancelled(ctx, booking.ID, booking.Status, actor)
		return err
	}

	chargeTotal := pricing.Convert(quote.GuestTotal, rates)
	if err := s.processor.Charge(ctx, booking.ID.String(), chargeTotal, booking.CurrencyCode); err != nil {
		if relErr := s.availability.Release(ctx, token); relErr != nil {
			log.Printf("ERROR: failed to release dates after charge failure for booking %s: %v", booking.ID.String(), relErr)
		}
		s.markCancelled(ctx, booking.ID, booking.Status, actor)
		return fmt.Errorf("payment failed for booking %s: %w", booking.ID.String(), err)
	}

	now := time.Now().UTC()
	_, err = s.transition(ctx, booking.ID, booking.Status, models.StatusConfirmed, actor, bson.M{
		"quote":        quote,
		"rates":        rates,
		"hold_token":   token,
		"confirmed_at": now,
	})
	if err != nil {
		// Lost a race after charging; undo both side effects.
		if relErr := s.availability.Release(ctx, token); relErr != nil {
			log.Printf("ERROR: failed to release dates for booking %s: %v", booking.ID.String(), relErr)
		}
		if refErr := s.processor.Refund(ctx, booking.ID.String(), chargeTotal, booking.CurrencyCode); refErr != nil {
			log.Printf("ERROR: failed to refund charge for booking %s: %v", booking.ID.String(), refErr)
		}
		return err
	}
	return nil
}

// markCancelled best-effort moves a booking to CANCELLED after a failed
// confirmation attempt.
func (s *bookingService) markCancelled(ctx context.Context, bookingID utils.SixID, from models.BookingStatus, actor utils.SixID) {
	if _, err := s.transition(ctx, bookingID, from, models.StatusCancelled, actor, bson.M{"cancelled_at": time.Now().UTC()}); err != nil {
		log.Printf("Warning: failed to cancel booking %s after confirmation failure: %v", bookingID.String(), err)
	}
}

// SubmitRequest turns an INQUIRY into a priced request pending host review.
func (s *bookingService) SubmitRequest(ctx context.Context, bookingID, guestID utils.SixID, r models.DateRange, guests models.GuestCount) (*models.Booking, error) {
	booking, err := s.FindBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.GuestID != guestID {
		return nil, fmt.Errorf("booking %s does not belong to guest %s", bookingID.String(), guestID.String())
	}

	property, err := s.properties.FindPropertyByID(ctx, booking.PropertyID)
	if err != nil {
		return nil, err
	}
	if err := validateStay(property, r, guests); err != nil {
		return nil, err
	}
	_, quote, err := s.resolveAndQuote(ctx, property, r)
	if err != nil {
		return nil, err
	}
	rates, err := s.currencies.SnapshotRates(ctx, booking.CurrencyCode, property.CurrencyCode)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	collection := s.db.Collection(bookingsCollection)
	filter := bson.M{"_id": bookingID, "status": models.StatusInquiry}
	update := bson.M{
		"$set": bson.M{
			"status":     models.StatusPendingHost,
			"range":      r,
			"guests":     guests,
			"quote":      quote,
			"rates":      rates,
			"updated_at": now,
		},
		// The inquiry passes through REQUESTED on its way to the host.
		"$push": bson.M{"transitions": bson.M{"$each": []models.Transition{
			{From: models.StatusInquiry, To: models.StatusRequested, Actor: guestID, At: now},
			{From: models.StatusRequested, To: models.StatusPendingHost, Actor: guestID, At: now},
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Booking
	err = collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, s.diagnoseTransition(ctx, bookingID, models.StatusInquiry, models.StatusRequested)
		}
		return nil, fmt.Errorf("error submitting request for booking %s: %w", bookingID.String(), err)
	}
	return &updated, nil
}

// FindBookingByID finds a booking by its ID.
func (s *bookingService) FindBookingByID(ctx context.Context, bookingID utils.SixID) (*models.Booking, error) {
	var booking models.Booking
	collection := s.db.Collection(bookingsCollection)
	err := collection.FindOne(ctx, bson.M{"_id": bookingID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding booking %s: %w", bookingID.String(), err)
	}
	return &booking, nil
}

// FindBookingsByUser lists a user's bookings, newest first. Role selects
// which side of the booking the user is on: "guest", "host" or "" for both.
func (s *bookingService) FindBookingsByUser(ctx context.Context, userID utils.SixID, role string, limit int) ([]models.Booking, error) {
	var filter bson.M
	switch role {
	case "guest":
		filter = bson.M{"guest_id": userID}
	case "host":
		filter = bson.M{"host_id": userID}
	case "":
		filter = bson.M{"$or": []bson.M{{"guest_id": userID}, {"host_id": userID}}}
	default:
		return nil, fmt.Errorf("unknown role %q", role)
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(int64(limit))
	cursor, err := s.db.Collection(bookingsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing bookings for user %s: %w", userID.String(), err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("error decoding bookings: %w", err)
	}
	return bookings, nil
}

// transition is the single-document serialization point for all status
// changes: the filter pins the expected current status, the update sets the
// new one and appends the audit-trail entry. A miss is diagnosed after the
// fact, never guessed.
func (s *bookingService) transition(ctx context.Context, bookingID utils.SixID, from, to models.BookingStatus, actor utils.SixID, set bson.M) (*models.Booking, error) {
	if !models.CanTransition(from, to) {
		return nil, fmt.Errorf("%s -> %s: %w", from, to, models.ErrInvalidTransition)
	}

	now := time.Now().UTC()
	if set == nil {
		set = bson.M{}
	}
	set["status"] = to
	set["updated_at"] = now

	filter := bson.M{"_id": bookingID, "status": from}
	update := bson.M{
		"$set":  set,
		"$push": bson.M{"transitions": models.Transition{From: from, To: to, Actor: actor, At: now}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Booking
	err := s.db.Collection(bookingsCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, s.diagnoseTransition(ctx, bookingID, from, to)
		}
		return nil, fmt.Errorf("error transitioning booking %s from %s to %s: %w", bookingID.String(), from, to, err)
	}
	return &updated, nil
}

// diagnoseTransition explains why a conditional transition missed.
func (s *bookingService) diagnoseTransition(ctx context.Context, bookingID utils.SixID, from, to models.BookingStatus) error {
	var booking models.Booking
	err := s.db.Collection(bookingsCollection).FindOne(ctx, bson.M{"_id": bookingID}).Decode(&booking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("booking %s not found", bookingID.String())
	}
	if err != nil {
		return fmt.Errorf("error checking booking %s: %w", bookingID.String(), err)
	}
	return fmt.Errorf("booking %s is %s, cannot move %s -> %s: %w", bookingID.String(), booking.Status, from, to, models.ErrInvalidTransition)
}

// requireParty loads a booking and checks the actor is the expected party.
func (s *bookingService) requireParty(ctx context.Context, bookingID, actorID utils.SixID, host bool) (*models.Booking, error) {
	booking, err := s.FindBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if host && booking.HostID != actorID {
		return nil, fmt.Errorf("booking %s does not belong to host %s", bookingID.String(), actorID.String())
	}
	if !host && booking.GuestID != actorID {
		return nil, fmt.Errorf("booking %s does not belong to guest %s", bookingID.String(), actorID.String())
	}
	return booking, nil
}

// PreApprove lets the host green-light a pending request; the guest still has
// to accept and pay before any dates are held.
func (s *bookingService) PreApprove(ctx context.Context, bookingID, hostID utils.SixID) error {
	if _, err := s.requireParty(ctx, bookingID, hostID, true); err != nil {
		return err
	}
	_, err := s.transition(ctx, bookingID, models.StatusPendingHost, models.StatusPreApproved, hostID, nil)
	return err
}

// Decline rejects a pending request outright.
func (s *bookingService) Decline(ctx context.Context, bookingID, hostID utils.SixID) error {
	if _, err := s.requireParty(ctx, bookingID, hostID, true); err != nil {
		return err
	}
	_, err := s.transition(ctx, bookingID, models.StatusPendingHost, models.StatusCancelled, hostID, bson.M{
		"cancelled_at": time.Now().UTC(),
	})
	return err
}

// Withdraw lets the guest pull back anything the host has not yet confirmed.
func (s *bookingService) Withdraw(ctx context.Context, bookingID, guestID utils.SixID) error {
	booking, err := s.requireParty(ctx, bookingID, guestID, false)
	if err != nil {
		return err
	}
	switch booking.Status {
	case models.StatusRequested, models.StatusPendingHost, models.StatusPreApproved:
		_, err := s.transition(ctx, bookingID, booking.Status, models.StatusWithdrawn, guestID, nil)
		return err
	default:
		return fmt.Errorf("booking %s is %s: %w", bookingID.String(), booking.Status, models.ErrInvalidTransition)
	}
}

// MakeSpecialOffer replaces the requested terms with the host's alternate
// price and dates, time-boxed by the configured offer TTL. The calendar is
// NOT held until the guest accepts.
func (s *bookingService) MakeSpecialOffer(ctx context.Context, bookingID, hostID utils.SixID, input *SpecialOfferInput) (*models.Booking, error) {
	booking, err := s.requireParty(ctx, bookingID, hostID, true)
	if err != nil {
		return nil, err
	}
	if input.Price <= 0 {
		return nil, fmt.Errorf("offer price must be positive, got %.2f", input.Price)
	}

	property, err := s.properties.FindPropertyByID(ctx, booking.PropertyID)
	if err != nil {
		return nil, err
	}
	if err := validateStay(property, input.Range, input.Guests); err != nil {
		return nil, err
	}

	ttlHours := s.configService.GetInt(ctx, ConfigKeyOfferTTLHours, int(s.cfg.OfferTTL.Hours()))
	now := time.Now().UTC()
	offer := &models.SpecialOffer{
		ID:        utils.NewSixID(),
		Price:     input.Price,
		Guests:    input.Guests,
		Range:     input.Range,
		Status:    models.OfferPending,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(ttlHours) * time.Hour),
	}

	return s.transition(ctx, bookingID, models.StatusPendingHost, models.StatusSpecialOfferPending, hostID, bson.M{
		"offer": offer,
	})
}

// WithdrawOffer pulls a pending offer back; the booking returns to the
// host's queue.
func (s *bookingService) WithdrawOffer(ctx context.Context, bookingID, hostID utils.SixID) error {
	if _, err := s.requireParty(ctx, bookingID, hostID, true); err != nil {
		return err
	}
	_, err := s.transition(ctx, bookingID, models.StatusSpecialOfferPending, models.StatusPendingHost, hostID, bson.M{
		"offer.status": models.OfferWithdrawn,
	})
	return err
}

// AcceptPreApproval is the guest paying for a pre-approved request. The quote
// is recomputed from the live calendar; if the dates got taken in the
// meantime the booking drops back to the host's queue with a ConflictError.
func (s *bookingService) AcceptPreApproval(ctx context.Context, bookingID, guestID utils.SixID) (*models.Booking, error) {
	booking, err := s.requireParty(ctx, bookingID, guestID, false)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.StatusPreApproved {
		return nil, fmt.Errorf("booking %s is %s: %w", bookingID.String(), booking.Status, models.ErrInvalidTransition)
	}
	if booking.Range == nil {
		return nil, models.ErrInvalidRange
	}

	property, err := s.properties.FindPropertyByID(ctx, booking.PropertyID)
	if err != nil {
		return nil, err
	}

	_, quote, err := s.resolveAndQuote(ctx, property, *booking.Range)
	if err != nil {
		if models.IsConflict(err) {
			s.demoteToPendingHost(ctx, bookingID, guestID)
		}
		return nil, err
	}
	rates, err := s.currencies.SnapshotRates(ctx, booking.CurrencyCode, property.CurrencyCode)
	if err != nil {
		return nil, err
	}

	token, err := s.availability.Reserve(ctx, property.ID, bookingID, *booking.Range)
	if err != nil {
		if models.IsConflict(err) {
			s.demoteToPendingHost(ctx, bookingID, guestID)
		}
		return nil, err
	}

	chargeTotal := pricing.Convert(quote.GuestTotal, rates)
	if err := s.processor.Charge(ctx, bookingID.String(), chargeTotal, booking.CurrencyCode); err != nil {
		if relErr := s.availability.Release(ctx, token); relErr != nil {
			log.Printf("ERROR: failed to release dates after charge failure for booking %s: %v", bookingID.String(), relErr)
		}
		return nil, fmt.Errorf("payment failed for booking %s: %w", bookingID.String(), err)
	}

	updated, err := s.transition(ctx, bookingID, models.StatusPreApproved, models.StatusConfirmed, guestID, bson.M{
		"quote":        quote,
		"rates":        rates,
		"hold_token":   token,
		"confirmed_at": time.Now().UTC(),
	})
	if err != nil {
		if relErr := s.availability.Release(ctx, token); relErr != nil {
			log.Printf("ERROR: failed to release dates for booking %s: %v", bookingID.String(), relErr)
		}
		if refErr := s.processor.Refund(ctx, bookingID.String(), chargeTotal, booking.CurrencyCode); refErr != nil {
			log.Printf("ERROR: failed to refund charge for booking %s: %v", bookingID.String(), refErr)
		}
		return nil, err
	}
	return updated, nil
}

// demoteToPendingHost best-effort returns a pre-approved booking to the
// host's queue after its dates were lost.
func (s *bookingService) demoteToPendingHost(ctx context.Context, bookingID, actor utils.SixID) {
	if _, err := s.transition(ctx, bookingID, models.StatusPreApproved, models.StatusPendingHost, actor, nil); err != nil {
		log.Printf("Warning: failed to demote booking %s back to pending: %v", bookingID.String(), err)
	}
}

// AcceptOffer is the guest taking a special offer. Accept-vs-expire is
// serialized on the booking document itself: the conditional update pins
// both the status and a still-in-the-future deadline, so the sweep and the
// guest can never both win.
func (s *bookingService) AcceptOffer(ctx context.Context, bookingID, guestID utils.SixID) (*models.Booking, error) {
	booking, err := s.requireParty(ctx, bookingID, guestID, false)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.StatusSpecialOfferPending || booking.Offer == nil {
		return nil, fmt.Errorf("booking %s has no pending offer: %w", bookingID.String(), models.ErrInvalidTransition)
	}

	now := time.Now().UTC()
	if !booking.Offer.ExpiresAt.After(now) {
		return nil, fmt.Errorf("offer %s: %w", booking.Offer.ID.String(), models.ErrOfferExpired)
	}

	property, err := s.properties.FindPropertyByID(ctx, booking.PropertyID)
	if err != nil {
		return nil, err
	}
	rates, err := s.currencies.SnapshotRates(ctx, booking.CurrencyCode, property.CurrencyCode)
	if err != nil {
		return nil, err
	}
	quote := pricing.QuoteFromOfferPrice(booking.Offer.Price, property.CurrencyCode, s.quoteParams(ctx))

	token, err := s.availability.Reserve(ctx, property.ID, bookingID, booking.Offer.Range)
	if err != nil {
		return nil, err
	}

	chargeTotal := pricing.Convert(quote.GuestTotal, rates)
	if err := s.processor.Charge(ctx, bookingID.String(), chargeTotal, booking.CurrencyCode); err != nil {
		if relErr := s.availability.Release(ctx, token); relErr != nil {
			log.Printf("ERROR: failed to release dates after charge failure for booking %s: %v", bookingID.String(), relErr)
		}
		return nil, fmt.Errorf("payment failed for booking %s: %w", bookingID.String(), err)
	}

	filter := bson.M{
		"_id":              bookingID,
		"status":           models.StatusSpecialOfferPending,
		"offer.expires_at": bson.M{"$gt": now},
	}
	update := bson.M{
		"$set": bson.M{
			"status":       models.StatusConfirmed,
			"offer.status": models.OfferAccepted,
			"range":        booking.Offer.Range,
			"guests":       booking.Offer.Guests,
			"quote":        quote,
			"rates":        rates,
			"hold_token":   token,
			"confirmed_at": now,
			"updated_at":   now,
		},
		"$push": bson.M{"transitions": models.Transition{
			From: models.StatusSpecialOfferPending, To: models.StatusConfirmed, Actor: guestID, At: now,
		}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Booking
	err = s.db.Collection(bookingsCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}

	// Lost to the sweep (or a withdrawal); undo both side effects.
	if relErr := s.availability.Release(ctx, token); relErr != nil {
		log.Printf("ERROR: failed to release dates for booking %s: %v", bookingID.String(), relErr)
	}
	if refErr := s.processor.Refund(ctx, bookingID.String(), chargeTotal, booking.CurrencyCode); refErr != nil {
		log.Printf("ERROR: failed to refund charge for booking %s: %v", bookingID.String(), refErr)
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error accepting offer on booking %s: %w", bookingID.String(), err)
	}

	current, checkErr := s.FindBookingByID(ctx, bookingID)
	if checkErr == nil && current.Offer != nil && !current.Offer.ExpiresAt.After(time.Now().UTC()) {
		return nil, fmt.Errorf("offer %s: %w", current.Offer.ID.String(), models.ErrOfferExpired)
	}
	if checkErr == nil && current.Status == models.StatusExpired {
		return nil, fmt.Errorf("offer on booking %s: %w", bookingID.String(), models.ErrOfferExpired)
	}
	return nil, s.diagnoseTransition(ctx, bookingID, models.StatusSpecialOfferPending, models.StatusConfirmed)
}

// Cancel cancels a confirmed booking, releases its dates and refunds the
// guest per the property's cancellation policy. Idempotent: a repeat call
// returns the refund recorded by the first one.
func (s *bookingService) Cancel(ctx context.Context, bookingID, actorID utils.SixID) (float64, error) {
	booking, err := s.FindBookingByID(ctx, bookingID)
	if err != nil {
		return 0, err
	}
	if booking.GuestID != actorID && booking.HostID != actorID {
		return 0, fmt.Errorf("booking %s does not involve user %s", bookingID.String(), actorID.String())
	}

	if booking.Status == models.StatusCancelled && booking.RefundAmount != nil {
		return *booking.RefundAmount, nil
	}
	if booking.Status != models.StatusConfirmed {
		return 0, fmt.Errorf("booking %s is %s: %w", bookingID.String(), booking.Status, models.ErrInvalidTransition)
	}
	if booking.Quote == nil || booking.Rates == nil || booking.Range == nil {
		return 0, fmt.Errorf("booking %s is confirmed but missing quote data", bookingID.String())
	}

	var zeroID utils.SixID
	if booking.PolicyID == zeroID {
		return 0, fmt.Errorf("booking %s: %w", bookingID.String(), models.ErrPolicyMissing)
	}
	policy, err := s.policies.FindPolicyByID(ctx, booking.PolicyID)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	chargedTotal := pricing.Convert(booking.Quote.GuestTotal, booking.Rates)
	refund := RefundAmount(policy, chargedTotal, booking.Range.Start, now)

	// The conditional transition is what makes cancellation exactly-once: of
	// two racing cancels only one writes the refund.
	if _, err := s.transition(ctx, bookingID, models.StatusConfirmed, models.StatusCancelled, actorID, bson.M{
		"refund_amount": refund,
		"cancelled_at":  now,
	}); err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			// Raced with another cancel; report its recorded refund.
			if current, findErr := s.FindBookingByID(ctx, bookingID); findErr == nil &&
				current.Status == models.StatusCancelled && current.RefundAmount != nil {
				return *current.RefundAmount, nil
			}
		}
		return 0, err
	}

	if booking.HoldToken != "" {
		if err := s.availability.Release(ctx, booking.HoldToken); err != nil {
			log.Printf("ERROR: failed to release dates for cancelled booking %s: %v", bookingID.String(), err)
		}
	}
	if err := s.processor.Refund(ctx, bookingID.String(), refund, booking.CurrencyCode); err != nil {
		// The refund amount is recorded on the booking; retrying the gateway
		// call is an operational concern, not a state machine one.
		log.Printf("ERROR: refund of %.2f %s failed for booking %s: %v", refund, booking.CurrencyCode, bookingID.String(), err)
	}

	return refund, nil
}

// ExpireOffer expires one booking's pending offer if its deadline has
// passed. Safe to call on bookings that were accepted or withdrawn in the
// meantime; the conditional filter just misses.
func (s *bookingService) ExpireOffer(ctx context.Context, bookingID utils.SixID) error {
	now := time.Now().UTC()
	filter := bson.M{
		"_id":              bookingID,
		"status":           models.StatusSpecialOfferPending,
		"offer.expires_at": bson.M{"$lte": now},
	}
	update := bson.M{
		"$set": bson.M{
			"status":       models.StatusExpired,
			"offer.status": models.OfferExpired,
			"updated_at":   now,
		},
		"$push": bson.M{"transitions": models.Transition{
			From: models.StatusSpecialOfferPending, To: models.StatusExpired, At: now,
		}},
	}
	result, err := s.db.Collection(bookingsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error expiring offer on booking %s: %w", bookingID.String(), err)
	}
	if result.MatchedCount > 0 {
		log.Printf("Expired special offer on booking %s", bookingID.String())
	}
	return nil
}

// ExpireDueOffers sweeps every pending offer past its deadline. Returns the
// number of bookings expired.
func (s *bookingService) ExpireDueOffers(ctx context.Context, now time.Time) (int, error) {
	filter := bson.M{
		"status":           models.StatusSpecialOfferPending,
		"offer.expires_at": bson.M{"$lte": now},
	}
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := s.db.Collection(bookingsCollection).Find(ctx, filter, opts)
	if err != nil {
		return 0, fmt.Errorf("error querying due offers: %w", err)
	}
	defer cursor.Close(ctx)

	var due []struct {
		ID utils.SixID `bson:"_id"`
	}
	if err := cursor.All(ctx, &due); err != nil {
		return 0, fmt.Errorf("error decoding due offers: %w", err)
	}

	expired := 0
	for _, d := range due {
		if err := s.ExpireOffer(ctx, d.ID); err != nil {
			log.Printf("Warning: failed to expire offer on booking %s: %v", d.ID.String(), err)
			continue
		}
		expired++
	}
	return expired, nil
}
