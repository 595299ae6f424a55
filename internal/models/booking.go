package models

import (
	"time"

	"github.com/yasinarafat4/reluxrent-sub000/internal/utils"
)

// BookingStatus enumerates the lifecycle states of a booking.
type BookingStatus string

const (
	StatusInquiry             BookingStatus = "INQUIRY"
	StatusRequested           BookingStatus = "REQUESTED"
	StatusPendingHost         BookingStatus = "PENDING_HOST"
	StatusPreApproved         BookingStatus = "PRE_APPROVED"
	StatusSpecialOfferPending BookingStatus = "SPECIAL_OFFER_PENDING"
	StatusConfirmed           BookingStatus = "CONFIRMED"
	StatusCancelled           BookingStatus = "CANCELLED"
	StatusWithdrawn           BookingStatus = "WITHDRAWN"
	StatusExpired             BookingStatus = "EXPIRED"
)

// allowedTransitions is the authoritative edge list of the state machine.
// Anything not listed here is ErrInvalidTransition.
var allowedTransitions = map[BookingStatus][]BookingStatus{
	StatusInquiry:             {StatusRequested},
	StatusRequested:           {StatusPendingHost, StatusConfirmed, StatusCancelled, StatusWithdrawn},
	StatusPendingHost:         {StatusPreApproved, StatusSpecialOfferPending, StatusCancelled, StatusWithdrawn},
	StatusPreApproved:         {StatusConfirmed, StatusPendingHost, StatusWithdrawn},
	StatusSpecialOfferPending: {StatusConfirmed, StatusPendingHost, StatusExpired},
	StatusConfirmed:           {StatusCancelled},
}

// CanTransition reports whether the state machine permits moving from one
// status to another.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// BookingType is how the guest initiated contact: a dateless inquiry, a
// request needing host approval, or an instant booking.
type BookingType string

const (
	BookingTypeInquiry BookingType = "INQUIRY"
	BookingTypeRequest BookingType = "REQUEST"
	BookingTypeBooking BookingType = "BOOKING"
)

// GuestCount splits the party; infants stay on the record but do not count
// against the property capacity.
type GuestCount struct {
	Adults   int `bson:"adults" json:"adults"`
	Children int `bson:"children" json:"children"`
	Infants  int `bson:"infants" json:"infants"`
}

// Counted returns the number of guests that occupy capacity.
func (g GuestCount) Counted() int {
	return g.Adults + g.Children
}

// DiscountTier is the stay-length discount bracket applied to a quote.
type DiscountTier string

const (
	DiscountNone    DiscountTier = "none"
	DiscountWeekly  DiscountTier = "weekly"
	DiscountMonthly DiscountTier = "monthly"
)

// Quote is a full price breakdown, always expressed in the property's listing
// currency. It is immutable once the booking confirms.
type Quote struct {
	Subtotal        float64      `bson:"subtotal" json:"subtotal"`
	DiscountTier    DiscountTier `bson:"discount_tier" json:"discount_tier"`
	DiscountAmount  float64      `bson:"discount_amount" json:"discount_amount"`
	GuestServiceFee float64      `bson:"guest_service_fee" json:"guest_service_fee"`
	HostServiceFee  float64      `bson:"host_service_fee" json:"host_service_fee"`
	GuestTotal      float64      `bson:"guest_total" json:"guest_total"`
	HostNet         float64      `bson:"host_net" json:"host_net"`
	CurrencyCode    string       `bson:"currency_code" json:"currency_code"`
}

// OfferStatus enumerates the lifecycle of a special offer.
type OfferStatus string

const (
	OfferPending   OfferStatus = "PENDING"
	OfferAccepted  OfferStatus = "ACCEPTED"
	OfferWithdrawn OfferStatus = "WITHDRAWN"
	OfferExpired   OfferStatus = "EXPIRED"
)

// SpecialOffer is a host-initiated, time-boxed alternate price/date proposal
// embedded in the booking it belongs to. It does not hold the calendar until
// accepted.
type SpecialOffer struct {
	ID        utils.SixID `bson:"_id" json:"id"`
	Price     float64     `bson:"price" json:"price"`
	Guests    GuestCount  `bson:"guests" json:"guests"`
	Range     DateRange   `bson:"range" json:"range"`
	Status    OfferStatus `bson:"status" json:"status"`
	CreatedAt time.Time   `bson:"created_at" json:"created_at"`
	ExpiresAt time.Time   `bson:"expires_at" json:"expires_at"`
}

// Transition is one audit-trail entry. Every status change records who moved
// the booking and when; double-booking disputes are diagnosed from this trail.
type Transition struct {
	From  BookingStatus `bson:"from" json:"from"`
	To    BookingStatus `bson:"to" json:"to"`
	Actor utils.SixID   `bson:"actor" json:"actor"`
	At    time.Time     `bson:"at" json:"at"`
}

// Booking is the aggregate the lifecycle state machine operates on. Bookings
// are never deleted, only state-transitioned.
type Booking struct {
	ID           utils.SixID   `bson:"_id,omitempty" json:"id,omitempty"`
	PropertyID   utils.SixID   `bson:"property_id" json:"property_id"`
	GuestID      utils.SixID   `bson:"guest_id" json:"guest_id"`
	HostID       utils.SixID   `bson:"host_id" json:"host_id"`
	Type         BookingType   `bson:"type" json:"type"`
	Status       BookingStatus `bson:"status" json:"status"`
	Range        *DateRange    `bson:"range,omitempty" json:"range,omitempty"`
	Guests       GuestCount    `bson:"guests" json:"guests"`
	Message      string        `bson:"message,omitempty" json:"message,omitempty"`
	CurrencyCode string        `bson:"currency_code" json:"currency_code"`
	Quote        *Quote        `bson:"quote,omitempty" json:"quote,omitempty"`
	Rates        *RateSnapshot `bson:"rates,omitempty" json:"rates,omitempty"`
	PolicyID     utils.SixID   `bson:"policy_id,omitempty" json:"policy_id,omitempty"`
	HoldToken    string        `bson:"hold_token,omitempty" json:"-"`
	Offer        *SpecialOffer `bson:"offer,omitempty" json:"offer,omitempty"`
	RefundAmount *float64      `bson:"refund_amount,omitempty" json:"refund_amount,omitempty"`
	ConfirmedAt  *time.Time    `bson:"confirmed_at,omitempty" json:"confirmed_at,omitempty"`
	CancelledAt  *time.Time    `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	Transitions  []Transition  `bson:"transitions" json:"transitions"`
	CreatedAt    time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at" json:"updated_at"`
}
