package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Domain error taxonomy. Handlers translate these to HTTP statuses; services
// wrap them with context but always keep the sentinel reachable via errors.Is.
var (
	ErrInvalidRange       = errors.New("invalid date range: end must be after start")
	ErrEmptyRange         = errors.New("nightly price series is empty")
	ErrMinimumStayNotMet  = errors.New("stay is shorter than the property minimum")
	ErrGuestCountExceeded = errors.New("guest count exceeds property capacity")
	ErrUnknownCurrency    = errors.New("unknown currency code")
	ErrPolicyMissing      = errors.New("booking has no cancellation policy attached")
	ErrOfferExpired       = errors.New("special offer has expired")
	ErrInvalidTransition  = errors.New("invalid booking state transition")
)

// ConflictError reports exactly which nights of a requested range are
// unavailable, so the caller can retry with different dates.
type ConflictError struct {
	Dates []time.Time
}

func (e *ConflictError) Error() string {
	if len(e.Dates) == 0 {
		return "date range conflicts with an existing reservation"
	}
	formatted := make([]string, len(e.Dates))
	for i, d := range e.Dates {
		formatted[i] = d.Format("2006-01-02")
	}
	return fmt.Sprintf("dates unavailable: %s", strings.Join(formatted, ", "))
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
