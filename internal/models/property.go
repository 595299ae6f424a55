package models

import (
	"time"

	"github.com/yasinarafat4/reluxrent-sub000/internal/utils"
)

// DateOverride replaces the base nightly price (or blocks the night entirely)
// for one calendar date.
type DateOverride struct {
	Date     time.Time `bson:"date" json:"date"`
	Price    float64   `bson:"price" json:"price"`
	Bookable bool      `bson:"bookable" json:"bookable"`
}

// Property is a host's rental unit. Listing management (media, description
// editing, search indexing) lives outside this service; only the pricing and
// availability inputs are modelled here.
type Property struct {
	ID                 utils.SixID    `bson:"_id,omitempty" json:"id,omitempty"`
	HostID             utils.SixID    `bson:"host_id" json:"host_id"`
	Title              string         `bson:"title" json:"title"`
	CurrencyCode       string         `bson:"currency_code" json:"currency_code"`
	BasePrice          float64        `bson:"base_price" json:"base_price"`
	CleaningFee        float64        `bson:"cleaning_fee" json:"cleaning_fee"`
	ExtraGuestFee      float64        `bson:"extra_guest_fee" json:"extra_guest_fee"`
	MinimumStayNights  int            `bson:"minimum_stay_nights" json:"minimum_stay_nights"`
	Accommodates       int            `bson:"accommodates" json:"accommodates"`
	WeeklyDiscountPct  float64        `bson:"weekly_discount_pct" json:"weekly_discount_pct"`
	MonthlyDiscountPct float64        `bson:"monthly_discount_pct" json:"monthly_discount_pct"`
	Overrides          []DateOverride `bson:"overrides" json:"overrides"`
	CancellationPolicy utils.SixID    `bson:"cancellation_policy" json:"cancellation_policy"`
	CreatedAt          time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `bson:"updated_at" json:"updated_at"`
	Deleted            bool           `bson:"deleted" json:"-"`
}

// OverrideFor returns the override for a given night, or nil when the base
// price applies.
func (p *Property) OverrideFor(date time.Time) *DateOverride {
	date = Midnight(date)
	for i := range p.Overrides {
		if Midnight(p.Overrides[i].Date).Equal(date) {
			return &p.Overrides[i]
		}
	}
	return nil
}
