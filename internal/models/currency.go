package models

import (
	"time"
)

// Currency is reference data: an ISO-ish code and its exchange rate relative
// to the platform settlement currency. Rates are refreshed by an external
// collaborator; this service only reads snapshots of them.
type Currency struct {
	Code      string    `bson:"_id" json:"code"`
	Name      string    `bson:"name" json:"name"`
	Rate      float64   `bson:"rate" json:"rate"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// RateSnapshot is the pair of composed exchange ratios captured on a booking
// at confirmation time. Once stored it is never recomputed, so historical
// bookings keep the rates they were priced with.
type RateSnapshot struct {
	RateToSettlement         float64 `bson:"rate_to_settlement" json:"rate_to_settlement"`
	RatePropertyToSettlement float64 `bson:"rate_property_to_settlement" json:"rate_property_to_settlement"`
}
