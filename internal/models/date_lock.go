package models

import (
	"time"

	"github.com/yasinarafat4/reluxrent-sub000/internal/utils"
)

// DateLock is one reserved night of a confirmed hold. A unique index on
// (property_id, date) makes overlapping reservation attempts collide at
// insert time, which is the atomicity guarantee for reservations: of two
// concurrent attempts on overlapping ranges exactly one set of inserts
// succeeds.
type DateLock struct {
	PropertyID utils.SixID `bson:"property_id"`
	Date       time.Time   `bson:"date"`
	BookingID  utils.SixID `bson:"booking_id"`
	Token      string      `bson:"token"`
	CreatedAt  time.Time   `bson:"created_at"`
}
