package models

import (
	"github.com/yasinarafat4/reluxrent-sub000/internal/utils"
)

// CancellationPolicy is immutable reference data: the refund percentage a
// guest gets depends on whether they cancel at least BeforeDays days ahead of
// check-in.
type CancellationPolicy struct {
	ID                 utils.SixID `bson:"_id,omitempty" json:"id,omitempty"`
	Name               string      `bson:"name" json:"name"`
	BeforeDays         int         `bson:"before_days" json:"before_days"`
	BeforeDayRefundPct float64     `bson:"before_day_refund_pct" json:"before_day_refund_pct"`
	AfterDayRefundPct  float64     `bson:"after_day_refund_pct" json:"after_day_refund_pct"`
}
