package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/yasinarafat4/reluxrent-sub000/internal/models"
)

// Stay-length thresholds for the discount tiers. The monthly threshold is 28
// nights everywhere; it can be overridden per deployment via dynamic config.
const (
	DefaultWeeklyMinNights  = 7
	DefaultMonthlyMinNights = 28
)

// QuoteParams carries the platform fee percentages and tier thresholds for
// one quote computation. They are read per request from config so stale
// values never get cached inside the engine.
type QuoteParams struct {
	GuestFeePct      float64
	HostFeePct       float64
	WeeklyMinNights  int
	MonthlyMinNights int
}

func (p QuoteParams) weeklyMin() int {
	if p.WeeklyMinNights > 0 {
		return p.WeeklyMinNights
	}
	return DefaultWeeklyMinNights
}

func (p QuoteParams) monthlyMin() int {
	if p.MonthlyMinNights > 0 {
		return p.MonthlyMinNights
	}
	return DefaultMonthlyMinNights
}

// round2 rounds half-up to 2 decimal places. Applied only to the final output
// fields of a quote, never to intermediate sums, so rounding error does not
// compound across nights.
func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// ComputeQuote turns a resolved nightly price series into a full breakdown:
// subtotal, stay-length discount, guest/host service fees, guest total and
// host net. The discount is applied first; both fees are computed on the
// discounted subtotal. Monthly wins over weekly when both thresholds are met.
func ComputeQuote(nights []NightlyPrice, property *models.Property, params QuoteParams) (*models.Quote, error) {
	if len(nights) == 0 {
		return nil, models.ErrEmptyRange
	}

	subtotal := decimal.Zero
	for _, n := range nights {
		subtotal = subtotal.Add(decimal.NewFromFloat(n.Price))
	}

	tier := models.DiscountNone
	tierPct := decimal.Zero
	switch {
	case len(nights) >= params.monthlyMin() && property.MonthlyDiscountPct > 0:
		tier = models.DiscountMonthly
		tierPct = decimal.NewFromFloat(property.MonthlyDiscountPct)
	case len(nights) >= params.weeklyMin() && property.WeeklyDiscountPct > 0:
		tier = models.DiscountWeekly
		tierPct = decimal.NewFromFloat(property.WeeklyDiscountPct)
	}

	hundred := decimal.NewFromInt(100)
	discount := subtotal.Mul(tierPct).Div(hundred)
	discounted := subtotal.Sub(discount)

	guestFee := discounted.Mul(decimal.NewFromFloat(params.GuestFeePct)).Div(hundred)
	hostFee := discounted.Mul(decimal.NewFromFloat(params.HostFeePct)).Div(hundred)

	return &models.Quote{
		Subtotal:        round2(subtotal),
		DiscountTier:    tier,
		DiscountAmount:  round2(discount),
		GuestServiceFee: round2(guestFee),
		HostServiceFee:  round2(hostFee),
		GuestTotal:      round2(discounted.Add(guestFee)),
		HostNet:         round2(discounted.Sub(hostFee)),
		CurrencyCode:    property.CurrencyCode,
	}, nil
}

// QuoteFromOfferPrice builds the breakdown for a special offer: the host's
// offer price replaces the nightly subtotal outright, no stay-length discount
// applies, and the service fees are computed on the offer price.
func QuoteFromOfferPrice(price float64, currencyCode string, params QuoteParams) *models.Quote {
	hundred := decimal.NewFromInt(100)
	subtotal := decimal.NewFromFloat(price)
	guestFee := subtotal.Mul(decimal.NewFromFloat(params.GuestFeePct)).Div(hundred)
	hostFee := subtotal.Mul(decimal.NewFromFloat(params.HostFeePct)).Div(hundred)

	return &models.Quote{
		Subtotal:        round2(subtotal),
		DiscountTier:    models.DiscountNone,
		DiscountAmount:  0,
		GuestServiceFee: round2(guestFee),
		HostServiceFee:  round2(hostFee),
		GuestTotal:      round2(subtotal.Add(guestFee)),
		HostNet:         round2(subtotal.Sub(hostFee)),
		CurrencyCode:    currencyCode,
	}
}
