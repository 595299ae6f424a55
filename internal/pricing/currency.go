package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/yasinarafat4/reluxrent-sub000/internal/models"
)

// ComposeRates composes the two exchange ratios a booking needs: the paying
// currency against settlement, and the property's listing currency against
// settlement. All three inputs are read-only snapshots; nothing here touches
// ambient state.
func ComposeRates(paying, property, settlement models.Currency) (*models.RateSnapshot, error) {
	if paying.Rate <= 0 || property.Rate <= 0 || settlement.Rate <= 0 {
		return nil, models.ErrUnknownCurrency
	}

	payingRate := decimal.NewFromFloat(paying.Rate)
	propertyRate := decimal.NewFromFloat(property.Rate)
	settlementRate := decimal.NewFromFloat(settlement.Rate)

	toSettlement, _ := decimal.NewFromInt(1).Div(payingRate).Mul(settlementRate).Float64()
	propertyToSettlement, _ := settlementRate.Div(propertyRate).Float64()

	return &models.RateSnapshot{
		RateToSettlement:         toSettlement,
		RatePropertyToSettlement: propertyToSettlement,
	}, nil
}

// Convert converts an amount in the property's listing currency into the
// paying currency using a composed rate snapshot, rounded half-up to 2
// decimal places.
func Convert(amountInPropertyCurrency float64, rates *models.RateSnapshot) float64 {
	amount := decimal.NewFromFloat(amountInPropertyCurrency)
	result := amount.
		Mul(decimal.NewFromFloat(rates.RatePropertyToSettlement)).
		Div(decimal.NewFromFloat(rates.RateToSettlement))
	return round2(result)
}
