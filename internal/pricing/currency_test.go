package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasinarafat4/reluxrent-sub000/internal/models"
)

func TestComposeRates(t *testing.T) {
	paying := models.Currency{Code: "USD", Rate: 1.0}
	property := models.Currency{Code: "AUD", Rate: 0.5}
	settlement := models.Currency{Code: "USD", Rate: 1.0}

	rates, err := ComposeRates(paying, property, settlement)
	require.NoError(t, err)
	assert.Equal(t, 1.0, rates.RateToSettlement)
	assert.Equal(t, 2.0, rates.RatePropertyToSettlement)

	// 100 in the property currency is 200 in the paying currency.
	assert.Equal(t, 200.0, Convert(100, rates))
}

func TestComposeRates_NonBaseCurrencies(t *testing.T) {
	paying := models.Currency{Code: "EUR", Rate: 0.8}
	property := models.Currency{Code: "GBP", Rate: 0.4}
	settlement := models.Currency{Code: "USD", Rate: 1.0}

	rates, err := ComposeRates(paying, property, settlement)
	require.NoError(t, err)
	assert.Equal(t, 1.25, rates.RateToSettlement)
	assert.Equal(t, 2.5, rates.RatePropertyToSettlement)

	// 100 GBP -> 250 USD -> 200 EUR.
	assert.Equal(t, 200.0, Convert(100, rates))
}

func TestComposeRates_ZeroRate(t *testing.T) {
	good := models.Currency{Code: "USD", Rate: 1.0}
	bad := models.Currency{Code: "XXX"}

	_, err := ComposeRates(bad, good, good)
	assert.ErrorIs(t, err, models.ErrUnknownCurrency)
	_, err = ComposeRates(good, bad, good)
	assert.ErrorIs(t, err, models.ErrUnknownCurrency)
}

func TestConvert_Rounding(t *testing.T) {
	rates := &models.RateSnapshot{RateToSettlement: 3, RatePropertyToSettlement: 1}
	// 100 / 3 = 33.333... -> 33.33
	assert.Equal(t, 33.33, Convert(100, rates))
}
