package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasinarafat4/reluxrent-sub000/internal/models"
)

func day(d int) time.Time {
	return time.Date(2026, 10, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveCalendar_BasePriceOnly(t *testing.T) {
	p := &models.Property{BasePrice: 120}
	r, err := models.NewDateRange(day(1), day(4))
	require.NoError(t, err)

	nights, blocked, err := ResolveCalendar(p, r)
	require.NoError(t, err)
	assert.Empty(t, blocked)
	require.Len(t, nights, 3)
	for i, n := range nights {
		assert.Equal(t, day(1+i), n.Date)
		assert.Equal(t, 120.0, n.Price)
	}
}

func TestResolveCalendar_OverridesAndBlockedDates(t *testing.T) {
	p := &models.Property{
		BasePrice: 100,
		Overrides: []models.DateOverride{
			{Date: day(2), Price: 150, Bookable: true},
			{Date: day(3), Price: 0, Bookable: false},
		},
	}
	r, err := models.NewDateRange(day(1), day(5))
	require.NoError(t, err)

	nights, blocked, err := ResolveCalendar(p, r)
	require.NoError(t, err)

	// The blocked night is excluded from the price series.
	require.Len(t, nights, 3)
	assert.Equal(t, 100.0, nights[0].Price)
	assert.Equal(t, 150.0, nights[1].Price)
	assert.Equal(t, 100.0, nights[2].Price)
	assert.Equal(t, day(4), nights[2].Date)

	require.Len(t, blocked, 1)
	assert.Equal(t, day(3), blocked[0])
}

func TestResolveCalendar_InvalidRange(t *testing.T) {
	p := &models.Property{BasePrice: 100}

	_, _, err := ResolveCalendar(p, models.DateRange{Start: day(5), End: day(5)})
	assert.ErrorIs(t, err, models.ErrInvalidRange)

	_, _, err = ResolveCalendar(p, models.DateRange{Start: day(5), End: day(3)})
	assert.ErrorIs(t, err, models.ErrInvalidRange)
}

func TestDateRange_NightsAndOverlap(t *testing.T) {
	a, err := models.NewDateRange(day(1), day(5))
	require.NoError(t, err)
	assert.Equal(t, 4, a.Nights())

	// Back-to-back stays share a checkout day but no night.
	b, err := models.NewDateRange(day(5), day(8))
	require.NoError(t, err)
	assert.False(t, a.Overlaps(b))

	c, err := models.NewDateRange(day(4), day(6))
	require.NoError(t, err)
	assert.True(t, a.Overlaps(c))
}
