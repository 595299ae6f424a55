package pricing

import (
	"time"

	"github.com/yasinarafat4/reluxrent-sub000/internal/models"
)

// NightlyPrice is the resolved unit price for one night of a stay. Derived on
// demand, never persisted.
type NightlyPrice struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// ResolveCalendar resolves the nightly price and availability for every night
// in [range.Start, range.End). A per-date override wins over the base price;
// an override with Bookable=false puts the night on the blocked list instead
// of the price series.
//
// Side-effect free; the same call serves both quote previews and the final
// commit path.
func ResolveCalendar(p *models.Property, r models.DateRange) ([]NightlyPrice, []time.Time, error) {
	if !r.End.After(r.Start) {
		return nil, nil, models.ErrInvalidRange
	}

	nights := make([]NightlyPrice, 0, r.Nights())
	var blocked []time.Time

	for _, date := range r.Dates() {
		if ov := p.OverrideFor(date); ov != nil {
			if !ov.Bookable {
				blocked = append(blocked, date)
				continue
			}
			nights = append(nights, NightlyPrice{Date: date, Price: ov.Price})
			continue
		}
		nights = append(nights, NightlyPrice{Date: date, Price: p.BasePrice})
	}

	return nights, blocked, nil
}
