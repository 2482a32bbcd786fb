package calendar

import (
	"time"

	"stayquote/internal/domain/availability"
	"stayquote/internal/domain/pricing"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/shared/daterange"
	"stayquote/internal/domain/shared/money"
	"stayquote/internal/domain/timeframe"
)

const DefaultCount = 180

// Day is one entry of the availability calendar. Price and MinNights are nil when unknown.
type Day struct {
	Date      time.Time
	Price     *money.Money
	MinNights *int
	Available bool
}

type Projection struct {
	Count    int
	Currency string
	Days     []Day
}

type Input struct {
	Snapshot availability.Snapshot
	Rates    []timeframe.Frame[pricing.Rate]
	From     time.Time
	Count    int
}

// Window is the range of nights a projection covers.
func (in Input) Window() daterange.DateRange {
	from := daterange.Truncate(in.From)
	return daterange.DateRange{CheckIn: from, CheckOut: from.AddDate(0, 0, in.Count)}
}

type Projector struct {
	Checker availability.Checker
}

func NewProjector(checker availability.Checker) Projector {
	return Projector{Checker: checker}
}

// Project builds one Day per night of the window. A day is available only when it
// has a rate, is not blocked and no imported event covers it.
func (p Projector) Project(in Input) Projection {
	settings := property.PricingSettings{}
	if in.Snapshot.Property != nil {
		settings = in.Snapshot.Property.Pricing
	}
	currency := settings.CurrencyCode()
	resolver := pricing.NewResolver(in.Rates, settings)

	days := in.Window().Days()
	out := Projection{Count: len(days), Currency: currency, Days: make([]Day, 0, len(days))}
	for _, d := range days {
		entry := Day{Date: d, Available: true}

		if night, ok := resolver.At(d); ok {
			price := money.Money{Amount: night.Rate.Nightly, Currency: currency}
			entry.Price = &price
		} else {
			entry.Available = false
		}

		if rule, ok := timeframe.ResolveAt(in.Snapshot.StayRules, d); ok {
			minStay := rule.Payload.MinStay
			entry.MinNights = &minStay
		}

		res := p.Checker.Check(in.Snapshot, availability.Request{Range: daterange.DateRange{CheckIn: d, CheckOut: d.AddDate(0, 0, 1)}})
		if res.IsBlocked(d) || res.Has(availability.ConflictICalBlockings) {
			entry.Available = false
		}
		out.Days = append(out.Days, entry)
	}
	return out
}
