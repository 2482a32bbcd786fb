package pricing

import (
	"errors"
	"fmt"
	"time"

	"stayquote/internal/domain/property"
	"stayquote/internal/domain/shared/daterange"
	"stayquote/internal/domain/shared/money"
	"stayquote/internal/domain/timeframe"
)

var ErrNoRate = errors.New("pricing: no rate covers the night")

const fallbackFrameID = "default"

// Rate is the nightly price payload of a rate frame. Amounts are minor units.
type Rate struct {
	Name           string
	Nightly        int64
	Weekend        int64
	Weekly         int64
	Monthly        int64
	ExtraPersonFee int64
	Seasonal       bool
}

func (r Rate) Validate() error {
	if r.Nightly < 0 || r.Weekend < 0 || r.Weekly < 0 || r.Monthly < 0 || r.ExtraPersonFee < 0 {
		return property.ErrNegativeValue
	}
	return nil
}

type RateStore = timeframe.Store[Rate]

// Night is the rate chosen for one calendar day.
type Night struct {
	Date    time.Time
	FrameID string
	Rate    Rate
}

// Visit groups the nights priced by one rate frame.
type Visit struct {
	FrameID string
	Rate    Rate
	Nights  int
}

// Resolution is the per-night outcome of rate resolution. Missing lists nights
// without any applicable rate; callers branch on it instead of an error.
type Resolution struct {
	Nights  []Night
	Missing []time.Time
}

func (r Resolution) Complete() bool {
	return len(r.Missing) == 0
}

// Err reports the first uncovered night as ErrNoRate.
func (r Resolution) Err() error {
	if r.Complete() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNoRate, daterange.Format(r.Missing[0]))
}

// Visits groups resolved nights by frame in first-seen order.
func (r Resolution) Visits() []Visit {
	var out []Visit
	index := map[string]int{}
	for _, n := range r.Nights {
		if i, ok := index[n.FrameID]; ok {
			out[i].Nights++
			continue
		}
		index[n.FrameID] = len(out)
		out = append(out, Visit{FrameID: n.FrameID, Rate: n.Rate, Nights: 1})
	}
	return out
}

// Sum totals the nightly amounts in currency.
func (r Resolution) Sum(currency string) (money.Money, error) {
	visits := r.Visits()
	amounts := make([]money.Money, 0, len(visits))
	for _, v := range visits {
		amounts = append(amounts, money.Money{Amount: v.Rate.Nightly, Currency: currency}.Multiply(int64(v.Nights)))
	}
	return money.Total(currency, amounts...)
}

// Resolver maps nights to rates. Fallback, when set, prices nights no frame covers.
type Resolver struct {
	Frames   []timeframe.Frame[Rate]
	Fallback *Rate
}

// NewResolver builds a resolver whose fallback is the property's nightly default.
func NewResolver(frames []timeframe.Frame[Rate], settings property.PricingSettings) Resolver {
	r := Resolver{Frames: frames}
	if settings.NightlyDefault > 0 {
		r.Fallback = &Rate{
			Name:           "Nightly",
			Nightly:        settings.NightlyDefault,
			Weekend:        settings.WeekendDefault,
			ExtraPersonFee: settings.ExtraPersonFee,
		}
	}
	return r
}

// At resolves one night: seasonal frames containing the day win, most recent start first,
// then non-seasonal frames including open ones.
func (r Resolver) At(day time.Time) (Night, bool) {
	day = daterange.Truncate(day)
	var seasonal, regular []timeframe.Frame[Rate]
	for _, f := range r.Frames {
		if !f.Span.ContainsDate(day) {
			continue
		}
		if f.Payload.Seasonal {
			seasonal = append(seasonal, f)
		} else {
			regular = append(regular, f)
		}
	}
	for _, group := range [][]timeframe.Frame[Rate]{seasonal, regular} {
		if len(group) == 0 {
			continue
		}
		timeframe.SortByLowerDesc(group)
		return Night{Date: day, FrameID: group[0].ID, Rate: group[0].Payload}, true
	}
	if r.Fallback != nil {
		return Night{Date: day, FrameID: fallbackFrameID, Rate: *r.Fallback}, true
	}
	return Night{}, false
}

// Resolve prices every night of dr.
func (r Resolver) Resolve(dr daterange.DateRange) Resolution {
	var res Resolution
	for _, day := range dr.Days() {
		night, ok := r.At(day)
		if !ok {
			res.Missing = append(res.Missing, day)
			continue
		}
		res.Nights = append(res.Nights, night)
	}
	return res
}
