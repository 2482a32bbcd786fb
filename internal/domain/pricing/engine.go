package pricing

import (
	"time"

	"stayquote/internal/domain/availability"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/reservation"
	"stayquote/internal/domain/shared/daterange"
	"stayquote/internal/domain/shared/money"
	"stayquote/internal/domain/timeframe"
)

const extraGuestFeeType = "extraGuest"

type Occupancy struct {
	Adults   int
	Children int
	Pets     int
}

func (o Occupancy) Guests() int {
	return o.Adults + o.Children
}

type Input struct {
	Snapshot           availability.Snapshot
	Rates              []timeframe.Frame[Rate]
	Range              daterange.DateRange
	Occupancy          Occupancy
	Excluded           []reservation.ID
	AlwaysIncludeQuote bool
}

// Quote is the engine's answer. Price is nil when it must not be shown.
type Quote struct {
	Range        daterange.DateRange
	Nights       int
	Occupancy    Occupancy
	Currency     string
	Availability availability.Result
	RateMissing  bool
	Price        *PriceBreakdown
}

// Available is false when any conflict exists or a night has no rate.
func (q Quote) Available() bool {
	return q.Availability.Available() && !q.RateMissing
}

type Engine struct {
	Checker availability.Checker
}

func NewEngine(checker availability.Checker) Engine {
	return Engine{Checker: checker}
}

// Quote checks availability and prices the stay. Errors come only from amounts
// in mixed currencies.
func (e Engine) Quote(in Input) (Quote, error) {
	p := in.Snapshot.Property
	settings := property.PricingSettings{}
	if p != nil {
		settings = p.Pricing
	}
	currency := settings.CurrencyCode()
	q := Quote{
		Range:     in.Range,
		Nights:    in.Range.Nights(),
		Occupancy: in.Occupancy,
		Currency:  currency,
	}
	q.Availability = e.Checker.Check(in.Snapshot, availability.Request{
		Range:    in.Range,
		Guests:   in.Occupancy.Guests(),
		Excluded: in.Excluded,
	})

	resolution := NewResolver(in.Rates, settings).Resolve(in.Range)
	if !resolution.Complete() {
		q.RateMissing = true
		return q, nil
	}
	if !q.Availability.Available() && !in.AlwaysIncludeQuote {
		return q, nil
	}

	var daysUntilArrival int
	if p != nil {
		daysUntilArrival = daterange.DaysBetween(e.today(), in.Range.CheckIn)
	}
	price, err := Price(p, resolution, in.Occupancy, currency, daysUntilArrival)
	if err != nil {
		return Quote{}, err
	}
	q.Price = &price
	return q, nil
}

func (e Engine) today() time.Time {
	if e.Checker.Now != nil {
		return daterange.Truncate(e.Checker.Now())
	}
	return daterange.Truncate(time.Now())
}

// Price itemizes a fully resolved stay. Percentage fees come first in their fixed
// order, then fixed fees, then the extra guest supplement.
func Price(p *property.Property, res Resolution, occ Occupancy, currency string, daysUntilArrival int) (PriceBreakdown, error) {
	nights := len(res.Nights)
	guests := occ.Guests()
	visits := res.Visits()
	base, err := res.Sum(currency)
	if err != nil {
		return PriceBreakdown{}, err
	}

	out := PriceBreakdown{
		Currency:       currency,
		Nights:         nights,
		Visits:         visits,
		BaseTotal:      base,
		NightlyAverage: base.Divide(nights),
	}
	if p == nil {
		err := out.RecalculateTotal()
		return out, err
	}

	type fixed struct {
		fee    property.AdditionalFee
		amount money.Money
	}
	var fixedFees []fixed
	taxableBase, untaxedBase := base, base
	for _, fee := range p.Fees {
		if fee.CalculationMethod.Percentage() {
			continue
		}
		amount := money.FromMajor(fee.Value, currency).Multiply(fee.CalculationMethod.Multiplier(nights, guests)).ClampZero()
		fixedFees = append(fixedFees, fixed{fee: fee, amount: amount})
		if fee.Kind != property.KindFee {
			continue
		}
		if fee.Taxable {
			taxableBase, err = taxableBase.Add(amount)
		} else {
			untaxedBase, err = untaxedBase.Add(amount)
		}
		if err != nil {
			return PriceBreakdown{}, err
		}
	}

	percentOrder := []struct {
		method property.CalculationMethod
		base   money.Money
	}{
		{property.PerStayNoTaxesPercent, untaxedBase},
		{property.PerStayPercent, taxableBase},
		{property.PerStayOnlyRatesPercent, base},
	}
	for _, step := range percentOrder {
		for _, fee := range p.Fees {
			if fee.CalculationMethod == step.method {
				out.Fees = append(out.Fees, feeLine(fee, step.base.Percent(fee.Value).ClampZero()))
			}
		}
	}
	for _, f := range fixedFees {
		out.Fees = append(out.Fees, feeLine(f.fee, f.amount))
	}
	extra, err := extraGuestFee(p, visits, guests, currency)
	if err != nil {
		return PriceBreakdown{}, err
	}
	if extra.Amount > 0 {
		out.Fees = append(out.Fees, FeeLine{
			Name:       "Extra guests",
			FeeTaxType: extraGuestFeeType,
			Kind:       property.KindFee,
			Method:     property.PerPersonPerDay,
			Amount:     extra,
		})
	}

	for _, d := range p.Discounts {
		if !d.Applies(daysUntilArrival) {
			continue
		}
		var amount money.Money
		if d.IsPercentage {
			amount = base.Percent(d.Value)
		} else {
			amount = money.FromMajor(d.Value, currency).Multiply(d.CalculationMethod.Multiplier(nights, guests))
		}
		out.Discounts = append(out.Discounts, DiscountLine{
			Name:         d.Name,
			DiscountType: d.DiscountType,
			Amount:       amount.ClampZero(),
			Optional:     d.Optional,
		})
	}

	if err := out.RecalculateTotal(); err != nil {
		return PriceBreakdown{}, err
	}
	return out, nil
}

func feeLine(fee property.AdditionalFee, amount money.Money) FeeLine {
	return FeeLine{
		Name:       fee.Name,
		FeeTaxType: fee.FeeTaxType,
		Kind:       fee.Kind,
		Method:     fee.CalculationMethod,
		Amount:     amount,
		Refundable: fee.Refundable,
		Optional:   fee.Optional,
		Taxable:    fee.Taxable,
	}
}

// extraGuestFee charges each guest above the included count per night,
// using the rate's own supplement when it has one.
func extraGuestFee(p *property.Property, visits []Visit, guests int, currency string) (money.Money, error) {
	included := p.Pricing.IncludedGuests
	if included <= 0 || guests <= included {
		return money.Zero(currency), nil
	}
	extra := int64(guests - included)
	charges := make([]money.Money, 0, len(visits))
	for _, v := range visits {
		perNight := v.Rate.ExtraPersonFee
		if perNight == 0 {
			perNight = p.Pricing.ExtraPersonFee
		}
		charges = append(charges, money.Money{Amount: perNight, Currency: currency}.Multiply(extra*int64(v.Nights)))
	}
	return money.Total(currency, charges...)
}
