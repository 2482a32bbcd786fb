package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayquote/internal/domain/availability"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/shared/daterange"
	"stayquote/internal/domain/shared/money"
	"stayquote/internal/domain/timeframe"
)

var now = time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)

func today() time.Time { return daterange.Truncate(now) }

func engine() Engine {
	return NewEngine(availability.NewChecker(func() time.Time { return now }))
}

func rateFrame(id string, from, to time.Time, nightly int64, seasonal bool) timeframe.Frame[Rate] {
	return timeframe.Frame[Rate]{
		ID:      id,
		Span:    daterange.Span{Lower: from, Upper: to},
		Payload: Rate{Nightly: nightly, Seasonal: seasonal},
	}
}

func feeProperty() *property.Property {
	return &property.Property{
		ID:     "p1",
		Status: property.StatusActive,
		Fees: []property.AdditionalFee{
			{Name: "Cleaning", Value: 1, Kind: property.KindFee, Taxable: true, CalculationMethod: property.PerStay},
			{Name: "Linen", Value: 1, Kind: property.KindFee, Taxable: true, CalculationMethod: property.Daily},
			{Name: "Towels", Value: 1, Kind: property.KindFee, Taxable: true, CalculationMethod: property.PerPersonPerDay},
			{Name: "Welcome pack", Value: 10, Kind: property.KindFee, Taxable: true, CalculationMethod: property.PerPersonPerStay},
			{Name: "Tourism tax", Value: 2, Kind: property.KindTax, FeeTaxType: "tourism", CalculationMethod: property.PerStayPercent, IsPercentage: true},
			{Name: "Service", Value: 2, Kind: property.KindFee, CalculationMethod: property.PerStayOnlyRatesPercent, IsPercentage: true},
			{Name: "City tax", Value: 2, Kind: property.KindTax, CalculationMethod: property.PerStayNoTaxesPercent, IsPercentage: true},
		},
		Discounts: []property.Discount{
			{Name: "Loyalty", Value: 2, DiscountType: "loyalty", CalculationMethod: property.PerStay},
		},
	}
}

// Seed stay: 30 nights at 100.00 for one guest with every fee method.
//
//	sumRates                  3000.00
//	fixed fees, all taxable     71.00  (1 + 1*30 + 1*30*1 + 10*1)
//	City tax    2% of 3000.00   60.00  (no untaxed fixed fees)
//	Tourism tax 2% of 3071.00   61.42
//	Service     2% of 3000.00   60.00
//	discount                    -2.00
//	total                     3250.42
//
// Any mix of taxable flags moves the percent bases by at most 71.00, so the
// total stays near 3250 whatever the flags are.
func TestQuoteThirtyNightSeedStay(t *testing.T) {
	stay := daterange.Must(today(), today().AddDate(0, 0, 30))
	q, err := engine().Quote(Input{
		Snapshot:  availability.Snapshot{Property: feeProperty()},
		Rates:     []timeframe.Frame[Rate]{rateFrame("r1", stay.CheckIn, stay.CheckOut, 10000, false)},
		Range:     stay,
		Occupancy: Occupancy{Adults: 1},
	})
	require.NoError(t, err)

	require.True(t, q.Available())
	require.NotNil(t, q.Price)
	price := q.Price
	assert.Equal(t, "USD", q.Currency)
	assert.Equal(t, 30, price.Nights)
	assert.Equal(t, "3000.00", price.BaseTotal.String())
	assert.Equal(t, "100.00", price.NightlyAverage.String())

	var names, amounts []string
	for _, f := range price.Fees {
		names = append(names, f.Name)
		amounts = append(amounts, f.Amount.String())
	}
	assert.Equal(t, []string{"City tax", "Tourism tax", "Service", "Cleaning", "Linen", "Towels", "Welcome pack"}, names)
	assert.Equal(t, []string{"60.00", "61.42", "60.00", "1.00", "30.00", "30.00", "10.00"}, amounts)

	require.Len(t, price.Discounts, 1)
	assert.Equal(t, "2.00", price.Discounts[0].Amount.String())
	assert.Equal(t, "3250.42", price.Total.String())
	fees, err := price.FeesTotal()
	require.NoError(t, err)
	discounts, err := price.DiscountsTotal()
	require.NoError(t, err)
	assert.Equal(t, price.BaseTotal.Amount+fees.Amount-discounts.Amount, price.Total.Amount)
}

func TestQuoteNoTaxesBaseUsesUntaxedFees(t *testing.T) {
	p := &property.Property{
		ID:     "p1",
		Status: property.StatusActive,
		Fees: []property.AdditionalFee{
			{Name: "Cleaning", Value: 50, Kind: property.KindFee, CalculationMethod: property.PerStay},
			{Name: "Resort tax", Value: 20, Kind: property.KindTax, CalculationMethod: property.PerStay},
			{Name: "VAT", Value: 10, Kind: property.KindTax, CalculationMethod: property.PerStayNoTaxesPercent},
		},
	}
	stay := daterange.Must(today(), today().AddDate(0, 0, 2))
	q, err := engine().Quote(Input{
		Snapshot: availability.Snapshot{Property: p},
		Rates:    []timeframe.Frame[Rate]{rateFrame("r1", time.Time{}, time.Time{}, 10000, false)},
		Range:    stay,
	})
	require.NoError(t, err)
	require.NotNil(t, q.Price)
	assert.Equal(t, "VAT", q.Price.Fees[0].Name)
	assert.Equal(t, "25.00", q.Price.Fees[0].Amount.String())
}

func TestQuoteMissingRate(t *testing.T) {
	stay := daterange.Must(today(), today().AddDate(0, 0, 5))
	q, err := engine().Quote(Input{
		Snapshot:           availability.Snapshot{Property: &property.Property{ID: "p1", Status: property.StatusActive}},
		Rates:              []timeframe.Frame[Rate]{rateFrame("r1", today(), today().AddDate(0, 0, 3), 10000, false)},
		Range:              stay,
		AlwaysIncludeQuote: true,
	})
	require.NoError(t, err)

	assert.True(t, q.RateMissing)
	assert.False(t, q.Available())
	assert.True(t, q.Availability.Available())
	assert.Nil(t, q.Price)
	assert.Equal(t, 5, q.Nights)
}

func TestQuoteOmitsPriceWhenUnavailable(t *testing.T) {
	p := &property.Property{ID: "p1", Status: property.StatusDisabled}
	stay := daterange.Must(today(), today().AddDate(0, 0, 3))
	in := Input{
		Snapshot: availability.Snapshot{Property: p},
		Rates:    []timeframe.Frame[Rate]{rateFrame("r1", time.Time{}, time.Time{}, 5000, false)},
		Range:    stay,
	}

	q, err := engine().Quote(in)
	require.NoError(t, err)
	assert.False(t, q.Available())
	assert.Equal(t, []availability.Conflict{availability.ConflictNotActive}, q.Availability.Conflicts)
	assert.Nil(t, q.Price)

	in.AlwaysIncludeQuote = true
	q, err = engine().Quote(in)
	require.NoError(t, err)
	require.NotNil(t, q.Price)
	assert.Equal(t, "150.00", q.Price.Total.String())
}

func TestResolverSeasonalPrecedence(t *testing.T) {
	d := daterange.Date
	resolver := Resolver{Frames: []timeframe.Frame[Rate]{
		rateFrame("base", time.Time{}, time.Time{}, 10000, false),
		rateFrame("summer", d(2024, 6, 1), d(2024, 9, 1), 15000, true),
		rateFrame("peak", d(2024, 7, 1), d(2024, 7, 15), 20000, true),
		rateFrame("promo", d(2024, 5, 30), d(2024, 6, 3), 9000, false),
	}}

	stay := daterange.Must(d(2024, 5, 30), d(2024, 7, 2))
	res := resolver.Resolve(stay)
	require.True(t, res.Complete())

	visits := res.Visits()
	total := 0
	for _, v := range visits {
		total += v.Nights
	}
	assert.Equal(t, stay.Nights(), total)
	assert.Equal(t, []Visit{
		{FrameID: "promo", Rate: Rate{Nightly: 9000}, Nights: 2},
		{FrameID: "summer", Rate: Rate{Nightly: 15000, Seasonal: true}, Nights: 30},
		{FrameID: "peak", Rate: Rate{Nightly: 20000, Seasonal: true}, Nights: 1},
	}, visits)
}

func TestResolverFallbackAndMissing(t *testing.T) {
	d := daterange.Date
	stay := daterange.Must(d(2024, 1, 1), d(2024, 1, 4))

	res := NewResolver(nil, property.PricingSettings{}).Resolve(stay)
	assert.Len(t, res.Missing, 3)
	assert.ErrorIs(t, res.Err(), ErrNoRate)

	res = NewResolver(nil, property.PricingSettings{NightlyDefault: 12000}).Resolve(stay)
	require.True(t, res.Complete())
	sum, err := res.Sum("USD")
	require.NoError(t, err)
	assert.Equal(t, int64(36000), sum.Amount)
}

func TestDiscountGatesAndPercentages(t *testing.T) {
	tenDays, threeDays := 10, 3
	p := &property.Property{
		ID:     "p1",
		Status: property.StatusActive,
		Pricing: property.PricingSettings{Currency: "eur"},
		Discounts: []property.Discount{
			{Name: "Early bird", Value: 10, IsPercentage: true, DiscountType: property.DiscountEarlyBird, DaysBefore: &tenDays},
			{Name: "Last minute", Value: 5, IsPercentage: true, DiscountType: property.DiscountLastMinute, DaysBefore: &threeDays},
			{Name: "Daily", Value: 1, DiscountType: "weekly", CalculationMethod: property.Daily},
		},
	}
	rates := []timeframe.Frame[Rate]{rateFrame("r", time.Time{}, time.Time{}, 10000, false)}

	soon, err := engine().Quote(Input{
		Snapshot: availability.Snapshot{Property: p},
		Rates:    rates,
		Range:    daterange.Must(today().AddDate(0, 0, 2), today().AddDate(0, 0, 4)),
	})
	require.NoError(t, err)
	require.NotNil(t, soon.Price)
	assert.Equal(t, "EUR", soon.Currency)
	var names []string
	for _, d := range soon.Price.Discounts {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"Last minute", "Daily"}, names)
	assert.Equal(t, "10.00", soon.Price.Discounts[0].Amount.String())
	assert.Equal(t, "2.00", soon.Price.Discounts[1].Amount.String())
	assert.Equal(t, "188.00", soon.Price.Total.String())

	later, err := engine().Quote(Input{
		Snapshot: availability.Snapshot{Property: p},
		Rates:    rates,
		Range:    daterange.Must(today().AddDate(0, 0, 20), today().AddDate(0, 0, 21)),
	})
	require.NoError(t, err)
	require.NotNil(t, later.Price)
	assert.Equal(t, "Early bird", later.Price.Discounts[0].Name)
}

func TestTotalClampsAtZero(t *testing.T) {
	p := &property.Property{
		ID:        "p1",
		Status:    property.StatusActive,
		Discounts: []property.Discount{{Name: "Owner", Value: 500, CalculationMethod: property.PerStay}},
	}
	q, err := engine().Quote(Input{
		Snapshot: availability.Snapshot{Property: p},
		Rates:    []timeframe.Frame[Rate]{rateFrame("r", time.Time{}, time.Time{}, 10000, false)},
		Range:    daterange.Must(today(), today().AddDate(0, 0, 1)),
	})
	require.NoError(t, err)
	require.NotNil(t, q.Price)
	assert.Equal(t, int64(0), q.Price.Total.Amount)
}

func TestExtraGuestFee(t *testing.T) {
	p := &property.Property{
		ID:      "p1",
		Status:  property.StatusActive,
		Pricing: property.PricingSettings{IncludedGuests: 2, ExtraPersonFee: 1500},
	}
	frames := []timeframe.Frame[Rate]{
		rateFrame("base", time.Time{}, time.Time{}, 10000, false),
		{ID: "holiday", Span: daterange.Span{Lower: today().AddDate(0, 0, 1), Upper: today().AddDate(0, 0, 2)}, Payload: Rate{Nightly: 20000, ExtraPersonFee: 3000, Seasonal: true}},
	}
	q, err := engine().Quote(Input{
		Snapshot:  availability.Snapshot{Property: p},
		Rates:     frames,
		Range:     daterange.Must(today(), today().AddDate(0, 0, 3)),
		Occupancy: Occupancy{Adults: 3, Children: 1, Pets: 2},
	})
	require.NoError(t, err)
	require.NotNil(t, q.Price)
	require.Len(t, q.Price.Fees, 1)
	fee := q.Price.Fees[0]
	assert.Equal(t, extraGuestFeeType, fee.FeeTaxType)
	// two extra guests: 2 nights at 15.00 and 1 night at 30.00
	assert.Equal(t, "120.00", fee.Amount.String())
}

func TestRecalculateTotalRejectsForeignLines(t *testing.T) {
	p := PriceBreakdown{
		Currency:  "USD",
		BaseTotal: money.Must(10000, "USD"),
		Fees:      []FeeLine{{Name: "Cleaning", Amount: money.Must(500, "USD")}},
		Discounts: []DiscountLine{{Name: "Promo", Amount: money.Must(20000, "USD")}},
	}
	require.NoError(t, p.RecalculateTotal())
	assert.True(t, p.Total.IsZero(), "total clamps at zero")

	p.Fees = append(p.Fees, FeeLine{Name: "Linen", Amount: money.Must(100, "EUR")})
	assert.ErrorIs(t, p.RecalculateTotal(), money.ErrCurrencyMismatch)

	p.Fees = p.Fees[:1]
	p.Currency = ""
	assert.ErrorIs(t, p.RecalculateTotal(), ErrCurrencyUnset)
}
