package property

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCalculationMethod = errors.New("property: invalid calculation method")
	ErrInvalidFeeKind           = errors.New("property: invalid fee kind")
	ErrNegativeValue            = errors.New("property: value must not be negative")
)

// CalculationMethod is the tagged variant used to price fees and discounts.
type CalculationMethod string

const (
	PerStay                 CalculationMethod = "perStay"
	Daily                   CalculationMethod = "daily"
	PerPersonPerDay         CalculationMethod = "perPersonPerDay"
	PerPersonPerStay        CalculationMethod = "perPersonPerStay"
	PerStayPercent          CalculationMethod = "perStayPercent"
	PerStayOnlyRatesPercent CalculationMethod = "perStayOnlyRatesPercent"
	PerStayNoTaxesPercent   CalculationMethod = "perStayNoTaxesPercent"
)

func (m CalculationMethod) Valid() bool {
	switch m {
	case PerStay, Daily, PerPersonPerDay, PerPersonPerStay,
		PerStayPercent, PerStayOnlyRatesPercent, PerStayNoTaxesPercent:
		return true
	}
	return false
}

// Percentage reports whether the method prices against a base amount.
func (m CalculationMethod) Percentage() bool {
	switch m {
	case PerStayPercent, PerStayOnlyRatesPercent, PerStayNoTaxesPercent:
		return true
	}
	return false
}

// Multiplier scales a fixed value by stay length and party size.
func (m CalculationMethod) Multiplier(nights, guests int) int64 {
	switch m {
	case Daily:
		return int64(nights)
	case PerPersonPerDay:
		return int64(nights) * int64(guests)
	case PerPersonPerStay:
		return int64(guests)
	default:
		return 1
	}
}

type FeeKind string

const (
	KindFee FeeKind = "fee"
	KindTax FeeKind = "tax"
)

// AdditionalFee covers both fees and taxes. Value is a percentage for percentage
// methods and a major-unit amount otherwise.
type AdditionalFee struct {
	ID                string
	Name              string
	Value             float64
	Kind              FeeKind
	FeeTaxType        string
	Optional          bool
	Refundable        bool
	Taxable           bool
	CalculationMethod CalculationMethod
	IsPercentage      bool
}

func (f AdditionalFee) Validate() error {
	if !f.CalculationMethod.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCalculationMethod, f.CalculationMethod)
	}
	switch f.Kind {
	case KindFee, KindTax:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFeeKind, f.Kind)
	}
	if f.Value < 0 {
		return ErrNegativeValue
	}
	return nil
}

const (
	DiscountEarlyBird  = "earlyBird"
	DiscountLastMinute = "lastMinute"
)

// Discount reduces the quote. DaysBefore gates early-bird (arrival at least N days away)
// and last-minute (arrival at most N days away) discounts.
type Discount struct {
	ID                string
	Name              string
	Value             float64
	IsPercentage      bool
	DiscountType      string
	CalculationMethod CalculationMethod
	DaysBefore        *int
	Optional          bool
}

func (d Discount) Validate() error {
	if d.CalculationMethod != "" && !d.CalculationMethod.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCalculationMethod, d.CalculationMethod)
	}
	if d.Value < 0 {
		return ErrNegativeValue
	}
	return nil
}

// Applies evaluates the daysBefore gate for an arrival that is daysUntilArrival away.
func (d Discount) Applies(daysUntilArrival int) bool {
	if d.DaysBefore == nil {
		return true
	}
	if d.DiscountType == DiscountLastMinute {
		return daysUntilArrival <= *d.DaysBefore
	}
	return daysUntilArrival >= *d.DaysBefore
}
