package pricing

import (
	"errors"

	"stayquote/internal/domain/property"
	"stayquote/internal/domain/shared/money"
)

var ErrCurrencyUnset = errors.New("pricing: currency must be defined")

type FeeLine struct {
	Name       string
	FeeTaxType string
	Kind       property.FeeKind
	Method     property.CalculationMethod
	Amount     money.Money
	Refundable bool
	Optional   bool
	Taxable    bool
}

type DiscountLine struct {
	Name         string
	DiscountType string
	Amount       money.Money
	Optional     bool
}

// PriceBreakdown is the itemized price of a stay. Discount amounts are positive.
type PriceBreakdown struct {
	Currency       string
	Nights         int
	Visits         []Visit
	BaseTotal      money.Money
	NightlyAverage money.Money
	Fees           []FeeLine
	Discounts      []DiscountLine
	Total          money.Money
}

// RecalculateTotal sets Total to base plus fees minus discounts, never below
// zero. Every line must be in the breakdown currency.
func (p *PriceBreakdown) RecalculateTotal() error {
	if p.Currency == "" {
		return ErrCurrencyUnset
	}
	fees, err := p.FeesTotal()
	if err != nil {
		return err
	}
	discounts, err := p.DiscountsTotal()
	if err != nil {
		return err
	}
	total, err := money.Total(p.Currency, p.BaseTotal, fees)
	if err != nil {
		return err
	}
	if total, err = total.Sub(discounts); err != nil {
		return err
	}
	p.Total = total.ClampZero()
	return nil
}

func (p PriceBreakdown) FeesTotal() (money.Money, error) {
	amounts := make([]money.Money, 0, len(p.Fees))
	for _, fee := range p.Fees {
		amounts = append(amounts, fee.Amount)
	}
	return money.Total(p.Currency, amounts...)
}

func (p PriceBreakdown) DiscountsTotal() (money.Money, error) {
	amounts := make([]money.Money, 0, len(p.Discounts))
	for _, d := range p.Discounts {
		amounts = append(amounts, d.Amount)
	}
	return money.Total(p.Currency, amounts...)
}

func (p PriceBreakdown) Copy() PriceBreakdown {
	clone := p
	clone.Visits = append([]Visit(nil), p.Visits...)
	clone.Fees = append([]FeeLine(nil), p.Fees...)
	clone.Discounts = append([]DiscountLine(nil), p.Discounts...)
	return clone
}
