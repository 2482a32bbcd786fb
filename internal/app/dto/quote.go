package dto

import (
	"stayquote/internal/domain/availability"
	"stayquote/internal/domain/pricing"
	"stayquote/internal/domain/shared/daterange"
)

type Conflict struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type QuoteRate struct {
	Amount          string `json:"amount"`
	AmountFormatted string `json:"amountFormatted"`
	Duration        int    `json:"duration"`
}

type QuoteFee struct {
	FeeTaxType      string `json:"feeTaxType"`
	Name            string `json:"name"`
	Amount          string `json:"amount"`
	AmountFormatted string `json:"amountFormatted"`
	Refundable      bool   `json:"refundable"`
	Optional        bool   `json:"optional"`
	Taxable         bool   `json:"taxable"`
}

type QuoteDiscount struct {
	DiscountType    string `json:"discountType"`
	Name            string `json:"name,omitempty"`
	Amount          string `json:"amount"`
	AmountFormatted string `json:"amountFormatted"`
	Optional        bool   `json:"optional"`
}

// Quote is the quote response. Price fields are empty when the price is withheld.
type Quote struct {
	Available           bool            `json:"available"`
	ArrivalDate         string          `json:"arrivalDate"`
	DepartureDate       string          `json:"departureDate"`
	Nights              int             `json:"nights"`
	Currency            string          `json:"currency"`
	TotalPrice          string          `json:"totalPrice,omitempty"`
	TotalPriceFormatted string          `json:"totalPriceFormatted,omitempty"`
	BaseTotal           string          `json:"baseTotal,omitempty"`
	NightlyPrice        string          `json:"nightlyPrice,omitempty"`
	Rate                *QuoteRate      `json:"rate,omitempty"`
	Fees                []QuoteFee      `json:"fees,omitempty"`
	Discounts           []QuoteDiscount `json:"discounts,omitempty"`
	Adults              int             `json:"adults"`
	Children            int             `json:"children"`
	Pets                int             `json:"pets"`
	Conflicts           []Conflict      `json:"conflicts,omitempty"`
	RateMissing         bool            `json:"-"`
}

func MapConflicts(conflicts []availability.Conflict) []Conflict {
	if len(conflicts) == 0 {
		return nil
	}
	out := make([]Conflict, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, Conflict{Code: string(c), Message: c.Message()})
	}
	return out
}

func MapQuote(q pricing.Quote) Quote {
	out := Quote{
		Available:     q.Available(),
		ArrivalDate:   daterange.Format(q.Range.CheckIn),
		DepartureDate: daterange.Format(q.Range.CheckOut),
		Nights:        q.Nights,
		Currency:      q.Currency,
		Adults:        q.Occupancy.Adults,
		Children:      q.Occupancy.Children,
		Pets:          q.Occupancy.Pets,
		Conflicts:     MapConflicts(q.Availability.Conflicts),
		RateMissing:   q.RateMissing,
	}
	p := q.Price
	if p == nil {
		return out
	}
	out.TotalPrice = p.Total.String()
	out.TotalPriceFormatted = p.Total.Format()
	out.BaseTotal = p.BaseTotal.String()
	out.NightlyPrice = p.NightlyAverage.String()
	out.Rate = &QuoteRate{
		Amount:          p.BaseTotal.String(),
		AmountFormatted: p.BaseTotal.Format(),
		Duration:        p.Nights,
	}
	out.Fees = make([]QuoteFee, 0, len(p.Fees))
	for _, f := range p.Fees {
		out.Fees = append(out.Fees, QuoteFee{
			FeeTaxType:      f.FeeTaxType,
			Name:            f.Name,
			Amount:          f.Amount.String(),
			AmountFormatted: f.Amount.Format(),
			Refundable:      f.Refundable,
			Optional:        f.Optional,
			Taxable:         f.Taxable,
		})
	}
	out.Discounts = make([]QuoteDiscount, 0, len(p.Discounts))
	for _, d := range p.Discounts {
		out.Discounts = append(out.Discounts, QuoteDiscount{
			DiscountType:    d.DiscountType,
			Name:            d.Name,
			Amount:          d.Amount.String(),
			AmountFormatted: d.Amount.Format(),
			Optional:        d.Optional,
		})
	}
	return out
}
