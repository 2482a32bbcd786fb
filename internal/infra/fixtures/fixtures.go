// Package fixtures loads demo properties and their collections from JSON.
package fixtures

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"stayquote/internal/app/uow"
	"stayquote/internal/domain/availability"
	"stayquote/internal/domain/ical"
	"stayquote/internal/domain/pricing"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/reservation"
	"stayquote/internal/domain/shared/daterange"
	"stayquote/internal/domain/shared/money"
	"stayquote/internal/domain/timeframe"
)

var ErrEmpty = errors.New("fixtures: file is empty")

// File is the JSON document. Amounts are major units; dates are YYYY-MM-DD and
// an empty bound is open.
type File struct {
	Properties []Property `json:"properties"`
}

type Property struct {
	ID           string       `json:"id"`
	Tenant       string       `json:"tenant"`
	Name         string       `json:"name"`
	Status       string       `json:"status"`
	Availability Availability `json:"availability"`
	Pricing      Pricing      `json:"pricing"`
	Fees         []Fee        `json:"fees"`
	Discounts    []Discount   `json:"discounts"`
	Rates        []Rate       `json:"rates"`
	StayRules    []StayRule   `json:"stayRules"`
	TurnDays     []TurnDays   `json:"turnDays"`
	Blockings    []Blocking   `json:"blockings"`
	Reservations []Booking    `json:"reservations"`
	Calendars    []Calendar   `json:"calendars"`
}

type Availability struct {
	MaxGuests             int `json:"maxGuests"`
	AdvanceBookableMonths int `json:"advanceBookableMonths"`
	MinStay               int `json:"minStay"`
	MaxStay               int `json:"maxStay"`
	AdvanceNotice         int `json:"advanceNotice"`
	Preparation           int `json:"preparation"`
}

type Pricing struct {
	Currency       string  `json:"currency"`
	NightlyDefault float64 `json:"nightlyDefault"`
	WeekendDefault float64 `json:"weekendDefault"`
	IncludedGuests int     `json:"includedGuests"`
	ExtraPersonFee float64 `json:"extraPersonFee"`
}

type Fee struct {
	Name              string  `json:"name"`
	Value             float64 `json:"value"`
	Kind              string  `json:"kind"`
	FeeTaxType        string  `json:"feeTaxType"`
	Optional          bool    `json:"optional"`
	Refundable        bool    `json:"refundable"`
	Taxable           bool    `json:"taxable"`
	CalculationMethod string  `json:"calculationMethod"`
}

type Discount struct {
	Name              string  `json:"name"`
	Value             float64 `json:"value"`
	IsPercentage      bool    `json:"isPercentage"`
	DiscountType      string  `json:"discountType"`
	CalculationMethod string  `json:"calculationMethod"`
	DaysBefore        *int    `json:"daysBefore"`
	Optional          bool    `json:"optional"`
}

type Bounds struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Rate struct {
	Bounds
	Name           string  `json:"name"`
	Nightly        float64 `json:"nightly"`
	Weekend        float64 `json:"weekend"`
	Weekly         float64 `json:"weekly"`
	Monthly        float64 `json:"monthly"`
	ExtraPersonFee float64 `json:"extraPersonFee"`
	Seasonal       bool    `json:"seasonal"`
}

type StayRule struct {
	Bounds
	MinStay       int `json:"minStay"`
	MaxStay       int `json:"maxStay"`
	AdvanceNotice int `json:"advanceNotice"`
	Preparation   int `json:"preparation"`
}

type TurnDays struct {
	Bounds
	Weekdays []int `json:"weekdays"`
}

type Blocking struct {
	Bounds
	ID   string `json:"id"`
	Note string `json:"note"`
}

type Booking struct {
	ID                       string     `json:"id"`
	Start                    string     `json:"start"`
	End                      string     `json:"end"`
	Status                   string     `json:"status"`
	RebookAllowedIfCancelled bool       `json:"rebookAllowedIfCancelled"`
	Expiration               *time.Time `json:"expiration"`
}

type Calendar struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Read decodes a fixture file.
func Read(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return f, ErrEmpty
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("decode fixtures: %w", err)
	}
	return f, nil
}

// Seed writes every property of f through one unit of work.
func Seed(ctx context.Context, factory uow.UoWFactory, f File, now time.Time) error {
	unit, execCtx, err := uow.Begin(ctx, factory, uow.TxOptions{})
	if err != nil {
		return err
	}
	for _, p := range f.Properties {
		if err := seedProperty(execCtx, unit, p, now); err != nil {
			_ = unit.Rollback(execCtx)
			return fmt.Errorf("property %s: %w", p.ID, err)
		}
	}
	return unit.Commit(execCtx)
}

func seedProperty(ctx context.Context, unit uow.UnitOfWork, fx Property, now time.Time) error {
	p, err := fx.Domain(now)
	if err != nil {
		return err
	}
	if err := unit.Properties().Save(ctx, p); err != nil {
		return err
	}
	if err := unit.LockProperty(ctx, p.ID); err != nil {
		return err
	}
	currency := p.Pricing.CurrencyCode()

	for _, r := range fx.Rates {
		rate := pricing.Rate{
			Name:           r.Name,
			Nightly:        minor(r.Nightly, currency),
			Weekend:        minor(r.Weekend, currency),
			Weekly:         minor(r.Weekly, currency),
			Monthly:        minor(r.Monthly, currency),
			ExtraPersonFee: minor(r.ExtraPersonFee, currency),
			Seasonal:       r.Seasonal,
		}
		if err := rate.Validate(); err != nil {
			return err
		}
		if err := insertFrame(ctx, unit.Rates(), p.ID, r.Bounds, rate, now); err != nil {
			return err
		}
	}
	for _, s := range fx.StayRules {
		rule := availability.StayRule{MinStay: s.MinStay, MaxStay: s.MaxStay, AdvanceNotice: s.AdvanceNotice, Preparation: s.Preparation}
		if err := rule.Validate(); err != nil {
			return err
		}
		if err := insertFrame(ctx, unit.StayRules(), p.ID, s.Bounds, rule, now); err != nil {
			return err
		}
	}
	for _, t := range fx.TurnDays {
		days, err := availability.NewTurnDays(t.Weekdays...)
		if err != nil {
			return err
		}
		if err := insertFrame(ctx, unit.TurnDays(), p.ID, t.Bounds, days, now); err != nil {
			return err
		}
	}
	for _, b := range fx.Blockings {
		span, err := b.Span()
		if err != nil {
			return err
		}
		id := b.ID
		if id == "" {
			id = uuid.NewString()
		}
		if err := unit.Blockings().Add(ctx, availability.Blocking{ID: id, PropertyID: p.ID, Span: span, Note: b.Note, DateUpdated: now}); err != nil {
			return err
		}
	}
	for _, r := range fx.Reservations {
		res, err := r.Domain(p.ID, now)
		if err != nil {
			return err
		}
		if err := unit.Reservations().Upsert(ctx, res); err != nil {
			return err
		}
	}
	for _, c := range fx.Calendars {
		if err := unit.Calendars().Save(ctx, ical.ExternalCalendar{
			ID:          ical.CalendarID(c.ID),
			PropertyID:  p.ID,
			Name:        c.Name,
			URL:         c.URL,
			DateUpdated: now,
		}); err != nil {
			return err
		}
	}
	return nil
}

func insertFrame[T any](ctx context.Context, store timeframe.Store[T], id property.ID, b Bounds, payload T, now time.Time) error {
	span, err := b.Span()
	if err != nil {
		return err
	}
	existing, err := store.ListByProperty(ctx, id)
	if err != nil {
		return err
	}
	frame := timeframe.Frame[T]{ID: uuid.NewString(), PropertyID: id, Span: span, Payload: payload}
	return store.Apply(ctx, id, timeframe.Plan(existing, frame, uuid.NewString, now))
}

// Domain converts the fixture into a property snapshot.
func (fx Property) Domain(now time.Time) (*property.Property, error) {
	status, err := property.ParseStatus(fx.Status)
	if err != nil {
		return nil, err
	}
	currency := money.NormalizeCurrency(fx.Pricing.Currency)
	p := &property.Property{
		ID:     property.ID(fx.ID),
		Tenant: property.TenantID(fx.Tenant),
		Name:   fx.Name,
		Status: status,
		Availability: property.AvailabilitySettings{
			MaxGuests:             fx.Availability.MaxGuests,
			AdvanceBookableMonths: fx.Availability.AdvanceBookableMonths,
			MinStay:               fx.Availability.MinStay,
			MaxStay:               fx.Availability.MaxStay,
			AdvanceNotice:         fx.Availability.AdvanceNotice,
			Preparation:           fx.Availability.Preparation,
		},
		Pricing: property.PricingSettings{
			Currency:       currency,
			NightlyDefault: minor(fx.Pricing.NightlyDefault, currency),
			WeekendDefault: minor(fx.Pricing.WeekendDefault, currency),
			IncludedGuests: fx.Pricing.IncludedGuests,
			ExtraPersonFee: minor(fx.Pricing.ExtraPersonFee, currency),
		},
		DateUpdated: now,
	}
	for i, f := range fx.Fees {
		method := property.CalculationMethod(f.CalculationMethod)
		p.Fees = append(p.Fees, property.AdditionalFee{
			ID:                fmt.Sprintf("%s-fee-%d", fx.ID, i+1),
			Name:              f.Name,
			Value:             f.Value,
			Kind:              property.FeeKind(f.Kind),
			FeeTaxType:        f.FeeTaxType,
			Optional:          f.Optional,
			Refundable:        f.Refundable,
			Taxable:           f.Taxable,
			CalculationMethod: method,
			IsPercentage:      method.Percentage(),
		})
	}
	for i, d := range fx.Discounts {
		p.Discounts = append(p.Discounts, property.Discount{
			ID:                fmt.Sprintf("%s-discount-%d", fx.ID, i+1),
			Name:              d.Name,
			Value:             d.Value,
			IsPercentage:      d.IsPercentage,
			DiscountType:      d.DiscountType,
			CalculationMethod: property.CalculationMethod(d.CalculationMethod),
			DaysBefore:        d.DaysBefore,
			Optional:          d.Optional,
		})
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Domain converts the fixture reservation.
func (b Booking) Domain(propertyID property.ID, now time.Time) (reservation.Reservation, error) {
	status, err := reservation.ParseStatus(b.Status)
	if err != nil {
		return reservation.Reservation{}, err
	}
	start, err := daterange.ParseDate(b.Start)
	if err != nil {
		return reservation.Reservation{}, err
	}
	end, err := daterange.ParseDate(b.End)
	if err != nil {
		return reservation.Reservation{}, err
	}
	dr, err := daterange.New(start, end)
	if err != nil {
		return reservation.Reservation{}, err
	}
	return reservation.Reservation{
		ID:                       reservation.ID(b.ID),
		PropertyID:               propertyID,
		Range:                    dr,
		Status:                   status,
		RebookAllowedIfCancelled: b.RebookAllowedIfCancelled,
		Expiration:               b.Expiration,
		DateUpdated:              now,
	}, nil
}

// Span parses half-open bounds; blank sides are open.
func (b Bounds) Span() (daterange.Span, error) {
	var lower, upper time.Time
	var err error
	if strings.TrimSpace(b.From) != "" {
		if lower, err = daterange.ParseDate(b.From); err != nil {
			return daterange.Span{}, err
		}
	}
	if strings.TrimSpace(b.To) != "" {
		if upper, err = daterange.ParseDate(b.To); err != nil {
			return daterange.Span{}, err
		}
	}
	return daterange.NewSpan(lower, upper)
}

func minor(major float64, currency string) int64 {
	return money.FromMajor(major, currency).Amount
}
