package property

import (
	"context"
	"errors"
	"strings"
	"time"

	"stayquote/internal/domain/shared/money"
)

var (
	ErrPropertyNotFound = errors.New("property: not found")
	ErrForbidden        = errors.New("property: tenant mismatch")
	ErrIDRequired       = errors.New("property: id is required")
	ErrInvalidStatus    = errors.New("property: invalid status")
)

type ID string
type TenantID string

type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
	StatusDraft    Status = "draft"
)

func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusActive:
		return StatusActive, nil
	case StatusDisabled:
		return StatusDisabled, nil
	case StatusDraft, "":
		return StatusDraft, nil
	default:
		return "", ErrInvalidStatus
	}
}

// AvailabilitySettings are the defaults used when no availability frame covers a stay.
type AvailabilitySettings struct {
	MaxGuests             int
	AdvanceBookableMonths int
	MinStay               int
	MaxStay               int
	AdvanceNotice         int
	Preparation           int
}

// PricingSettings hold the property-wide money defaults. Amounts are minor units.
type PricingSettings struct {
	Currency       string
	NightlyDefault int64
	WeekendDefault int64
	IncludedGuests int
	ExtraPersonFee int64
}

// CurrencyCode returns the configured currency, USD when unset.
func (p PricingSettings) CurrencyCode() string {
	return money.NormalizeCurrency(p.Currency)
}

// Property is the read-only snapshot the engine consults. Settings are owned values, never back-pointers.
type Property struct {
	ID           ID
	Tenant       TenantID
	Name         string
	Status       Status
	Availability AvailabilitySettings
	Pricing      PricingSettings
	Fees         []AdditionalFee
	Discounts    []Discount
	DateUpdated  time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Property, error)
	Save(ctx context.Context, p *Property) error
}

func (p *Property) Validate() error {
	if strings.TrimSpace(string(p.ID)) == "" {
		return ErrIDRequired
	}
	if _, err := ParseStatus(string(p.Status)); err != nil {
		return err
	}
	for _, fee := range p.Fees {
		if err := fee.Validate(); err != nil {
			return err
		}
	}
	for _, d := range p.Discounts {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Property) IsActive() bool {
	return p.Status == StatusActive
}

// Authorize rejects callers from another tenant. An empty caller tenant is trusted.
func (p *Property) Authorize(tenant TenantID) error {
	if tenant == "" || p.Tenant == "" {
		return nil
	}
	if p.Tenant != tenant {
		return ErrForbidden
	}
	return nil
}

// Copy returns a snapshot that shares no slices with the receiver.
func (p *Property) Copy() *Property {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Fees = append([]AdditionalFee(nil), p.Fees...)
	clone.Discounts = make([]Discount, len(p.Discounts))
	for i, d := range p.Discounts {
		clone.Discounts[i] = d
		if d.DaysBefore != nil {
			v := *d.DaysBefore
			clone.Discounts[i].DaysBefore = &v
		}
	}
	return &clone
}
