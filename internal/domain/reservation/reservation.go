package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stayquote/internal/domain/property"
	"stayquote/internal/domain/shared/daterange"
)

var (
	ErrReservationNotFound = errors.New("reservation: not found")
	ErrInvalidStatus       = errors.New("reservation: invalid status")
)

type ID string

type Status string

const (
	StatusInquiry        Status = "inquiry"
	StatusInquiryBlocked Status = "inquiryBlocked"
	StatusRequest        Status = "request"
	StatusAccepted       Status = "accepted"
	StatusCancelled      Status = "cancelled"
	StatusDeclined       Status = "declined"
)

func ParseStatus(raw string) (Status, error) {
	for _, s := range []Status{StatusInquiry, StatusInquiryBlocked, StatusRequest, StatusAccepted, StatusCancelled, StatusDeclined} {
		if strings.EqualFold(string(s), strings.TrimSpace(raw)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// Reservation is a stay held against a property. Range is half-open.
type Reservation struct {
	ID                       ID
	PropertyID               property.ID
	Range                    daterange.DateRange
	Status                   Status
	RebookAllowedIfCancelled bool
	Expiration               *time.Time
	DateUpdated              time.Time
}

// IsInquiryExpired reports whether the hold has lapsed.
func (r Reservation) IsInquiryExpired(now time.Time) bool {
	return r.Expiration != nil && r.Expiration.Before(now)
}

// Holds reports whether the status keeps the dates unavailable, ignoring expiry.
func (r Reservation) Holds() bool {
	switch r.Status {
	case StatusAccepted, StatusInquiryBlocked:
		return true
	case StatusCancelled:
		return !r.RebookAllowedIfCancelled
	}
	return false
}

// IsBlocking reports whether r makes any part of dr unavailable at now.
// Expiry only lifts inquiry holds; a cancellation without rebook stays blocking.
func (r Reservation) IsBlocking(dr daterange.DateRange, now time.Time) bool {
	if !r.Holds() || !r.Range.Overlaps(dr) {
		return false
	}
	if r.isInquiry() && r.IsInquiryExpired(now) {
		return false
	}
	return true
}

func (r Reservation) isInquiry() bool {
	return r.Status == StatusInquiry || r.Status == StatusInquiryBlocked
}

// Ledger is the per-property reservation store consulted by availability.
type Ledger interface {
	// Overlapping excludes declined reservations and plain inquiries.
	Overlapping(ctx context.Context, propertyID property.ID, dr daterange.DateRange) ([]Reservation, error)
	ByID(ctx context.Context, id ID) (*Reservation, error)
	Upsert(ctx context.Context, r Reservation) error
	Delete(ctx context.Context, id ID) error
}

// Relevant is the status filter shared by ledger implementations.
func Relevant(r Reservation) bool {
	return r.Status != StatusDeclined && r.Status != StatusInquiry
}

// Overlapping applies the ledger query to an in-memory slice.
func Overlapping(all []Reservation, propertyID property.ID, dr daterange.DateRange) []Reservation {
	var out []Reservation
	for _, r := range all {
		if r.PropertyID == propertyID && Relevant(r) && r.Range.Overlaps(dr) {
			out = append(out, r)
		}
	}
	return out
}
