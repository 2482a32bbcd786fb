package quote

import (
	"context"
	"time"

	"stayquote/internal/app/dto"
	"stayquote/internal/app/handlers/support"
	"stayquote/internal/app/queries"
	"stayquote/internal/app/uow"
	"stayquote/internal/domain/availability"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/reservation"
)

const checkAvailabilityKey = "availability.check"

type CheckAvailabilityQuery struct {
	PropertyID string `validate:"required"`
	TenantID   string
	From       time.Time
	To         time.Time
	Guests     int `validate:"gte=0"`
	Excluded   []string
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

func (q CheckAvailabilityQuery) TenantScope() (property.ID, property.TenantID) {
	return property.ID(q.PropertyID), property.TenantID(q.TenantID)
}

type CheckAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
	Checker    availability.Checker
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (dto.Availability, error) {
	dr, err := stayRange(q.From, q.To, h.Checker.Now)
	if err != nil {
		return dto.Availability{}, err
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Availability{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	snap, err := support.LoadSnapshot(execCtx, unit, property.ID(q.PropertyID), dr)
	if err != nil {
		return dto.Availability{}, err
	}
	res := h.Checker.Check(snap.Snapshot, availability.Request{
		Range:    dr,
		Guests:   q.Guests,
		Excluded: excludedIDs(q.Excluded),
	})
	return dto.MapAvailability(res), nil
}

var _ queries.Handler[CheckAvailabilityQuery, dto.Availability] = (*CheckAvailabilityHandler)(nil)

// excludedIDs converts raw reservation ids.
func excludedIDs(raw []string) []reservation.ID {
	out := make([]reservation.ID, 0, len(raw))
	for _, id := range raw {
		if id != "" {
			out = append(out, reservation.ID(id))
		}
	}
	return out
}
