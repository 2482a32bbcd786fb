package reservations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stayquote/internal/app/commands"
	"stayquote/internal/app/handlers/support"
	"stayquote/internal/app/policies"
	"stayquote/internal/app/uow"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/reservation"
	"stayquote/internal/domain/shared/daterange"
)

const applyEventKey = "reservations.apply_event"

const (
	EventUpserted = "reservation.upserted"
	EventDeleted  = "reservation.deleted"
)

var (
	ErrUnknownEventType   = errors.New("reservations: unknown event type")
	ErrUnitOfWorkRequired = errors.New("reservations: unit of work required")
)

// Payload is the reservation body published by the booking service.
type Payload struct {
	ID                       string     `json:"id" validate:"required"`
	PropertyID               string     `json:"propertyId" validate:"required"`
	Start                    string     `json:"start"`
	End                      string     `json:"end"`
	Status                   string     `json:"status"`
	RebookAllowedIfCancelled bool       `json:"rebookAllowedIfCancelled"`
	Expiration               *time.Time `json:"expiration,omitempty"`
}

type ApplyEventCommand struct {
	EventID string `validate:"required"`
	Type    string `validate:"required"`
	Payload Payload
}

func (c ApplyEventCommand) Key() string { return applyEventKey }

type ApplyEventResult struct {
	Duplicate bool
	Applied   string
}

type ApplyEventHandler struct {
	UoWFactory uow.UoWFactory
	Inbox      policies.Inbox
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *ApplyEventHandler) Handle(ctx context.Context, cmd ApplyEventCommand) (res *ApplyEventResult, err error) {
	if cmd.Type != EventUpserted && cmd.Type != EventDeleted {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, cmd.Type)
	}
	if h.Inbox != nil {
		seen, seenErr := h.Inbox.Seen(ctx, cmd.EventID)
		if seenErr != nil {
			return nil, seenErr
		}
		if seen {
			return &ApplyEventResult{Duplicate: true}, nil
		}
		if r, ok := h.Inbox.(policies.InboxReleaser); ok {
			defer func() {
				if err != nil {
					_ = r.Release(ctx, cmd.EventID)
				}
			}()
		}
	}
	return h.apply(ctx, cmd)
}

func (h *ApplyEventHandler) apply(ctx context.Context, cmd ApplyEventCommand) (*ApplyEventResult, error) {
	unit, execCtx, managed, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		if errors.Is(err, uow.ErrUnitOfWorkMissing) {
			return nil, ErrUnitOfWorkRequired
		}
		return nil, err
	}
	committed := false
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(execCtx)
			}
		}()
	}

	propertyID := property.ID(cmd.Payload.PropertyID)
	if err := unit.LockProperty(execCtx, propertyID); err != nil {
		return nil, err
	}
	switch cmd.Type {
	case EventUpserted:
		r, err := h.toReservation(cmd.Payload)
		if err != nil {
			return nil, err
		}
		if err := unit.Reservations().Upsert(execCtx, r); err != nil {
			return nil, err
		}
	case EventDeleted:
		err := unit.Reservations().Delete(execCtx, reservation.ID(cmd.Payload.ID))
		if err != nil && !errors.Is(err, reservation.ErrReservationNotFound) {
			return nil, err
		}
	}
	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return nil, err
		}
		committed = true
	}
	if h.Logger != nil {
		h.Logger.Debug("reservation event applied", "event_id", cmd.EventID, "type", cmd.Type, "reservation_id", cmd.Payload.ID)
	}
	return &ApplyEventResult{Applied: cmd.Type}, nil
}

func (h *ApplyEventHandler) toReservation(p Payload) (reservation.Reservation, error) {
	status, err := reservation.ParseStatus(p.Status)
	if err != nil {
		return reservation.Reservation{}, err
	}
	start, err := daterange.ParseDate(p.Start)
	if err != nil {
		return reservation.Reservation{}, err
	}
	end, err := daterange.ParseDate(p.End)
	if err != nil {
		return reservation.Reservation{}, err
	}
	dr, err := daterange.New(start, end)
	if err != nil {
		return reservation.Reservation{}, err
	}
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	return reservation.Reservation{
		ID:                       reservation.ID(p.ID),
		PropertyID:               property.ID(p.PropertyID),
		Range:                    dr,
		Status:                   status,
		RebookAllowedIfCancelled: p.RebookAllowedIfCancelled,
		Expiration:               p.Expiration,
		DateUpdated:              now().UTC(),
	}, nil
}

var _ commands.Handler[ApplyEventCommand, *ApplyEventResult] = (*ApplyEventHandler)(nil)
