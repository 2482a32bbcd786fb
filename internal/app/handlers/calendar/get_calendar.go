package calendar

import (
	"context"
	"errors"
	"time"

	"stayquote/internal/app/dto"
	"stayquote/internal/app/handlers/support"
	"stayquote/internal/app/queries"
	"stayquote/internal/app/uow"
	domaincalendar "stayquote/internal/domain/calendar"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/shared/daterange"
)

const getCalendarKey = "calendar.get"

var ErrInvalidCount = errors.New("calendar: count must not be negative")

type GetCalendarQuery struct {
	PropertyID string `validate:"required"`
	TenantID   string
	From       time.Time
	Count      int
}

func (q GetCalendarQuery) Key() string { return getCalendarKey }

func (q GetCalendarQuery) TenantScope() (property.ID, property.TenantID) {
	return property.ID(q.PropertyID), property.TenantID(q.TenantID)
}

type GetCalendarHandler struct {
	UoWFactory uow.UoWFactory
	Projector  domaincalendar.Projector
	MaxDays    int
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	if q.Count < 0 {
		return dto.Calendar{}, ErrInvalidCount
	}
	count := q.Count
	if count == 0 {
		count = domaincalendar.DefaultCount
	}
	if h.MaxDays > 0 && count > h.MaxDays {
		count = h.MaxDays
	}
	from := q.From
	if from.IsZero() {
		now := time.Now
		if h.Projector.Checker.Now != nil {
			now = h.Projector.Checker.Now
		}
		from = now()
	}
	in := domaincalendar.Input{From: daterange.Truncate(from), Count: count}

	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Calendar{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	snap, err := support.LoadSnapshot(execCtx, unit, property.ID(q.PropertyID), in.Window())
	if err != nil {
		return dto.Calendar{}, err
	}
	in.Snapshot = snap.Snapshot
	in.Rates = snap.Rates
	return dto.MapCalendar(h.Projector.Project(in)), nil
}

var _ queries.Handler[GetCalendarQuery, dto.Calendar] = (*GetCalendarHandler)(nil)
