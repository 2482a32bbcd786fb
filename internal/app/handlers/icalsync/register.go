package icalsync

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stayquote/internal/app/commands"
	"stayquote/internal/app/dto"
	"stayquote/internal/app/handlers/support"
	"stayquote/internal/app/uow"
	"stayquote/internal/domain/ical"
	"stayquote/internal/domain/property"
)

type RegisterCalendarCommand struct {
	PropertyID      string `validate:"required"`
	TenantID        string
	Name            string `validate:"max=200"`
	URL             string `validate:"required,url"`
	IdempotencyKeyV string
}

func (c RegisterCalendarCommand) Key() string            { return registerCalendarKey }
func (c RegisterCalendarCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (c RegisterCalendarCommand) ResultPrototype() any   { return &dto.ExternalCalendar{} }
func (c RegisterCalendarCommand) TenantScope() (property.ID, property.TenantID) {
	return property.ID(c.PropertyID), property.TenantID(c.TenantID)
}

type RegisterCalendarHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *RegisterCalendarHandler) Handle(ctx context.Context, cmd RegisterCalendarCommand) (*dto.ExternalCalendar, error) {
	unit, execCtx, managed, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
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
	if _, err := unit.Properties().ByID(execCtx, property.ID(cmd.PropertyID)); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if h.Now != nil {
		now = h.Now().UTC()
	}
	cal := ical.ExternalCalendar{
		ID:          ical.CalendarID(uuid.NewString()),
		PropertyID:  property.ID(cmd.PropertyID),
		Name:        cmd.Name,
		URL:         cmd.URL,
		DateUpdated: now,
	}
	if err := unit.Calendars().Save(execCtx, cal); err != nil {
		return nil, err
	}
	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return nil, err
		}
		committed = true
	}
	if h.Logger != nil {
		h.Logger.Info("external calendar registered", "property_id", cmd.PropertyID, "calendar_id", string(cal.ID))
	}
	return &dto.ExternalCalendar{ID: string(cal.ID), PropertyID: cmd.PropertyID, Name: cal.Name, URL: cal.URL}, nil
}

var _ commands.Handler[RegisterCalendarCommand, *dto.ExternalCalendar] = (*RegisterCalendarHandler)(nil)
