package icalsync

import (
	"context"
	"log/slog"
	"time"

	"stayquote/internal/app/handlers/support"
	"stayquote/internal/app/policies"
	"stayquote/internal/app/uow"
	"stayquote/internal/domain/ical"
	"stayquote/internal/domain/property"
)

// Refresher re-imports calendars whose last sync is older than Interval.
type Refresher struct {
	Syncer     *Syncer
	UoWFactory uow.UoWFactory
	Interval   time.Duration
	Logger     *slog.Logger
}

// RefreshStale syncs the stale calendars of one property.
func (r *Refresher) RefreshStale(ctx context.Context, propertyID string) {
	cals, err := r.calendars(ctx, func(ctx context.Context, unit uow.UnitOfWork) ([]ical.ExternalCalendar, error) {
		return unit.Calendars().ListByProperty(ctx, property.ID(propertyID))
	})
	if err != nil {
		r.log("list external calendars failed", "property_id", propertyID, "error", err)
		return
	}
	r.refresh(ctx, cals)
}

// RefreshAll syncs every stale calendar. Scheduled every Interval.
func (r *Refresher) RefreshAll(ctx context.Context) error {
	cals, err := r.calendars(ctx, func(ctx context.Context, unit uow.UnitOfWork) ([]ical.ExternalCalendar, error) {
		return unit.Calendars().List(ctx)
	})
	if err != nil {
		return err
	}
	r.refresh(ctx, cals)
	return nil
}

func (r *Refresher) refresh(ctx context.Context, cals []ical.ExternalCalendar) {
	for _, cal := range cals {
		if ctx.Err() != nil {
			return
		}
		if !r.stale(ctx, cal.ID) {
			continue
		}
		// own unit per calendar so one failure does not roll back the others
		if _, err := r.Syncer.Sync(context.WithoutCancel(ctx), cal.PropertyID, cal.ID); err != nil {
			r.log("external calendar refresh failed", "calendar_id", string(cal.ID), "error", err)
		}
	}
}

func (r *Refresher) stale(ctx context.Context, id ical.CalendarID) bool {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, r.UoWFactory)
	if err != nil {
		return true
	}
	if cleanup != nil {
		defer cleanup()
	}
	last, err := unit.SyncLogs().Latest(execCtx, id)
	if err != nil || last == nil {
		return true
	}
	return r.Syncer.now().Sub(last.At) >= r.interval()
}

func (r *Refresher) calendars(ctx context.Context, list func(context.Context, uow.UnitOfWork) ([]ical.ExternalCalendar, error)) ([]ical.ExternalCalendar, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, r.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	return list(execCtx, unit)
}

func (r *Refresher) interval() time.Duration {
	if r.Interval > 0 {
		return r.Interval
	}
	return DefaultRefreshInterval
}

func (r *Refresher) log(msg string, args ...any) {
	if r.Logger != nil {
		r.Logger.Warn(msg, args...)
	}
}

var _ policies.CalendarRefresher = (*Refresher)(nil)
