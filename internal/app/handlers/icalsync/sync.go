package icalsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stayquote/internal/app/commands"
	"stayquote/internal/app/dto"
	"stayquote/internal/app/handlers/support"
	"stayquote/internal/app/outbox"
	"stayquote/internal/app/policies"
	"stayquote/internal/app/uow"
	"stayquote/internal/domain/ical"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/shared/events"
)

const (
	syncCalendarKey     = "ical.sync"
	registerCalendarKey = "ical.register"

	DefaultRefreshInterval = 3 * time.Hour
)

var ErrUnitOfWorkRequired = errors.New("icalsync: unit of work required")

type SyncCalendarCommand struct {
	PropertyID string `validate:"required"`
	TenantID   string
	CalendarID string `validate:"required"`
}

func (c SyncCalendarCommand) Key() string { return syncCalendarKey }

// OwnsUnitOfWork keeps the command bus from wrapping the feed download in a
// transaction; Sync opens its own unit once the body is parsed.
func (c SyncCalendarCommand) OwnsUnitOfWork() bool { return true }
func (c SyncCalendarCommand) TenantScope() (property.ID, property.TenantID) {
	return property.ID(c.PropertyID), property.TenantID(c.TenantID)
}

// Syncer imports external calendars into the event index.
type Syncer struct {
	UoWFactory uow.UoWFactory
	Fetcher    policies.ICalFetcher
	Archive    policies.RawBodyStore
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}

type SyncCalendarHandler struct {
	Syncer *Syncer
}

func (h *SyncCalendarHandler) Handle(ctx context.Context, cmd SyncCalendarCommand) (*dto.CalendarSync, error) {
	return h.Syncer.Sync(ctx, property.ID(cmd.PropertyID), ical.CalendarID(cmd.CalendarID))
}

// Sync fetches one calendar and reconciles its events. A failed fetch or parse
// is recorded in the sync log and the last archived body is used instead.
// The feed is downloaded before the write unit opens.
func (s *Syncer) Sync(ctx context.Context, propertyID property.ID, id ical.CalendarID) (*dto.CalendarSync, error) {
	cal, err := s.calendar(ctx, propertyID, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	raws, failure := s.download(ctx, *cal)
	if failure != nil {
		raws = s.fallback(ctx, *cal)
	}

	unit, execCtx, managed, err := support.BeginWriteUnit(ctx, s.UoWFactory)
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

	existing, err := unit.CalendarEvents().ListByCalendar(execCtx, id)
	if err != nil {
		return nil, err
	}

	result := &dto.CalendarSync{CalendarID: string(id), Success: failure == nil, Events: len(existing), SyncedAt: now}
	if failure != nil {
		result.Error = failure.Error()
	}
	if raws != nil {
		diff, skipped := ical.Populate(*cal, existing, raws, now)
		for _, e := range skipped {
			s.warn("ical event skipped", *cal, e)
		}
		if !diff.Empty() {
			if err := unit.CalendarEvents().Apply(execCtx, id, diff); err != nil {
				return nil, err
			}
		}
		result.Inserted, result.Updated, result.Deleted = len(diff.Inserted), len(diff.Updated), len(diff.Deleted)
		if failure == nil {
			result.Events = len(diff.Apply(existing))
		}
	}

	if err := unit.SyncLogs().Append(execCtx, ical.SyncLog{
		CalendarID: id,
		Success:    result.Success,
		Events:     result.Events,
		Error:      result.Error,
		At:         now,
	}); err != nil {
		return nil, err
	}

	var recorder events.EventRecorder
	recorder.Record(ical.CalendarSynced{
		CalendarID: string(id),
		PropertyID: string(cal.PropertyID),
		Success:    result.Success,
		Inserted:   result.Inserted,
		Updated:    result.Updated,
		Deleted:    result.Deleted,
		At:         now,
	})
	if err := outbox.RecordDomainEvents(execCtx, s.Outbox, s.encoder(), recorder.Drain()); err != nil {
		return nil, err
	}
	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return nil, err
		}
		committed = true
	}
	if s.Logger != nil {
		s.Logger.Info("external calendar synced",
			"calendar_id", string(id),
			"property_id", string(cal.PropertyID),
			"success", result.Success,
			"inserted", result.Inserted,
			"updated", result.Updated,
			"deleted", result.Deleted)
	}
	return result, nil
}

func (s *Syncer) calendar(ctx context.Context, propertyID property.ID, id ical.CalendarID) (*ical.ExternalCalendar, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, s.UoWFactory)
	if err != nil {
		if errors.Is(err, uow.ErrUnitOfWorkMissing) {
			return nil, ErrUnitOfWorkRequired
		}
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	cal, err := unit.Calendars().ByID(execCtx, id)
	if err != nil {
		return nil, err
	}
	if propertyID != "" && cal.PropertyID != propertyID {
		return nil, ical.ErrCalendarNotFound
	}
	return cal, nil
}

// download fetches and parses the body, archiving it once it parses.
func (s *Syncer) download(ctx context.Context, cal ical.ExternalCalendar) ([]ical.RawEvent, error) {
	if s.Fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher configured", ical.ErrFetch)
	}
	body, err := s.Fetcher.Fetch(ctx, cal.URL)
	if err != nil {
		if !errors.Is(err, ical.ErrFetch) {
			err = fmt.Errorf("%w: %v", ical.ErrFetch, err)
		}
		s.warn("ical fetch failed", cal, err)
		return nil, err
	}
	raws, err := ical.Parse(body)
	if err != nil {
		s.warn("ical parse failed", cal, err)
		return nil, err
	}
	if s.Archive != nil {
		if err := s.Archive.Put(ctx, string(cal.ID), body); err != nil {
			s.warn("ical archive failed", cal, err)
		}
	}
	return raws, nil
}

// fallback parses the last archived body, or returns nil when there is none.
func (s *Syncer) fallback(ctx context.Context, cal ical.ExternalCalendar) []ical.RawEvent {
	if s.Archive == nil {
		return nil
	}
	body, ok, err := s.Archive.Latest(ctx, string(cal.ID))
	if err != nil {
		s.warn("ical archive read failed", cal, err)
		return nil
	}
	if !ok {
		return nil
	}
	raws, err := ical.Parse(body)
	if err != nil {
		s.warn("archived ical body unreadable", cal, err)
		return nil
	}
	return raws
}

func (s *Syncer) warn(msg string, cal ical.ExternalCalendar, err error) {
	if s.Logger == nil {
		return
	}
	s.Logger.Warn(msg, "calendar_id", string(cal.ID), "url", cal.URL, "error", err)
}

func (s *Syncer) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Syncer) encoder() outbox.EventEncoder {
	if s.Encoder != nil {
		return s.Encoder
	}
	return outbox.JSONEventEncoder{IDGenerator: uuid.NewString}
}

var _ commands.Handler[SyncCalendarCommand, *dto.CalendarSync] = (*SyncCalendarHandler)(nil)
