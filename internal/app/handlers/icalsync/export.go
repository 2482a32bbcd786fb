package icalsync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stayquote/internal/app/dto"
	"stayquote/internal/app/handlers/support"
	"stayquote/internal/app/policies"
	"stayquote/internal/app/queries"
	"stayquote/internal/app/uow"
	"stayquote/internal/domain/ical"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/shared/daterange"
)

const (
	exportCalendarKey = "ical.export"

	// DefaultExportHorizonDays bounds open blockings in the exported feed.
	DefaultExportHorizonDays = 730
	DefaultExportDomain      = "stayquote.local"

	reservedSummary = "Reserved"
	blockedSummary  = "Blocked"
)

type ExportCalendarQuery struct {
	PropertyID string `validate:"required"`
	TenantID   string
	Merge      bool
}

func (q ExportCalendarQuery) Key() string { return exportCalendarKey }
func (q ExportCalendarQuery) TenantScope() (property.ID, property.TenantID) {
	return property.ID(q.PropertyID), property.TenantID(q.TenantID)
}

// ExportCalendarHandler renders the property's own busy periods as iCal.
type ExportCalendarHandler struct {
	UoWFactory  uow.UoWFactory
	Cache       policies.ExportCache
	TTL         time.Duration
	Domain      string
	HorizonDays int
	Logger      *slog.Logger
	Now         func() time.Time
}

func (h *ExportCalendarHandler) Handle(ctx context.Context, q ExportCalendarQuery) (dto.CalendarExport, error) {
	now := time.Now().UTC()
	if h.Now != nil {
		now = h.Now().UTC()
	}
	today := daterange.Truncate(now)
	horizon := h.HorizonDays
	if horizon <= 0 {
		horizon = DefaultExportHorizonDays
	}
	window := daterange.DateRange{CheckIn: today, CheckOut: today.AddDate(0, 0, horizon)}

	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.CalendarExport{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	snap, err := support.LoadSnapshot(execCtx, unit, property.ID(q.PropertyID), window)
	if err != nil {
		return dto.CalendarExport{}, err
	}

	busy, latest := BusyPeriods(snap, window, now)
	out := dto.CalendarExport{Filename: q.PropertyID + ".ics"}
	key := fmt.Sprintf("ical-export:%s:%t:%d", q.PropertyID, q.Merge, latest.UnixNano())
	if h.Cache != nil {
		body, ok, err := h.Cache.Get(execCtx, key)
		if err != nil && h.Logger != nil {
			h.Logger.Warn("export cache read failed", "property_id", q.PropertyID, "error", err)
		}
		if ok {
			out.Body, out.Cached = body, true
			return out, nil
		}
	}

	domain := h.Domain
	if domain == "" {
		domain = DefaultExportDomain
	}
	stamp := latest
	if stamp.IsZero() {
		stamp = today
	}
	out.Body = []byte(ical.Export(busy, ical.ExportOptions{
		PropertyID: snap.Property.ID,
		Name:       snap.Property.Name,
		Domain:     domain,
		Merge:      q.Merge,
		Stamp:      stamp,
	}))
	if h.Cache != nil {
		ttl := h.TTL
		if ttl <= 0 {
			ttl = DefaultRefreshInterval
		}
		if err := h.Cache.Set(execCtx, key, out.Body, ttl); err != nil && h.Logger != nil {
			h.Logger.Warn("export cache write failed", "property_id", q.PropertyID, "error", err)
		}
	}
	return out, nil
}

// BusyPeriods collects blocking reservations, blockings and imported events
// within window, along with the newest DateUpdated among them.
func BusyPeriods(snap support.Snapshot, window daterange.DateRange, now time.Time) ([]ical.Busy, time.Time) {
	var (
		busy   []ical.Busy
		latest time.Time
	)
	if snap.Property != nil {
		latest = snap.Property.DateUpdated
	}
	bump := func(t time.Time) {
		if t.After(latest) {
			latest = t
		}
	}
	for _, r := range snap.Reservations {
		if !r.IsBlocking(window, now) {
			continue
		}
		busy = append(busy, ical.Busy{Range: r.Range, Summary: reservedSummary})
		bump(r.DateUpdated)
	}
	for _, b := range snap.Blockings {
		dr, ok := b.Span.Clip(window)
		if !ok {
			continue
		}
		summary := b.Note
		if summary == "" {
			summary = blockedSummary
		}
		busy = append(busy, ical.Busy{Range: dr, Summary: summary})
		bump(b.DateUpdated)
	}
	for _, ev := range snap.ExternalEvents {
		if !ev.Range.Overlaps(window) {
			continue
		}
		busy = append(busy, ical.Busy{Range: ev.Range, Summary: ev.Summary})
		bump(ev.DateUpdated)
	}
	return busy, latest
}

var _ queries.Handler[ExportCalendarQuery, dto.CalendarExport] = (*ExportCalendarHandler)(nil)
