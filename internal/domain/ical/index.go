package ical

import (
	"fmt"
	"time"

	"stayquote/internal/domain/shared/daterange"
)

const (
	dateLayout  = "20060102"
	stampLayout = "20060102T150405"
)

// Diff is the change set Populate produces for one calendar.
type Diff struct {
	Inserted []Event
	Updated  []Event
	Deleted  []string
}

func (d Diff) Empty() bool {
	return len(d.Inserted) == 0 && len(d.Updated) == 0 && len(d.Deleted) == 0
}

// Apply returns the stored rows after the diff.
func (d Diff) Apply(existing []Event) []Event {
	gone := make(map[string]bool, len(d.Deleted))
	for _, uid := range d.Deleted {
		gone[uid] = true
	}
	updated := make(map[string]Event, len(d.Updated))
	for _, e := range d.Updated {
		updated[e.UID] = e
	}
	out := make([]Event, 0, len(existing)+len(d.Inserted))
	for _, e := range existing {
		if gone[e.UID] {
			continue
		}
		if u, ok := updated[e.UID]; ok {
			e = u
		}
		out = append(out, e)
	}
	return append(out, d.Inserted...)
}

// Populate reconciles freshly parsed VEVENTs with the stored rows of cal.
// Rows whose hash is unchanged are left alone, so re-importing the same body is a no-op.
// Events with an unreadable DTSTART are skipped and reported; their stored rows are kept.
func Populate(cal ExternalCalendar, existing []Event, raws []RawEvent, now time.Time) (Diff, []error) {
	var (
		diff    Diff
		skipped []error
	)
	stored := make(map[string]Event, len(existing))
	for _, e := range existing {
		stored[e.UID] = e
	}
	observed := make(map[string]bool, len(raws))

	for _, raw := range raws {
		key := raw.Key()
		if key == "" {
			skipped = append(skipped, fmt.Errorf("%w: event without UID", ErrParse))
			continue
		}
		if observed[key] {
			continue
		}
		observed[key] = true
		event, err := normalize(cal, raw)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("event %s: %w", key, err))
			continue
		}
		event.DateUpdated = now

		prev, ok := stored[key]
		switch {
		case !ok:
			diff.Inserted = append(diff.Inserted, event)
		case prev.Hash != event.Hash:
			diff.Updated = append(diff.Updated, event)
		}
	}
	for _, e := range existing {
		if !observed[e.UID] {
			diff.Deleted = append(diff.Deleted, e.UID)
		}
	}
	return diff, skipped
}

func normalize(cal ExternalCalendar, raw RawEvent) (Event, error) {
	start, err := parseDay(raw.Start)
	if err != nil {
		return Event{}, err
	}
	end := start.AddDate(0, 0, 1)
	if raw.End != "" {
		if parsed, err := parseDay(raw.End); err == nil && parsed.After(start) {
			end = parsed
		}
	}
	stamp := cal.DateUpdated
	if raw.Stamp != "" {
		if parsed, err := parseStamp(raw.Stamp); err == nil {
			stamp = parsed
		}
	}
	return Event{
		UID:        raw.Key(),
		CalendarID: cal.ID,
		PropertyID: cal.PropertyID,
		Summary:    raw.Summary,
		Range:      daterange.DateRange{CheckIn: start, CheckOut: end},
		Stamp:      stamp,
		Hash:       raw.Hash(),
	}, nil
}

// parseDay reads the date component of a DATE or DATE-TIME value.
func parseDay(value string) (time.Time, error) {
	if len(value) < len(dateLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", daterange.ErrInvalidDateFormat, value)
	}
	t, err := time.Parse(dateLayout, value[:len(dateLayout)])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", daterange.ErrInvalidDateFormat, value)
	}
	return t, nil
}

func parseStamp(value string) (time.Time, error) {
	if len(value) >= len(stampLayout) {
		if t, err := time.Parse(stampLayout, value[:len(stampLayout)]); err == nil {
			return t, nil
		}
	}
	return parseDay(value)
}
