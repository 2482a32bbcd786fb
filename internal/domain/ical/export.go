package ical

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"time"

	ics "github.com/arran4/golang-ical"

	"stayquote/internal/domain/property"
	"stayquote/internal/domain/shared/daterange"
)

// Busy is one unavailable interval offered for export.
type Busy struct {
	Range   daterange.DateRange
	Summary string
}

type ExportOptions struct {
	PropertyID property.ID
	Name       string
	Domain     string
	Merge      bool
	Stamp      time.Time
}

const mergedSummary = "Not available"

// EventUID is the stable identifier of a locally produced event.
func EventUID(dr daterange.DateRange, propertyID property.ID, domain string) string {
	key := daterange.Format(dr.CheckIn) + ":" + daterange.Format(dr.CheckOut)
	if propertyID != "" {
		key += ":" + string(propertyID)
	}
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:]) + "@" + domain
}

// Intervals returns what Export will emit, in chronological order.
func Intervals(busy []Busy, merge bool) []Busy {
	if merge {
		ranges := make([]daterange.DateRange, 0, len(busy))
		for _, b := range busy {
			ranges = append(ranges, b.Range)
		}
		merged := daterange.MergeAll(ranges)
		out := make([]Busy, 0, len(merged))
		for _, r := range merged {
			out = append(out, Busy{Range: r, Summary: mergedSummary})
		}
		return out
	}
	out := append([]Busy(nil), busy...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Range, out[j].Range
		if a.CheckIn.Equal(b.CheckIn) {
			return a.CheckOut.Before(b.CheckOut)
		}
		return a.CheckIn.Before(b.CheckIn)
	})
	return out
}

// Export renders a VCALENDAR of all-day events.
func Export(busy []Busy, opts ExportOptions) string {
	cal := ics.NewCalendarFor(opts.Domain)
	cal.SetProductId("-//" + opts.Domain + "//stayquote//EN")
	cal.SetVersion("2.0")
	cal.SetCalscale("GREGORIAN")
	cal.SetName(opts.Name)

	for _, b := range Intervals(busy, opts.Merge) {
		ev := cal.AddEvent(EventUID(b.Range, opts.PropertyID, opts.Domain))
		ev.SetDtStampTime(opts.Stamp)
		ev.SetAllDayStartAt(b.Range.CheckIn)
		ev.SetAllDayEndAt(b.Range.CheckOut)
		summary := b.Summary
		if summary == "" {
			summary = mergedSummary
		}
		ev.SetSummary(summary)
	}
	return cal.Serialize()
}
