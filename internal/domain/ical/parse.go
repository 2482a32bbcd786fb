package ical

import (
	"bytes"
	"fmt"

	ics "github.com/arran4/golang-ical"
)

// Parse extracts the VEVENTs of an iCal body.
func Parse(body []byte) ([]RawEvent, error) {
	if !bytes.Contains(body, []byte("BEGIN:VCALENDAR")) {
		return nil, ErrParse
	}
	cal, err := ics.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	events := cal.Events()
	out := make([]RawEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, RawEvent{
			UID:          value(ev, ics.ComponentPropertyUniqueId),
			RecurrenceID: value(ev, ics.ComponentPropertyRecurrenceId),
			Summary:      value(ev, ics.ComponentPropertySummary),
			Start:        value(ev, ics.ComponentPropertyDtStart),
			End:          value(ev, ics.ComponentPropertyDtEnd),
			Stamp:        value(ev, ics.ComponentPropertyDtstamp),
		})
	}
	return out, nil
}

func value(ev *ics.VEvent, prop ics.ComponentProperty) string {
	p := ev.GetProperty(prop)
	if p == nil {
		return ""
	}
	return p.Value
}
