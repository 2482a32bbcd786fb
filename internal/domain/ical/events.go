package ical

import "time"

type CalendarSynced struct {
	CalendarID string
	PropertyID string
	Success    bool
	Inserted   int
	Updated    int
	Deleted    int
	At         time.Time
}

func (e CalendarSynced) EventName() string     { return "ical.synced" }
func (e CalendarSynced) AggregateID() string   { return e.PropertyID }
func (e CalendarSynced) OccurredAt() time.Time { return e.At }
