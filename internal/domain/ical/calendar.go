package ical

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"stayquote/internal/domain/property"
	"stayquote/internal/domain/shared/daterange"
)

var (
	ErrCalendarNotFound = errors.New("ical: external calendar not found")
	ErrFetch            = errors.New("ical: fetch failed")
	ErrParse            = errors.New("ical: body is not a valid calendar")
)

type CalendarID string

// ExternalCalendar is an iCal feed imported into one property.
type ExternalCalendar struct {
	ID          CalendarID
	PropertyID  property.ID
	Name        string
	URL         string
	DateUpdated time.Time
}

// Event is a stored VEVENT normalized to whole days.
type Event struct {
	UID         string
	CalendarID  CalendarID
	PropertyID  property.ID
	Summary     string
	Range       daterange.DateRange
	Stamp       time.Time
	Hash        string
	DateUpdated time.Time
}

// RawEvent is a parsed VEVENT before it is matched against stored rows.
type RawEvent struct {
	UID          string
	RecurrenceID string
	Summary      string
	Start        string
	End          string
	Stamp        string
}

// Key is the event identity within a calendar.
func (r RawEvent) Key() string {
	if r.RecurrenceID == "" {
		return r.UID
	}
	return r.UID + ":" + r.RecurrenceID
}

// Hash fingerprints the fields that make up an event's content.
func (r RawEvent) Hash() string {
	var b strings.Builder
	for _, field := range [][2]string{
		{"UID", r.UID},
		{"RECURRENCE-ID", r.RecurrenceID},
		{"DTSTART", r.Start},
		{"DTEND", r.End},
		{"SUMMARY", r.Summary},
		{"DTSTAMP", r.Stamp},
	} {
		b.WriteString(field[0])
		b.WriteByte(':')
		b.WriteString(field[1])
		b.WriteString("\r\n")
	}
	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

type CalendarRepository interface {
	ByID(ctx context.Context, id CalendarID) (*ExternalCalendar, error)
	ListByProperty(ctx context.Context, propertyID property.ID) ([]ExternalCalendar, error)
	List(ctx context.Context) ([]ExternalCalendar, error)
	Save(ctx context.Context, cal ExternalCalendar) error
}

// EventRepository is the ExternalCalendarIndex storage.
type EventRepository interface {
	ListByCalendar(ctx context.Context, id CalendarID) ([]Event, error)
	Overlapping(ctx context.Context, propertyID property.ID, dr daterange.DateRange) ([]Event, error)
	Apply(ctx context.Context, id CalendarID, diff Diff) error
}

// SyncLog records the outcome of one import attempt.
type SyncLog struct {
	CalendarID CalendarID
	Success    bool
	Events     int
	Error      string
	At         time.Time
}

type SyncLogRepository interface {
	Append(ctx context.Context, entry SyncLog) error
	Latest(ctx context.Context, id CalendarID) (*SyncLog, error)
}
