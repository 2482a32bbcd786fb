package dto

import "time"

type CalendarSync struct {
	CalendarID string    `json:"calendarId"`
	Success    bool      `json:"success"`
	Events     int       `json:"events"`
	Inserted   int       `json:"inserted"`
	Updated    int       `json:"updated"`
	Deleted    int       `json:"deleted"`
	Error      string    `json:"error,omitempty"`
	SyncedAt   time.Time `json:"syncedAt"`
}

type CalendarExport struct {
	Body     []byte
	Cached   bool
	Filename string
}

type ExternalCalendar struct {
	ID         string `json:"id"`
	PropertyID string `json:"propertyId"`
	Name       string `json:"name"`
	URL        string `json:"url"`
}
