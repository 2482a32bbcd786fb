package policies

import (
	"context"
	"time"
)

// ICalFetcher downloads an external calendar body.
type ICalFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// RawBodyStore keeps the last fetched body of each external calendar.
type RawBodyStore interface {
	Put(ctx context.Context, calendarID string, body []byte) error
	Latest(ctx context.Context, calendarID string) ([]byte, bool, error)
}

// ExportCache holds rendered iCal exports.
type ExportCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte, ttl time.Duration) error
}

// CalendarRefresher re-imports external calendars whose last sync is stale.
// Failures are logged by the implementation and never surface to the caller.
type CalendarRefresher interface {
	RefreshStale(ctx context.Context, propertyID string)
}
