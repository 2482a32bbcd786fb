package policies

import "context"

// Inbox remembers consumed message ids. Seen records id and reports whether it was already present.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

// InboxReleaser is implemented by inboxes that do not take part in the unit of
// work; Release forgets an id whose processing failed so redelivery retries it.
type InboxReleaser interface {
	Release(ctx context.Context, eventID string) error
}
