package timeframe

import (
	"time"

	"stayquote/internal/domain/shared/daterange"
)

// Changes is the atomic change set produced by Plan. Stores apply it all or nothing.
type Changes[T any] struct {
	Deleted  []string
	Updated  []Frame[T]
	Inserted []Frame[T]
}

func (c Changes[T]) Empty() bool {
	return len(c.Deleted) == 0 && len(c.Updated) == 0 && len(c.Inserted) == 0
}

// Plan computes the insert-with-split change set for frame n against the existing
// collection. Defaults take no part in splitting: a new default replaces the
// existing ones, any other frame only reshapes non-default frames. Frames open
// on one side split like bounded ones, with a missing bound read as infinity.
func Plan[T any](existing []Frame[T], n Frame[T], newID func() string, now time.Time) Changes[T] {
	var changes Changes[T]
	if n.ID == "" {
		n.ID = newID()
	}
	n.DateUpdated = now

	if n.Default() {
		for _, e := range existing {
			if e.Default() {
				changes.Deleted = append(changes.Deleted, e.ID)
			}
		}
		changes.Inserted = append(changes.Inserted, n)
		return changes
	}

	for _, e := range existing {
		if e.Default() || !e.Span.OverlapsSpan(n.Span) {
			continue
		}
		before := startsBefore(e.Span, n.Span)
		after := endsAfter(e.Span, n.Span)
		switch {
		case !before && !after:
			changes.Deleted = append(changes.Deleted, e.ID)
		case before && after:
			head := e
			head.Span = daterange.Span{Lower: e.Span.Lower, Upper: n.Span.Lower}
			head.DateUpdated = now
			tail := e
			tail.ID = newID()
			tail.Span = daterange.Span{Lower: n.Span.Upper, Upper: e.Span.Upper}
			tail.DateUpdated = now
			changes.Updated = append(changes.Updated, head)
			changes.Inserted = append(changes.Inserted, tail)
		case before:
			e.Span.Upper = n.Span.Lower
			e.DateUpdated = now
			changes.Updated = append(changes.Updated, e)
		default:
			e.Span.Lower = n.Span.Upper
			e.DateUpdated = now
			changes.Updated = append(changes.Updated, e)
		}
	}
	changes.Inserted = append(changes.Inserted, n)
	return changes
}

// startsBefore reports e.lower < n.lower; an unbounded n.lower is never beaten.
func startsBefore(e, n daterange.Span) bool {
	if !n.LowerBounded() {
		return false
	}
	return !e.LowerBounded() || e.Lower.Before(n.Lower)
}

// endsAfter reports e.upper > n.upper; an unbounded n.upper is never beaten.
func endsAfter(e, n daterange.Span) bool {
	if !n.UpperBounded() {
		return false
	}
	return !e.UpperBounded() || e.Upper.After(n.Upper)
}

// ApplyTo returns the collection after changes, used by in-memory stores and tests.
func ApplyTo[T any](existing []Frame[T], changes Changes[T]) []Frame[T] {
	deleted := make(map[string]struct{}, len(changes.Deleted))
	for _, id := range changes.Deleted {
		deleted[id] = struct{}{}
	}
	updated := make(map[string]Frame[T], len(changes.Updated))
	for _, f := range changes.Updated {
		updated[f.ID] = f
	}
	out := make([]Frame[T], 0, len(existing)+len(changes.Inserted))
	for _, e := range existing {
		if _, gone := deleted[e.ID]; gone {
			continue
		}
		if u, ok := updated[e.ID]; ok {
			e = u
		}
		out = append(out, e)
	}
	return append(out, changes.Inserted...)
}
