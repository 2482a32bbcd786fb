package timeframe

import (
	"context"
	"errors"
	"sort"
	"time"

	"stayquote/internal/domain/property"
	"stayquote/internal/domain/shared/daterange"
)

var ErrFrameNotFound = errors.New("timeframe: frame not found")

// Frame is one time-framed row of a property collection (rates, stay rules, turn days).
type Frame[T any] struct {
	ID          string
	PropertyID  property.ID
	Span        daterange.Span
	Payload     T
	DateUpdated time.Time
}

// Default reports whether the frame is open on both ends, the fallback rule
// beneath every dated frame. A frame open on one side only is a dated frame.
func (f Frame[T]) Default() bool {
	return !f.Span.LowerBounded() && !f.Span.UpperBounded()
}

// Store holds the frames of one collection kind.
type Store[T any] interface {
	ListByProperty(ctx context.Context, propertyID property.ID) ([]Frame[T], error)
	Overlapping(ctx context.Context, propertyID property.ID, dr daterange.DateRange) ([]Frame[T], error)
	Apply(ctx context.Context, propertyID property.ID, changes Changes[T]) error
}

// Overlapping filters frames intersecting dr and orders them by lower bound descending.
func Overlapping[T any](frames []Frame[T], dr daterange.DateRange) []Frame[T] {
	out := make([]Frame[T], 0, len(frames))
	for _, f := range frames {
		if f.Span.Overlaps(dr) {
			out = append(out, f)
		}
	}
	SortByLowerDesc(out)
	return out
}

// SortByLowerDesc puts the most recently starting frame first; unbounded lowers sort last.
func SortByLowerDesc[T any](frames []Frame[T]) {
	sort.SliceStable(frames, func(i, j int) bool {
		a, b := frames[i].Span, frames[j].Span
		if b.LowerBefore(a) {
			return true
		}
		if a.LowerBefore(b) {
			return false
		}
		return frames[i].ID < frames[j].ID
	})
}

// Resolve picks the frame governing a stay: the most recently starting bounded frame
// overlapping dr, otherwise the most recent open default overlapping dr.
func Resolve[T any](frames []Frame[T], dr daterange.DateRange) (Frame[T], bool) {
	return pick(Overlapping(frames, dr))
}

// ResolveAt picks the frame governing a single night.
func ResolveAt[T any](frames []Frame[T], day time.Time) (Frame[T], bool) {
	candidates := make([]Frame[T], 0, len(frames))
	for _, f := range frames {
		if f.Span.ContainsDate(day) {
			candidates = append(candidates, f)
		}
	}
	SortByLowerDesc(candidates)
	return pick(candidates)
}

func pick[T any](sorted []Frame[T]) (Frame[T], bool) {
	for _, f := range sorted {
		if !f.Default() {
			return f, true
		}
	}
	if len(sorted) > 0 {
		return sorted[0], true
	}
	var zero Frame[T]
	return zero, false
}
