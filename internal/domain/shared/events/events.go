// Package events carries the domain events raised by frame writes, blockings
// and calendar imports.
package events

import "time"

type DomainEvent interface {
	EventName() string
	// AggregateID is the property the event belongs to.
	AggregateID() string
	OccurredAt() time.Time
}

// EventRecorder buffers events raised during one write.
type EventRecorder struct {
	pending []DomainEvent
}

func (r *EventRecorder) Record(evs ...DomainEvent) {
	for _, ev := range evs {
		if ev != nil {
			r.pending = append(r.pending, ev)
		}
	}
}

func (r *EventRecorder) Len() int { return len(r.pending) }

// Drain returns pending events and clears the buffer.
func (r *EventRecorder) Drain() []DomainEvent {
	out := r.pending
	r.pending = nil
	return out
}
