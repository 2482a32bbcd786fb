package availability

import "time"

type BlockingAdded struct {
	PropertyID string
	BlockingID string
	Lower      time.Time
	Upper      time.Time
	At         time.Time
}

func (e BlockingAdded) EventName() string     { return "blocking.added" }
func (e BlockingAdded) AggregateID() string   { return e.PropertyID }
func (e BlockingAdded) OccurredAt() time.Time { return e.At }

type BlockingRemoved struct {
	PropertyID string
	BlockingID string
	At         time.Time
}

func (e BlockingRemoved) EventName() string     { return "blocking.removed" }
func (e BlockingRemoved) AggregateID() string   { return e.PropertyID }
func (e BlockingRemoved) OccurredAt() time.Time { return e.At }
