package timeframe

import "time"

// Kind names the collection a frame belongs to.
type Kind string

const (
	KindRate     Kind = "rate"
	KindStayRule Kind = "availability"
	KindTurnDays Kind = "turnDays"
)

type FrameInserted struct {
	PropertyID string
	Kind       Kind
	FrameID    string
	Lower      time.Time
	Upper      time.Time
	Deleted    int
	Updated    int
	Inserted   int
	At         time.Time
}

func (e FrameInserted) EventName() string     { return "timeframe.inserted" }
func (e FrameInserted) AggregateID() string   { return e.PropertyID }
func (e FrameInserted) OccurredAt() time.Time { return e.At }

// InsertedEvent summarizes an applied change set.
func InsertedEvent[T any](kind Kind, n Frame[T], changes Changes[T], at time.Time) FrameInserted {
	return FrameInserted{
		PropertyID: string(n.PropertyID),
		Kind:       kind,
		FrameID:    n.ID,
		Lower:      n.Span.Lower,
		Upper:      n.Span.Upper,
		Deleted:    len(changes.Deleted),
		Updated:    len(changes.Updated),
		Inserted:   len(changes.Inserted),
		At:         at,
	}
}
