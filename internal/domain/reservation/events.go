package reservation

import "time"

type ReservationUpserted struct {
	Reservation Reservation
	At          time.Time
}

func (e ReservationUpserted) EventName() string     { return "reservation.upserted" }
func (e ReservationUpserted) AggregateID() string   { return string(e.Reservation.PropertyID) }
func (e ReservationUpserted) OccurredAt() time.Time { return e.At }

type ReservationDeleted struct {
	ReservationID ID
	PropertyID    string
	At            time.Time
}

func (e ReservationDeleted) EventName() string     { return "reservation.deleted" }
func (e ReservationDeleted) AggregateID() string   { return e.PropertyID }
func (e ReservationDeleted) OccurredAt() time.Time { return e.At }
