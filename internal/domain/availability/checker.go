package availability

import (
	"time"

	"stayquote/internal/domain/ical"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/reservation"
	"stayquote/internal/domain/shared/daterange"
	"stayquote/internal/domain/timeframe"
)

// Conflict is the reason code a failed predicate contributes.
type Conflict string

const (
	ConflictNotActive       Conflict = "notActive"
	ConflictAdvanceBookable Conflict = "advanceBookable"
	ConflictTurnDays        Conflict = "turnDays"
	ConflictStay            Conflict = "stay"
	ConflictReservation     Conflict = "reservation"
	ConflictBlockings       Conflict = "blockings"
	ConflictICalBlockings   Conflict = "icalBlockings"
	ConflictMaxGuests       Conflict = "maxGuests"
)

var conflictMessages = map[Conflict]string{
	ConflictNotActive:       "Property is not currently available for booking.",
	ConflictAdvanceBookable: "The requested dates are too far in the future to be booked.",
	ConflictTurnDays:        "Arrival is not permitted on the requested weekday.",
	ConflictStay:            "The requested stay does not meet the minimum or maximum stay requirements.",
	ConflictReservation:     "The property is already reserved for some of the requested nights.",
	ConflictBlockings:       "The property has been blocked by the owner for some of the requested nights.",
	ConflictICalBlockings:   "The property is booked on a connected calendar for some of the requested nights.",
	ConflictMaxGuests:       "The party exceeds the maximum number of guests.",
}

func (c Conflict) Message() string {
	if msg, ok := conflictMessages[c]; ok {
		return msg
	}
	return string(c)
}

// Snapshot is the read-only view of one property's data the checker evaluates.
type Snapshot struct {
	Property       *property.Property
	TurnDays       []timeframe.Frame[TurnDays]
	StayRules      []timeframe.Frame[StayRule]
	Reservations   []reservation.Reservation
	Blockings      []Blocking
	ExternalEvents []ical.Event
}

type Request struct {
	Range    daterange.DateRange
	Guests   int
	Excluded []reservation.ID
}

type Result struct {
	Range               daterange.DateRange
	Conflicts           []Conflict
	BlockedDays         []daterange.DateRange
	LatestDataTimestamp time.Time
}

func (r Result) Available() bool {
	return len(r.Conflicts) == 0
}

func (r Result) Has(c Conflict) bool {
	for _, got := range r.Conflicts {
		if got == c {
			return true
		}
	}
	return false
}

// IsBlocked reports whether day is inside one of the blocked ranges.
func (r Result) IsBlocked(day time.Time) bool {
	for _, b := range r.BlockedDays {
		if b.ContainsDate(day) {
			return true
		}
	}
	return false
}

// Checker composes every availability source into one verdict.
type Checker struct {
	Now func() time.Time
}

func NewChecker(now func() time.Time) Checker {
	if now == nil {
		now = time.Now
	}
	return Checker{Now: now}
}

// Check evaluates all predicates in fixed order without short-circuiting.
func (c Checker) Check(s Snapshot, req Request) Result {
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	today := daterange.Truncate(now)
	dr := req.Range
	blocked := make(map[time.Time]bool, dr.Nights())
	for _, d := range dr.Days() {
		blocked[d] = false
	}
	res := Result{Range: dr}
	touch := func(t time.Time) {
		if t.After(res.LatestDataTimestamp) {
			res.LatestDataTimestamp = t
		}
	}

	p := s.Property
	if p == nil || !p.IsActive() {
		res.Conflicts = append(res.Conflicts, ConflictNotActive)
	}

	if p != nil && p.Availability.AdvanceBookableMonths > 0 {
		limit := today.AddDate(0, 0, p.Availability.AdvanceBookableMonths*30)
		if dr.CheckOut.After(limit) {
			res.Conflicts = append(res.Conflicts, ConflictAdvanceBookable)
		}
	}

	if rule, ok := timeframe.Resolve(s.TurnDays, dr); ok && !rule.Payload.Allows(dr.CheckIn) {
		res.Conflicts = append(res.Conflicts, ConflictTurnDays)
	}

	stay := StayRule{}
	if p != nil {
		stay = DefaultStayRule(p.Availability)
	}
	if rule, ok := timeframe.Resolve(s.StayRules, dr); ok {
		stay = rule.Payload
	}
	if !stay.Permits(dr.Nights()) {
		res.Conflicts = append(res.Conflicts, ConflictStay)
	}

	excluded := make(map[reservation.ID]bool, len(req.Excluded))
	for _, id := range req.Excluded {
		excluded[id] = true
	}
	reserved := false
	for _, r := range s.Reservations {
		if excluded[r.ID] || !reservation.Relevant(r) || !r.Range.Overlaps(dr) {
			continue
		}
		touch(r.DateUpdated)
		if !r.IsBlocking(dr, now) {
			continue
		}
		reserved = true
		mark(blocked, r.Range)
	}
	if reserved {
		res.Conflicts = append(res.Conflicts, ConflictReservation)
	}

	hasBlocking := false
	for _, b := range s.Blockings {
		part, ok := b.Span.Clip(dr)
		if !ok {
			continue
		}
		touch(b.DateUpdated)
		hasBlocking = true
		mark(blocked, part)
	}
	if hasBlocking {
		res.Conflicts = append(res.Conflicts, ConflictBlockings)
	}

	hasEvent := false
	for _, e := range s.ExternalEvents {
		if e.Range.Overlaps(dr) {
			touch(e.DateUpdated)
			hasEvent = true
		}
	}
	if hasEvent {
		res.Conflicts = append(res.Conflicts, ConflictICalBlockings)
	}

	if p != nil && p.Availability.MaxGuests > 0 && req.Guests > p.Availability.MaxGuests {
		res.Conflicts = append(res.Conflicts, ConflictMaxGuests)
	}

	var days []time.Time
	for d, isBlocked := range blocked {
		if isBlocked {
			days = append(days, d)
		}
	}
	res.BlockedDays = daterange.Coalesce(days)
	return res
}

// mark flags only days already keyed by the query range.
func mark(blocked map[time.Time]bool, r daterange.DateRange) {
	for _, d := range r.Days() {
		if _, ok := blocked[d]; ok {
			blocked[d] = true
		}
	}
}
