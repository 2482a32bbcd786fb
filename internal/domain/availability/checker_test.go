package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayquote/internal/domain/ical"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/reservation"
	"stayquote/internal/domain/shared/daterange"
	"stayquote/internal/domain/timeframe"
)

var (
	d       = daterange.Date
	fixedAt = time.Date(2018, 1, 15, 9, 0, 0, 0, time.UTC)
)

func checker() Checker {
	return NewChecker(func() time.Time { return fixedAt })
}

func stayRange(from, to time.Time) daterange.DateRange {
	return daterange.Must(from, to)
}

func mondayOnlySnapshot() Snapshot {
	mondays, _ := NewTurnDays(0)
	return Snapshot{
		Property: &property.Property{
			ID:           "p1",
			Status:       property.StatusActive,
			Availability: property.AvailabilitySettings{MinStay: 9, MaxStay: 20},
		},
		TurnDays: []timeframe.Frame[TurnDays]{{ID: "td", PropertyID: "p1", Payload: mondays}},
	}
}

func TestCheckScenarios(t *testing.T) {
	tests := []struct {
		name      string
		rng       daterange.DateRange
		mutate    func(*Snapshot)
		available bool
		conflicts []Conflict
		blocked   []daterange.DateRange
	}{
		{
			name:      "ten nights from monday",
			rng:       stayRange(d(2018, 2, 19), d(2018, 3, 1)),
			available: true,
		},
		{
			name:      "tuesday arrival",
			rng:       stayRange(d(2018, 2, 20), d(2018, 3, 1)),
			conflicts: []Conflict{ConflictTurnDays},
		},
		{
			name:      "too short",
			rng:       stayRange(d(2018, 2, 19), d(2018, 2, 24)),
			conflicts: []Conflict{ConflictStay},
		},
		{
			name: "accepted reservation overlaps",
			rng:  stayRange(d(2018, 2, 5), d(2018, 2, 15)),
			mutate: func(s *Snapshot) {
				s.Reservations = []reservation.Reservation{{
					ID: "r1", PropertyID: "p1", Status: reservation.StatusAccepted,
					Range: stayRange(d(2018, 2, 9), d(2018, 2, 19)),
				}}
			},
			conflicts: []Conflict{ConflictReservation},
			blocked:   []daterange.DateRange{stayRange(d(2018, 2, 9), d(2018, 2, 15))},
		},
		{
			name: "expired inquiry is ignored",
			rng:  stayRange(d(2018, 6, 18), d(2018, 6, 30)),
			mutate: func(s *Snapshot) {
				expired := fixedAt.Add(-time.Minute)
				s.TurnDays = nil
				s.Reservations = []reservation.Reservation{{
					ID: "r2", PropertyID: "p1", Status: reservation.StatusInquiryBlocked, Expiration: &expired,
					Range: stayRange(d(2018, 6, 15), d(2018, 6, 25)),
				}}
			},
			available: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := mondayOnlySnapshot()
			if tt.mutate != nil {
				tt.mutate(&snap)
			}
			res := checker().Check(snap, Request{Range: tt.rng})

			assert.Equal(t, tt.available, res.Available())
			assert.Equal(t, tt.conflicts, res.Conflicts)
			assert.Equal(t, tt.blocked, res.BlockedDays)
		})
	}
}

func TestCheckEvaluatesEveryPredicateInOrder(t *testing.T) {
	snap := mondayOnlySnapshot()
	snap.Property.Status = property.StatusDraft
	snap.Property.Availability.AdvanceBookableMonths = 1
	snap.Property.Availability.MaxGuests = 2
	rng := stayRange(d(2018, 6, 19), d(2018, 6, 21))
	snap.Reservations = []reservation.Reservation{{ID: "r", PropertyID: "p1", Status: reservation.StatusCancelled, Range: rng}}
	snap.Blockings = []Blocking{{ID: "b", PropertyID: "p1", Span: daterange.Span{Lower: d(2018, 6, 20)}}}
	snap.ExternalEvents = []ical.Event{{UID: "e", Range: rng}}

	res := checker().Check(snap, Request{Range: rng, Guests: 3})

	assert.Equal(t, []Conflict{
		ConflictNotActive,
		ConflictAdvanceBookable,
		ConflictTurnDays,
		ConflictStay,
		ConflictReservation,
		ConflictBlockings,
		ConflictICalBlockings,
		ConflictMaxGuests,
	}, res.Conflicts)
	assert.False(t, res.Available())
}

func TestCheckBlockingsAndExclusions(t *testing.T) {
	snap := mondayOnlySnapshot()
	snap.TurnDays = nil
	snap.Property.Availability = property.AvailabilitySettings{}
	updated := fixedAt.Add(-time.Hour)
	rng := stayRange(d(2018, 3, 1), d(2018, 3, 10))
	snap.Blockings = []Blocking{
		{ID: "b1", Span: daterange.Span{Lower: d(2018, 2, 25), Upper: d(2018, 3, 3)}, DateUpdated: updated},
		{ID: "b2", Span: daterange.Span{Lower: d(2018, 4, 1), Upper: d(2018, 4, 3)}, DateUpdated: fixedAt},
	}
	snap.Reservations = []reservation.Reservation{
		{ID: "mine", PropertyID: "p1", Status: reservation.StatusAccepted, Range: stayRange(d(2018, 3, 5), d(2018, 3, 8))},
		{ID: "hold", PropertyID: "p1", Status: reservation.StatusRequest, Range: stayRange(d(2018, 3, 8), d(2018, 3, 9))},
	}

	res := checker().Check(snap, Request{Range: rng, Excluded: []reservation.ID{"mine"}})

	assert.Equal(t, []Conflict{ConflictBlockings}, res.Conflicts)
	assert.Equal(t, []daterange.DateRange{stayRange(d(2018, 3, 1), d(2018, 3, 3))}, res.BlockedDays)
	assert.Equal(t, updated, res.LatestDataTimestamp)
	assert.True(t, res.IsBlocked(d(2018, 3, 2)))
	assert.False(t, res.IsBlocked(d(2018, 3, 3)))
}

func TestCheckStayRuleFrameOverridesDefaults(t *testing.T) {
	snap := mondayOnlySnapshot()
	snap.StayRules = []timeframe.Frame[StayRule]{{
		ID:      "summer",
		Span:    daterange.Span{Lower: d(2018, 6, 1), Upper: d(2018, 9, 1)},
		Payload: StayRule{MinStay: 3},
	}}

	res := checker().Check(snap, Request{Range: stayRange(d(2018, 6, 4), d(2018, 6, 8))})
	assert.True(t, res.Available(), res.Conflicts)

	res = checker().Check(snap, Request{Range: stayRange(d(2018, 2, 19), d(2018, 2, 23))})
	assert.Equal(t, []Conflict{ConflictStay}, res.Conflicts)
}

func TestBlockedDaysStayInsideQuery(t *testing.T) {
	snap := mondayOnlySnapshot()
	snap.Blockings = []Blocking{{ID: "open", Span: daterange.Span{}}}
	rng := stayRange(d(2018, 2, 19), d(2018, 3, 1))

	res := checker().Check(snap, Request{Range: rng})

	require.Len(t, res.BlockedDays, 1)
	assert.Equal(t, rng, res.BlockedDays[0])
	assert.True(t, res.LatestDataTimestamp.IsZero())
}

func TestTurnDaysValidation(t *testing.T) {
	_, err := NewTurnDays(7)
	assert.ErrorIs(t, err, ErrInvalidWeekday)

	td, err := NewTurnDays(5, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 5}, td.Weekdays)
	assert.True(t, td.Allows(d(2018, 2, 24)))
}

func TestConflictMessages(t *testing.T) {
	assert.Equal(t, "Property is not currently available for booking.", ConflictNotActive.Message())
	assert.Equal(t, "custom", Conflict("custom").Message())
}
