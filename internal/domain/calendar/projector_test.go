package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayquote/internal/domain/availability"
	"stayquote/internal/domain/ical"
	"stayquote/internal/domain/pricing"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/reservation"
	"stayquote/internal/domain/shared/daterange"
	"stayquote/internal/domain/timeframe"
)

func TestProject(t *testing.T) {
	d := daterange.Date
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	projector := NewProjector(availability.NewChecker(func() time.Time { return now }))

	snap := availability.Snapshot{
		Property: &property.Property{
			ID:           "p1",
			Status:       property.StatusActive,
			Availability: property.AvailabilitySettings{MinStay: 7},
			Pricing:      property.PricingSettings{Currency: "GBP"},
		},
		StayRules: []timeframe.Frame[availability.StayRule]{{
			ID: "s", Span: daterange.Span{Lower: d(2024, 5, 2), Upper: d(2024, 5, 4)}, Payload: availability.StayRule{MinStay: 2},
		}},
		Reservations: []reservation.Reservation{{
			ID: "r", PropertyID: "p1", Status: reservation.StatusAccepted, Range: daterange.Must(d(2024, 5, 3), d(2024, 5, 4)),
		}},
		ExternalEvents: []ical.Event{{UID: "e", Range: daterange.Must(d(2024, 5, 5), d(2024, 5, 6))}},
	}
	rates := []timeframe.Frame[pricing.Rate]{{
		ID: "r", Span: daterange.Span{Lower: d(2024, 5, 1), Upper: d(2024, 5, 6)}, Payload: pricing.Rate{Nightly: 8000},
	}}

	got := projector.Project(Input{Snapshot: snap, Rates: rates, From: d(2024, 5, 1), Count: 6})

	assert.Equal(t, 6, got.Count)
	assert.Equal(t, "GBP", got.Currency)
	require.Len(t, got.Days, 6)

	available := make([]bool, 0, 6)
	for _, day := range got.Days {
		available = append(available, day.Available)
	}
	assert.Equal(t, []bool{true, true, false, true, false, false}, available)

	assert.Equal(t, "80.00", got.Days[0].Price.String())
	assert.Nil(t, got.Days[0].MinNights, "no frame covers the first day")
	require.NotNil(t, got.Days[1].MinNights)
	assert.Equal(t, 2, *got.Days[1].MinNights)
	assert.Nil(t, got.Days[5].Price)
}
