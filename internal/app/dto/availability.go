package dto

import (
	"time"

	"stayquote/internal/domain/availability"
	"stayquote/internal/domain/shared/daterange"
)

type DateSpan struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type Availability struct {
	Available           bool       `json:"available"`
	ArrivalDate         string     `json:"arrivalDate"`
	DepartureDate       string     `json:"departureDate"`
	Conflicts           []Conflict `json:"conflicts"`
	BlockedDays         []DateSpan `json:"blockedDays"`
	LatestDataTimestamp *time.Time `json:"latestDataTimestamp,omitempty"`
}

func MapAvailability(res availability.Result) Availability {
	out := Availability{
		Available:     res.Available(),
		ArrivalDate:   daterange.Format(res.Range.CheckIn),
		DepartureDate: daterange.Format(res.Range.CheckOut),
		Conflicts:     MapConflicts(res.Conflicts),
		BlockedDays:   make([]DateSpan, 0, len(res.BlockedDays)),
	}
	if out.Conflicts == nil {
		out.Conflicts = []Conflict{}
	}
	for _, b := range res.BlockedDays {
		out.BlockedDays = append(out.BlockedDays, DateSpan{Start: daterange.Format(b.CheckIn), End: daterange.Format(b.CheckOut)})
	}
	if !res.LatestDataTimestamp.IsZero() {
		ts := res.LatestDataTimestamp.UTC()
		out.LatestDataTimestamp = &ts
	}
	return out
}
