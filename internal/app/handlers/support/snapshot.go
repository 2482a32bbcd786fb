package support

import (
	"context"
	"fmt"

	"stayquote/internal/app/uow"
	"stayquote/internal/domain/availability"
	"stayquote/internal/domain/pricing"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/shared/daterange"
	"stayquote/internal/domain/timeframe"
)

// Snapshot is everything the engine reads for one property and window.
type Snapshot struct {
	availability.Snapshot
	Rates []timeframe.Frame[pricing.Rate]
}

// LoadSnapshot reads the property and every collection overlapping window.
func LoadSnapshot(ctx context.Context, unit uow.UnitOfWork, id property.ID, window daterange.DateRange) (Snapshot, error) {
	var snap Snapshot
	p, err := unit.Properties().ByID(ctx, id)
	if err != nil {
		return snap, err
	}
	snap.Property = p.Copy()

	if snap.TurnDays, err = unit.TurnDays().Overlapping(ctx, id, window); err != nil {
		return snap, fmt.Errorf("load turn days: %w", err)
	}
	if snap.StayRules, err = unit.StayRules().Overlapping(ctx, id, window); err != nil {
		return snap, fmt.Errorf("load stay rules: %w", err)
	}
	if snap.Rates, err = unit.Rates().Overlapping(ctx, id, window); err != nil {
		return snap, fmt.Errorf("load rates: %w", err)
	}
	if snap.Reservations, err = unit.Reservations().Overlapping(ctx, id, window); err != nil {
		return snap, fmt.Errorf("load reservations: %w", err)
	}
	if snap.Blockings, err = unit.Blockings().Overlapping(ctx, id, window); err != nil {
		return snap, fmt.Errorf("load blockings: %w", err)
	}
	if snap.ExternalEvents, err = unit.CalendarEvents().Overlapping(ctx, id, window); err != nil {
		return snap, fmt.Errorf("load calendar events: %w", err)
	}
	return snap, nil
}
