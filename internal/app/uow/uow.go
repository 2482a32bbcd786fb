package uow

import (
	"context"

	"stayquote/internal/domain/availability"
	"stayquote/internal/domain/ical"
	"stayquote/internal/domain/pricing"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/reservation"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Properties() property.Repository
	Rates() pricing.RateStore
	StayRules() availability.StayRuleStore
	TurnDays() availability.TurnDayStore
	Blockings() availability.BlockingRepository
	Reservations() reservation.Ledger
	Calendars() ical.CalendarRepository
	CalendarEvents() ical.EventRepository
	SyncLogs() ical.SyncLogRepository

	// LockProperty serializes writers of one property's collections until the unit ends.
	LockProperty(ctx context.Context, id property.ID) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
