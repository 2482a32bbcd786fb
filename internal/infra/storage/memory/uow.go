package memory

import (
	"context"
	"errors"
	"sync"

	"stayquote/internal/app/uow"
	"stayquote/internal/domain/availability"
	"stayquote/internal/domain/ical"
	"stayquote/internal/domain/pricing"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/reservation"
)

// ErrFactoryMisconfigured indicates a factory without a store.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Store groups every in-memory collection plus the per-property write locks.
type Store struct {
	Properties   *PropertyRepository
	Rates        *FrameStore[pricing.Rate]
	StayRules    *FrameStore[availability.StayRule]
	TurnDays     *FrameStore[availability.TurnDays]
	Blockings    *BlockingRepository
	Reservations *ReservationLedger
	Calendars    *CalendarRepository
	Events       *EventRepository
	SyncLogs     *SyncLogRepository

	mu    sync.Mutex
	locks map[property.ID]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		Properties:   NewPropertyRepository(),
		Rates:        NewFrameStore[pricing.Rate](),
		StayRules:    NewFrameStore[availability.StayRule](),
		TurnDays:     NewFrameStore[availability.TurnDays](),
		Blockings:    NewBlockingRepository(),
		Reservations: NewReservationLedger(),
		Calendars:    NewCalendarRepository(),
		Events:       NewEventRepository(),
		SyncLogs:     NewSyncLogRepository(0),
		locks:        make(map[property.ID]*sync.Mutex),
	}
}

func (s *Store) lockFor(id property.ID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Factory wires the store into a unit-of-work boundary.
type Factory struct {
	Store *Store
}

// Begin starts a lightweight boundary. Writes are visible immediately; only the
// per-property locks are scoped to the unit.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{store: f.Store, readOnly: opts.ReadOnly, held: make(map[property.ID]*sync.Mutex)}, nil
}

// Unit is a uow.UnitOfWork backed by the in-memory store.
type Unit struct {
	store    *Store
	readOnly bool
	held     map[property.ID]*sync.Mutex
}

func (u *Unit) Properties() property.Repository { return u.store.Properties }
func (u *Unit) Rates() pricing.RateStore { return u.store.Rates }
func (u *Unit) StayRules() availability.StayRuleStore { return u.store.StayRules }
func (u *Unit) TurnDays() availability.TurnDayStore { return u.store.TurnDays }
func (u *Unit) Blockings() availability.BlockingRepository { return u.store.Blockings }
func (u *Unit) Reservations() reservation.Ledger { return u.store.Reservations }
func (u *Unit) Calendars() ical.CalendarRepository { return u.store.Calendars }
func (u *Unit) CalendarEvents() ical.EventRepository { return u.store.Events }
func (u *Unit) SyncLogs() ical.SyncLogRepository { return u.store.SyncLogs }

// LockProperty blocks until no other unit holds the property. Re-locking within
// the same unit is a no-op.
func (u *Unit) LockProperty(ctx context.Context, id property.ID) error {
	if u.readOnly {
		return uow.ErrReadOnly
	}
	if _, ok := u.held[id]; ok {
		return nil
	}
	l := u.store.lockFor(id)
	acquired := make(chan struct{})
	go func() {
		l.Lock()
		close(acquired)
	}()
	select {
	case <-acquired:
		u.held[id] = l
		return nil
	case <-ctx.Done():
		// release once the pending Lock lands
		go func() {
			<-acquired
			l.Unlock()
		}()
		return ctx.Err()
	}
}

func (u *Unit) Commit(ctx context.Context) error {
	u.release()
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.release()
	return nil
}

func (u *Unit) release() {
	for id, l := range u.held {
		l.Unlock()
		delete(u.held, id)
	}
}

var (
	_ uow.UoWFactory = Factory{}
	_ uow.UnitOfWork = (*Unit)(nil)
)
