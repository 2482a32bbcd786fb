package memory

import (
	"context"
	"sort"
	"sync"

	"stayquote/internal/domain/availability"
	"stayquote/internal/domain/ical"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/reservation"
	"stayquote/internal/domain/shared/daterange"
	"stayquote/internal/domain/timeframe"
)

// PropertyRepository is an in-memory property catalogue for demos and tests.
type PropertyRepository struct {
	mu    sync.RWMutex
	items map[property.ID]*property.Property
}

func NewPropertyRepository() *PropertyRepository {
	return &PropertyRepository{items: make(map[property.ID]*property.Property)}
}

// ByID returns a copy of the stored property or ErrPropertyNotFound.
func (r *PropertyRepository) ByID(ctx context.Context, id property.ID) (*property.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, property.ErrPropertyNotFound
	}
	return p.Copy(), nil
}

func (r *PropertyRepository) Save(ctx context.Context, p *property.Property) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = p.Copy()
	return nil
}

// FrameStore keeps one collection of time frames per property.
type FrameStore[T any] struct {
	mu     sync.RWMutex
	frames map[property.ID][]timeframe.Frame[T]
}

func NewFrameStore[T any]() *FrameStore[T] {
	return &FrameStore[T]{frames: make(map[property.ID][]timeframe.Frame[T])}
}

func (s *FrameStore[T]) ListByProperty(ctx context.Context, propertyID property.ID) ([]timeframe.Frame[T], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]timeframe.Frame[T](nil), s.frames[propertyID]...), nil
}

func (s *FrameStore[T]) Overlapping(ctx context.Context, propertyID property.ID, dr daterange.DateRange) ([]timeframe.Frame[T], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return timeframe.Overlapping(s.frames[propertyID], dr), nil
}

// Apply swaps the whole collection under the write lock, so readers never see
// a partially applied split.
func (s *FrameStore[T]) Apply(ctx context.Context, propertyID property.ID, changes timeframe.Changes[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames[propertyID] = timeframe.ApplyTo(s.frames[propertyID], changes)
	return nil
}

// ReservationLedger mirrors the reservations of the booking service.
type ReservationLedger struct {
	mu    sync.RWMutex
	items map[reservation.ID]reservation.Reservation
}

func NewReservationLedger() *ReservationLedger {
	return &ReservationLedger{items: make(map[reservation.ID]reservation.Reservation)}
}

func (l *ReservationLedger) Overlapping(ctx context.Context, propertyID property.ID, dr daterange.DateRange) ([]reservation.Reservation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	all := make([]reservation.Reservation, 0, len(l.items))
	for _, r := range l.items {
		all = append(all, r)
	}
	out := reservation.Overlapping(all, propertyID, dr)
	sort.Slice(out, func(i, j int) bool { return out[i].Range.CheckIn.Before(out[j].Range.CheckIn) })
	return out, nil
}

func (l *ReservationLedger) ByID(ctx context.Context, id reservation.ID) (*reservation.Reservation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.items[id]
	if !ok {
		return nil, reservation.ErrReservationNotFound
	}
	return &r, nil
}

func (l *ReservationLedger) Upsert(ctx context.Context, r reservation.Reservation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items[r.ID] = r
	return nil
}

func (l *ReservationLedger) Delete(ctx context.Context, id reservation.ID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.items[id]; !ok {
		return reservation.ErrReservationNotFound
	}
	delete(l.items, id)
	return nil
}

type BlockingRepository struct {
	mu    sync.RWMutex
	items map[property.ID][]availability.Blocking
}

func NewBlockingRepository() *BlockingRepository {
	return &BlockingRepository{items: make(map[property.ID][]availability.Blocking)}
}

func (r *BlockingRepository) Overlapping(ctx context.Context, propertyID property.ID, dr daterange.DateRange) ([]availability.Blocking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []availability.Blocking
	for _, b := range r.items[propertyID] {
		if b.Span.Overlaps(dr) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *BlockingRepository) ListByProperty(ctx context.Context, propertyID property.ID) ([]availability.Blocking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]availability.Blocking(nil), r.items[propertyID]...), nil
}

func (r *BlockingRepository) Add(ctx context.Context, b availability.Blocking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[b.PropertyID] = append(r.items[b.PropertyID], b)
	return nil
}

func (r *BlockingRepository) Remove(ctx context.Context, propertyID property.ID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.items[propertyID]
	for i, b := range list {
		if b.ID == id {
			r.items[propertyID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return availability.ErrBlockingNotFound
}

type CalendarRepository struct {
	mu    sync.RWMutex
	items map[ical.CalendarID]ical.ExternalCalendar
}

func NewCalendarRepository() *CalendarRepository {
	return &CalendarRepository{items: make(map[ical.CalendarID]ical.ExternalCalendar)}
}

func (r *CalendarRepository) ByID(ctx context.Context, id ical.CalendarID) (*ical.ExternalCalendar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cal, ok := r.items[id]
	if !ok {
		return nil, ical.ErrCalendarNotFound
	}
	return &cal, nil
}

func (r *CalendarRepository) ListByProperty(ctx context.Context, propertyID property.ID) ([]ical.ExternalCalendar, error) {
	all, _ := r.List(ctx)
	out := all[:0]
	for _, cal := range all {
		if cal.PropertyID == propertyID {
			out = append(out, cal)
		}
	}
	return out, nil
}

// List returns calendars ordered by id.
func (r *CalendarRepository) List(ctx context.Context) ([]ical.ExternalCalendar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ical.ExternalCalendar, 0, len(r.items))
	for _, cal := range r.items {
		out = append(out, cal)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *CalendarRepository) Save(ctx context.Context, cal ical.ExternalCalendar) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[cal.ID] = cal
	return nil
}

// EventRepository is the in-memory external calendar index.
type EventRepository struct {
	mu     sync.RWMutex
	events map[ical.CalendarID][]ical.Event
}

func NewEventRepository() *EventRepository {
	return &EventRepository{events: make(map[ical.CalendarID][]ical.Event)}
}

func (r *EventRepository) ListByCalendar(ctx context.Context, id ical.CalendarID) ([]ical.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ical.Event(nil), r.events[id]...), nil
}

func (r *EventRepository) Overlapping(ctx context.Context, propertyID property.ID, dr daterange.DateRange) ([]ical.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ical.Event
	for _, list := range r.events {
		for _, e := range list {
			if e.PropertyID == propertyID && e.Range.Overlaps(dr) {
				out = append(out, e)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Range.CheckIn.Before(out[j].Range.CheckIn) })
	return out, nil
}

func (r *EventRepository) Apply(ctx context.Context, id ical.CalendarID, diff ical.Diff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[id] = diff.Apply(r.events[id])
	return nil
}

// SyncLogRepository keeps the most recent entries of each calendar.
type SyncLogRepository struct {
	mu      sync.RWMutex
	keep    int
	entries map[ical.CalendarID][]ical.SyncLog
}

func NewSyncLogRepository(keep int) *SyncLogRepository {
	if keep <= 0 {
		keep = 50
	}
	return &SyncLogRepository{keep: keep, entries: make(map[ical.CalendarID][]ical.SyncLog)}
}

func (r *SyncLogRepository) Append(ctx context.Context, entry ical.SyncLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := append(r.entries[entry.CalendarID], entry)
	if len(list) > r.keep {
		list = list[len(list)-r.keep:]
	}
	r.entries[entry.CalendarID] = list
	return nil
}

// Latest returns nil when the calendar was never synced.
func (r *SyncLogRepository) Latest(ctx context.Context, id ical.CalendarID) (*ical.SyncLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.entries[id]
	if len(list) == 0 {
		return nil, nil
	}
	last := list[len(list)-1]
	return &last, nil
}

var (
	_ property.Repository             = (*PropertyRepository)(nil)
	_ timeframe.Store[struct{}]       = (*FrameStore[struct{}])(nil)
	_ reservation.Ledger              = (*ReservationLedger)(nil)
	_ availability.BlockingRepository = (*BlockingRepository)(nil)
	_ ical.CalendarRepository         = (*CalendarRepository)(nil)
	_ ical.EventRepository            = (*EventRepository)(nil)
	_ ical.SyncLogRepository          = (*SyncLogRepository)(nil)
)
