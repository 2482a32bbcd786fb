package icalsync_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayquote/internal/app/commands"
	"stayquote/internal/app/dto"
	"stayquote/internal/app/handlers/icalsync"
	"stayquote/internal/app/middleware"
	"stayquote/internal/app/uow"
	"stayquote/internal/domain/availability"
	"stayquote/internal/domain/ical"
	"stayquote/internal/domain/shared/daterange"
	"stayquote/internal/infra/fixtures"
	"stayquote/internal/infra/storage/memory"
)

const channelFeed = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//channel//EN\r\n" +
	"BEGIN:VEVENT\r\nUID:stay-1@channel\r\nDTSTAMP:20291201T090000Z\r\n" +
	"DTSTART;VALUE=DATE:20300201\r\nDTEND;VALUE=DATE:20300205\r\nSUMMARY:Channel booking\r\nEND:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

const emptyFeed = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//channel//EN\r\nEND:VCALENDAR\r\n"

type scriptedFetcher struct {
	mu    sync.Mutex
	body  string
	err   error
	calls int
}

func (f *scriptedFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.body), nil
}

func (f *scriptedFetcher) set(body string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.body, f.err = body, err
}

// unitWatcher records whether a unit of work was open while the feed downloaded.
type unitWatcher struct {
	next   *scriptedFetcher
	inUnit bool
}

func (w *unitWatcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if _, ok := uow.FromContext(ctx); ok {
		w.inUnit = true
	}
	return w.next.Fetch(ctx, url)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

type env struct {
	store   *memory.Store
	fetcher *scriptedFetcher
	archive *memory.RawBodyStore
	outbox  *memory.Outbox
	clock   *clock
	syncer  *icalsync.Syncer
}

func newEnv(t *testing.T) env {
	t.Helper()
	c := &clock{t: time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)}
	store := memory.NewStore()
	factory := memory.Factory{Store: store}
	require.NoError(t, fixtures.Seed(context.Background(), factory, fixtures.File{Properties: []fixtures.Property{
		{ID: "loft", Name: "Harbour Loft", Status: "active", Pricing: fixtures.Pricing{Currency: "EUR", NightlyDefault: 100},
			Calendars: []fixtures.Calendar{{ID: "channel", Name: "Channel", URL: "https://channel.example.com/loft.ics"}}},
		{ID: "cabin", Name: "Cabin", Status: "active", Pricing: fixtures.Pricing{Currency: "EUR", NightlyDefault: 80}},
	}}, c.t))
	e := env{
		store:   store,
		fetcher: &scriptedFetcher{body: channelFeed},
		archive: memory.NewRawBodyStore(),
		outbox:  memory.NewOutbox(),
		clock:   c,
	}
	e.syncer = &icalsync.Syncer{
		UoWFactory: factory,
		Fetcher:    e.fetcher,
		Archive:    e.archive,
		Outbox:     e.outbox,
		Now:        c.now,
	}
	return e
}

func (e env) events(t *testing.T) []ical.Event {
	t.Helper()
	evs, err := e.store.Events.ListByCalendar(context.Background(), "channel")
	require.NoError(t, err)
	return evs
}

func TestSyncImportsEventsAndArchivesBody(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.syncer.Sync(ctx, "loft", "channel")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Events)

	evs := e.events(t)
	require.Len(t, evs, 1)
	assert.Equal(t, "stay-1@channel", evs[0].UID)
	assert.Equal(t, "Channel booking", evs[0].Summary)
	assert.Equal(t, 4, evs[0].Range.Nights())

	body, ok, err := e.archive.Latest(ctx, "channel")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, channelFeed, string(body))

	last, err := e.store.SyncLogs.Latest(ctx, "channel")
	require.NoError(t, err)
	assert.True(t, last.Success)
	assert.Len(t, e.outbox.Pending(), 1)

	again, err := e.syncer.Sync(ctx, "loft", "channel")
	require.NoError(t, err)
	assert.Zero(t, again.Inserted+again.Updated+again.Deleted, "same body is a no-op")
}

func TestSyncDownloadsOutsideUnitOfWork(t *testing.T) {
	e := newEnv(t)
	watcher := &unitWatcher{next: e.fetcher}
	e.syncer.Fetcher = watcher

	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, icalsync.SyncCalendarCommand{}.Key(), &icalsync.SyncCalendarHandler{Syncer: e.syncer})
	chain := middleware.ChainCommands(bus, middleware.Transaction(memory.Factory{Store: e.store}, nil))

	res, err := commands.Dispatch[icalsync.SyncCalendarCommand, *dto.CalendarSync](context.Background(), chain,
		icalsync.SyncCalendarCommand{PropertyID: "loft", CalendarID: "channel"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, e.fetcher.calls)
	assert.False(t, watcher.inUnit, "fetch ran inside a transaction")
	assert.Len(t, e.events(t), 1)
}

func TestSyncDeletesVanishedEvents(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.syncer.Sync(ctx, "loft", "channel")
	require.NoError(t, err)
	e.fetcher.set(emptyFeed, nil)

	res, err := e.syncer.Sync(ctx, "loft", "channel")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)
	assert.Empty(t, e.events(t))
}

func TestSyncFailureFallsBackToArchive(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.syncer.Sync(ctx, "loft", "channel")
	require.NoError(t, err)

	e.fetcher.set("", errors.New("connection refused"))
	res, err := e.syncer.Sync(ctx, "loft", "channel")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "connection refused")
	assert.Len(t, e.events(t), 1, "archived body keeps imported events")

	last, err := e.store.SyncLogs.Latest(ctx, "channel")
	require.NoError(t, err)
	assert.False(t, last.Success)
}

func TestSyncFailureWithoutArchiveKeepsEvents(t *testing.T) {
	e := newEnv(t)
	e.fetcher.set("<html>maintenance</html>", nil)

	res, err := e.syncer.Sync(context.Background(), "loft", "channel")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Zero(t, res.Inserted)
	assert.Empty(t, e.events(t))
}

func TestSyncRejectsForeignCalendar(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.syncer.Sync(ctx, "cabin", "channel")
	assert.ErrorIs(t, err, ical.ErrCalendarNotFound)

	_, err = e.syncer.Sync(ctx, "loft", "missing")
	assert.ErrorIs(t, err, ical.ErrCalendarNotFound)
	assert.Zero(t, e.fetcher.calls)
}

func TestRefresherSyncsOnlyStaleCalendars(t *testing.T) {
	e := newEnv(t)
	r := &icalsync.Refresher{Syncer: e.syncer, UoWFactory: memory.Factory{Store: e.store}, Interval: 3 * time.Hour}
	ctx := context.Background()

	r.RefreshStale(ctx, "loft")
	r.RefreshStale(ctx, "loft")
	assert.Equal(t, 1, e.fetcher.calls)

	e.clock.t = e.clock.t.Add(3 * time.Hour)
	require.NoError(t, r.RefreshAll(ctx))
	assert.Equal(t, 2, e.fetcher.calls)

	r.RefreshStale(ctx, "cabin")
	assert.Equal(t, 2, e.fetcher.calls, "cabin has no calendars")
}

func TestExportCachesUntilDataChanges(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.syncer.Sync(ctx, "loft", "channel")
	require.NoError(t, err)

	h := &icalsync.ExportCalendarHandler{
		UoWFactory: memory.Factory{Store: e.store},
		Cache:      memory.NewExportCache(),
		TTL:        time.Hour,
		Domain:     "test.local",
		Now:        e.clock.now,
	}
	first, err := h.Handle(ctx, icalsync.ExportCalendarQuery{PropertyID: "loft"})
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, "loft.ics", first.Filename)
	assert.Contains(t, string(first.Body), "SUMMARY:Channel booking")
	assert.Contains(t, string(first.Body), "@test.local")

	second, err := h.Handle(ctx, icalsync.ExportCalendarQuery{PropertyID: "loft"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Body, second.Body)

	span, err := daterange.NewSpan(time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2030, 3, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, e.store.Blockings.Add(ctx, availability.Blocking{ID: "b-1", PropertyID: "loft", Span: span, Note: "Owner stay", DateUpdated: e.clock.t.Add(time.Minute)}))

	third, err := h.Handle(ctx, icalsync.ExportCalendarQuery{PropertyID: "loft"})
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Contains(t, string(third.Body), "SUMMARY:Owner stay")

	merged, err := h.Handle(ctx, icalsync.ExportCalendarQuery{PropertyID: "loft", Merge: true})
	require.NoError(t, err)
	assert.NotContains(t, string(merged.Body), "SUMMARY:Owner stay")
	assert.Contains(t, string(merged.Body), "SUMMARY:Not available")
}
