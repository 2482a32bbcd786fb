package timeframes_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayquote/internal/app/handlers/timeframes"
	"stayquote/internal/domain/availability"
	"stayquote/internal/domain/pricing"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/shared/daterange"
	"stayquote/internal/infra/fixtures"
	"stayquote/internal/infra/storage/memory"
)

func day(s string) time.Time {
	d, err := daterange.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func setup(t *testing.T) (timeframes.Deps, *memory.Store, *memory.Outbox) {
	t.Helper()
	store := memory.NewStore()
	factory := memory.Factory{Store: store}
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, fixtures.Seed(context.Background(), factory, fixtures.File{Properties: []fixtures.Property{{
		ID: "loft", Status: "active", Pricing: fixtures.Pricing{Currency: "EUR"},
		Rates: []fixtures.Rate{{Bounds: fixtures.Bounds{From: "2030-01-01", To: "2030-02-01"}, Name: "January", Nightly: 100}},
	}}}, now))
	box := memory.NewOutbox()
	return timeframes.Deps{UoWFactory: factory, Outbox: box, Now: func() time.Time { return now }}, store, box
}

func TestInsertRateSplitsCoveringFrame(t *testing.T) {
	deps, store, box := setup(t)
	h := &timeframes.InsertRateHandler{Deps: deps}

	res, err := h.Handle(context.Background(), timeframes.InsertRateCommand{
		PropertyID: "loft",
		Bounds:     timeframes.FrameBounds{Lower: day("2030-01-10"), Upper: day("2030-01-12"), InclusiveUpper: true},
		Rate:       pricing.Rate{Name: "Festival", Nightly: 15000},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Deleted)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 2, res.Inserted)

	frames, err := store.Rates.ListByProperty(context.Background(), "loft")
	require.NoError(t, err)
	got := map[string]string{}
	for _, f := range frames {
		got[f.Span.String()] = f.Payload.Name
	}
	assert.Equal(t, map[string]string{
		"[2030-01-01, 2030-01-10)": "January",
		"[2030-01-10, 2030-01-13)": "Festival",
		"[2030-01-13, 2030-02-01)": "January",
	}, got)
	assert.Len(t, box.Pending(), 1)
}

func TestInsertFrameErrors(t *testing.T) {
	deps, _, box := setup(t)
	ctx := context.Background()
	bounds := timeframes.FrameBounds{Lower: day("2030-01-10"), Upper: day("2030-01-12")}

	_, err := (&timeframes.InsertRateHandler{Deps: deps}).Handle(ctx, timeframes.InsertRateCommand{PropertyID: "nowhere", Bounds: bounds})
	assert.ErrorIs(t, err, property.ErrPropertyNotFound)

	_, err = (&timeframes.InsertRateHandler{Deps: deps}).Handle(ctx, timeframes.InsertRateCommand{PropertyID: "loft", Bounds: bounds, Rate: pricing.Rate{Nightly: -1}})
	assert.ErrorIs(t, err, property.ErrNegativeValue)

	_, err = (&timeframes.InsertTurnDaysHandler{Deps: deps}).Handle(ctx, timeframes.InsertTurnDaysCommand{PropertyID: "loft", Bounds: bounds, Weekdays: []int{7}})
	assert.ErrorIs(t, err, availability.ErrInvalidWeekday)

	reversed := timeframes.FrameBounds{Lower: day("2030-01-12"), Upper: day("2030-01-10")}
	_, err = (&timeframes.InsertStayRuleHandler{Deps: deps}).Handle(ctx, timeframes.InsertStayRuleCommand{PropertyID: "loft", Bounds: reversed, Rule: availability.StayRule{MinStay: 2}})
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)

	assert.Empty(t, box.Pending())
}

func TestInsertDefaultFrameReplacesDefault(t *testing.T) {
	deps, store, _ := setup(t)
	h := &timeframes.InsertStayRuleHandler{Deps: deps}
	ctx := context.Background()

	_, err := h.Handle(ctx, timeframes.InsertStayRuleCommand{PropertyID: "loft", Rule: availability.StayRule{MinStay: 2}})
	require.NoError(t, err)
	res, err := h.Handle(ctx, timeframes.InsertStayRuleCommand{PropertyID: "loft", Rule: availability.StayRule{MinStay: 3}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)

	frames, err := store.StayRules.ListByProperty(ctx, "loft")
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, 3, frames[0].Payload.MinStay)
}

func TestConcurrentInsertsKeepFramesDisjoint(t *testing.T) {
	deps, store, _ := setup(t)
	h := &timeframes.InsertRateHandler{Deps: deps}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := day("2030-01-05").AddDate(0, 0, i)
			_, err := h.Handle(context.Background(), timeframes.InsertRateCommand{
				PropertyID: "loft",
				Bounds:     timeframes.FrameBounds{Lower: start, Upper: start.AddDate(0, 0, 3)},
				Rate:       pricing.Rate{Name: fmt.Sprintf("r%d", i), Nightly: int64(100 + i)},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	frames, err := store.Rates.ListByProperty(context.Background(), "loft")
	require.NoError(t, err)
	for i := range frames {
		for j := i + 1; j < len(frames); j++ {
			assert.False(t, frames[i].Span.OverlapsSpan(frames[j].Span), "%s overlaps %s", frames[i].Span, frames[j].Span)
		}
	}
}
