package ginserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayquote/internal/app/bootstrap"
	"stayquote/internal/domain/ical"
	"stayquote/internal/infra/fixtures"
	"stayquote/internal/infra/obs"
	"stayquote/internal/infra/storage/memory"
)

var today = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

const feed = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//channel//EN\r\n" +
	"BEGIN:VEVENT\r\nUID:ext-1@channel\r\nDTSTAMP:20291201T090000Z\r\n" +
	"DTSTART;VALUE=DATE:20300301\r\nDTEND;VALUE=DATE:20300304\r\nSUMMARY:Channel booking\r\nEND:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

type stubFetcher struct{ body string }

func (f stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.body == "" {
		return nil, ical.ErrFetch
	}
	return []byte(f.body), nil
}

type harness struct {
	router *gin.Engine
	store  *memory.Store
	outbox *memory.Outbox
}

func newHarness(t *testing.T) harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	factory := memory.Factory{Store: store}
	require.NoError(t, fixtures.Seed(context.Background(), factory, fixtures.File{Properties: []fixtures.Property{{
		ID:           "loft",
		Tenant:       "city-flats",
		Name:         "Harbour Loft",
		Status:       "active",
		Availability: fixtures.Availability{MaxGuests: 4, MinStay: 2},
		Pricing:      fixtures.Pricing{Currency: "EUR"},
		Rates:        []fixtures.Rate{{Bounds: fixtures.Bounds{From: "2030-01-01", To: "2030-06-01"}, Name: "Spring", Nightly: 100}},
		Calendars:    []fixtures.Calendar{{ID: "channel", Name: "Channel", URL: "https://channel.example.com/loft.ics"}},
	}}}, today))

	box := memory.NewOutbox()
	app := bootstrap.Build(bootstrap.Ports{
		UoWFactory:  factory,
		Outbox:      box,
		Idempotency: memory.NewIdempotencyStore(time.Hour),
		Inbox:       memory.NewInbox(),
		Fetcher:     stubFetcher{body: feed},
		Archive:     memory.NewRawBodyStore(),
		ExportCache: memory.NewExportCache(),
	}, bootstrap.Settings{
		CalendarMaxDays: 60,
		Now:             func() time.Time { return today },
	})
	router := NewRouter(obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Quote:            QuoteHandler{Queries: app.Queries},
		Calendar:         CalendarHandler{Queries: app.Queries},
		Frames:           FrameHandler{Commands: app.Commands},
		Blockings:        BlockingHandler{Commands: app.Commands},
		ExternalCalendar: ExternalCalendarHandler{Commands: app.Commands},
	})
	return harness{router: router, store: store, outbox: box}
}

func (h harness) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestQuoteEndpoint(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/api/v1/properties/loft/quote?from=2030-01-10&to=2030-01-13&adults=2", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["available"])
	assert.Equal(t, "300.00", body["totalPrice"])
	assert.Equal(t, "€300.00", body["totalPriceFormatted"])
}

func TestQuoteEndpointErrors(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name    string
		target  string
		headers []string
		status  int
	}{
		{"bad date", "/api/v1/properties/loft/quote?from=10-01-2030", nil, http.StatusBadRequest},
		{"reversed range", "/api/v1/properties/loft/quote?from=2030-01-13&to=2030-01-10", nil, http.StatusBadRequest},
		{"bad integer", "/api/v1/properties/loft/quote?adults=two", nil, http.StatusBadRequest},
		{"negative guests", "/api/v1/properties/loft/quote?from=2030-01-10&to=2030-01-13&adults=-1", nil, http.StatusBadRequest},
		{"unknown property", "/api/v1/properties/nowhere/quote?from=2030-01-10&to=2030-01-13", nil, http.StatusNotFound},
		{"foreign tenant", "/api/v1/properties/loft/quote?from=2030-01-10&to=2030-01-13", []string{obs.HeaderTenantID, "other"}, http.StatusForbidden},
		{"no rate", "/api/v1/properties/loft/quote?from=2030-05-30&to=2030-06-03", nil, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(http.MethodGet, tt.target, "", tt.headers...)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestAvailabilityEndpoint(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/api/v1/properties/loft/availability?from=2030-01-10&to=2030-01-11&guests=6", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["available"])
	conflicts := body["conflicts"].([]any)
	require.Len(t, conflicts, 2)
	assert.Equal(t, "stay", conflicts[0].(map[string]any)["code"])
	assert.Equal(t, "maxGuests", conflicts[1].(map[string]any)["code"])
}

func TestFrameAndBlockingWrites(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/v1/properties/loft/rates",
		`{"start":"2030-01-10","end":"2030-01-12","inclusiveEnd":true,"name":"Festival","nightly":150}`,
		"Idempotency-Key", "rate-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode(t, w)
	assert.Equal(t, float64(0), first["deleted"])
	assert.Equal(t, float64(1), first["updated"], "head of the split season")
	assert.Equal(t, float64(2), first["inserted"], "tail of the split season plus the new frame")

	replay := h.do(http.MethodPost, "/api/v1/properties/loft/rates",
		`{"start":"2030-01-10","end":"2030-01-12","inclusiveEnd":true,"name":"Festival","nightly":150}`,
		"Idempotency-Key", "rate-1")
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, first["frameId"], decode(t, replay)["frameId"])

	w = h.do(http.MethodGet, "/api/v1/properties/loft/quote?from=2030-01-09&to=2030-01-14", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "650.00", decode(t, w)["totalPrice"])

	w = h.do(http.MethodPost, "/api/v1/properties/loft/turn-days", `{"weekdays":[9]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/api/v1/properties/loft/blockings", `{"start":"2030-01-20","end":"2030-01-21","note":"Repairs"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	blockingID := decode(t, w)["blockingId"].(string)

	w = h.do(http.MethodGet, "/api/v1/properties/loft/calendar?from=2030-01-19&count=4", "")
	require.Equal(t, http.StatusOK, w.Code)
	days := decode(t, w)["calendar"].([]any)
	require.Len(t, days, 4)
	assert.Equal(t, true, days[0].(map[string]any)["available"])
	assert.Equal(t, false, days[1].(map[string]any)["available"])
	assert.Equal(t, false, days[2].(map[string]any)["available"])
	assert.Equal(t, true, days[3].(map[string]any)["available"])

	w = h.do(http.MethodDelete, "/api/v1/properties/loft/blockings/"+blockingID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = h.do(http.MethodDelete, "/api/v1/properties/loft/blockings/"+blockingID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.NotEmpty(t, h.outbox.Pending(), "writes record domain events")
}

func TestCalendarCountValidation(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/api/v1/properties/loft/calendar?count=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodGet, "/api/v1/properties/loft/calendar?count=1000", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(60), decode(t, w)["count"])
}

func TestExternalCalendarSyncAndExport(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/v1/properties/loft/external-calendars/channel/sync", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sync := decode(t, w)
	assert.Equal(t, true, sync["success"])
	assert.Equal(t, float64(1), sync["inserted"])

	w = h.do(http.MethodPost, "/api/v1/properties/loft/external-calendars/missing/sync", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodGet, "/api/v1/properties/loft/availability?from=2030-03-02&to=2030-03-05", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["available"])

	w = h.do(http.MethodGet, "/api/v1/properties/loft/calendar.ics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get(headerCache))
	assert.Contains(t, w.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, w.Body.String(), "SUMMARY:Channel booking")

	w = h.do(http.MethodGet, "/api/v1/properties/loft/calendar.ics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get(headerCache))
}

func TestRegisterExternalCalendarValidatesURL(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/v1/properties/loft/external-calendars", `{"name":"Airbnb","url":"not a url"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/api/v1/properties/loft/external-calendars", `{"name":"Airbnb","url":"https://example.com/a.ics"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, decode(t, w)["id"])
}
