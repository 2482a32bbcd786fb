package quote

import (
	"context"
	"log/slog"
	"time"

	"stayquote/internal/app/dto"
	"stayquote/internal/app/handlers/support"
	"stayquote/internal/app/policies"
	"stayquote/internal/app/queries"
	"stayquote/internal/app/uow"
	"stayquote/internal/domain/pricing"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/shared/daterange"
)

const (
	getQuoteKey = "quote.get"

	// DefaultStayDays is the stay length assumed when no departure is given.
	DefaultStayDays = 30
)

type GetQuoteQuery struct {
	PropertyID         string `validate:"required"`
	TenantID           string
	From               time.Time
	To                 time.Time
	Adults             int `validate:"gte=0"`
	Children           int `validate:"gte=0"`
	Pets               int `validate:"gte=0"`
	AlwaysIncludeQuote bool
}

func (q GetQuoteQuery) Key() string { return getQuoteKey }

func (q GetQuoteQuery) TenantScope() (property.ID, property.TenantID) {
	return property.ID(q.PropertyID), property.TenantID(q.TenantID)
}

type GetQuoteHandler struct {
	UoWFactory uow.UoWFactory
	Engine     pricing.Engine
	Refresher  policies.CalendarRefresher
	Logger     *slog.Logger
}

func (h *GetQuoteHandler) Handle(ctx context.Context, q GetQuoteQuery) (dto.Quote, error) {
	dr, err := stayRange(q.From, q.To, h.Engine.Checker.Now)
	if err != nil {
		return dto.Quote{}, err
	}
	if h.Refresher != nil {
		h.Refresher.RefreshStale(ctx, q.PropertyID)
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Quote{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	snap, err := support.LoadSnapshot(execCtx, unit, property.ID(q.PropertyID), dr)
	if err != nil {
		return dto.Quote{}, err
	}

	result, err := h.Engine.Quote(pricing.Input{
		Snapshot:           snap.Snapshot,
		Rates:              snap.Rates,
		Range:              dr,
		Occupancy:          pricing.Occupancy{Adults: q.Adults, Children: q.Children, Pets: q.Pets},
		AlwaysIncludeQuote: q.AlwaysIncludeQuote,
	})
	if err != nil {
		return dto.Quote{}, err
	}
	if result.RateMissing && h.Logger != nil {
		h.Logger.Info("quote without complete rate table",
			"property_id", q.PropertyID,
			"arrival", daterange.Format(dr.CheckIn),
			"departure", daterange.Format(dr.CheckOut))
	}
	return dto.MapQuote(result), nil
}

// stayRange applies request defaults: arrival today, departure thirty days after today.
func stayRange(from, to time.Time, now func() time.Time) (daterange.DateRange, error) {
	if now == nil {
		now = time.Now
	}
	today := daterange.Truncate(now())
	if from.IsZero() {
		from = today
	}
	if to.IsZero() {
		to = today.AddDate(0, 0, DefaultStayDays)
	}
	return daterange.New(from, to)
}

var _ queries.Handler[GetQuoteQuery, dto.Quote] = (*GetQuoteHandler)(nil)
