// Package bootstrap registers every use case on the command and query buses.
package bootstrap

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stayquote/internal/app/commands"
	blockingsapp "stayquote/internal/app/handlers/blockings"
	calendarapp "stayquote/internal/app/handlers/calendar"
	"stayquote/internal/app/handlers/icalsync"
	quoteapp "stayquote/internal/app/handlers/quote"
	reservationsapp "stayquote/internal/app/handlers/reservations"
	"stayquote/internal/app/handlers/support"
	"stayquote/internal/app/handlers/timeframes"
	"stayquote/internal/app/middleware"
	"stayquote/internal/app/outbox"
	"stayquote/internal/app/policies"
	"stayquote/internal/app/queries"
	"stayquote/internal/app/uow"
	"stayquote/internal/domain/availability"
	domaincalendar "stayquote/internal/domain/calendar"
	"stayquote/internal/domain/pricing"
)

// Ports are the adapters the use cases run against.
type Ports struct {
	UoWFactory  uow.UoWFactory
	Outbox      outbox.Outbox
	Idempotency middleware.IdempotencyStore
	Inbox       policies.Inbox
	Fetcher     policies.ICalFetcher
	Archive     policies.RawBodyStore
	ExportCache policies.ExportCache
}

type Settings struct {
	RefreshInterval time.Duration
	ExportDomain    string
	CalendarMaxDays int
	// RefreshOnQuote re-imports stale external calendars before quoting.
	RefreshOnQuote bool
	Logger         *slog.Logger
	Now            func() time.Time
}

type Application struct {
	Commands  commands.Bus
	Queries   queries.Bus
	Refresher *icalsync.Refresher

	CommandKeys []string
	QueryKeys   []string
}

func Build(p Ports, s Settings) *Application {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	encoder := outbox.JSONEventEncoder{IDGenerator: uuid.NewString}
	checker := availability.NewChecker(now)

	syncer := &icalsync.Syncer{
		UoWFactory: p.UoWFactory,
		Fetcher:    p.Fetcher,
		Archive:    p.Archive,
		Outbox:     p.Outbox,
		Encoder:    encoder,
		Logger:     s.Logger,
		Now:        now,
	}
	refresher := &icalsync.Refresher{
		Syncer:     syncer,
		UoWFactory: p.UoWFactory,
		Interval:   s.RefreshInterval,
		Logger:     s.Logger,
	}

	commandBus := commands.NewInMemoryBus()
	frames := timeframes.Deps{UoWFactory: p.UoWFactory, Outbox: p.Outbox, Encoder: encoder, Logger: s.Logger, Now: now}
	commands.RegisterHandler(commandBus, timeframes.InsertRateCommand{}.Key(), &timeframes.InsertRateHandler{Deps: frames})
	commands.RegisterHandler(commandBus, timeframes.InsertStayRuleCommand{}.Key(), &timeframes.InsertStayRuleHandler{Deps: frames})
	commands.RegisterHandler(commandBus, timeframes.InsertTurnDaysCommand{}.Key(), &timeframes.InsertTurnDaysHandler{Deps: frames})

	blockings := &blockingsapp.Handler{UoWFactory: p.UoWFactory, Outbox: p.Outbox, Encoder: encoder, Logger: s.Logger, Now: now}
	commands.RegisterHandler(commandBus, blockingsapp.AddBlockingCommand{}.Key(), blockingsapp.AddBlockingHandler{Handler: blockings})
	commands.RegisterHandler(commandBus, blockingsapp.RemoveBlockingCommand{}.Key(), blockingsapp.RemoveBlockingHandler{Handler: blockings})

	commands.RegisterHandler(commandBus, reservationsapp.ApplyEventCommand{}.Key(), &reservationsapp.ApplyEventHandler{
		UoWFactory: p.UoWFactory,
		Inbox:      p.Inbox,
		Logger:     s.Logger,
		Now:        now,
	})
	commands.RegisterHandler(commandBus, icalsync.RegisterCalendarCommand{}.Key(), &icalsync.RegisterCalendarHandler{
		UoWFactory: p.UoWFactory,
		Logger:     s.Logger,
		Now:        now,
	})
	commands.RegisterHandler(commandBus, icalsync.SyncCalendarCommand{}.Key(), &icalsync.SyncCalendarHandler{Syncer: syncer})

	queryBus := queries.NewInMemoryBus()
	quoteHandler := &quoteapp.GetQuoteHandler{
		UoWFactory: p.UoWFactory,
		Engine:     pricing.NewEngine(checker),
		Logger:     s.Logger,
	}
	if s.RefreshOnQuote {
		quoteHandler.Refresher = refresher
	}
	queries.RegisterHandler(queryBus, quoteapp.GetQuoteQuery{}.Key(), quoteHandler)
	queries.RegisterHandler(queryBus, quoteapp.CheckAvailabilityQuery{}.Key(), &quoteapp.CheckAvailabilityHandler{
		UoWFactory: p.UoWFactory,
		Checker:    checker,
	})
	queries.RegisterHandler(queryBus, calendarapp.GetCalendarQuery{}.Key(), &calendarapp.GetCalendarHandler{
		UoWFactory: p.UoWFactory,
		Projector:  domaincalendar.NewProjector(checker),
		MaxDays:    s.CalendarMaxDays,
	})
	queries.RegisterHandler(queryBus, icalsync.ExportCalendarQuery{}.Key(), &icalsync.ExportCalendarHandler{
		UoWFactory: p.UoWFactory,
		Cache:      p.ExportCache,
		TTL:        s.RefreshInterval,
		Domain:     s.ExportDomain,
		Logger:     s.Logger,
		Now:        now,
	})

	validator := middleware.NewStructValidator()
	authorizer := support.TenantAuthorizer{UoWFactory: p.UoWFactory}
	commandMWs := []middleware.CommandMiddleware{
		middleware.Validation(validator),
		middleware.Authorization(authorizer),
	}
	if p.Idempotency != nil {
		commandMWs = append(commandMWs, middleware.Idempotency(p.Idempotency, nil))
	}
	commandMWs = append(commandMWs, middleware.Transaction(p.UoWFactory, nil))
	if p.Outbox != nil {
		commandMWs = append(commandMWs, middleware.OutboxFlush(p.Outbox))
	}

	return &Application{
		Commands:    middleware.ChainCommands(commandBus, commandMWs...),
		Queries:     middleware.ChainQueries(queryBus,
			middleware.QueryValidation(validator),
			middleware.QueryAuthorization(authorizer),
		),
		Refresher:   refresher,
		CommandKeys: commandBus.Keys(),
		QueryKeys:   queryBus.Keys(),
	}
}
