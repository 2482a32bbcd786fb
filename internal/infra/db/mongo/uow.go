package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"

	"stayquote/internal/app/uow"
	"stayquote/internal/domain/availability"
	"stayquote/internal/domain/ical"
	"stayquote/internal/domain/pricing"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/reservation"
	"stayquote/internal/domain/timeframe"
)

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Repositories are stateless collection wrappers shared by every unit.
type Repositories struct {
	Properties   *PropertyRepository
	Rates        *FrameStore[pricing.Rate]
	StayRules    *FrameStore[availability.StayRule]
	TurnDays     *FrameStore[availability.TurnDays]
	Blockings    *BlockingRepository
	Reservations *ReservationLedger
	Calendars    *CalendarRepository
	Events       *EventRepository
	SyncLogs     *SyncLogRepository
	locks        *mongo.Collection
}

func NewRepositories(db *mongo.Database) *Repositories {
	return &Repositories{
		Properties:   NewPropertyRepository(db),
		Rates:        NewFrameStore[pricing.Rate](db, timeframe.KindRate),
		StayRules:    NewFrameStore[availability.StayRule](db, timeframe.KindStayRule),
		TurnDays:     NewFrameStore[availability.TurnDays](db, timeframe.KindTurnDays),
		Blockings:    NewBlockingRepository(db),
		Reservations: NewReservationLedger(db),
		Calendars:    NewCalendarRepository(db),
		Events:       NewEventRepository(db),
		SyncLogs:     NewSyncLogRepository(db),
		locks:        db.Collection("property_locks"),
	}
}

// EnsureIndexes creates the query indexes. It must run outside a transaction.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	spanIdx := []mongo.IndexModel{{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "span.lower", Value: 1}}}}
	rangeIdx := []mongo.IndexModel{{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "range.check_in", Value: 1}}}}
	plan := []struct {
		collection string
		models     []mongo.IndexModel
	}{
		{"frames_" + string(timeframe.KindRate), spanIdx},
		{"frames_" + string(timeframe.KindStayRule), spanIdx},
		{"frames_" + string(timeframe.KindTurnDays), spanIdx},
		{"blockings", spanIdx},
		{"reservations", rangeIdx},
		{"external_calendar_events", append(rangeIdx, mongo.IndexModel{Keys: bson.D{{Key: "calendar_id", Value: 1}}})},
		{"external_calendars", []mongo.IndexModel{{Keys: bson.D{{Key: "property_id", Value: 1}}}}},
		{"external_calendar_sync_logs", []mongo.IndexModel{{Keys: bson.D{{Key: "calendar_id", Value: 1}, {Key: "at", Value: -1}}}}},
	}
	for _, p := range plan {
		if _, err := db.Collection(p.collection).Indexes().CreateMany(ctx, p.models); err != nil {
			return err
		}
	}
	return nil
}

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB    *mongo.Database
	Repos *Repositories
}

// Begin starts a session and transaction. Read-only units read at snapshot concern.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil || f.Repos == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if opts.ReadOnly {
		txnOpts = txnOpts.SetReadConcern(readconcern.Snapshot())
	}
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{session: session, repos: f.Repos, readOnly: opts.ReadOnly}, nil
}

type Unit struct {
	session  mongo.Session
	repos    *Repositories
	readOnly bool
}

func (u *Unit) Properties() property.Repository { return u.repos.Properties }
func (u *Unit) Rates() pricing.RateStore { return u.repos.Rates }
func (u *Unit) StayRules() availability.StayRuleStore { return u.repos.StayRules }
func (u *Unit) TurnDays() availability.TurnDayStore { return u.repos.TurnDays }
func (u *Unit) Blockings() availability.BlockingRepository { return u.repos.Blockings }
func (u *Unit) Reservations() reservation.Ledger { return u.repos.Reservations }
func (u *Unit) Calendars() ical.CalendarRepository { return u.repos.Calendars }
func (u *Unit) CalendarEvents() ical.EventRepository { return u.repos.Events }
func (u *Unit) SyncLogs() ical.SyncLogRepository { return u.repos.SyncLogs }

// LockProperty writes the property's lock document inside the transaction.
// A concurrent writer touching the same document gets a write conflict and
// its transaction aborts.
func (u *Unit) LockProperty(ctx context.Context, id property.ID) error {
	if u.readOnly {
		return uow.ErrReadOnly
	}
	_, err := u.repos.locks.UpdateOne(ctx,
		bson.M{"_id": string(id)},
		bson.M{"$inc": bson.M{"version": 1}, "$set": bson.M{"locked_at": time.Now().UTC()}},
		options.Update().SetUpsert(true))
	return err
}

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext binds the session so repositories join the transaction.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var (
	_ uow.UoWFactory = Factory{}
	_ uow.UnitOfWork      = (*Unit)(nil)
	_ uow.ContextInjector = (*Unit)(nil)
)
