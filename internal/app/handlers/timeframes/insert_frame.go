package timeframes

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stayquote/internal/app/dto"
	"stayquote/internal/app/handlers/support"
	"stayquote/internal/app/outbox"
	"stayquote/internal/app/uow"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/shared/daterange"
	"stayquote/internal/domain/shared/events"
	"stayquote/internal/domain/timeframe"
)

var ErrUnitOfWorkRequired = errors.New("timeframes: unit of work required")

// FrameBounds carries the wire bounds of a frame. Upper is inclusive when
// InclusiveUpper is set; zero bounds are open.
type FrameBounds struct {
	Lower          time.Time
	Upper          time.Time
	InclusiveUpper bool
}

func (b FrameBounds) Span() (daterange.Span, error) {
	if b.InclusiveUpper {
		return daterange.FromInclusive(b.Lower, b.Upper)
	}
	return daterange.NewSpan(b.Lower, b.Upper)
}

// Deps are shared by the frame insert handlers.
type Deps struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
	NewID      func() string
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d Deps) newID() string {
	if d.NewID != nil {
		return d.NewID()
	}
	return uuid.NewString()
}

func (d Deps) encoder() outbox.EventEncoder {
	if d.Encoder != nil {
		return d.Encoder
	}
	return outbox.JSONEventEncoder{IDGenerator: uuid.NewString}
}

// insert runs the mutator against one collection under the property lock.
func insert[T any](ctx context.Context, d Deps, kind timeframe.Kind, store func(uow.UnitOfWork) timeframe.Store[T], propertyID string, bounds FrameBounds, payload T) (*dto.FrameChanges, error) {
	span, err := bounds.Span()
	if err != nil {
		return nil, err
	}
	unit, execCtx, managed, err := support.BeginWriteUnit(ctx, d.UoWFactory)
	if err != nil {
		if errors.Is(err, uow.ErrUnitOfWorkMissing) {
			return nil, ErrUnitOfWorkRequired
		}
		return nil, err
	}
	committed := false
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(execCtx)
			}
		}()
	}

	id := property.ID(propertyID)
	if _, err := unit.Properties().ByID(execCtx, id); err != nil {
		return nil, err
	}
	if err := unit.LockProperty(execCtx, id); err != nil {
		return nil, err
	}
	existing, err := store(unit).ListByProperty(execCtx, id)
	if err != nil {
		return nil, err
	}

	now := d.now()
	frame := timeframe.Frame[T]{ID: d.newID(), PropertyID: id, Span: span, Payload: payload}
	changes := timeframe.Plan(existing, frame, d.newID, now)
	if err := store(unit).Apply(execCtx, id, changes); err != nil {
		return nil, err
	}

	var recorder events.EventRecorder
	inserted := changes.Inserted[len(changes.Inserted)-1]
	recorder.Record(timeframe.InsertedEvent(kind, inserted, changes, now))
	if err := outbox.RecordDomainEvents(execCtx, d.Outbox, d.encoder(), recorder.Drain()); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return nil, err
		}
		committed = true
	}
	if d.Logger != nil {
		d.Logger.Info("time frame inserted",
			"property_id", propertyID,
			"kind", string(kind),
			"span", span.String(),
			"deleted", len(changes.Deleted),
			"updated", len(changes.Updated))
	}
	return &dto.FrameChanges{
		FrameID:  inserted.ID,
		Deleted:  len(changes.Deleted),
		Updated:  len(changes.Updated),
		Inserted: len(changes.Inserted),
	}, nil
}
