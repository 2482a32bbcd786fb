package blockings

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stayquote/internal/app/commands"
	"stayquote/internal/app/dto"
	"stayquote/internal/app/handlers/support"
	"stayquote/internal/app/middleware"
	"stayquote/internal/app/outbox"
	"stayquote/internal/app/uow"
	"stayquote/internal/domain/availability"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/shared/daterange"
	"stayquote/internal/domain/shared/events"
)

const (
	addBlockingKey    = "blockings.add"
	removeBlockingKey = "blockings.remove"
)

var ErrUnitOfWorkRequired = errors.New("blockings: unit of work required")

// AddBlockingCommand takes inclusive bounds as operators enter them; zero bounds are open.
type AddBlockingCommand struct {
	PropertyID      string `validate:"required"`
	TenantID        string
	Start           time.Time
	End             time.Time
	Note            string `validate:"max=500"`
	IdempotencyKeyV string
}

func (c AddBlockingCommand) Key() string            { return addBlockingKey }
func (c AddBlockingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (c AddBlockingCommand) ResultPrototype() any   { return &dto.BlockingResult{} }
func (c AddBlockingCommand) TenantScope() (property.ID, property.TenantID) {
	return property.ID(c.PropertyID), property.TenantID(c.TenantID)
}

type RemoveBlockingCommand struct {
	PropertyID string `validate:"required"`
	TenantID   string
	BlockingID string `validate:"required"`
}

func (c RemoveBlockingCommand) Key() string { return removeBlockingKey }
func (c RemoveBlockingCommand) TenantScope() (property.ID, property.TenantID) {
	return property.ID(c.PropertyID), property.TenantID(c.TenantID)
}

type Handler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}

type AddBlockingHandler struct{ *Handler }
type RemoveBlockingHandler struct{ *Handler }

func (h AddBlockingHandler) Handle(ctx context.Context, cmd AddBlockingCommand) (*dto.BlockingResult, error) {
	span, err := daterange.FromInclusive(cmd.Start, cmd.End)
	if err != nil {
		return nil, err
	}
	b := availability.Blocking{
		ID:          uuid.NewString(),
		PropertyID:  property.ID(cmd.PropertyID),
		Span:        span,
		Note:        cmd.Note,
		DateUpdated: h.now(),
	}
	err = h.write(ctx, b.PropertyID, func(ctx context.Context, unit uow.UnitOfWork, rec *events.EventRecorder) error {
		if err := unit.Blockings().Add(ctx, b); err != nil {
			return err
		}
		rec.Record(availability.BlockingAdded{PropertyID: cmd.PropertyID, BlockingID: b.ID, Lower: span.Lower, Upper: span.Upper, At: b.DateUpdated})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("blocking added", "property_id", cmd.PropertyID, "blocking_id", b.ID, "span", span.String())
	}
	return &dto.BlockingResult{BlockingID: b.ID, Start: daterange.Format(span.Lower), End: daterange.Format(span.Upper)}, nil
}

func (h RemoveBlockingHandler) Handle(ctx context.Context, cmd RemoveBlockingCommand) (*dto.BlockingResult, error) {
	id := property.ID(cmd.PropertyID)
	err := h.write(ctx, id, func(ctx context.Context, unit uow.UnitOfWork, rec *events.EventRecorder) error {
		if err := unit.Blockings().Remove(ctx, id, cmd.BlockingID); err != nil {
			return err
		}
		rec.Record(availability.BlockingRemoved{PropertyID: cmd.PropertyID, BlockingID: cmd.BlockingID, At: h.now()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto.BlockingResult{BlockingID: cmd.BlockingID}, nil
}

// write runs fn under the property lock and records its events to the outbox.
func (h *Handler) write(ctx context.Context, id property.ID, fn func(context.Context, uow.UnitOfWork, *events.EventRecorder) error) error {
	unit, execCtx, managed, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		if errors.Is(err, uow.ErrUnitOfWorkMissing) {
			return ErrUnitOfWorkRequired
		}
		return err
	}
	committed := false
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(execCtx)
			}
		}()
	}
	if _, err := unit.Properties().ByID(execCtx, id); err != nil {
		return err
	}
	if err := unit.LockProperty(execCtx, id); err != nil {
		return err
	}
	var recorder events.EventRecorder
	if err := fn(execCtx, unit, &recorder); err != nil {
		return err
	}
	if err := outbox.RecordDomainEvents(execCtx, h.Outbox, h.encoder(), recorder.Drain()); err != nil {
		return err
	}
	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return err
		}
		committed = true
	}
	return nil
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h *Handler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{IDGenerator: uuid.NewString}
}

var (
	_ commands.Handler[AddBlockingCommand, *dto.BlockingResult]    = AddBlockingHandler{}
	_ commands.Handler[RemoveBlockingCommand, *dto.BlockingResult] = RemoveBlockingHandler{}
	_ middleware.IdempotentCommand                                  = AddBlockingCommand{}
)
