package middleware

import (
	"context"

	"stayquote/internal/app/commands"
	"stayquote/internal/app/outbox"
	"stayquote/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// UnitOwner marks commands whose handler opens its own unit of work, so slow
// outbound calls stay outside any transaction.
type UnitOwner interface {
	OwnsUnitOfWork() bool
}

// Transaction runs each command inside one unit of work. Handlers join it via
// the context; a handler error rolls every write back, property locks included.
// Commands implementing UnitOwner pass through untouched.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (res any, err error) {
			if owner, ok := cmd.(UnitOwner); ok && owner.OwnsUnitOfWork() {
				return next.Dispatch(ctx, cmd)
			}
			var opts uow.TxOptions
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			unit, execCtx, err := uow.Begin(ctx, factory, opts)
			if err != nil {
				return nil, err
			}
			defer func() {
				if err != nil {
					_ = unit.Rollback(execCtx)
				}
			}()
			if res, err = next.Dispatch(execCtx, cmd); err != nil {
				return nil, err
			}
			if err = unit.Commit(execCtx); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}

// OutboxFlush asks box to hand over recorded events once a command succeeded.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}
