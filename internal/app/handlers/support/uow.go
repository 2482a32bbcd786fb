package support

import (
	"context"

	"stayquote/internal/app/uow"
)

// BeginReadOnlyUnit joins the unit carried by ctx or opens a read-only one.
// cleanup is nil when the unit was joined.
func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return unit, ctx, nil, nil
	}
	unit, execCtx, err := uow.Begin(ctx, factory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	return unit, execCtx, func() { _ = unit.Rollback(execCtx) }, nil
}

// BeginWriteUnit reuses a unit from ctx or starts one the caller must finish.
// managed is true when the caller owns commit and rollback.
func BeginWriteUnit(ctx context.Context, factory uow.UoWFactory) (unit uow.UnitOfWork, execCtx context.Context, managed bool, err error) {
	if existing, ok := uow.FromContext(ctx); ok {
		return existing, ctx, false, nil
	}
	unit, execCtx, err = uow.Begin(ctx, factory, uow.TxOptions{})
	if err != nil {
		return nil, ctx, false, err
	}
	return unit, execCtx, true, nil
}
