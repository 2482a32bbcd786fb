package support

import (
	"context"

	"stayquote/internal/app/middleware"
	"stayquote/internal/app/uow"
	"stayquote/internal/domain/property"
)

// TenantScoped is implemented by messages addressed to one property on behalf of a tenant.
type TenantScoped interface {
	TenantScope() (property.ID, property.TenantID)
}

// TenantAuthorizer rejects messages whose tenant does not own the property.
type TenantAuthorizer struct {
	UoWFactory uow.UoWFactory
}

func (a TenantAuthorizer) Authorize(ctx context.Context, message any) error {
	scoped, ok := message.(TenantScoped)
	if !ok {
		return nil
	}
	id, tenant := scoped.TenantScope()
	if tenant == "" {
		return nil
	}
	unit, execCtx, cleanup, err := BeginReadOnlyUnit(ctx, a.UoWFactory)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}
	p, err := unit.Properties().ByID(execCtx, id)
	if err != nil {
		return err
	}
	return p.Authorize(tenant)
}

var _ middleware.Authorizer = TenantAuthorizer{}
