package timeframes

import (
	"context"

	"stayquote/internal/app/commands"
	"stayquote/internal/app/dto"
	"stayquote/internal/app/middleware"
	"stayquote/internal/app/uow"
	"stayquote/internal/domain/availability"
	"stayquote/internal/domain/pricing"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/timeframe"
)

const (
	insertRateKey     = "timeframes.rate.insert"
	insertStayRuleKey = "timeframes.availability.insert"
	insertTurnDaysKey = "timeframes.turndays.insert"
)

type InsertRateCommand struct {
	PropertyID      string `validate:"required"`
	TenantID        string
	Bounds          FrameBounds
	Rate            pricing.Rate
	IdempotencyKeyV string
}

func (c InsertRateCommand) Key() string            { return insertRateKey }
func (c InsertRateCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (c InsertRateCommand) ResultPrototype() any   { return &dto.FrameChanges{} }
func (c InsertRateCommand) TenantScope() (property.ID, property.TenantID) {
	return property.ID(c.PropertyID), property.TenantID(c.TenantID)
}

type InsertRateHandler struct {
	Deps
}

func (h *InsertRateHandler) Handle(ctx context.Context, cmd InsertRateCommand) (*dto.FrameChanges, error) {
	if err := cmd.Rate.Validate(); err != nil {
		return nil, err
	}
	return insert(ctx, h.Deps, timeframe.KindRate, func(u uow.UnitOfWork) timeframe.Store[pricing.Rate] {
		return u.Rates()
	}, cmd.PropertyID, cmd.Bounds, cmd.Rate)
}

type InsertStayRuleCommand struct {
	PropertyID      string `validate:"required"`
	TenantID        string
	Bounds          FrameBounds
	Rule            availability.StayRule
	IdempotencyKeyV string
}

func (c InsertStayRuleCommand) Key() string            { return insertStayRuleKey }
func (c InsertStayRuleCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (c InsertStayRuleCommand) ResultPrototype() any   { return &dto.FrameChanges{} }
func (c InsertStayRuleCommand) TenantScope() (property.ID, property.TenantID) {
	return property.ID(c.PropertyID), property.TenantID(c.TenantID)
}

type InsertStayRuleHandler struct {
	Deps
}

func (h *InsertStayRuleHandler) Handle(ctx context.Context, cmd InsertStayRuleCommand) (*dto.FrameChanges, error) {
	if err := cmd.Rule.Validate(); err != nil {
		return nil, err
	}
	return insert(ctx, h.Deps, timeframe.KindStayRule, func(u uow.UnitOfWork) timeframe.Store[availability.StayRule] {
		return u.StayRules()
	}, cmd.PropertyID, cmd.Bounds, cmd.Rule)
}

type InsertTurnDaysCommand struct {
	PropertyID      string `validate:"required"`
	TenantID        string
	Bounds          FrameBounds
	Weekdays        []int `validate:"dive,gte=0,lte=6"`
	IdempotencyKeyV string
}

func (c InsertTurnDaysCommand) Key() string            { return insertTurnDaysKey }
func (c InsertTurnDaysCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (c InsertTurnDaysCommand) ResultPrototype() any   { return &dto.FrameChanges{} }
func (c InsertTurnDaysCommand) TenantScope() (property.ID, property.TenantID) {
	return property.ID(c.PropertyID), property.TenantID(c.TenantID)
}

type InsertTurnDaysHandler struct {
	Deps
}

func (h *InsertTurnDaysHandler) Handle(ctx context.Context, cmd InsertTurnDaysCommand) (*dto.FrameChanges, error) {
	days, err := availability.NewTurnDays(cmd.Weekdays...)
	if err != nil {
		return nil, err
	}
	return insert(ctx, h.Deps, timeframe.KindTurnDays, func(u uow.UnitOfWork) timeframe.Store[availability.TurnDays] {
		return u.TurnDays()
	}, cmd.PropertyID, cmd.Bounds, days)
}

var (
	_ commands.Handler[InsertRateCommand, *dto.FrameChanges]     = (*InsertRateHandler)(nil)
	_ commands.Handler[InsertStayRuleCommand, *dto.FrameChanges] = (*InsertStayRuleHandler)(nil)
	_ commands.Handler[InsertTurnDaysCommand, *dto.FrameChanges] = (*InsertTurnDaysHandler)(nil)
	_ middleware.IdempotentCommand                               = InsertRateCommand{}
	_ middleware.IdempotentCommand                               = InsertStayRuleCommand{}
	_ middleware.IdempotentCommand                               = InsertTurnDaysCommand{}
)
