package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayquote/internal/app/commands"
	"stayquote/internal/app/dto"
	"stayquote/internal/app/handlers/timeframes"
	"stayquote/internal/domain/availability"
	"stayquote/internal/domain/pricing"
	"stayquote/internal/domain/shared/money"
)

// boundsRequest is shared by frame writes. Empty dates are open bounds and
// end is exclusive unless inclusiveEnd is set.
type boundsRequest struct {
	Start        string `json:"start"`
	End          string `json:"end"`
	InclusiveEnd bool   `json:"inclusiveEnd"`
}

func (r boundsRequest) bounds() (timeframes.FrameBounds, error) {
	lower, err := optionalDate(r.Start)
	if err != nil {
		return timeframes.FrameBounds{}, err
	}
	upper, err := optionalDate(r.End)
	if err != nil {
		return timeframes.FrameBounds{}, err
	}
	return timeframes.FrameBounds{Lower: lower, Upper: upper, InclusiveUpper: r.InclusiveEnd}, nil
}

// rateRequest amounts are major units.
type rateRequest struct {
	boundsRequest
	Name           string  `json:"name"`
	Nightly        float64 `json:"nightly"`
	Weekend        float64 `json:"weekend"`
	Weekly         float64 `json:"weekly"`
	Monthly        float64 `json:"monthly"`
	ExtraPersonFee float64 `json:"extraPersonFee"`
	Seasonal       bool    `json:"seasonal"`
}

type stayRuleRequest struct {
	boundsRequest
	MinStay       int `json:"minStay"`
	MaxStay       int `json:"maxStay"`
	AdvanceNotice int `json:"advanceNotice"`
	Preparation   int `json:"preparation"`
}

type turnDaysRequest struct {
	boundsRequest
	Weekdays []int `json:"weekdays"`
}

type FrameHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

func (h FrameHandler) InsertRate(c *gin.Context) {
	var req rateRequest
	if !bindJSON(c, &req) {
		return
	}
	bounds, err := req.bounds()
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	cmd := timeframes.InsertRateCommand{
		PropertyID: c.Param("id"),
		TenantID:   tenantID(c),
		Bounds:     bounds,
		Rate: pricing.Rate{
			Name:           req.Name,
			Nightly:        majorToMinor(req.Nightly),
			Weekend:        majorToMinor(req.Weekend),
			Weekly:         majorToMinor(req.Weekly),
			Monthly:        majorToMinor(req.Monthly),
			ExtraPersonFee: majorToMinor(req.ExtraPersonFee),
			Seasonal:       req.Seasonal,
		},
		IdempotencyKeyV: idempotencyKey(c),
	}
	result, err := commands.Dispatch[timeframes.InsertRateCommand, *dto.FrameChanges](c.Request.Context(), h.Commands, cmd)
	h.respond(c, result, err)
}

func (h FrameHandler) InsertAvailability(c *gin.Context) {
	var req stayRuleRequest
	if !bindJSON(c, &req) {
		return
	}
	bounds, err := req.bounds()
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	cmd := timeframes.InsertStayRuleCommand{
		PropertyID: c.Param("id"),
		TenantID:   tenantID(c),
		Bounds:     bounds,
		Rule: availability.StayRule{
			MinStay:       req.MinStay,
			MaxStay:       req.MaxStay,
			AdvanceNotice: req.AdvanceNotice,
			Preparation:   req.Preparation,
		},
		IdempotencyKeyV: idempotencyKey(c),
	}
	result, err := commands.Dispatch[timeframes.InsertStayRuleCommand, *dto.FrameChanges](c.Request.Context(), h.Commands, cmd)
	h.respond(c, result, err)
}

func (h FrameHandler) InsertTurnDays(c *gin.Context) {
	var req turnDaysRequest
	if !bindJSON(c, &req) {
		return
	}
	bounds, err := req.bounds()
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	cmd := timeframes.InsertTurnDaysCommand{
		PropertyID:      c.Param("id"),
		TenantID:        tenantID(c),
		Bounds:          bounds,
		Weekdays:        req.Weekdays,
		IdempotencyKeyV: idempotencyKey(c),
	}
	result, err := commands.Dispatch[timeframes.InsertTurnDaysCommand, *dto.FrameChanges](c.Request.Context(), h.Commands, cmd)
	h.respond(c, result, err)
}

func (h FrameHandler) respond(c *gin.Context, result *dto.FrameChanges, err error) {
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return false
	}
	return true
}

func majorToMinor(v float64) int64 {
	return money.FromMajor(v, "").Amount
}

var _ FrameHTTP = FrameHandler{}
