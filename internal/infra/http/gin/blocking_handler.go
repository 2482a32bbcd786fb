package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayquote/internal/app/commands"
	"stayquote/internal/app/dto"
	"stayquote/internal/app/handlers/blockings"
)

// addBlockingRequest takes inclusive dates; either may be empty for an open end.
type addBlockingRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Note  string `json:"note"`
}

type BlockingHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

func (h BlockingHandler) Add(c *gin.Context) {
	var req addBlockingRequest
	if !bindJSON(c, &req) {
		return
	}
	start, err := optionalDate(req.Start)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	end, err := optionalDate(req.End)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	cmd := blockings.AddBlockingCommand{
		PropertyID:      c.Param("id"),
		TenantID:        tenantID(c),
		Start:           start,
		End:             end,
		Note:            req.Note,
		IdempotencyKeyV: idempotencyKey(c),
	}
	result, err := commands.Dispatch[blockings.AddBlockingCommand, *dto.BlockingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BlockingHandler) Remove(c *gin.Context) {
	cmd := blockings.RemoveBlockingCommand{
		PropertyID: c.Param("id"),
		TenantID:   tenantID(c),
		BlockingID: c.Param("blockingId"),
	}
	if _, err := commands.Dispatch[blockings.RemoveBlockingCommand, *dto.BlockingResult](c.Request.Context(), h.Commands, cmd); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

var _ BlockingHTTP = BlockingHandler{}
