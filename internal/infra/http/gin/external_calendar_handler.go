package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayquote/internal/app/commands"
	"stayquote/internal/app/dto"
	"stayquote/internal/app/handlers/icalsync"
)

type registerCalendarRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type ExternalCalendarHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

func (h ExternalCalendarHandler) Register(c *gin.Context) {
	var req registerCalendarRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd := icalsync.RegisterCalendarCommand{
		PropertyID:      c.Param("id"),
		TenantID:        tenantID(c),
		Name:            req.Name,
		URL:             req.URL,
		IdempotencyKeyV: idempotencyKey(c),
	}
	result, err := commands.Dispatch[icalsync.RegisterCalendarCommand, *dto.ExternalCalendar](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Sync answers 200 even when the fetch failed; the body carries success=false.
func (h ExternalCalendarHandler) Sync(c *gin.Context) {
	cmd := icalsync.SyncCalendarCommand{
		PropertyID: c.Param("id"),
		TenantID:   tenantID(c),
		CalendarID: c.Param("calendarId"),
	}
	result, err := commands.Dispatch[icalsync.SyncCalendarCommand, *dto.CalendarSync](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ExternalCalendarHTTP = ExternalCalendarHandler{}
