package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayquote/internal/app/dto"
	calendarapp "stayquote/internal/app/handlers/calendar"
	"stayquote/internal/app/handlers/icalsync"
	"stayquote/internal/app/queries"
)

const headerCache = "X-Cache"

type CalendarHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h CalendarHandler) Calendar(c *gin.Context) {
	from, err := dateQuery(c, "from")
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	count, err := intQuery(c, "count")
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	query := calendarapp.GetCalendarQuery{PropertyID: c.Param("id"), TenantID: tenantID(c), From: from, Count: count}
	result, err := queries.Ask[calendarapp.GetCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CalendarHandler) Export(c *gin.Context) {
	merge, err := boolQuery(c, "merge")
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	query := icalsync.ExportCalendarQuery{PropertyID: c.Param("id"), TenantID: tenantID(c), Merge: merge}
	result, err := queries.Ask[icalsync.ExportCalendarQuery, dto.CalendarExport](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	cache := "MISS"
	if result.Cached {
		cache = "HIT"
	}
	c.Header(headerCache, cache)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", result.Body)
}

var _ CalendarHTTP = CalendarHandler{}
