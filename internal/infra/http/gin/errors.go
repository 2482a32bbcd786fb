package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayquote/internal/app/handlers/calendar"
	"stayquote/internal/app/middleware"
	"stayquote/internal/domain/availability"
	"stayquote/internal/domain/ical"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/reservation"
	"stayquote/internal/domain/shared/daterange"
	"stayquote/internal/domain/shared/money"
	"stayquote/internal/domain/timeframe"
)

var errInvalidParam = errors.New("http: invalid parameter")

func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidParam),
		errors.Is(err, middleware.ErrValidation),
		errors.Is(err, daterange.ErrInvalidRange),
		errors.Is(err, daterange.ErrInvalidDateFormat),
		errors.Is(err, calendar.ErrInvalidCount),
		errors.Is(err, availability.ErrInvalidWeekday),
		errors.Is(err, availability.ErrInvalidStay),
		errors.Is(err, property.ErrNegativeValue),
		errors.Is(err, money.ErrInvalidCurrency),
		errors.Is(err, reservation.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, property.ErrPropertyNotFound),
		errors.Is(err, ical.ErrCalendarNotFound),
		errors.Is(err, reservation.ErrReservationNotFound),
		errors.Is(err, availability.ErrBlockingNotFound),
		errors.Is(err, timeframe.ErrFrameNotFound):
		return http.StatusNotFound
	case errors.Is(err, property.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ical.ErrFetch):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError maps use-case errors to a status; internal details of 5xx are logged, not returned.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	_ = c.Error(err)
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed", "path", c.FullPath(), "error", err)
		}
		c.JSON(status, gin.H{"error": http.StatusText(status)})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
