package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"stayquote/internal/infra/config"
	"stayquote/internal/infra/obs"
)

type QuoteHTTP interface {
	Quote(c *gin.Context)
	Availability(c *gin.Context)
}

type CalendarHTTP interface {
	Calendar(c *gin.Context)
	Export(c *gin.Context)
}

type FrameHTTP interface {
	InsertRate(c *gin.Context)
	InsertAvailability(c *gin.Context)
	InsertTurnDays(c *gin.Context)
}

type BlockingHTTP interface {
	Add(c *gin.Context)
	Remove(c *gin.Context)
}

type ExternalCalendarHTTP interface {
	Register(c *gin.Context)
	Sync(c *gin.Context)
}

type Handlers struct {
	Quote            QuoteHTTP
	Calendar         CalendarHTTP
	Frames           FrameHTTP
	Blockings        BlockingHTTP
	ExternalCalendar ExternalCalendarHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter wires middleware and routes; handlers left nil are not mounted.
func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Idempotency-Key", obs.HeaderTenantID},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"Content-Disposition",
			obs.HeaderRequestID,
			headerCache,
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	props := router.Group("/api/v1/properties/:id")
	if h.Quote != nil {
		props.GET("/quote", h.Quote.Quote)
		props.GET("/availability", h.Quote.Availability)
	}
	if h.Calendar != nil {
		props.GET("/calendar", h.Calendar.Calendar)
		props.GET("/calendar.ics", h.Calendar.Export)
	}
	if h.Frames != nil {
		props.POST("/rates", h.Frames.InsertRate)
		props.POST("/availabilities", h.Frames.InsertAvailability)
		props.POST("/turn-days", h.Frames.InsertTurnDays)
	}
	if h.Blockings != nil {
		props.POST("/blockings", h.Blockings.Add)
		props.DELETE("/blockings/:blockingId", h.Blockings.Remove)
	}
	if h.ExternalCalendar != nil {
		props.POST("/external-calendars", h.ExternalCalendar.Register)
		props.POST("/external-calendars/:calendarId/sync", h.ExternalCalendar.Sync)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
