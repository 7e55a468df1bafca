// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/theatre-ticketing/internal/handler"
	"github.com/iliyamo/theatre-ticketing/internal/metrics"
)

// Deps is everything the routes need.  Cache and RateLimit may be nil.
type Deps struct {
	Tickets   *handler.TicketHandler
	Catalog   *handler.CatalogHandler
	Schedule  *handler.ScheduleHandler
	Stats     *handler.StatsHandler
	Metrics   *metrics.Metrics
	DB        handler.Pinger
	JWTSecret string
	Cache     echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// New builds the echo instance with every route registered.
func New(d Deps) *echo.Echo {
	if d.Cache == nil {
		d.Cache = passThrough
	}
	if d.RateLimit == nil {
		d.RateLimit = passThrough
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover(), echomw.RequestID())
	if d.Metrics != nil {
		e.Use(d.Metrics.Middleware())
	}

	RegisterRoutes(e, d.DB, d.Metrics)
	RegisterPublic(e, d.Catalog, d.Schedule, d.Stats, d.Cache)
	RegisterCustomer(e, d.Tickets, d.JWTSecret, d.RateLimit)
	RegisterOwner(e, d.Tickets, d.Schedule, d.Stats, d.JWTSecret)
	RegisterCatalog(e, d.Catalog, d.JWTSecret)
	return e
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, m *metrics.Metrics) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}

// RegisterPublic registers the browse endpoints guests can call.  Their
// responses go through the response cache.
func RegisterPublic(e *echo.Echo, cat *handler.CatalogHandler, s *handler.ScheduleHandler, st *handler.StatsHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", cache)
	g.GET("/events", cat.ListEvents)
	g.GET("/events/:id/sessions", cat.EventSessions)
	g.GET("/slots", s.Slots)
	g.GET("/events/:id/slots", s.OpenSlots)
	g.GET("/sessions/:id/areas/:areaId/seats", st.Seats)
}
