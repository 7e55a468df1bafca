package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-ticketing/internal/handler"
	"github.com/iliyamo/theatre-ticketing/internal/middleware"
	"github.com/iliyamo/theatre-ticketing/internal/utils"
)

// RegisterOwner registers the OWNER endpoints: door validation, session
// planning and statistics.
func RegisterOwner(e *echo.Echo, t *handler.TicketHandler, s *handler.ScheduleHandler, st *handler.StatsHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleOwner),
	)
	g.POST("/tickets/redeem", t.Redeem)
	g.GET("/sessions/:id/tickets", t.Session)

	g.POST("/events/:id/sessions", s.Schedule)
	g.POST("/events/:id/sessions/plan", s.Plan)

	g.GET("/sessions/:id/areas/:areaId/stats", st.Area)
	g.GET("/sessions/:id/stats", st.Session)
	g.GET("/events/:id/stats", st.Event)
}

// RegisterCatalog registers the OWNER endpoints that manage events and
// seating areas.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleOwner),
	)
	g.POST("/events", h.CreateEvent)
	g.PUT("/events/:id", h.UpdateEvent)

	g.GET("/areas", h.ListAreas)
	g.POST("/areas", h.CreateArea)
	g.PUT("/areas/:id", h.UpdateArea)
}
