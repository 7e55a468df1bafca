package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-ticketing/internal/handler"
	"github.com/iliyamo/theatre-ticketing/internal/middleware"
	"github.com/iliyamo/theatre-ticketing/internal/utils"
)

// RegisterCustomer registers the ticket endpoints of signed-in users.
// Owners may use them too.  Purchases are rate limited.
func RegisterCustomer(e *echo.Echo, h *handler.TicketHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleCustomer, utils.RoleOwner),
	)
	g.POST("/sessions/:id/areas/:areaId/tickets", h.Purchase, limit)
	g.GET("/me/tickets", h.Mine)
	g.GET("/tickets/:id", h.Get)
	g.DELETE("/tickets/:id", h.Cancel)
	g.POST("/tickets/:id/pay", h.Pay)
}
