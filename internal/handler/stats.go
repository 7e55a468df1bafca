package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theatre-ticketing/internal/stats"
)

// StatsHandler serves availability and occupancy views.
type StatsHandler struct {
	engine *stats.Engine
	log    logrus.FieldLogger
}

// NewStatsHandler panics on a nil engine.
func NewStatsHandler(e *stats.Engine, log logrus.FieldLogger) *StatsHandler {
	if e == nil {
		panic("handler: nil stats engine")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StatsHandler{engine: e, log: log}
}

func (h *StatsHandler) sessionArea(c echo.Context) (uint64, uint64, bool) {
	sessionID, ok1 := idParam(c, "id")
	areaID, ok2 := idParam(c, "areaId")
	return sessionID, areaID, ok1 && ok2
}

// Seats handles GET /v1/sessions/:id/areas/:areaId/seats.
func (h *StatsHandler) Seats(c echo.Context) error {
	sessionID, areaID, ok := h.sessionArea(c)
	if !ok {
		return badRequest(c, "invalid session or area id")
	}
	seats, err := h.engine.AvailableSeats(c.Request().Context(), sessionID, areaID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"session_id": sessionID, "area_id": areaID, "available": seats})
}

// Area handles GET /v1/sessions/:id/areas/:areaId/stats.
func (h *StatsHandler) Area(c echo.Context) error {
	sessionID, areaID, ok := h.sessionArea(c)
	if !ok {
		return badRequest(c, "invalid session or area id")
	}
	st, err := h.engine.Occupancy(c.Request().Context(), sessionID, areaID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Session handles GET /v1/sessions/:id/stats.
func (h *StatsHandler) Session(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid session id")
	}
	st, err := h.engine.SessionRollup(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Event handles GET /v1/events/:id/stats.
func (h *StatsHandler) Event(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	st, err := h.engine.EventRollup(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, st)
}
