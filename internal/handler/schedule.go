package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theatre-ticketing/internal/booking"
	"github.com/iliyamo/theatre-ticketing/internal/schedule"
)

// ScheduleHandler serves the slot grid and session planning.
type ScheduleHandler struct {
	planner *booking.Planner
	loc     *time.Location
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewScheduleHandler panics on a nil planner.  Dates in requests are read
// in loc.
func NewScheduleHandler(p *booking.Planner, loc *time.Location, log logrus.FieldLogger) *ScheduleHandler {
	if p == nil {
		panic("handler: nil planner")
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ScheduleHandler{planner: p, loc: loc, log: log, now: time.Now}
}

func (h *ScheduleHandler) date(s string) (time.Time, bool) {
	if s == "" {
		return h.now().In(h.loc), true
	}
	d, err := time.ParseInLocation(time.DateOnly, s, h.loc)
	return d, err == nil
}

// Slots handles GET /v1/slots?category=&date=.  Without a category every
// category is listed.  The date defaults to today.
func (h *ScheduleHandler) Slots(c echo.Context) error {
	date, ok := h.date(c.QueryParam("date"))
	if !ok {
		return badRequest(c, "date must be YYYY-MM-DD")
	}
	cal := h.planner.Calendar()
	now := h.now().In(h.loc)

	cats := cal.Categories()
	if q := c.QueryParam("category"); q != "" {
		cat, err := schedule.ParseCategory(q)
		if err != nil {
			return badRequest(c, err.Error())
		}
		cats = []schedule.Category{cat}
	}
	out := make(map[schedule.Category][]schedule.TimeOfDay, len(cats))
	for _, cat := range cats {
		out[cat] = cal.AvailableSlots(cat, date, now)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": date.Format(time.DateOnly), "slots": out})
}

// OpenSlots handles GET /v1/events/:id/slots?date=: the slots of date the
// event can still be scheduled in.
func (h *ScheduleHandler) OpenSlots(c echo.Context) error {
	eventID, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	date, ok := h.date(c.QueryParam("date"))
	if !ok {
		return badRequest(c, "date must be YYYY-MM-DD")
	}
	open, err := h.planner.OpenSlots(c.Request().Context(), eventID, date)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": date.Format(time.DateOnly), "slots": open})
}

type scheduleBody struct {
	Category string   `json:"category"`
	Date     string   `json:"date"`
	Time     string   `json:"time"`
	AreaIDs  []uint64 `json:"area_ids"`
}

// Schedule handles POST /v1/events/:id/sessions.
func (h *ScheduleHandler) Schedule(c echo.Context) error {
	eventID, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var body scheduleBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	date, ok := h.date(strings.TrimSpace(body.Date))
	if !ok || body.Date == "" {
		return badRequest(c, "date must be YYYY-MM-DD")
	}
	tod, err := schedule.ParseTimeOfDay(body.Time)
	if err != nil {
		return badRequest(c, err.Error())
	}
	cat, err := schedule.ParseCategory(body.Category)
	if body.Category == "" {
		var found bool
		cat, found = h.planner.Calendar().CategoryOf(tod)
		if !found {
			return badRequest(c, "time is not a slot of any category")
		}
	} else if err != nil {
		return badRequest(c, err.Error())
	}
	s, err := h.planner.Schedule(c.Request().Context(), booking.NewSession{
		EventID: eventID, Category: cat, Date: date, Time: tod, AreaIDs: body.AreaIDs,
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, s)
}

// Plan handles POST /v1/events/:id/sessions/plan with {"date", "area_ids"}:
// one session in every open slot of the day.
func (h *ScheduleHandler) Plan(c echo.Context) error {
	eventID, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var body struct {
		Date    string   `json:"date"`
		AreaIDs []uint64 `json:"area_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	date, ok := h.date(body.Date)
	if !ok {
		return badRequest(c, "date must be YYYY-MM-DD")
	}
	created, err := h.planner.Plan(c.Request().Context(), eventID, date, body.AreaIDs)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"sessions": created})
}
