package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theatre-ticketing/internal/model"
)

// CatalogStore is the catalogue write side.  Both repository.Catalog and
// repository.MemoryCatalog implement it.
type CatalogStore interface {
	Event(ctx context.Context, id uint64) (*model.Event, error)
	Area(ctx context.Context, id uint64) (*model.Area, error)
	SessionsByEvent(ctx context.Context, eventID uint64) ([]*model.Session, error)

	ListEvents(ctx context.Context, activeOnly bool) ([]*model.Event, error)
	CreateEvent(ctx context.Context, e *model.Event) (*model.Event, error)
	UpdateEvent(ctx context.Context, e *model.Event) (*model.Event, error)

	ListAreas(ctx context.Context) ([]*model.Area, error)
	CreateArea(ctx context.Context, a *model.Area) (*model.Area, error)
	UpdateArea(ctx context.Context, a *model.Area) (*model.Area, error)
}

// CatalogHandler manages events and seating areas and serves the public
// browse endpoints.  Nothing is hard deleted: tickets keep referencing
// events and areas, so owners deactivate them instead.
type CatalogHandler struct {
	store CatalogStore
	log   logrus.FieldLogger
}

// NewCatalogHandler panics on a nil store.
func NewCatalogHandler(store CatalogStore, log logrus.FieldLogger) *CatalogHandler {
	if store == nil {
		panic("handler: nil catalog store")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CatalogHandler{store: store, log: log}
}

type eventBody struct {
	Name        string `json:"name"`
	DurationMin int    `json:"duration_min"`
	Rating      string `json:"rating"`
	Active      *bool  `json:"active"`
}

func (b eventBody) validate() string {
	switch {
	case strings.TrimSpace(b.Name) == "":
		return "name is required"
	case b.DurationMin <= 0:
		return "duration_min must be positive"
	}
	return ""
}

func (b eventBody) event(id uint64) *model.Event {
	return &model.Event{
		ID:          id,
		Name:        strings.TrimSpace(b.Name),
		DurationMin: b.DurationMin,
		Rating:      strings.TrimSpace(b.Rating),
		Active:      b.Active == nil || *b.Active,
	}
}

// ListEvents handles GET /v1/events: the active events.
func (h *CatalogHandler) ListEvents(c echo.Context) error {
	items, err := h.store.ListEvents(c.Request().Context(), true)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// EventSessions handles GET /v1/events/:id/sessions: the active sessions
// of an active event.
func (h *CatalogHandler) EventSessions(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	ctx := c.Request().Context()
	ev, err := h.store.Event(ctx, id)
	if err != nil {
		return fail(c, h.log, err)
	}
	if !ev.Active {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}
	all, err := h.store.SessionsByEvent(ctx, id)
	if err != nil {
		return fail(c, h.log, err)
	}
	items := make([]*model.Session, 0, len(all))
	for _, s := range all {
		if s.Active {
			items = append(items, s)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"event": ev, "sessions": items})
}

// CreateEvent handles POST /v1/events.  Events start active unless the
// body says otherwise.
func (h *CatalogHandler) CreateEvent(c echo.Context) error {
	var body eventBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if msg := body.validate(); msg != "" {
		return badRequest(c, msg)
	}
	ev, err := h.store.CreateEvent(c.Request().Context(), body.event(0))
	if err != nil {
		return fail(c, h.log, err)
	}
	h.log.WithFields(logrus.Fields{"event_id": ev.ID, "name": ev.Name}).Info("event created")
	return c.JSON(http.StatusCreated, ev)
}

// UpdateEvent handles PUT /v1/events/:id.  The body replaces every field;
// an omitted active flag keeps the event active.
func (h *CatalogHandler) UpdateEvent(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var body eventBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if msg := body.validate(); msg != "" {
		return badRequest(c, msg)
	}
	ev, err := h.store.UpdateEvent(c.Request().Context(), body.event(id))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, ev)
}

type areaBody struct {
	Name     string          `json:"name"`
	Capacity int             `json:"capacity"`
	Price    decimal.Decimal `json:"price"`
	Active   *bool           `json:"active"`
}

func (b areaBody) area(id uint64) *model.Area {
	return &model.Area{
		ID:       id,
		Name:     strings.TrimSpace(b.Name),
		Capacity: b.Capacity,
		Price:    b.Price,
		Active:   b.Active == nil || *b.Active,
	}
}

// ListAreas handles GET /v1/areas, inactive areas included.
func (h *CatalogHandler) ListAreas(c echo.Context) error {
	items, err := h.store.ListAreas(c.Request().Context())
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// CreateArea handles POST /v1/areas.
func (h *CatalogHandler) CreateArea(c echo.Context) error {
	var body areaBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	switch {
	case strings.TrimSpace(body.Name) == "":
		return badRequest(c, "name is required")
	case body.Capacity <= 0:
		return badRequest(c, "capacity must be positive")
	case body.Price.IsNegative():
		return badRequest(c, "price must not be negative")
	}
	a, err := h.store.CreateArea(c.Request().Context(), body.area(0))
	if err != nil {
		return fail(c, h.log, err)
	}
	h.log.WithFields(logrus.Fields{"area_id": a.ID, "capacity": a.Capacity}).Info("area created")
	return c.JSON(http.StatusCreated, a)
}

// UpdateArea handles PUT /v1/areas/:id.  Capacity cannot change: a sent
// capacity must match the stored one.
func (h *CatalogHandler) UpdateArea(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid area id")
	}
	var body areaBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(body.Name) == "" {
		return badRequest(c, "name is required")
	}
	if body.Price.IsNegative() {
		return badRequest(c, "price must not be negative")
	}
	ctx := c.Request().Context()
	cur, err := h.store.Area(ctx, id)
	if err != nil {
		return fail(c, h.log, err)
	}
	if body.Capacity != 0 && body.Capacity != cur.Capacity {
		return c.JSON(http.StatusConflict, echo.Map{"error": "capacity cannot be changed"})
	}
	a, err := h.store.UpdateArea(ctx, body.area(id))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, a)
}
