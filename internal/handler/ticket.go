package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theatre-ticketing/internal/booking"
	"github.com/iliyamo/theatre-ticketing/internal/middleware"
	"github.com/iliyamo/theatre-ticketing/internal/model"
	"github.com/iliyamo/theatre-ticketing/internal/utils"
)

// TicketHandler exposes the booking service.  All routes sit behind
// JWTAuth.
type TicketHandler struct {
	svc *booking.Service
	log logrus.FieldLogger
}

// NewTicketHandler panics on a nil service.
func NewTicketHandler(svc *booking.Service, log logrus.FieldLogger) *TicketHandler {
	if svc == nil {
		panic("handler: nil booking service")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TicketHandler{svc: svc, log: log}
}

type purchaseBody struct {
	Seat  int             `json:"seat"`
	Price decimal.Decimal `json:"price"`
}

// Purchase handles POST /v1/sessions/:id/areas/:areaId/tickets.  An
// omitted price charges the area price.
func (h *TicketHandler) Purchase(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid session id")
	}
	areaID, ok := idParam(c, "areaId")
	if !ok {
		return badRequest(c, "invalid area id")
	}
	var body purchaseBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	t, err := h.svc.Purchase(c.Request().Context(), booking.PurchaseRequest{
		UserID:    userID,
		SessionID: sessionID,
		AreaID:    areaID,
		Seat:      body.Seat,
		Price:     body.Price,
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// owned loads a ticket the caller may act on: their own, or any ticket
// for an OWNER.  Other users' tickets look like missing ones.
func (h *TicketHandler) owned(c echo.Context) (*model.Ticket, error) {
	id, ok := idParam(c, "id")
	if !ok {
		return nil, fmt.Errorf("ticket %q: %w", c.Param("id"), model.ErrTicketNotFound)
	}
	t, err := h.svc.Ticket(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	userID, _ := middleware.UserID(c)
	if t.UserID != userID && middleware.Role(c) != utils.RoleOwner {
		return nil, fmt.Errorf("ticket %d: %w", id, model.ErrTicketNotFound)
	}
	return t, nil
}

func (h *TicketHandler) act(c echo.Context, op func(ctx context.Context, id uint64) (*model.Ticket, error)) error {
	t, err := h.owned(c)
	if err != nil {
		return fail(c, h.log, err)
	}
	t, err = op(c.Request().Context(), t.ID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, t)
}

// Get handles GET /v1/tickets/:id.
func (h *TicketHandler) Get(c echo.Context) error {
	t, err := h.owned(c)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, t)
}

// Cancel handles DELETE /v1/tickets/:id.  Repeating it is harmless.
func (h *TicketHandler) Cancel(c echo.Context) error {
	return h.act(c, h.svc.Cancel)
}

// Pay handles POST /v1/tickets/:id/pay.
func (h *TicketHandler) Pay(c echo.Context) error {
	return h.act(c, h.svc.MarkPaid)
}

// Redeem handles POST /v1/tickets/redeem with {"code": "..."}.  Door
// staff only.
func (h *TicketHandler) Redeem(c echo.Context) error {
	var body struct {
		Code string `json:"code"`
	}
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.Code) == "" {
		return badRequest(c, "code is required")
	}
	t, err := h.svc.Redeem(c.Request().Context(), body.Code)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, t)
}

// Session handles GET /v1/sessions/:id/tickets.  Box office only.
func (h *TicketHandler) Session(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid session id")
	}
	list, err := h.svc.ListBySession(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": list})
}

// Mine handles GET /v1/me/tickets.
func (h *TicketHandler) Mine(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.svc.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": list})
}
