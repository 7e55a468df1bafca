package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theatre-ticketing/internal/model"
)

// statusOf maps domain errors to HTTP statuses.  Anything unknown is a
// 500.
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrSeatOccupied),
		errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrSessionExists):
		return http.StatusConflict
	case errors.Is(err, model.ErrSessionClosed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrInvalidSeat),
		errors.Is(err, model.ErrInvalidPrice),
		errors.Is(err, model.ErrInvalidSlot):
		return http.StatusBadRequest
	case model.IsTransient(err):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// fail writes err as {"error": ...}.  Server faults are logged and their
// text is not echoed to the client.
func fail(c echo.Context, log logrus.FieldLogger, err error) error {
	status := statusOf(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		log.WithError(err).WithField("path", c.Path()).Error("request failed")
		msg = "internal error"
	case http.StatusServiceUnavailable:
		c.Response().Header().Set("Retry-After", "1")
	}
	return c.JSON(status, echo.Map{"error": msg})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// idParam parses a positive integer path parameter.
func idParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}
