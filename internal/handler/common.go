// Package handler implements the HTTP surface.  Handlers stay
// transport-only: bind, delegate to a service, translate the domain
// error into a status code.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/run-crew/internal/model"
	"github.com/iliyamo/run-crew/internal/repository"
	"github.com/iliyamo/run-crew/internal/service"
)

// getUserID extracts the authenticated user ID placed in context by the
// JWT middleware.  Claims decode as float64 out of encoding/json, so a
// few representations are tolerated.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// respondError translates domain errors into HTTP responses.  Every
// sentinel in the taxonomy maps to exactly one status; anything
// unrecognized is a 500.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrCrewNotFound),
		errors.Is(err, repository.ErrMembershipNotFound),
		errors.Is(err, repository.ErrSessionNotFound),
		errors.Is(err, repository.ErrNotParticipant),
		errors.Is(err, repository.ErrInterestNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})

	case errors.Is(err, repository.ErrEmailExists),
		errors.Is(err, repository.ErrMembershipExists),
		errors.Is(err, repository.ErrAlreadyJoined),
		errors.Is(err, repository.ErrAlreadyLiked),
		errors.Is(err, repository.ErrSessionFull),
		errors.Is(err, repository.ErrSessionClosed):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})

	case errors.Is(err, repository.ErrNotLeader),
		errors.Is(err, repository.ErrNotStaff),
		errors.Is(err, repository.ErrTargetIsLeader),
		errors.Is(err, repository.ErrLeaderCannotLeave),
		errors.Is(err, service.ErrOnlyHostMayDelete):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})

	case errors.Is(err, model.ErrInvalidRole),
		errors.Is(err, model.ErrInvalidStatus),
		errors.Is(err, service.ErrCrewNameRequired),
		errors.Is(err, service.ErrCrewNameTooLong),
		errors.Is(err, service.ErrSessionNameRequired),
		errors.Is(err, service.ErrInvalidCapacity),
		errors.Is(err, service.ErrInvalidSchedule):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
