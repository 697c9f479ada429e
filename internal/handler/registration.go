package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/run-crew/internal/repository"
	"github.com/iliyamo/run-crew/internal/service"
)

// RegistrationHandler exposes session admission endpoints.
type RegistrationHandler struct {
	Regs *service.RegistrationService
}

func NewRegistrationHandler(s *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{Regs: s}
}

// Join registers the caller for a session while a slot and the
// registration window are still open.
func (h *RegistrationHandler) Join(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Regs.Join(ctx, uid, sessionID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Cancel withdraws the caller's registration.
func (h *RegistrationHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	remaining, err := h.Regs.Cancel(ctx, uid, sessionID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"participant_count": remaining})
}

// Participants lists the session's participants.  ?by=role orders by
// crew role first instead of join time.
func (h *RegistrationHandler) Participants(c echo.Context) error {
	sessionID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	byRole := c.QueryParam("by") == "role"

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	participants, err := h.Regs.Participants(ctx, sessionID, byRole)
	if err != nil {
		return respondError(c, err)
	}
	if participants == nil {
		participants = []repository.Participant{}
	}
	return c.JSON(http.StatusOK, echo.Map{"participants": participants, "count": len(participants)})
}
