package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/run-crew/internal/model"
	"github.com/iliyamo/run-crew/internal/repository"
	"github.com/iliyamo/run-crew/internal/service"
)

// SessionHandler exposes the running-session lifecycle endpoints.
type SessionHandler struct {
	Sessions *service.SessionService
}

func NewSessionHandler(s *service.SessionService) *SessionHandler {
	return &SessionHandler{Sessions: s}
}

type createSessionReq struct {
	Name                string    `json:"name"`
	Description         string    `json:"description"`
	Location            string    `json:"location"`
	SessionAt           time.Time `json:"session_at"`
	RegisterBy          time.Time `json:"register_by"`
	Level               string    `json:"level"`
	Pace                string    `json:"pace"`
	MaxParticipantCount uint32    `json:"max_participant_count"`
}

type updateSessionReq struct {
	Name                *string    `json:"name"`
	Description         *string    `json:"description"`
	Location            *string    `json:"location"`
	SessionAt           *time.Time `json:"session_at"`
	RegisterBy          *time.Time `json:"register_by"`
	Level               *string    `json:"level"`
	Pace                *string    `json:"pace"`
	MaxParticipantCount *uint32    `json:"max_participant_count"`
}

// Create opens a new session in a crew.  The caller becomes its host
// and must be Staff or Leader there.
func (h *SessionHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	crewID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid crew id"})
	}
	var req createSessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Sessions.CreateSession(ctx, crewID, uid, &model.Session{
		Name:                req.Name,
		Description:         req.Description,
		Location:            req.Location,
		SessionAt:           req.SessionAt,
		RegisterBy:          req.RegisterBy,
		Level:               req.Level,
		Pace:                req.Pace,
		MaxParticipantCount: req.MaxParticipantCount,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, sess)
}

// Get returns one active session.
func (h *SessionHandler) Get(c echo.Context) error {
	sessionID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

// Update changes session details.  Staff or Leader of the owning crew.
func (h *SessionHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var req updateSessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	upd := repository.SessionUpdate{
		Name:                req.Name,
		Description:         req.Description,
		Location:            req.Location,
		SessionAt:           req.SessionAt,
		RegisterBy:          req.RegisterBy,
		Level:               req.Level,
		Pace:                req.Pace,
		MaxParticipantCount: req.MaxParticipantCount,
	}
	if err := h.Sessions.UpdateSession(ctx, sessionID, uid, upd); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete soft-deletes a session.  Host only.
func (h *SessionHandler) Delete(c echo.Context) error {
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

	if err := h.Sessions.DeleteSession(ctx, sessionID, uid); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListByCrew returns a crew's sessions, newest schedule first filtered
// by the optional ?status= query.
func (h *SessionHandler) ListByCrew(c echo.Context) error {
	crewID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid crew id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sessions, err := h.Sessions.ListSessions(ctx, crewID, c.QueryParam("status"))
	if err != nil {
		return respondError(c, err)
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": sessions, "count": len(sessions)})
}
