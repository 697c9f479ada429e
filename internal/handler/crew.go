package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/run-crew/internal/repository"
	"github.com/iliyamo/run-crew/internal/service"
)

// CrewHandler exposes the crew lifecycle and membership endpoints.
type CrewHandler struct {
	Crews *service.CrewService
}

func NewCrewHandler(s *service.CrewService) *CrewHandler { return &CrewHandler{Crews: s} }

type createCrewReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Region      string `json:"region"`
	ImageURL    string `json:"image_url"`
}

type updateCrewReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Region      *string `json:"region"`
	ImageURL    *string `json:"image_url"`
}

type changeRoleReq struct {
	Role string `json:"role"`
}

type transferReq struct {
	TargetUserID uint64 `json:"target_user_id"`
}

// Create makes a new crew; the caller becomes its Leader.
func (h *CrewHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createCrewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	crew, m, err := h.Crews.CreateCrew(ctx, uid, req.Name, req.Description, req.Region, req.ImageURL)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"crew": crew, "membership": m})
}

// Get returns one active crew.
func (h *CrewHandler) Get(c echo.Context) error {
	crewID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid crew id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	crew, err := h.Crews.GetCrew(ctx, crewID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, crew)
}

// Update changes crew attributes.  Leader only.
func (h *CrewHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	crewID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid crew id"})
	}
	var req updateCrewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	upd := repository.CrewUpdate{
		Name:        req.Name,
		Description: req.Description,
		Region:      req.Region,
		ImageURL:    req.ImageURL,
	}
	if err := h.Crews.UpdateCrew(ctx, crewID, uid, upd); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete soft-deletes a crew.  Leader only.
func (h *CrewHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	crewID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid crew id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Crews.DeleteCrew(ctx, crewID, uid); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Join adds the caller to the crew as a plain member.
func (h *CrewHandler) Join(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	crewID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid crew id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m, err := h.Crews.JoinCrew(ctx, uid, crewID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// Leave removes the caller from the crew.  The Leader must transfer
// leadership before leaving.
func (h *CrewHandler) Leave(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	crewID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid crew id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Crews.LeaveCrew(ctx, uid, crewID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Transfer hands leadership from the caller to the target member.
func (h *CrewHandler) Transfer(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	crewID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid crew id"})
	}
	var req transferReq
	if err := c.Bind(&req); err != nil || req.TargetUserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "target_user_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Crews.TransferLeadership(ctx, crewID, uid, req.TargetUserID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ChangeRole sets a member's role to staff or member.  Leader only.
func (h *CrewHandler) ChangeRole(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	crewID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid crew id"})
	}
	targetID, err := pathID(c, "userId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req changeRoleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	oldRole, newRole, err := h.Crews.ChangeRole(ctx, crewID, uid, targetID, req.Role)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"old_role": oldRole, "new_role": newRole})
}

// Kick removes a member from the crew.  Leader only.
func (h *CrewHandler) Kick(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	crewID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid crew id"})
	}
	targetID, err := pathID(c, "userId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Crews.KickMember(ctx, crewID, uid, targetID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Members lists crew members ordered Leader, Staff, Member.  The
// optional ?role= query narrows to one role.
func (h *CrewHandler) Members(c echo.Context) error {
	crewID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid crew id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	members, err := h.Crews.ListMembers(ctx, crewID, c.QueryParam("role"))
	if err != nil {
		return respondError(c, err)
	}
	if members == nil {
		members = []repository.CrewMember{}
	}
	return c.JSON(http.StatusOK, echo.Map{"members": members, "count": len(members)})
}

// MemberCounts returns the per-role headcount for a crew.
func (h *CrewHandler) MemberCounts(c echo.Context) error {
	crewID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid crew id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	counts, err := h.Crews.MemberCounts(ctx, crewID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, counts)
}

// MyRole returns the caller's membership in the crew.
func (h *CrewHandler) MyRole(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	crewID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid crew id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m, err := h.Crews.RoleOf(ctx, uid, crewID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}
