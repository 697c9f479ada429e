package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/run-crew/internal/handler"
	"github.com/iliyamo/run-crew/internal/middleware"
)

// RegisterCrews registers the crew lifecycle and membership endpoints
// under /v1.  Reads are open; every mutation requires a valid JWT, and
// the per-crew authority checks happen in the service layer against
// the memberships table.
func RegisterCrews(e *echo.Echo, h *handler.CrewHandler, jwtSecret string) {
	// Public reads.
	e.GET("/v1/crews/:id", h.Get)
	e.GET("/v1/crews/:id/members", h.Members)
	e.GET("/v1/crews/:id/members/counts", h.MemberCounts)

	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	g.POST("/crews", h.Create)
	g.PATCH("/crews/:id", h.Update)
	g.DELETE("/crews/:id", h.Delete)

	g.POST("/crews/:id/join", h.Join)
	g.DELETE("/crews/:id/leave", h.Leave)
	g.GET("/crews/:id/my-role", h.MyRole)

	g.POST("/crews/:id/leader", h.Transfer)
	g.PATCH("/crews/:id/members/:userId/role", h.ChangeRole)
	g.DELETE("/crews/:id/members/:userId", h.Kick)
}
