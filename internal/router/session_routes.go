package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/run-crew/internal/handler"
	"github.com/iliyamo/run-crew/internal/middleware"
)

// RegisterSessions registers the session lifecycle, admission and
// interest endpoints under /v1.  Session reads are open so crews can
// share schedules publicly; joins, likes and every mutation require a
// valid JWT.
func RegisterSessions(
	e *echo.Echo,
	sh *handler.SessionHandler,
	rh *handler.RegistrationHandler,
	ih *handler.InterestHandler,
	jwtSecret string,
) {
	// Public reads.
	e.GET("/v1/sessions/:id", sh.Get)
	e.GET("/v1/crews/:id/sessions", sh.ListByCrew)
	e.GET("/v1/sessions/:id/participants", rh.Participants)

	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	g.POST("/crews/:id/sessions", sh.Create)
	g.PATCH("/sessions/:id", sh.Update)
	g.DELETE("/sessions/:id", sh.Delete)

	g.POST("/sessions/:id/join", rh.Join)
	g.DELETE("/sessions/:id/join", rh.Cancel)

	g.POST("/sessions/:id/like", ih.Like)
	g.DELETE("/sessions/:id/like", ih.Unlike)
	g.GET("/sessions/:id/like", ih.Status)
}
