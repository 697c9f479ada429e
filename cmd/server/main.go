package main

import (
	"context"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/run-crew/internal/config"
	"github.com/iliyamo/run-crew/internal/database"
	"github.com/iliyamo/run-crew/internal/handler"
	"github.com/iliyamo/run-crew/internal/middleware"
	"github.com/iliyamo/run-crew/internal/queue"
	"github.com/iliyamo/run-crew/internal/repository"
	"github.com/iliyamo/run-crew/internal/router"
	"github.com/iliyamo/run-crew/internal/service"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Optional infrastructure.  Redis backs rate limiting and response
	// caching; RabbitMQ carries the activity feed.  Both degrade to
	// no-ops when unreachable.
	rdb := config.NewRedisClient()
	publisher := queue.NewPublisher()
	go func() {
		if err := queue.StartActivityConsumer(); err != nil {
			log.Printf("activity consumer stopped: %v", err)
		}
	}()

	// Repositories.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	crews := repository.NewCrewRepo(db)
	members := repository.NewMembershipRepo(db)
	sessions := repository.NewSessionRepo(db)
	regs := repository.NewRegistrationRepo(db)
	interests := repository.NewInterestRepo(db)

	// Services.  The registration service and the sweeper share one
	// clock so the admission window and the sweep agree on "now".
	clock := func() time.Time { return time.Now().UTC() }
	crewSvc := service.NewCrewService(crews, members)
	sessionSvc := service.NewSessionService(sessions, members)
	regSvc := service.NewRegistrationService(regs, publisher, clock)
	interestSvc := service.NewInterestService(interests)
	sweeper := service.NewSweeper(sessions, publisher, clock)

	// Close sessions whose registration deadline has already passed,
	// then keep sweeping on a fixed interval.
	go runSweeper(sweeper, time.Duration(cfg.SweepIntervalSec)*time.Second)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterCrews(e, handler.NewCrewHandler(crewSvc), cfg.JWTSecret)
	router.RegisterSessions(e,
		handler.NewSessionHandler(sessionSvc),
		handler.NewRegistrationHandler(regSvc),
		handler.NewInterestHandler(interestSvc),
		cfg.JWTSecret,
	)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// runSweeper runs one sweep immediately and then on every tick.
func runSweeper(s *service.Sweeper, interval time.Duration) {
	sweep := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			log.Printf("sweeper: %v", err)
		}
	}
	sweep()
	t := time.NewTicker(interval)
	defer t.Stop()
	for range t.C {
		sweep()
	}
}
