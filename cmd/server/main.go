package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shift-calendar/internal/config"
	"github.com/iliyamo/shift-calendar/internal/database"
	"github.com/iliyamo/shift-calendar/internal/google"
	"github.com/iliyamo/shift-calendar/internal/handler"
	"github.com/iliyamo/shift-calendar/internal/queue"
	"github.com/iliyamo/shift-calendar/internal/ratelimit"
	"github.com/iliyamo/shift-calendar/internal/repository"
	"github.com/iliyamo/shift-calendar/internal/router"
	"github.com/iliyamo/shift-calendar/internal/service"
)

const (
	rateLimitAttempts = 5
	rateLimitWindow   = 15 * time.Minute
	sweepInterval     = time.Minute
)

func main() {
	_ = godotenv.Load() // best-effort; real env wins over .env
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	// A failed or misnamed migration aborts startup before any request
	// is served.
	if err := database.RunMigrations(context.Background(), db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	users := repository.NewUserRepo(db)
	otcs := repository.NewOTCRepo(db)
	labels := repository.NewLabelRepo(db)
	calendars := repository.NewCalendarRepo(db)
	shares := repository.NewShareRepo(db)
	tokens := repository.NewGoogleTokenRepo(db)
	states := repository.NewOAuthStateRepo(db)

	limiter := ratelimit.New(rateLimitAttempts, rateLimitWindow)

	var mailer service.Mailer = service.LogMailer{}
	if cfg.AMQPURL != "" {
		mailer = service.NewQueueMailer(cfg.AMQPURL)
		deliver := service.LogDeliver()
		if cfg.SMTPHost != "" {
			deliver = service.SMTPDeliver(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
		}
		go queue.StartEmailConsumer(cfg.AMQPURL, deliver)
	}

	gclient := google.New(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI)

	sweeper := service.NewSweeper(sweepInterval,
		func(now time.Time) { limiter.Sweep(now) },
		func(now time.Time) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := otcs.DeleteExpired(ctx, now); err != nil {
				log.Printf("sweep otc: %v", err)
			}
		},
		func(now time.Time) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := states.DeleteExpired(ctx, now); err != nil {
				log.Printf("sweep oauth states: %v", err)
			}
		},
	)
	sweeper.Start()
	defer sweeper.Stop()

	e := echo.New()
	router.Register(e, cfg.JWTSecret, users, limiter, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, users, otcs, labels, calendars, mailer),
		Labels:   handler.NewLabelHandler(labels),
		Calendar: handler.NewCalendarHandler(calendars),
		Shares:   handler.NewShareHandler(cfg, users, shares, labels, calendars, mailer),
		Google:   handler.NewGoogleHandler(tokens, states, gclient),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
