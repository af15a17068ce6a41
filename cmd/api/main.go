package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eckinger/uchomp/internal/handlers"
	"github.com/eckinger/uchomp/internal/mailer"
	"github.com/eckinger/uchomp/internal/repository"
	"github.com/eckinger/uchomp/internal/service"
	"github.com/eckinger/uchomp/internal/worker"
	"github.com/eckinger/uchomp/pkg/config"
	"github.com/eckinger/uchomp/pkg/database"
	"github.com/eckinger/uchomp/pkg/events"
	"github.com/eckinger/uchomp/pkg/logger"
	mw "github.com/eckinger/uchomp/pkg/middleware"
	"github.com/eckinger/uchomp/pkg/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Error("Failed to run schema migration", "error", err)
		os.Exit(1)
	}

	// Connect to event bus
	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Redis-backed rate limiter; optional in dev
	var limiter *ratelimit.Limiter
	if redisOpts, err := redis.ParseURL(cfg.Redis.URL); err != nil {
		logger.Warn("Invalid REDIS_URL, rate limiting disabled", "error", err)
	} else {
		limiter = ratelimit.New(redis.NewClient(redisOpts))
	}

	mailService := buildMailer(cfg)

	// Repositories
	userRepo := repository.NewUserRepository(pool)
	verifyRepo := repository.NewVerifyRepository(pool)
	groupRepo := repository.NewGroupRepository(pool)

	// Services
	identityService := service.NewIdentityService(userRepo, verifyRepo, mailService, cfg)
	groupService := service.NewGroupService(groupRepo, userRepo, eventBus)

	// Background workers
	notifier := worker.NewNotifier(eventBus, mailService)
	if err := notifier.Start(); err != nil {
		logger.Error("Failed to start notify worker", "error", err)
		os.Exit(1)
	}
	watcher := worker.NewExpiryWatcher(groupRepo, eventBus, cfg.Groups.ExpiryWarning, cfg.Groups.ExpiryPollInterval)

	// Router
	h := handlers.New(identityService, groupService, limiter, cfg)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("api"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	h.Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting API server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return watcher.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func buildMailer(cfg *config.Config) mailer.Service {
	if cfg.Email.DevMode {
		return mailer.NewDevMailer()
	}
	if cfg.Email.MailerSendKey != "" {
		m, err := mailer.NewMailerSendMailer(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.SMTPFrom)
		if err == nil {
			return m
		}
		logger.Warn("MailerSend unavailable, falling back to SMTP", "error", err)
	}
	return mailer.NewSMTPMailer(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPFrom,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPass,
		cfg.Email.SMTPUseTLS,
	)
}
