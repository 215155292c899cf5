package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/minegate/minegate-api/internal/database"
	"github.com/minegate/minegate-api/internal/handlers"
	"github.com/minegate/minegate-api/internal/mailer"
	"github.com/minegate/minegate-api/internal/observability"
	"github.com/minegate/minegate-api/internal/repository"
	"github.com/minegate/minegate-api/internal/service"
	"github.com/minegate/minegate-api/internal/welcome"
	"github.com/minegate/minegate-api/pkg/config"
	"github.com/minegate/minegate-api/pkg/events"
	"github.com/minegate/minegate-api/pkg/logger"
	mw "github.com/minegate/minegate-api/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if cfg.Observability.SentryDSN != "" {
		flush, err := observability.InitSentry(cfg.Observability.SentryDSN, cfg.Observability.Environment, "")
		if err != nil {
			logger.Warn("Failed to initialize Sentry", "error", err)
		} else {
			defer flush()
		}
	}

	// Connect to database and run migrations
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.Migrate(cfg.Database.URL); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// One-shot welcome token store
	welcomeStore, err := welcome.NewStore(cfg.Redis.URL, cfg.Auth.WelcomeTokenTTL)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer welcomeStore.Close()

	// Event bus
	var eventBus events.Publisher
	if cfg.NATS.Enabled {
		bus, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		eventBus = bus
	} else {
		eventBus = events.NoopBus{}
	}
	defer eventBus.Close()

	// Mailer selection mirrors the email config: dev mode logs, an API
	// key selects MailerSend, otherwise plain SMTP.
	var mail mailer.Service
	switch {
	case cfg.Email.DevMode:
		mail = mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		mail = mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.SMTPFromName, cfg.Email.SMTPFrom)
	default:
		mail = mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	externalVisitRepo := repository.NewExternalVisitRepository(pool)
	internalVisitRepo := repository.NewInternalVisitRepository(pool)

	// Initialize services
	authService := service.NewAuthService(userRepo, profileRepo, mail, eventBus, welcomeStore, cfg)
	approvalService := service.NewApprovalService(userRepo, profileRepo, eventBus)
	userAdminService := service.NewUserAdminService(userRepo, profileRepo)
	externalVisitService := service.NewExternalVisitService(externalVisitRepo, eventBus)
	internalVisitService := service.NewInternalVisitService(internalVisitRepo, eventBus)

	// Initialize handlers
	h := handlers.New(authService, approvalService, userAdminService, externalVisitService, internalVisitService, cfg)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("minegate-api"))
	r.Use(mw.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.Health)
	r.Use(mw.Metrics)

	// Routes
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Get("/welcome", h.Welcome)
		r.Post("/password-reset/request", h.RequestPasswordReset)
		r.Post("/password-reset/confirm", h.ConfirmPasswordReset)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireJWT)
			r.Get("/me", h.Me)
			r.Put("/me", h.UpdateMe)
		})
	})

	r.Route("/visits", func(r chi.Router) {
		r.Use(h.RequireJWT)

		r.Route("/external", func(r chi.Router) {
			r.Get("/", h.ListExternalVisits)
			r.Post("/", h.CreateExternalVisit)
			r.With(h.RequireStaff).Get("/export", h.ExportExternalVisits)
			r.Get("/{id}", h.GetExternalVisit)
			r.Put("/{id}", h.UpdateExternalVisit)
			r.Delete("/{id}", h.DeleteExternalVisit)
		})

		r.Route("/internal", func(r chi.Router) {
			r.Get("/", h.ListInternalVisits)
			r.Post("/", h.CreateInternalVisit)
			r.With(h.RequireStaff).Get("/export", h.ExportInternalVisits)
			r.Get("/{id}", h.GetInternalVisit)
			r.Put("/{id}", h.UpdateInternalVisit)
			r.Delete("/{id}", h.DeleteInternalVisit)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.RequireJWT)

		r.Route("/permissions", func(r chi.Router) {
			r.Use(h.RequireSuperuser)
			r.Get("/", h.ListPermissions)
			r.Post("/{id}/approve", h.ApproveUser)
			r.Post("/{id}/reject", h.RejectUser)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(h.RequireStaff)
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
			r.Put("/{id}", h.UpdateUser)
			r.Delete("/{id}", h.DeactivateUser)
		})
	})

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting minegate-api", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
