package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/cors"

	"luminexus/internal/catalog"
	"luminexus/internal/config"
	"luminexus/internal/database"
	"luminexus/internal/handlers"
	"luminexus/internal/logger"
	"luminexus/internal/repository"
	"luminexus/internal/security"
	"luminexus/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Server.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startup := handlers.NewStartupStatus(
		handlers.StepStorage,
		handlers.StepMigrations,
		handlers.StepBadWords,
		handlers.StepCatalog,
		handlers.StepServices,
	)

	// The listener comes up first so /healthz can report startup progress
	var api atomic.Value
	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", startup.Health)
	root.Handle("/", startup.RequireReady(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.Load().(http.Handler).ServeHTTP(w, r)
	})))

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      c.Handler(root),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr, "mode", cfg.Server.Mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", "error", err)
		}
	}()

	app, err := initialize(ctx, cfg, log, startup)
	if err != nil {
		log.Fatal("Startup failed", "error", err)
	}
	defer app.close(log)

	api.Store(app.router)
	startup.MarkReady()
	log.Info("Server ready", "storage", cfg.Storage.Type)

	<-ctx.Done()
	log.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
	}
}

type application struct {
	router   http.Handler
	storage  *repository.Storage
	limiter  *security.RateLimiter
	notifier *service.NotificationService
}

func initialize(ctx context.Context, cfg *config.Config, log *logger.Logger, startup *handlers.StartupStatus) (*application, error) {
	startup.SetCurrentStep(handlers.StepStorage)
	storage, err := repository.Open(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	startup.CompleteStep(handlers.StepStorage)
	startup.CompleteStep(handlers.StepMigrations)

	startup.SetCurrentStep(handlers.StepBadWords)
	var nameFilter service.NameFilter
	if storage.DB != nil {
		filter := database.NewBadWordFilter(storage.DB, log)
		if err := filter.Seed(ctx); err != nil {
			log.Warn("Failed to seed bad words filter", "error", err)
		}
		nameFilter = filter
	} else {
		log.Info("Display name filter disabled: requires sql storage")
	}
	startup.CompleteStep(handlers.StepBadWords)

	startup.SetCurrentStep(handlers.StepCatalog)
	cat, err := loadCatalog(cfg)
	if err != nil {
		storage.Close()
		return nil, err
	}
	log.Info("Catalog loaded", "items", len(cat.Items()), "achievements", len(cat.Achievements()))
	startup.CompleteStep(handlers.StepCatalog)

	startup.SetCurrentStep(handlers.StepServices)
	notifier, err := service.NewNotificationService(ctx, cfg.Email.Region, cfg.Email.From, cfg.Email.FromName, log)
	if err != nil {
		storage.Close()
		return nil, err
	}

	playerRepo := repository.NewPlayerRepository(storage.KV)
	progressRepo := repository.NewProgressRepository(storage.KV)

	tokens := security.NewTokenIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	players := service.NewPlayerService(playerRepo, tokens, nameFilter, log)
	progress := service.NewProgressService(progressRepo, players, cat, notifier, log)

	clientIP, err := security.NewClientIPResolver(cfg.Server.TrustedProxies)
	if err != nil {
		storage.Close()
		return nil, err
	}
	limiter := security.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	router := handlers.NewRouter(handlers.RouterDeps{
		Players:    players,
		Progress:   progress,
		Middleware: handlers.NewMiddleware(players, limiter, clientIP, log),
		Startup:    startup,
		Log:        log,
	})
	startup.CompleteStep(handlers.StepServices)

	return &application{router: router, storage: storage, limiter: limiter, notifier: notifier}, nil
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog.Path != "" {
		return catalog.Load(cfg.Catalog.Path)
	}
	return catalog.Default()
}

func (a *application) close(log *logger.Logger) {
	a.limiter.Stop()
	a.notifier.Wait()
	if err := a.storage.Close(); err != nil {
		log.Error("Failed to close storage", "error", err)
	}
}
