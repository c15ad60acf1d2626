package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trafficwatch/internal/config"
	"trafficwatch/internal/database"
	"trafficwatch/internal/logger"
	"trafficwatch/internal/routes"
	"trafficwatch/internal/services"
	"trafficwatch/internal/services/analyzer"
	"trafficwatch/internal/services/websocket"
)

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *database.Database
	analyzer   *analyzer.Analyzer
	hubService *websocket.HubService
	manager    *services.Manager
}

func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	detector := analyzer.NewDetector(cfg, log)
	an := analyzer.New(cfg, detector, log)
	hub := websocket.NewHubService(log)
	mng := services.NewManager(an, hub, db, cfg, log)

	return &App{
		config:     cfg,
		logger:     log,
		db:         db,
		analyzer:   an,
		hubService: hub,
		manager:    mng,
	}, nil
}

// Run starts the hub, the analyzer and the HTTP server, then blocks until
// SIGINT/SIGTERM and shuts down gracefully.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.hubService.Run()

	analyzerDone := make(chan error, 1)
	go func() {
		analyzerDone <- a.manager.Run(ctx)
	}()

	router := routes.SetupRoutes(a.manager, a.config, a.logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: router,
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.ListenAndServe()
	}()

	a.logger.Info("Traffic dashboard server listening on http://localhost:%d", a.config.Port)
	a.logger.Info("Video source: %s", a.analyzer.Source())
	a.logger.Info("Database: %s", a.config.DatabasePath)

	select {
	case <-ctx.Done():
		a.logger.Info("Shutdown signal received")
	case err := <-serverDone:
		if err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP server failed: %v", err)
			return err
		}
	case err := <-analyzerDone:
		if err != nil {
			a.logger.Error("Analyzer failed: %v", err)
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP shutdown error: %v", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("Database close error: %v", err)
	}

	return nil
}
