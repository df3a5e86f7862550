// Package main is the entry point for the medical calendar server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medical-calendar/backend/internal/api"
	"github.com/medical-calendar/backend/internal/calendar"
	"github.com/medical-calendar/backend/internal/config"
	"github.com/medical-calendar/backend/internal/logging"
	"github.com/medical-calendar/backend/internal/metrics"
	"github.com/medical-calendar/backend/internal/schedule"
	"github.com/medical-calendar/backend/internal/session"
	"github.com/medical-calendar/backend/internal/storage"
	"github.com/medical-calendar/backend/internal/storage/models"
	"github.com/medical-calendar/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "/data/config.yaml", "Path to the YAML configuration file")
	addr := flag.String("addr", "", "HTTP server address (overrides config)")
	dataDir := flag.String("data", "", "Data directory for SQLite database (overrides config)")
	staticDir := flag.String("static", "", "Directory for static frontend files (overrides config)")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		listen := *addr
		if listen == "" {
			listen = config.DefaultConfig().Listen
		}
		if err := runHealthCheck(listen); err != nil {
			fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Listen = *addr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *staticDir != "" {
		cfg.StaticDir = *staticDir
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	// Allow overriding version via environment (e.g., injected by container build/runtime)
	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	if err := run(cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	slog.Info("starting medical calendar", "version", version, "timezone", cfg.Timezone)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database ready", "path", db.Path())

	loc := cfg.Location()
	settingsRepo := storage.NewSettingsRepository(db)
	view, order := storedSettings(ctx, settingsRepo, cfg.View(), cfg.Order())

	eventRepo := storage.NewEventRepository(db, loc)
	store, err := calendar.Seed(ctx, eventRepo, calendar.SeedOptions{
		Source:   cfg.Calendar.Seed,
		ICS:      cfg.Calendar.SeedICS,
		Horizon:  cfg.ICSHorizon(),
		Location: loc,
	})
	if err != nil {
		return fmt.Errorf("seeding events: %w", err)
	}

	m := metrics.New()
	m.SetEvents(store.Len())

	hub := websocket.NewHub()
	go hub.Run(ctx)
	broadcaster := websocket.NewEventBroadcaster(hub)

	svc := calendar.NewService(store, order, view)
	svc.SetObserver(m)
	svc.SetSettings(settingsRepo)
	svc.OnChange(calendar.NewPersister(eventRepo).Persist)
	svc.OnChange(broadcaster.BroadcastEventsChanged)
	svc.OnChange(m.ObserveChange)

	sessions := session.NewManager(cfg.Session.Secret, cfg.Session.TTL, accounts(cfg.Session.Accounts))
	sessions.OnTeardown(func(s *session.Session, reason string) {
		svc.Release(s.ID)
		broadcaster.NotifySessionEnded(s.ID, reason)
		m.SetSessions(sessions.Count())
	})

	scheduler := calendar.NewScheduler(svc, sessions, hub, m)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer scheduler.Stop()

	router := api.NewRouter(api.Deps{
		DB:         db,
		Hub:        hub,
		Calendar:   svc,
		Sessions:   sessions,
		Scheduler:  scheduler,
		Metrics:    m,
		StaticDir:  cfg.StaticDir,
		ICSHorizon: cfg.ICSHorizon(),
	})

	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.Listen)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// storedSettings prefers settings saved from the dashboard over the config file.
func storedSettings(ctx context.Context, repo *storage.SettingsRepository, view schedule.ViewMode, order schedule.GroupOrder) (schedule.ViewMode, schedule.GroupOrder) {
	if v, ok, err := repo.Get(ctx, models.SettingDefaultView); err != nil {
		slog.Warn("reading stored setting", "key", models.SettingDefaultView, "error", err)
	} else if ok {
		if mode, err := schedule.ParseViewMode(v); err == nil {
			view = mode
		}
	}
	if v, ok, err := repo.Get(ctx, models.SettingGroupOrder); err != nil {
		slog.Warn("reading stored setting", "key", models.SettingGroupOrder, "error", err)
	} else if ok {
		if o, err := schedule.ParseGroupOrder(v); err == nil {
			order = o
		}
	}
	return view, order
}

func accounts(in []config.Account) []session.Account {
	out := make([]session.Account, 0, len(in))
	for _, a := range in {
		out = append(out, session.Account{
			Email:        a.Email,
			Name:         a.Name,
			Role:         a.Role,
			PasswordHash: a.PasswordHash,
		})
	}
	return out
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
