package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/portfolio-collage/backend/internal/analytics"
	"github.com/portfolio-collage/backend/internal/api"
	"github.com/portfolio-collage/backend/internal/collage"
	"github.com/portfolio-collage/backend/internal/config"
	"github.com/portfolio-collage/backend/internal/session"
	"github.com/portfolio-collage/backend/internal/storage"
	"github.com/portfolio-collage/backend/internal/web"
	"golang.org/x/sync/errgroup"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("Server error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	configPath := filepath.Join(filepath.Dir(exePath), "portfolio.config.xml")

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Portfolio content
	content, err := storage.NewSQLiteStore(cfg.Storage.ContentDatabase)
	if err != nil {
		return fmt.Errorf("failed to open content database: %w", err)
	}
	defer content.Close()

	if n, err := storage.SeedIfEmpty(ctx, content, cfg.Storage.SeedFile); err != nil {
		fmt.Printf("Warning: failed to seed portfolio content: %v\n", err)
	} else if n > 0 {
		fmt.Printf("Seeded %d portfolio items from %s\n", n, cfg.Storage.SeedFile)
	}

	// Drag analytics. Both interfaces stay nil when disabled.
	var (
		events   *analytics.EventStore
		recorder session.EventRecorder
		stats    api.AnalyticsStore
	)
	if cfg.Storage.EnableAnalytics {
		events, err = analytics.NewEventStore(cfg.Storage.AnalyticsDatabase)
		if err != nil {
			fmt.Printf("Warning: analytics disabled: %v\n", err)
		} else {
			defer events.Close()
			recorder = events
			stats = events
		}
	}

	sessionMgr := session.NewManager(recorder)
	defer sessionMgr.Close()

	// The manifest is re-read per collage so edits apply without a restart.
	sources := func() ([]collage.ImageSource, error) {
		return collage.LoadManifest(cfg.Collage.ManifestFile, cfg.Storage.AssetsDirectory)
	}
	if imgs, err := sources(); err != nil {
		fmt.Printf("Warning: collage manifest unavailable: %v\n", err)
	} else {
		fmt.Printf("Collage manifest lists %d images\n", len(imgs))
	}

	e := echo.New()
	e.HideBanner = true
	configureMiddleware(e, cfg)

	api.SetupMiddleware(e)
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Content:   content,
		Sessions:  sessionMgr,
		Analytics: stats,
		Sources:   sources,
		Defaults: session.Options{
			Layout:    cfg.LayoutOptions(),
			Simulate:  cfg.Simulation.Enabled,
			Simulator: cfg.SimulatorConfig(),
		},
		AllowEditing:     cfg.Advanced.AllowContentEditing,
		WSMaxMessageSize: cfg.Advanced.WebSocketMaxMessageSize,
		Version:          Version,
	}))

	// Frontend and media assets go last so /api wins.
	if err := web.RegisterStaticRoutes(e, cfg.Storage.AssetsDirectory); err != nil {
		fmt.Printf("Warning: failed to register static routes: %v\n", err)
	}

	printBanner(cfg, configPath, events != nil)

	g, gctx := errgroup.WithContext(ctx)
	s := newServer(cfg, gctx)

	g.Go(func() error {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		fmt.Println("Shutting down server...")
		return e.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		interval := cfg.CleanupInterval()
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				sessionMgr.CleanupOldSessions(cfg.SessionTimeout())
			}
		}
	})

	if events != nil {
		g.Go(func() error {
			return events.Run(gctx, time.Duration(cfg.Advanced.AnalyticsFlushSeconds)*time.Second)
		})
	}

	return g.Wait()
}

// newServer builds the HTTP server. Request contexts derive from base, so
// cancelling it ends drag streams and WebSocket connections, which
// http.Server.Shutdown would otherwise wait on. There is no WriteTimeout
// because streams stay open; ordinary handlers are bounded by the context
// timeout middleware instead.
func newServer(cfg *config.PortfolioConfig, base context.Context) *http.Server {
	return &http.Server{
		Addr:        cfg.GetServerAddr(),
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		IdleTimeout: time.Duration(cfg.Server.IdleTimeout) * time.Second,
		BaseContext: func(net.Listener) context.Context { return base },
	}
}

// isStream reports requests that must not be buffered, compressed or
// cut short: SSE drag streams and WebSocket upgrades.
func isStream(c echo.Context) bool {
	req := c.Request()
	return strings.HasSuffix(req.URL.Path, "/stream") ||
		strings.HasSuffix(req.URL.Path, "/ws") ||
		req.Header.Get("Accept") == "text/event-stream" ||
		strings.EqualFold(req.Header.Get("Upgrade"), "websocket")
}

func configureMiddleware(e *echo.Echo, cfg *config.PortfolioConfig) {
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/keepalive") ||
				path == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	if cfg.Server.WriteTimeout > 0 {
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Timeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
			Skipper: isStream,
		}))
	}

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: isStream,
	}))

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 1 && origins[0] == "" {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}

func printBanner(cfg *config.PortfolioConfig, configPath string, analyticsOn bool) {
	mode := "Development"
	if web.HasEmbeddedFiles() {
		mode = "Embedded frontend"
	}
	drags := "off"
	if analyticsOn {
		drags = cfg.Storage.AnalyticsDatabase
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Portfolio Collage Server                        ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Mode:       %-45s║\n", mode)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Content:   %-46s║\n", cfg.Storage.ContentDatabase)
	fmt.Printf("║  Analytics: %-46s║\n", drags)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
}
