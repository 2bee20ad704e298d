package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/maproute/internal/adapters/geoip"
	"github.com/samirrijal/maproute/internal/adapters/googlemaps"
	"github.com/samirrijal/maproute/internal/adapters/http"
	natsadapter "github.com/samirrijal/maproute/internal/adapters/nats"
	"github.com/samirrijal/maproute/internal/adapters/valkey"
	"github.com/samirrijal/maproute/internal/core/domain"
	"github.com/samirrijal/maproute/internal/core/ports"
	"github.com/samirrijal/maproute/internal/core/usecases"
	"github.com/samirrijal/maproute/internal/pkg/config"
	"github.com/samirrijal/maproute/internal/pkg/logging"
	"github.com/samirrijal/maproute/internal/pkg/telemetry"
)

const serviceName = "maproute-api"

var version = "dev"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Log.Level, cfg.Log.Format, serviceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	// Directions provider
	provider, err := googlemaps.New(googlemaps.Options{
		APIKey:    cfg.Google.APIKey,
		BaseURL:   cfg.Google.BaseURL,
		Language:  cfg.Google.Language,
		RateLimit: cfg.Google.RateLimit,
	})
	if err != nil {
		log.Fatalf("directions provider: %v", err)
	}

	// Cache
	var (
		cache      *valkey.Cache
		routeCache ports.CacheService
	)
	if cfg.Valkey.Enabled {
		cache, err = valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix)
		if err != nil {
			slog.Warn("valkey unavailable, route caching disabled", "error", err)
		} else {
			defer cache.Close()
			routeCache = cache
		}
	}

	// NATS
	var (
		publisher  ports.EventPublisher
		subscriber ports.EventSubscriber
		natsConn   *natsadapter.Publisher
	)
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL, cfg.NATS.StreamMaxAge, cfg.NATS.PublishTimeout)
		if err != nil {
			slog.Warn("nats unavailable, session events disabled", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
			natsConn = pub
		}

		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
			subscriber = sub
		}
	}

	// Geolocation
	var locator ports.Geolocator
	if cfg.GeoIP.DBPath != "" {
		loc, err := geoip.Open(cfg.GeoIP.DBPath, cfg.GeoIP.Locale)
		if err != nil {
			slog.Warn("geoip database unavailable, locate disabled", "path", cfg.GeoIP.DBPath, "error", err)
		} else {
			defer loc.Close()
			locator = loc
		}
	}

	// Use cases
	fetcher := usecases.NewRouteFetcher(provider, routeCache, cfg.Directions.Timeout, cfg.Cache.RouteTTL)
	sessions := usecases.NewSessionService(fetcher, locator, publisher, mapSettings(cfg))
	go sessions.RunJanitor(ctx, cfg.Session.JanitorInterval)

	deps := &http.Dependencies{
		Sessions:       sessions,
		Subscriber:     subscriber,
		Cache:          cache,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
		RateLimit:      cfg.Server.RateLimit,
		Version:        version,
	}
	if natsConn != nil {
		deps.NATS = natsConn.Conn()
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "MapRoute API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.Server.AllowOrigins, ", "),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := cfg.Addr()
		slog.Info("API server starting", "addr", addr, "version", version)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	if err := sessions.Drain(shutdownCtx); err != nil {
		slog.Warn("route fetches still running at exit", "error", err)
	}

	slog.Info("server stopped")
}

func mapSettings(cfg *config.Config) usecases.MapSettings {
	m := cfg.Map
	return usecases.MapSettings{
		StyleURL: m.StyleURL,
		InitialCamera: domain.Camera{
			Center: domain.GeoPoint{Lat: m.InitialLat, Lng: m.InitialLng},
			Zoom:   m.InitialZoom,
		},
		DefaultViewport: domain.Viewport{Width: m.Width, Height: m.Height},
		FitPadding: domain.Padding{
			Top:    m.FitPadding.Top,
			Right:  m.FitPadding.Right,
			Bottom: m.FitPadding.Bottom,
			Left:   m.FitPadding.Left,
		},
		FitDurationMs: m.FitDurationMs,
		MaxZoom:       m.MaxZoom,
		LocateZoom:    m.LocateZoom,
		RowHeight:     m.RowHeight,
		Overscan:      m.Overscan,
		ListChrome:    m.ListChrome,
		SessionTTL:    cfg.Session.TTL,
		EventTimeout:  cfg.NATS.PublishTimeout,
	}
}
