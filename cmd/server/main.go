package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stwalsh4118/farmboard/internal/config"
	"github.com/stwalsh4118/farmboard/internal/database"
	"github.com/stwalsh4118/farmboard/internal/editor"
	"github.com/stwalsh4118/farmboard/internal/events"
	"github.com/stwalsh4118/farmboard/internal/farmapi"
	"github.com/stwalsh4118/farmboard/internal/geo"
	"github.com/stwalsh4118/farmboard/internal/handlers"
	"github.com/stwalsh4118/farmboard/internal/logger"
	"github.com/stwalsh4118/farmboard/internal/mapview"
	"github.com/stwalsh4118/farmboard/internal/metrics"
	"github.com/stwalsh4118/farmboard/internal/middleware"
	"github.com/stwalsh4118/farmboard/internal/repository"
	"github.com/stwalsh4118/farmboard/internal/services"
	"github.com/stwalsh4118/farmboard/internal/weather"
)

const (
	shutdownTimeout     = 30 * time.Second
	poolMetricsInterval = 15 * time.Second
	sessionMaxAge       = 24 * time.Hour
	purgeInterval       = 30 * time.Minute
	weatherCachePrefix  = "farmboard:weather:"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Server.Env)
	log.Info("Starting farmboard API", map[string]interface{}{
		"version":       handlers.APIVersion,
		"environment":   cfg.Server.Env,
		"port":          cfg.Server.Port,
		"session_store": cfg.Editor.SessionStore,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Editor session storage
	var (
		sessions repository.BoundarySessionRepository
		pinger   handlers.Pinger
	)
	if cfg.UsesPostgres() {
		db, err := database.NewPostgresPool(ctx, cfg.Database)
		if err != nil {
			log.Fatal("Failed to connect to database", err, map[string]interface{}{
				"host": cfg.Database.Host,
				"port": cfg.Database.Port,
				"name": cfg.Database.Name,
			})
		}
		defer db.Close()

		if err := db.EnsureSchema(ctx); err != nil {
			log.Fatal("Failed to apply database schema", err, nil)
		}
		go db.ReportPoolMetrics(ctx, poolMetricsInterval)

		log.Info("Database connection established", map[string]interface{}{
			"host":     cfg.Database.Host,
			"port":     cfg.Database.Port,
			"database": cfg.Database.Name,
			"pool_min": cfg.Database.PoolMin,
			"pool_max": cfg.Database.PoolMax,
		})
		sessions = repository.NewBoundarySessionRepository(db)
		pinger = db
	} else {
		log.Warn("Editor sessions are kept in memory and lost on restart", nil)
		sessions = repository.NewMemoryBoundarySessionRepository()
	}

	// Boundary events
	publisher := newPublisher(cfg.NATS, log)
	defer publisher.Close()

	// Weather
	weatherService := newWeatherService(ctx, cfg, log)

	// Farm API
	farm, err := farmapi.NewClient(cfg.FarmAPI.BaseURL,
		farmapi.WithHTTPClient(&http.Client{Timeout: cfg.FarmAPI.Timeout}),
		farmapi.WithLogger(log),
	)
	if err != nil {
		log.Fatal("Invalid Farm API configuration", err, map[string]interface{}{
			"url": cfg.FarmAPI.BaseURL,
		})
	}

	mapOptions := mapview.Options{
		Center:      geo.LatLng(cfg.Map.CenterLat, cfg.Map.CenterLng),
		WideZoom:    cfg.Map.WideZoom,
		FocusedZoom: cfg.Map.FocusedZoom,
	}

	// Initialize service layer
	editorService := services.NewEditorService(sessions, publisher, editor.NewReducer(cfg.Editor.CommitWindow), log)
	parcelService := services.NewParcelService(farm, editorService, log)

	go purgeSessions(ctx, editorService, log)

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS -> Metrics -> FarmSession
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))
	router.Use(metrics.Middleware())
	router.Use(middleware.FarmSession())

	router.GET("/metrics", metrics.Handler())
	handlers.RegisterRoutes(router, handlers.Handlers{
		Health:    handlers.NewHealthHandler(pinger, cfg.Server.Env),
		Auth:      handlers.NewAuthHandler(services.NewAuthService(farm, log)),
		Editor:    handlers.NewEditorHandler(editorService, parcelService),
		Parcels:   handlers.NewParcelHandler(parcelService, editorService),
		Map:       handlers.NewMapHandler(services.NewMapService(farm, mapOptions, log)),
		Weather:   handlers.NewWeatherHandler(weatherService, mapOptions.Center),
		Dashboard: handlers.NewDashboardHandler(services.NewDashboardService(farm, log), services.NewInventoryService(farm, log)),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}

// newPublisher connects to NATS when a URL is configured and logs events otherwise.
func newPublisher(cfg config.NATSConfig, log *logger.Logger) events.Publisher {
	if cfg.URL == "" {
		return events.NewLogPublisher(log)
	}

	publisher, err := events.NewNATSPublisher(cfg.URL, cfg.JetStream)
	if err != nil {
		log.Error("Failed to connect to NATS, logging boundary events instead", err, map[string]interface{}{
			"url": cfg.URL,
		})
		return events.NewLogPublisher(log)
	}

	log.Info("Publishing boundary events to NATS", map[string]interface{}{
		"url":       cfg.URL,
		"jetstream": cfg.JetStream,
		"subject":   events.SubjectPrefix + "*",
	})
	return publisher
}

// newWeatherService builds the weather service, with a Redis cache when one is
// configured and reachable.
func newWeatherService(ctx context.Context, cfg *config.Config, log *logger.Logger) *weather.Service {
	provider := weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.APIKey, cfg.Weather.Timeout)
	if cfg.Weather.APIKey == "" {
		log.Warn("No weather API key configured, serving sample data", nil)
	}

	if cfg.Redis.Addr == "" {
		return weather.NewService(provider, nil, cfg.Weather.CacheTTL, log)
	}

	client, err := weather.OpenRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Warn("Weather cache unavailable", map[string]interface{}{
			"addr":  cfg.Redis.Addr,
			"error": err.Error(),
		})
		return weather.NewService(provider, nil, cfg.Weather.CacheTTL, log)
	}

	go func() {
		<-ctx.Done()
		_ = client.Close()
	}()
	return weather.NewService(provider, weather.NewRedisCache(client, weatherCachePrefix), cfg.Weather.CacheTTL, log)
}

// purgeSessions drops abandoned editor sessions until ctx is cancelled.
func purgeSessions(ctx context.Context, editors services.EditorService, log *logger.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := editors.PurgeStale(ctx, sessionMaxAge); err != nil {
				log.Error("Failed to purge editor sessions", err, nil)
			}
		}
	}
}
