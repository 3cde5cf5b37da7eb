package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dharmasatrya/flightsession/internal/api"
	"github.com/dharmasatrya/flightsession/internal/autocomplete"
	"github.com/dharmasatrya/flightsession/internal/cache"
	"github.com/dharmasatrya/flightsession/internal/config"
	"github.com/dharmasatrya/flightsession/internal/flights"
	"github.com/dharmasatrya/flightsession/internal/handler"
	flog "github.com/dharmasatrya/flightsession/internal/log"
	"github.com/dharmasatrya/flightsession/internal/ratelimit"
	"github.com/dharmasatrya/flightsession/internal/session"
	"github.com/dharmasatrya/flightsession/internal/timezone"
)

const sweepInterval = time.Minute

func main() {
	configPath := flag.String("config", "", "optional config file (yaml, json or toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot := flog.Base()
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	flog.Configure(flog.Config{Level: cfg.LogLevel, Service: "flightsession"})
	logger := flog.WithComponent("main")

	limiter := ratelimit.NewEndpointLimiter(ratelimit.Config{
		RequestsPerSecond: cfg.APIRateLimitRPS,
		BurstSize:         cfg.APIRateLimitBurst,
	})
	limiter.SetLimit(api.EndpointSearch, cfg.APIRateLimitRPS/2, max(1, cfg.APIRateLimitBurst/4))
	client := api.New(cfg.APIBaseURL, api.WithLimiter(limiter))

	var flightCache cache.Cache
	if cfg.CacheEnabled {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			TTL:      cfg.RedisTTL,
		}, flog.WithComponent("cache"))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		flightCache = redisCache
		logger.Info().Str("addr", cfg.RedisAddr()).Dur("ttl", cfg.RedisTTL).Msg("redis cache enabled")
	} else {
		flightCache = cache.NewNoOpCache()
		logger.Info().Msg("cache disabled")
	}
	defer flightCache.Close()

	registry := session.NewRegistry(newSessionFactory(cfg, client, flightCache), cfg.SessionIdleTTL)
	defer registry.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go registry.Run(ctx, sweepInterval)

	e := newServer(registry)

	go func() {
		logger.Info().Str("port", cfg.Port).Str("api", cfg.APIBaseURL).Msg("starting flight session server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// newSessionFactory gives every session its own fetchers so that typing in
// one tab never cancels a lookup in another.
func newSessionFactory(cfg config.Config, client *api.Client, c cache.Cache) session.Factory {
	loc := timezone.GetLocationByName(cfg.DisplayTimezone)
	acLogger := flog.WithComponent("autocomplete")
	flLogger := flog.WithComponent("flights")
	sessLogger := flog.WithComponent("session")

	return func() *session.Store {
		acfg := autocomplete.Config{
			Debounce: cfg.AutocompleteDebounce,
			Timeout:  cfg.AutocompleteTimeout,
			Logger:   &acLogger,
		}
		return session.New(session.Dependency{
			OriginSuggestions:      autocomplete.NewFetcher(client, acfg),
			DestinationSuggestions: autocomplete.NewFetcher(client, acfg),
			Flights: flights.NewSearcher(client, flights.Config{
				Timeout:  cfg.SearchTimeout,
				Location: loc,
				Cache:    c,
				Logger:   &flLogger,
			}),
			Debounce: cfg.AutocompleteDebounce,
			Logger:   &sessLogger,
		})
	}
}

func newServer(registry *session.Registry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowHeaders:  []string{echo.HeaderContentType, handler.HeaderSessionID},
		ExposeHeaders: []string{handler.HeaderSessionID},
	}))
	e.Use(middleware.RequestID())
	e.Use(requestLogger(flog.WithComponent("http")))

	sessionHandler := handler.NewSessionHandler(registry)
	sessionHandler.Register(e.Group("/api/v1"))
	e.GET("/health", sessionHandler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := logger.Info()
			if v.Error != nil {
				ev = logger.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int(flog.FieldStatus, v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str(flog.FieldSessionID, c.Response().Header().Get(handler.HeaderSessionID)).
				Msg("request")
			return nil
		},
	})
}
