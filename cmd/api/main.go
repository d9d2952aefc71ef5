package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-discount/internal/auth"
	"github.com/noah-isme/backend-discount/internal/config"
	"github.com/noah-isme/backend-discount/internal/discount"
	"github.com/noah-isme/backend-discount/internal/evaluation"
	"github.com/noah-isme/backend-discount/internal/health"
	"github.com/noah-isme/backend-discount/internal/obs"
	"github.com/noah-isme/backend-discount/internal/ratelimit"
	"github.com/noah-isme/backend-discount/internal/security"
	"github.com/noah-isme/backend-discount/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "discount")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", false)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:    "discount-api",
			ServiceVersion: envOrDefault("APP_VERSION", ""),
			Environment:    cfg.AppEnv,
			Exporter:       envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			Endpoint:       envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Insecure:       envBool("OBS_OTLP_INSECURE", false),
			SamplingRatio:  envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	fixed, err := discount.NewFixedEngine(cfg.FixedRule)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise fixed rule")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	backend, err := store.Open(ctx, store.OpenOptions{
		Driver:          cfg.StoreDriver,
		RedisURL:        cfg.RedisURL,
		DatabaseURL:     cfg.DatabaseURL,
		CacheTTL:        cfg.ConfigCacheTTL,
		Migrate:         envBool("DB_AUTO_MIGRATE", true),
		InstrumentRedis: metricsEnabled || tracingEnabled,
		ApplicationName: "discount-api",
		BreakerOpenFor:  envDurationMillis("STORE_BREAKER_OPEN_MS", 10000),
		Logger:          logger,
	})
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("open configuration store")
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error().Err(err).Msg("close store")
		}
	}()

	svc := &evaluation.Service{
		Fixed:  fixed,
		Store:  backend.Store,
		Logger: logger,
	}

	memoryLimiter := ratelimit.NewMemoryLimiter()
	var limiter ratelimit.Allower = memoryLimiter
	if backend.Redis != nil {
		limiter = ratelimit.Limiter{Client: backend.Redis, Prefix: "discount:ratelimit:"}
	}
	rateLimit := ratelimit.Handler{
		Limiter:  limiter,
		Fallback: memoryLimiter,
		Config: ratelimit.Config{
			Key:    ratelimit.KeyByClientAndDiscount,
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		},
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}

	verifier := auth.NewVerifier(cfg.AdminJWTSecret, cfg.AdminJWTIssuer, cfg.AdminJWTAudience)
	if cfg.AdminJWTSecret == "" {
		logger.Warn().Msg("ADMIN_JWT_SECRET not set; admin endpoints will reject every request")
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.CORS(cfg.CORSAllowedOrigins))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checkers: readinessCheckers(backend),
		Timeout:  envDurationMillis("HEALTH_READY_TIMEOUT_MS", 500),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	bodyLimit := security.BodyLimit{Max: cfg.BodyLimitBytes}
	r.Route("/api/v1", func(v chi.Router) {
		v.Use(bodyLimit.Middleware)
		evaluation.Mount(v, svc, evaluation.RouteOptions{
			Run:   []func(http.Handler) http.Handler{rateLimit.Middleware},
			Admin: []func(http.Handler) http.Handler{auth.Middleware{Parser: verifier}.RequireAuth},
		})
	})

	var handler http.Handler = r
	if tracingEnabled {
		handler = obs.TracingMiddleware(r)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	serve(srv, logger)
}

func serve(srv *http.Server, logger zerolog.Logger) {
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
		return
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	health.SetReady(false)
	ctx, cancel := context.WithTimeout(context.Background(), envDurationMillis("SHUTDOWN_TIMEOUT_MS", 10000))
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

func readinessCheckers(backend *store.Backend) map[string]health.Checker {
	checkers := map[string]health.Checker{}
	if backend.Store != nil {
		checkers["store"] = backend.Store
	}
	if backend.Redis != nil {
		checkers["redis"] = health.CheckerFunc(func(ctx context.Context) error {
			return backend.Redis.Ping(ctx).Err()
		})
	}
	return checkers
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}
