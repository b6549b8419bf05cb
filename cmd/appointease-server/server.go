package main

import (
	"context"
	crypto_rand "crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/appointease/appointease/internal/config"
	"github.com/appointease/appointease/internal/domain/appointment"
	"github.com/appointease/appointease/internal/domain/dashboard"
	"github.com/appointease/appointease/internal/domain/diagnostics"
	"github.com/appointease/appointease/internal/domain/doctor"
	"github.com/appointease/appointease/internal/domain/identity"
	"github.com/appointease/appointease/internal/domain/notification"
	"github.com/appointease/appointease/internal/domain/pharmacy"
	"github.com/appointease/appointease/internal/platform/apierror"
	"github.com/appointease/appointease/internal/platform/auth"
	"github.com/appointease/appointease/internal/platform/cache"
	"github.com/appointease/appointease/internal/platform/db"
	"github.com/appointease/appointease/internal/platform/middleware"
)

const shutdownTimeout = 10 * time.Second

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	secret, generated, err := resolveJWTSecret(cfg.JWTSecret, cfg.IsDev())
	if err != nil {
		return err
	}
	if generated {
		logger.Warn().Msg("JWT_SECRET not set; using a random development secret, tokens will not survive restarts")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	var (
		revoker    auth.Revoker
		statsCache cache.Cache = cache.Noop{}
	)
	if cfg.RedisURL != "" {
		rdb, err := newRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		revoker = auth.NewRedisRevoker(rdb)
		statsCache = cache.NewRedisCache(rdb, "appointease:stats:")
		logger.Info().Msg("connected to redis")
	} else {
		mem := auth.NewMemoryRevoker(time.Minute)
		defer mem.Close()
		revoker = mem
		logger.Warn().Msg("REDIS_URL not set; logout deny-list is in memory and per process")
	}

	hasher, err := auth.NewPasswordHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}
	tokens := auth.NewTokenManager(secret, cfg.TokenTTL)

	e, api := newEcho(cfg, logger)
	protected := api.Group("", auth.Authenticate(tokens, revoker, logger))
	api.GET("/health/db", db.HealthHandler(pool, logger))
	registerDomains(api, protected, pool, domainDeps{
		tokens:     tokens,
		hasher:     hasher,
		revoker:    revoker,
		statsCache: statsCache,
		statsTTL:   cfg.StatsCacheTTL,
		logger:     logger,
	})

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newEcho builds the server with global middleware and the /api group.
// Routes that need the database are added by the caller.
func newEcho(cfg *config.Config, logger zerolog.Logger) (*echo.Echo, *echo.Group) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apierror.Handler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	sec := middleware.SecurityConfig{}
	if cfg.IsProduction() {
		sec.HSTSMaxAge = 31536000
	}
	e.Use(middleware.SecurityHeaders(sec))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, "Retry-After"},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: cfg.RequestTimeout,
		Skipper: func(c echo.Context) bool { return c.Path() == "/api/health" },
	}))

	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}

	api := e.Group("/api", middleware.RateLimit(rl))
	api.GET("/health", healthHandler(time.Now))
	return e, api
}

func healthHandler(now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"message":   "Server is running",
			"timestamp": now().UTC().Format(time.RFC3339Nano),
		})
	}
}

type domainDeps struct {
	tokens     *auth.TokenManager
	hasher     *auth.PasswordHasher
	revoker    auth.Revoker
	statsCache cache.Cache
	statsTTL   time.Duration
	logger     zerolog.Logger
}

func registerDomains(public, protected *echo.Group, pool *pgxpool.Pool, d domainDeps) {
	tx := db.NewTransactor(pool)

	notifSvc := notification.NewService(notification.NewRepoPG(pool))
	notification.NewHandler(notifSvc).RegisterRoutes(protected)

	identitySvc := identity.NewService(identity.NewUserRepoPG(pool), identity.NewDoctorRepoPG(pool),
		tx, d.tokens, d.hasher, d.revoker)
	identity.NewHandler(identitySvc).RegisterRoutes(public, protected)

	doctor.NewHandler(doctor.NewService(doctor.NewRepoPG(pool))).RegisterRoutes(public)

	dashSvc := dashboard.NewService(dashboard.NewRepoPG(pool), d.statsCache, d.statsTTL, d.logger)

	apptSvc := appointment.NewService(appointment.NewRepoPG(pool), tx, notifSvc)
	apptSvc.SetStatsInvalidator(dashSvc)
	appointment.NewHandler(apptSvc).RegisterRoutes(protected)

	pharmacySvc := pharmacy.NewService(pharmacy.NewRepoPG(pool), tx, notifSvc)
	pharmacySvc.SetStatsInvalidator(dashSvc)
	pharmacy.NewHandler(pharmacySvc).RegisterRoutes(public, protected)

	dxSvc := diagnostics.NewService(diagnostics.NewRepoPG(pool), tx, notifSvc)
	dxSvc.SetStatsInvalidator(dashSvc)
	diagnostics.NewHandler(dxSvc).RegisterRoutes(public, protected)

	dashboard.NewHandler(dashSvc).RegisterRoutes(protected)
}

func newRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return rdb, nil
}

// resolveJWTSecret returns the configured signing secret. In development a
// missing secret is replaced by a random 32-byte key; the second return value
// reports that case.
func resolveJWTSecret(configured string, dev bool) ([]byte, bool, error) {
	if configured != "" {
		return []byte(configured), false, nil
	}
	if !dev {
		return nil, false, errors.New("JWT_SECRET is required outside development")
	}
	key := make([]byte, 32)
	if _, err := crypto_rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("generate development JWT secret: %w", err)
	}
	return []byte(hex.EncodeToString(key)), true, nil
}
