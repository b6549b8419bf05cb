package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const healthPingTimeout = 3 * time.Second

// PoolStats is the pool snapshot returned by /api/health/db.
type PoolStats struct {
	TotalConns    int32 `json:"total_conns"`
	IdleConns     int32 `json:"idle_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
	MaxConns      int32 `json:"max_conns"`
}

type HealthReport struct {
	Status string    `json:"status"`
	PingMS int64     `json:"ping_ms"`
	Pool   PoolStats `json:"pool"`
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

func poolStats(pool *pgxpool.Pool) PoolStats {
	s := pool.Stat()
	return PoolStats{
		TotalConns:    s.TotalConns(),
		IdleConns:     s.IdleConns(),
		AcquiredConns: s.AcquiredConns(),
		MaxConns:      s.MaxConns(),
	}
}

// HealthHandler pings the database and reports pool usage. A failed ping
// is logged and answered with 503; the driver error is not sent to clients.
func HealthHandler(pool *pgxpool.Pool, logger zerolog.Logger) echo.HandlerFunc {
	return healthHandler(pool, func() PoolStats { return poolStats(pool) }, logger)
}

func healthHandler(p Pinger, stats func() PoolStats, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
		defer cancel()

		start := time.Now()
		err := p.Ping(ctx)
		report := HealthReport{
			Status: "ok",
			PingMS: time.Since(start).Milliseconds(),
			Pool:   stats(),
		}
		if err != nil {
			logger.Warn().Err(err).Msg("database health check failed")
			report.Status = "unavailable"
			return c.JSON(http.StatusServiceUnavailable, report)
		}
		return c.JSON(http.StatusOK, report)
	}
}
