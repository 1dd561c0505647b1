package db

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolUsage is the connection usage snapshot reported by the health endpoint.
type PoolUsage struct {
	Total    int32 `json:"total_conns"`
	Idle     int32 `json:"idle_conns"`
	Acquired int32 `json:"acquired_conns"`
	Max      int32 `json:"max_conns"`
}

// HealthReport is the /health/db payload.
type HealthReport struct {
	Status  string    `json:"status"`
	Service string    `json:"service"`
	Version string    `json:"version"`
	Error   string    `json:"error,omitempty"`
	Pool    PoolUsage `json:"pool"`
}

func newHealthReport(version string, usage PoolUsage, pingErr error) HealthReport {
	report := HealthReport{
		Status:  "healthy",
		Service: "convenio-api",
		Version: version,
		Pool:    usage,
	}
	if pingErr != nil {
		report.Status = "unhealthy"
		report.Error = pingErr.Error()
	}
	return report
}

// HealthHandler serves the database health check: a bounded ping plus the
// pool usage snapshot, tagged with the running service version.
func HealthHandler(pool *pgxpool.Pool, version string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), pingTimeout)
		defer cancel()

		err := pool.Ping(ctx)

		stat := pool.Stat()
		report := newHealthReport(version, PoolUsage{
			Total:    stat.TotalConns(),
			Idle:     stat.IdleConns(),
			Acquired: stat.AcquiredConns(),
			Max:      stat.MaxConns(),
		}, err)

		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, report)
		}
		return c.JSON(http.StatusOK, report)
	}
}
