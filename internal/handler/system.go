package handler

import (
	"context"
	"net/http"
	"time"

	"kycportal/pkg/logger"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// SystemHandler serves health and readiness probes.
type SystemHandler struct {
	db          *sqlx.DB
	redisClient *redis.Client
	logger      logger.Logger
	startTime   time.Time
}

// NewSystemHandler creates a SystemHandler.
func NewSystemHandler(db *sqlx.DB, redisClient *redis.Client, log logger.Logger) *SystemHandler {
	return &SystemHandler{
		db:          db,
		redisClient: redisClient,
		logger:      log,
		startTime:   time.Now(),
	}
}

// Health handles GET /health. It reports per-dependency status and degrades
// the overall status if any dependency check fails.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{
		"database": "ok",
		"redis":    "ok",
	}
	status := http.StatusOK

	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
		h.logger.Error("Database health check failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		checks["redis"] = "unavailable"
		status = http.StatusServiceUnavailable
		h.logger.Error("Redis health check failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "degraded"
	}

	respondJSON(w, status, map[string]interface{}{
		"status":         overall,
		"checks":         checks,
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
	})
}
