package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger is a dependency that can be probed for readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	startedAt   time.Time
	postgres    Pinger
	redis       Pinger
}

// NewHealthHandler builds the handler. redis is nil when sessions and lookups run on the
// in-process store.
func NewHealthHandler(serviceName, version string, postgres, redis Pinger) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		startedAt:   time.Now(),
		postgres:    postgres,
		redis:       redis,
	}
}

type probeResult struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

func probe(ctx context.Context, dep Pinger) probeResult {
	start := time.Now()
	err := dep.Ping(ctx)
	res := probeResult{Status: "ok", LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		res.Status = "down"
		res.Error = err.Error()
	}
	return res
}

// Live GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         "alive",
		"service":        h.serviceName,
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

// Ready GET /health/ready. Postgres gates readiness; a Redis outage only degrades it because
// sessions and lookups fall back to the in-process store.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	deps := map[string]probeResult{"postgres": probe(ctx, h.postgres)}
	status := "ready"
	if h.redis == nil {
		deps["redis"] = probeResult{Status: "disabled"}
	} else if res := probe(ctx, h.redis); res.Status != "ok" {
		res.Status = "degraded"
		deps["redis"] = res
		status = "degraded"
	} else {
		deps["redis"] = res
	}

	if deps["postgres"].Status != "ok" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "postgres unavailable",
				"details": deps,
			},
		})
	}
	return c.JSON(fiber.Map{"status": status, "dependencies": deps})
}
