package observability

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cityflow/crm/internal/auth"
	"github.com/cityflow/crm/internal/config"
	"github.com/cityflow/crm/internal/domain"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/tickets", "POST", 201, 15*time.Millisecond)
	m.RecordRequest("/tickets", "POST", 201, 5*time.Millisecond)
	m.TicketCreated("high")
	m.AssignmentRefused()
	m.SLATransition("breached")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/tickets", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticketsCreated.WithLabelValues("high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.assignRefused))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.slaTransitions.WithLabelValues("breached")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.TicketCreated("low")
		m.AssignmentRefused()
		m.SLATransition("warning")
		m.AttachmentFailed()
	})
	assert.Nil(t, m.Registry())
}

func TestNewLoggerLevels(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "WARN"}, config.AppConfig{Name: "crm", Env: "production"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	logger, err = NewLogger(config.LoggerConfig{Level: "chatty"}, config.AppConfig{Env: "development"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestRequestLoggerIncludesSession(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	m := NewMetrics()

	app := fiber.New()
	app.Use(RequestLogger(zap.New(core), m))
	app.Get("/tickets/:id", func(c *fiber.Ctx) error {
		auth.WithSession(c, &domain.Session{ProfileID: "p-1", Role: domain.RoleManager})
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/health/live", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	_, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/tickets/42", nil))
	require.NoError(t, err)
	_, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/health/live", nil))
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 2)
	ctx := entries[0].ContextMap()
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "/tickets/:id", ctx["route"])
	assert.Equal(t, "p-1", ctx["profile_id"])
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/tickets/:id", "200")))
}
