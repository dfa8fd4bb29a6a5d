package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "", NormalizeURL("  "))
	assert.Equal(t, "https://crm.example.com", NormalizeURL("crm.example.com/"))
	assert.Equal(t, "http://localhost:8069", NormalizeURL(" http://localhost:8069// "))
}

func TestNew_ReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ODOO_URL", "crm.example.com/")
	t.Setenv("ODOO_TIMEOUT", "5")
	t.Setenv("ODOO_ENABLED", "no")
	t.Setenv("WS_PONG_WAIT", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("REDIS_DB", "не число")

	cfg := New()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "https://crm.example.com", cfg.Odoo.URL)
	assert.Equal(t, 5*time.Second, cfg.Odoo.Timeout)
	assert.False(t, cfg.Odoo.Enabled)
	assert.Equal(t, 30*time.Second, cfg.WebSocket.PongWait)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, 5*time.Second, cfg.Postgres.QueryTimeout)
}
