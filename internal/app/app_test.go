package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/vitrine/core/baas"
	"github.com/relabs-tech/vitrine/core/client"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("ALLOWED_ORIGINS", "https://ceconi3d.com.br, https://admin.ceconi3d.com.br")
	cfg, err := LoadConfig("does-not-exist.env")
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "Local", cfg.KSSDriver)
	assert.Equal(t, "@hourly", cfg.SweepSchedule)
	assert.Equal(t, 30*24*time.Hour, cfg.LoginStateRetention)
	assert.Equal(t, []string{"https://ceconi3d.com.br", "https://admin.ceconi3d.com.br"}, cfg.origins())
}

func TestConfigValidation(t *testing.T) {
	valid := Config{Store: StoreMemory, KSSDriver: "Local", LogLevel: "info"}
	assert.NoError(t, valid.validate())

	tests := map[string]func(c *Config){
		"postgres without dsn": func(c *Config) { c.Store = StorePostgres },
		"unknown store":        func(c *Config) { c.Store = "mongo" },
		"s3 without bucket":    func(c *Config) { c.KSSDriver = "AWSS3" },
		"unknown driver":       func(c *Config) { c.KSSDriver = "ftp" },
		"bad log level":        func(c *Config) { c.LogLevel = "loud" },
		"admin without pw":     func(c *Config) { c.AdminEmail = "admin@ceconi3d.com.br" },
	}
	for name, modify := range tests {
		c := valid
		modify(&c)
		assert.Error(t, c.validate(), name)
	}
}

func TestNewWithMemoryStores(t *testing.T) {
	cfg := Config{
		LogLevel:      "warn",
		Store:         StoreMemory,
		KSSDriver:     "Local",
		KSSPath:       t.TempDir(),
		SessionSecret: "s3cret",
		AdminEmail:    "admin@ceconi3d.com.br",
		AdminPassword: "Imprime3D!",
		LoginRate:     10,
		LoginBurst:    5,
		SweepSchedule: "@daily",
	}
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()
	// orphan sweep, login state cleanup and limiter cleanup
	assert.Len(t, a.Cron.Entries(), 3)

	server := httptest.NewServer(a.API.Handler())
	defer server.Close()
	cl := client.NewWithURL(server.URL)

	var session baas.Session
	status, err := cl.RawPost("/session", map[string]string{"email": cfg.AdminEmail, "password": cfg.AdminPassword}, &session)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)

	var stats map[string]interface{}
	_, err = cl.WithToken(session.Token).RawGet("/admin/stats", &stats)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats["total_products"])

	var metrics []byte
	_, err = cl.RawGet("/metrics", &metrics)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "vitrine_auth_sign_ins_total")
}

func TestNewRejectsBadSchedule(t *testing.T) {
	_, err := New(context.Background(), Config{
		LogLevel:      "warn",
		Store:         StoreMemory,
		KSSDriver:     "Local",
		KSSPath:       t.TempDir(),
		SessionSecret: "s3cret",
		SweepSchedule: "every now and then",
	})
	assert.Error(t, err)
}
