package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SECRET", "session-secret")
	t.Setenv("CSRF_SECRET", "csrf-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "gotenberg", cfg.PDFRenderer)
	assert.Equal(t, int64(10<<20), cfg.UploadMaxBytes)
	assert.Equal(t, 10*time.Minute, cfg.ReportCacheTTL)
	assert.Equal(t, "QT", cfg.QuotationPrefix)
	assert.Equal(t, 30, cfg.DefaultValidityDays)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("PDF_RENDERER", "native")
	t.Setenv("QUOTATION_PREFIX", "QD")
	t.Setenv("REPORT_CACHE_TTL", "90s")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "native", cfg.PDFRenderer)
	assert.Equal(t, "QD", cfg.QuotationPrefix)
	assert.Equal(t, 90*time.Second, cfg.ReportCacheTTL)
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("CSRF_SECRET", "")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	base := func() Config {
		return Config{
			SessionSecret: "s", CSRFSecret: "c", LogFormat: "pretty", PDFRenderer: "native",
			UploadMaxBytes: 1, RateLimitPerMinute: 1, DefaultValidityDays: 1, DefaultCurrency: "EUR",
		}
	}
	ok := base()
	require.NoError(t, ok.Validate())

	cases := map[string]func(*Config){
		"renderer": func(c *Config) { c.PDFRenderer = "wkhtml" },
		"log":      func(c *Config) { c.LogFormat = "xml" },
		"upload":   func(c *Config) { c.UploadMaxBytes = 0 },
		"rate":     func(c *Config) { c.RateLimitPerMinute = 0 },
		"validity": func(c *Config) { c.DefaultValidityDays = -1 },
		"currency": func(c *Config) { c.DefaultCurrency = "EURO" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigRedisOptions(t *testing.T) {
	setRequired(t)
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_PASSWORD", "hunter2")
	t.Setenv("REDIS_DB", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	opts := cfg.RedisOptions()
	assert.Equal(t, "redis:6380", opts.Addr)
	assert.Equal(t, "hunter2", opts.Password)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 20, opts.PoolSize)
}
