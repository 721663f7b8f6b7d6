package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sql", cfg.Storage.Type)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "./luminexus.db", cfg.Database.Path)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.False(t, cfg.IsProduction())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LUMINEXUS_STORAGE_TYPE", "redis")
	t.Setenv("LUMINEXUS_REDIS_ADDR", "cache:6379")
	t.Setenv("LUMINEXUS_AUTH_TOKEN_TTL", "2h")
	t.Setenv("DB_PATH", "/data/progress.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Storage.Type)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "/data/progress.db", cfg.Database.Path)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Mode: "dev"},
			Storage:   StorageConfig{Type: "sql"},
			Database:  DatabaseConfig{Type: "sqlite"},
			Auth:      AuthConfig{TokenSecret: "s3cret", TokenTTL: time.Hour},
			RateLimit: RateLimitConfig{Requests: 5, Window: time.Minute},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "memory storage", mutate: func(c *Config) { c.Storage.Type = "memory" }, wantErr: false},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage.Type = "s3" }, wantErr: true},
		{name: "unknown database", mutate: func(c *Config) { c.Database.Type = "oracle" }, wantErr: true},
		{name: "empty secret", mutate: func(c *Config) { c.Auth.TokenSecret = "" }, wantErr: true},
		{
			name: "dev secret in production",
			mutate: func(c *Config) {
				c.Server.Mode = "production"
				c.Auth.TokenSecret = devTokenSecret
			},
			wantErr: true,
		},
		{name: "zero rate limit", mutate: func(c *Config) { c.RateLimit.Requests = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBindLegacyEnv(t *testing.T) {
	t.Setenv("MIGRATIONS_PATH", "/opt/luminexus/migrations")
	t.Setenv("LUMINEXUS_SERVER_TRUSTED_PROXIES", "10.0.0.1,192.168.0.0/16")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/opt/luminexus/migrations", cfg.Database.MigrationsPath)
	assert.Equal(t, []string{"10.0.0.1", "192.168.0.0/16"}, cfg.Server.TrustedProxies)
}
