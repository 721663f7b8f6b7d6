package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Email     EmailConfig     `mapstructure:"email"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"` // "dev" or "production"
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For and
	// X-Real-IP headers are honored
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// StorageConfig selects the key-value backend for progress records
type StorageConfig struct {
	Type string `mapstructure:"type"` // "sql", "redis" or "memory"
}

type DatabaseConfig struct {
	Type           string `mapstructure:"type"` // "sqlite", "postgres" or "mysql"
	Path           string `mapstructure:"path"`
	URL            string `mapstructure:"url"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	TokenSecret string        `mapstructure:"token_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
}

type CatalogConfig struct {
	Path string `mapstructure:"path"` // empty uses the embedded catalog
}

// EmailConfig configures parent notifications; an empty From disables them
type EmailConfig struct {
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
	Region   string `mapstructure:"region"`
}

type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

const devTokenSecret = "luminexus-dev-secret-change-me"

// Load reads configuration from defaults, an optional config.yaml and the
// environment. Variables use the LUMINEXUS_ prefix with dots replaced by
// underscores (LUMINEXUS_STORAGE_TYPE); PORT and DB_PATH are honored too.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}
	v.SetEnvPrefix("LUMINEXUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// legacyEnv maps config keys to the plain variable names deployments used
// before the LUMINEXUS_ prefix
var legacyEnv = [][]string{
	{"server.port", "LUMINEXUS_SERVER_PORT", "PORT"},
	{"database.path", "LUMINEXUS_DATABASE_PATH", "DB_PATH"},
	{"database.migrations_path", "LUMINEXUS_DATABASE_MIGRATIONS_PATH", "MIGRATIONS_PATH"},
}

func bindLegacyEnv(v *viper.Viper) error {
	for _, binding := range legacyEnv {
		if err := v.BindEnv(binding...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", binding[0], err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "dev")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("storage.type", "sql")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "./luminexus.db")
	v.SetDefault("database.url", "")
	v.SetDefault("database.migrations_path", "./migrations")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.token_secret", devTokenSecret)
	v.SetDefault("auth.token_ttl", 30*24*time.Hour)

	v.SetDefault("catalog.path", "")

	v.SetDefault("email.from", "")
	v.SetDefault("email.from_name", "Luminexus")
	v.SetDefault("email.region", getEnv("AWS_REGION", "us-east-1"))

	v.SetDefault("ratelimit.requests", 10)
	v.SetDefault("ratelimit.window", time.Minute)
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	mode := strings.ToLower(c.Server.Mode)
	return mode == "prod" || mode == "production"
}

// Validate rejects unknown backends and unsafe production settings
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Type) {
	case "sql", "redis", "memory":
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	switch strings.ToLower(c.Database.Type) {
	case "sqlite", "sqlite3", "postgres", "postgresql", "mysql":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if c.Auth.TokenSecret == "" {
		return errors.New("auth.token_secret is required")
	}
	if c.IsProduction() && c.Auth.TokenSecret == devTokenSecret {
		return errors.New("auth.token_secret must be set in production")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("ratelimit.requests and ratelimit.window must be positive")
	}
	return nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
