// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Joseph-Bethune/Gabble-Live/internal/auth"
)

const (
	defaultAccessSecret  = "access-secret-change-in-production"
	defaultRefreshSecret = "refresh-secret-change-in-production"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"APP_ENV"`
	DBDriver            string        `mapstructure:"DB_DRIVER"`
	DBHost              string        `mapstructure:"DB_HOST"`
	DBPort              string        `mapstructure:"DB_PORT"`
	DBUser              string        `mapstructure:"DB_USER"`
	DBPassword          string        `mapstructure:"DB_PASSWORD"`
	DBName              string        `mapstructure:"DB_NAME"`
	DBSSLMode           string        `mapstructure:"DB_SSLMODE"`
	DBSQLitePath        string        `mapstructure:"DB_SQLITE_PATH"`
	RedisURL            string        `mapstructure:"REDIS_URL"`
	AllowedOrigins      string        `mapstructure:"ALLOWED_ORIGINS"`
	AccessTokenSecret   string        `mapstructure:"ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret  string        `mapstructure:"REFRESH_TOKEN_SECRET"`
	AccessTokenTTL      time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL     time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	TokenIssuer         string        `mapstructure:"TOKEN_ISSUER"`
	BcryptCost          int           `mapstructure:"BCRYPT_COST"`
	TracingEnabled      bool          `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string        `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string        `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64       `mapstructure:"TRACING_SAMPLER_RATIO"`
	BootstrapAdminEmail string        `mapstructure:"BOOTSTRAP_ADMIN_EMAIL"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AddConfigPath("../..")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	// The base file is optional; env vars and defaults cover everything.
	_ = v.ReadInConfig()

	env := v.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		slog.Info("Loaded profile-specific configuration", slog.String("profile", "config."+env+".yml"))
	}

	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3500")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "gabble")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_SQLITE_PATH", "gabble.db")
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	v.SetDefault("ACCESS_TOKEN_SECRET", defaultAccessSecret)
	v.SetDefault("REFRESH_TOKEN_SECRET", defaultRefreshSecret)
	v.SetDefault("ACCESS_TOKEN_TTL", time.Hour)
	v.SetDefault("REFRESH_TOKEN_TTL", 24*time.Hour)
	v.SetDefault("TOKEN_ISSUER", "gabble")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
	v.SetDefault("BOOTSTRAP_ADMIN_EMAIL", "")
}

// IsProduction reports whether the config targets a production deployment.
func (c *Config) IsProduction() bool {
	e := strings.ToLower(strings.TrimSpace(c.Env))
	return e == "production" || e == "prod"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.AccessTokenSecret == "" || c.RefreshTokenSecret == "" {
		return errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET are required")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	if c.IsProduction() {
		if c.AccessTokenSecret == defaultAccessSecret || c.RefreshTokenSecret == defaultRefreshSecret {
			return errors.New("token secrets must be changed from the default values in production")
		}
		if len(c.AccessTokenSecret) < 32 || len(c.RefreshTokenSecret) < 32 {
			return errors.New("token secrets must be at least 32 characters in production")
		}
		if c.AccessTokenSecret == c.RefreshTokenSecret {
			return errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ in production")
		}
		if c.DBDriver == "postgres" && (c.DBPassword == "password" || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			slog.Warn("DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
		}
		if c.AllowedOrigins == "*" {
			slog.Warn("ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.AccessTokenSecret) < 32 {
		slog.Warn("ACCESS_TOKEN_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}

// AuthConfig derives the token and cookie settings handed to the auth service.
func (c *Config) AuthConfig() auth.Config {
	return auth.Config{
		AccessSecret:  []byte(c.AccessTokenSecret),
		RefreshSecret: []byte(c.RefreshTokenSecret),
		AccessTTL:     c.AccessTokenTTL,
		RefreshTTL:    c.RefreshTokenTTL,
		Issuer:        c.TokenIssuer,
		BcryptCost:    c.BcryptCost,
		SecureCookies: c.IsProduction(),
	}
}
