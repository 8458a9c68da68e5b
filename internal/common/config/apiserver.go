package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata" // billing zones must resolve in minimal images

	"github.com/amoylab/cleanbill/pkg/trace"
)

type (
	APIServerConfig struct {
		Server    ServerConfig    `yaml:"server"`
		Database  DatabaseConfig  `yaml:"database"`
		Logger    LoggerConfig    `yaml:"logger"`
		JWT       JWTConfig       `yaml:"jwt"`
		Billing   BillingConfig   `yaml:"billing"`
		Scheduler SchedulerConfig `yaml:"scheduler"`
		Redis     RedisConfig     `yaml:"redis"`
		Metrics   MetricsConfig   `yaml:"metrics"`
		Tracing   trace.Config    `yaml:"tracing"`
		I18n      I18nConfig      `yaml:"i18n"`
		CORS      CORSConfig      `yaml:"cors"`
	}

	ServerConfig struct {
		Port            int           `yaml:"port"`
		Mode            string        `yaml:"mode"` // debug, release, test
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	}

	// I18nConfig represents the internationalization configuration
	I18nConfig struct {
		Path        string `yaml:"path"` // optional directory overriding the embedded translations
		DefaultLang string `yaml:"default_lang"`
	}

	DatabaseConfig struct {
		Type     string `yaml:"type"`     // mysql, postgres, sqlite
		Host     string `yaml:"host"`     // localhost
		Port     int    `yaml:"port"`     // 3306 (for mysql), 5432 (for postgres)
		User     string `yaml:"user"`     // root (for mysql), postgres (for postgres)
		Password string `yaml:"password"` // password
		DBName   string `yaml:"dbname"`   // database name, or file path for sqlite
		SSLMode  string `yaml:"sslmode"`  // disable (for postgres)
		LogLevel string `yaml:"log_level"`
	}

	JWTConfig struct {
		SecretKey string        `yaml:"secret_key"`
		Duration  time.Duration `yaml:"duration"`
	}

	// BillingConfig tunes invoice numbering and totals
	BillingConfig struct {
		NumberRetries       int    `yaml:"number_retries"`
		ClampNegativeTotals bool   `yaml:"clamp_negative_totals"`
		Location            string `yaml:"location"` // time zone for numbering month and "today"
	}

	SchedulerConfig struct {
		Enabled     bool          `yaml:"enabled"`
		OverdueSpec string        `yaml:"overdue_spec"` // cron expression
		LockTTL     time.Duration `yaml:"lock_ttl"`
	}
)

func (c *APIServerConfig) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5234
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	defaultDuration(&c.Server.ShutdownTimeout, 10*time.Second)
	defaultDuration(&c.JWT.Duration, 24*time.Hour)
	if c.Billing.NumberRetries <= 0 {
		c.Billing.NumberRetries = 5
	}
	if c.Billing.Location == "" {
		c.Billing.Location = "UTC"
	}
	if c.Scheduler.OverdueSpec == "" {
		c.Scheduler.OverdueSpec = "5 0 * * *"
	}
	defaultDuration(&c.Scheduler.LockTTL, 5*time.Minute)
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "cleanbill"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "cleanbill"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "cleanbill-apiserver"
	}
	if c.I18n.DefaultLang == "" {
		c.I18n.DefaultLang = "en"
	}
}

// Loc returns the billing time zone, falling back to UTC
func (c *BillingConfig) Loc() *time.Location {
	if c.Location == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	switch c.Type {
	case "postgres":
		return c.getPostgresDSN()
	case "mysql":
		return c.getMySQLDSN()
	case "sqlite":
		if c.DBName != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(c.DBName), 0755); err != nil {
				panic(fmt.Errorf("failed to create directory for sqlite database: %w", err))
			}
		}
		return c.DBName
	default:
		return ""
	}
}

// getPostgresDSN returns PostgreSQL connection string
func (c *DatabaseConfig) getPostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// getMySQLDSN returns MySQL connection string
func (c *DatabaseConfig) getMySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}
