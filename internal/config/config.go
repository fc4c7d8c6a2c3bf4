package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/garyjia/pm-status-review/internal/domain/entity"
	"github.com/garyjia/pm-status-review/internal/domain/rules"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Review   ReviewConfig   `mapstructure:"review"`
	Report   ReportConfig   `mapstructure:"report"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Mode            string        `mapstructure:"mode"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// MigrationsDir overrides the embedded migrations when set
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// ReviewConfig holds review session configuration
type ReviewConfig struct {
	DefaultViewFilter   string        `mapstructure:"default_view_filter"`
	DefaultUpdateFilter string        `mapstructure:"default_update_filter"`
	Timezone            string        `mapstructure:"timezone"`
	BackendTimeout      time.Duration `mapstructure:"backend_timeout"`
	FulfillmentQueue    int           `mapstructure:"fulfillment_queue_size"`
	FulfillmentAttempts int           `mapstructure:"fulfillment_max_attempts"`
	FulfillmentDelay    time.Duration `mapstructure:"fulfillment_retry_delay"`
}

// ReportConfig holds status report configuration
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables. An empty
// configPath skips the file and uses defaults plus environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PMREVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the default configuration without reading a file or the
// environment
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.mode", "release")

	// Database defaults
	v.SetDefault("database.path", "data/pm_review.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrations_dir", "")

	// Review defaults
	v.SetDefault("review.default_view_filter", entity.FilterAll)
	v.SetDefault("review.default_update_filter", entity.FilterDueToday)
	v.SetDefault("review.timezone", "Local")
	v.SetDefault("review.backend_timeout", 30*time.Second)
	v.SetDefault("review.fulfillment_queue_size", 256)
	v.SetDefault("review.fulfillment_max_attempts", 3)
	v.SetDefault("review.fulfillment_retry_delay", 2*time.Second)

	// Report defaults
	v.SetDefault("report.output_dir", "reports")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds the short environment names used in deployment
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"database.path":   "PMREVIEW_DB_PATH",
		"server.port":     "PMREVIEW_PORT",
		"logger.level":    "PMREVIEW_LOG_LEVEL",
		"review.timezone": "PMREVIEW_TZ",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1")
	}

	if !rules.IsFilterAllowed(entity.ModeView, c.Review.DefaultViewFilter) {
		return fmt.Errorf("review.default_view_filter %q is not a view filter", c.Review.DefaultViewFilter)
	}
	if !rules.IsFilterAllowed(entity.ModeUpdate, c.Review.DefaultUpdateFilter) {
		return fmt.Errorf("review.default_update_filter %q is not an update filter", c.Review.DefaultUpdateFilter)
	}
	if _, err := c.Review.Location(); err != nil {
		return fmt.Errorf("review.timezone: %w", err)
	}
	if c.Review.FulfillmentQueue < 1 {
		return fmt.Errorf("review.fulfillment_queue_size must be at least 1")
	}
	if c.Review.FulfillmentAttempts < 1 {
		return fmt.Errorf("review.fulfillment_max_attempts must be at least 1")
	}

	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format)
	}

	return nil
}

// Location resolves the configured timezone that decides which day is
// "today"
func (r ReviewConfig) Location() (*time.Location, error) {
	if r.Timezone == "" || r.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(r.Timezone)
}
