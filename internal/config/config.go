package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/pulsewatch/pulsewatch/internal/history"
	"github.com/pulsewatch/pulsewatch/internal/notify"
	"github.com/pulsewatch/pulsewatch/internal/scheduler"
	"github.com/pulsewatch/pulsewatch/internal/series"
	"github.com/pulsewatch/pulsewatch/pkg/utils"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig           `mapstructure:"app"`
	Influx    series.InfluxConfig `mapstructure:"influx"`
	Telegram  notify.Config       `mapstructure:"telegram"`
	Store     StoreConfig         `mapstructure:"store"`
	History   history.Config      `mapstructure:"history"`
	Scheduler scheduler.Config    `mapstructure:"scheduler"`
	Server    ServerConfig        `mapstructure:"server"`
	Logging   LoggingConfig       `mapstructure:"logging"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// StoreConfig contains record document configuration
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	Host          string        `mapstructure:"host"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	EnableMetrics bool          `mapstructure:"enable_metrics"`
	EnableHealth  bool          `mapstructure:"enable_health"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
	Output string `mapstructure:"output"` // stdout, file
	File   string `mapstructure:"file"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
	}

	viper.SetEnvPrefix("PULSEWATCH")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Secrets are commonly injected directly through the environment
	if token := os.Getenv("PULSEWATCH_INFLUX_TOKEN"); token != "" {
		config.Influx.Token = token
	}
	if token := os.Getenv("PULSEWATCH_BOT_TOKEN"); token != "" {
		config.Telegram.BotToken = token
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks configuration invariants that would otherwise surface as
// runtime failures.
func Validate(cfg *Config) error {
	if cfg.Store.Path == "" {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Record document path is required")
	}
	if cfg.Influx.URL == "" {
		return utils.NewAppError(utils.ErrCodeConfiguration, "InfluxDB URL is required")
	}
	if cfg.Influx.Org == "" {
		return utils.NewAppError(utils.ErrCodeConfiguration, "InfluxDB organization is required")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Invalid server port",
			fmt.Sprintf("%d", cfg.Server.Port))
	}
	if err := history.ValidateConfig(&cfg.History); err != nil {
		return err
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "pulsewatch")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)

	// Influx defaults
	viper.SetDefault("influx.url", "http://localhost:8086")
	viper.SetDefault("influx.org", "pulsewatch")

	// Telegram defaults (empty token falls back to the log sender)
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.timeout_seconds", 30)

	// Store defaults
	viper.SetDefault("store.path", "./data/records.json")

	// History defaults
	viper.SetDefault("history.enabled", true)
	viper.SetDefault("history.type", "sqlite")
	viper.SetDefault("history.connection_string", "./data/history.db")
	viper.SetDefault("history.max_connections", 10)
	viper.SetDefault("history.max_idle_time", "15m")
	viper.SetDefault("history.retention_days", 90)

	// Scheduler defaults
	viper.SetDefault("scheduler.query_window", "5m")
	viper.SetDefault("scheduler.result_buffer", 64)

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.enable_metrics", true)
	viper.SetDefault("server.enable_health", true)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.file", "")
}
