package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrInvalidConfig marks configuration problems that must stop the process.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the application configuration.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT" validate:"required"`
	LogLevel   string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat  string `mapstructure:"LOG_FORMAT" validate:"oneof=json console"`
	LogFile    string `mapstructure:"LOG_FILE"`

	DBDriver    string `mapstructure:"DB_DRIVER" validate:"oneof=sqlite postgres"`
	SQLitePath  string `mapstructure:"SQLITE_PATH" validate:"required_if=DBDriver sqlite"`
	PostgresURL string `mapstructure:"POSTGRES_URL" validate:"required_if=DBDriver postgres"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB" validate:"gte=0"`

	// Alerts cannot be delivered without these, so they are mandatory.
	TelegramBotToken   string  `mapstructure:"TELEGRAM_BOT_TOKEN" validate:"required"`
	TelegramChatID     string  `mapstructure:"TELEGRAM_CHAT_ID" validate:"required"`
	TelegramAPIURL     string  `mapstructure:"TELEGRAM_API_URL" validate:"required,url"`
	TelegramRatePerSec float64 `mapstructure:"TELEGRAM_RATE_PER_SEC" validate:"gt=0"`

	PageLoadTimeoutSeconds int    `mapstructure:"PAGE_LOAD_TIMEOUT_SECONDS" validate:"gte=1"`
	PageSettleMillis       int    `mapstructure:"PAGE_SETTLE_MS" validate:"gte=0"`
	TakeScreenshots        bool   `mapstructure:"TAKE_SCREENSHOTS"`
	ScreenshotDir          string `mapstructure:"SCREENSHOT_DIR" validate:"required"`
	DownloadTimeoutSeconds int    `mapstructure:"DOWNLOAD_TIMEOUT_SECONDS" validate:"gte=1"`
	DownloadDir            string `mapstructure:"DOWNLOAD_DIR" validate:"required"`

	TickIntervalMillis  int  `mapstructure:"TICK_INTERVAL_MS" validate:"gte=100"`
	MaxConcurrentChecks int  `mapstructure:"MAX_CONCURRENT_CHECKS" validate:"gte=1"`
	MonitoringEnabled   bool `mapstructure:"MONITORING_ENABLED"`
	HashChangeAlerts    bool `mapstructure:"HASH_CHANGE_ALERTS"`
	RecoveryAlerts      bool `mapstructure:"RECOVERY_ALERTS"`
	LogRetention        int  `mapstructure:"LOG_RETENTION" validate:"gte=1,lte=20"`
}

var defaults = map[string]any{
	"SERVER_PORT":               "8080",
	"LOG_LEVEL":                 "info",
	"LOG_FORMAT":                "json",
	"LOG_FILE":                  "",
	"DB_DRIVER":                 "sqlite",
	"SQLITE_PATH":               "data/sitewatch.db",
	"POSTGRES_URL":              "",
	"REDIS_ADDR":                "",
	"REDIS_PASSWORD":            "",
	"REDIS_DB":                  0,
	"TELEGRAM_BOT_TOKEN":        "",
	"TELEGRAM_CHAT_ID":          "",
	"TELEGRAM_API_URL":          "https://api.telegram.org",
	"TELEGRAM_RATE_PER_SEC":     1.0,
	"PAGE_LOAD_TIMEOUT_SECONDS": 30,
	"PAGE_SETTLE_MS":            2000,
	"TAKE_SCREENSHOTS":          true,
	"SCREENSHOT_DIR":            "screenshots",
	"DOWNLOAD_TIMEOUT_SECONDS":  30,
	"DOWNLOAD_DIR":              "downloads",
	"TICK_INTERVAL_MS":          1000,
	"MAX_CONCURRENT_CHECKS":     1,
	"MONITORING_ENABLED":        true,
	"HASH_CHANGE_ALERTS":        false,
	"RECOVERY_ALERTS":           true,
	"LOG_RETENTION":             20,
}

// Load reads configuration from an optional env file and the environment,
// then validates it.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
	}
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Attempt to read the env file, but don't fail if it's not present.
	// This allows configuration purely through environment variables in production.
	if envFile != "" {
		_ = v.ReadInConfig()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration, wrapping every problem in ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) PageLoadTimeout() time.Duration {
	return time.Duration(c.PageLoadTimeoutSeconds) * time.Second
}

func (c *Config) PageSettleDelay() time.Duration {
	return time.Duration(c.PageSettleMillis) * time.Millisecond
}

func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.DownloadTimeoutSeconds) * time.Second
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMillis) * time.Millisecond
}
