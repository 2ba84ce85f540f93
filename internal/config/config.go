package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DefaultConfigPath         = "config.toml"
	DefaultEnvFile            = ".env"
	DefaultHTTPAddr           = ":3000"
	DefaultTelegramAPIBaseURL = "https://api.telegram.org"
	DefaultWebhookPath        = "/webhook"
	DefaultPollTimeoutSeconds = 30
	DefaultPollRetryDelay     = 5 * time.Second
	DefaultResolverBaseURL    = "https://terabox.mohanishx1.workers.dev/"
	DefaultTrigger            = "terabox"
	DefaultMaxResourceBytes   = 50 * 1024 * 1024
	DefaultMetricsPath        = "/metrics"

	ModeWebhook = "webhook"
	ModePoll    = "poll"
)

type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Telegram TelegramConfig `toml:"telegram"`
	Resolver ResolverConfig `toml:"resolver"`
	Relay    RelayConfig    `toml:"relay"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

type LogConfig struct {
	Level  string `toml:"level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Format string `toml:"format" env:"LOG_FORMAT" validate:"oneof=text json"`
}

type ServerConfig struct {
	Addr string `toml:"addr" env:"SERVER_ADDR"`
	// Port overrides the port part of Addr when set.
	Port int `toml:"port" env:"PORT" validate:"gte=0,lte=65535"`
}

type TelegramConfig struct {
	BotToken           string        `toml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	APIBaseURL         string        `toml:"api_base_url" env:"TELEGRAM_API_BASE_URL" validate:"required,url"`
	Mode               string        `toml:"mode" env:"RELAY_MODE" validate:"oneof=webhook poll"`
	WebhookPath        string        `toml:"webhook_path" env:"WEBHOOK_PATH" validate:"required,startswith=/"`
	PollTimeoutSeconds int           `toml:"poll_timeout_seconds" env:"POLL_TIMEOUT_SECONDS" validate:"gte=0"`
	PollRetryDelay     time.Duration `toml:"poll_retry_delay" env:"POLL_RETRY_DELAY" validate:"gt=0"`
}

type ResolverConfig struct {
	BaseURL          string        `toml:"base_url" env:"RESOLVER_BASE_URL" validate:"required,url"`
	Trigger          string        `toml:"trigger" env:"RELAY_TRIGGER" validate:"required"`
	MaxResourceBytes int64         `toml:"max_resource_bytes" env:"RESOLVER_MAX_BYTES" validate:"gt=0"`
	Timeout          time.Duration `toml:"timeout" env:"RESOLVER_TIMEOUT" validate:"gte=0"`
}

type RelayConfig struct {
	// ConfirmOnUploadFailure sends the success confirmation even when the
	// upload call failed.
	ConfirmOnUploadFailure bool `toml:"confirm_on_upload_failure" env:"CONFIRM_ON_UPLOAD_FAILURE"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" env:"METRICS_ENABLED"`
	Path    string `toml:"path" env:"METRICS_PATH" validate:"required,startswith=/"`
}

// ListenAddr returns the address the HTTP server binds to.
func (c ServerConfig) ListenAddr() string {
	addr := strings.TrimSpace(c.Addr)
	if addr == "" {
		addr = DefaultHTTPAddr
	}
	if c.Port <= 0 {
		return addr
	}
	host := addr
	if idx := strings.LastIndex(addr, ":"); idx >= 0 {
		host = addr[:idx]
	}
	return host + ":" + strconv.Itoa(c.Port)
}

// HasToken reports whether a bot token is configured. A missing token is not
// rejected; Bot API calls made without one fail at the platform.
func (c TelegramConfig) HasToken() bool {
	return strings.TrimSpace(c.BotToken) != ""
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Telegram: TelegramConfig{
			APIBaseURL:         DefaultTelegramAPIBaseURL,
			Mode:               ModeWebhook,
			WebhookPath:        DefaultWebhookPath,
			PollTimeoutSeconds: DefaultPollTimeoutSeconds,
			PollRetryDelay:     DefaultPollRetryDelay,
		},
		Resolver: ResolverConfig{
			BaseURL:          DefaultResolverBaseURL,
			Trigger:          DefaultTrigger,
			MaxResourceBytes: DefaultMaxResourceBytes,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
	}
}

// Load reads the TOML file at path (missing files are ignored), loads a .env
// file into the process environment when present, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", DefaultEnvFile, err)
	}
	return LoadWithEnv(path, nil)
}

// LoadWithEnv is Load with an explicit environment. A nil environ reads the
// process environment; no .env file is consulted.
func LoadWithEnv(path string, environ map[string]string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints declared on the config structs.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
