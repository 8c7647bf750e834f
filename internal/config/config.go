package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

type Config struct {
	Primary      Primary            `koanf:"primary"`
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Gateway      GatewayConfig      `koanf:"gateway"`
	Retry        RetryConfig        `koanf:"retry"`
	Booking      BookingConfig      `koanf:"booking"`
	Cleanup      CleanupConfig      `koanf:"cleanup"`
	Worker       WorkerConfig       `koanf:"worker"`
	Notification NotificationConfig `koanf:"notification"`
	Cron         CronConfig         `koanf:"cron"`
	Logger       LoggerConfig       `koanf:"logger"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

type GatewayConfig struct {
	BaseURL     string        `koanf:"base_url" validate:"required"`
	APIKey      string        `koanf:"api_key" validate:"required"`
	ConnTimeout time.Duration `koanf:"conn_timeout" validate:"required"`
}

type RetryConfig struct {
	BaseDelay  int32 `koanf:"base_delay"`
	MaxRetries int32 `koanf:"max_retries"`
}

type BookingConfig struct {
	// CleanupBuffer is added after each booking's end time for room turnaround.
	CleanupBuffer time.Duration `koanf:"cleanup_buffer" validate:"required"`
	// PendingTTL is how long an unpaid booking holds its slot.
	PendingTTL    time.Duration `koanf:"pending_ttl" validate:"required"`
	MinimumCharge int64         `koanf:"minimum_charge" validate:"required"`
}

type CleanupConfig struct {
	// FallbackCeiling bounds pending bookings that predate expiry stamping.
	FallbackCeiling time.Duration `koanf:"fallback_ceiling" validate:"required"`
	BatchSize       int           `koanf:"batch_size" validate:"required"`
}

type WorkerConfig struct {
	Interval time.Duration `koanf:"interval" validate:"required"`
}

type NotificationConfig struct {
	AMQPURL  string `koanf:"amqp_url"`
	Exchange string `koanf:"exchange"`
}

type CronConfig struct {
	Secret string `koanf:"secret" validate:"required"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider("ARTHEMI_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "ARTHEMI_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}
