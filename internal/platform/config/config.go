// Package config loads process configuration from the environment. A .env file
// in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// OTP provider names.
const (
	OTPProviderTwilio  = "twilio"
	OTPProviderConsole = "console"
)

// Server captures all process level configuration.
type Server struct {
	Addr            string        `env:"PHASEGATE_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"PHASEGATE_LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"PHASEGATE_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// DevMode unlocks development-only wiring such as the console OTP provider.
	DevMode bool `env:"PHASEGATE_DEV_MODE"`

	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	OTP      OTPConfig
	Kafka    KafkaConfig
	Tracing  TracingConfig
}

// DatabaseConfig selects the verification store. An empty URL runs the
// in-memory stores.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// RedisConfig backs the cross-process OTP send claim. An empty URL disables it.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// AuthConfig validates identity provider bearer tokens.
type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET"`
	JWTIssuer string `env:"AUTH_JWT_ISSUER"`
}

// OTPConfig selects and configures the SMS verification provider.
type OTPConfig struct {
	Provider         string        `env:"OTP_PROVIDER"`
	Cooldown         time.Duration `env:"OTP_COOLDOWN" envDefault:"45s"`
	PhoneSealKey     string        `env:"OTP_PHONE_SEAL_KEY"`
	ProviderTimeout  time.Duration `env:"OTP_PROVIDER_TIMEOUT" envDefault:"10s"`
	ConsoleCode      string        `env:"OTP_CONSOLE_CODE"`
	TwilioAccountSID string        `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string        `env:"TWILIO_AUTH_TOKEN"`
	TwilioServiceSID string        `env:"TWILIO_VERIFY_SERVICE_SID"`
}

// KafkaConfig enables the Kafka audit sink when brokers are set.
type KafkaConfig struct {
	Brokers         []string      `env:"KAFKA_BROKERS" envSeparator:","`
	AuditTopic      string        `env:"KAFKA_AUDIT_TOPIC" envDefault:"phasegate.audit"`
	DeliveryTimeout time.Duration `env:"KAFKA_DELIVERY_TIMEOUT" envDefault:"10s"`
}

// TracingConfig enables span export when an endpoint is set.
type TracingConfig struct {
	Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"phasegate"`
}

// Load reads an optional .env file and parses the environment.
func Load() (Server, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Server{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv parses and validates configuration from the process environment.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate reports the first configuration error that would make the server
// unable to serve requests.
func (c Server) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("config: AUTH_JWT_SECRET is required")
	}
	if len(c.OTP.PhoneSealKey) < 32 {
		return errors.New("config: OTP_PHONE_SEAL_KEY must be at least 32 characters")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.DeliveryTimeout <= 0 {
		return errors.New("config: KAFKA_DELIVERY_TIMEOUT must be positive")
	}
	if c.OTP.Cooldown <= 0 {
		return errors.New("config: OTP_COOLDOWN must be positive")
	}
	switch c.OTP.Provider {
	case "":
		return errors.New("config: OTP_PROVIDER is required")
	case OTPProviderConsole:
		if !c.DevMode {
			return errors.New("config: console OTP provider requires PHASEGATE_DEV_MODE=true")
		}
		if len(strings.TrimSpace(c.OTP.ConsoleCode)) < 4 {
			return errors.New("config: console OTP provider requires OTP_CONSOLE_CODE of at least 4 characters")
		}
	case OTPProviderTwilio:
		if c.OTP.TwilioAccountSID == "" || c.OTP.TwilioAuthToken == "" || c.OTP.TwilioServiceSID == "" {
			return errors.New("config: twilio provider requires TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_VERIFY_SERVICE_SID")
		}
	default:
		return fmt.Errorf("config: unknown OTP_PROVIDER %q", c.OTP.Provider)
	}
	return nil
}
