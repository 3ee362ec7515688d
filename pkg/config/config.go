package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the runtime configuration for the secretsconfig-agent.
// Secrets Manager settings (region, accepted ARNs, polling interval, ...) are
// read separately from the section prefixed by SectionPrefix.
type Config struct {
	ServiceName string `validate:"required"`
	Env         string `validate:"required,oneof=dev local uat prod"`
	LogLevel    string `validate:"required,oneof=debug info warn error"`

	Port             int           `validate:"min=1,max=65535"`
	HTTPReadTimeout  time.Duration `validate:"gt=0"`
	HTTPWriteTimeout time.Duration `validate:"gt=0"`
	HTTPIdleTimeout  time.Duration `validate:"gt=0"`
	ShutdownTimeout  time.Duration `validate:"gt=0"`

	// LoadTimeout bounds the initial fetch performed at startup.
	LoadTimeout time.Duration `validate:"gt=0"`
	// ReloadTimeout bounds a forced reload triggered over HTTP.
	ReloadTimeout time.Duration `validate:"gt=0"`

	SectionPrefix string `validate:"required"`

	// NATSURL is optional; when empty no reload events are published.
	NATSURL       string `validate:"omitempty,url"`
	ReloadSubject string `validate:"required_with=NATSURL"`
	StreamService string
}

// Load loads configuration from environment variables and optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServiceName:      GetEnv("SERVICE_NAME", "secretsconfig-agent"),
		Env:              GetEnv("ENV", "dev"),
		LogLevel:         GetEnv("LOG_LEVEL", "info"),
		Port:             GetEnvInt("PORT", 9040),
		HTTPReadTimeout:  GetEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
		HTTPWriteTimeout: GetEnvDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
		HTTPIdleTimeout:  GetEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:  GetEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		LoadTimeout:      GetEnvDuration("LOAD_TIMEOUT", 60*time.Second),
		ReloadTimeout:    GetEnvDuration("RELOAD_TIMEOUT", 30*time.Second),
		SectionPrefix:    GetEnv("SECTION_PREFIX", "SECRETS_MANAGER_"),
		NATSURL:          GetEnv("NATS_URL", ""),
		ReloadSubject:    GetEnv("RELOAD_SUBJECT", "evt.config.reloaded.v1"),
		StreamService:    GetEnv("STREAM_SERVICE", "CONFIG_EVENTS"),
	}
}

// Validate checks the loaded values against the struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid agent config: %w", err)
	}
	return nil
}
