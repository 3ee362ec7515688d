package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	envVars := []string{
		"SERVICE_NAME", "ENV", "LOG_LEVEL", "PORT",
		"HTTP_READ_TIMEOUT", "HTTP_WRITE_TIMEOUT", "HTTP_IDLE_TIMEOUT",
		"SHUTDOWN_TIMEOUT", "LOAD_TIMEOUT", "RELOAD_TIMEOUT",
		"SECTION_PREFIX", "NATS_URL", "RELOAD_SUBJECT", "STREAM_SERVICE",
	}
	for _, key := range envVars {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.ServiceName != "secretsconfig-agent" {
		t.Errorf("expected ServiceName=secretsconfig-agent, got %s", cfg.ServiceName)
	}
	if cfg.Env != "dev" {
		t.Errorf("expected Env=dev, got %s", cfg.Env)
	}
	if cfg.Port != 9040 {
		t.Errorf("expected Port=9040, got %d", cfg.Port)
	}
	if cfg.SectionPrefix != "SECRETS_MANAGER_" {
		t.Errorf("expected SectionPrefix=SECRETS_MANAGER_, got %s", cfg.SectionPrefix)
	}
	if cfg.NATSURL != "" {
		t.Errorf("expected empty NATSURL, got %s", cfg.NATSURL)
	}
	if cfg.LoadTimeout != 60*time.Second {
		t.Errorf("expected LoadTimeout=60s, got %v", cfg.LoadTimeout)
	}
	if cfg.ReloadSubject != "evt.config.reloaded.v1" {
		t.Errorf("expected ReloadSubject=evt.config.reloaded.v1, got %s", cfg.ReloadSubject)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("PORT", "8088")
	t.Setenv("NATS_URL", "nats://nats.internal:4222")
	t.Setenv("RELOAD_TIMEOUT", "5s")

	cfg := Load()

	if cfg.Env != "prod" {
		t.Errorf("expected Env=prod, got %s", cfg.Env)
	}
	if cfg.Port != 8088 {
		t.Errorf("expected Port=8088, got %d", cfg.Port)
	}
	if cfg.NATSURL != "nats://nats.internal:4222" {
		t.Errorf("unexpected NATSURL %s", cfg.NATSURL)
	}
	if cfg.ReloadTimeout != 5*time.Second {
		t.Errorf("expected ReloadTimeout=5s, got %v", cfg.ReloadTimeout)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("PORT", "")
	t.Setenv("NATS_URL", "")

	cases := map[string]func(c *Config){
		"unknown env":       func(c *Config) { c.Env = "staging" },
		"port out of range": func(c *Config) { c.Port = 70000 },
		"bad log level":     func(c *Config) { c.LogLevel = "verbose" },
		"zero load timeout": func(c *Config) { c.LoadTimeout = 0 },
		"nats url garbage":  func(c *Config) { c.NATSURL = "not a url" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Load()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}
