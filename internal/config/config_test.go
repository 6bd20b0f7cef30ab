package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want development", cfg.Env)
	}
	if cfg.AccessTokenTTL != 30*time.Minute {
		t.Errorf("AccessTokenTTL = %v, want 30m", cfg.AccessTokenTTL)
	}
	if cfg.EmailProvider != "stub" {
		t.Errorf("EmailProvider = %q, want stub", cfg.EmailProvider)
	}
	if cfg.ReminderLeadHours != 24 {
		t.Errorf("ReminderLeadHours = %d, want 24", cfg.ReminderLeadHours)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("ACCESS_TOKEN_TTL", "15m")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.oralflow.ec, https://staging.oralflow.ec")
	t.Setenv("EMAIL_PROVIDER", "SES")

	cfg := Load()

	if cfg.Port != "9999" {
		t.Errorf("Port = %q, want 9999", cfg.Port)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Errorf("AccessTokenTTL = %v, want 15m", cfg.AccessTokenTTL)
	}
	if !cfg.RedisTLS {
		t.Error("RedisTLS = false, want true")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://staging.oralflow.ec" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
	if cfg.EmailProvider != "ses" {
		t.Errorf("EmailProvider = %q, want ses", cfg.EmailProvider)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL", "soon")
	t.Setenv("REMINDER_LEAD_HOURS", "tomorrow")

	cfg := Load()
	if cfg.AccessTokenTTL != 30*time.Minute {
		t.Errorf("AccessTokenTTL = %v, want default 30m", cfg.AccessTokenTTL)
	}
	if cfg.ReminderLeadHours != 24 {
		t.Errorf("ReminderLeadHours = %d, want default 24", cfg.ReminderLeadHours)
	}
}
