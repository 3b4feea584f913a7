package config

import (
	"strings"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Port != 8000 {
		t.Errorf("port = %d, want 8000", cfg.Port)
	}
	if cfg.AuditLogPath != "audit_events.jsonl" {
		t.Errorf("audit path = %s", cfg.AuditLogPath)
	}
	if cfg.TokenRetention != 90*24*time.Hour {
		t.Errorf("retention = %v, want 90 days", cfg.TokenRetention)
	}
	if cfg.AuditConcurrency < 1 {
		t.Errorf("audit concurrency = %d", cfg.AuditConcurrency)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AEGIS_PORT", "9090")
	t.Setenv("AEGIS_REDIS_ADDR", "redis:6380")
	t.Setenv("AEGIS_PII_RETENTION", "48h")
	t.Setenv("AEGIS_LLM_PROVIDER", "openrouter")

	cfg := NewDefaultConfig()

	if cfg.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Port)
	}
	if cfg.RedisAddr != "redis:6380" {
		t.Errorf("redis addr = %s", cfg.RedisAddr)
	}
	if cfg.TokenRetention != 48*time.Hour {
		t.Errorf("retention = %v, want 48h", cfg.TokenRetention)
	}
	if cfg.LLMProvider != ProviderOpenRouter {
		t.Errorf("provider = %s, want openrouter", cfg.LLMProvider)
	}
	if cfg.LLMBaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("base url = %s", cfg.LLMBaseURL)
	}
}

func TestValidateRejectsBadKey(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.PIIEncryptionKey = "tooshort"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for short key")
	}
	if !strings.Contains(err.Error(), "AEGIS_PII_ENCRYPTION_KEY") {
		t.Errorf("error does not name the key: %v", err)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for port 0")
	}
}

func TestValidateProductionRequiresKey(t *testing.T) {
	t.Setenv("AEGIS_ENV", "production")
	t.Setenv("AEGIS_LLM_PROVIDER", "none")

	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("production without encryption key should fail validation")
	}

	t.Setenv("AEGIS_PII_ENCRYPTION_KEY", strings.Repeat("ab", 32))
	cfg = NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid production config rejected: %v", err)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("AEGIS_TEST_STR", "value")
	t.Setenv("AEGIS_TEST_INT", "42")
	t.Setenv("AEGIS_TEST_BOOL", "true")
	t.Setenv("AEGIS_TEST_FLOAT", "0.75")
	t.Setenv("AEGIS_TEST_SLICE", "a, b ,c")
	t.Setenv("AEGIS_TEST_DUR", "90m")

	if got := GetEnv("AEGIS_TEST_STR", "x"); got != "value" {
		t.Errorf("GetEnv = %s", got)
	}
	if got := GetEnv("AEGIS_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("GetEnv fallback = %s", got)
	}
	if got := GetEnvInt("AEGIS_TEST_INT", 0); got != 42 {
		t.Errorf("GetEnvInt = %d", got)
	}
	if got := GetEnvBool("AEGIS_TEST_BOOL", false); !got {
		t.Error("GetEnvBool = false")
	}
	if got := GetEnvFloat("AEGIS_TEST_FLOAT", 0); got != 0.75 {
		t.Errorf("GetEnvFloat = %v", got)
	}
	if got := GetEnvSlice("AEGIS_TEST_SLICE", nil); len(got) != 3 || got[1] != "b" {
		t.Errorf("GetEnvSlice = %v", got)
	}
	if got := GetEnvDuration("AEGIS_TEST_DUR", 0); got != 90*time.Minute {
		t.Errorf("GetEnvDuration = %v", got)
	}

	t.Setenv("AEGIS_TEST_INT", "not-a-number")
	if got := GetEnvInt("AEGIS_TEST_INT", 7); got != 7 {
		t.Errorf("GetEnvInt bad value = %d, want default 7", got)
	}
}
