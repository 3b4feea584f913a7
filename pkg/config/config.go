// Package config holds all gateway settings, sourced from environment
// variables with sensible defaults.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// LLMProvider defines the downstream LLM service type
type LLMProvider string

const (
	ProviderNone       LLMProvider = "none"       // No downstream model; analyze-only deployments
	ProviderOllama     LLMProvider = "ollama"     // Local Ollama server
	ProviderOpenRouter LLMProvider = "openrouter" // OpenRouter (default, has free tier)
	ProviderGroq       LLMProvider = "groq"       // Groq (high-speed inference)
	ProviderOpenAI     LLMProvider = "openai"     // Direct OpenAI API
	ProviderCustom     LLMProvider = "custom"     // Custom OpenAI-compatible endpoint
)

// Config holds global settings for the Aegis gateway.
// All settings can be configured via environment variables or programmatically.
type Config struct {
	// === Core Settings ===
	Port                 int    // HTTP listen port (default: 8000)
	AuditLogPath         string // Path to JSONL audit file (default: "audit_events.jsonl")
	PostgresDSN          string // When set, audit records go to Postgres instead of JSONL
	PatternOverridesPath string // Optional YAML file with weight/pattern overrides

	// === Redis (token store + consent ledger) ===
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// === PII Safety ===
	PIIEncryptionKey string        // Hex-encoded 32-byte AES key (REQUIRED in production)
	TokenRetention   time.Duration // How long token records stay recoverable (default: 90 days)

	// === LLM Provider Configuration ===
	LLMProvider LLMProvider // Which downstream service to use
	LLMAPIKey   string      // API key for cloud providers
	LLMModel    string      // Model identifier
	LLMBaseURL  string      // API root, e.g. https://openrouter.ai/api/v1

	// === Pipeline Tuning ===
	AuditConcurrency int // Bound on concurrent async audit writes (default: 64)
}

// NewDefaultConfig creates a Config with sensible defaults.
// All settings can be overridden via environment variables.
func NewDefaultConfig() *Config {
	cfg := &Config{
		// Core
		Port:                 GetEnvInt("AEGIS_PORT", 8000),
		AuditLogPath:         GetEnv("AEGIS_AUDIT_LOG", "audit_events.jsonl"),
		PostgresDSN:          GetEnv("AEGIS_POSTGRES_DSN", ""),
		PatternOverridesPath: GetEnv("AEGIS_PATTERN_OVERRIDES", ""),

		// Redis
		RedisAddr:     GetEnv("AEGIS_REDIS_ADDR", "localhost:6379"),
		RedisPassword: GetEnv("AEGIS_REDIS_PASSWORD", ""),
		RedisDB:       GetEnvInt("AEGIS_REDIS_DB", 0),

		// PII safety
		PIIEncryptionKey: GetEnv("AEGIS_PII_ENCRYPTION_KEY", ""),
		TokenRetention:   GetEnvDuration("AEGIS_PII_RETENTION", 90*24*time.Hour),

		// LLM provider - auto-detected from available keys when not pinned
		LLMProvider: detectLLMProvider(),
		LLMAPIKey:   GetEnv("AEGIS_LLM_API_KEY", GetEnv("GROQ_API_KEY", os.Getenv("OPENROUTER_API_KEY"))),
		LLMModel:    GetEnv("AEGIS_LLM_MODEL", "nvidia/nemotron-3-nano-30b-a3b:free"),
		LLMBaseURL:  GetEnv("AEGIS_LLM_BASE_URL", ""),

		// Pipeline
		AuditConcurrency: clampInt(GetEnvInt("AEGIS_AUDIT_CONCURRENCY", 64), 1, 4096),
	}

	if cfg.LLMBaseURL == "" {
		cfg.LLMBaseURL = defaultBaseURL(cfg.LLMProvider)
	}

	return cfg
}

// NewLocalConfig creates a Config optimized for local-only operation (no
// cloud API calls). Use for development or air-gapped deployments.
func NewLocalConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.LLMProvider = ProviderOllama
	cfg.LLMBaseURL = "http://localhost:11434/v1"
	cfg.LLMModel = "qwen2.5:7b"
	cfg.LLMAPIKey = ""
	return cfg
}

// NewAnalyzeOnlyConfig creates a Config with no downstream model; the
// pipeline endpoint is disabled and only analysis/tokenization serve.
func NewAnalyzeOnlyConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.LLMProvider = ProviderNone
	cfg.LLMBaseURL = ""
	cfg.LLMAPIKey = ""
	return cfg
}

func detectLLMProvider() LLMProvider {
	// Explicit provider setting wins
	if p := os.Getenv("AEGIS_LLM_PROVIDER"); p != "" {
		return LLMProvider(p)
	}
	// Auto-detect based on available keys
	if os.Getenv("GROQ_API_KEY") != "" {
		return ProviderGroq
	}
	if os.Getenv("OPENROUTER_API_KEY") != "" || os.Getenv("AEGIS_LLM_API_KEY") != "" {
		return ProviderOpenRouter
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		return ProviderOpenAI
	}
	// Default to Ollama (local) if no cloud keys found
	return ProviderOllama
}

func defaultBaseURL(p LLMProvider) string {
	switch p {
	case ProviderOpenRouter:
		return "https://openrouter.ai/api/v1"
	case ProviderGroq:
		return "https://api.groq.com/openai/v1"
	case ProviderOpenAI:
		return "https://api.openai.com/v1"
	case ProviderOllama:
		return "http://localhost:11434/v1"
	default:
		return ""
	}
}

// clampInt ensures a value is within bounds
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Helper functions for environment variable parsing

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// GetEnvDuration returns a duration (Go syntax, e.g. "2160h") from an
// environment variable or a default value.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return defaultValue
}

// GetEnvSlice returns a comma-separated list from an environment variable or a default value.
func GetEnvSlice(key string, defaultValue []string) []string {
	if v := os.Getenv(key); v != "" {
		var parts []string
		for _, p := range strings.Split(v, ",") {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}

// RequiredSecret defines a required environment variable for startup validation
type RequiredSecret struct {
	Name        string // Environment variable name
	Description string // Human-readable description
	Production  bool   // Required in production only (false = required always)
}

// CriticalSecrets returns the list of secrets required for the gateway to operate
func CriticalSecrets() []RequiredSecret {
	return []RequiredSecret{
		// Without a pinned key, stored PII tokens become unrecoverable on restart
		{Name: "AEGIS_PII_ENCRYPTION_KEY", Description: "hex-encoded 32-byte AES key for PII tokens", Production: true},
	}
}

// IsProduction reports whether the gateway runs in production mode.
func IsProduction() bool {
	env := strings.ToLower(os.Getenv("AEGIS_ENV"))
	return env == "production" || env == "prod"
}

// Validate checks that all required configuration is present.
// In production mode, this returns an error if critical secrets are missing.
// In development mode, it logs warnings but allows startup for local testing.
func (c *Config) Validate() error {
	isProduction := IsProduction()

	var missing []string
	var warnings []string

	for _, secret := range CriticalSecrets() {
		if os.Getenv(secret.Name) != "" {
			continue
		}
		if secret.Production && !isProduction {
			warnings = append(warnings, secret.Name+" ("+secret.Description+")")
		} else {
			missing = append(missing, secret.Name+" ("+secret.Description+")")
		}
	}

	if c.PIIEncryptionKey != "" && len(c.PIIEncryptionKey) != 64 {
		missing = append(missing, "AEGIS_PII_ENCRYPTION_KEY (must be 64 hex characters)")
	}

	if isProduction && c.LLMProvider != ProviderNone && c.LLMProvider != ProviderOllama && c.LLMAPIKey == "" {
		missing = append(missing, "AEGIS_LLM_API_KEY (required for provider "+string(c.LLMProvider)+")")
	}

	if c.Port < 1 || c.Port > 65535 {
		missing = append(missing, fmt.Sprintf("AEGIS_PORT (invalid: %d)", c.Port))
	}

	for _, w := range warnings {
		log.Printf("[STARTUP] Warning: Missing optional secret: %s", w)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return nil
}

// MustValidate calls Validate and fatally exits if validation fails.
// Call this at startup before starting the server.
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		log.Fatalf("[STARTUP] FATAL: Configuration validation failed: %v", err)
	}
	log.Println("[STARTUP] Configuration validated successfully")
}
