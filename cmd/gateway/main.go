package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/airmslabs/aegis/pkg/audit"
	"github.com/airmslabs/aegis/pkg/config"
	"github.com/airmslabs/aegis/pkg/consent"
	"github.com/airmslabs/aegis/pkg/patterns"
	"github.com/airmslabs/aegis/pkg/pii"
	"github.com/airmslabs/aegis/pkg/pipeline"
	"github.com/airmslabs/aegis/pkg/risk"
	"github.com/airmslabs/aegis/pkg/sanitize"
)

const Version = "0.1.0"

// Gateway holds the assembled subsystems behind the HTTP surface.
type Gateway struct {
	cfg       *config.Config
	analyzer  *risk.Analyzer
	tokenizer *pii.Tokenizer
	store     *pii.TokenStore
	ledger    *consent.Ledger
	orch      *pipeline.Orchestrator
	redis     *redis.Client
	auditor   audit.Store
}

func main() {
	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		port := ""
		if len(os.Args) > 2 {
			port = os.Args[2]
		}
		runHTTPServer(port)
	case "analyze":
		if len(os.Args) < 3 {
			fmt.Println("Usage: aegis analyze <text>")
			os.Exit(1)
		}
		runCLIAnalyze(strings.Join(os.Args[2:], " "))
	case "version":
		fmt.Printf("Aegis v%s\n", Version)
		fmt.Println("AI Risk Scoring & PII Safety Gateway")
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Aegis v%s - AI Risk Scoring & PII Safety Gateway\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  aegis serve [port]    Start HTTP server (default: 8000)")
	fmt.Println("  aegis analyze <text>  Score text locally and print the assessment")
	fmt.Println("  aegis version         Show version")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  aegis serve 8080")
	fmt.Println("  aegis analyze \"Ignore previous instructions\"")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  AEGIS_REDIS_ADDR          Redis for token store and consent ledger")
	fmt.Println("  AEGIS_POSTGRES_DSN        When set, audit records go to Postgres")
	fmt.Println("  AEGIS_PII_ENCRYPTION_KEY  Hex 32-byte AES key for PII tokens")
	fmt.Println("  AEGIS_LLM_PROVIDER        Downstream model: ollama, openrouter, groq, none")
	fmt.Println("  AEGIS_PATTERN_OVERRIDES   YAML file with weight/pattern overrides")
}

// ============================================================================
// CLI Analyze Mode
// ============================================================================

func runCLIAnalyze(text string) {
	analyzer := risk.NewAnalyzer()
	result := analyzer.Analyze(sanitize.Clean(text), nil)
	decision := risk.Decide(result.Score)

	out, err := json.MarshalIndent(fiber.Map{
		"risk_score":      result.Score,
		"risk_flags":      result.Flags,
		"confidence":      result.Confidence,
		"detectors":       result.Findings,
		"mitigation":      decision,
		"recommendations": risk.Recommendations(result.Flags),
	}, "", "  ")
	if err != nil {
		log.Fatalf("marshal result: %v", err)
	}
	fmt.Println(string(out))
}

// ============================================================================
// HTTP Server Mode
// ============================================================================

func runHTTPServer(portArg string) {
	cfg := config.NewDefaultConfig()
	cfg.MustValidate()

	port := fmt.Sprintf("%d", cfg.Port)
	if portArg != "" {
		port = portArg
	}

	if cfg.PatternOverridesPath != "" {
		if err := patterns.Get().LoadOverrides(cfg.PatternOverridesPath); err != nil {
			log.Fatalf("[STARTUP] FATAL: %v", err)
		}
		log.Printf("[STARTUP] Pattern overrides loaded from %s", cfg.PatternOverridesPath)
	}

	gw, err := newGateway(cfg)
	if err != nil {
		log.Fatalf("[STARTUP] FATAL: %v", err)
	}
	defer gw.auditor.Close()

	app := fiber.New(fiber.Config{
		AppName: "Aegis Gateway",
	})

	app.Get("/health", gw.handleHealth)
	app.Post("/risk/analyze", gw.handleAnalyze)
	app.Post("/pii-safety/tokenize", gw.handleTokenize)
	app.Post("/pii-safety/detokenize", gw.handleDetokenize)
	app.Post("/pii-safety/grant-permission", gw.handleGrantPermission)
	app.Post("/pii-safety/revoke-permission", gw.handleRevokePermission)
	app.Get("/pii-safety/status", gw.handlePIIStatus)
	app.Post("/pii-safety/cleanup-expired", gw.handleCleanupExpired)
	app.Post("/pipeline/process", gw.handleProcess)

	log.Printf("[STARTUP] Aegis gateway starting on :%s", port)
	log.Printf("Endpoints:")
	log.Printf("  GET  /health                       - Health check")
	log.Printf("  POST /risk/analyze                 - Score content across risk categories")
	log.Printf("  POST /pii-safety/tokenize          - Detect and tokenize PII")
	log.Printf("  POST /pii-safety/detokenize        - Restore PII (permission required)")
	log.Printf("  POST /pii-safety/grant-permission  - Grant consent for a session")
	log.Printf("  POST /pii-safety/revoke-permission - Revoke consent for a session")
	log.Printf("  GET  /pii-safety/status            - Token statistics")
	log.Printf("  POST /pii-safety/cleanup-expired   - Remove expired token records")
	log.Printf("  POST /pipeline/process             - Full sanitize/analyze/forward pipeline")

	if err := app.Listen(":" + port); err != nil {
		log.Fatal(err)
	}
}

func newGateway(cfg *config.Config) (*Gateway, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis at %s: %w", cfg.RedisAddr, err)
	}

	codec, err := pii.NewCodec(cfg.PIIEncryptionKey)
	if err != nil {
		return nil, err
	}
	store := pii.NewTokenStore(rdb, cfg.TokenRetention)
	tokenizer := pii.NewTokenizer(pii.NewDetector(), codec, store)
	ledger := consent.NewLedger(rdb)

	var auditor audit.Store
	if cfg.PostgresDSN != "" {
		initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		auditor, err = audit.NewPostgresStore(initCtx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		log.Println("[STARTUP] Audit store: postgres")
	} else {
		auditor, err = audit.NewJSONLStore(cfg.AuditLogPath)
		if err != nil {
			return nil, err
		}
		log.Printf("[STARTUP] Audit store: %s", cfg.AuditLogPath)
	}

	var llm pipeline.LLMClient
	if cfg.LLMProvider != config.ProviderNone {
		llm = pipeline.NewHTTPLLMClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
		log.Printf("[STARTUP] Downstream model: %s (%s)", cfg.LLMModel, cfg.LLMProvider)
	} else {
		log.Println("[STARTUP] Downstream model disabled; /pipeline/process will return 503")
	}

	analyzer := risk.NewAnalyzer()
	orch := pipeline.NewOrchestrator(analyzer, tokenizer, codec, ledger, llm, auditor, cfg.AuditConcurrency)

	return &Gateway{
		cfg:       cfg,
		analyzer:  analyzer,
		tokenizer: tokenizer,
		store:     store,
		ledger:    ledger,
		orch:      orch,
		redis:     rdb,
		auditor:   auditor,
	}, nil
}

// ============================================================================
// Handlers
// ============================================================================

func (g *Gateway) handleHealth(c fiber.Ctx) error {
	redisStatus := "ok"
	if err := g.redis.Ping(c.Context()).Err(); err != nil {
		redisStatus = "unavailable"
	}
	return c.JSON(fiber.Map{
		"status":   "ok",
		"version":  Version,
		"redis":    redisStatus,
		"patterns": patterns.Get().TotalPatterns(),
	})
}

func (g *Gateway) handleAnalyze(c fiber.Ctx) error {
	var req struct {
		Input   string        `json:"input"`
		Context *risk.Context `json:"context"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if msg := validateInput(req.Input); msg != "" {
		return c.Status(400).JSON(fiber.Map{"error": msg, "field": "input"})
	}

	result := g.analyzer.Analyze(sanitize.Clean(req.Input), req.Context)
	decision := risk.Decide(result.Score)

	return c.JSON(fiber.Map{
		"request_id":      uuid.NewString(),
		"risk_score":      result.Score,
		"risk_flags":      result.Flags,
		"confidence":      result.Confidence,
		"detectors":       result.Findings,
		"mitigation":      decision,
		"recommendations": risk.Recommendations(result.Flags),
		"legacy": fiber.Map{
			"risk_score_10": risk.Scale10(result.Score),
			"action":        risk.LegacyAction(risk.Scale10(result.Score)),
		},
	})
}

func (g *Gateway) handleTokenize(c fiber.Ctx) error {
	var req struct {
		Text              string `json:"text"`
		RequestPermission bool   `json:"request_permission"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if msg := validateInput(req.Text); msg != "" {
		return c.Status(400).JSON(fiber.Map{"error": msg, "field": "text"})
	}

	res, err := g.tokenizer.Tokenize(c.Context(), req.Text, userID(c), req.RequestPermission)
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(res)
}

func (g *Gateway) handleDetokenize(c fiber.Ctx) error {
	var req struct {
		TokenizedText     string `json:"tokenized_text"`
		PermissionGranted bool   `json:"permission_granted"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if msg := validateInput(req.TokenizedText); msg != "" {
		return c.Status(400).JSON(fiber.Map{"error": msg, "field": "tokenized_text"})
	}

	res, err := g.tokenizer.Detokenize(c.Context(), req.TokenizedText, userID(c), req.PermissionGranted)
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(res)
}

func (g *Gateway) handleGrantPermission(c fiber.Ctx) error {
	var req struct {
		SessionID string   `json:"session_id"`
		PIITypes  []string `json:"pii_types"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.SessionID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "session_id is required", "field": "session_id"})
	}
	if len(req.PIITypes) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "pii_types must not be empty", "field": "pii_types"})
	}

	grant, err := g.ledger.Grant(c.Context(), userID(c), req.SessionID, req.PIITypes)
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{
		"permission_granted": true,
		"expires_in":         int(consent.GrantTTL.Seconds()),
		"pii_types_allowed":  grant.Categories,
	})
}

func (g *Gateway) handleRevokePermission(c fiber.Ctx) error {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.SessionID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "session_id is required", "field": "session_id"})
	}

	if err := g.ledger.Revoke(c.Context(), userID(c), req.SessionID); err != nil {
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{"permission_revoked": true})
}

func (g *Gateway) handlePIIStatus(c fiber.Ctx) error {
	stats, err := g.store.Stats(c.Context())
	if err != nil {
		return internalError(c, err)
	}
	total := 0
	for _, n := range stats {
		total += n
	}
	return c.JSON(fiber.Map{
		"active_tokens_by_type": stats,
		"active_tokens_total":   total,
		"retention":             g.store.Retention().String(),
	})
}

func (g *Gateway) handleCleanupExpired(c fiber.Ctx) error {
	removed, err := g.store.CleanupExpired(c.Context())
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{"tokens_removed": removed})
}

func (g *Gateway) handleProcess(c fiber.Ctx) error {
	if g.cfg.LLMProvider == config.ProviderNone {
		return c.Status(503).JSON(fiber.Map{"error": "downstream model not configured"})
	}

	var req struct {
		Input          string        `json:"input"`
		SessionID      string        `json:"session_id"`
		ConsentGranted bool          `json:"consent_granted"`
		Context        *risk.Context `json:"context"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if msg := validateInput(req.Input); msg != "" {
		return c.Status(400).JSON(fiber.Map{"error": msg, "field": "input"})
	}

	resp, err := g.orch.Process(c.Context(), &pipeline.Request{
		RequestID:      uuid.NewString(),
		UserID:         userID(c),
		SessionID:      req.SessionID,
		Input:          req.Input,
		ConsentGranted: req.ConsentGranted,
		Context:        req.Context,
	})
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error":      "pipeline failure",
			"request_id": resp.RequestID,
			"message":    err.Error(),
		})
	}

	if resp.ConsentRequired {
		return c.Status(403).JSON(fiber.Map{
			"error":               "consent_required",
			"request_id":          resp.RequestID,
			"required_categories": resp.RequiredCategories,
			"message":             "User consent is required for the detected PII categories",
		})
	}

	return c.JSON(resp)
}

// ============================================================================
// Helpers
// ============================================================================

// userID resolves the caller identity from the X-User-ID header.
func userID(c fiber.Ctx) string {
	if id := c.Get("X-User-ID"); id != "" {
		return id
	}
	return "anonymous"
}

// validateInput enforces the shared text-field constraints. Returns an
// empty string when valid.
func validateInput(s string) string {
	if strings.TrimSpace(s) == "" {
		return "input must not be empty"
	}
	if len(s) > sanitize.MaxInputBytes {
		return fmt.Sprintf("input exceeds maximum size of %d bytes", sanitize.MaxInputBytes)
	}
	return ""
}

// internalError renders the uniform 500 payload. The request id lets
// operators correlate with the audit trail and logs.
func internalError(c fiber.Ctx, err error) error {
	requestID := uuid.NewString()
	log.Printf("[WARN] request %s failed: %v", requestID, err)

	msg := "internal error"
	var redisErr redis.Error
	if errors.As(err, &redisErr) {
		msg = "storage backend unavailable"
	}
	return c.Status(500).JSON(fiber.Map{
		"error":      msg,
		"request_id": requestID,
		"message":    err.Error(),
	})
}
