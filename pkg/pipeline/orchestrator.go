package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/airmslabs/aegis/pkg/audit"
	"github.com/airmslabs/aegis/pkg/consent"
	"github.com/airmslabs/aegis/pkg/httputil"
	"github.com/airmslabs/aegis/pkg/pii"
	"github.com/airmslabs/aegis/pkg/risk"
	"github.com/airmslabs/aegis/pkg/sanitize"
)

// State tracks where a request is in the pipeline. Terminal states are
// CONSENT_REQUIRED and AUDITED.
type State string

const (
	StateReceived          State = "RECEIVED"
	StateSanitizing        State = "SANITIZING"
	StateAnalyzing         State = "ANALYZING"
	StateMitigationDecided State = "MITIGATION_DECIDED"
	StateConsentRequired   State = "CONSENT_REQUIRED"
	StateForwarding        State = "FORWARDING"
	StateResponded         State = "RESPONDED"
	StateAudited           State = "AUDITED"
)

// Request is one unit of work for the pipeline.
type Request struct {
	RequestID      string
	UserID         string
	SessionID      string
	Input          string
	ConsentGranted bool
	Context        *risk.Context
}

// Response is the pipeline outcome. Output holds the masked downstream
// reply and is empty whenever the content did not reach the model.
type Response struct {
	RequestID          string         `json:"request_id"`
	State              State          `json:"state"`
	Status             string         `json:"status"`
	RiskScore          int            `json:"risk_score"`
	RiskFlags          []string       `json:"risk_flags"`
	Confidence         float64        `json:"confidence"`
	Decision           risk.Decision  `json:"mitigation"`
	PIICount           int            `json:"pii_count"`
	ConsentRequired    bool           `json:"consent_required"`
	RequiredCategories []string       `json:"required_categories,omitempty"`
	Output             string         `json:"output,omitempty"`
	DurationMs         int64          `json:"duration_ms"`
}

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	analyzer  *risk.Analyzer
	tokenizer *pii.Tokenizer
	codec     *pii.Codec
	ledger    *consent.Ledger
	llm       LLMClient
	auditor   audit.Store
	sem       *httputil.Semaphore
}

// NewOrchestrator assembles a pipeline. The semaphore bounds concurrent
// asynchronous audit writes.
func NewOrchestrator(
	analyzer *risk.Analyzer,
	tokenizer *pii.Tokenizer,
	codec *pii.Codec,
	ledger *consent.Ledger,
	llm LLMClient,
	auditor audit.Store,
	auditConcurrency int,
) *Orchestrator {
	return &Orchestrator{
		analyzer:  analyzer,
		tokenizer: tokenizer,
		codec:     codec,
		ledger:    ledger,
		llm:       llm,
		auditor:   auditor,
		sem:       httputil.NewSemaphore(auditConcurrency),
	}
}

const previewLen = 80

// Process runs a request through the full pipeline. Every path, including
// blocks, consent stops, failures and caller aborts, ends in an audit
// record. A non-nil error always accompanies Status failed.
func (o *Orchestrator) Process(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	userID := req.UserID
	if userID == "" {
		userID = "anonymous"
	}

	resp := &Response{RequestID: requestID, State: StateReceived}

	resp.State = StateSanitizing
	input := sanitize.Clean(sanitize.Truncate(req.Input))

	resp.State = StateAnalyzing
	result := o.analyzer.Analyze(input, req.Context)
	resp.RiskScore = result.Score
	resp.RiskFlags = result.Flags
	resp.Confidence = result.Confidence

	tok, err := o.tokenizer.Tokenize(ctx, input, userID, true)
	if err != nil {
		resp.Status = audit.StatusFailed
		rec := o.record(requestID, userID, input, resp, start)
		rec.Status = audit.StatusFailed
		o.finish(ctx, resp, rec, start)
		return resp, err
	}
	resp.PIICount = tok.PIICount

	resp.State = StateMitigationDecided
	decision := risk.Decide(result.Score)
	resp.Decision = decision

	rec := o.record(requestID, userID, input, resp, start)
	rec.Action = string(decision.Action)
	rec.Severity = string(decision.Severity)

	if decision.Blocks() {
		resp.Status = audit.StatusBlocked
		rec.Status = audit.StatusBlocked
		o.finish(ctx, resp, rec, start)
		return resp, nil
	}

	if tok.RequiresUserConsent {
		categories := requiredCategories(tok.PermissionRequired)
		granted := req.ConsentGranted
		if !granted {
			ok, err := o.ledger.Check(ctx, userID, req.SessionID, categories)
			if err != nil {
				resp.Status = audit.StatusFailed
				rec.Status = audit.StatusFailed
				o.finish(ctx, resp, rec, start)
				return resp, err
			}
			granted = ok
		}
		if !granted {
			resp.State = StateConsentRequired
			resp.Status = audit.StatusConsentRequired
			resp.ConsentRequired = true
			resp.RequiredCategories = categories
			rec.Status = audit.StatusConsentRequired
			o.finish(ctx, resp, rec, start)
			return resp, nil
		}
	}

	resp.State = StateForwarding
	output, err := o.llm.Complete(ctx, tok.TokenizedText)
	if err != nil {
		// Caller abort and downstream failure both fail closed; they are
		// distinguished in the trail.
		if ctx.Err() != nil {
			resp.Status = audit.StatusAborted
			rec.Status = audit.StatusAborted
		} else {
			resp.Status = audit.StatusFailed
			rec.Status = audit.StatusFailed
		}
		o.finish(ctx, resp, rec, start)
		return resp, err
	}

	resp.State = StateResponded
	resp.Output = o.tokenizer.MaskAll(sanitize.Clean(output))

	resp.Status = audit.StatusCompleted
	rec.Status = audit.StatusCompleted
	o.finish(ctx, resp, rec, start)
	return resp, nil
}

// finish stamps duration, writes the audit record and advances to AUDITED.
func (o *Orchestrator) finish(ctx context.Context, resp *Response, rec *audit.Record, start time.Time) {
	rec.DurationMs = time.Since(start).Milliseconds()
	resp.DurationMs = rec.DurationMs
	o.writeAudit(ctx, rec)
	if resp.State != StateConsentRequired {
		resp.State = StateAudited
	}
}

// record builds the audit entry skeleton. The raw input is reduced to a
// salted hash and a masked preview before it goes anywhere near storage.
func (o *Orchestrator) record(requestID, userID, input string, resp *Response, start time.Time) *audit.Record {
	preview := o.tokenizer.MaskAll(input)
	if len(preview) > previewLen {
		cut := previewLen
		for cut > 0 && preview[cut]&0xC0 == 0x80 {
			cut--
		}
		preview = preview[:cut]
	}
	return &audit.Record{
		RequestID:     requestID,
		UserID:        userID,
		HashedInput:   o.codec.HashValue(input),
		MaskedPreview: preview,
		Score:         resp.RiskScore,
		Flags:         resp.RiskFlags,
		PIICount:      resp.PIICount,
		DurationMs:    time.Since(start).Milliseconds(),
		CreatedAt:     time.Now().UTC(),
	}
}

// writeAudit persists the record asynchronously when a semaphore slot is
// free, synchronously otherwise. context.WithoutCancel keeps aborted
// requests in the trail.
func (o *Orchestrator) writeAudit(ctx context.Context, rec *audit.Record) {
	actx := context.WithoutCancel(ctx)
	if o.sem.TryAcquire() {
		go func() {
			defer o.sem.Release()
			if err := o.auditor.Write(actx, rec); err != nil {
				log.Printf("[WARN] audit write failed for %s: %v", rec.RequestID, err)
			}
		}()
		return
	}
	if err := o.auditor.Write(actx, rec); err != nil {
		log.Printf("[WARN] audit write failed for %s: %v", rec.RequestID, err)
	}
}

func requiredCategories(items []pii.PermissionItem) []string {
	seen := make(map[string]bool)
	var out []string
	for _, item := range items {
		if !seen[string(item.Type)] {
			seen[string(item.Type)] = true
			out = append(out, string(item.Type))
		}
	}
	return out
}
