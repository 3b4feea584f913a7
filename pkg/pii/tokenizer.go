package pii

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// DetectedItem is the caller-visible description of one tokenized value.
// The raw value never appears here, only its masked preview.
type DetectedItem struct {
	Type       Type      `json:"type"`
	TokenRef   string    `json:"token_ref"`
	Masked     string    `json:"masked_value"`
	Token      string    `json:"replacement"`
	Confidence float64   `json:"confidence"`
	RiskLevel  RiskLevel `json:"risk_level"`
}

// PermissionItem describes a consent requirement raised by tokenization.
type PermissionItem struct {
	TokenRef    string    `json:"token_ref"`
	Type        Type      `json:"pii_type"`
	Description string    `json:"description"`
	RiskLevel   RiskLevel `json:"risk_level"`
}

// TokenizeResult is the full outcome of a tokenization pass.
type TokenizeResult struct {
	TokenizedText       string           `json:"tokenized_text"`
	DetectedPII         []DetectedItem   `json:"detected_pii"`
	PIICount            int              `json:"pii_count"`
	PermissionRequired  []PermissionItem `json:"permission_required"`
	RequiresUserConsent bool             `json:"requires_user_consent"`
	ProcessingSafe      bool             `json:"processing_safe"`
}

// DetokenizeResult reports a detokenization pass. Without permission the
// text comes back unchanged and PermissionDenied is set; that is not an
// error.
type DetokenizeResult struct {
	Text             string `json:"detokenized_text"`
	TokensReplaced   int    `json:"tokens_replaced"`
	PermissionDenied bool   `json:"permission_denied,omitempty"`
	Message          string `json:"message"`
}

// Tokenizer ties detection, encryption and storage together.
type Tokenizer struct {
	detector *Detector
	codec    *Codec
	store    *TokenStore
}

// NewTokenizer wires a tokenizer from its parts.
func NewTokenizer(detector *Detector, codec *Codec, store *TokenStore) *Tokenizer {
	return &Tokenizer{detector: detector, codec: codec, store: store}
}

// Tokenize detects PII in text and replaces each span with a reversible
// placeholder. Consent is required when requestPermission is set and at
// least one detected type is high risk or worse.
func (t *Tokenizer) Tokenize(ctx context.Context, text, userID string, requestPermission bool) (*TokenizeResult, error) {
	matches := ResolveOverlaps(t.detector.Detect(text))

	res := &TokenizeResult{
		TokenizedText:      text,
		DetectedPII:        []DetectedItem{},
		PermissionRequired: []PermissionItem{},
	}

	now := time.Now().UTC()
	var b strings.Builder
	last := 0

	for _, m := range matches {
		ref := NewTokenRef()
		token := FormatToken(m.Type, ref)

		ciphertext, err := t.codec.Encrypt(m.Value)
		if err != nil {
			return nil, fmt.Errorf("tokenize %s: %w", m.Type, err)
		}

		rec := &TokenRecord{
			Ref:        ref,
			Type:       m.Type,
			UserID:     userID,
			Ciphertext: ciphertext,
			Hash:       t.codec.HashValue(m.Value),
			Masked:     Mask(m.Value),
			CreatedAt:  now,
			ExpiresAt:  now.Add(t.store.Retention()),
			Active:     true,
		}
		if err := t.store.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("tokenize %s: %w", m.Type, err)
		}

		b.WriteString(text[last:m.Start])
		b.WriteString(token)
		last = m.End

		res.DetectedPII = append(res.DetectedPII, DetectedItem{
			Type:       m.Type,
			TokenRef:   ref,
			Masked:     rec.Masked,
			Token:      token,
			Confidence: Confidence(m.Type),
			RiskLevel:  Risk(m.Type),
		})

		if requestPermission && Risk(m.Type).AtLeast(RiskHigh) {
			res.PermissionRequired = append(res.PermissionRequired, PermissionItem{
				TokenRef:    ref,
				Type:        m.Type,
				Description: "Process " + strings.ReplaceAll(string(m.Type), "_", " "),
				RiskLevel:   Risk(m.Type),
			})
		}
	}
	b.WriteString(text[last:])

	res.TokenizedText = b.String()
	res.PIICount = len(res.DetectedPII)
	res.RequiresUserConsent = len(res.PermissionRequired) > 0
	// Verified, not assumed: re-scan the output for anything left behind.
	res.ProcessingSafe = len(t.detector.Detect(res.TokenizedText)) == 0

	return res, nil
}

// Detokenize restores original values for the placeholders in text. It
// fails closed: no permission, unknown references, tokens owned by another
// user, revoked or expired records all leave the placeholder in place.
func (t *Tokenizer) Detokenize(ctx context.Context, text, userID string, permissionGranted bool) (*DetokenizeResult, error) {
	if !permissionGranted {
		return &DetokenizeResult{
			Text:             text,
			PermissionDenied: true,
			Message:          "User permission required to access original PII values",
		}, nil
	}

	now := time.Now().UTC()
	replaced := 0

	out := TokenPattern.ReplaceAllStringFunc(text, func(token string) string {
		sub := TokenPattern.FindStringSubmatch(token)
		if sub == nil {
			return token
		}
		ref := sub[2]

		rec, err := t.store.Get(ctx, ref)
		if err != nil {
			return token
		}
		if rec.UserID != userID {
			return token
		}
		if !rec.Active || rec.Expired(now) {
			return token
		}

		value, err := t.codec.Decrypt(rec.Ciphertext)
		if err != nil {
			return token
		}

		// Usage accounting never blocks a restore that already succeeded.
		if err := t.store.IncrementUsage(ctx, ref); err != nil {
			log.Printf("[WARN] token %s: usage count not updated: %v", ref, err)
		}
		replaced++
		return value
	})

	return &DetokenizeResult{
		Text:           out,
		TokensReplaced: replaced,
		Message:        fmt.Sprintf("Successfully restored %d PII values", replaced),
	}, nil
}

// MaskAll replaces every detected PII span in text with its masked preview.
// Used on downstream output before it leaves the system.
func (t *Tokenizer) MaskAll(text string) string {
	matches := ResolveOverlaps(t.detector.Detect(text))
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m.Start])
		b.WriteString(Mask(m.Value))
		last = m.End
	}
	b.WriteString(text[last:])
	return b.String()
}
