package risk

// Severity labels a score band.
type Severity string

const (
	SeveritySafe     Severity = "SAFE"
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Action is the mitigation verb attached to a score band.
type Action string

const (
	ActionProceed        Action = "proceed_normally"
	ActionLogAndContinue Action = "log_and_continue"
	ActionFlagForReview  Action = "flag_for_review"
	ActionRequireApprov  Action = "require_approval"
	ActionBlockContent   Action = "block_content"
)

// Decision is the mitigation outcome for a score. Total over 0-100.
type Decision struct {
	Severity Severity `json:"level"`
	Action   Action   `json:"action"`
	Reason   string   `json:"reason"`
	Message  string   `json:"message"`
}

// Decide maps a 0-100 score to its mitigation band. Band edges are
// inclusive upper bounds: 0, 1-25, 26-50, 51-75, 76-100.
func Decide(score int) Decision {
	switch {
	case score <= 0:
		return Decision{
			Severity: SeveritySafe,
			Action:   ActionProceed,
			Reason:   "No risk content",
			Message:  "No risks detected in this content.",
		}
	case score <= 25:
		return Decision{
			Severity: SeverityLow,
			Action:   ActionLogAndContinue,
			Reason:   "Low risk content",
			Message:  "Minor risks detected. Monitor for patterns.",
		}
	case score <= 50:
		return Decision{
			Severity: SeverityMedium,
			Action:   ActionFlagForReview,
			Reason:   "Medium risk content detected",
			Message:  "Moderate risks detected. Review recommended.",
		}
	case score <= 75:
		return Decision{
			Severity: SeverityHigh,
			Action:   ActionRequireApprov,
			Reason:   "High risk content detected",
			Message:  "Significant risks detected. Immediate review required.",
		}
	default:
		return Decision{
			Severity: SeverityCritical,
			Action:   ActionBlockContent,
			Reason:   "Critical risk content detected",
			Message:  "Critical risks detected. Content blocked pending review.",
		}
	}
}

// Blocks reports whether the decision stops the content from proceeding.
func (d Decision) Blocks() bool {
	return d.Action == ActionBlockContent
}

// Scale10 converts the canonical 0-100 score to the legacy 0-10 axis used
// by older integrations. This is the only conversion point; everything
// internal stays on 0-100.
func Scale10(score int) float64 {
	return float64(score) / 10
}

// LegacyAction maps a legacy 0-10 score to the coarse action vocabulary the
// old ingestion API exposed.
func LegacyAction(score10 float64) string {
	switch {
	case score10 >= 7:
		return "block"
	case score10 >= 4:
		return "warn"
	default:
		return "allow"
	}
}

// Recommendations returns follow-up guidance for the flagged categories.
// The "none" sentinel flag yields no recommendations.
func Recommendations(flags []string) []string {
	byCategory := map[string]string{
		"pii":            "Tokenize or redact personal data before forwarding",
		"bias":           "Review content for stereotyping before publication",
		"hallucination":  "Verify factual claims against trusted sources",
		"adversarial":    "Reject instruction-override attempts and log the source",
		"toxicity":       "Escalate to human moderation",
		"misinformation": "Attach fact-check context or withhold the content",
	}

	var recs []string
	for _, f := range flags {
		if rec, ok := byCategory[f]; ok {
			recs = append(recs, rec)
		}
	}
	return recs
}
