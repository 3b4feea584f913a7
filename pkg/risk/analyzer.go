// Package risk scores free text against the pattern catalog and turns the
// score into a mitigation decision. Scores are integer percentages, 0-100.
package risk

import (
	"github.com/airmslabs/aegis/pkg/patterns"
)

// Context carries per-request signals that modify the base score.
type Context struct {
	SuspiciousActivity bool `json:"suspicious_activity"`
	RapidRequests      int  `json:"rapid_requests"`
	ContentLength      int  `json:"content_length"`
}

// Finding is the per-category detail attached to a Result.
type Finding struct {
	MatchCount  int      `json:"matches"`
	Patterns    []string `json:"patterns_found"` // first 3 pattern names, bounded for response size
	Score       int      `json:"score"`
	Description string   `json:"description"`
}

// Result is a complete risk assessment. Flags is never empty: content with
// no matches reports ["none"].
type Result struct {
	Score      int                `json:"risk_score"`
	Flags      []string           `json:"risk_flags"`
	Findings   map[string]Finding `json:"risk_details"`
	Confidence float64            `json:"confidence"`
}

// Analyzer evaluates content against every registered risk category.
// Analyze is pure: same input, same output, no error path.
type Analyzer struct {
	registry *patterns.Registry
}

// NewAnalyzer returns an analyzer bound to the global pattern registry.
func NewAnalyzer() *Analyzer {
	return &Analyzer{registry: patterns.Get()}
}

const maxPatternNames = 3

// Analyze scores content across all risk categories.
//
// Aggregation: each category contributes weight x matchCount to the running
// total (the per-category detail is reported capped at 100); the base score
// is the total divided by the overall match count, capped at 100. Two or
// more flagged categories apply a 1.2 compounding bonus. Context modifiers
// stack multiplicatively on top; the final score is re-capped.
func (a *Analyzer) Analyze(content string, rctx *Context) Result {
	findings := make(map[string]Finding)
	var flags []string
	totalScore := 0
	patternMatches := 0

	for _, cat := range patterns.Categories() {
		matched := a.registry.Match(content, cat)
		if len(matched) == 0 {
			continue
		}

		info := a.registry.Info(cat)
		names := make([]string, 0, maxPatternNames)
		for _, p := range matched {
			if len(names) == maxPatternNames {
				break
			}
			names = append(names, p.Name)
		}

		// The running total keeps the uncapped contribution so repeated
		// hits in one category still raise the average; only the reported
		// detail is capped.
		score := info.Weight * len(matched)
		capped := score
		if capped > 100 {
			capped = 100
		}

		flags = append(flags, string(cat))
		findings[string(cat)] = Finding{
			MatchCount:  len(matched),
			Patterns:    names,
			Score:       capped,
			Description: info.Description,
		}
		totalScore += score
		patternMatches += len(matched)
	}

	var finalScore float64
	if patternMatches > 0 {
		// Weighted average with decay for repeated patterns.
		finalScore = float64(totalScore) / float64(patternMatches)
		if finalScore > 100 {
			finalScore = 100
		}
		// Bonus when risk spans multiple categories.
		if len(flags) > 1 {
			finalScore *= 1.2
			if finalScore > 100 {
				finalScore = 100
			}
		}
	}

	if rctx != nil {
		finalScore = applyContextModifiers(finalScore, rctx)
	}

	confidence := 0.6 + float64(patternMatches)*0.1
	if confidence > 0.9 {
		confidence = 0.9
	}

	if len(flags) == 0 {
		flags = []string{"none"}
	}

	return Result{
		Score:      int(finalScore),
		Flags:      flags,
		Findings:   findings,
		Confidence: confidence,
	}
}

// applyContextModifiers stacks the request-context multipliers onto the base
// score. Modifiers compound; the result is capped at 100.
func applyContextModifiers(score float64, rctx *Context) float64 {
	if rctx.SuspiciousActivity {
		score *= 1.3
	}
	if rctx.RapidRequests > 10 {
		score *= 1.2
	}
	if rctx.ContentLength > 2000 {
		score *= 1.1
	}
	if score > 100 {
		score = 100
	}
	return score
}
