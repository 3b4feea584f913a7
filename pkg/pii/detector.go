// Package pii detects personal data in free text and replaces it with
// reversible, encrypted tokens held in Redis.
package pii

import (
	"regexp"
	"sort"
)

// Type identifies a category of personal data.
type Type string

const (
	TypeAadhaar     Type = "aadhaar"
	TypePAN         Type = "pan"
	TypePhone       Type = "phone"
	TypeEmail       Type = "email"
	TypeSSN         Type = "ssn"
	TypeCreditCard  Type = "credit_card"
	TypeBankAccount Type = "bank_account"
	TypeIFSC        Type = "ifsc"
	TypeName        Type = "name"
)

// RiskLevel grades how sensitive a PII type is.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// AtLeast reports whether r is as severe as min.
func (r RiskLevel) AtLeast(min RiskLevel) bool {
	return riskRank[r] >= riskRank[min]
}

// Risk returns the risk level for a PII type.
func Risk(t Type) RiskLevel {
	switch t {
	case TypeAadhaar, TypeSSN:
		return RiskCritical
	case TypePAN, TypeCreditCard, TypeBankAccount:
		return RiskHigh
	case TypePhone, TypeEmail, TypeIFSC:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Confidence returns the detection confidence for a PII type. Structured
// identifiers score high; the name heuristic is deliberately low.
func Confidence(t Type) float64 {
	switch t {
	case TypeAadhaar:
		return 0.95
	case TypePAN, TypeIFSC, TypeSSN:
		return 0.90
	case TypeEmail, TypeCreditCard:
		return 0.85
	case TypePhone:
		return 0.80
	case TypeBankAccount:
		return 0.70
	default:
		return 0.60
	}
}

// Match is one detected PII span.
type Match struct {
	Type  Type
	Value string
	Start int
	End   int
}

type typeSpec struct {
	typ Type
	re  *regexp.Regexp
}

// Detection order matters for overlap resolution ties: more specific
// identifiers come first.
var specs = []typeSpec{
	{TypeAadhaar, regexp.MustCompile(`\b[2-9]\d{3}\s?\d{4}\s?\d{4}\b`)},
	{TypePAN, regexp.MustCompile(`\b[A-Z]{5}\d{4}[A-Z]\b`)},
	{TypeIFSC, regexp.MustCompile(`\b[A-Z]{4}0[A-Z0-9]{6}\b`)},
	{TypeSSN, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{TypeCreditCard, regexp.MustCompile(`\b(?:\d{4}[\-. ]?){3}\d{4}\b`)},
	{TypeEmail, regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)},
	{TypePhone, regexp.MustCompile(`(?:\+91[\-. ]?)?\b[6-9]\d{9}\b|\(?\d{3}\)?[\-. ]\d{3}[\-. ]\d{4}\b`)},
	{TypeBankAccount, regexp.MustCompile(`\b\d{9,18}\b`)},
	{TypeName, regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`)},
}

// Detector scans text for personal data. Zero-value is not usable;
// construct with NewDetector.
type Detector struct {
	specs []typeSpec
}

// NewDetector returns a detector over the full built-in type set.
func NewDetector() *Detector {
	return &Detector{specs: specs}
}

// Detect returns every PII span found in text, including overlapping spans
// claimed by multiple types. Callers that need one winner per region should
// pass the result through ResolveOverlaps.
func (d *Detector) Detect(text string) []Match {
	var out []Match
	for _, s := range d.specs {
		for _, loc := range s.re.FindAllStringIndex(text, -1) {
			out = append(out, Match{
				Type:  s.typ,
				Value: text[loc[0]:loc[1]],
				Start: loc[0],
				End:   loc[1],
			})
		}
	}
	return out
}

// ResolveOverlaps reduces overlapping matches to disjoint spans: longer
// spans win, earlier starts break ties. The result is sorted by start.
func ResolveOverlaps(matches []Match) []Match {
	if len(matches) <= 1 {
		return matches
	}

	sorted := make([]Match, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		li, lj := sorted[i].End-sorted[i].Start, sorted[j].End-sorted[j].Start
		if li != lj {
			return li > lj
		}
		return sorted[i].Start < sorted[j].Start
	})

	var kept []Match
	for _, m := range sorted {
		overlaps := false
		for _, k := range kept {
			if m.Start < k.End && k.Start < m.End {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, m)
		}
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })
	return kept
}
