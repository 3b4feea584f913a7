// Package patterns provides a centralized, compile-once catalog of content
// risk patterns. All regex patterns are compiled at package init and shared
// read-only across every analysis request.
//
// Design principles:
// - COMPILE ONCE: all patterns compiled at init, not per-request
// - DRY: single source of truth for every risk category
// - CATEGORIZED: each category carries its scoring weight and description
// - EXTENSIBLE: weights and patterns can be overridden from YAML at startup
package patterns

import (
	"regexp"
	"sync"
)

// Category represents a content risk category
type Category string

const (
	CategoryPII            Category = "pii"
	CategoryBias           Category = "bias"
	CategoryHallucination  Category = "hallucination"
	CategoryAdversarial    Category = "adversarial"
	CategoryToxicity       Category = "toxicity"
	CategoryMisinformation Category = "misinformation"
)

// Categories returns every registered risk category in registration order.
func Categories() []Category {
	return []Category{
		CategoryPII,
		CategoryBias,
		CategoryHallucination,
		CategoryAdversarial,
		CategoryToxicity,
		CategoryMisinformation,
	}
}

// Pattern holds a compiled regex with metadata
type Pattern struct {
	Name     string         // Human-readable name for findings and logging
	Regex    *regexp.Regexp // Compiled regex (never nil after init)
	Category Category       // Owning risk category
}

// CategoryInfo carries the scoring weight and description of a category.
// Weights are per-category: every pattern in a category contributes the
// same weight to the aggregate score.
type CategoryInfo struct {
	Weight      int
	Description string
}

// Registry holds all compiled patterns, organized by category
type Registry struct {
	mu         sync.RWMutex
	byCategory map[Category][]*Pattern
	info       map[Category]CategoryInfo
	all        []*Pattern
}

// global singleton - initialized once at package load
var (
	globalRegistry *Registry
	initOnce       sync.Once
)

// Get returns the global pattern registry (singleton)
// Thread-safe and guaranteed to be initialized
func Get() *Registry {
	initOnce.Do(func() {
		globalRegistry = newRegistry()
	})
	return globalRegistry
}

// newRegistry creates and populates the pattern registry
func newRegistry() *Registry {
	r := &Registry{
		byCategory: make(map[Category][]*Pattern),
		info:       make(map[Category]CategoryInfo),
		all:        make([]*Pattern, 0, 64),
	}

	// Register all risk categories
	r.registerPIIPatterns()
	r.registerBiasPatterns()
	r.registerHallucinationPatterns()
	r.registerAdversarialPatterns()
	r.registerToxicityPatterns()
	r.registerMisinformationPatterns()

	return r
}

// describe records the scoring weight and description for a category
func (r *Registry) describe(cat Category, weight int, description string) {
	r.info[cat] = CategoryInfo{Weight: weight, Description: description}
}

// register adds a pattern to the registry (internal use only).
// All patterns match case-insensitively.
func (r *Registry) register(name string, pattern string, cat Category) {
	p := &Pattern{
		Name:     name,
		Regex:    regexp.MustCompile(`(?i)` + pattern),
		Category: cat,
	}

	r.byCategory[cat] = append(r.byCategory[cat], p)
	r.all = append(r.all, p)
}

// Info returns the weight and description for a category.
// Unknown categories report a zero CategoryInfo.
func (r *Registry) Info(cat Category) CategoryInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.info[cat]
}

// GetByCategory returns all patterns for a specific category
// Returns empty slice if category not found (never nil)
func (r *Registry) GetByCategory(cat Category) []*Pattern {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if patterns, ok := r.byCategory[cat]; ok {
		return patterns
	}
	return []*Pattern{}
}

// Match returns all patterns in cat that match the text.
// Every pattern is tried; repeated hits within a category raise the score.
func (r *Registry) Match(text string, cat Category) []*Pattern {
	var matches []*Pattern
	for _, p := range r.GetByCategory(cat) {
		if p.Regex.MatchString(text) {
			matches = append(matches, p)
		}
	}
	return matches
}

// MatchAny checks if text matches any pattern in the given categories
// Returns the first matching pattern or nil
// This is optimized for early exit on first match
func (r *Registry) MatchAny(text string, cats ...Category) *Pattern {
	for _, cat := range cats {
		for _, p := range r.GetByCategory(cat) {
			if p.Regex.MatchString(text) {
				return p
			}
		}
	}
	return nil
}

// TotalPatterns returns the total count of registered patterns
func (r *Registry) TotalPatterns() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.all)
}

// CategoryCount returns the number of patterns in a category
func (r *Registry) CategoryCount(cat Category) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byCategory[cat])
}
