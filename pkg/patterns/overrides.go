package patterns

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// overrideConfig mirrors the YAML override file structure:
//
//	weights:
//	  adversarial: 70
//	patterns:
//	  - name: internal_codename
//	    category: pii
//	    regex: '\bPROJ-[0-9]{4}\b'
type overrideConfig struct {
	Weights  map[string]int `yaml:"weights"`
	Patterns []struct {
		Name     string `yaml:"name"`
		Category string `yaml:"category"`
		Regex    string `yaml:"regex"`
	} `yaml:"patterns"`
}

// LoadOverrides applies weight overrides and appends extra patterns from a
// YAML file. Call at startup, before the registry serves traffic. Unknown
// categories are rejected rather than silently creating new ones.
func (r *Registry) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read pattern overrides: %w", err)
	}

	var cfg overrideConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse pattern overrides: %w", err)
	}

	known := make(map[Category]bool)
	for _, cat := range Categories() {
		known[cat] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for name, weight := range cfg.Weights {
		cat := Category(name)
		if !known[cat] {
			return fmt.Errorf("pattern overrides: unknown category %q", name)
		}
		if weight < 0 || weight > 100 {
			return fmt.Errorf("pattern overrides: weight for %q out of range: %d", name, weight)
		}
		info := r.info[cat]
		info.Weight = weight
		r.info[cat] = info
	}

	for _, p := range cfg.Patterns {
		cat := Category(p.Category)
		if !known[cat] {
			return fmt.Errorf("pattern overrides: unknown category %q for pattern %q", p.Category, p.Name)
		}
		if p.Name == "" || p.Regex == "" {
			return fmt.Errorf("pattern overrides: pattern entries need both name and regex")
		}
		re, err := regexp.Compile(`(?i)` + p.Regex)
		if err != nil {
			return fmt.Errorf("pattern overrides: compile %q: %w", p.Name, err)
		}
		compiled := &Pattern{Name: p.Name, Regex: re, Category: cat}
		r.byCategory[cat] = append(r.byCategory[cat], compiled)
		r.all = append(r.all, compiled)
	}

	return nil
}
