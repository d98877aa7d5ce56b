package policy

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Severity controls what happens when a rule matches.
type Severity string

// Known severities.
const (
	// SeverityBlock rejects the request outright.
	SeverityBlock Severity = "block"

	// SeverityFlag lets the request through but records the match.
	SeverityFlag Severity = "flag"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return s == SeverityBlock || s == SeverityFlag
}

// Rule is one declarative content rule as written in the YAML rule file.
// A rule matches when any of its terms appears in the text (case
// insensitive) or its pattern matches.
type Rule struct {
	ID       string   `yaml:"id"`
	Category string   `yaml:"category"`
	Severity Severity `yaml:"severity"`
	Terms    []string `yaml:"terms,omitempty"`
	Pattern  string   `yaml:"pattern,omitempty"`
}

// ruleFile is the top-level YAML document shape.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// Rule set errors
var (
	ErrNoRules     = errors.New("rule set contains no rules")
	ErrInvalidRule = errors.New("invalid rule")
)

// compiledRule is a Rule prepared for evaluation: terms lowercased,
// pattern compiled.
type compiledRule struct {
	Rule
	loweredTerms []string
	re           *regexp.Regexp
}

// parseRules decodes and compiles a YAML rule document.
func parseRules(data []byte) ([]compiledRule, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rule file: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, ErrNoRules
	}

	seen := make(map[string]bool, len(file.Rules))
	compiled := make([]compiledRule, 0, len(file.Rules))
	for _, rule := range file.Rules {
		if rule.ID == "" {
			return nil, fmt.Errorf("%w: missing id", ErrInvalidRule)
		}
		if seen[rule.ID] {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidRule, rule.ID)
		}
		seen[rule.ID] = true

		if !rule.Severity.Valid() {
			return nil, fmt.Errorf("%w: rule %q has unknown severity %q", ErrInvalidRule, rule.ID, rule.Severity)
		}
		if len(rule.Terms) == 0 && rule.Pattern == "" {
			return nil, fmt.Errorf("%w: rule %q has neither terms nor pattern", ErrInvalidRule, rule.ID)
		}

		cr := compiledRule{Rule: rule}
		for _, term := range rule.Terms {
			cr.loweredTerms = append(cr.loweredTerms, strings.ToLower(term))
		}
		if rule.Pattern != "" {
			re, err := regexp.Compile("(?i)" + rule.Pattern)
			if err != nil {
				return nil, fmt.Errorf("%w: rule %q pattern: %v", ErrInvalidRule, rule.ID, err)
			}
			cr.re = re
		}
		compiled = append(compiled, cr)
	}

	return compiled, nil
}
