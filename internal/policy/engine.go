package policy

import (
	"fmt"
	"os"
	"strings"
)

// Match records one rule that matched the evaluated text.
type Match struct {
	RuleID   string   `json:"rule_id"`
	Category string   `json:"category"`
	Severity Severity `json:"severity"`
}

// Decision is the outcome of evaluating text against the rule set.
type Decision struct {
	// Allowed is false when any matched rule has SeverityBlock.
	Allowed bool `json:"allowed"`

	// Matches lists every rule that matched, blocking or not.
	Matches []Match `json:"matches,omitempty"`
}

// Engine holds a compiled rule set. It is immutable after construction and
// safe for concurrent use.
type Engine struct {
	rules []compiledRule
}

// NewEngine compiles a YAML rule document into an Engine.
func NewEngine(data []byte) (*Engine, error) {
	rules, err := parseRules(data)
	if err != nil {
		return nil, err
	}
	return &Engine{rules: rules}, nil
}

// LoadEngine reads and compiles a YAML rule file from disk. An empty path
// loads the built-in default rule set.
func LoadEngine(path string) (*Engine, error) {
	if path == "" {
		return NewEngine([]byte(defaultRules))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}
	return NewEngine(data)
}

// RuleCount returns the number of compiled rules.
func (e *Engine) RuleCount() int {
	return len(e.rules)
}

// Evaluate checks text against every rule and aggregates the matches.
func (e *Engine) Evaluate(text string) Decision {
	lowered := strings.ToLower(text)

	decision := Decision{Allowed: true}
	for i := range e.rules {
		rule := &e.rules[i]
		if !rule.matches(text, lowered) {
			continue
		}
		decision.Matches = append(decision.Matches, Match{
			RuleID:   rule.ID,
			Category: rule.Category,
			Severity: rule.Severity,
		})
		if rule.Severity == SeverityBlock {
			decision.Allowed = false
		}
	}
	return decision
}

// matches reports whether the rule applies to the text. lowered is the
// pre-lowercased text, shared across rules.
func (r *compiledRule) matches(text, lowered string) bool {
	for _, term := range r.loweredTerms {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return r.re != nil && r.re.MatchString(text)
}

// defaultRules is the rule set used when no file is configured. It covers
// the categories enforced at launch; deployments override it with a
// rules_path in config.
const defaultRules = `
rules:
  - id: credential-harvesting
    category: security
    severity: block
    terms:
      - "steal passwords"
      - "harvest credentials"
      - "keylogger"
  - id: pii-bulk-export
    category: privacy
    severity: block
    pattern: '(export|dump|scrape)\s+(all\s+)?(user|customer)\s+(emails|records|data)'
  - id: self-harm
    category: safety
    severity: block
    terms:
      - "how to hurt myself"
  - id: profanity
    category: conduct
    severity: flag
    pattern: '\b(damn|hell)\b'
`
