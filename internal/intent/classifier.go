// ABOUTME: Keyword-weighted intent classifier recommending a tool group for a query.
// ABOUTME: Pure scoring over immutable rules; no session state, deterministic output.

package intent

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/2389/matlab-gateway/internal/gate"
)

// ScoreFloor is the minimum winning score. A best rule scoring at or below
// the floor yields the default group with confidence 0.
const ScoreFloor = 0.15

// Rule maps a keyword set to a group with a relevance weight. Rules are
// immutable configuration, not runtime state.
type Rule struct {
	Group    string   `yaml:"group"`
	Keywords []string `yaml:"keywords"`
	Weight   float64  `yaml:"weight"`
}

// Verdict is the classification result.
type Verdict struct {
	Group      string  `json:"mode"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Classifier scores queries against its rule set. Safe for concurrent use:
// rules never change after construction.
type Classifier struct {
	rules []Rule
}

// DefaultRules mirrors the built-in keyword routing table.
func DefaultRules() []Rule {
	return []Rule{
		{Group: "plotting", Keywords: []string{"plot", "figure", "chart", "graph", "draw"}, Weight: 1.0},
		{Group: "data_io", Keywords: []string{"import", "export", "load", "save", "csv", "file"}, Weight: 1.0},
		{Group: "workspace+", Keywords: []string{"workspace", "variable", "clear", "assign"}, Weight: 1.0},
		{Group: "toolboxes", Keywords: []string{"toolbox", "license", "installed"}, Weight: 0.9},
		{Group: "sessions", Keywords: []string{"session", "connect", "switch", "attach"}, Weight: 0.9},
	}
}

// New creates a classifier from the given rules. Rules with no keywords or
// a non-positive weight are rejected: they can never score meaningfully.
func New(rules []Rule) (*Classifier, error) {
	for i, r := range rules {
		if r.Group == "" {
			return nil, fmt.Errorf("rule %d has no group", i)
		}
		if len(r.Keywords) == 0 {
			return nil, fmt.Errorf("rule for group %q has no keywords", r.Group)
		}
		if r.Weight <= 0 {
			return nil, fmt.Errorf("rule for group %q has non-positive weight", r.Group)
		}
	}
	// Copy so callers cannot mutate our rule order after construction.
	owned := make([]Rule, len(rules))
	copy(owned, rules)
	return &Classifier{rules: owned}, nil
}

// LoadRules reads a rule set from a YAML file.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	var doc struct {
		Rules []Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	return doc.Rules, nil
}

// Classify scores the query against every rule and returns the best match.
// Each rule scores the fraction of its keywords present in the query terms,
// times its weight; ties break toward the earliest-registered rule. Below
// or at ScoreFloor the default group wins with confidence 0.
func (c *Classifier) Classify(query string) Verdict {
	terms := tokenize(query)

	best := -1
	bestScore := 0.0
	var bestHits []string

	for i, rule := range c.rules {
		hits := 0
		var matched []string
		for _, kw := range rule.Keywords {
			if _, ok := terms[kw]; ok {
				hits++
				matched = append(matched, kw)
			}
		}
		if hits == 0 {
			continue
		}
		score := float64(hits) / float64(len(rule.Keywords)) * rule.Weight
		// Strictly greater keeps the earliest rule on ties.
		if score > bestScore {
			best = i
			bestScore = score
			bestHits = matched
		}
	}

	if best < 0 || bestScore <= ScoreFloor {
		return Verdict{
			Group:      gate.DefaultGroup,
			Confidence: 0,
			Reason:     "no keyword matched above the score floor",
		}
	}

	confidence := bestScore
	if confidence > 1 {
		confidence = 1
	}
	return Verdict{
		Group:      c.rules[best].Group,
		Confidence: confidence,
		Reason:     fmt.Sprintf("matched keywords %v", bestHits),
	}
}

// tokenize lowercases and splits the query into a term set. Punctuation
// separates terms the same way whitespace does.
func tokenize(query string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '_' && r != '+'
	})
	terms := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		terms[f] = struct{}{}
	}
	return terms
}
