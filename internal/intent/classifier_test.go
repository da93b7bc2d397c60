// ABOUTME: Tests for the keyword-weighted intent classifier.

package intent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/2389/matlab-gateway/internal/gate"
)

func mustClassifier(t *testing.T, rules []Rule) *Classifier {
	t.Helper()
	c, err := New(rules)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestClassifyPlotQuery(t *testing.T) {
	c := mustClassifier(t, DefaultRules())

	v := c.Classify("plot sine wave")
	if v.Group != "plotting" {
		t.Fatalf("Classify(plot sine wave) = %q, want plotting (reason: %s)", v.Group, v.Reason)
	}
	if v.Confidence <= ScoreFloor {
		t.Fatalf("confidence %v should exceed the floor %v", v.Confidence, ScoreFloor)
	}
}

func TestClassifyEmptyQuery(t *testing.T) {
	c := mustClassifier(t, DefaultRules())

	v := c.Classify("")
	if v.Group != gate.DefaultGroup {
		t.Fatalf("empty query should yield the default group, got %q", v.Group)
	}
	if v.Confidence != 0 {
		t.Fatalf("empty query confidence = %v, want 0", v.Confidence)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := mustClassifier(t, DefaultRules())

	first := c.Classify("save my workspace variables to a csv file")
	for i := 0; i < 50; i++ {
		got := c.Classify("save my workspace variables to a csv file")
		if got != first {
			t.Fatalf("run %d: %+v != %+v", i, got, first)
		}
	}
}

func TestClassifyTieKeepsEarliestRule(t *testing.T) {
	rules := []Rule{
		{Group: "first", Keywords: []string{"alpha"}, Weight: 1.0},
		{Group: "second", Keywords: []string{"alpha"}, Weight: 1.0},
	}
	c := mustClassifier(t, rules)

	v := c.Classify("alpha")
	if v.Group != "first" {
		t.Fatalf("tie should keep the earliest rule, got %q", v.Group)
	}
}

func TestClassifyBelowFloor(t *testing.T) {
	rules := []Rule{
		// One hit out of ten keywords scores 0.1, at or below the floor.
		{Group: "diluted", Keywords: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}, Weight: 1.0},
	}
	c := mustClassifier(t, rules)

	v := c.Classify("a")
	if v.Group != gate.DefaultGroup {
		t.Fatalf("sub-floor score should yield the default group, got %q", v.Group)
	}
	if v.Confidence != 0 {
		t.Fatalf("sub-floor confidence = %v, want 0", v.Confidence)
	}
}

func TestClassifyCaseAndPunctuation(t *testing.T) {
	c := mustClassifier(t, DefaultRules())

	v := c.Classify("Please, PLOT a figure!")
	if v.Group != "plotting" {
		t.Fatalf("case/punctuation should not matter, got %q", v.Group)
	}
}

func TestNewRejectsBadRules(t *testing.T) {
	cases := []struct {
		name  string
		rules []Rule
	}{
		{"no group", []Rule{{Keywords: []string{"x"}, Weight: 1}}},
		{"no keywords", []Rule{{Group: "g", Weight: 1}}},
		{"zero weight", []Rule{{Group: "g", Keywords: []string{"x"}}}},
		{"negative weight", []Rule{{Group: "g", Keywords: []string{"x"}, Weight: -1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.rules); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	doc := `rules:
  - group: plotting
    keywords: [plot, chart]
    weight: 1.0
  - group: data_io
    keywords: [csv]
    weight: 0.5
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rules))
	}
	if rules[0].Group != "plotting" || rules[0].Weight != 1.0 {
		t.Fatalf("unexpected first rule: %+v", rules[0])
	}

	c := mustClassifier(t, rules)
	if v := c.Classify("draw a chart"); v.Group != "plotting" {
		t.Fatalf("loaded rules should classify chart as plotting, got %q", v.Group)
	}
}
