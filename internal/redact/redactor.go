package redact

import (
	"fmt"
	"sort"
	"strings"
)

// Redactor applies an ordered rule set to text. It holds no mutable state
// and is safe for concurrent use.
type Redactor struct {
	rules     []Rule
	maxPasses int
}

var defaultRedactor = MustNew(DefaultConfig())

// Redact masks contact details in text using the default rule set.
func Redact(text string) Result {
	return defaultRedactor.Redact(text)
}

// New compiles a Redactor for cfg. Zero fields fall back to DefaultConfig.
// Extra rules run after the built-in and configured ones.
func New(cfg Config, extra ...Rule) (*Redactor, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redact: %w", err)
	}
	rules, err := buildRules(cfg)
	if err != nil {
		return nil, fmt.Errorf("redact: %w", err)
	}
	for _, r := range extra {
		if r == nil {
			continue
		}
		if _, ok := placeholders[r.Category()]; !ok {
			return nil, fmt.Errorf("redact: unknown category %q for rule %s", r.Category(), r.Name())
		}
		rules = append(rules, r)
	}
	return &Redactor{rules: rules, maxPasses: cfg.MaxPasses}, nil
}

// MustNew is like New but panics on an invalid configuration.
func MustNew(cfg Config, extra ...Rule) *Redactor {
	r, err := New(cfg, extra...)
	if err != nil {
		panic(err)
	}
	return r
}

// RuleNames lists the active rules in arbitration order.
func (r *Redactor) RuleNames() []string {
	names := make([]string, len(r.rules))
	for i, rule := range r.rules {
		names[i] = rule.Name()
	}
	return names
}

// Redact replaces every detected span with its category placeholder and
// repeats until no rule matches, so the output is a fixed point. It never
// panics: a fault inside a rule yields the input unchanged.
func (r *Redactor) Redact(text string) (res Result) {
	res = Result{SanitizedText: text}
	if strings.TrimSpace(text) == "" {
		return res
	}
	defer func() {
		if recover() != nil {
			res = Result{SanitizedText: text}
		}
	}()

	current := text
	var findings []Finding
	for pass := 0; pass < r.maxPasses; pass++ {
		selected := arbitrate(r.candidates(current))
		if len(selected) == 0 {
			break
		}
		current = r.apply(current, selected)
		for _, c := range selected {
			rule := r.rules[c.rule]
			findings = append(findings, Finding{
				Rule:      rule.Name(),
				Category:  rule.Category(),
				Heuristic: rule.Heuristic(),
			})
		}
	}

	return Result{
		SanitizedText:       current,
		ContainsContactInfo: len(findings) > 0,
		Findings:            findings,
	}
}

type candidate struct {
	Span
	rule int
}

func (r *Redactor) candidates(text string) []candidate {
	var out []candidate
	for i, rule := range r.rules {
		for _, s := range rule.Find(text) {
			if s.Start < 0 || s.End > len(text) || s.End <= s.Start {
				continue
			}
			out = append(out, candidate{Span: s, rule: i})
		}
	}
	return out
}

// arbitrate keeps non-overlapping candidates, preferring the longest, then
// the leftmost, then the earliest rule. The result is ordered by position.
func arbitrate(cands []candidate) []candidate {
	if len(cands) == 0 {
		return nil
	}
	sort.SliceStable(cands, func(i, j int) bool {
		li, lj := cands[i].End-cands[i].Start, cands[j].End-cands[j].Start
		if li != lj {
			return li > lj
		}
		if cands[i].Start != cands[j].Start {
			return cands[i].Start < cands[j].Start
		}
		return cands[i].rule < cands[j].rule
	})

	selected := make([]candidate, 0, len(cands))
	for _, c := range cands {
		if overlapsAny(selected, c.Span) {
			continue
		}
		selected = append(selected, c)
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].Start < selected[j].Start })
	return selected
}

func overlapsAny(selected []candidate, s Span) bool {
	for _, c := range selected {
		if s.Start < c.End && c.Start < s.End {
			return true
		}
	}
	return false
}

func (r *Redactor) apply(text string, selected []candidate) string {
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, c := range selected {
		b.WriteString(text[last:c.Start])
		b.WriteString(Placeholder(r.rules[c.rule].Category()))
		last = c.End
	}
	b.WriteString(text[last:])
	return b.String()
}
