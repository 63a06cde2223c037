package redact

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// keywordGap bounds the non-digit text allowed between a trigger word and
	// the number it introduces. It must stay shorter than " number removed]"
	// so the phone placeholder never re-triggers the keyword rule.
	keywordGap = 12
	// minKeywordDigits is the shortest run masked after a trigger word.
	minKeywordDigits = 3
	// minInternationalDigits applies to runs written with a leading '+'.
	minInternationalDigits = 6
)

// Characters that never occur inside a placeholder are excluded from link
// bodies so a placeholder is never swallowed into a longer link match.
const linkBody = `[^\s<>"'\[\]]`

var (
	phoneRunExpr   = regexp.MustCompile(`\+?\(?\d(?:[ \t\-./()]{0,2}\d)*`)
	phonePieceExpr = regexp.MustCompile(`\+?\(?\d(?:[\-./()]{0,2}\d)*`)
	dateExpr       = regexp.MustCompile(`^(?:\d{4}[-./]\s?\d{1,2}[-./]\s?\d{1,2}|\d{1,2}[-./]\s?\d{1,2}[-./]\s?\d{4})$`)

	emailExpr   = regexp.MustCompile(`(?i)[\p{L}\p{N}._%+\-]+@[\p{L}\p{N}\-]+(?:\.[\p{L}\p{N}\-]+)*\.\p{L}{2,}`)
	mentionExpr = regexp.MustCompile(`(?:^|[^\p{L}\p{N}._%+\-@])(@[\p{L}\p{N}_][\p{L}\p{N}_.]{2,31})`)
)

// Currency words and symbols that turn a digit run into a price.
var (
	currencySymbols = []string{"€", "$", "£"}
	currencyStems   = []string{"huf", "eur", "usd", "gbp", "chf", "forint", "dollar"}
	currencyWords   = []string{"ft"}
)

// currencyLookahead is how much text after a run isPrice needs to see: the
// longest currency word plus the rune that follows it.
var currencyLookahead = func() int {
	n := 0
	for _, set := range [][]string{currencySymbols, currencyStems, currencyWords} {
		for _, w := range set {
			n = max(n, len(w))
		}
	}
	return n + 2*utf8.UTFMax
}()

// patternRule is the common shape of every built-in detector: a compiled
// expression, the capture group to mask and an optional acceptance check.
type patternRule struct {
	name      string
	category  Category
	heuristic bool
	expr      *regexp.Regexp
	group     int
	accept    func(text string, s Span) bool
}

func (r *patternRule) Name() string       { return r.name }
func (r *patternRule) Category() Category { return r.category }
func (r *patternRule) Heuristic() bool    { return r.heuristic }

func (r *patternRule) Find(text string) []Span {
	matches := r.expr.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}
	spans := make([]Span, 0, len(matches))
	for _, m := range matches {
		if 2*r.group+1 >= len(m) {
			continue
		}
		s := Span{Start: m[2*r.group], End: m[2*r.group+1]}
		if s.Start < 0 || s.End <= s.Start {
			continue
		}
		if r.accept != nil && !r.accept(text, s) {
			continue
		}
		spans = append(spans, s)
	}
	return spans
}

func newPatternRule(name string, category Category, heuristic bool, pattern string) (*patternRule, error) {
	expr, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern for rule %s: %w", name, err)
	}
	expr.Longest()
	group := 0
	if expr.NumSubexp() > 0 {
		group = 1
	}
	return &patternRule{name: name, category: category, heuristic: heuristic, expr: expr, group: group}, nil
}

// phoneRule finds digit runs and keeps the phone-shaped ones. A run that is
// rejected as a whole (two numbers typed next to each other, a date followed
// by a number) is split on whitespace and its windows are tried from the
// left, longest first.
type phoneRule struct {
	minDigits int
	maxDigits int
}

func (r *phoneRule) Name() string       { return "phone" }
func (r *phoneRule) Category() Category { return CategoryPhone }
func (r *phoneRule) Heuristic() bool    { return false }

func (r *phoneRule) Find(text string) []Span {
	var spans []Span
	for _, run := range phoneRunExpr.FindAllStringIndex(text, -1) {
		spans = append(spans, r.findInRun(text, run[0], run[1])...)
	}
	return spans
}

func (r *phoneRule) findInRun(text string, start, end int) []Span {
	if r.accept(text, start, end) {
		return []Span{{Start: start, End: end}}
	}
	var pieces []Span
	for _, p := range phonePieceExpr.FindAllStringIndex(text[start:end], -1) {
		pieces = append(pieces, Span{Start: start + p[0], End: start + p[1]})
	}
	if len(pieces) < 2 {
		return nil
	}

	// A window holding more than maxDigits digits is never accepted, so each
	// start only needs to look as far as that budget reaches.
	digits := make([]int, len(pieces))
	for k, p := range pieces {
		digits[k] = countDigits(text[p.Start:p.End])
	}

	var spans []Span
	last, held := 0, 0
	for i := 0; i < len(pieces); {
		if last < i {
			last, held = i, 0
		}
		for last < len(pieces) && held+digits[last] <= r.maxDigits {
			held += digits[last]
			last++
		}
		found := false
		for j := last - 1; j >= i; j-- {
			if i == 0 && j == len(pieces)-1 {
				continue
			}
			if r.accept(text, pieces[i].Start, pieces[j].End) && !anyDate(text, pieces[i:j+1]) {
				spans = append(spans, Span{Start: pieces[i].Start, End: pieces[j].End})
				for ; i <= j; i++ {
					held -= digits[i]
				}
				found = true
				break
			}
		}
		if !found {
			if i < last {
				held -= digits[i]
			}
			i++
		}
	}
	return spans
}

func (r *phoneRule) accept(text string, start, end int) bool {
	candidate := text[start:end]
	digits := countDigits(candidate)
	if digits > r.maxDigits {
		return false
	}
	least := r.minDigits
	if strings.HasPrefix(candidate, "+") && minInternationalDigits < least {
		least = minInternationalDigits
	}
	if digits < least {
		return false
	}
	if dateExpr.MatchString(candidate) {
		return false
	}
	return !isPrice(text, start, end)
}

func anyDate(text string, pieces []Span) bool {
	for _, p := range pieces {
		if dateExpr.MatchString(text[p.Start:p.End]) {
			return true
		}
	}
	return false
}

func countDigits(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			n++
		}
	}
	return n
}

// isPrice reports whether the run at [start, end) is preceded by a currency
// symbol or followed by a currency word.
func isPrice(text string, start, end int) bool {
	before := strings.TrimRight(text[:start], " \t")
	for _, sym := range currencySymbols {
		if strings.HasSuffix(before, sym) {
			return true
		}
	}

	after := strings.TrimLeft(text[end:], " \t")
	if len(after) > currencyLookahead {
		after = after[:currencyLookahead]
	}
	after = strings.ToLower(after)
	for _, sym := range currencySymbols {
		if strings.HasPrefix(after, sym) {
			return true
		}
	}
	for _, stem := range currencyStems {
		if strings.HasPrefix(after, stem) {
			return true
		}
	}
	for _, word := range currencyWords {
		if strings.HasPrefix(after, word) {
			next, _ := utf8.DecodeRuneInString(after[len(word):])
			if next == utf8.RuneError || !unicode.IsLetter(next) {
				return true
			}
		}
	}
	return false
}

// alternation builds a case-insensitive alternation from literal words,
// letting a space in a phrase match any run of whitespace.
func alternation(words []string) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		fields := strings.Fields(w)
		for i := range fields {
			fields[i] = regexp.QuoteMeta(fields[i])
		}
		parts = append(parts, strings.Join(fields, `\s+`))
	}
	return "(?:" + strings.Join(parts, "|") + ")"
}

// buildRules compiles the built-in rule set for cfg followed by its custom
// rules. Order matters: it breaks ties between equally long matches.
func buildRules(cfg Config) ([]Rule, error) {
	tlds := alternation(cfg.TopLevelDomains)
	apps := alternation(cfg.MessagingApps)
	keywords := alternation(cfg.TriggerKeywords)

	const (
		label  = `[\p{L}\p{N}_%+\-]+`
		domain = `[\p{L}\p{N}\-]+`
		at     = `(?:\s*@\s*|\s*[(\[{]\s*(?:at|kukac)\s*[)\]}]\s*|\s+(?:at|kukac)\s+)`
		dot    = `(?:\.|\s+\.\s+|\s*[(\[{]\s*(?:dot|pont)\s*[)\]}]\s*|\s+(?:dot|pont)\s+)`
		host   = `[\p{L}\p{N}](?:[\p{L}\p{N}\-]*[\p{L}\p{N}])?`
	)

	specs := []struct {
		name      string
		category  Category
		heuristic bool
		pattern   string
	}{
		{"email", CategoryEmail, false, emailExpr.String()},
		{"spelled_email", CategoryEmail, false,
			`(?i)` + label + `(?:` + dot + label + `)*` + at + domain + `(?:` + dot + domain + `)*` + dot + tlds + `\b`},
		{"link", CategoryLink, false,
			`(?i)(?:https?://|www\.)` + linkBody + `+|` + host + `(?:\.` + host + `)*\.` + tlds + `\b(?:/` + linkBody + `*)?`},
		{"messaging_handle", CategoryHandle, false,
			`(?i)\b` + apps + `\s*[:\-]\s*([\p{L}\p{N}_][\p{L}\p{N}_.]{2,31})`},
		{"mention", CategoryHandle, false, mentionExpr.String()},
		{"keyword_number", CategoryPhone, true,
			fmt.Sprintf(`(?i)(?:^|[^\p{L}\p{N}])%s(?:[^\p{L}\p{N}\n][^\d\n]{0,%d})?(\+?\d(?:[ \t\-./]{0,2}\d){%d,})`,
				keywords, keywordGap-1, minKeywordDigits-1)},
	}

	rules := make([]Rule, 0, len(specs)+len(cfg.CustomRules)+1)
	rules = append(rules, &phoneRule{minDigits: cfg.MinPhoneDigits, maxDigits: cfg.MaxPhoneDigits})
	for _, s := range specs {
		rule, err := newPatternRule(s.name, s.category, s.heuristic, s.pattern)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	for _, c := range cfg.CustomRules {
		rule, err := newPatternRule(strings.TrimSpace(c.Name), c.Category, c.Heuristic, c.Pattern)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
