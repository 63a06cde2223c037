// Package redact masks contact details (phone numbers, e-mail addresses,
// messaging handles and links) in chat messages before they are stored or
// delivered to the counterpart.
package redact

// Category names the kind of contact detail a span was recognised as.
type Category string

const (
	CategoryPhone  Category = "phone"
	CategoryEmail  Category = "email"
	CategoryHandle Category = "handle"
	CategoryLink   Category = "link"
)

var placeholders = map[Category]string{
	CategoryPhone:  "[phone number removed]",
	CategoryEmail:  "[email removed]",
	CategoryHandle: "[contact handle removed]",
	CategoryLink:   "[link removed]",
}

// Placeholder returns the token that replaces a span of the given category.
func Placeholder(c Category) string {
	if p, ok := placeholders[c]; ok {
		return p
	}
	return "[contact info removed]"
}

// Result is the outcome of redacting one text.
type Result struct {
	SanitizedText       string    `json:"sanitized_text"`
	ContainsContactInfo bool      `json:"contains_contact_info"`
	Findings            []Finding `json:"findings,omitempty"`
}

// Finding records one masked span. The matched text itself is never kept.
type Finding struct {
	Rule      string   `json:"rule"`
	Category  Category `json:"category"`
	Heuristic bool     `json:"heuristic"`
}

// Span is a half-open byte range [Start, End) reported by a Rule.
type Span struct {
	Start int
	End   int
}

// Rule is one independent detector. Rules never see each other's output;
// overlapping spans are arbitrated by the Redactor.
type Rule interface {
	Name() string
	Category() Category
	// Heuristic marks rules whose matches are probable rather than certain.
	Heuristic() bool
	Find(text string) []Span
}
