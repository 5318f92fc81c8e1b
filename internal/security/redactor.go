package security

import (
	"regexp"

	"propdesk/internal/config"
)

// Redactor removes PII from text before it is written to server logs.
// Redaction is one-way and stateless; the model and the user always see the
// original text.
type Redactor struct {
	filters []piiFilter
	enabled bool
}

type piiFilter struct {
	pattern     *regexp.Regexp
	replacement string
}

var defaultFilters = []struct {
	name        string
	pattern     string
	replacement string
}{
	{"email", `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, "[EMAIL]"},
	{"phone", `(?:\+?\d{1,3}[-.\s]?)?\(?\d{2,4}\)?[-.\s]?\d{3,4}[-.\s]?\d{3,4}`, "[PHONE]"},
	{"card", `\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`, "[CARD]"},
}

// NewRedactor creates a log redactor from config.
func NewRedactor(cfg config.PIIFilterConfig) *Redactor {
	r := &Redactor{enabled: cfg.Enabled}

	enableMap := map[string]bool{
		"email": cfg.FilterEmails,
		"phone": cfg.FilterPhones,
		"card":  cfg.FilterCards,
	}

	for _, f := range defaultFilters {
		if enableMap[f.name] {
			r.filters = append(r.filters, piiFilter{
				pattern:     regexp.MustCompile(f.pattern),
				replacement: f.replacement,
			})
		}
	}

	return r
}

// Redact replaces PII in text with placeholders.
func (r *Redactor) Redact(text string) string {
	if !r.enabled {
		return text
	}
	for _, f := range r.filters {
		text = f.pattern.ReplaceAllString(text, f.replacement)
	}
	return text
}
