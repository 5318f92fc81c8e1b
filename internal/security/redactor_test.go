package security

import (
	"strings"
	"testing"

	"propdesk/internal/config"
)

func allFilters() config.PIIFilterConfig {
	return config.PIIFilterConfig{
		Enabled:      true,
		FilterEmails: true,
		FilterPhones: true,
		FilterCards:  true,
	}
}

func TestRedactEmail(t *testing.T) {
	r := NewRedactor(allFilters())
	got := r.Redact("tenant contact is ahmed@example.com please")
	if strings.Contains(got, "ahmed@example.com") {
		t.Fatalf("email not redacted: %s", got)
	}
	if !strings.Contains(got, "[EMAIL]") {
		t.Fatalf("expected placeholder: %s", got)
	}
}

func TestRedactCard(t *testing.T) {
	r := NewRedactor(allFilters())
	got := r.Redact("card 4111 1111 1111 1111 on file")
	if strings.Contains(got, "4111") {
		t.Fatalf("card number not redacted: %s", got)
	}
}

func TestRedactDisabled(t *testing.T) {
	r := NewRedactor(config.PIIFilterConfig{Enabled: false})
	text := "reach me at ahmed@example.com"
	if got := r.Redact(text); got != text {
		t.Fatalf("disabled redactor must not change text: %s", got)
	}
}

func TestRedactSelectiveFilters(t *testing.T) {
	r := NewRedactor(config.PIIFilterConfig{Enabled: true, FilterEmails: true})
	got := r.Redact("ahmed@example.com and card 4111-1111-1111-1111")
	if strings.Contains(got, "ahmed@example.com") {
		t.Fatal("enabled email filter should redact")
	}
	if !strings.Contains(got, "4111-1111-1111-1111") {
		t.Fatal("disabled card filter should leave the number alone")
	}
}
