package common

import (
	"strings"
	"testing"
)

func TestNormalizeCategory(t *testing.T) {
	cases := map[string]string{
		"Scholarships":  "scholarships",
		"  Jobs  ":      "jobs",
		"CONCOURS":      "concours",
		"":              "",
		"  Pro-Finance": "pro-finance",
	}
	for input, expected := range cases {
		actual := NormalizeCategory(input)
		if actual != expected {
			t.Errorf("NormalizeCategory(%q) returned %q instead of %q", input, actual, expected)
		}
	}
}

func TestTruncateSummaryShort(t *testing.T) {
	summary := "A short summary."
	actual := TruncateSummary(summary, 100)
	if actual != summary {
		t.Errorf("TruncateSummary returned %q instead of %q", actual, summary)
	}
}

func TestTruncateSummaryLong(t *testing.T) {
	summary := strings.Repeat("x", 150)
	actual := TruncateSummary(summary, 100)
	expected := strings.Repeat("x", 100) + "..."
	if actual != expected {
		t.Errorf("TruncateSummary returned %q instead of %q", actual, expected)
	}
}

func TestTruncateSummaryMultibyte(t *testing.T) {
	summary := strings.Repeat("é", 101)
	actual := TruncateSummary(summary, 100)
	expected := strings.Repeat("é", 100) + "..."
	if actual != expected {
		t.Errorf("TruncateSummary returned %q instead of %q", actual, expected)
	}
}

func TestValidateEmailAddress(t *testing.T) {
	if err := ValidateEmailAddress("sarah@example.org"); err != nil {
		t.Errorf("unexpected error for a valid email address: %s", err.Error())
	}
	if err := ValidateEmailAddress("not-an-address"); err == nil {
		t.Error("no error was returned for an invalid email address")
	}
}
