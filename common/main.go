package common

import (
	"strings"

	"github.com/mcnijman/go-emailaddress"
)

// AMQPSettings represents the settings that we require in order to connect to the AMQP exchange.
type AMQPSettings struct {
	URI          string
	ExchangeName string
	ExchangeType string
}

// ValidateEmailAddress returns an error if the format of an email address is invalid.
func ValidateEmailAddress(emailAddress string) error {
	_, err := emailaddress.Parse(emailAddress)
	return err
}

// NormalizeCategory prepares a category tag for comparison. Category matching is
// case- and whitespace-insensitive on both sides.
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// TruncateSummary shortens a summary to at most maxRunes runes, appending an ellipsis
// marker when text was dropped.
func TruncateSummary(summary string, maxRunes int) string {
	runes := []rune(summary)
	if len(runes) <= maxRunes {
		return summary
	}
	return string(runes[:maxRunes]) + "..."
}
