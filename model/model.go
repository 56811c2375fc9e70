package model

import (
	"strings"
	"time"
)

// Supported notification languages.
const (
	LanguageFrench  = "fr"
	LanguageEnglish = "en"
)

// ProCategoryPrefix marks article categories that are reserved for Pro subscribers.
const ProCategoryPrefix = "pro-"

// ProSubscriptionDuration is the fixed validity period of a Pro subscription.
const ProSubscriptionDuration = 90 * 24 * time.Hour

// Subscriber represents a single push notification registration.
type Subscriber struct {
	ID                  string
	Token               string
	Email               string
	Language            string
	CategoryPreferences []string
	SentToday           int
	LastCountReset      time.Time
}

// Subscription represents a Pro subscription, keyed by email address.
type Subscription struct {
	Email            string
	Name             string
	Phone            string
	Preferences      string
	SubscribedAt     time.Time
	Active           bool
	NotifiedOfExpiry bool
}

// ExpiryDate returns the time at which the subscription expires.
func (s *Subscription) ExpiryDate() time.Time {
	return s.SubscribedAt.Add(ProSubscriptionDuration)
}

// Valid returns true if the subscription is active and hasn't expired yet. Validity is
// always computed from the activation timestamp; it's never cached.
func (s *Subscription) Valid(now time.Time) bool {
	return s.Active && now.Before(s.ExpiryDate())
}

// Article represents the fields of a published content item that this service consumes.
// The content store owns these rows; this service never writes to them.
type Article struct {
	ID           string
	HeadlineEN   string
	HeadlineFR   string
	SummaryEN    string
	SummaryFR    string
	Category     string
	ThumbnailURL string
	Notify       bool
}

// Headline returns the headline in the requested language, falling back to the
// other language if the requested one is empty.
func (a *Article) Headline(language string) string {
	if language == LanguageFrench {
		if a.HeadlineFR != "" {
			return a.HeadlineFR
		}
		return a.HeadlineEN
	}
	if a.HeadlineEN != "" {
		return a.HeadlineEN
	}
	return a.HeadlineFR
}

// Summary returns the summary in the requested language, falling back to the
// other language if the requested one is empty.
func (a *Article) Summary(language string) string {
	if language == LanguageFrench {
		if a.SummaryFR != "" {
			return a.SummaryFR
		}
		return a.SummaryEN
	}
	if a.SummaryEN != "" {
		return a.SummaryEN
	}
	return a.SummaryFR
}

// ProExclusive returns true if the article's category is reserved for Pro subscribers.
func (a *Article) ProExclusive() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(a.Category)), ProCategoryPrefix)
}

// Notification channels.
const (
	ChannelPush  = "push"
	ChannelEmail = "email"
)

// Delivery log statuses. Entries move from pending to exactly one terminal status.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// DeliveryLogEntry represents a single dispatch attempt in the delivery log.
type DeliveryLogEntry struct {
	ID               string
	NotificationType string
	Channel          string
	Recipient        string
	Language         string
	Context          map[string]interface{}
	Status           string
	ErrorMessage     string
}
