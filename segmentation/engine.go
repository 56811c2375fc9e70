// Package segmentation selects the audience for a published article, applying
// Pro-tier gating, category preference matching, and daily quota limits.
package segmentation

import (
	"context"
	"time"

	"github.com/gist4u/notifications/common"
	"github.com/gist4u/notifications/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultDailyQuota is the number of notifications per day that a subscriber without
// category preferences will receive.
const DefaultDailyQuota = 3

// Store describes the directory operations that the engine needs.
type Store interface {
	ListSubscribers(ctx context.Context) ([]model.Subscriber, error)
	ClaimDailySlot(ctx context.Context, token string, quota int, today time.Time) (bool, error)
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
	ClaimExpiryNotice(ctx context.Context, email string) (bool, error)
	TokensForEmails(ctx context.Context, emails []string) ([]model.Subscriber, error)
}

// Audience is the result of one segmentation pass: disjoint push token lists keyed by
// language, plus the Pro email recipients and any one-shot expiry notices claimed
// during the pass.
type Audience struct {
	TokensByLanguage map[string][]string
	ProRecipients    []model.Subscription
	ExpiryNotices    []model.Subscription
}

// PushTotal returns the total number of push recipients across all languages.
func (a *Audience) PushTotal() int {
	total := 0
	for _, tokens := range a.TokensByLanguage {
		total += len(tokens)
	}
	return total
}

// Engine computes notification audiences from the subscriber directory.
type Engine struct {
	store Store
	quota int
	now   func() time.Time
	log   *logrus.Entry
}

// NewEngine returns a new segmentation engine.
func NewEngine(store Store, quota int, log *logrus.Entry) *Engine {
	if quota <= 0 {
		quota = DefaultDailyQuota
	}
	return &Engine{
		store: store,
		quota: quota,
		now:   time.Now,
		log:   log,
	}
}

// Segment computes the audience for one article.
//
// Pro-exclusive articles skip general segmentation entirely: every valid subscription
// becomes an email recipient (plus a push recipient when a token is linked to the same
// email), and expired subscriptions that haven't been told yet are routed to the
// one-shot expiry notice flow. All other articles go through the general gate, where
// subscribers with category preferences are matched against the article's category and
// subscribers without preferences consume one of their daily quota slots.
func (e *Engine) Segment(ctx context.Context, article *model.Article) (*Audience, error) {
	if article.ProExclusive() {
		return e.segmentPro(ctx)
	}
	return e.segmentGeneral(ctx, article)
}

func (e *Engine) segmentPro(ctx context.Context) (*Audience, error) {
	wrapMsg := "unable to segment the Pro audience"

	audience := &Audience{TokensByLanguage: make(map[string][]string)}
	now := e.now()

	// Select the subscriptions and split them into valid recipients and expiry notices.
	subscriptions, err := e.store.ListSubscriptions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	var validEmails []string
	for _, subscription := range subscriptions {
		if subscription.Valid(now) {
			audience.ProRecipients = append(audience.ProRecipients, subscription)
			validEmails = append(validEmails, subscription.Email)
			continue
		}
		if subscription.NotifiedOfExpiry {
			continue
		}

		// Claim the one-shot expiry notice. Only the pass that flips the flag sends it.
		claimed, err := e.store.ClaimExpiryNotice(ctx, subscription.Email)
		if err != nil {
			return nil, errors.Wrap(err, wrapMsg)
		}
		if claimed {
			audience.ExpiryNotices = append(audience.ExpiryNotices, subscription)
		}
	}

	// Valid subscribers with a push registration on file also get the push channel.
	linked, err := e.store.TokensForEmails(ctx, validEmails)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	for _, subscriber := range linked {
		audience.TokensByLanguage[subscriber.Language] =
			append(audience.TokensByLanguage[subscriber.Language], subscriber.Token)
	}

	e.log.WithFields(logrus.Fields{
		"pro_recipients": len(audience.ProRecipients),
		"expiry_notices": len(audience.ExpiryNotices),
		"push_tokens":    audience.PushTotal(),
	}).Info("segmented Pro audience")

	return audience, nil
}

func (e *Engine) segmentGeneral(ctx context.Context, article *model.Article) (*Audience, error) {
	wrapMsg := "unable to segment the general audience"

	audience := &Audience{TokensByLanguage: make(map[string][]string)}
	category := common.NormalizeCategory(article.Category)
	now := e.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	// Iterate over every push subscriber, applying the preference match or the
	// daily quota depending on whether the subscriber declared preferences.
	subscribers, err := e.store.ListSubscribers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	for _, subscriber := range subscribers {
		included := false

		if len(subscriber.CategoryPreferences) > 0 {
			// Preference-based inclusion: the article's category has to be one of the
			// subscriber's preferences. No quota is consumed on this branch. An
			// empty-string preference never matches anything.
			for _, preference := range subscriber.CategoryPreferences {
				normalized := common.NormalizeCategory(preference)
				if normalized != "" && normalized == category {
					included = true
					break
				}
			}
		} else {
			// Quota-based inclusion: the conditional update resets stale counters and
			// claims a slot only while the subscriber is under the daily limit.
			claimed, err := e.store.ClaimDailySlot(ctx, subscriber.Token, e.quota, today)
			if err != nil {
				return nil, errors.Wrap(err, wrapMsg)
			}
			included = claimed
		}

		if included {
			audience.TokensByLanguage[subscriber.Language] =
				append(audience.TokensByLanguage[subscriber.Language], subscriber.Token)
		}
	}

	e.log.WithFields(logrus.Fields{
		"category":    category,
		"push_tokens": audience.PushTotal(),
		"languages":   len(audience.TokensByLanguage),
	}).Info("segmented general audience")

	return audience, nil
}
