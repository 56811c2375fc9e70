// Package orchestrator ties segmentation, batching, and the channel senders together.
// It is the only entry point that the rest of the system calls to send notifications.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/gist4u/notifications/batch"
	"github.com/gist4u/notifications/common"
	"github.com/gist4u/notifications/email"
	"github.com/gist4u/notifications/model"
	"github.com/gist4u/notifications/push"
	"github.com/gist4u/notifications/segmentation"
)

// Per-channel queueing statuses returned by Notify.
const (
	StatusQueued        = "queued"
	StatusFailedToQueue = "failed"
)

// DefaultSendTimeout bounds each provider call made by a background dispatch unit.
const DefaultSendTimeout = 30 * time.Second

// DeliveryLog records dispatch attempts and their outcomes.
type DeliveryLog interface {
	RecordQueued(ctx context.Context, entry *model.DeliveryLogEntry) error
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, errorMessage string) error
}

// TokenDirectory looks up push registrations linked to email addresses.
type TokenDirectory interface {
	TokensForEmails(ctx context.Context, emails []string) ([]model.Subscriber, error)
}

// EmailSender delivers one email notification.
type EmailSender interface {
	Send(notificationType, recipient, language string, context map[string]interface{}) error
}

// PushSender delivers one batch of push notifications.
type PushSender interface {
	SendBatch(ctx context.Context, message *push.Message, tokens []string) (successes, failures int, err error)
}

// Segmenter computes the audience for an article.
type Segmenter interface {
	Segment(ctx context.Context, article *model.Article) (*segmentation.Audience, error)
}

// Settings holds the orchestrator's tunables.
type Settings struct {
	BaseURL     string
	BatchSize   int
	SendTimeout time.Duration
}

// Orchestrator is the notification façade.
type Orchestrator struct {
	deliveryLog DeliveryLog
	directory   TokenDirectory
	emailSender EmailSender
	pushSender  PushSender
	segmenter   Segmenter
	pool        *Pool
	baseURL     string
	batchSize   int
	sendTimeout time.Duration
	log         *logrus.Entry
}

// New returns a new orchestrator.
func New(
	deliveryLog DeliveryLog,
	directory TokenDirectory,
	emailSender EmailSender,
	pushSender PushSender,
	segmenter Segmenter,
	pool *Pool,
	settings Settings,
	log *logrus.Entry,
) *Orchestrator {
	if settings.BatchSize <= 0 {
		settings.BatchSize = batch.DefaultSize
	}
	if settings.SendTimeout <= 0 {
		settings.SendTimeout = DefaultSendTimeout
	}
	return &Orchestrator{
		deliveryLog: deliveryLog,
		directory:   directory,
		emailSender: emailSender,
		pushSender:  pushSender,
		segmenter:   segmenter,
		pool:        pool,
		baseURL:     settings.BaseURL,
		batchSize:   settings.BatchSize,
		sendTimeout: settings.SendTimeout,
		log:         log,
	}
}

// Request describes one logical notification event for a single recipient.
type Request struct {
	Type           string
	RecipientEmail string
	Language       string
	Context        map[string]interface{}
	Channels       []string
}

// Notify queues one dispatch unit per requested channel and returns the per-channel
// queueing status immediately; the caller never blocks on delivery. An unknown
// notification type is a configuration error reported synchronously, before anything
// is queued.
func (o *Orchestrator) Notify(ctx context.Context, request *Request) (map[string]string, error) {
	if _, err := email.Lookup(request.Type); err != nil {
		return nil, err
	}

	channels := request.Channels
	if len(channels) == 0 {
		channels = []string{model.ChannelEmail}
	}
	language := request.Language
	if language == "" {
		language = model.LanguageEnglish
	}
	notificationContext := request.Context
	if notificationContext == nil {
		notificationContext = map[string]interface{}{}
	}

	results := make(map[string]string, len(channels))
	for _, channel := range channels {
		switch channel {
		case model.ChannelEmail:
			results[channel] = o.queueEmail(ctx, request.Type, request.RecipientEmail, language, notificationContext)
		case model.ChannelPush:
			results[channel] = o.queueLifecyclePush(ctx, request.Type, request.RecipientEmail, language, notificationContext)
		default:
			// Record the attempt so the unknown channel shows up in the audit trail.
			entry := o.newEntry(request.Type, channel, request.RecipientEmail, language, notificationContext)
			if err := o.deliveryLog.RecordQueued(ctx, entry); err == nil {
				o.fail(entry.ID, "unknown channel: "+channel)
			}
			results[channel] = StatusFailedToQueue
		}
	}

	return results, nil
}

// DispatchArticle runs full segmentation, batching, and dispatch for a published
// article. It returns as soon as every dispatch unit is queued.
func (o *Orchestrator) DispatchArticle(ctx context.Context, article *model.Article) error {
	wrapMsg := "unable to dispatch article notifications"

	audience, err := o.segmenter.Segment(ctx, article)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Queue one push dispatch unit per language group. Groups run independently of
	// each other; batches run sequentially within a group.
	for language, tokens := range audience.TokensByLanguage {
		o.queueArticlePush(ctx, article, language, tokens)
	}

	// Pro-exclusive content goes out to valid subscriptions over email. The subject
	// line carries a shortened headline; the body gets the full one.
	headline := article.Headline(model.LanguageEnglish)
	for _, subscription := range audience.ProRecipients {
		o.queueEmail(ctx, "pro_article", subscription.Email, model.LanguageEnglish, map[string]interface{}{
			"name":           subscription.Name,
			"headline":       headline,
			"headline_short": common.TruncateSummary(headline, 50),
			"summary":        article.Summary(model.LanguageEnglish),
			"category":       strings.TrimPrefix(common.NormalizeCategory(article.Category), model.ProCategoryPrefix),
		})
	}

	// Expired subscriptions claimed during segmentation get their one-time notice.
	for _, subscription := range audience.ExpiryNotices {
		o.queueEmail(ctx, "subscription_expired", subscription.Email, model.LanguageEnglish, map[string]interface{}{
			"name": subscription.Name,
		})
	}

	o.log.WithFields(logrus.Fields{
		"article":        article.ID,
		"push_tokens":    audience.PushTotal(),
		"pro_recipients": len(audience.ProRecipients),
		"expiry_notices": len(audience.ExpiryNotices),
	}).Info("article notifications queued")

	return nil
}

func (o *Orchestrator) newEntry(notificationType, channel, recipient, language string, values map[string]interface{}) *model.DeliveryLogEntry {
	return &model.DeliveryLogEntry{
		ID:               uuid.NewString(),
		NotificationType: notificationType,
		Channel:          channel,
		Recipient:        recipient,
		Language:         language,
		Context:          values,
	}
}

// queueEmail records a pending delivery log entry and queues the email send.
func (o *Orchestrator) queueEmail(ctx context.Context, notificationType, recipient, language string, values map[string]interface{}) string {
	entry := o.newEntry(notificationType, model.ChannelEmail, recipient, language, values)
	if err := o.deliveryLog.RecordQueued(ctx, entry); err != nil {
		o.log.WithError(err).Error("unable to record the queued email")
		return StatusFailedToQueue
	}

	job := func() {
		o.finish(entry.ID, o.emailSender.Send(notificationType, recipient, language, values))
	}
	if err := o.pool.Submit(job); err != nil {
		o.fail(entry.ID, err.Error())
		return StatusFailedToQueue
	}

	return StatusQueued
}

// queueLifecyclePush records a pending delivery log entry and queues a push send to
// the registrations linked to the recipient's email address.
func (o *Orchestrator) queueLifecyclePush(ctx context.Context, notificationType, recipient, language string, values map[string]interface{}) string {
	entry := o.newEntry(notificationType, model.ChannelPush, recipient, language, values)
	if err := o.deliveryLog.RecordQueued(ctx, entry); err != nil {
		o.log.WithError(err).Error("unable to record the queued push notification")
		return StatusFailedToQueue
	}

	// The type was validated by Notify before anything was queued.
	template, _ := email.Lookup(notificationType)

	job := func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), o.sendTimeout)
		defer cancel()

		subscribers, err := o.directory.TokensForEmails(sendCtx, []string{recipient})
		if err != nil {
			o.fail(entry.ID, err.Error())
			return
		}
		if len(subscribers) == 0 {
			o.fail(entry.ID, "no push registration on file")
			return
		}
		tokens := make([]string, len(subscribers))
		for i, subscriber := range subscribers {
			tokens[i] = subscriber.Token
		}

		message := &push.Message{
			Title: template.Subject(language, values),
			Body:  template.FallbackBody(language, values),
			Data:  map[string]string{"type": notificationType},
		}
		successes, _, err := o.pushSender.SendBatch(sendCtx, message, tokens)
		if err != nil {
			o.fail(entry.ID, err.Error())
			return
		}
		if successes == 0 {
			o.fail(entry.ID, "no recipients reached")
			return
		}
		o.markSent(entry.ID)
	}
	if err := o.pool.Submit(job); err != nil {
		o.fail(entry.ID, err.Error())
		return StatusFailedToQueue
	}

	return StatusQueued
}

// queueArticlePush records one delivery log entry for a language group and queues its
// batched dispatch.
func (o *Orchestrator) queueArticlePush(ctx context.Context, article *model.Article, language string, tokens []string) {
	entry := o.newEntry("article_published", model.ChannelPush, fmt.Sprintf("%d subscribers", len(tokens)), language, map[string]interface{}{
		"article_id": article.ID,
		"category":   article.Category,
	})
	if err := o.deliveryLog.RecordQueued(ctx, entry); err != nil {
		o.log.WithError(err).Error("unable to record the queued language group")
		return
	}

	job := func() {
		message := push.BuildArticleMessage(article, language, o.baseURL)
		report := batch.Run(context.Background(), language, tokens, o.batchSize,
			func(batchCtx context.Context, batchTokens []string) (int, int, error) {
				sendCtx, cancel := context.WithTimeout(batchCtx, o.sendTimeout)
				defer cancel()
				return o.pushSender.SendBatch(sendCtx, message, batchTokens)
			}, o.log)
		if report.Successes > 0 {
			o.markSent(entry.ID)
			return
		}
		o.fail(entry.ID, fmt.Sprintf("all %d recipients failed across %d batches", report.Failures, report.Batches))
	}
	if err := o.pool.Submit(job); err != nil {
		o.fail(entry.ID, err.Error())
	}
}

// finish moves a delivery log entry to its terminal status based on the send outcome.
func (o *Orchestrator) finish(id string, err error) {
	if err != nil {
		o.fail(id, err.Error())
		return
	}
	o.markSent(id)
}

func (o *Orchestrator) markSent(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), o.sendTimeout)
	defer cancel()
	if err := o.deliveryLog.MarkSent(ctx, id); err != nil {
		o.log.WithError(err).WithField("entry", id).Error("unable to record the delivery outcome")
	}
}

func (o *Orchestrator) fail(id, errorMessage string) {
	ctx, cancel := context.WithTimeout(context.Background(), o.sendTimeout)
	defer cancel()
	if err := o.deliveryLog.MarkFailed(ctx, id, errorMessage); err != nil {
		o.log.WithError(err).WithField("entry", id).Error("unable to record the delivery outcome")
	}
}
