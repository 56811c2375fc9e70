package handlers

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/gist4u/notifications/model"
)

// ArticleEvent represents a deserialized article publication event.
type ArticleEvent struct {
	ID           string `json:"id"`
	HeadlineEN   string `json:"headline_en"`
	HeadlineFR   string `json:"headline_fr"`
	SummaryEN    string `json:"summary_en"`
	SummaryFR    string `json:"summary_fr"`
	Category     string `json:"category"`
	ThumbnailURL string `json:"thumbnail_url"`
	Notify       bool   `json:"notify"`
}

// Article is a message handler for article publication events.
type Article struct {
	dispatcher Dispatcher
	log        *logrus.Entry
}

// NewArticle returns a new article publication event handler.
func NewArticle(dispatcher Dispatcher, log *logrus.Entry) *Article {
	return &Article{dispatcher: dispatcher, log: log}
}

// HandleMessage handles a single AMQP delivery.
func (h *Article) HandleMessage(updateType string, delivery amqp.Delivery) error {

	// Parse the message body.
	var event ArticleEvent
	err := json.Unmarshal(delivery.Body, &event)
	if err != nil {
		return NewUnrecoverableError("unable to parse message body: %s", err.Error())
	}
	if event.ID == "" {
		return NewUnrecoverableError("article publication event is missing the article ID")
	}

	// Articles can be published silently.
	if !event.Notify {
		h.log.WithField("article", event.ID).Info("notifications are disabled for this article")
		return nil
	}

	// Run segmentation and dispatch for the article.
	article := &model.Article{
		ID:           event.ID,
		HeadlineEN:   event.HeadlineEN,
		HeadlineFR:   event.HeadlineFR,
		SummaryEN:    event.SummaryEN,
		SummaryFR:    event.SummaryFR,
		Category:     event.Category,
		ThumbnailURL: event.ThumbnailURL,
		Notify:       event.Notify,
	}
	err = h.dispatcher.DispatchArticle(context.Background(), article)
	if err != nil {
		return NewRecoverableError("unable to dispatch notifications for article %s: %s", event.ID, err.Error())
	}

	return nil
}
