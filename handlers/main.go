package handlers

import (
	"context"

	"github.com/streadway/amqp"

	"github.com/gist4u/notifications/model"
	"github.com/gist4u/notifications/orchestrator"
)

// MessageHandler describes the interface used to handle AMQP messages.
type MessageHandler interface {
	HandleMessage(updateType string, delivery amqp.Delivery) error
}

// Dispatcher describes the notification operations that message handlers trigger.
type Dispatcher interface {
	Notify(ctx context.Context, request *orchestrator.Request) (map[string]string, error)
	DispatchArticle(ctx context.Context, article *model.Article) error
}

// SubscriberRegistry describes the subscriber directory operations used by handlers.
type SubscriberRegistry interface {
	UpsertSubscriber(ctx context.Context, subscriber *model.Subscriber) error
}

// SubscriptionStore describes the Pro subscription operations used by handlers.
type SubscriptionStore interface {
	ActivateSubscription(ctx context.Context, subscription *model.Subscription) error
}
