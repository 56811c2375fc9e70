package handlers

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/gist4u/notifications/common"
	"github.com/gist4u/notifications/orchestrator"
)

// LifecycleEvent represents a deserialized user lifecycle event. The update type from
// the routing key names the notification to send, so one handler covers the welcome,
// onboarding, and mentorship events.
type LifecycleEvent struct {
	Email    string                 `json:"email"`
	Language string                 `json:"language"`
	Channels []string               `json:"channels"`
	Context  map[string]interface{} `json:"context"`
}

// Lifecycle is a message handler for user lifecycle events.
type Lifecycle struct {
	dispatcher Dispatcher
	log        *logrus.Entry
}

// NewLifecycle returns a new user lifecycle event handler.
func NewLifecycle(dispatcher Dispatcher, log *logrus.Entry) *Lifecycle {
	return &Lifecycle{dispatcher: dispatcher, log: log}
}

// HandleMessage handles a single AMQP delivery.
func (h *Lifecycle) HandleMessage(updateType string, delivery amqp.Delivery) error {

	// Parse the message body.
	var event LifecycleEvent
	err := json.Unmarshal(delivery.Body, &event)
	if err != nil {
		return NewUnrecoverableError("unable to parse message body: %s", err.Error())
	}

	// Validate the email address.
	err = common.ValidateEmailAddress(event.Email)
	if err != nil {
		return NewUnrecoverableError("invalid email address in %s event: %s", updateType, err.Error())
	}

	// Queue the notification. An error here means the update type doesn't correspond
	// to a registered notification, which redelivery can't fix.
	results, err := h.dispatcher.Notify(context.Background(), &orchestrator.Request{
		Type:           updateType,
		RecipientEmail: event.Email,
		Language:       event.Language,
		Context:        event.Context,
		Channels:       event.Channels,
	})
	if err != nil {
		return NewUnrecoverableError("unable to queue the %s notification: %s", updateType, err.Error())
	}

	// Queueing failures are already terminal in the delivery log, so they're logged
	// here rather than requeueing the event and duplicating the channels that worked.
	for channel, status := range results {
		if status != orchestrator.StatusQueued {
			h.log.WithFields(logrus.Fields{
				"type":      updateType,
				"recipient": event.Email,
				"channel":   channel,
			}).Error("notification could not be queued")
		}
	}

	return nil
}
