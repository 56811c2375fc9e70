package handlers

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/gist4u/notifications/common"
	"github.com/gist4u/notifications/model"
)

// RegistrationEvent represents a deserialized push registration event.
type RegistrationEvent struct {
	Token               string   `json:"token"`
	Email               string   `json:"email"`
	Language            string   `json:"language"`
	CategoryPreferences []string `json:"category_preferences"`
}

// Registration is a message handler for push subscriber registration events.
type Registration struct {
	registry SubscriberRegistry
	log      *logrus.Entry
}

// NewRegistration returns a new push registration event handler.
func NewRegistration(registry SubscriberRegistry, log *logrus.Entry) *Registration {
	return &Registration{registry: registry, log: log}
}

// HandleMessage handles a single AMQP delivery. Re-registering a known token updates
// the subscriber in place, so replayed registration events are harmless.
func (h *Registration) HandleMessage(updateType string, delivery amqp.Delivery) error {

	// Parse the message body.
	var event RegistrationEvent
	err := json.Unmarshal(delivery.Body, &event)
	if err != nil {
		return NewUnrecoverableError("unable to parse message body: %s", err.Error())
	}
	if event.Token == "" {
		return NewUnrecoverableError("registration event is missing the device token")
	}

	// The email address is optional, but when it's present it has to be valid.
	if event.Email != "" {
		err = common.ValidateEmailAddress(event.Email)
		if err != nil {
			return NewUnrecoverableError("invalid email address in registration event: %s", err.Error())
		}
	}

	// Subscribers without an explicit language preference get English content.
	language := event.Language
	if language != model.LanguageFrench {
		language = model.LanguageEnglish
	}

	// Store the subscriber.
	subscriber := &model.Subscriber{
		Token:               event.Token,
		Email:               event.Email,
		Language:            language,
		CategoryPreferences: event.CategoryPreferences,
	}
	err = h.registry.UpsertSubscriber(context.Background(), subscriber)
	if err != nil {
		return NewRecoverableError("unable to store the push subscriber: %s", err.Error())
	}

	h.log.WithFields(logrus.Fields{
		"subscriber": subscriber.ID,
		"language":   language,
	}).Info("push subscriber registered")

	return nil
}
