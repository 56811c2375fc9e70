package handlers

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/gist4u/notifications/common"
	"github.com/gist4u/notifications/model"
	"github.com/gist4u/notifications/orchestrator"
)

// PaymentEvent represents a deserialized payment completion event.
type PaymentEvent struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Preferences string `json:"preferences"`
	IsRenewal   bool   `json:"is_renewal"`
}

// Payment is a message handler for completed Pro subscription payments.
type Payment struct {
	subscriptions SubscriptionStore
	dispatcher    Dispatcher
	log           *logrus.Entry
}

// NewPayment returns a new payment completion event handler.
func NewPayment(subscriptions SubscriptionStore, dispatcher Dispatcher, log *logrus.Entry) *Payment {
	return &Payment{subscriptions: subscriptions, dispatcher: dispatcher, log: log}
}

// HandleMessage handles a single AMQP delivery. Activating the subscription for a
// renewal resets the validity period and clears the expiry-notified flag, so the
// subscriber becomes eligible for a fresh expiry notice ninety days later.
func (h *Payment) HandleMessage(updateType string, delivery amqp.Delivery) error {

	// Parse the message body.
	var event PaymentEvent
	err := json.Unmarshal(delivery.Body, &event)
	if err != nil {
		return NewUnrecoverableError("unable to parse message body: %s", err.Error())
	}

	// Validate the email address before touching the database.
	err = common.ValidateEmailAddress(event.Email)
	if err != nil {
		return NewUnrecoverableError("invalid email address in payment event: %s", err.Error())
	}

	// Create or renew the subscription.
	subscription := &model.Subscription{
		Email:       event.Email,
		Name:        event.Name,
		Phone:       event.Phone,
		Preferences: event.Preferences,
	}
	err = h.subscriptions.ActivateSubscription(context.Background(), subscription)
	if err != nil {
		return NewRecoverableError("unable to activate the subscription for %s: %s", event.Email, err.Error())
	}

	// Send the confirmation email. The subscription is already active at this point,
	// so a delivery failure is logged rather than requeueing the payment event.
	notificationType := "pro_welcome"
	if event.IsRenewal {
		notificationType = "pro_renewal"
	}
	_, err = h.dispatcher.Notify(context.Background(), &orchestrator.Request{
		Type:           notificationType,
		RecipientEmail: event.Email,
		Context:        map[string]interface{}{"name": event.Name},
	})
	if err != nil {
		h.log.WithError(err).WithField("recipient", event.Email).Error("unable to queue the subscription confirmation")
	}

	h.log.WithFields(logrus.Fields{
		"email":   event.Email,
		"renewal": event.IsRenewal,
	}).Info("pro subscription activated")

	return nil
}
