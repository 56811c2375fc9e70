package handlers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// getPaymentEvent returns a map that can be used as a payment completion event.
func getPaymentEvent() map[string]interface{} {
	return map[string]interface{}{
		"email":       "sarah@example.org",
		"name":        "Sarah",
		"phone":       "+15145550199",
		"preferences": "daily",
		"is_renewal":  false,
	}
}

func TestPaymentCompleted(t *testing.T) {
	assert := assert.New(t)

	// Create the subscription store and dispatcher along with the handler.
	subscriptions := &MockSubscriptionStore{}
	dispatcher := &MockDispatcher{}
	handler := NewPayment(subscriptions, dispatcher, testLogger())

	// Pass the delivery to the handler.
	err := handler.HandleMessage("completed", makeDelivery(t, getPaymentEvent(), "events.payment.completed"))
	if err != nil {
		t.Fatalf("unexpected error returned by payment handler: %s", err.Error())
	}

	// Verify that the subscription was activated and spot-check a couple of fields.
	subscription := subscriptions.Activated
	if subscription == nil {
		t.Fatal("no subscription was activated")
	}
	assert.Equal("sarah@example.org", subscription.Email, "incorrect email address")
	assert.Equal("Sarah", subscription.Name, "incorrect name")

	// Verify that the welcome email was queued.
	if len(dispatcher.NotifiedRequests) != 1 {
		t.Fatalf("expected one queued notification, got %d", len(dispatcher.NotifiedRequests))
	}
	request := dispatcher.NotifiedRequests[0]
	assert.Equal("pro_welcome", request.Type, "incorrect notification type")
	assert.Equal("sarah@example.org", request.RecipientEmail, "incorrect recipient")
	assert.Equal("Sarah", request.Context["name"], "incorrect name in the notification context")
}

func TestPaymentRenewal(t *testing.T) {
	assert := assert.New(t)

	// Mark the payment as a renewal.
	event := getPaymentEvent()
	event["is_renewal"] = true

	subscriptions := &MockSubscriptionStore{}
	dispatcher := &MockDispatcher{}
	handler := NewPayment(subscriptions, dispatcher, testLogger())

	err := handler.HandleMessage("completed", makeDelivery(t, event, "events.payment.completed"))
	assert.NoError(err, "unexpected error returned by payment handler")

	// A renewal activates the subscription again and sends the renewal confirmation.
	assert.NotNil(subscriptions.Activated, "the renewal did not activate the subscription")
	if len(dispatcher.NotifiedRequests) != 1 {
		t.Fatalf("expected one queued notification, got %d", len(dispatcher.NotifiedRequests))
	}
	assert.Equal("pro_renewal", dispatcher.NotifiedRequests[0].Type, "incorrect notification type")
}

func TestPaymentInvalidEmail(t *testing.T) {
	assert := assert.New(t)

	event := getPaymentEvent()
	event["email"] = "not-an-address"

	subscriptions := &MockSubscriptionStore{}
	dispatcher := &MockDispatcher{}
	handler := NewPayment(subscriptions, dispatcher, testLogger())

	err := handler.HandleMessage("completed", makeDelivery(t, event, "events.payment.completed"))
	if _, ok := err.(UnrecoverableError); !ok {
		t.Fatalf("an invalid email address did not produce an unrecoverable error: %v", err)
	}
	assert.Nil(subscriptions.Activated, "a subscription was activated for an invalid email address")
}

func TestPaymentStoreFailure(t *testing.T) {
	subscriptions := &MockSubscriptionStore{Err: assert.AnError}
	dispatcher := &MockDispatcher{}
	handler := NewPayment(subscriptions, dispatcher, testLogger())

	err := handler.HandleMessage("completed", makeDelivery(t, getPaymentEvent(), "events.payment.completed"))
	if _, ok := err.(RecoverableError); !ok {
		t.Fatalf("a database failure did not produce a recoverable error: %v", err)
	}
}

func TestPaymentNotifyFailureIsLoggedOnly(t *testing.T) {
	assert := assert.New(t)

	// The confirmation email failing must not requeue the payment event.
	subscriptions := &MockSubscriptionStore{}
	dispatcher := &MockDispatcher{NotifyErr: errors.New("the mailer is unreachable")}
	handler := NewPayment(subscriptions, dispatcher, testLogger())

	err := handler.HandleMessage("completed", makeDelivery(t, getPaymentEvent(), "events.payment.completed"))
	assert.NoError(err, "a confirmation failure escaped the payment handler")
	assert.NotNil(subscriptions.Activated, "the subscription was not activated")
}
