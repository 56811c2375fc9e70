package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// getRegistrationEvent returns a map that can be used as a push registration event.
func getRegistrationEvent() map[string]interface{} {
	return map[string]interface{}{
		"token":                "fcm-token-1",
		"email":                "sarah@example.org",
		"language":             "fr",
		"category_preferences": []string{"Politics", "tech"},
	}
}

func TestRegistration(t *testing.T) {
	assert := assert.New(t)

	// Create the registry along with the handler.
	registry := &MockRegistry{}
	handler := NewRegistration(registry, testLogger())

	// Pass the delivery to the handler.
	err := handler.HandleMessage("registered", makeDelivery(t, getRegistrationEvent(), "events.subscriber.registered"))
	if err != nil {
		t.Fatalf("unexpected error returned by registration handler: %s", err.Error())
	}

	// Verify that the subscriber was saved and spot-check a couple of fields.
	subscriber := registry.Saved
	if subscriber == nil {
		t.Fatal("no subscriber was saved")
	}
	assert.Equal(FakeSubscriberID, subscriber.ID, "incorrect subscriber ID")
	assert.Equal("fcm-token-1", subscriber.Token, "incorrect token")
	assert.Equal("fr", subscriber.Language, "incorrect language")
	assert.Equal([]string{"Politics", "tech"}, subscriber.CategoryPreferences, "incorrect category preferences")
}

func TestRegistrationDefaultsLanguage(t *testing.T) {
	assert := assert.New(t)

	// An unsupported language code falls back to English.
	event := getRegistrationEvent()
	event["language"] = "de"

	registry := &MockRegistry{}
	handler := NewRegistration(registry, testLogger())

	err := handler.HandleMessage("registered", makeDelivery(t, event, "events.subscriber.registered"))
	assert.NoError(err, "unexpected error returned by registration handler")
	if registry.Saved == nil {
		t.Fatal("no subscriber was saved")
	}
	assert.Equal("en", registry.Saved.Language, "the unsupported language was not defaulted")
}

func TestRegistrationWithoutEmail(t *testing.T) {
	assert := assert.New(t)

	// Registrations without an email address are anonymous but still valid.
	event := getRegistrationEvent()
	delete(event, "email")

	registry := &MockRegistry{}
	handler := NewRegistration(registry, testLogger())

	err := handler.HandleMessage("registered", makeDelivery(t, event, "events.subscriber.registered"))
	assert.NoError(err, "unexpected error returned by registration handler")
	assert.NotNil(registry.Saved, "no subscriber was saved")
}

func TestRegistrationMissingToken(t *testing.T) {
	event := getRegistrationEvent()
	delete(event, "token")

	registry := &MockRegistry{}
	handler := NewRegistration(registry, testLogger())

	err := handler.HandleMessage("registered", makeDelivery(t, event, "events.subscriber.registered"))
	if _, ok := err.(UnrecoverableError); !ok {
		t.Fatalf("a missing token did not produce an unrecoverable error: %v", err)
	}
}

func TestRegistrationInvalidEmail(t *testing.T) {
	event := getRegistrationEvent()
	event["email"] = "not-an-address"

	registry := &MockRegistry{}
	handler := NewRegistration(registry, testLogger())

	err := handler.HandleMessage("registered", makeDelivery(t, event, "events.subscriber.registered"))
	if _, ok := err.(UnrecoverableError); !ok {
		t.Fatalf("an invalid email address did not produce an unrecoverable error: %v", err)
	}
}

func TestRegistrationStoreFailure(t *testing.T) {
	registry := &MockRegistry{Err: assert.AnError}
	handler := NewRegistration(registry, testLogger())

	err := handler.HandleMessage("registered", makeDelivery(t, getRegistrationEvent(), "events.subscriber.registered"))
	if _, ok := err.(RecoverableError); !ok {
		t.Fatalf("a database failure did not produce a recoverable error: %v", err)
	}
}
