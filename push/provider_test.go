package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHTTPProviderSendMulticast(t *testing.T) {
	assert := assert.New(t)

	// Stand up a fake provider endpoint.
	var received multicastRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("Bearer test-key", r.Header.Get("Authorization"))
		err := json.NewDecoder(r.Body).Decode(&received)
		assert.NoError(err, "unable to decode the multicast request")
		response := &Response{
			SuccessCount: 1,
			FailureCount: 1,
			Results: []Result{
				{Token: "token-a"},
				{Token: "token-b", Error: "unregistered"},
			},
		}
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	// Send a multicast message.
	provider := NewHTTPProvider(server.URL, "test-key", 5*time.Second)
	response, err := provider.SendMulticast(
		context.Background(),
		&Message{Title: "Hello"},
		[]string{"token-a", "token-b"})
	assert.NoError(err, "unexpected error occurred while sending the multicast message")

	// Verify the request and the parsed response.
	assert.Equal("Hello", received.Message.Title)
	assert.Equal([]string{"token-a", "token-b"}, received.Tokens)
	assert.Equal(1, response.SuccessCount)
	assert.Equal(1, response.FailureCount)
	assert.Len(response.Results, 2)
}

func TestHTTPProviderErrorStatus(t *testing.T) {
	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	provider := NewHTTPProvider(server.URL, "test-key", 5*time.Second)
	_, err := provider.SendMulticast(context.Background(), &Message{}, []string{"token-a"})
	assert.Error(err, "no error was returned for a non-200 provider response")
}
