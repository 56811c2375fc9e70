// Package push delivers multicast push notifications and interprets per-recipient
// delivery failures.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Message is the notification body delivered to a batch of tokens.
type Message struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Image string            `json:"image,omitempty"`
	Link  string            `json:"link,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
}

// Result is the provider's outcome for a single token. An empty Error means the
// delivery succeeded.
type Result struct {
	Token string `json:"token"`
	Error string `json:"error,omitempty"`
}

// Response is the provider's response for one multicast call. Results are returned in
// the same order as the tokens in the request.
type Response struct {
	SuccessCount int      `json:"success_count"`
	FailureCount int      `json:"failure_count"`
	Results      []Result `json:"results"`
}

// Provider describes the wire-level multicast call. The provider client is initialized
// once at startup and injected into the sender.
type Provider interface {
	SendMulticast(ctx context.Context, message *Message, tokens []string) (*Response, error)
}

// HTTPProvider sends multicast messages to the push provider's REST endpoint.
type HTTPProvider struct {
	url    string
	key    string
	client *http.Client
}

// NewHTTPProvider returns a provider client for the given endpoint. Every call carries
// the given bounded timeout.
func NewHTTPProvider(url, key string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		url:    url,
		key:    key,
		client: &http.Client{Timeout: timeout},
	}
}

type multicastRequest struct {
	Message *Message `json:"message"`
	Tokens  []string `json:"tokens"`
}

// SendMulticast delivers one batch of tokens in a single provider call.
func (p *HTTPProvider) SendMulticast(ctx context.Context, message *Message, tokens []string) (*Response, error) {
	wrapMsg := "unable to send the multicast message"

	// Marshal the request body.
	body, err := json.Marshal(&multicastRequest{Message: message, Tokens: tokens})
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	// Build and send the request.
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+p.key)
	response, err := p.client.Do(request)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: provider returned status %d", wrapMsg, response.StatusCode)
	}

	// Parse the per-token results.
	var multicastResponse Response
	err = json.NewDecoder(response.Body).Decode(&multicastResponse)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return &multicastResponse, nil
}
