package push

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// permanentFailureVocabulary identifies per-token errors that will never succeed on a
// future attempt. Tokens that fail this way are removed from the directory.
var permanentFailureVocabulary = []string{
	"not found",
	"unregistered",
	"invalid",
}

// IsPermanentFailure classifies a per-token error string as permanent or transient.
func IsPermanentFailure(errorMessage string) bool {
	lowered := strings.ToLower(errorMessage)
	for _, marker := range permanentFailureVocabulary {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// TokenRemover removes permanently-invalid tokens from the subscriber directory.
type TokenRemover interface {
	DeleteSubscribersByToken(ctx context.Context, tokens []string) (int64, error)
}

// Sender delivers push batches and converts permanent per-token failures into
// directory cleanup.
type Sender struct {
	provider Provider
	store    TokenRemover
	log      *logrus.Entry
}

// NewSender returns a push sender backed by the given provider client.
func NewSender(provider Provider, store TokenRemover, log *logrus.Entry) *Sender {
	return &Sender{
		provider: provider,
		store:    store,
		log:      log,
	}
}

// SendBatch delivers one batch of tokens. Per-token failures are classified against the
// permanent-failure vocabulary; the permanently-invalid tokens collected across the
// batch are removed from the directory in one bulk call before returning. The returned
// error is non-nil only when the whole provider call failed.
func (s *Sender) SendBatch(ctx context.Context, message *Message, tokens []string) (successes, failures int, err error) {
	response, err := s.provider.SendMulticast(ctx, message, tokens)
	if err != nil {
		return 0, 0, err
	}

	// Match the per-token results back to the request tokens. The provider preserves
	// request order, but the token field is used when present.
	var invalidTokens []string
	for index, result := range response.Results {
		if result.Error == "" {
			continue
		}
		token := result.Token
		if token == "" && index < len(tokens) {
			token = tokens[index]
		}
		if IsPermanentFailure(result.Error) {
			invalidTokens = append(invalidTokens, token)
		} else {
			s.log.WithFields(logrus.Fields{
				"token": token,
				"error": result.Error,
			}).Warn("transient push delivery failure")
		}
	}

	// Remove the permanently-invalid tokens in one bulk operation. A cleanup failure
	// is logged but doesn't fail the batch.
	if len(invalidTokens) > 0 {
		deleted, err := s.store.DeleteSubscribersByToken(ctx, invalidTokens)
		if err != nil {
			s.log.WithError(err).Error("unable to remove invalid push tokens")
		} else {
			s.log.WithField("deleted", deleted).Info("removed invalid push tokens")
		}
	}

	return response.SuccessCount, response.FailureCount, nil
}
