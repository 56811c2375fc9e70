package handlers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/gist4u/notifications/model"
	"github.com/gist4u/notifications/orchestrator"
)

// FakeSubscriberID is the identifier that will be assigned to subscribers by the mock
// registry.
const FakeSubscriberID = "46ae63be-7030-4cdd-8eb9-66aa49fcf38b"

// MockDispatcher provides mock implementations of the notification operations that
// handlers trigger, storing the calls for later inspection.
type MockDispatcher struct {
	NotifiedRequests   []*orchestrator.Request
	DispatchedArticles []*model.Article
	Results            map[string]string
	NotifyErr          error
	DispatchErr        error
}

// Notify simply stores a copy of the request for later inspection.
func (d *MockDispatcher) Notify(_ context.Context, request *orchestrator.Request) (map[string]string, error) {
	if d.NotifyErr != nil {
		return nil, d.NotifyErr
	}
	d.NotifiedRequests = append(d.NotifiedRequests, request)
	if d.Results == nil {
		return map[string]string{model.ChannelEmail: orchestrator.StatusQueued}, nil
	}
	return d.Results, nil
}

// DispatchArticle simply stores a copy of the article for later inspection.
func (d *MockDispatcher) DispatchArticle(_ context.Context, article *model.Article) error {
	if d.DispatchErr != nil {
		return d.DispatchErr
	}
	d.DispatchedArticles = append(d.DispatchedArticles, article)
	return nil
}

// MockRegistry stores the saved subscriber for later inspection.
type MockRegistry struct {
	Saved *model.Subscriber
	Err   error
}

// UpsertSubscriber records a copy of the subscriber that was saved.
func (r *MockRegistry) UpsertSubscriber(_ context.Context, subscriber *model.Subscriber) error {
	if r.Err != nil {
		return r.Err
	}
	subscriber.ID = FakeSubscriberID
	r.Saved = subscriber
	return nil
}

// MockSubscriptionStore stores the activated subscription for later inspection.
type MockSubscriptionStore struct {
	Activated *model.Subscription
	Err       error
}

// ActivateSubscription records a copy of the subscription that was activated.
func (s *MockSubscriptionStore) ActivateSubscription(_ context.Context, subscription *model.Subscription) error {
	if s.Err != nil {
		return s.Err
	}
	s.Activated = subscription
	return nil
}

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(logger)
}
