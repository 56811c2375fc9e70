// Package handlerset wires the message handlers to the AMQP broker and routes incoming
// deliveries to them.
package handlerset

import (
	"context"
	"strings"

	"github.com/cyverse-de/messaging/v9"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/gist4u/notifications/common"
	"github.com/gist4u/notifications/handlers"
)

// QueueName is the durable queue that this service consumes from.
const QueueName = "notifications.dispatch"

// prefetchCount limits the number of unacknowledged deliveries in flight.
const prefetchCount = 100

// HandlerSet represents a set of AMQP message handlers keyed by routing key.
type HandlerSet struct {
	amqpClient   *messaging.Client
	amqpSettings *common.AMQPSettings
	handlerFor   map[string]handlers.MessageHandler
	log          *logrus.Entry
}

// New creates a new handler set on top of an existing AMQP client.
func New(
	amqpClient *messaging.Client,
	amqpSettings *common.AMQPSettings,
	handlerFor map[string]handlers.MessageHandler,
	log *logrus.Entry,
) *HandlerSet {
	return &HandlerSet{
		amqpClient:   amqpClient,
		amqpSettings: amqpSettings,
		handlerFor:   handlerFor,
		log:          log,
	}
}

// Listen registers a consumer for every routing key with a handler and then blocks,
// processing deliveries until the AMQP client is closed.
func (hs *HandlerSet) Listen() {

	// Build the list of routing keys to bind the queue to.
	routingKeys := make([]string, 0, len(hs.handlerFor))
	for routingKey := range hs.handlerFor {
		routingKeys = append(routingKeys, routingKey)
	}

	// Register the consumer.
	hs.amqpClient.AddConsumerMulti(
		hs.amqpSettings.ExchangeName,
		hs.amqpSettings.ExchangeType,
		QueueName,
		routingKeys,
		hs.handleDelivery,
		prefetchCount,
	)

	hs.log.WithField("queue", QueueName).Info("listening for incoming events")
	hs.amqpClient.Listen()
}

// Close closes a message handler set.
func (hs *HandlerSet) Close() {
	hs.amqpClient.Close()
}

// handleDelivery routes one delivery to its handler and settles it based on the outcome.
// Recoverable failures are requeued once; everything else is acknowledged so that a bad
// message can't wedge the queue.
func (hs *HandlerSet) handleDelivery(_ context.Context, delivery amqp.Delivery) {
	routingKey := delivery.RoutingKey
	log := hs.log.WithField("routing_key", routingKey)

	// Look up the handler for the routing key.
	handler, ok := hs.handlerFor[routingKey]
	if !ok {
		log.Warn("no handler registered for routing key")
		if err := delivery.Ack(false); err != nil {
			log.WithError(err).Error("unable to acknowledge the delivery")
		}
		return
	}

	// The update type is the last segment of the routing key.
	segments := strings.Split(routingKey, ".")
	updateType := segments[len(segments)-1]

	// Pass the delivery to the handler.
	err := handler.HandleMessage(updateType, delivery)
	switch err.(type) {
	case nil:
		if err := delivery.Ack(false); err != nil {
			log.WithError(err).Error("unable to acknowledge the delivery")
		}
	case handlers.RecoverableError:
		log.WithError(err).Error("temporary failure while handling the event")
		if err := delivery.Nack(false, !delivery.Redelivered); err != nil {
			log.WithError(err).Error("unable to reject the delivery")
		}
	default:
		log.WithError(err).Error("discarding the event")
		if err := delivery.Ack(false); err != nil {
			log.WithError(err).Error("unable to acknowledge the delivery")
		}
	}
}
