package orderservice

import (
	"context"
	"encoding/json"

	service "git.platform.alem.school/amibragim/order-fulfillment/internal/app/orderservice"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/shared/contracts"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/shared/logger"

	"github.com/rabbitmq/amqp091-go"
)

// handleDelivery decodes, dispatches and acks/nacks a single saga reply.
// Malformed messages go to the DLX; handler failures are requeued so the
// broker's redelivery acts as the retry policy.
func handleDelivery(ctx context.Context, log *logger.Logger, listener *service.Listener, d amqp091.Delivery) {
	ctx = log.WithRequestID(ctx, logger.NewRequestID())

	var err error
	switch d.RoutingKey {
	case contracts.RoutingKeyOrderAccepted:
		var msg contracts.OrderAcceptedMessage
		if jsonErr := json.Unmarshal(d.Body, &msg); jsonErr != nil {
			log.Error(ctx, "message_decode_failed", "Failed to decode OrderAcceptedMessage", jsonErr)
			_ = d.Nack(false, false) // DLX for unrecoverable malformed JSON
			return
		}
		err = listener.HandleOrderAccepted(ctx, msg)

	case contracts.RoutingKeyOrderRejected:
		var msg contracts.OrderRejectedMessage
		if jsonErr := json.Unmarshal(d.Body, &msg); jsonErr != nil {
			log.Error(ctx, "message_decode_failed", "Failed to decode OrderRejectedMessage", jsonErr)
			_ = d.Nack(false, false)
			return
		}
		err = listener.HandleOrderRejected(ctx, msg)

	default:
		log.Error(ctx, "unexpected_routing_key", "Reply with unexpected routing key: "+d.RoutingKey, nil)
		_ = d.Nack(false, false)
		return
	}

	if err != nil {
		log.Error(ctx, "reply_processing_failed", "Reply handling failed; requeuing for retry", err)
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}
