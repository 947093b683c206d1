package inventoryservice

import (
	"context"
	"encoding/json"

	service "git.platform.alem.school/amibragim/order-fulfillment/internal/app/inventoryservice"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/shared/contracts"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/shared/logger"

	"github.com/rabbitmq/amqp091-go"
)

// handleDelivery decodes, processes and acks/nacks a single order-created message.
func handleDelivery(ctx context.Context, log *logger.Logger, handler *service.ReservationHandler, d amqp091.Delivery) {
	ctx = log.WithRequestID(ctx, logger.NewRequestID())

	var msg contracts.OrderCreatedMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		log.Error(ctx, "message_decode_failed", "Failed to decode OrderCreatedMessage", err)
		_ = d.Nack(false, false) // DLX for unrecoverable malformed JSON
		return
	}

	err := handler.HandleOrderCreated(ctx, msg)
	if err == nil {
		_ = d.Ack(false)
		return
	}

	// classify the error and decide on Ack/Nack
	if service.IsRetryable(err) {
		log.Error(ctx, "processing_retryable", "Reservation failed; requeuing for retry", err)
		_ = d.Nack(false, true) // transient -> requeue
		return
	}

	log.Error(ctx, "processing_failed", "Reservation failed; nacking to DLX", err)
	_ = d.Nack(false, false) // permanent -> DLX
}
