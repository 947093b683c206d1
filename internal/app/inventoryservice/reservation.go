package inventoryservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"git.platform.alem.school/amibragim/order-fulfillment/internal/domain/orders"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/ports"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/shared/contracts"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/shared/logger"
)

// ReservationHandler consumes OrderCreated events, checks availability, and
// reserves stock or rejects the order. The check and the increments run inside
// one transaction with the product rows locked, so the reservation invariant
// holds under concurrent handlers.
type ReservationHandler struct {
	uow       ports.UnitOfWork
	repo      ports.ProductRepository
	publisher ports.Publisher
	logger    *logger.Logger
}

// NewReservationHandler constructs a ReservationHandler with the required dependencies.
func NewReservationHandler(uow ports.UnitOfWork, repo ports.ProductRepository, publisher ports.Publisher, logger *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		uow:       uow,
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// HandleOrderCreated decides the order's fate and publishes exactly one
// terminal reply. Stock mutations are committed before the accepted reply is
// published, so a crash between the two only causes a redelivery, never a
// phantom reservation.
func (handler *ReservationHandler) HandleOrderCreated(ctx context.Context, msg contracts.OrderCreatedMessage) error {
	accepted := false

	err := handler.uow.WithinTx(ctx, func(txCtx context.Context) error {
		// Redelivered message for an order we already reserved: keep the
		// reservation and republish the accepted reply.
		already, err := handler.repo.HasReservation(txCtx, msg.OrderID)
		if err != nil {
			return err
		}
		if already {
			accepted = true
			return nil
		}

		lines, ok, err := handler.checkAvailability(txCtx, msg)
		if err != nil || !ok {
			return err
		}

		if err := handler.repo.Reserve(txCtx, msg.OrderID, lines); err != nil {
			return err
		}
		accepted = true
		return nil
	})
	if err != nil {
		handler.logger.Error(ctx, "db_transaction_failed", "reservation transaction failed", err)
		return Retryable(err)
	}

	if accepted {
		return handler.publishReply(ctx, contracts.RoutingKeyOrderAccepted, contracts.OrderAcceptedMessage{OrderID: msg.OrderID})
	}
	return handler.publishReply(ctx, contracts.RoutingKeyOrderRejected, contracts.OrderRejectedMessage{OrderID: msg.OrderID})
}

// checkAvailability locks every referenced product and verifies each line fits
// into the unreserved stock. Lines for the same product are summed first, so
// an order cannot over-promise by splitting a product across lines. Products
// are locked in ascending id order to avoid lock-order deadlocks between
// concurrent orders.
func (handler *ReservationHandler) checkAvailability(ctx context.Context, msg contracts.OrderCreatedMessage) ([]orders.OrderLine, bool, error) {
	quantities := make(map[int64]int, len(msg.OrderLines))
	for _, line := range msg.OrderLines {
		if line.Quantity <= 0 {
			handler.logger.Info(ctx, "order_line_invalid", "Rejecting order with non-positive quantity", map[string]any{
				"order_id":   msg.OrderID,
				"product_id": line.ProductID,
			})
			return nil, false, nil
		}
		quantities[line.ProductID] += line.Quantity
	}
	if len(quantities) == 0 {
		return nil, false, nil
	}

	ids := make([]int64, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	lines := make([]orders.OrderLine, 0, len(ids))
	for _, id := range ids {
		product, err := handler.repo.GetForUpdate(ctx, id)
		if errors.Is(err, ports.ErrNotFound) {
			// unknown product: the order can never be satisfied
			handler.logger.Info(ctx, "product_unknown", "Rejecting order for unknown product", map[string]any{
				"order_id":   msg.OrderID,
				"product_id": id,
			})
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}

		if !product.CanSatisfy(quantities[id]) {
			handler.logger.Debug(ctx, "stock_insufficient", "Order line exceeds unreserved stock", map[string]any{
				"order_id":   msg.OrderID,
				"product_id": id,
				"requested":  quantities[id],
				"available":  product.Available(),
			})
			return nil, false, nil
		}

		lines = append(lines, orders.OrderLine{
			OrderID:   msg.OrderID,
			ProductID: id,
			Quantity:  quantities[id],
		})
	}

	return lines, true, nil
}

// publishReply marshals and publishes one terminal reply. A publish failure is
// retryable: the message will be redelivered and the reservation check is
// idempotent.
func (handler *ReservationHandler) publishReply(ctx context.Context, routingKey string, reply any) error {
	body, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}

	if err := handler.publisher.Publish(routingKey, body); err != nil {
		handler.logger.Error(ctx, "rabbitmq_publish_failed", "failed to publish saga reply", err)
		return Retryable(err)
	}

	handler.logger.Debug(ctx, "saga_reply_published", "Published terminal reply", map[string]any{
		"routing_key": routingKey,
	})
	return nil
}
