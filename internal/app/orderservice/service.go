package orderservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"git.platform.alem.school/amibragim/order-fulfillment/internal/domain/orders"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/ports"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/shared/contracts"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/shared/logger"
)

// ErrOrderRejected is returned when the inventory service rejected the order
// and the tentative order was deleted.
var ErrOrderRejected = errors.New("order rejected: insufficient stock")

// ErrSagaTimeout is returned when no terminal reply arrived within the
// configured maximum wait.
var ErrSagaTimeout = errors.New("timed out waiting for order confirmation")

// ErrPublishFailed is returned when the created event could not be published.
// The tentative order already exists at that point.
var ErrPublishFailed = errors.New("failed to publish order created event")

// Service implements ports.OrderService. PlaceOrder is the saga initiator:
// it persists a tentative order, publishes the created event, and blocks the
// calling request until the saga resolves or the wait budget runs out.
type Service struct {
	uow         ports.UnitOfWork
	repo        ports.OrderRepository
	publisher   ports.Publisher
	completions *CompletionRegistry
	logger      *logger.Logger

	waitTimeout  time.Duration
	pollInterval time.Duration
}

// Ensure Service implements the interface at compile time.
var _ ports.OrderService = (*Service)(nil)

// New creates a new order Service with the required dependencies.
func New(
	uow ports.UnitOfWork,
	repo ports.OrderRepository,
	publisher ports.Publisher,
	completions *CompletionRegistry,
	logger *logger.Logger,
	waitTimeout time.Duration,
	pollInterval time.Duration,
) *Service {
	return &Service{
		uow:          uow,
		repo:         repo,
		publisher:    publisher,
		completions:  completions,
		logger:       logger,
		waitTimeout:  waitTimeout,
		pollInterval: pollInterval,
	}
}

// PlaceOrder validates the command, persists a tentative order, publishes
// OrderCreated, and waits for the terminal outcome.
func (service *Service) PlaceOrder(ctx context.Context, cmd ports.CreateOrderCommand) (*orders.Order, error) {
	order := &orders.Order{
		CustomerID: cmd.CustomerID,
		Status:     orders.StatusTentative,
	}
	order.Lines = make([]orders.OrderLine, len(cmd.Lines))
	for i, line := range cmd.Lines {
		order.Lines[i] = orders.OrderLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		}
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}

	// persist the tentative order and obtain its id
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return service.repo.Add(txCtx, order)
	})
	if err != nil {
		service.logger.Error(ctx, "db_transaction_failed", "failed to create tentative order", err)
		return nil, err
	}

	// register the waiter before publishing so the reply cannot race past us
	waiter := service.completions.Await(order.ID)
	defer service.completions.Forget(order.ID, waiter)

	if err := service.publishOrderCreated(order); err != nil {
		// The tentative order exists but the saga never started; surface the
		// failure and leave cleanup to the operator (acknowledged window).
		service.logger.Error(ctx, "rabbitmq_publish_failed", "failed to publish order created event", err)
		return nil, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	service.logger.Debug(ctx, "order_created_published", "Tentative order persisted and event published", map[string]any{
		"order_id": order.ID,
		"lines":    len(order.Lines),
	})

	return service.awaitOutcome(ctx, order.ID, waiter)
}

// GetOrder fetches one order by id.
func (service *Service) GetOrder(ctx context.Context, id int64) (*orders.Order, error) {
	var order *orders.Order
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = service.repo.Get(txCtx, id)
		return err
	})
	return order, err
}

// ListOrders fetches every order.
func (service *Service) ListOrders(ctx context.Context) ([]orders.Order, error) {
	var all []orders.Order
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		all, err = service.repo.GetAll(txCtx)
		return err
	})
	return all, err
}

// publishOrderCreated marshals and publishes the OrderCreated event.
func (service *Service) publishOrderCreated(order *orders.Order) error {
	msg := contracts.OrderCreatedMessage{
		CustomerID: order.CustomerID,
		OrderID:    order.ID,
		OrderLines: make([]contracts.OrderLineMessage, len(order.Lines)),
	}
	for i, line := range order.Lines {
		msg.OrderLines[i] = contracts.OrderLineMessage{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		}
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal order created: %w", err)
	}
	return service.publisher.Publish(contracts.RoutingKeyOrderCreated, body)
}

// awaitOutcome blocks until the saga resolves, the wait budget runs out, or
// ctx is cancelled. The in-process waiter is the fast path; the repository
// poll covers replies consumed by another service instance.
func (service *Service) awaitOutcome(ctx context.Context, orderID int64, waiter <-chan Outcome) (*orders.Order, error) {
	deadline := time.NewTimer(service.waitTimeout)
	defer deadline.Stop()

	poll := time.NewTicker(service.pollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-deadline.C:
			service.logger.Error(ctx, "saga_wait_timeout", "No terminal reply within wait budget", ErrSagaTimeout)
			return nil, ErrSagaTimeout

		case outcome := <-waiter:
			if outcome == OutcomeRejected {
				return nil, ErrOrderRejected
			}
			return service.GetOrder(ctx, orderID)

		case <-poll.C:
			order, err := service.GetOrder(ctx, orderID)
			if errors.Is(err, ports.ErrNotFound) {
				// deleted by the rejected-event handler
				return nil, ErrOrderRejected
			}
			if err != nil {
				return nil, err
			}
			if order.Status == orders.StatusCompleted {
				return order, nil
			}
		}
	}
}
