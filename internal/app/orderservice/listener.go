package orderservice

import (
	"context"
	"errors"

	"git.platform.alem.school/amibragim/order-fulfillment/internal/ports"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/shared/contracts"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/shared/logger"
)

// Listener applies terminal saga replies to the order ledger. Both handlers
// are idempotent: redelivered or late messages change nothing and report no
// error, since the broker offers at-least-once delivery.
type Listener struct {
	uow         ports.UnitOfWork
	repo        ports.OrderRepository
	completions *CompletionRegistry
	logger      *logger.Logger
}

// NewListener constructs a Listener with the required dependencies.
func NewListener(uow ports.UnitOfWork, repo ports.OrderRepository, completions *CompletionRegistry, logger *logger.Logger) *Listener {
	return &Listener{
		uow:         uow,
		repo:        repo,
		completions: completions,
		logger:      logger,
	}
}

// HandleOrderAccepted marks the order completed. An accepted reply for a
// missing order (already rejected and deleted, or never known) is logged and
// dropped; the order is never resurrected.
func (listener *Listener) HandleOrderAccepted(ctx context.Context, msg contracts.OrderAcceptedMessage) error {
	var applied bool
	err := listener.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		applied, err = listener.repo.MarkCompleted(txCtx, msg.OrderID)
		return err
	})
	if err != nil {
		listener.logger.Error(ctx, "db_transaction_failed", "failed to mark order completed", err)
		return err
	}

	if !applied {
		// either a duplicate delivery (already completed) or the order is gone
		listener.listNoOp(ctx, msg.OrderID, "order_accepted_noop")
	} else {
		listener.logger.Debug(ctx, "order_completed", "Order marked completed", map[string]any{
			"order_id": msg.OrderID,
		})
	}

	listener.completions.Fulfil(msg.OrderID, OutcomeCompleted)
	return nil
}

// HandleOrderRejected deletes the tentative order. Deleting an already-deleted
// order is a no-op.
func (listener *Listener) HandleOrderRejected(ctx context.Context, msg contracts.OrderRejectedMessage) error {
	err := listener.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return listener.repo.Remove(txCtx, msg.OrderID)
	})
	if err != nil {
		listener.logger.Error(ctx, "db_transaction_failed", "failed to delete rejected order", err)
		return err
	}

	listener.logger.Debug(ctx, "order_rejected", "Tentative order deleted after rejection", map[string]any{
		"order_id": msg.OrderID,
	})

	listener.completions.Fulfil(msg.OrderID, OutcomeRejected)
	return nil
}

// listNoOp records why an accepted reply changed nothing.
func (listener *Listener) listNoOp(ctx context.Context, orderID int64, action string) {
	var exists bool
	err := listener.uow.WithinTx(ctx, func(txCtx context.Context) error {
		_, err := listener.repo.Get(txCtx, orderID)
		if errors.Is(err, ports.ErrNotFound) {
			return nil
		}
		if err == nil {
			exists = true
		}
		return err
	})
	if err != nil {
		listener.logger.Error(ctx, action, "failed to inspect order after no-op reply", err)
		return
	}

	if exists {
		listener.logger.Debug(ctx, action, "Duplicate accepted reply for completed order", map[string]any{
			"order_id": orderID,
		})
	} else {
		listener.logger.Info(ctx, action, "Accepted reply for unknown or deleted order; dropped", map[string]any{
			"order_id": orderID,
		})
	}
}
