package orderservice

import (
	"context"
	"testing"

	"git.platform.alem.school/amibragim/order-fulfillment/internal/domain/orders"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/ports"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/shared/contracts"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/shared/logger"
)

func newTestListener(repo *fakeOrderRepo) (*Listener, *CompletionRegistry) {
	completions := NewCompletionRegistry()
	return NewListener(&fakeUnitOfWork{}, repo, completions, logger.NewLogger("order-listener-test")), completions
}

func addTentative(t *testing.T, repo *fakeOrderRepo) int64 {
	t.Helper()
	order := &orders.Order{
		Status: orders.StatusTentative,
		Lines:  []orders.OrderLine{{ProductID: 1, Quantity: 1}},
	}
	if err := repo.Add(context.Background(), order); err != nil {
		t.Fatalf("add order: %v", err)
	}
	return order.ID
}

func TestHandleOrderAccepted(t *testing.T) {
	t.Parallel()

	t.Run("marks tentative order completed", func(t *testing.T) {
		repo := newFakeOrderRepo()
		listener, _ := newTestListener(repo)
		id := addTentative(t, repo)

		err := listener.HandleOrderAccepted(context.Background(), contracts.OrderAcceptedMessage{OrderID: id})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		order, _ := repo.Get(context.Background(), id)
		if order.Status != orders.StatusCompleted {
			t.Fatalf("expected completed, got %s", order.Status)
		}
	})

	t.Run("is idempotent against duplicate delivery", func(t *testing.T) {
		repo := newFakeOrderRepo()
		listener, _ := newTestListener(repo)
		id := addTentative(t, repo)

		msg := contracts.OrderAcceptedMessage{OrderID: id}
		for i := 0; i < 2; i++ {
			if err := listener.HandleOrderAccepted(context.Background(), msg); err != nil {
				t.Fatalf("delivery %d: expected no error, got %v", i+1, err)
			}
		}

		order, _ := repo.Get(context.Background(), id)
		if order.Status != orders.StatusCompleted {
			t.Fatalf("expected completed, got %s", order.Status)
		}
	})

	t.Run("drops accepted reply for unknown order", func(t *testing.T) {
		repo := newFakeOrderRepo()
		listener, _ := newTestListener(repo)

		err := listener.HandleOrderAccepted(context.Background(), contracts.OrderAcceptedMessage{OrderID: 42})
		if err != nil {
			t.Fatalf("expected no error for unknown order, got %v", err)
		}
		if all, _ := repo.GetAll(context.Background()); len(all) != 0 {
			t.Fatal("expected no order to be resurrected")
		}
	})

	t.Run("fulfils the waiting initiator", func(t *testing.T) {
		repo := newFakeOrderRepo()
		listener, completions := newTestListener(repo)
		id := addTentative(t, repo)

		waiter := completions.Await(id)
		if err := listener.HandleOrderAccepted(context.Background(), contracts.OrderAcceptedMessage{OrderID: id}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		select {
		case outcome := <-waiter:
			if outcome != OutcomeCompleted {
				t.Fatalf("expected OutcomeCompleted, got %v", outcome)
			}
		default:
			t.Fatal("expected waiter to be fulfilled")
		}
	})
}

func TestHandleOrderRejected(t *testing.T) {
	t.Parallel()

	t.Run("deletes the tentative order", func(t *testing.T) {
		repo := newFakeOrderRepo()
		listener, _ := newTestListener(repo)
		id := addTentative(t, repo)

		err := listener.HandleOrderRejected(context.Background(), contracts.OrderRejectedMessage{OrderID: id})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if _, err := repo.Get(context.Background(), id); err != ports.ErrNotFound {
			t.Fatalf("expected order deleted, got %v", err)
		}
	})

	t.Run("is idempotent against duplicate delivery", func(t *testing.T) {
		repo := newFakeOrderRepo()
		listener, _ := newTestListener(repo)
		id := addTentative(t, repo)

		msg := contracts.OrderRejectedMessage{OrderID: id}
		for i := 0; i < 2; i++ {
			if err := listener.HandleOrderRejected(context.Background(), msg); err != nil {
				t.Fatalf("delivery %d: expected no error, got %v", i+1, err)
			}
		}
	})

	t.Run("fulfils the waiting initiator with rejection", func(t *testing.T) {
		repo := newFakeOrderRepo()
		listener, completions := newTestListener(repo)
		id := addTentative(t, repo)

		waiter := completions.Await(id)
		if err := listener.HandleOrderRejected(context.Background(), contracts.OrderRejectedMessage{OrderID: id}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		select {
		case outcome := <-waiter:
			if outcome != OutcomeRejected {
				t.Fatalf("expected OutcomeRejected, got %v", outcome)
			}
		default:
			t.Fatal("expected waiter to be fulfilled")
		}
	})
}
