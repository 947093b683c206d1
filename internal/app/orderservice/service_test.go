package orderservice

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"git.platform.alem.school/amibragim/order-fulfillment/internal/domain/orders"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/ports"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/shared/contracts"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/shared/logger"
)

func newTestService(repo *fakeOrderRepo, pub *fakePublisher) (*Service, *CompletionRegistry) {
	completions := NewCompletionRegistry()
	svc := New(
		&fakeUnitOfWork{},
		repo,
		pub,
		completions,
		logger.NewLogger("order-service-test"),
		500*time.Millisecond,
		10*time.Millisecond,
	)
	return svc, completions
}

func TestPlaceOrder_ValidationFailure(t *testing.T) {
	t.Parallel()

	repo := newFakeOrderRepo()
	pub := &fakePublisher{}
	svc, _ := newTestService(repo, pub)

	_, err := svc.PlaceOrder(context.Background(), ports.CreateOrderCommand{})
	if !errors.Is(err, orders.ErrNoLines) {
		t.Fatalf("expected ErrNoLines, got %v", err)
	}

	// no side effects before validation passes
	if pub.count() != 0 {
		t.Fatalf("expected no published messages, got %d", pub.count())
	}
	if all, _ := repo.GetAll(context.Background()); len(all) != 0 {
		t.Fatalf("expected no persisted orders, got %d", len(all))
	}
}

func TestPlaceOrder_CompletedViaNotifier(t *testing.T) {
	t.Parallel()

	repo := newFakeOrderRepo()
	pub := &fakePublisher{}
	svc, completions := newTestService(repo, pub)

	// the hook plays the broker + inventory + reply-listener roles
	pub.hook = func(routingKey string, body []byte) {
		if routingKey != contracts.RoutingKeyOrderCreated {
			t.Errorf("unexpected routing key %q", routingKey)
			return
		}
		var msg contracts.OrderCreatedMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			t.Errorf("decode published message: %v", err)
			return
		}
		if _, err := repo.MarkCompleted(context.Background(), msg.OrderID); err != nil {
			t.Errorf("mark completed: %v", err)
			return
		}
		completions.Fulfil(msg.OrderID, OutcomeCompleted)
	}

	customer := int64(7)
	order, err := svc.PlaceOrder(context.Background(), ports.CreateOrderCommand{
		CustomerID: &customer,
		Lines:      []ports.LineInput{{ProductID: 1, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if order.Status != orders.StatusCompleted {
		t.Fatalf("expected status completed, got %s", order.Status)
	}
	if order.ID == 0 {
		t.Fatal("expected assigned order id")
	}
	if order.CustomerID == nil || *order.CustomerID != customer {
		t.Fatalf("expected customer id %d, got %v", customer, order.CustomerID)
	}
}

func TestPlaceOrder_CompletedViaPollFallback(t *testing.T) {
	t.Parallel()

	repo := newFakeOrderRepo()
	pub := &fakePublisher{}
	svc, _ := newTestService(repo, pub)

	// complete the order without fulfilling any waiter, as if the reply were
	// consumed by another service instance
	pub.hook = func(routingKey string, body []byte) {
		var msg contracts.OrderCreatedMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			t.Errorf("decode published message: %v", err)
			return
		}
		if _, err := repo.MarkCompleted(context.Background(), msg.OrderID); err != nil {
			t.Errorf("mark completed: %v", err)
		}
	}

	order, err := svc.PlaceOrder(context.Background(), ports.CreateOrderCommand{
		Lines: []ports.LineInput{{ProductID: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if order.Status != orders.StatusCompleted {
		t.Fatalf("expected status completed, got %s", order.Status)
	}
}

func TestPlaceOrder_Rejected(t *testing.T) {
	t.Parallel()

	repo := newFakeOrderRepo()
	pub := &fakePublisher{}
	svc, completions := newTestService(repo, pub)

	pub.hook = func(routingKey string, body []byte) {
		var msg contracts.OrderCreatedMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			t.Errorf("decode published message: %v", err)
			return
		}
		if err := repo.Remove(context.Background(), msg.OrderID); err != nil {
			t.Errorf("remove order: %v", err)
			return
		}
		completions.Fulfil(msg.OrderID, OutcomeRejected)
	}

	_, err := svc.PlaceOrder(context.Background(), ports.CreateOrderCommand{
		Lines: []ports.LineInput{{ProductID: 1, Quantity: 5}},
	})
	if !errors.Is(err, ErrOrderRejected) {
		t.Fatalf("expected ErrOrderRejected, got %v", err)
	}

	// the tentative order is gone
	if all, _ := repo.GetAll(context.Background()); len(all) != 0 {
		t.Fatalf("expected order deleted, found %d orders", len(all))
	}
}

func TestPlaceOrder_Timeout(t *testing.T) {
	t.Parallel()

	repo := newFakeOrderRepo()
	pub := &fakePublisher{} // nobody ever replies
	svc, _ := newTestService(repo, pub)

	start := time.Now()
	_, err := svc.PlaceOrder(context.Background(), ports.CreateOrderCommand{
		Lines: []ports.LineInput{{ProductID: 1, Quantity: 1}},
	})
	if !errors.Is(err, ErrSagaTimeout) {
		t.Fatalf("expected ErrSagaTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 500*time.Millisecond {
		t.Fatalf("returned before the wait budget elapsed: %v", elapsed)
	}
}

func TestPlaceOrder_ContextCancelled(t *testing.T) {
	t.Parallel()

	repo := newFakeOrderRepo()
	pub := &fakePublisher{}
	svc, _ := newTestService(repo, pub)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := svc.PlaceOrder(ctx, ports.CreateOrderCommand{
		Lines: []ports.LineInput{{ProductID: 1, Quantity: 1}},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPlaceOrder_PublishFailure(t *testing.T) {
	t.Parallel()

	repo := newFakeOrderRepo()
	pub := &fakePublisher{err: errors.New("broker gone")}
	svc, _ := newTestService(repo, pub)

	_, err := svc.PlaceOrder(context.Background(), ports.CreateOrderCommand{
		Lines: []ports.LineInput{{ProductID: 1, Quantity: 1}},
	})
	if !errors.Is(err, ErrPublishFailed) {
		t.Fatalf("expected ErrPublishFailed, got %v", err)
	}

	// the tentative order was already persisted when publishing failed
	all, _ := repo.GetAll(context.Background())
	if len(all) != 1 || all[0].Status != orders.StatusTentative {
		t.Fatalf("expected one tentative order left behind, got %+v", all)
	}
}
