package orderservice

import "sync"

// Outcome is the terminal result of one order's saga as observed in-process.
type Outcome int

const (
	// OutcomeCompleted means the reservation was accepted and the order is completed.
	OutcomeCompleted Outcome = iota
	// OutcomeRejected means the reservation was rejected and the order was deleted.
	OutcomeRejected
)

// CompletionRegistry hands saga outcomes from the reply listener to initiators
// waiting in PlaceOrder. It replaces a pure fixed-interval poll with an
// in-process notification keyed by order id; the initiator still polls the
// repository as a fallback for replies handled by another instance.
type CompletionRegistry struct {
	mu      sync.Mutex
	waiters map[int64][]chan Outcome
}

// NewCompletionRegistry creates an empty registry.
func NewCompletionRegistry() *CompletionRegistry {
	return &CompletionRegistry{waiters: make(map[int64][]chan Outcome)}
}

// Await registers interest in the outcome of the given order. The returned
// channel is buffered, so Fulfil never blocks on a slow waiter.
func (registry *CompletionRegistry) Await(orderID int64) <-chan Outcome {
	ch := make(chan Outcome, 1)
	registry.mu.Lock()
	registry.waiters[orderID] = append(registry.waiters[orderID], ch)
	registry.mu.Unlock()
	return ch
}

// Forget drops a waiter after a timeout or cancellation so the registry does
// not leak channels for sagas nobody observes anymore.
func (registry *CompletionRegistry) Forget(orderID int64, ch <-chan Outcome) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	ws := registry.waiters[orderID]
	for i, w := range ws {
		if w == ch {
			registry.waiters[orderID] = append(ws[:i], ws[i+1:]...)
			break
		}
	}
	if len(registry.waiters[orderID]) == 0 {
		delete(registry.waiters, orderID)
	}
}

// Fulfil delivers the outcome to every waiter of the order and clears them.
// Fulfilling an order without waiters is a no-op, which keeps duplicate
// deliveries harmless.
func (registry *CompletionRegistry) Fulfil(orderID int64, outcome Outcome) {
	registry.mu.Lock()
	ws := registry.waiters[orderID]
	delete(registry.waiters, orderID)
	registry.mu.Unlock()

	for _, w := range ws {
		w <- outcome
	}
}
