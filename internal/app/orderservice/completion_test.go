package orderservice

import "testing"

func TestCompletionRegistry(t *testing.T) {
	t.Parallel()

	t.Run("fulfil reaches every waiter", func(t *testing.T) {
		registry := NewCompletionRegistry()
		w1 := registry.Await(1)
		w2 := registry.Await(1)

		registry.Fulfil(1, OutcomeCompleted)

		for i, w := range []<-chan Outcome{w1, w2} {
			select {
			case outcome := <-w:
				if outcome != OutcomeCompleted {
					t.Fatalf("waiter %d: got %v, want OutcomeCompleted", i, outcome)
				}
			default:
				t.Fatalf("waiter %d: not fulfilled", i)
			}
		}
	})

	t.Run("fulfil without waiters is a no-op", func(t *testing.T) {
		registry := NewCompletionRegistry()
		registry.Fulfil(99, OutcomeRejected) // must not panic or block
	})

	t.Run("forgotten waiter is not fulfilled", func(t *testing.T) {
		registry := NewCompletionRegistry()
		w := registry.Await(1)
		registry.Forget(1, w)

		registry.Fulfil(1, OutcomeCompleted)

		select {
		case <-w:
			t.Fatal("forgotten waiter must not receive an outcome")
		default:
		}
	})

	t.Run("waiters on different orders are independent", func(t *testing.T) {
		registry := NewCompletionRegistry()
		w1 := registry.Await(1)
		w2 := registry.Await(2)

		registry.Fulfil(2, OutcomeRejected)

		select {
		case <-w1:
			t.Fatal("order 1 waiter must not be fulfilled")
		default:
		}
		select {
		case outcome := <-w2:
			if outcome != OutcomeRejected {
				t.Fatalf("got %v, want OutcomeRejected", outcome)
			}
		default:
			t.Fatal("order 2 waiter not fulfilled")
		}
	})
}
