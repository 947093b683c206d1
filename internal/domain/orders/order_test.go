package orders

import "testing"

func TestValidate(t *testing.T) {
	t.Run("accepts well-formed order", func(t *testing.T) {
		order := Order{
			Status: StatusTentative,
			Lines: []OrderLine{
				{ProductID: 1, Quantity: 2},
				{ProductID: 2, Quantity: 1},
			},
		}
		if err := order.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("rejects empty order", func(t *testing.T) {
		order := Order{Status: StatusTentative}
		if err := order.Validate(); err != ErrNoLines {
			t.Fatalf("expected ErrNoLines, got %v", err)
		}
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		order := Order{
			Status: StatusTentative,
			Lines:  []OrderLine{{ProductID: 1, Quantity: 0}},
		}
		if err := order.Validate(); err == nil {
			t.Fatal("expected error for zero quantity")
		}
	})

	t.Run("rejects non-positive product id", func(t *testing.T) {
		order := Order{
			Status: StatusTentative,
			Lines:  []OrderLine{{ProductID: 0, Quantity: 1}},
		}
		if err := order.Validate(); err == nil {
			t.Fatal("expected error for zero product id")
		}
	})
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusTentative, StatusCompleted, true},
		{StatusCompleted, StatusTentative, false},
		{StatusCompleted, StatusCompleted, false},
		{OrderStatus("bogus"), StatusCompleted, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}
