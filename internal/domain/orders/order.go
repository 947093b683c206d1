package orders

import (
	"errors"
	"fmt"
	"time"
)

// OrderStatus is a custom type that represents the current status of an order in its lifecycle.
type OrderStatus string

const (
	// StatusTentative marks an order recorded before its fulfillment outcome is known.
	StatusTentative OrderStatus = "tentative"
	// StatusCompleted marks an order whose inventory reservation was accepted.
	StatusCompleted OrderStatus = "completed"
)

// A rejected order is deleted, never transitioned, so the machine has a single
// forward edge. Completed is terminal.
var allowed = map[OrderStatus]map[OrderStatus]bool{
	StatusTentative: {StatusCompleted: true},
	StatusCompleted: {},
}

// CanTransition checks if from->to is allowed.
func CanTransition(from, to OrderStatus) bool {
	nexts := allowed[from]
	return nexts != nil && nexts[to]
}

// OrderLine is a single product position in an order. Lines are immutable after creation.
type OrderLine struct {
	ID        int64 // DB PK
	OrderID   int64
	ProductID int64
	Quantity  int
}

// Order represents a customer's order owned by the order service.
type Order struct {
	ID         int64
	CustomerID *int64
	Status     OrderStatus
	Lines      []OrderLine
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ErrNoLines is returned when an order carries no order lines.
var ErrNoLines = errors.New("order must contain at least one order line")

// Validate checks structural rules that hold for every order regardless of stock.
func (order *Order) Validate() error {
	if len(order.Lines) == 0 {
		return ErrNoLines
	}
	for i, line := range order.Lines {
		if line.ProductID <= 0 {
			return fmt.Errorf("order line %d: product id must be positive", i+1)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("order line %d: quantity must be positive", i+1)
		}
	}
	return nil
}
