package ports

import (
	"context"
	"errors"

	"git.platform.alem.school/amibragim/order-fulfillment/internal/domain/orders"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/domain/products"
)

// ErrNotFound is returned by repositories when the requested entity does not exist.
var ErrNotFound = errors.New("entity not found")

// UnitOfWork wraps a function in a DB transaction.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository persists orders together with their lines.
// Add assigns the order's ID. Remove of a missing order is a no-op.
type OrderRepository interface {
	GetAll(ctx context.Context) ([]orders.Order, error)
	Get(ctx context.Context, id int64) (*orders.Order, error)
	Add(ctx context.Context, o *orders.Order) error
	Remove(ctx context.Context, id int64) error

	// MarkCompleted transitions tentative -> completed. It returns applied=false
	// when the order is already completed or does not exist, so duplicate
	// deliveries stay harmless.
	MarkCompleted(ctx context.Context, id int64) (applied bool, err error)
}

// ProductRepository persists products and their reservations.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]products.Product, error)
	Get(ctx context.Context, id int64) (*products.Product, error)
	Add(ctx context.Context, p *products.Product) error
	Edit(ctx context.Context, p *products.Product) error
	Remove(ctx context.Context, id int64) error

	// GetForUpdate locks the product row for the duration of the surrounding
	// transaction so the availability check and the reservation increment act
	// as one unit.
	GetForUpdate(ctx context.Context, id int64) (*products.Product, error)

	// Reserve increments items_reserved and records the reservation rows.
	Reserve(ctx context.Context, orderID int64, lines []orders.OrderLine) error

	// HasReservation reports whether stock was already reserved for the order,
	// which is how redelivered order-created messages are detected.
	HasReservation(ctx context.Context, orderID int64) (bool, error)
}
