package ports

import (
	"context"

	"git.platform.alem.school/amibragim/order-fulfillment/internal/domain/orders"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/domain/products"
)

// Publisher sends a message body to the broker under a routing key.
type Publisher interface {
	Publish(routingKey string, body []byte) error
}

// OrderService handles POST /orders flow: validate → insert tentative → publish → await outcome.
type OrderService interface {
	PlaceOrder(ctx context.Context, cmd CreateOrderCommand) (*orders.Order, error)
	GetOrder(ctx context.Context, id int64) (*orders.Order, error)
	ListOrders(ctx context.Context) ([]orders.Order, error)
}

// CreateOrderCommand is the application-level input for placing an order.
type CreateOrderCommand struct {
	CustomerID *int64
	Lines      []LineInput
}

// LineInput is a single requested product position.
type LineInput struct {
	ProductID int64
	Quantity  int
}

// InventoryService powers the product CRUD surface of the inventory service.
type InventoryService interface {
	ListProducts(ctx context.Context) ([]products.Product, error)
	GetProduct(ctx context.Context, id int64) (*products.Product, error)
	CreateProduct(ctx context.Context, p *products.Product) error
	UpdateProduct(ctx context.Context, p *products.Product) error
	DeleteProduct(ctx context.Context, id int64) error
}
