package products

import "time"

// Product represents a stock item owned by the inventory service.
// ItemsReserved must never exceed ItemsInStock after a granted reservation.
type Product struct {
	ID            int64
	Name          string
	ItemsInStock  int64
	ItemsReserved int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Available returns the quantity that can still be promised to new orders.
func (product *Product) Available() int64 {
	return product.ItemsInStock - product.ItemsReserved
}

// CanSatisfy reports whether a single order line of the given quantity fits
// into the unreserved stock.
func (product *Product) CanSatisfy(quantity int) bool {
	return int64(quantity) <= product.Available()
}

// Reservation is a durable record of stock reserved for one order line.
// Its (OrderID, ProductID) pair is unique, which makes redelivered
// reservation requests detectable.
type Reservation struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	CreatedAt time.Time
}
