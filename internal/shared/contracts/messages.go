package contracts

// Routing keys on the "order_events" topic exchange. One saga produces exactly
// one OrderCreated and one terminal accepted/rejected reply.
const (
	RoutingKeyOrderCreated  = "order.created"
	RoutingKeyOrderAccepted = "order.accepted"
	RoutingKeyOrderRejected = "order.rejected"
)

// OrderLineMessage is the wire-format for a single line in an order message.
type OrderLineMessage struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// OrderCreatedMessage is published by the order service after the tentative
// order is committed.
type OrderCreatedMessage struct {
	CustomerID *int64             `json:"customer_id"` // null when the order has no customer reference
	OrderID    int64              `json:"order_id"`
	OrderLines []OrderLineMessage `json:"order_lines"`
}

// OrderAcceptedMessage is published by the inventory service once every line
// of the order has been reserved.
type OrderAcceptedMessage struct {
	OrderID int64 `json:"order_id"`
}

// OrderRejectedMessage is published by the inventory service when the order
// cannot be satisfied in full. No stock is mutated in that case.
type OrderRejectedMessage struct {
	OrderID int64 `json:"order_id"`
}
