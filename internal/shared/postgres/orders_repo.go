package postgres

import (
	"context"
	"errors"

	"git.platform.alem.school/amibragim/order-fulfillment/internal/domain/orders"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/ports"
	"github.com/jackc/pgx/v5"
)

// OrdersRepo implements persistence for orders using pgx and SQL.
type OrdersRepo struct{}

// NewOrdersRepo constructs a new OrdersRepo.
func NewOrdersRepo() ports.OrderRepository {
	return &OrdersRepo{}
}

// Add inserts the order header and its lines and assigns the order's ID.
func (r *OrdersRepo) Add(ctx context.Context, order *orders.Order) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (customer_id, status)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`,
		order.CustomerID,
		order.Status,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return err
	}

	for i := range order.Lines {
		line := &order.Lines[i]
		err = tx.QueryRow(ctx, `
			INSERT INTO order_lines (order_id, product_id, quantity)
			VALUES ($1, $2, $3)
			RETURNING id`,
			order.ID,
			line.ProductID,
			line.Quantity,
		).Scan(&line.ID)
		if err != nil {
			return err
		}
		line.OrderID = order.ID
	}

	return nil
}

// Get retrieves an order with its lines. Returns ports.ErrNotFound when absent.
func (r *OrdersRepo) Get(ctx context.Context, id int64) (*orders.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var order orders.Order
	err = tx.QueryRow(ctx, `
		SELECT id, customer_id, status, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.CustomerID, &order.Status, &order.CreatedAt, &order.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	order.Lines, err = r.linesFor(ctx, tx, order.ID)
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// GetAll lists every order with its lines.
func (r *OrdersRepo) GetAll(ctx context.Context) ([]orders.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, customer_id, status, created_at, updated_at
		FROM orders
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []orders.Order
	for rows.Next() {
		var order orders.Order
		if err := rows.Scan(&order.ID, &order.CustomerID, &order.Status, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, err
		}
		all = append(all, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range all {
		all[i].Lines, err = r.linesFor(ctx, tx, all[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return all, nil
}

// MarkCompleted transitions tentative -> completed with a conditional UPDATE,
// so replays of the same accepted message change nothing.
func (r *OrdersRepo) MarkCompleted(ctx context.Context, id int64) (bool, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return false, err
	}

	var applied bool
	err = tx.QueryRow(ctx, `
		UPDATE orders
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
		RETURNING true
	`, orders.StatusCompleted, id, orders.StatusTentative).Scan(&applied)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return applied, nil
}

// Remove deletes the order and its lines. Deleting a missing order is a no-op.
func (r *OrdersRepo) Remove(ctx context.Context, id int64) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM order_lines WHERE order_id = $1`, id); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	return err
}

func (r *OrdersRepo) linesFor(ctx context.Context, tx pgx.Tx, orderID int64) ([]orders.OrderLine, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, product_id, quantity
		FROM order_lines
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []orders.OrderLine
	for rows.Next() {
		line := orders.OrderLine{OrderID: orderID}
		if err := rows.Scan(&line.ID, &line.ProductID, &line.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
