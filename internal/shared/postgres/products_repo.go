package postgres

import (
	"context"
	"errors"

	"git.platform.alem.school/amibragim/order-fulfillment/internal/domain/orders"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/domain/products"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/ports"
	"github.com/jackc/pgx/v5"
)

// ProductsRepo implements persistence for products and reservations using pgx and SQL.
type ProductsRepo struct{}

// NewProductsRepo constructs a new ProductsRepo.
func NewProductsRepo() ports.ProductRepository {
	return &ProductsRepo{}
}

const productColumns = `id, name, items_in_stock, items_reserved, created_at, updated_at`

func scanProduct(row pgx.Row) (*products.Product, error) {
	var p products.Product
	err := row.Scan(&p.ID, &p.Name, &p.ItemsInStock, &p.ItemsReserved, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Get retrieves a product by id. Returns ports.ErrNotFound when absent.
func (r *ProductsRepo) Get(ctx context.Context, id int64) (*products.Product, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return scanProduct(tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

// GetForUpdate locks the product row until the surrounding transaction ends.
// Callers must lock products in ascending id order to stay deadlock-free.
func (r *ProductsRepo) GetForUpdate(ctx context.Context, id int64) (*products.Product, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return scanProduct(tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
}

// GetAll lists every product.
func (r *ProductsRepo) GetAll(ctx context.Context) ([]products.Product, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []products.Product
	for rows.Next() {
		var p products.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.ItemsInStock, &p.ItemsReserved, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		all = append(all, p)
	}
	return all, rows.Err()
}

// Add inserts a product and assigns its ID.
func (r *ProductsRepo) Add(ctx context.Context, p *products.Product) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	return tx.QueryRow(ctx, `
		INSERT INTO products (name, items_in_stock, items_reserved)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		p.Name, p.ItemsInStock, p.ItemsReserved,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// Edit updates the mutable fields of a product.
func (r *ProductsRepo) Edit(ctx context.Context, p *products.Product) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE products
		SET name = $1, items_in_stock = $2, items_reserved = $3, updated_at = now()
		WHERE id = $4
	`, p.Name, p.ItemsInStock, p.ItemsReserved, p.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// Remove deletes a product. Deleting a missing product is a no-op.
func (r *ProductsRepo) Remove(ctx context.Context, id int64) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}

// Reserve increments items_reserved per line and records the reservation rows.
// The caller has already locked the product rows and verified availability; the
// CHECK constraint items_reserved <= items_in_stock backs the invariant in the
// database as well.
func (r *ProductsRepo) Reserve(ctx context.Context, orderID int64, lines []orders.OrderLine) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	for _, line := range lines {
		tag, err := tx.Exec(ctx, `
			UPDATE products
			SET items_reserved = items_reserved + $1, updated_at = now()
			WHERE id = $2
		`, line.Quantity, line.ProductID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ports.ErrNotFound
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO reservations (order_id, product_id, quantity)
			VALUES ($1, $2, $3)
		`, orderID, line.ProductID, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// HasReservation reports whether any stock was already reserved for the order.
func (r *ProductsRepo) HasReservation(ctx context.Context, orderID int64) (bool, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return false, err
	}

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM reservations WHERE order_id = $1)
	`, orderID).Scan(&exists)
	return exists, err
}
