package inventoryservice

import (
	"context"
	"errors"
	"strings"

	"git.platform.alem.school/amibragim/order-fulfillment/internal/domain/products"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/ports"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/shared/logger"
)

// Service implements ports.InventoryService: the product CRUD surface.
// Reservation counters are owned by the reservation handler; the CRUD surface
// still validates the invariant so manual edits cannot break it.
type Service struct {
	uow    ports.UnitOfWork
	repo   ports.ProductRepository
	logger *logger.Logger
}

// Ensure Service implements the interface at compile time.
var _ ports.InventoryService = (*Service)(nil)

// New creates a new inventory Service with the required dependencies.
func New(uow ports.UnitOfWork, repo ports.ProductRepository, logger *logger.Logger) *Service {
	return &Service{uow: uow, repo: repo, logger: logger}
}

func validateProduct(p *products.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return errors.New("product name is required")
	}
	if p.ItemsInStock < 0 {
		return errors.New("items_in_stock must be >= 0")
	}
	if p.ItemsReserved < 0 {
		return errors.New("items_reserved must be >= 0")
	}
	if p.ItemsReserved > p.ItemsInStock {
		return errors.New("items_reserved must not exceed items_in_stock")
	}
	return nil
}

// ListProducts fetches every product.
func (service *Service) ListProducts(ctx context.Context) ([]products.Product, error) {
	var all []products.Product
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		all, err = service.repo.GetAll(txCtx)
		return err
	})
	return all, err
}

// GetProduct fetches one product by id.
func (service *Service) GetProduct(ctx context.Context, id int64) (*products.Product, error) {
	var product *products.Product
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		product, err = service.repo.Get(txCtx, id)
		return err
	})
	return product, err
}

// CreateProduct validates and inserts a product, assigning its id.
func (service *Service) CreateProduct(ctx context.Context, p *products.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return service.repo.Add(txCtx, p)
	})
	if err != nil {
		service.logger.Error(ctx, "db_transaction_failed", "failed to create product", err)
	}
	return err
}

// UpdateProduct validates and saves a product.
func (service *Service) UpdateProduct(ctx context.Context, p *products.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return service.repo.Edit(txCtx, p)
	})
	if err != nil && !errors.Is(err, ports.ErrNotFound) {
		service.logger.Error(ctx, "db_transaction_failed", "failed to update product", err)
	}
	return err
}

// DeleteProduct removes a product by id.
func (service *Service) DeleteProduct(ctx context.Context, id int64) error {
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return service.repo.Remove(txCtx, id)
	})
	if err != nil {
		service.logger.Error(ctx, "db_transaction_failed", "failed to delete product", err)
	}
	return err
}
