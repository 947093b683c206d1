package inventoryservice

import (
	"context"
	"sync"

	"git.platform.alem.school/amibragim/order-fulfillment/internal/domain/orders"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/domain/products"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/ports"
)

// fakeUnitOfWork serializes "transactions" with a mutex. Combined with the
// in-memory repo this gives the same isolation the Postgres unit of work
// provides with row locks: no two reservation checks interleave.
type fakeUnitOfWork struct {
	mu sync.Mutex
}

func (uow *fakeUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	uow.mu.Lock()
	defer uow.mu.Unlock()
	return fn(ctx)
}

// fakeProductRepo keeps products and reservations in memory.
type fakeProductRepo struct {
	mu           sync.Mutex
	nextID       int64
	products     map[int64]*products.Product
	reservations map[int64][]products.Reservation
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{
		products:     make(map[int64]*products.Product),
		reservations: make(map[int64][]products.Reservation),
	}
}

func (r *fakeProductRepo) seed(id int64, inStock, reserved int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[id] = &products.Product{ID: id, Name: "product", ItemsInStock: inStock, ItemsReserved: reserved}
	if id > r.nextID {
		r.nextID = id
	}
}

func (r *fakeProductRepo) Get(ctx context.Context, id int64) (*products.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProductRepo) GetForUpdate(ctx context.Context, id int64) (*products.Product, error) {
	return r.Get(ctx, id)
}

func (r *fakeProductRepo) GetAll(ctx context.Context) ([]products.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []products.Product
	for _, p := range r.products {
		all = append(all, *p)
	}
	return all, nil
}

func (r *fakeProductRepo) Add(ctx context.Context, p *products.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *fakeProductRepo) Edit(ctx context.Context, p *products.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return ports.ErrNotFound
	}
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *fakeProductRepo) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.products, id)
	return nil
}

func (r *fakeProductRepo) Reserve(ctx context.Context, orderID int64, lines []orders.OrderLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, line := range lines {
		p, ok := r.products[line.ProductID]
		if !ok {
			return ports.ErrNotFound
		}
		p.ItemsReserved += int64(line.Quantity)
		r.reservations[orderID] = append(r.reservations[orderID], products.Reservation{
			OrderID:   orderID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}
	return nil
}

func (r *fakeProductRepo) HasReservation(ctx context.Context, orderID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reservations[orderID]) > 0, nil
}

func (r *fakeProductRepo) reserved(id int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[id]; ok {
		return p.ItemsReserved
	}
	return 0
}

// fakePublisher records published messages.
type fakePublisher struct {
	mu        sync.Mutex
	published []publishedMessage
	err       error
}

type publishedMessage struct {
	routingKey string
	body       []byte
}

func (p *fakePublisher) Publish(routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, publishedMessage{routingKey, body})
	return nil
}

func (p *fakePublisher) byKey(routingKey string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, m := range p.published {
		if m.routingKey == routingKey {
			n++
		}
	}
	return n
}
