package orderservice

import (
	"context"
	"sync"

	"git.platform.alem.school/amibragim/order-fulfillment/internal/domain/orders"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/ports"
)

// fakeUnitOfWork serializes "transactions" with a mutex, mirroring the
// isolation the Postgres unit of work provides.
type fakeUnitOfWork struct {
	mu sync.Mutex
}

func (uow *fakeUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	uow.mu.Lock()
	defer uow.mu.Unlock()
	return fn(ctx)
}

// fakeOrderRepo keeps orders in memory.
type fakeOrderRepo struct {
	mu     sync.Mutex
	nextID int64
	orders map[int64]*orders.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[int64]*orders.Order)}
}

func (r *fakeOrderRepo) Add(ctx context.Context, o *orders.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	o.ID = r.nextID
	for i := range o.Lines {
		o.Lines[i].OrderID = o.ID
	}
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) Get(ctx context.Context, id int64) (*orders.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) GetAll(ctx context.Context) ([]orders.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []orders.Order
	for _, o := range r.orders {
		all = append(all, *o)
	}
	return all, nil
}

func (r *fakeOrderRepo) MarkCompleted(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != orders.StatusTentative {
		return false, nil
	}
	o.Status = orders.StatusCompleted
	return true, nil
}

func (r *fakeOrderRepo) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.orders, id)
	return nil
}

// fakePublisher records published messages and can forward them to a hook,
// which stands in for the broker + inventory side of the saga.
type fakePublisher struct {
	mu        sync.Mutex
	published []publishedMessage
	hook      func(routingKey string, body []byte)
	err       error
}

type publishedMessage struct {
	routingKey string
	body       []byte
}

func (p *fakePublisher) Publish(routingKey string, body []byte) error {
	p.mu.Lock()
	p.published = append(p.published, publishedMessage{routingKey, body})
	hook := p.hook
	err := p.err
	p.mu.Unlock()

	if err != nil {
		return err
	}
	if hook != nil {
		go hook(routingKey, body)
	}
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}
