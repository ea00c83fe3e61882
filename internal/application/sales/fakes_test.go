package sales

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/audit"
	"github.com/shopcore/backend/internal/domain/catalog"
	"github.com/shopcore/backend/internal/domain/sales"
	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory backing store shared by the fake repositories.
// Execute on memScope serializes callers and restores a snapshot on error,
// which gives the same visible behaviour as a database transaction.
type memStore struct {
	mu       sync.Mutex
	orders   map[uuid.UUID]sales.Order
	products map[uuid.UUID]catalog.Product

	lockMu  sync.Mutex
	lockLog []string
}

func newMemStore() *memStore {
	return &memStore{
		orders:   make(map[uuid.UUID]sales.Order),
		products: make(map[uuid.UUID]catalog.Product),
	}
}

func copyOrder(o sales.Order) sales.Order {
	items := make([]sales.LineItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

func (s *memStore) putOrder(o *sales.Order) {
	o.ClearDomainEvents()
	s.orders[o.ID] = copyOrder(*o)
}

func (s *memStore) putProduct(p *catalog.Product) {
	p.ClearDomainEvents()
	s.products[p.ID] = *p
}

func (s *memStore) order(id uuid.UUID) sales.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyOrder(s.orders[id])
}

func (s *memStore) product(id uuid.UUID) catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id]
}

func (s *memStore) recordLock(kind string, id uuid.UUID) {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	s.lockLog = append(s.lockLog, kind+":"+id.String())
}

func (s *memStore) locks() []string {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	out := make([]string, len(s.lockLog))
	copy(out, s.lockLog)
	return out
}

// memOrderRepo and memProductRepo assume the caller holds memStore.mu
type memOrderRepo struct{ store *memStore }

func (r *memOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*sales.Order, error) {
	o, ok := r.store.orders[id]
	if !ok {
		return nil, shared.NewNotFoundError("Order not found")
	}
	out := copyOrder(o)
	return &out, nil
}

func (r *memOrderRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*sales.Order, error) {
	r.store.recordLock("order", id)
	return r.FindByID(ctx, id)
}

func (r *memOrderRepo) FindAll(_ context.Context, filter shared.Filter) ([]sales.Order, error) {
	out := make([]sales.Order, 0)
	for _, o := range r.store.orders {
		if st, ok := filter.Filters["status"]; ok && o.Status != st {
			continue
		}
		out = append(out, copyOrder(o))
	}
	return out, nil
}

func (r *memOrderRepo) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	all, _ := r.FindAll(ctx, filter)
	return int64(len(all)), nil
}

func (r *memOrderRepo) Save(_ context.Context, order *sales.Order) error {
	stored := copyOrder(*order)
	stored.ClearDomainEvents()
	r.store.orders[order.ID] = stored
	return nil
}

type memProductRepo struct{ store *memStore }

func (r *memProductRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	p, ok := r.store.products[id]
	if !ok {
		return nil, shared.NewNotFoundError("Product not found")
	}
	return &p, nil
}

func (r *memProductRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	r.store.recordLock("product", id)
	return r.FindByID(ctx, id)
}

func (r *memProductRepo) FindBySKU(_ context.Context, sku string) (*catalog.Product, error) {
	for _, p := range r.store.products {
		if p.SKU == sku {
			return &p, nil
		}
	}
	return nil, shared.NewNotFoundError("Product not found")
}

func (r *memProductRepo) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	_, err := r.FindBySKU(ctx, sku)
	return err == nil, nil
}

func (r *memProductRepo) FindAll(_ context.Context, _ shared.Filter) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(r.store.products))
	for _, p := range r.store.products {
		out = append(out, p)
	}
	return out, nil
}

func (r *memProductRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	return int64(len(r.store.products)), nil
}

func (r *memProductRepo) Save(_ context.Context, product *catalog.Product) error {
	stored := *product
	stored.ClearDomainEvents()
	r.store.products[product.ID] = stored
	return nil
}

// memScope implements TransactionScope on top of memStore
type memScope struct {
	store *memStore
}

func (s *memScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	orders := make(map[uuid.UUID]sales.Order, len(s.store.orders))
	for k, v := range s.store.orders {
		orders[k] = copyOrder(v)
	}
	products := make(map[uuid.UUID]catalog.Product, len(s.store.products))
	for k, v := range s.store.products {
		products[k] = v
	}

	if err := fn(memRepos{store: s.store}); err != nil {
		s.store.orders = orders
		s.store.products = products
		return err
	}
	return nil
}

type memRepos struct{ store *memStore }

func (r memRepos) OrderRepo() sales.OrderRepository       { return &memOrderRepo{store: r.store} }
func (r memRepos) ProductRepo() catalog.ProductRepository { return &memProductRepo{store: r.store} }

// lockedOrderRepo guards memOrderRepo for calls made outside a scope
type lockedOrderRepo struct{ store *memStore }

func (r *lockedOrderRepo) inner() *memOrderRepo { return &memOrderRepo{store: r.store} }

func (r *lockedOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*sales.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.inner().FindByID(ctx, id)
}

func (r *lockedOrderRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*sales.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *lockedOrderRepo) FindAll(ctx context.Context, filter shared.Filter) ([]sales.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.inner().FindAll(ctx, filter)
}

func (r *lockedOrderRepo) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.inner().Count(ctx, filter)
}

func (r *lockedOrderRepo) Save(ctx context.Context, order *sales.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.inner().Save(ctx, order)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type recordingAudit struct {
	mu      sync.Mutex
	records []*audit.Record
}

func (a *recordingAudit) Record(_ context.Context, record *audit.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, record)
}

type recordingMetrics struct {
	mu       sync.Mutex
	outcomes []string
	reserved int
}

func (m *recordingMetrics) RecordConfirmation(_ context.Context, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *recordingMetrics) RecordStockReserved(_ context.Context, units int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reserved += units
}

func newTestProduct(sku string, price string, stock int) *catalog.Product {
	p, err := catalog.NewProduct(catalog.NewProductInput{
		SKU:   sku,
		Name:  "Product " + sku,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	})
	if err != nil {
		panic(err)
	}
	return p
}

// newTestOrder builds a CREATED order holding the given quantities
func newTestOrder(lines map[*catalog.Product]int) *sales.Order {
	o, err := sales.NewOrder(uuid.New())
	if err != nil {
		panic(err)
	}
	for p, qty := range lines {
		if _, err := o.AddItem(p.ID, qty, p.Price); err != nil {
			panic(err)
		}
	}
	return o
}
