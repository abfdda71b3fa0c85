package httpx

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-shop-api/internal/orders"
	"github.com/segmentio/kafka-go"
)

// memStore keeps products and orders in maps and mirrors the repo's
// partial-commit order creation.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	products map[int64]orders.Product
	orders   map[int64]orders.Order
}

func newMemStore() *memStore {
	return &memStore{products: map[int64]orders.Product{}, orders: map[int64]orders.Order{}}
}

func (s *memStore) id() int64 { s.nextID++; return s.nextID }

func (s *memStore) CreateProduct(_ context.Context, in orders.ProductInput) (orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := orders.Product{ID: s.id(), Name: in.Name, Description: in.Description, Price: in.Price, Stock: in.Stock}
	s.products[p.ID] = p
	return p, nil
}

func (s *memStore) ListProducts(_ context.Context, page orders.Page) ([]orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []orders.Product{}
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, page), nil
}

func (s *memStore) GetProduct(_ context.Context, id int64) (orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return orders.Product{}, orders.ErrNotFound
	}
	return p, nil
}

func (s *memStore) UpdateProduct(_ context.Context, id int64, patch orders.ProductPatch) (orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return orders.Product{}, orders.ErrNotFound
	}
	p = patch.Apply(p)
	s.products[id] = p
	return p, nil
}

func (s *memStore) DeleteProduct(_ context.Context, id int64) (orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return orders.Product{}, orders.ErrNotFound
	}
	delete(s.products, id)
	return p, nil
}

func (s *memStore) CreateOrder(_ context.Context, items []orders.ItemInput) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := orders.Order{ID: s.id(), CreatedAt: time.Now().UTC(), Status: orders.StatusInProcess, Items: []orders.OrderItem{}}
	for _, it := range items {
		p, ok := s.products[it.ProductID]
		if !ok {
			return orders.Order{}, &orders.ProductNotFoundError{ProductID: it.ProductID}
		}
		if p.Stock < it.Quantity {
			return orders.Order{}, &orders.StockError{ProductID: p.ID, Requested: it.Quantity, Available: p.Stock}
		}
		p.Stock -= it.Quantity
		s.products[p.ID] = p
		o.Items = append(o.Items, orders.OrderItem{ID: s.id(), OrderID: o.ID, ProductID: p.ID, Quantity: it.Quantity})
	}
	s.orders[o.ID] = o
	return o, nil
}

func (s *memStore) ListOrders(_ context.Context, page orders.Page) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []orders.Order{}
	for _, o := range s.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, page), nil
}

func (s *memStore) GetOrder(_ context.Context, id int64) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return o, nil
}

func (s *memStore) UpdateOrderStatus(_ context.Context, id int64, status orders.Status) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	o.Status = status
	s.orders[id] = o
	return o, nil
}

func (s *memStore) DeleteOrder(_ context.Context, id int64) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	delete(s.orders, id)
	return o, nil
}

func window[T any](all []T, page orders.Page) []T {
	if page.Offset >= len(all) {
		return []T{}
	}
	end := page.Offset + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[page.Offset:end]
}

// hookStore runs afterGet once a product is read but before it is
// returned, so writes can land between the read and the caller.
type hookStore struct {
	*memStore
	afterGet func()
}

func (s *hookStore) GetProduct(ctx context.Context, id int64) (orders.Product, error) {
	p, err := s.memStore.GetProduct(ctx, id)
	if s.afterGet != nil {
		s.afterGet()
	}
	return p, err
}

// memUnitOfWork hands out the same store and counts open/release pairs.
type memUnitOfWork struct {
	store    Store
	mu       sync.Mutex
	open     int
	released int
}

func (u *memUnitOfWork) Open(context.Context) (Store, func(), error) {
	u.mu.Lock()
	u.open++
	u.mu.Unlock()
	return u.store, func() {
		u.mu.Lock()
		u.released++
		u.mu.Unlock()
	}, nil
}

type published struct {
	topic   string
	key     []byte
	value   []byte
	headers []kafka.Header
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (p *recordingPublisher) Publish(topic string, key, value []byte, headers ...kafka.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic: topic, key: key, value: value, headers: headers})
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.msgs))
	for i, m := range p.msgs {
		out[i] = m.topic
	}
	return out
}

// mapCache mirrors the generation guard of the Redis cache.
type mapCache struct {
	mu          sync.Mutex
	items       map[int64]orders.Product
	gens        map[int64]int64
	invalidated []int64
}

func newMapCache() *mapCache {
	return &mapCache{items: map[int64]orders.Product{}, gens: map[int64]int64{}}
}

func (c *mapCache) Generation(_ context.Context, id int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[id]
}

func (c *mapCache) Get(_ context.Context, id int64) (orders.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.items[id]
	return p, ok
}

func (c *mapCache) Set(_ context.Context, p orders.Product, gen int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[p.ID] != gen {
		return
	}
	c.items[p.ID] = p
}

func (c *mapCache) Invalidate(_ context.Context, ids ...int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.items, id)
		c.gens[id]++
		c.invalidated = append(c.invalidated, id)
	}
}
