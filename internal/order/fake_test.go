package order

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"dishdash-be/internal/account"
	"dishdash-be/internal/apperr"
	"dishdash-be/internal/catalog"
)

// fakeStore is an in-memory Repository and CatalogReader. With failEvery
// set, every n-th CreateOrder fails before anything is written.
type fakeStore struct {
	mu        sync.Mutex
	seq       int
	creates   int
	failEvery int
	orders    map[string]Order
	items     map[string]catalog.Item
	owners    map[string]account.Summary
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders: map[string]Order{},
		items:  map[string]catalog.Item{},
		owners: map[string]account.Summary{},
	}
}

func (f *fakeStore) addItem(it catalog.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[it.ID] = it
}

func (f *fakeStore) addOwner(s account.Summary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owners[s.ID] = s
}

func (f *fakeStore) enrich(o Order) Order {
	out := o
	out.Items = make([]LineItem, len(o.Items))
	for i, l := range o.Items {
		if it, ok := f.items[l.CatalogItemID]; ok {
			l.Item = it.Summary()
		}
		out.Items[i] = l
	}
	if owner, ok := f.owners[o.AccountID]; ok {
		owner := owner
		out.Customer = &owner
	}
	return out
}

func (f *fakeStore) CreateOrder(_ context.Context, o Order) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.creates++
	if f.failEvery > 0 && f.creates%f.failEvery == 0 {
		return nil, apperr.Unavailable(context.DeadlineExceeded, "storage timeout")
	}
	if o.IdempotencyKey != "" {
		for _, existing := range f.orders {
			if existing.AccountID == o.AccountID && existing.IdempotencyKey == o.IdempotencyKey {
				return nil, apperr.Conflict("duplicate idempotency key")
			}
		}
	}

	f.seq++
	o.ID = strconv.Itoa(f.seq)
	now := time.Date(2024, 1, 1, 0, 0, f.seq, 0, time.UTC)
	o.CreatedAt, o.UpdatedAt = now, now
	items := make([]LineItem, len(o.Items))
	for i, l := range o.Items {
		l.ID = o.ID + "-" + strconv.Itoa(i+1)
		l.Item = nil
		items[i] = l
	}
	o.Items = items
	f.orders[o.ID] = o

	out := f.enrich(o)
	return &out, nil
}

func (f *fakeStore) FindOrderByID(_ context.Context, id string) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, nil
	}
	out := f.enrich(o)
	return &out, nil
}

func (f *fakeStore) FindOrderByIdempotencyKey(_ context.Context, accountID, key string) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.AccountID == accountID && o.IdempotencyKey == key {
			out := f.enrich(o)
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) list(match func(Order) bool) []Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []Order{}
	for _, o := range f.orders {
		if match(o) {
			out = append(out, f.enrich(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.Atoi(out[i].ID)
		b, _ := strconv.Atoi(out[j].ID)
		return a > b
	})
	return out
}

func (f *fakeStore) ListOrdersByAccount(_ context.Context, accountID string) ([]Order, error) {
	return f.list(func(o Order) bool { return o.AccountID == accountID }), nil
}

func (f *fakeStore) ListAllOrders(_ context.Context) ([]Order, error) {
	return f.list(func(Order) bool { return true }), nil
}

func (f *fakeStore) SetOrderStatus(_ context.Context, id string, from, to Status) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	if o.Status != from {
		return nil, apperr.Conflict("order status changed")
	}
	o.Status = to
	f.orders[id] = o
	out := f.enrich(o)
	return &out, nil
}

func (f *fakeStore) OrderStatistics(_ context.Context) (*Statistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := NewStatistics()
	for _, o := range f.orders {
		st.Add(o.Status, o.TotalPrice)
	}
	return st, nil
}

func (f *fakeStore) FindCatalogItemByID(_ context.Context, id string) (*catalog.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

type recordingMetrics struct {
	mu          sync.Mutex
	created     map[string]int
	transitions []string
}

func (m *recordingMetrics) OrderCreated(mode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.created == nil {
		m.created = map[string]int{}
	}
	m.created[mode]++
}

func (m *recordingMetrics) StatusChanged(from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, from+"->"+to)
}
