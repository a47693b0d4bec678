package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"cedra_orders/internal/models"
)

// MemoryStore garde les commandes en mémoire (tests et APP_ENV=memory)
type MemoryStore struct {
	mu        sync.RWMutex
	orders    map[string]models.Order
	bySession map[string]string
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:    make(map[string]models.Order),
		bySession: make(map[string]string),
		now:       time.Now,
	}
}

func (m *MemoryStore) Find(_ context.Context, f OrderFilter) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Order, 0)
	for _, o := range m.orders {
		if matches(o, f) {
			out = append(out, cloneOrder(o))
		}
	}
	return applyWindow(out, f), nil
}

func (m *MemoryStore) FindOne(ctx context.Context, f OrderFilter) (*models.Order, error) {
	f.Limit, f.Start = 1, 0
	orders, err := m.Find(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrNotFound
	}
	return &orders[0], nil
}

func (m *MemoryStore) Create(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if order.CheckoutSession != "" {
		if _, taken := m.bySession[order.CheckoutSession]; taken {
			return ErrSessionTaken
		}
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	now := m.now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	m.orders[order.ID] = cloneOrder(*order)
	if order.CheckoutSession != "" {
		m.bySession[order.CheckoutSession] = order.ID
	}
	return nil
}

func (m *MemoryStore) Update(_ context.Context, f OrderFilter, u OrderUpdate) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var target *models.Order
	for _, o := range m.orders {
		if matches(o, f) {
			o := o
			target = &o
			break
		}
	}
	if target == nil {
		return nil, ErrNotFound
	}

	if u.CheckoutSession != nil && *u.CheckoutSession != "" {
		if owner, taken := m.bySession[*u.CheckoutSession]; taken && owner != target.ID {
			return nil, ErrSessionTaken
		}
	}

	previousSession := target.CheckoutSession
	applyUpdate(target, u, m.now())
	if previousSession != target.CheckoutSession {
		delete(m.bySession, previousSession)
		if target.CheckoutSession != "" {
			m.bySession[target.CheckoutSession] = target.ID
		}
	}
	m.orders[target.ID] = cloneOrder(*target)

	out := cloneOrder(*target)
	return &out, nil
}

func (m *MemoryStore) Search(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	if f.Customer == "" {
		return nil, ErrCustomerRequired
	}
	window := f
	window.Limit, window.Start = 0, 0
	all, err := m.Find(ctx, window)
	if err != nil {
		return nil, err
	}

	out := make([]models.Order, 0, len(all))
	for _, o := range all {
		if matchesQuery(o, f.Query) {
			out = append(out, o)
		}
	}
	return applyWindow(out, f), nil
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	if o.PaidAt != nil {
		paidAt := *o.PaidAt
		o.PaidAt = &paidAt
	}
	return o
}
