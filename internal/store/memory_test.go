package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cedra_orders/internal/models"
)

func newOrder(customer, itemName string, total string) *models.Order {
	return &models.Order{
		Customer: customer,
		Items: []models.OrderItem{
			{ProductID: "p-" + itemName, Name: itemName, UnitPrice: decimal.RequireFromString(total), Quantity: 1},
		},
		Total:  decimal.RequireFromString(total),
		Status: models.OrderStatusUnpaid,
	}
}

func seededStore(t *testing.T) *MemoryStore {
	t.Helper()
	m := NewMemoryStore()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	m.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	ctx := context.Background()
	require.NoError(t, m.Create(ctx, newOrder("alice", "Mug", "9.99")))
	require.NoError(t, m.Create(ctx, newOrder("alice", "Teapot", "25.00")))
	require.NoError(t, m.Create(ctx, newOrder("bob", "Mug", "9.99")))
	return m
}

func TestMemoryStoreFindScopesByCustomer(t *testing.T) {
	m := seededStore(t)

	orders, err := m.Find(context.Background(), OrderFilter{Customer: "alice"})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	for _, o := range orders {
		assert.Equal(t, "alice", o.Customer)
	}
	// Tri par défaut: created_at décroissant
	assert.Equal(t, "Teapot", orders[0].Items[0].Name)
}

func TestMemoryStoreFindOneForeignOrderIsNotFound(t *testing.T) {
	m := seededStore(t)
	ctx := context.Background()

	bobs, err := m.Find(ctx, OrderFilter{Customer: "bob"})
	require.NoError(t, err)
	require.Len(t, bobs, 1)

	_, err = m.FindOne(ctx, OrderFilter{ID: bobs[0].ID, Customer: "alice"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreSortAndWindow(t *testing.T) {
	m := seededStore(t)

	orders, err := m.Find(context.Background(), OrderFilter{Customer: "alice", Sort: "total:ASC", Limit: 1})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "9.99", orders[0].Total.StringFixed(2))

	orders, err = m.Find(context.Background(), OrderFilter{Customer: "alice", Start: 5})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestMemoryStoreSessionIsUnique(t *testing.T) {
	m := seededStore(t)
	ctx := context.Background()

	alice, err := m.Find(ctx, OrderFilter{Customer: "alice"})
	require.NoError(t, err)

	session := "cs_test_123"
	_, err = m.Update(ctx, OrderFilter{ID: alice[0].ID}, OrderUpdate{CheckoutSession: &session})
	require.NoError(t, err)

	_, err = m.Update(ctx, OrderFilter{ID: alice[1].ID}, OrderUpdate{CheckoutSession: &session})
	assert.ErrorIs(t, err, ErrSessionTaken)

	// Réattacher la même session à la même commande est sans effet
	_, err = m.Update(ctx, OrderFilter{ID: alice[0].ID}, OrderUpdate{CheckoutSession: &session})
	assert.NoError(t, err)

	found, err := m.FindOne(ctx, OrderFilter{CheckoutSession: session})
	require.NoError(t, err)
	assert.Equal(t, alice[0].ID, found.ID)
}

func TestMemoryStoreUpdateReturnsCopy(t *testing.T) {
	m := seededStore(t)
	ctx := context.Background()

	alice, err := m.Find(ctx, OrderFilter{Customer: "alice"})
	require.NoError(t, err)

	paid := models.OrderStatusPaid
	now := time.Now()
	updated, err := m.Update(ctx, OrderFilter{ID: alice[0].ID}, OrderUpdate{Status: &paid, PaidAt: &now})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, updated.Status)

	updated.Items[0].Name = "mutated"
	again, err := m.FindOne(ctx, OrderFilter{ID: alice[0].ID})
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again.Items[0].Name)
	assert.Equal(t, models.OrderStatusPaid, again.Status)
	require.NotNil(t, again.PaidAt)
}

func TestMemoryStoreConditionalUpdate(t *testing.T) {
	m := seededStore(t)
	ctx := context.Background()

	bob, err := m.FindOne(ctx, OrderFilter{Customer: "bob"})
	require.NoError(t, err)

	paid := models.OrderStatusPaid
	first := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	unpaidOnly := OrderFilter{ID: bob.ID, Status: models.OrderStatusUnpaid}

	_, err = m.Update(ctx, unpaidOnly, OrderUpdate{Status: &paid, PaidAt: &first})
	require.NoError(t, err)

	later := first.Add(time.Hour)
	_, err = m.Update(ctx, unpaidOnly, OrderUpdate{Status: &paid, PaidAt: &later})
	assert.ErrorIs(t, err, ErrNotFound)

	current, err := m.FindOne(ctx, OrderFilter{ID: bob.ID})
	require.NoError(t, err)
	assert.Equal(t, first, *current.PaidAt)
}

func TestMemoryStoreSearch(t *testing.T) {
	m := seededStore(t)
	ctx := context.Background()

	orders, err := m.Search(ctx, OrderFilter{Customer: "alice", Query: "mug"})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "alice", orders[0].Customer)

	_, err = m.Search(ctx, OrderFilter{Query: "mug"})
	assert.ErrorIs(t, err, ErrCustomerRequired)
}
