package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/shopspring/decimal"

	"cedra_orders/internal/models"
)

const orderColumns = `order_id, customer_id, customer_email, items, total, status, checkout_session, created_at, updated_at, paid_at`

// ScyllaStore persiste les commandes dans le keyspace commandes.
// Tables: orders, orders_by_customer, orders_by_session (voir scripts/scylladb_orders.cql)
type ScyllaStore struct {
	session *gocql.Session
	now     func() time.Time
}

func NewScyllaStore(session *gocql.Session) *ScyllaStore {
	return &ScyllaStore{session: session, now: time.Now}
}

func (s *ScyllaStore) Find(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	ids, err := s.candidateIDs(ctx, f)
	if err != nil {
		return nil, err
	}

	out := make([]models.Order, 0, len(ids))
	for _, id := range ids {
		o, err := s.getByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if matches(*o, f) {
			out = append(out, *o)
		}
	}
	return applyWindow(out, f), nil
}

// candidateIDs choisit la table d'index selon le filtre (jamais de scan complet)
func (s *ScyllaStore) candidateIDs(ctx context.Context, f OrderFilter) ([]gocql.UUID, error) {
	switch {
	case f.ID != "":
		id, err := gocql.ParseUUID(f.ID)
		if err != nil {
			// Un identifiant invalide ne correspond à aucune commande
			return nil, nil
		}
		return []gocql.UUID{id}, nil

	case f.CheckoutSession != "":
		var id gocql.UUID
		err := s.session.Query(`SELECT order_id FROM orders_by_session WHERE checkout_session = ?`, f.CheckoutSession).
			WithContext(ctx).Scan(&id)
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("lecture orders_by_session: %w", err)
		}
		return []gocql.UUID{id}, nil

	case f.Customer != "":
		iter := s.session.Query(`SELECT order_id FROM orders_by_customer WHERE customer_id = ?`, f.Customer).
			WithContext(ctx).Iter()
		var (
			ids []gocql.UUID
			id  gocql.UUID
		)
		for iter.Scan(&id) {
			ids = append(ids, id)
		}
		if err := iter.Close(); err != nil {
			return nil, fmt.Errorf("lecture orders_by_customer: %w", err)
		}
		return ids, nil

	default:
		return nil, ErrFilterTooWide
	}
}

func (s *ScyllaStore) FindOne(ctx context.Context, f OrderFilter) (*models.Order, error) {
	f.Limit, f.Start = 1, 0
	orders, err := s.Find(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrNotFound
	}
	return &orders[0], nil
}

func (s *ScyllaStore) Create(ctx context.Context, order *models.Order) error {
	id := gocql.TimeUUID()
	now := s.now()

	if order.CheckoutSession != "" {
		if err := s.claimSession(ctx, order.CheckoutSession, id); err != nil {
			return err
		}
	}

	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("sérialisation lignes de commande: %w", err)
	}

	batch := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, order.Customer, order.CustomerEmail, string(items), order.Total.StringFixed(2),
		string(order.Status), order.CheckoutSession, now, now, order.PaidAt)
	batch.Query(`INSERT INTO orders_by_customer (customer_id, created_at, order_id) VALUES (?, ?, ?)`,
		order.Customer, now, id)

	if err := s.session.ExecuteBatch(batch); err != nil {
		return fmt.Errorf("insertion commande: %w", err)
	}

	order.ID = id.String()
	order.CreatedAt = now
	order.UpdatedAt = now
	return nil
}

func (s *ScyllaStore) Update(ctx context.Context, f OrderFilter, u OrderUpdate) (*models.Order, error) {
	order, err := s.FindOne(ctx, f)
	if err != nil {
		return nil, err
	}
	id, err := gocql.ParseUUID(order.ID)
	if err != nil {
		return nil, fmt.Errorf("identifiant commande corrompu %q: %w", order.ID, err)
	}

	if u.CheckoutSession != nil && *u.CheckoutSession != "" && *u.CheckoutSession != order.CheckoutSession {
		if err := s.claimSession(ctx, *u.CheckoutSession, id); err != nil {
			return nil, err
		}
	}

	applyUpdate(order, u, s.now())

	const update = `UPDATE orders SET status = ?, checkout_session = ?, paid_at = ?, updated_at = ? WHERE order_id = ?`
	args := []interface{}{string(order.Status), order.CheckoutSession, order.PaidAt, order.UpdatedAt, id}

	if f.Status == "" {
		if err := s.session.Query(update, args...).WithContext(ctx).Exec(); err != nil {
			return nil, fmt.Errorf("mise à jour commande %s: %w", order.ID, err)
		}
		return order, nil
	}

	// Statut attendu: LWT, la commande ne change que si son statut n'a pas bougé depuis la lecture
	current := map[string]interface{}{}
	applied, err := s.session.Query(update+` IF status = ?`, append(args, string(f.Status))...).
		WithContext(ctx).MapScanCAS(current)
	if err != nil {
		return nil, fmt.Errorf("mise à jour conditionnelle commande %s: %w", order.ID, err)
	}
	if !applied {
		return nil, ErrNotFound
	}
	return order, nil
}

// Search n'est pas supporté nativement par Scylla: voir SearchableStore
func (s *ScyllaStore) Search(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	if f.Customer == "" {
		return nil, ErrCustomerRequired
	}
	window := f
	window.Limit, window.Start = 0, 0
	all, err := s.Find(ctx, window)
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

// claimSession réserve une session pour une commande (LWT: une session → une commande)
func (s *ScyllaStore) claimSession(ctx context.Context, sessionID string, orderID gocql.UUID) error {
	existing := map[string]interface{}{}
	applied, err := s.session.Query(`INSERT INTO orders_by_session (checkout_session, order_id) VALUES (?, ?) IF NOT EXISTS`,
		sessionID, orderID).WithContext(ctx).MapScanCAS(existing)
	if err != nil {
		return fmt.Errorf("réservation session %s: %w", sessionID, err)
	}
	if applied {
		return nil
	}
	if owner, ok := existing["order_id"].(gocql.UUID); ok && owner == orderID {
		return nil
	}
	return ErrSessionTaken
}

func (s *ScyllaStore) getByID(ctx context.Context, id gocql.UUID) (*models.Order, error) {
	var row orderRow
	err := s.session.Query(`SELECT `+orderColumns+` FROM orders WHERE order_id = ?`, id).
		WithContext(ctx).
		Scan(&row.ID, &row.Customer, &row.CustomerEmail, &row.Items, &row.Total,
			&row.Status, &row.CheckoutSession, &row.CreatedAt, &row.UpdatedAt, &row.PaidAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lecture commande %s: %w", id, err)
	}
	return row.toOrder()
}

type orderRow struct {
	ID              gocql.UUID
	Customer        string
	CustomerEmail   string
	Items           string
	Total           string
	Status          string
	CheckoutSession string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	PaidAt          time.Time
}

func (r orderRow) toOrder() (*models.Order, error) {
	var items []models.OrderItem
	if r.Items != "" {
		if err := json.Unmarshal([]byte(r.Items), &items); err != nil {
			return nil, fmt.Errorf("décodage lignes commande %s: %w", r.ID, err)
		}
	}
	total, err := decimal.NewFromString(r.Total)
	if err != nil {
		return nil, fmt.Errorf("décodage total commande %s: %w", r.ID, err)
	}

	order := &models.Order{
		ID:              r.ID.String(),
		Customer:        r.Customer,
		CustomerEmail:   r.CustomerEmail,
		Items:           items,
		Total:           total,
		Status:          models.OrderStatus(r.Status),
		CheckoutSession: r.CheckoutSession,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if !r.PaidAt.IsZero() {
		paidAt := r.PaidAt
		order.PaidAt = &paidAt
	}
	return order, nil
}
