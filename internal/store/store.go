package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"cedra_orders/internal/models"
)

var (
	ErrNotFound         = errors.New("commande introuvable")
	ErrSessionTaken     = errors.New("session de paiement déjà liée à une autre commande")
	ErrCustomerRequired = errors.New("filtre client obligatoire")
	ErrFilterTooWide    = errors.New("filtre trop large: id, client ou session requis")
)

// OrderFilter sélectionne des commandes. Les champs vides ne filtrent pas.
type OrderFilter struct {
	ID              string
	Customer        string
	CheckoutSession string
	Status          models.OrderStatus
	Query           string // recherche plein texte (Search uniquement)
	Sort            string // "created_at:DESC", "total:ASC", ...
	Limit           int
	Start           int
}

type OrderUpdate struct {
	Status          *models.OrderStatus
	CheckoutSession *string
	PaidAt          *time.Time
}

type OrderStore interface {
	Find(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	FindOne(ctx context.Context, filter OrderFilter) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	// Update modifie la commande du filtre. Avec filter.Status, l'écriture est conditionnelle
	// au statut courant (ErrNotFound s'il a changé).
	Update(ctx context.Context, filter OrderFilter, update OrderUpdate) (*models.Order, error)
	Search(ctx context.Context, filter OrderFilter) ([]models.Order, error)
}

// matches applique les champs de filtre structurés (hors Query)
func matches(o models.Order, f OrderFilter) bool {
	if f.ID != "" && o.ID != f.ID {
		return false
	}
	if f.Customer != "" && o.Customer != f.Customer {
		return false
	}
	if f.CheckoutSession != "" && o.CheckoutSession != f.CheckoutSession {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	return true
}

// matchesQuery fait une recherche texte simple (repli sans Elasticsearch)
func matchesQuery(o models.Order, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	fields := []string{o.ID, string(o.Status), o.CheckoutSession, o.Total.StringFixed(2)}
	for _, item := range o.Items {
		fields = append(fields, item.Name, item.ProductID)
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// applyWindow trie puis découpe selon Start/Limit
func applyWindow(orders []models.Order, f OrderFilter) []models.Order {
	sortOrders(orders, f.Sort)

	if f.Start > 0 {
		if f.Start >= len(orders) {
			return []models.Order{}
		}
		orders = orders[f.Start:]
	}
	if f.Limit > 0 && f.Limit < len(orders) {
		orders = orders[:f.Limit]
	}
	return orders
}

func sortOrders(orders []models.Order, sortBy string) {
	field, dir, _ := strings.Cut(sortBy, ":")
	asc := strings.EqualFold(dir, "ASC")

	var less func(a, b models.Order) bool
	switch field {
	case "total":
		less = func(a, b models.Order) bool { return a.Total.LessThan(b.Total) }
	case "updated_at":
		less = func(a, b models.Order) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	default:
		less = func(a, b models.Order) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}

	sort.SliceStable(orders, func(i, j int) bool {
		if asc {
			return less(orders[i], orders[j])
		}
		return less(orders[j], orders[i])
	})
}

func applyUpdate(o *models.Order, u OrderUpdate, now time.Time) {
	if u.Status != nil {
		o.Status = *u.Status
	}
	if u.CheckoutSession != nil {
		o.CheckoutSession = *u.CheckoutSession
	}
	if u.PaidAt != nil {
		paidAt := *u.PaidAt
		o.PaidAt = &paidAt
	}
	o.UpdatedAt = now
}
