package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusUnpaid OrderStatus = "unpaid"
	OrderStatusPaid   OrderStatus = "paid"
)

// OrderItem est une ligne de commande résolue contre le catalogue
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal = prix unitaire × quantité
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// UnitAmount retourne le prix unitaire en centimes (unité mineure Stripe)
func (i OrderItem) UnitAmount() int64 {
	return i.UnitPrice.Shift(2).Round(0).IntPart()
}

type Order struct {
	ID              string          `json:"id"`
	Customer        string          `json:"customer"`
	CustomerEmail   string          `json:"customer_email"`
	Items           []OrderItem     `json:"order_details"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	CheckoutSession string          `json:"checkout_session"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
}

// ComputeTotal calcule le total décimal d'une commande, arrondi au centime
func ComputeTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total.Round(2)
}

// AmountMinor calcule le montant envoyé au fournisseur de paiement, en centimes
func AmountMinor(items []OrderItem) int64 {
	var amount int64
	for _, item := range items {
		amount += item.UnitAmount() * int64(item.Quantity)
	}
	return amount
}

func (o *Order) IsPaid() bool {
	return o.Status == OrderStatusPaid
}

// MarkPaid fait passer la commande de unpaid à paid.
// Retourne false si la commande était déjà payée (aucun changement).
func (o *Order) MarkPaid(at time.Time) bool {
	if o.IsPaid() {
		return false
	}
	o.Status = OrderStatusPaid
	o.PaidAt = &at
	o.UpdatedAt = at
	return true
}

// OrderView est la représentation publique d'une commande (champs internes retirés)
type OrderView struct {
	ID              string          `json:"id"`
	Customer        string          `json:"customer"`
	OrderDetails    []OrderItemView `json:"order_details"`
	Total           string          `json:"total"`
	Status          OrderStatus     `json:"status"`
	CheckoutSession string          `json:"checkout_session"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
}

type OrderItemView struct {
	Product  ProductView `json:"product"`
	Quantity int         `json:"quantity"`
}

type ProductView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

// Sanitize construit la vue publique de la commande
func (o Order) Sanitize() OrderView {
	details := make([]OrderItemView, 0, len(o.Items))
	for _, item := range o.Items {
		details = append(details, OrderItemView{
			Product: ProductView{
				ID:    item.ProductID,
				Name:  item.Name,
				Price: item.UnitPrice.StringFixed(2),
			},
			Quantity: item.Quantity,
		})
	}

	return OrderView{
		ID:              o.ID,
		Customer:        o.Customer,
		OrderDetails:    details,
		Total:           o.Total.StringFixed(2),
		Status:          o.Status,
		CheckoutSession: o.CheckoutSession,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		PaidAt:          o.PaidAt,
	}
}

func SanitizeAll(orders []Order) []OrderView {
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, o.Sanitize())
	}
	return views
}
