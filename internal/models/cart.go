package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// FlexibleID accepte un identifiant JSON sous forme de chaîne ou de nombre
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifiant invalide: %s", string(data))
	}
	*id = FlexibleID(n.String())
	return nil
}

type ProductRef struct {
	ID    FlexibleID          `json:"id"`
	Name  string              `json:"name,omitempty"`
	Price decimal.NullDecimal `json:"price"`
}

type CartItem struct {
	Product  ProductRef `json:"product"`
	Quantity int        `json:"quantity"`
}

// CreateOrderBody est le corps brut de POST /orders (deux formes acceptées)
type CreateOrderBody struct {
	Product   *ProductRef `json:"product"`
	CartItems []CartItem  `json:"cartItems"`
}

// CreateOrderRequest est soit SingleProduct soit Cart
type CreateOrderRequest interface {
	isCreateOrderRequest()
}

type SingleProduct struct {
	Ref ProductRef
}

type Cart struct {
	Items []CartItem
}

func (SingleProduct) isCreateOrderRequest() {}
func (Cart) isCreateOrderRequest()          {}

// Request convertit le corps en variante typée. Retourne nil si aucun produit n'est fourni.
// cartItems est prioritaire quand les deux formes sont présentes.
func (b CreateOrderBody) Request() CreateOrderRequest {
	if b.CartItems != nil {
		return Cart{Items: b.CartItems}
	}
	if b.Product != nil {
		return SingleProduct{Ref: *b.Product}
	}
	return nil
}
