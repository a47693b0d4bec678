package notify

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"cedra_orders/internal/models"
)

func paidOrder() models.Order {
	return models.Order{
		ID:            "order-1",
		Customer:      "alice",
		CustomerEmail: "alice@example.com",
		Items: []models.OrderItem{
			{ProductID: "1", Name: "Mug <XL>", UnitPrice: decimal.RequireFromString("9.99"), Quantity: 2},
		},
		Total:  decimal.RequireFromString("19.98"),
		Status: models.OrderStatusPaid,
	}
}

func TestPaidOrderHTML(t *testing.T) {
	body := PaidOrderHTML(paidOrder(), "http://localhost:3000/orders")

	assert.Contains(t, body, "Mug &lt;XL&gt;")
	assert.Contains(t, body, "19.98€")
	assert.Contains(t, body, "#order-1")
	assert.NotContains(t, body, "<XL>")
}

func TestMailNotifierOrderPaid(t *testing.T) {
	n := NewMailNotifier(MailConfig{From: "noreply@cedra.local"}, zap.NewNop())

	var sent *mail.Msg
	n.send = func(_ context.Context, msg *mail.Msg) error {
		sent = msg
		return nil
	}

	require.NoError(t, n.OrderPaid(context.Background(), paidOrder()))
	require.NotNil(t, sent)

	to := sent.GetToString()
	require.Len(t, to, 1)
	assert.Contains(t, to[0], "alice@example.com")
	assert.Equal(t, []string{"✅ Paiement confirmé - Cedra"}, sent.GetGenHeader(mail.HeaderSubject))
}

func TestMailNotifierRequiresEmail(t *testing.T) {
	n := NewMailNotifier(MailConfig{From: "noreply@cedra.local"}, zap.NewNop())
	n.send = func(context.Context, *mail.Msg) error {
		t.Fatal("aucun envoi attendu")
		return nil
	}

	order := paidOrder()
	order.CustomerEmail = ""
	assert.Error(t, n.OrderPaid(context.Background(), order))
}
