package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"cedra_orders/internal/models"
)

type Notifier interface {
	OrderPaid(ctx context.Context, order models.Order) error
}

type NopNotifier struct{}

func (NopNotifier) OrderPaid(context.Context, models.Order) error { return nil }

type MailConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	OrdersURL string // lien "Voir ma commande"
}

// MailNotifier envoie l'e-mail de confirmation de paiement via SMTP
type MailNotifier struct {
	cfg    MailConfig
	logger *zap.Logger
	send   func(ctx context.Context, msg *mail.Msg) error
}

func NewMailNotifier(cfg MailConfig, logger *zap.Logger) *MailNotifier {
	n := &MailNotifier{cfg: cfg, logger: logger}
	n.send = n.dialAndSend
	return n
}

func (n *MailNotifier) OrderPaid(ctx context.Context, order models.Order) error {
	if order.CustomerEmail == "" {
		return fmt.Errorf("commande %s sans e-mail client", order.ID)
	}

	msg, err := n.buildMessage(order)
	if err != nil {
		return err
	}

	n.logger.Info("📤 Envoi de l'e-mail de confirmation", zap.String("order_id", order.ID))
	return n.send(ctx, msg)
}

func (n *MailNotifier) buildMessage(order models.Order) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.From); err != nil {
		return nil, err
	}
	if err := msg.To(order.CustomerEmail); err != nil {
		return nil, err
	}
	msg.Subject("✅ Paiement confirmé - Cedra")
	msg.SetBodyString(mail.TypeTextHTML, PaidOrderHTML(order, n.cfg.OrdersURL))
	return msg, nil
}

func (n *MailNotifier) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(n.cfg.Host,
		mail.WithPort(n.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(n.cfg.Username),
		mail.WithPassword(n.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// PaidOrderHTML génère le HTML de confirmation de paiement
func PaidOrderHTML(order models.Order, ordersURL string) string {
	var rows strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&rows, `
			<tr>
				<td style="padding: 10px; border: 1px solid #ddd;">%s</td>
				<td style="padding: 10px; border: 1px solid #ddd;">%d</td>
				<td style="padding: 10px; border: 1px solid #ddd;">%s€</td>
				<td style="padding: 10px; border: 1px solid #ddd;">%s€</td>
			</tr>`,
			html.EscapeString(item.Name), item.Quantity,
			item.UnitPrice.StringFixed(2), item.Subtotal().StringFixed(2))
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head>
	<meta charset="UTF-8">
	<title>Paiement confirmé</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Paiement confirmé</h2>
		<p>Bonjour,</p>
		<p>Le paiement de votre commande #%s a bien été reçu.</p>
		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f0f0f0;">
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Produit</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Quantité</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Prix unitaire</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Total</th>
				</tr>
			</thead>
			<tbody>%s
			</tbody>
		</table>
		<p style="font-size: 18px;"><strong>Total payé : %s€</strong></p>
		<a href="%s" style="display: inline-block; padding: 14px 32px; background-color: #667eea; color: #ffffff; text-decoration: none; border-radius: 6px;">Voir ma commande</a>
	</div>
</body>
</html>`,
		html.EscapeString(order.ID), rows.String(), order.Total.StringFixed(2), html.EscapeString(ordersURL))
}
