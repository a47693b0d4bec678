package orders

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cedra_orders",
		Name:      "orders_created_total",
		Help:      "Nombre de commandes créées avec une session de paiement",
	})

	ordersConfirmations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cedra_orders",
		Name:      "order_confirmations_total",
		Help:      "Confirmations de paiement par résultat",
	}, []string{"result"})
)
