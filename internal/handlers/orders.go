package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cedra_orders/internal/apperr"
	"cedra_orders/internal/middleware"
	"cedra_orders/internal/models"
	"cedra_orders/internal/orders"
	"cedra_orders/internal/payment"
)

const (
	maxWebhookBody = 65536
	requestTimeout = 15 * time.Second
)

// OrderService est le sous-ensemble de orders.Service utilisé par l'API HTTP
type OrderService interface {
	List(ctx context.Context, caller models.AuthUser, q orders.ListQuery) ([]models.OrderView, error)
	Get(ctx context.Context, caller models.AuthUser, id string) (models.OrderView, error)
	Create(ctx context.Context, caller models.AuthUser, req models.CreateOrderRequest, origin string) (orders.CreateResult, error)
	Confirm(ctx context.Context, caller *models.AuthUser, sessionID string) (models.OrderView, error)
	HandleProviderEvent(ctx context.Context, event *payment.Event) error
}

type OrderHandler struct {
	service       OrderService
	logger        *zap.Logger
	webhookSecret string
}

func NewOrderHandler(service OrderService, logger *zap.Logger, webhookSecret string) *OrderHandler {
	if webhookSecret == "" {
		logger.Warn("⚠️ STRIPE_WEBHOOK_SECRET absent: signatures webhook non vérifiées")
	}
	return &OrderHandler{service: service, logger: logger, webhookSecret: webhookSecret}
}

// ListOrders GET /orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.fail(c, orders.ErrUnauthenticated)
		return
	}

	q := orders.ListQuery{
		Search: c.Query("_q"),
		Status: c.Query("status"),
		Sort:   c.Query("_sort"),
		Limit:  queryInt(c, "_limit"),
		Start:  queryInt(c, "_start"),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	list, err := h.service.List(ctx, user, q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetOrder GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.fail(c, orders.ErrUnauthenticated)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	order, err := h.service.Get(ctx, user, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// CreateOrder POST /orders -> {"id": <session id>}
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.fail(c, orders.ErrUnauthenticated)
		return
	}

	var body models.CreateOrderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.fail(c, apperr.BadRequest("Données invalides", err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	res, err := h.service.Create(ctx, user, body.Request(), c.GetHeader("Origin"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": res.SessionID})
}

// ConfirmOrder POST /orders/confirm
func (h *OrderHandler) ConfirmOrder(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.fail(c, orders.ErrUnauthenticated)
		return
	}

	var req struct {
		CheckoutSession string `json:"checkout_session"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.BadRequest("Données invalides", err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	order, err := h.service.Confirm(ctx, &user, req.CheckoutSession)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// StripeWebhook POST /webhooks/stripe
func (h *OrderHandler) StripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Payload trop volumineux"})
		return
	}

	event, err := payment.ParseWebhook(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		h.logger.Warn("❌ Webhook Stripe refusé", zap.Error(err))
		if errors.Is(err, payment.ErrInvalidSignature) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Signature invalide"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payload invalide"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.service.HandleProviderEvent(ctx, event); err != nil {
		h.logger.Error("❌ Traitement webhook échoué",
			zap.String("event_id", event.ID), zap.String("type", event.Type), zap.Error(err))
		// 5xx: Stripe renverra l'événement
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// Health GET /health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *OrderHandler) fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("❌ Erreur serveur",
			zap.String("path", c.FullPath()),
			zap.String("trace_id", c.GetString(middleware.ContextTraceID)),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": apperr.PublicMessage(err)})
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}
