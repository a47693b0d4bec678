package orders

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cedra_orders/internal/catalog"
	"cedra_orders/internal/config"
	"cedra_orders/internal/events"
	"cedra_orders/internal/models"
	"cedra_orders/internal/notify"
	"cedra_orders/internal/payment"
	"cedra_orders/internal/store"
)

const (
	maxListLimit       = 100
	maxCatalogLookups  = 8
	notifyTimeout      = 30 * time.Second
	successPathPattern = "/success?session_id={CHECKOUT_SESSION_ID}"
)

// Service orchestre le cycle de vie d'une commande: création (unpaid) puis confirmation (paid)
type Service struct {
	store     store.OrderStore
	catalog   catalog.ProductCatalog
	provider  payment.CheckoutProvider
	publisher events.Publisher
	notifier  notify.Notifier
	logger    *zap.Logger

	currency      string
	defaultOrigin string
	now           func() time.Time
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option { return func(s *Service) { s.publisher = p } }
func WithNotifier(n notify.Notifier) Option   { return func(s *Service) { s.notifier = n } }
func WithLogger(l *zap.Logger) Option         { return func(s *Service) { s.logger = l } }
func WithCurrency(c string) Option            { return func(s *Service) { s.currency = c } }

func WithDefaultOrigin(origin string) Option {
	return func(s *Service) { s.defaultOrigin = strings.TrimRight(origin, "/") }
}

func New(orderStore store.OrderStore, productCatalog catalog.ProductCatalog, provider payment.CheckoutProvider, opts ...Option) *Service {
	s := &Service{
		store:         orderStore,
		catalog:       productCatalog,
		provider:      provider,
		publisher:     events.NopPublisher{},
		notifier:      notify.NopNotifier{},
		logger:        zap.NewNop(),
		currency:      config.DefaultCurrency,
		defaultOrigin: config.DefaultOrigin,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type ListQuery struct {
	Search string
	Status string
	Sort   string
	Limit  int
	Start  int
}

// List retourne les commandes du client connecté. Le filtre client est toujours
// injecté ici, jamais repris de la requête.
func (s *Service) List(ctx context.Context, caller models.AuthUser, q ListQuery) ([]models.OrderView, error) {
	if caller.ID == "" {
		return nil, ErrUnauthenticated
	}

	status := models.OrderStatus(q.Status)
	if status != "" && status != models.OrderStatusUnpaid && status != models.OrderStatusPaid {
		return nil, ErrInvalidStatus
	}

	limit := q.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	start := q.Start
	if start < 0 {
		start = 0
	}

	filter := store.OrderFilter{
		Customer: caller.ID,
		Status:   status,
		Query:    strings.TrimSpace(q.Search),
		Sort:     q.Sort,
		Limit:    limit,
		Start:    start,
	}

	var (
		list []models.Order
		err  error
	)
	if filter.Query != "" {
		list, err = s.store.Search(ctx, filter)
	} else {
		list, err = s.store.Find(ctx, filter)
	}
	if err != nil {
		return nil, storeFailure(err)
	}

	return models.SanitizeAll(list), nil
}

// Get retourne une commande du client connecté; une commande d'un autre client est introuvable
func (s *Service) Get(ctx context.Context, caller models.AuthUser, id string) (models.OrderView, error) {
	if caller.ID == "" {
		return models.OrderView{}, ErrUnauthenticated
	}

	order, err := s.store.FindOne(ctx, store.OrderFilter{ID: id, Customer: caller.ID})
	if errors.Is(err, store.ErrNotFound) {
		return models.OrderView{}, ErrOrderNotFound
	}
	if err != nil {
		return models.OrderView{}, storeFailure(err)
	}
	return order.Sanitize(), nil
}

type CreateResult struct {
	SessionID string
	OrderID   string
}

type lineItem struct {
	productID string
	quantity  int
}

// Create enregistre une commande unpaid puis ouvre la session de paiement hébergée.
// La commande est persistée avant la session: une session Stripe référence toujours
// une commande existante (client_reference_id).
func (s *Service) Create(ctx context.Context, caller models.AuthUser, req models.CreateOrderRequest, origin string) (CreateResult, error) {
	if caller.ID == "" {
		return CreateResult{}, ErrUnauthenticated
	}

	// 1. Normaliser la requête (aucun appel externe avant validation)
	lines, err := normalize(req)
	if err != nil {
		return CreateResult{}, err
	}

	// 2. Résoudre les produits auprès du catalogue (prix de référence)
	items, err := s.resolve(ctx, lines)
	if err != nil {
		return CreateResult{}, err
	}

	// 3. Persister la commande en attente de paiement
	order := &models.Order{
		Customer:      caller.ID,
		CustomerEmail: caller.Email,
		Items:         items,
		Total:         models.ComputeTotal(items),
		Status:        models.OrderStatusUnpaid,
	}
	if err := s.store.Create(ctx, order); err != nil {
		return CreateResult{}, storeFailure(err)
	}

	// 4. Créer la session de paiement
	base := s.resolveOrigin(origin)
	params := payment.SessionParams{
		CustomerEmail:     caller.Email,
		Currency:          s.currency,
		SuccessURL:        base + successPathPattern,
		CancelURL:         base + "/",
		ClientReferenceID: order.ID,
		Metadata: map[string]string{
			"order_id": order.ID,
			"customer": caller.ID,
		},
	}
	for _, item := range items {
		params.LineItems = append(params.LineItems, payment.LineItem{
			Name:       item.Name,
			UnitAmount: item.UnitAmount(),
			Quantity:   int64(item.Quantity),
		})
	}

	sess, err := s.provider.CreateSession(ctx, params)
	if err != nil {
		s.logger.Error("❌ Erreur création session de paiement",
			zap.String("order_id", order.ID), zap.Error(err))
		return CreateResult{}, providerFailure(err)
	}

	// 5. Lier la session à la commande
	sessionID := sess.ID
	updated, err := s.store.Update(ctx, store.OrderFilter{ID: order.ID}, store.OrderUpdate{CheckoutSession: &sessionID})
	if err != nil {
		s.logger.Error("❌ Session créée mais non liée à la commande",
			zap.String("order_id", order.ID), zap.String("session_id", sessionID), zap.Error(err))
		return CreateResult{}, storeFailure(err)
	}

	ordersCreated.Inc()
	s.publish(ctx, events.TypeOrderCreated, *updated)
	s.logger.Info("💳 Commande créée",
		zap.String("order_id", updated.ID),
		zap.String("session_id", sessionID),
		zap.String("total", updated.Total.StringFixed(2)),
		zap.Int64("amount_minor", models.AmountMinor(items)))

	return CreateResult{SessionID: sessionID, OrderID: updated.ID}, nil
}

func normalize(req models.CreateOrderRequest) ([]lineItem, error) {
	switch r := req.(type) {
	case models.SingleProduct:
		if r.Ref.ID == "" {
			return nil, ErrMissingProduct
		}
		return []lineItem{{productID: string(r.Ref.ID), quantity: 1}}, nil

	case models.Cart:
		if len(r.Items) == 0 {
			return nil, ErrEmptyCart
		}
		lines := make([]lineItem, 0, len(r.Items))
		for _, item := range r.Items {
			if item.Product.ID == "" {
				return nil, ErrMissingProduct
			}
			if item.Quantity <= 0 {
				return nil, ErrInvalidQuantity
			}
			lines = append(lines, lineItem{productID: string(item.Product.ID), quantity: item.Quantity})
		}
		return lines, nil

	default:
		return nil, ErrMissingProduct
	}
}

// resolve interroge le catalogue en parallèle; le nom et le prix du catalogue font foi
func (s *Service) resolve(ctx context.Context, lines []lineItem) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxCatalogLookups)
	for i, line := range lines {
		i, line := i, line
		g.Go(func() error {
			p, err := s.catalog.FindOne(gctx, line.productID)
			if errors.Is(err, catalog.ErrProductNotFound) {
				return productNotFound(line.productID, err)
			}
			if err != nil {
				return storeFailure(err)
			}
			// Prix unitaire au centime: montant Stripe et total stocké en dérivent tous deux
			items[i] = models.OrderItem{
				ProductID: p.ID,
				Name:      p.Name,
				UnitPrice: p.Price.Round(2),
				Quantity:  line.quantity,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// resolveOrigin n'accepte qu'une origine http(s) absolue, sinon l'origine par défaut
func (s *Service) resolveOrigin(origin string) string {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin == "" {
		return s.defaultOrigin
	}
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return s.defaultOrigin
	}
	return origin
}

// Confirm vérifie le statut de la session auprès du fournisseur et passe la commande à paid.
// caller nil = appel signé par le fournisseur (webhook), sans contrôle de propriétaire.
func (s *Service) Confirm(ctx context.Context, caller *models.AuthUser, sessionID string) (models.OrderView, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return models.OrderView{}, ErrMissingSession
	}

	sess, err := s.provider.RetrieveSession(ctx, sessionID)
	if err != nil {
		return models.OrderView{}, providerFailure(err)
	}

	order, attach, err := s.locate(ctx, sess)
	if err != nil {
		return models.OrderView{}, err
	}

	// Aucune écriture avant les contrôles propriétaire, statut et montant
	if caller != nil && order.Customer != caller.ID {
		return models.OrderView{}, ErrOrderNotFound
	}

	if !sess.Paid() {
		ordersConfirmations.WithLabelValues("unverified").Inc()
		s.logger.Warn("⚠️ Paiement non vérifié",
			zap.String("order_id", order.ID),
			zap.String("session_id", sess.ID),
			zap.String("payment_status", sess.PaymentStatus))
		return models.OrderView{}, ErrPaymentNotVerified
	}

	if expected := models.AmountMinor(order.Items); sess.AmountTotal != expected {
		ordersConfirmations.WithLabelValues("amount_mismatch").Inc()
		s.logger.Error("❌ Montant payé différent de la commande",
			zap.String("order_id", order.ID),
			zap.String("session_id", sess.ID),
			zap.Int64("amount_total", sess.AmountTotal),
			zap.Int64("expected", expected))
		return models.OrderView{}, ErrPaymentNotVerified
	}

	now := s.now()
	if !order.MarkPaid(now) {
		ordersConfirmations.WithLabelValues("already_paid").Inc()
		return order.Sanitize(), nil
	}

	paid := models.OrderStatusPaid
	update := store.OrderUpdate{Status: &paid, PaidAt: order.PaidAt}
	if attach {
		sessionID := sess.ID
		update.CheckoutSession = &sessionID
	}

	// Transition conditionnelle: seule la confirmation qui trouve la commande unpaid l'écrit
	updated, err := s.store.Update(ctx, store.OrderFilter{ID: order.ID, Status: models.OrderStatusUnpaid}, update)
	if errors.Is(err, store.ErrNotFound) {
		current, err := s.store.FindOne(ctx, store.OrderFilter{ID: order.ID})
		if err != nil {
			return models.OrderView{}, storeFailure(err)
		}
		ordersConfirmations.WithLabelValues("already_paid").Inc()
		return current.Sanitize(), nil
	}
	if err != nil {
		return models.OrderView{}, storeFailure(err)
	}

	if attach {
		s.logger.Info("🔁 Session rattachée à sa commande", zap.String("order_id", updated.ID), zap.String("session_id", sess.ID))
	}
	ordersConfirmations.WithLabelValues("paid").Inc()
	s.logger.Info("✅ Paiement confirmé", zap.String("order_id", updated.ID), zap.String("session_id", sess.ID))
	s.publish(ctx, events.TypeOrderPaid, *updated)
	s.notifyPaid(*updated)

	return updated.Sanitize(), nil
}

// locate retrouve la commande d'une session, avec repli sur client_reference_id
// si la session n'a jamais été liée (échec entre création de session et liaison).
// attach indique que la session reste à rattacher à la commande.
func (s *Service) locate(ctx context.Context, sess *payment.Session) (order *models.Order, attach bool, err error) {
	order, err = s.store.FindOne(ctx, store.OrderFilter{CheckoutSession: sess.ID})
	if err == nil {
		return order, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, storeFailure(err)
	}

	ref := sess.ClientReferenceID
	if ref == "" {
		ref = sess.Metadata["order_id"]
	}
	if ref == "" {
		return nil, false, ErrOrderNotFound
	}

	order, err = s.store.FindOne(ctx, store.OrderFilter{ID: ref})
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, ErrOrderNotFound
	}
	if err != nil {
		return nil, false, storeFailure(err)
	}
	if order.CheckoutSession != "" && order.CheckoutSession != sess.ID {
		return nil, false, ErrOrderNotFound
	}
	return order, order.CheckoutSession == "", nil
}

// HandleProviderEvent traite un événement webhook du fournisseur de paiement
func (s *Service) HandleProviderEvent(ctx context.Context, event *payment.Event) error {
	if !event.IsPaymentEvent() {
		s.logger.Debug("ℹ️ Événement ignoré", zap.String("type", event.Type))
		return nil
	}
	if event.SessionID == "" {
		return ErrMissingSession
	}

	_, err := s.Confirm(ctx, nil, event.SessionID)
	if errors.Is(err, ErrPaymentNotVerified) {
		// Paiement différé: un async_payment_succeeded suivra
		s.logger.Info("⏳ Paiement en attente", zap.String("session_id", event.SessionID))
		return nil
	}
	return err
}

func (s *Service) publish(ctx context.Context, eventType string, order models.Order) {
	if err := s.publisher.Publish(ctx, events.NewOrderEvent(eventType, order, s.now())); err != nil {
		s.logger.Warn("⚠️ Publication événement échouée",
			zap.String("type", eventType), zap.String("order_id", order.ID), zap.Error(err))
	}
}

func (s *Service) notifyPaid(order models.Order) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.OrderPaid(ctx, order); err != nil {
			s.logger.Warn("❌ Erreur envoi e-mail confirmation", zap.String("order_id", order.ID), zap.Error(err))
		}
	}()
}
