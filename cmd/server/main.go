package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cedra_orders/internal/catalog"
	"cedra_orders/internal/config"
	"cedra_orders/internal/database"
	"cedra_orders/internal/events"
	"cedra_orders/internal/handlers"
	"cedra_orders/internal/logger"
	"cedra_orders/internal/notify"
	"cedra_orders/internal/orders"
	"cedra_orders/internal/payment"
	"cedra_orders/internal/routes"
	"cedra_orders/internal/store"
)

const ordersIndex = "orders"

func main() {
	config.Load()
	cfg := config.FromEnv()

	log := logger.New()
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("❌ Démarrage impossible", zap.Error(err))
	}

	var provider payment.CheckoutProvider
	if cfg.MemoryMode() {
		provider = payment.NewLocalProvider()
		log.Warn("⚠️ Paiement simulé: sessions locales payées immédiatement")
	} else {
		provider = payment.NewStripeProvider(cfg.StripeSecretKey)
		log.Info("✅ Stripe initialisé")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		orderStore store.OrderStore
		products   catalog.ProductCatalog
		rdb        *redis.Client
	)

	if cfg.MemoryMode() {
		log.Warn("⚠️ APP_ENV=memory: commandes en mémoire, catalogue de démonstration")
		orderStore = store.NewMemoryStore()
		products = demoCatalog()
	} else {
		scylla, err := database.NewScyllaManager(cfg, log)
		if err != nil {
			log.Fatal("❌ Connexion ScyllaDB impossible", zap.Error(err))
		}
		defer scylla.Close()

		ordersSession, err := scylla.GetSession(cfg.OrdersKeyspace.Keyspace)
		if err != nil {
			log.Fatal("❌ Keyspace commandes indisponible", zap.Error(err))
		}
		productsSession, err := scylla.GetSession(cfg.ProductsKeyspace.Keyspace)
		if err != nil {
			log.Fatal("❌ Keyspace produits indisponible", zap.Error(err))
		}

		orderStore = store.NewScyllaStore(ordersSession)
		products = catalog.NewScyllaCatalog(productsSession)

		if rdb, err = database.ConnectRedis(ctx, cfg, log); err != nil {
			log.Warn("⚠️ Redis indisponible: cache produits et rate limit désactivés", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
			products = catalog.NewCachedCatalog(products, rdb, log)
		}

		es, err := database.ConnectElastic(cfg, log)
		if err != nil {
			log.Warn("⚠️ Elasticsearch indisponible, recherche sans index", zap.Error(err))
		}
		if es != nil {
			index := store.NewElasticIndex(es, ordersIndex)
			if err := index.EnsureIndex(ctx); err != nil {
				log.Warn("⚠️ Création index commandes échouée", zap.Error(err))
			}
			orderStore = store.NewSearchableStore(orderStore, index, log)
		}
	}

	opts := []orders.Option{
		orders.WithLogger(log),
		orders.WithCurrency(cfg.CheckoutCurrency),
		orders.WithDefaultOrigin(cfg.DefaultOrigin),
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrdersTopic, log)
		defer publisher.Close()
		opts = append(opts, orders.WithPublisher(publisher))
	}

	if cfg.SMTPHost != "" {
		opts = append(opts, orders.WithNotifier(notify.NewMailNotifier(notify.MailConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			From:      cfg.MailFrom,
			OrdersURL: cfg.DefaultOrigin + "/orders",
		}, log)))
	}

	svc := orders.New(orderStore, products, provider, opts...)

	r := gin.New()
	r.Use(gin.Recovery())
	routes.RegisterRoutes(r, routes.Deps{
		Orders:      handlers.NewOrderHandler(svc, log, cfg.StripeWebhookSecret),
		JWTSecret:   []byte(cfg.JWTSecret),
		Redis:       rdb,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("🚀 Serveur commandes Cedra lancé", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ Serveur HTTP arrêté", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("🛑 Arrêt en cours...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("❌ Arrêt forcé", zap.Error(err))
	}
}

func demoCatalog() catalog.StaticCatalog {
	return catalog.StaticCatalog{
		"1": {ID: "1", Name: "Mug Cedra", Price: decimal.RequireFromString("9.99"), IsActive: true},
		"2": {ID: "2", Name: "Tote bag", Price: decimal.RequireFromString("14.50"), IsActive: true},
		"3": {ID: "3", Name: "Carnet", Price: decimal.RequireFromString("6.00"), IsActive: true},
	}
}
