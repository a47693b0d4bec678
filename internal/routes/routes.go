package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"cedra_orders/internal/handlers"
	"cedra_orders/internal/middleware"
)

type Deps struct {
	Orders      *handlers.OrderHandler
	JWTSecret   []byte
	Redis       *redis.Client // nil = pas de rate limit
	CORSOrigins []string
	Logger      *zap.Logger
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(
		middleware.TraceID(),
		middleware.RequestLogger(d.Logger),
		middleware.Metrics(),
		cors.New(cors.Config{
			AllowOrigins:     d.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderTraceID},
			ExposeHeaders:    []string{middleware.HeaderTraceID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)

	r.GET("/health", handlers.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Webhook signé par Stripe, hors JWT
	r.POST("/webhooks/stripe", d.Orders.StripeWebhook)

	orders := r.Group("/orders", middleware.AuthRequired(d.JWTSecret, d.Logger))
	{
		orders.GET("", d.Orders.ListOrders)
		orders.GET("/:id", d.Orders.GetOrder)
		orders.POST("", middleware.OrderRateLimit(d.Redis, d.Logger), d.Orders.CreateOrder)
		orders.POST("/confirm", d.Orders.ConfirmOrder)
	}
}
