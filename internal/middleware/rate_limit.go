package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	OrderCreateMaxRequests = 10 // par minute et par utilisateur
	OrderCreateWindow      = 1 * time.Minute
)

// OrderRateLimit limite les créations de commande (et donc de sessions Stripe) par utilisateur.
// Sans Redis, ou si Redis est indisponible, la requête passe.
func OrderRateLimit(rdb *redis.Client, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		if rdb == nil || userID == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := "order_create:" + userID

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("⚠️ Rate limit indisponible", zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(ctx, key, OrderCreateWindow)
		}

		if count > OrderCreateMaxRequests {
			c.Header("Retry-After", fmt.Sprintf("%d", int(OrderCreateWindow.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Trop de commandes. Réessayez dans 1 minute",
				"retry_after": int(OrderCreateWindow.Seconds()),
			})
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", OrderCreateMaxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", OrderCreateMaxRequests-count))
		c.Next()
	}
}
