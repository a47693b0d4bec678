package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cedra_orders/internal/models"
)

const ProductCacheTTL = 10 * time.Minute

var ErrProductNotFound = errors.New("produit introuvable")

type ProductCatalog interface {
	FindOne(ctx context.Context, id string) (*models.Product, error)
}

// ScyllaCatalog lit la table products du keyspace produits
type ScyllaCatalog struct {
	session *gocql.Session
}

func NewScyllaCatalog(session *gocql.Session) *ScyllaCatalog {
	return &ScyllaCatalog{session: session}
}

func (c *ScyllaCatalog) FindOne(ctx context.Context, id string) (*models.Product, error) {
	var (
		name     string
		price    float64
		isActive bool
	)
	err := c.session.Query(`SELECT name, price, is_active FROM products WHERE product_id = ?`, id).
		WithContext(ctx).Scan(&name, &price, &isActive)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lecture produit %s: %w", id, err)
	}
	if !isActive {
		return nil, ErrProductNotFound
	}

	return &models.Product{
		ID:       id,
		Name:     name,
		Price:    decimal.NewFromFloat(price).Round(2),
		IsActive: isActive,
	}, nil
}

// CachedCatalog met en cache Redis les produits résolus (lecture seule)
type CachedCatalog struct {
	next   ProductCatalog
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedCatalog(next ProductCatalog, rdb *redis.Client, logger *zap.Logger) *CachedCatalog {
	return &CachedCatalog{next: next, redis: rdb, ttl: ProductCacheTTL, logger: logger}
}

func productKey(id string) string {
	return "product:" + id
}

func (c *CachedCatalog) FindOne(ctx context.Context, id string) (*models.Product, error) {
	// 1. Essayer le cache Redis
	data, err := c.redis.Get(ctx, productKey(id)).Result()
	if err == nil {
		var p models.Product
		if json.Unmarshal([]byte(data), &p) == nil {
			return &p, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("⚠️ Lecture cache produit échouée", zap.String("product_id", id), zap.Error(err))
	}

	// 2. Catalogue source
	p, err := c.next.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}

	// 3. Mettre en cache
	if encoded, err := json.Marshal(p); err == nil {
		if err := c.redis.Set(ctx, productKey(id), encoded, c.ttl).Err(); err != nil {
			c.logger.Warn("⚠️ Écriture cache produit échouée", zap.String("product_id", id), zap.Error(err))
		}
	}
	return p, nil
}

// StaticCatalog est un catalogue en mémoire (tests et APP_ENV=memory)
type StaticCatalog map[string]models.Product

func (s StaticCatalog) FindOne(_ context.Context, id string) (*models.Product, error) {
	p, ok := s[id]
	if !ok || !p.IsActive {
		return nil, ErrProductNotFound
	}
	return &p, nil
}
