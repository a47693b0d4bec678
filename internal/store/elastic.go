package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	"cedra_orders/internal/models"
)

const DefaultOrderIndex = "orders"

// ElasticIndex indexe les commandes pour la recherche plein texte (_q)
type ElasticIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticIndex(client *elasticsearch.Client, index string) *ElasticIndex {
	if index == "" {
		index = DefaultOrderIndex
	}
	return &ElasticIndex{client: client, index: index}
}

type orderDocument struct {
	ID              string    `json:"id"`
	Customer        string    `json:"customer"`
	Status          string    `json:"status"`
	CheckoutSession string    `json:"checkout_session"`
	ItemNames       []string  `json:"item_names"`
	Total           string    `json:"total"`
	CreatedAt       time.Time `json:"created_at"`
}

const orderIndexMapping = `{
  "mappings": {
    "properties": {
      "id":               {"type": "keyword"},
      "customer":         {"type": "keyword"},
      "status":           {"type": "keyword"},
      "checkout_session": {"type": "keyword"},
      "item_names":       {"type": "text"},
      "total":            {"type": "keyword"},
      "created_at":       {"type": "date"}
    }
  }
}`

// EnsureIndex crée l'index avec son mapping s'il n'existe pas
func (e *ElasticIndex) EnsureIndex(ctx context.Context) error {
	exists, err := esapi.IndicesExistsRequest{Index: []string{e.index}}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("vérification index %s: %w", e.index, err)
	}
	exists.Body.Close()
	if exists.StatusCode == 200 {
		return nil
	}

	res, err := esapi.IndicesCreateRequest{
		Index: e.index,
		Body:  strings.NewReader(orderIndexMapping),
	}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("création index %s: %w", e.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("création index %s: %s", e.index, res.String())
	}
	return nil
}

func (e *ElasticIndex) Index(ctx context.Context, o models.Order) error {
	doc := orderDocument{
		ID:              o.ID,
		Customer:        o.Customer,
		Status:          string(o.Status),
		CheckoutSession: o.CheckoutSession,
		Total:           o.Total.StringFixed(2),
		CreatedAt:       o.CreatedAt,
	}
	for _, item := range o.Items {
		doc.ItemNames = append(doc.ItemNames, item.Name)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	res, err := esapi.IndexRequest{
		Index:      e.index,
		DocumentID: o.ID,
		Body:       bytes.NewReader(data),
		Refresh:    "wait_for",
	}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("indexation commande %s: %w", o.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexation commande %s: %s", o.ID, res.String())
	}
	return nil
}

// SearchIDs retourne les identifiants des commandes du client correspondant à la requête.
// Le filtre client est toujours appliqué côté serveur.
func (e *ElasticIndex) SearchIDs(ctx context.Context, customer, query string, size int) ([]string, error) {
	if customer == "" {
		return nil, ErrCustomerRequired
	}
	if size <= 0 {
		size = 100
	}

	q := map[string]interface{}{
		"size":    size,
		"_source": []string{"id"},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"customer": customer}},
				},
				"must": []interface{}{
					map[string]interface{}{
						"multi_match": map[string]interface{}{
							"query":   query,
							"fields":  []string{"item_names", "status", "id", "checkout_session", "total"},
							"lenient": true,
						},
					},
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("erreur encodage requête: %w", err)
	}

	res, err := esapi.SearchRequest{
		Index: []string{e.index},
		Body:  &buf,
	}.Do(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("erreur requête Elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("recherche Elastic %s: %s", res.Status(), string(body))
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source struct {
					ID string `json:"id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("erreur décodage JSON: %w", err)
	}

	ids := make([]string, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		if hit.Source.ID != "" {
			ids = append(ids, hit.Source.ID)
		}
	}
	return ids, nil
}

// SearchableStore ajoute la recherche Elasticsearch à un store primaire.
// Sans index, Search retombe sur le Search du store primaire.
type SearchableStore struct {
	OrderStore
	index  *ElasticIndex
	logger *zap.Logger
}

func NewSearchableStore(primary OrderStore, index *ElasticIndex, logger *zap.Logger) *SearchableStore {
	return &SearchableStore{OrderStore: primary, index: index, logger: logger}
}

func (s *SearchableStore) Create(ctx context.Context, order *models.Order) error {
	if err := s.OrderStore.Create(ctx, order); err != nil {
		return err
	}
	s.reindex(ctx, *order)
	return nil
}

func (s *SearchableStore) Update(ctx context.Context, f OrderFilter, u OrderUpdate) (*models.Order, error) {
	order, err := s.OrderStore.Update(ctx, f, u)
	if err != nil {
		return nil, err
	}
	s.reindex(ctx, *order)
	return order, nil
}

func (s *SearchableStore) Search(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	if f.Customer == "" {
		return nil, ErrCustomerRequired
	}
	if s.index == nil {
		return s.OrderStore.Search(ctx, f)
	}

	ids, err := s.index.SearchIDs(ctx, f.Customer, f.Query, 0)
	if err != nil {
		return nil, err
	}

	out := make([]models.Order, 0, len(ids))
	for _, id := range ids {
		// Relecture depuis le store primaire avec le filtre client
		o, err := s.OrderStore.FindOne(ctx, OrderFilter{ID: id, Customer: f.Customer, Status: f.Status})
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return applyWindow(out, f), nil
}

// L'index est secondaire: une erreur d'indexation est loguée, jamais remontée
func (s *SearchableStore) reindex(ctx context.Context, o models.Order) {
	if s.index == nil {
		return
	}
	if err := s.index.Index(ctx, o); err != nil {
		s.logger.Warn("⚠️ Indexation Elasticsearch échouée", zap.String("order_id", o.ID), zap.Error(err))
	}
}
