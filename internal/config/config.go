package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultPort     = "8080"
	DefaultOrigin   = "http://localhost:3000"
	DefaultCurrency = "eur"
)

// Load charge le fichier .env s'il existe
func Load() {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé — on continue avec les variables d'environnement du système")
	} else {
		log.Println("✅ Fichier .env chargé avec succès")
	}
}

type ScyllaKeyspace struct {
	Keyspace string
	Username string
	Password string
}

type Config struct {
	Port   string
	AppEnv string

	StripeSecretKey     string
	StripeWebhookSecret string
	CheckoutCurrency    string
	DefaultOrigin       string

	JWTSecret string

	ScyllaHosts      []string
	ScyllaSSLEnabled bool
	ScyllaCACertPath string
	OrdersKeyspace   ScyllaKeyspace
	ProductsKeyspace ScyllaKeyspace

	RedisHost     string
	RedisPassword string

	ElasticURL      string
	ElasticUser     string
	ElasticPassword string

	KafkaBrokers     []string
	KafkaOrdersTopic string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	CORSOrigins []string
}

// FromEnv construit la configuration à partir des variables d'environnement
func FromEnv() Config {
	return Config{
		Port:   getEnv("PORT", DefaultPort),
		AppEnv: getEnv("APP_ENV", "production"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		CheckoutCurrency:    strings.ToLower(getEnv("CHECKOUT_CURRENCY", DefaultCurrency)),
		DefaultOrigin:       strings.TrimRight(getEnv("DEFAULT_ORIGIN", DefaultOrigin), "/"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		ScyllaHosts:      splitList(os.Getenv("SCYLLA_HOSTS")),
		ScyllaSSLEnabled: strings.ToLower(os.Getenv("SCYLLA_SSL_ENABLED")) == "true",
		ScyllaCACertPath: os.Getenv("SCYLLA_SSL_CA_PATH"),
		OrdersKeyspace: ScyllaKeyspace{
			Keyspace: os.Getenv("SCYLLA_KS_ORDERS_KEYSPACE"),
			Username: os.Getenv("SCYLLA_KS_ORDERS_ROLE"),
			Password: os.Getenv("SCYLLA_KS_ORDERS_PASSWORD"),
		},
		ProductsKeyspace: ScyllaKeyspace{
			Keyspace: os.Getenv("SCYLLA_KS_PRODUCTS_KEYSPACE"),
			Username: os.Getenv("SCYLLA_KS_PRODUCTS_ROLE"),
			Password: os.Getenv("SCYLLA_KS_PRODUCTS_PASSWORD"),
		},

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		ElasticURL:      os.Getenv("ELASTIC_URL"),
		ElasticUser:     os.Getenv("ELASTIC_USER"),
		ElasticPassword: os.Getenv("ELASTIC_PASSWORD"),

		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaOrdersTopic: getEnv("KAFKA_ORDERS_TOPIC", "orders"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     getEnv("MAIL_FROM", "noreply@cedra.local"),

		CORSOrigins: splitList(getEnv("CORS_ORIGINS", DefaultOrigin)),
	}
}

// MemoryMode active les stores en mémoire et le paiement simulé (dev local, sans Scylla ni Stripe)
func (c Config) MemoryMode() bool {
	return c.AppEnv == "memory"
}

// Validate vérifie les secrets obligatoires. Hors mode mémoire, Stripe (clé et secret
// webhook) est requis; JWT_SECRET l'est toujours.
func (c Config) Validate() error {
	var missing []error
	if c.JWTSecret == "" {
		missing = append(missing, errors.New("JWT_SECRET manquant"))
	}
	if !c.MemoryMode() {
		if c.StripeSecretKey == "" {
			missing = append(missing, errors.New("STRIPE_SECRET_KEY manquant"))
		}
		if c.StripeWebhookSecret == "" {
			missing = append(missing, errors.New("STRIPE_WEBHOOK_SECRET manquant"))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("configuration invalide: %w", errors.Join(missing...))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("⚠️ %s invalide (%q), valeur par défaut %d", key, v, fallback)
		return fallback
	}
	return n
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
