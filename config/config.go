package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	Env              string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string
	RedisURL         string

	StripeSecretKey  string
	StripeWebhookKey string
	UPISecret        string
	JWTSecret        string
	Currency         string

	KafkaBrokers        string
	OrderEventsTopic    string
	OrderSNSTopicARN    string
	FulfillmentQueueURL string

	ProductServiceURL string
	AddressServiceURL string

	SessionTTL            time.Duration
	ReturnWindowDays      int
	FreeDeliveryThreshold int
	DeliveryFee           int

	PendingAttemptTimeout time.Duration
	ReconcileInterval     time.Duration
	MaxVerifyRetries      int
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8086"),
		Env:              getEnv("APP_ENV", "development"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "Asia/Kolkata"),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),

		StripeSecretKey:  os.Getenv("STRIPE_API_KEY"),
		StripeWebhookKey: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		UPISecret:        os.Getenv("UPI_SIGNING_SECRET"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		Currency:         getEnv("CURRENCY", "inr"),

		KafkaBrokers:        getEnv("KAFKA_BROKERS", "localhost:9092"),
		OrderEventsTopic:    getEnv("ORDER_EVENTS_TOPIC", "order-events"),
		OrderSNSTopicARN:    os.Getenv("ORDER_SNS_TOPIC_ARN"),
		FulfillmentQueueURL: os.Getenv("FULFILLMENT_QUEUE_URL"),

		ProductServiceURL: getEnv("PRODUCT_SERVICE_URL", "http://localhost:8081"),
		AddressServiceURL: getEnv("ADDRESS_SERVICE_URL", "http://localhost:8082"),

		SessionTTL:            getEnvDuration("CHECKOUT_SESSION_TTL", 30*time.Minute),
		ReturnWindowDays:      getEnvInt("RETURN_WINDOW_DAYS", 8),
		FreeDeliveryThreshold: getEnvInt("FREE_DELIVERY_THRESHOLD", 500),
		DeliveryFee:           getEnvInt("DELIVERY_FEE", 40),

		PendingAttemptTimeout: getEnvDuration("PENDING_ATTEMPT_TIMEOUT", 15*time.Minute),
		ReconcileInterval:     getEnvDuration("RECONCILE_INTERVAL", time.Minute),
		MaxVerifyRetries:      getEnvInt("MAX_VERIFY_RETRIES", 6),
	}

	if cfg.PostgresUser == "" || cfg.PostgresPassword == "" || cfg.PostgresDB == "" ||
		cfg.StripeSecretKey == "" || cfg.StripeWebhookKey == "" ||
		cfg.UPISecret == "" || cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required environment variables")
	}

	return cfg, nil
}

// ReturnWindow is the post-delivery period during which a return request is
// accepted.
func (c *Config) ReturnWindow() time.Duration {
	return time.Duration(c.ReturnWindowDays) * 24 * time.Hour
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
