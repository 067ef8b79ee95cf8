package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	RedisURL              string
	JWTSecret             string
	JWTExpirySeconds      int64
	MaxFileSizeBytes      int64
	RabbitMQURL           string
	RabbitMQWorkerMode    string
	CorsAllowedOrigins    []string
	WSHeartbeatInterval   time.Duration
	CartTTL               time.Duration
	Timezone              string
	CheckoutRatePerMinute int64
	WhatsAppFallbackPhone string
	SeedFile              string
	VouchersFile          string

	PlatformCommissionPercent float64
	ServiceFee                float64
	DeliveryFee               float64
	PricingConfigPath         string

	ObjectStoreEndpoint        string
	ObjectStoreRegion          string
	ObjectStoreAccessKeyID     string
	ObjectStoreSecretAccessKey string
	ObjectStoreBucket          string
	ObjectStorePublicBaseURL   string
	ObjectStoreStorageClass    string
}

func Load() Config {
	cfg := Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		JWTExpirySeconds:      getEnvInt64("JWT_EXPIRY", 86400),
		MaxFileSizeBytes:      getEnvInt64("MAX_FILE_SIZE", 5*1024*1024),
		RabbitMQURL:           getEnv("RABBITMQ_URL", ""),
		RabbitMQWorkerMode:    getEnv("RABBITMQ_WORKER_MODE", "daemon"),
		CorsAllowedOrigins:    splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
		WSHeartbeatInterval:   getEnvDuration("WS_HEARTBEAT_INTERVAL", 30*time.Second),
		CartTTL:               getEnvDuration("CART_TTL", 7*24*time.Hour),
		Timezone:              getEnv("TIMEZONE", "America/Havana"),
		CheckoutRatePerMinute: getEnvInt64("CHECKOUT_RATE_PER_MINUTE", 30),
		WhatsAppFallbackPhone: getEnv("WHATSAPP_FALLBACK_PHONE", ""),
		SeedFile:              getEnv("SEED_FILE", ""),
		VouchersFile:          getEnv("VOUCHERS_FILE", ""),

		PlatformCommissionPercent: getEnvFloat("PLATFORM_COMMISSION_PERCENT", 5),
		ServiceFee:                getEnvFloat("SERVICE_FEE", 0),
		DeliveryFee:               getEnvFloat("DELIVERY_FEE", 0),
		PricingConfigPath:         getEnv("PRICING_CONFIG_PATH", ""),

		// Object store (S3-compatible)
		ObjectStoreEndpoint:        getEnv("OBJECT_STORE_ENDPOINT", ""),
		ObjectStoreRegion:          getEnv("OBJECT_STORE_REGION", "auto"),
		ObjectStoreAccessKeyID:     getEnv("OBJECT_STORE_ACCESS_KEY_ID", ""),
		ObjectStoreSecretAccessKey: getEnv("OBJECT_STORE_SECRET_ACCESS_KEY", ""),
		ObjectStoreBucket:          getEnv("OBJECT_STORE_BUCKET", ""),
		ObjectStorePublicBaseURL:   getEnv("OBJECT_STORE_PUBLIC_BASE_URL", ""),
		ObjectStoreStorageClass:    getEnv("OBJECT_STORE_STORAGE_CLASS", "STANDARD"),
	}

	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 5 * 1024 * 1024
	}
	if cfg.PlatformCommissionPercent < 0 {
		cfg.PlatformCommissionPercent = 0
	}
	if cfg.JWTSecret == "" && cfg.IsDevelopment() {
		cfg.JWTSecret = "dev-insecure-jwt-secret"
	}

	return cfg
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "local"
}

func (c Config) ObjectStoreEnabled() bool {
	return strings.TrimSpace(c.ObjectStoreEndpoint) != "" && strings.TrimSpace(c.ObjectStoreBucket) != ""
}

func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
