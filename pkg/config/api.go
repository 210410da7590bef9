package config

import "time"

// APIConfig holds runtime configuration for the catalog API service.
type APIConfig struct {
	Environment        string
	Addr               string
	MongoURI           string
	MongoDatabase      string
	JWTSecret          string
	SessionTTL         time.Duration
	AdminEmail         string
	AdminPassword      string
	AllowedOrigins     []string
	StoreTimeout       time.Duration
	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int
}

// LoadAPIConfig constructs an APIConfig from environment variables.
// MONGO_URI and JWT_SECRET carry no fallback on purpose: main treats an
// empty value as a fatal startup error.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:        GetString("APP_ENV", "development"),
		Addr:               GetString("API_ADDR", ":5000"),
		MongoURI:           GetString("MONGO_URI", ""),
		MongoDatabase:      GetString("MONGO_DATABASE", "catalog"),
		JWTSecret:          GetString("JWT_SECRET", ""),
		SessionTTL:         time.Duration(GetInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		AdminEmail:         GetString("ADMIN_EMAIL", "demo@demo.com"),
		AdminPassword:      GetString("ADMIN_PASSWORD", "demo112233"),
		AllowedOrigins:     GetStrings("ALLOWED_ORIGINS", nil),
		StoreTimeout:       time.Duration(GetInt("STORE_TIMEOUT_SECONDS", 5)) * time.Second,
		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", 0),
	}
}
