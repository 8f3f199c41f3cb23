package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Firebase    FirebaseConfig
	Avatar      AvatarConfig
	Events      EventsConfig
	Geolocation GeolocationConfig
	Currency    CurrencyConfig
	Auth        AuthConfig
	App         AppConfig
}

type ServerConfig struct {
	Port            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// DatabaseConfig accepts either DB_DSN or the individual host fields.
type DatabaseConfig struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type FirebaseConfig struct {
	ProjectID                string
	CredentialsPath          string
	APIKey                   string
	StorageBucket            string
	RequireEmailConfirmation bool
}

// AvatarConfig selects where profile pictures go: "gcs", "s3" or "" for none.
type AvatarConfig struct {
	Backend   string
	Bucket    string
	Region    string
	PublicURL string
	MaxBytes  int64
}

// EventsConfig selects the auth-change bus: "redis" or "nats".
type EventsConfig struct {
	Backend string
	Channel string
	NATSURL string
}

type GeolocationConfig struct {
	Endpoint          string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

type CurrencyConfig struct {
	HomeCountry      string
	HomeCurrency     string
	SecondaryDefault string
	UltimateFallback string
	DefaultMarkup    float64
	RefreshSchedule  string
	LogTimeout       time.Duration
}

type AuthConfig struct {
	ProfileTimeout time.Duration
	SessionTTL     time.Duration
	LocalPrefix    string
	SessionPrefix  string
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
	ServiceName string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			DSN:      getEnv("DB_DSN", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "marketplace"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Firebase: FirebaseConfig{
			ProjectID:                getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsPath:          getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			APIKey:                   getEnv("FIREBASE_API_KEY", ""),
			StorageBucket:            getEnv("FIREBASE_STORAGE_BUCKET", ""),
			RequireEmailConfirmation: getEnvAsBool("AUTH_REQUIRE_EMAIL_CONFIRMATION", true),
		},
		Avatar: AvatarConfig{
			Backend:   strings.ToLower(getEnv("AVATAR_BACKEND", "gcs")),
			Bucket:    getEnv("AVATAR_BUCKET", ""),
			Region:    getEnv("AVATAR_REGION", "us-east-1"),
			PublicURL: getEnv("AVATAR_PUBLIC_URL", ""),
			MaxBytes:  int64(getEnvAsInt("AVATAR_MAX_BYTES", 5<<20)),
		},
		Events: EventsConfig{
			Backend: strings.ToLower(getEnv("AUTH_EVENTS_BACKEND", "redis")),
			Channel: getEnv("AUTH_EVENTS_CHANNEL", "auth.changes"),
			NATSURL: getEnv("NATS_URL", "nats://localhost:4222"),
		},
		Geolocation: GeolocationConfig{
			Endpoint:          getEnv("GEO_ENDPOINT", "https://ipapi.co"),
			Timeout:           getEnvAsDuration("GEO_TIMEOUT", 10*time.Second),
			RequestsPerSecond: getEnvAsFloat("GEO_RPS", 1),
			Burst:             getEnvAsInt("GEO_BURST", 5),
		},
		Currency: CurrencyConfig{
			HomeCountry:      getEnv("CURRENCY_HOME_COUNTRY", "NG"),
			HomeCurrency:     getEnv("CURRENCY_HOME", "NGN"),
			SecondaryDefault: getEnv("CURRENCY_SECONDARY_DEFAULT", "USD"),
			UltimateFallback: getEnv("CURRENCY_FALLBACK", "NGN"),
			DefaultMarkup:    getEnvAsFloat("CURRENCY_DEFAULT_MARKUP", 2.5),
			RefreshSchedule:  getEnv("CURRENCY_REFRESH_SCHEDULE", "0 0 0 * * *"),
			LogTimeout:       getEnvAsDuration("CURRENCY_LOG_TIMEOUT", 5*time.Second),
		},
		Auth: AuthConfig{
			ProfileTimeout: getEnvAsDuration("AUTH_PROFILE_TIMEOUT", 15*time.Second),
			SessionTTL:     getEnvAsDuration("AUTH_SESSION_TTL", 12*time.Hour),
			LocalPrefix:    getEnv("AUTH_LOCAL_PREFIX", "auth:local:"),
			SessionPrefix:  getEnv("AUTH_SESSION_PREFIX", "auth:session:"),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			ServiceName: getEnv("SERVICE_NAME", "marketplace-core"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.DSN == "" && c.Database.Host == "" {
		return fmt.Errorf("DB_DSN or DB_HOST is required")
	}

	if c.Firebase.ProjectID == "" {
		return fmt.Errorf("FIREBASE_PROJECT_ID is required")
	}

	if c.Firebase.APIKey == "" {
		return fmt.Errorf("FIREBASE_API_KEY is required")
	}

	switch c.Avatar.Backend {
	case "", "gcs":
	case "s3":
		if c.Avatar.Bucket == "" {
			return fmt.Errorf("AVATAR_BUCKET is required for the s3 avatar backend")
		}
	default:
		return fmt.Errorf("AVATAR_BACKEND must be gcs or s3, got %q", c.Avatar.Backend)
	}

	switch c.Events.Backend {
	case "redis", "nats":
	default:
		return fmt.Errorf("AUTH_EVENTS_BACKEND must be redis or nats, got %q", c.Events.Backend)
	}

	if c.Currency.DefaultMarkup < 0 {
		return fmt.Errorf("CURRENCY_DEFAULT_MARKUP must not be negative")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean for %s, using default: %t", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
