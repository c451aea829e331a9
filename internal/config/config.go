package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Store drivers
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config is the process configuration read from the environment
type Config struct {
	Port               string
	AppURL             string
	StoreDriver        string
	MongoURI           string
	MongoDatabase      string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	EncryptionKey      string
	InstallTimeout     time.Duration
	InstallLockTTL     time.Duration
	TrackingScriptURL  string
	ShopifyAPIKey      string
	ShopifyAPISecret   string
	LogLevel           zerolog.Level
	CORSAllowedOrigins []string
}

// Load reads .env when present and then the environment. The returned bool
// reports whether a .env file was found.
func Load() (Config, bool) {
	found := godotenv.Load() == nil
	return FromEnv(), found
}

// FromEnv reads the configuration from environment variables
func FromEnv() Config {
	level, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return Config{
		Port:               envOr("PORT", "8080"),
		AppURL:             envOr("APP_URL", "http://localhost:8080"),
		StoreDriver:        strings.ToLower(envOr("STORE_DRIVER", DriverMongo)),
		MongoURI:           envOr("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:      envOr("MONGODB_DATABASE", "attribution"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            envInt("REDIS_DB", 0),
		EncryptionKey:      os.Getenv("ENCRYPTION_KEY"),
		InstallTimeout:     time.Duration(envInt("INSTALL_TIMEOUT_SECONDS", 60)) * time.Second,
		InstallLockTTL:     time.Duration(envInt("INSTALL_LOCK_TTL_SECONDS", 120)) * time.Second,
		TrackingScriptURL:  os.Getenv("TRACKING_SCRIPT_URL"),
		ShopifyAPIKey:      os.Getenv("SHOPIFY_API_KEY"),
		ShopifyAPISecret:   os.Getenv("SHOPIFY_API_SECRET"),
		LogLevel:           level,
		CORSAllowedOrigins: envList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}
}

// Validate rejects configurations the process cannot start with
func (c Config) Validate() error {
	if c.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY environment variable is required")
	}
	switch c.StoreDriver {
	case DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want %s or %s)", c.StoreDriver, DriverMongo, DriverMemory)
	}
	if c.InstallTimeout <= 0 {
		return fmt.Errorf("INSTALL_TIMEOUT_SECONDS must be positive")
	}
	if c.InstallLockTTL < c.InstallTimeout {
		return fmt.Errorf("INSTALL_LOCK_TTL_SECONDS must not be shorter than INSTALL_TIMEOUT_SECONDS")
	}
	return nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envList(k string, def []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
