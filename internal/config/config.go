package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers understood by storage.Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMinIO    = "minio"
	DriverMemory   = "memory"
)

type API struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type MinIO struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	BucketName string `yaml:"bucket_name"`
	UseSSL     bool   `yaml:"use_ssl"`
	Region     string `yaml:"region"`
	Prefix     string `yaml:"prefix"`
}

// Store selects where the client keeps its persisted credentials.
type Store struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Redis  Redis  `yaml:"redis"`
	MinIO  MinIO  `yaml:"minio"`
}

type Session struct {
	// PurgeRejectedToken removes a token the backend refused from the store.
	PurgeRejectedToken bool `yaml:"purge_rejected_token"`
}

type DB struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Server configures the development backend started by cmd/api.
type Server struct {
	Port          int           `yaml:"port"`
	DB            DB            `yaml:"db"`
	JWTSecretKey  string        `yaml:"jwt_secret_key"`
	TokenDuration time.Duration `yaml:"token_duration"`
	// RateLimit is requests per second across all clients; 0 disables it.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

type Config struct {
	API      API     `yaml:"api"`
	Store    Store   `yaml:"store"`
	Session  Session `yaml:"session"`
	Server   Server  `yaml:"server"`
	LogLevel string  `yaml:"log_level"`
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		return parseDuration(value, fallback)
	}
	return fallback
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return duration
}

// Default returns the configuration used when neither a file nor the
// environment say otherwise.
func Default() *Config {
	return &Config{
		API: API{
			BaseURL: "http://localhost:5000",
			Timeout: 15 * time.Second,
		},
		Store: Store{
			Driver: DriverSQLite,
			DSN:    defaultStorePath(),
			Redis: Redis{
				Addr:   "127.0.0.1:6379",
				Prefix: "goodthings:",
			},
			MinIO: MinIO{
				Endpoint:   "localhost:9000",
				AccessKey:  "minioadmin",
				SecretKey:  "minioadmin",
				BucketName: "goodthings",
				Region:     "us-east-1",
				Prefix:     "credentials/",
			},
		},
		Session: Session{PurgeRejectedToken: true},
		Server: Server{
			Port:          5000,
			DB:            DB{Driver: DriverSQLite, DSN: "goodthings-server.db"},
			TokenDuration: 24 * time.Hour,
			RateLimit:     50,
			RateBurst:     100,
		},
		LogLevel: "info",
	}
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "goodthings.db"
	}
	return filepath.Join(dir, "goodthings", "credentials.db")
}

// LoadFromFile overlays a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.API.BaseURL = getEnv("API_BASE_URL", cfg.API.BaseURL)
	cfg.API.Timeout = getEnvDuration("API_TIMEOUT", cfg.API.Timeout)

	cfg.Store.Driver = getEnv("STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.DSN = getEnv("STORE_DSN", cfg.Store.DSN)
	cfg.Store.Redis.Addr = getEnv("REDIS_ADDR", cfg.Store.Redis.Addr)
	cfg.Store.Redis.Username = getEnv("REDIS_USERNAME", cfg.Store.Redis.Username)
	cfg.Store.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Store.Redis.Password)
	cfg.Store.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Store.Redis.DB)
	cfg.Store.Redis.Prefix = getEnv("REDIS_PREFIX", cfg.Store.Redis.Prefix)
	cfg.Store.MinIO.Endpoint = getEnv("MINIO_ENDPOINT", cfg.Store.MinIO.Endpoint)
	cfg.Store.MinIO.AccessKey = getEnv("MINIO_ACCESS_KEY", cfg.Store.MinIO.AccessKey)
	cfg.Store.MinIO.SecretKey = getEnv("MINIO_SECRET_KEY", cfg.Store.MinIO.SecretKey)
	cfg.Store.MinIO.BucketName = getEnv("MINIO_BUCKET_NAME", cfg.Store.MinIO.BucketName)
	cfg.Store.MinIO.UseSSL = getEnvBool("MINIO_USE_SSL", cfg.Store.MinIO.UseSSL)
	cfg.Store.MinIO.Region = getEnv("MINIO_REGION", cfg.Store.MinIO.Region)
	cfg.Store.MinIO.Prefix = getEnv("MINIO_PREFIX", cfg.Store.MinIO.Prefix)

	cfg.Session.PurgeRejectedToken = getEnvBool("PURGE_REJECTED_TOKEN", cfg.Session.PurgeRejectedToken)

	cfg.Server.Port = getEnvAsInt("SERVER_PORT", cfg.Server.Port)
	cfg.Server.DB.Driver = getEnv("DB_DRIVER", cfg.Server.DB.Driver)
	cfg.Server.DB.DSN = getEnv("DB_DSN", cfg.Server.DB.DSN)
	cfg.Server.JWTSecretKey = getEnv("JWT_SECRET_KEY", cfg.Server.JWTSecretKey)
	cfg.Server.TokenDuration = getEnvDuration("TOKEN_DURATION", cfg.Server.TokenDuration)
	cfg.Server.RateLimit = getEnvAsFloat("RATE_LIMIT", cfg.Server.RateLimit)
	cfg.Server.RateBurst = getEnvAsInt("RATE_BURST", cfg.Server.RateBurst)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
}

// LoadConfig builds the configuration: defaults, then the YAML file named by
// GOODTHINGS_CONFIG (if any), then .env and process environment.
func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg := Default()
	if path := os.Getenv("GOODTHINGS_CONFIG"); path != "" {
		cfg, err = LoadFromFile(path)
		if err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the client-side settings.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}

	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for driver %s", c.Store.Driver)
		}
	case DriverRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required")
		}
	case DriverMinIO:
		if c.Store.MinIO.Endpoint == "" || c.Store.MinIO.BucketName == "" {
			return fmt.Errorf("store.minio.endpoint and store.minio.bucket_name are required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported store driver: %s", c.Store.Driver)
	}

	return nil
}
