package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Kafka      KafkaConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	Storage    StorageConfig
	Background BackgroundConfig
	CORS       CORSConfig
	Log        LogConfig
}

// ServerConfig holds HTTP server configuration.
// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For header is honoured.
type ServerConfig struct {
	Port            string
	Host            string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
	TrustedProxies  []string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig holds Kafka configuration.
// An empty broker list disables both the producer and the price consumer.
type KafkaConfig struct {
	Brokers       []string
	AnalysisTopic string
	PriceTopic    string
	GroupID       string
}

// RedisConfig holds Redis configuration used by the rate limiter
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RateLimitConfig holds the per-client limit applied to the analyze endpoint
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

// StorageConfig holds S3-compatible object storage configuration
type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	PublicBaseURL   string
	UsePathStyle    bool
	PublicRead      bool
}

// BackgroundConfig controls the detached archive worker
type BackgroundConfig struct {
	Enabled     bool
	Workers     int
	QueueSize   int
	JobTimeout  time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// CORSConfig holds allowed browser origins
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Pretty bool
}

// Load reads configuration from environment variables.
// A .env file in the working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			MaxUploadBytes:  int64(getEnvInt("SERVER_MAX_UPLOAD_BYTES", 10<<20)),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedProxies:  getEnvList("SERVER_TRUSTED_PROXIES", nil),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "etfservice"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvList("KAFKA_BROKERS", nil),
			AnalysisTopic: getEnv("KAFKA_ANALYSIS_TOPIC", "etf-analysis-events"),
			PriceTopic:    getEnv("KAFKA_PRICE_TOPIC", "security-price-events"),
			GroupID:       getEnv("KAFKA_GROUP_ID", "etf-service"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:  getEnvBool("RATE_LIMIT_ENABLED", true),
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 5),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Storage: StorageConfig{
			Bucket:          getEnv("STORAGE_BUCKET", ""),
			Region:          getEnv("STORAGE_REGION", "us-east-1"),
			Endpoint:        getEnv("STORAGE_ENDPOINT", ""),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("STORAGE_SECRET_ACCESS_KEY", ""),
			Prefix:          getEnv("STORAGE_PREFIX", "ETF"),
			PublicBaseURL:   getEnv("STORAGE_PUBLIC_BASE_URL", ""),
			UsePathStyle:    getEnvBool("STORAGE_USE_PATH_STYLE", false),
			PublicRead:      getEnvBool("STORAGE_PUBLIC_READ", true),
		},
		Background: BackgroundConfig{
			Enabled:     getEnvBool("BACKGROUND_TASKS_ENABLED", true),
			Workers:     getEnvInt("BACKGROUND_WORKERS", 2),
			QueueSize:   getEnvInt("BACKGROUND_QUEUE_SIZE", 100),
			JobTimeout:  getEnvDuration("BACKGROUND_JOB_TIMEOUT", 30*time.Second),
			MaxAttempts: getEnvInt("BACKGROUND_MAX_ATTEMPTS", 1),
			RetryDelay:  getEnvDuration("BACKGROUND_RETRY_DELAY", 2*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{
				"https://etf-web-wine.vercel.app",
				"http://localhost:3000",
				"http://localhost:5173",
			}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvBool("LOG_PRETTY", false),
		},
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Address returns the host:port the HTTP server listens on
func (s *ServerConfig) Address() string {
	return s.Host + ":" + s.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blank entries
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
