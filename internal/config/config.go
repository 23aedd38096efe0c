package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port        string
	Env         string
	APIUrl      string
	FrontendURL string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBTimeZone string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// JWT
	JWTSecret               string
	JWTAccessTokenDuration  time.Duration
	JWTRefreshTokenDuration time.Duration

	// Remote worker. When empty, project saves go directly to the
	// key-value store instead of the HTTP endpoint.
	WorkerBaseURL string
	WorkerTimeout time.Duration

	// Image hosting (S3-compatible)
	HostingS3Endpoint        string
	HostingS3Region          string
	HostingS3AccessKeyID     string
	HostingS3SecretAccessKey string
	HostingS3UsePathStyle    bool
	HostingBucket            string
	HostingPublicURL         string

	// AI render provider
	AIBaseURL      string
	AIAPIKey       string
	AIProvider     string
	AIModel        string
	AIRenderWidth  int
	AIRenderHeight int
	AITimeout      time.Duration

	// Uploads
	UploadMaxImageSize int64
	ListIncludePublic  bool

	// Reconciliation
	ReconcileInterval time.Duration

	// Security
	BcryptCost        int
	RateLimitRequests int
	RateLimitDuration time.Duration

	// CORS
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

func New() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		APIUrl:      getEnv("API_URL", "http://localhost:8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "roomify"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "roomify_db"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),
		DBTimeZone: getEnv("DB_TIMEZONE", "UTC"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// JWT
		JWTSecret:               getEnv("JWT_SECRET", "your-secret-key"),
		JWTAccessTokenDuration:  getEnvAsDuration("JWT_ACCESS_TOKEN_DURATION", "1h"),
		JWTRefreshTokenDuration: getEnvAsDuration("JWT_REFRESH_TOKEN_DURATION", "168h"),

		// Worker
		WorkerBaseURL: getEnv("WORKER_BASE_URL", ""),
		WorkerTimeout: getEnvAsDuration("WORKER_TIMEOUT", "15s"),

		// Image hosting
		HostingS3Endpoint:        getEnv("HOSTING_S3_ENDPOINT", ""),
		HostingS3Region:          getEnv("HOSTING_S3_REGION", "us-east-1"),
		HostingS3AccessKeyID:     getEnv("HOSTING_S3_ACCESS_KEY_ID", ""),
		HostingS3SecretAccessKey: getEnv("HOSTING_S3_SECRET_ACCESS_KEY", ""),
		HostingS3UsePathStyle:    getEnv("HOSTING_S3_USE_PATH_STYLE", "true") == "true",
		HostingBucket:            getEnv("HOSTING_BUCKET", "roomify-images"),
		HostingPublicURL:         getEnv("HOSTING_PUBLIC_URL", ""),

		// AI render provider
		AIBaseURL:      getEnv("AI_BASE_URL", ""),
		AIAPIKey:       getEnv("AI_API_KEY", ""),
		AIProvider:     getEnv("AI_PROVIDER", "gemini"),
		AIModel:        getEnv("AI_MODEL", "gemini-2.5-flash-image-preview"),
		AIRenderWidth:  getEnvAsInt("AI_RENDER_WIDTH", 1024),
		AIRenderHeight: getEnvAsInt("AI_RENDER_HEIGHT", 1024),
		AITimeout:      getEnvAsDuration("AI_TIMEOUT", "120s"),

		// Uploads
		UploadMaxImageSize: int64(getEnvAsInt("UPLOAD_MAX_IMAGE_SIZE", 50*1024*1024)),
		ListIncludePublic:  getEnv("LIST_INCLUDE_PUBLIC", "true") == "true",

		// Reconciliation
		ReconcileInterval: getEnvAsDuration("RECONCILE_INTERVAL", "5m"),

		// Security
		BcryptCost:        getEnvAsInt("BCRYPT_COST", 12),
		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitDuration: getEnvAsDuration("RATE_LIMIT_DURATION", "1m"),

		// CORS
		AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		AllowedMethods: getEnvAsSlice("ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		AllowedHeaders: getEnvAsSlice("ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	if duration, err := time.ParseDuration(defaultValue); err == nil {
		return duration
	}
	return time.Hour
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}
