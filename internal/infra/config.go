package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend selectors.
const (
	BackendPostgres   = "postgres"
	BackendMemory     = "memory"
	BackendSupabase   = "supabase"
	BlobFilesystem    = "filesystem"
	BlobS3            = "s3"
	BlobRemote        = "remote"
	EnvDevelopment    = "development"
	defaultUploadSize = 10 << 20
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv          string
	Port            string
	DatabaseURL     string
	JWTSecret       string
	JWTTTL          time.Duration
	TelegramToken   string
	AdminToken      string
	GeoIPDBPath     string
	CORSOrigins     []string
	RateLimitPerMin int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	StoreBackend       string
	HistoryBackend     string
	SupabaseURL        string
	SupabaseServiceKey string
	RedisURL           string
	SubmitGuardTTL     time.Duration

	KieAPIKey      string
	KieBaseURL     string
	KieCallbackURL string
	CatalogPath    string

	PollInterval     time.Duration
	PollCheckTimeout time.Duration
	PollConcurrency  int
	RefundPolicy     string

	BlobBackend       string
	StoragePath       string
	StorageBaseURL    string
	S3Endpoint        string
	S3Region          string
	S3Bucket          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PublicBaseURL   string
	UploadRemoteURL   string
	UploadMaxBytes    int64
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:          getEnv("APP_ENV", EnvDevelopment),
		Port:            port,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		JWTTTL:          getEnvDuration("JWT_TTL_SECONDS", 7*24*time.Hour),
		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		AdminToken:      os.Getenv("ADMIN_TOKEN"),
		GeoIPDBPath:     os.Getenv("GEOIP_DB_PATH"),
		CORSOrigins:     splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		HTTPReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT_SECONDS", 15*time.Second),
		HTTPWriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT_SECONDS", 60*time.Second),
		HTTPIdleTimeout:  getEnvDuration("HTTP_IDLE_TIMEOUT_SECONDS", 60*time.Second),

		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", BackendPostgres)),
		HistoryBackend:     strings.ToLower(os.Getenv("HISTORY_BACKEND")),
		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_KEY"),
		RedisURL:           os.Getenv("REDIS_URL"),
		SubmitGuardTTL:     getEnvDuration("SUBMIT_GUARD_TTL_SECONDS", 60*time.Second),

		KieAPIKey:      os.Getenv("KIE_API_KEY"),
		KieBaseURL:     getEnv("KIE_BASE_URL", "https://api.kie.ai"),
		KieCallbackURL: os.Getenv("KIE_CALLBACK_URL"),
		CatalogPath:    os.Getenv("CATALOG_PATH"),

		PollInterval:     getEnvDuration("POLL_INTERVAL_SECONDS", 5*time.Second),
		PollCheckTimeout: getEnvDuration("POLL_CHECK_TIMEOUT_SECONDS", 15*time.Second),
		PollConcurrency:  getEnvInt("POLL_CONCURRENCY", 8),
		RefundPolicy:     strings.ToLower(getEnv("REFUND_POLICY", "none")),

		BlobBackend:       strings.ToLower(getEnv("BLOB_BACKEND", BlobFilesystem)),
		StoragePath:       getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:    getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/static"),
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3Region:          getEnv("S3_REGION", "auto"),
		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3PublicBaseURL:   os.Getenv("S3_PUBLIC_BASE_URL"),
		UploadRemoteURL:   os.Getenv("UPLOAD_REMOTE_URL"),
		UploadMaxBytes:    int64(getEnvInt("UPLOAD_MAX_BYTES", defaultUploadSize)),
	}
	if cfg.HistoryBackend == "" {
		cfg.HistoryBackend = cfg.StoreBackend
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.StoreBackend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	case BackendMemory:
	default:
		return nil, fmt.Errorf("STORE_BACKEND %q is not supported", cfg.StoreBackend)
	}
	switch cfg.HistoryBackend {
	case BackendPostgres, BackendMemory:
		if cfg.HistoryBackend != cfg.StoreBackend {
			return nil, fmt.Errorf("HISTORY_BACKEND %q must match STORE_BACKEND %q", cfg.HistoryBackend, cfg.StoreBackend)
		}
	case BackendSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
			return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required for the supabase history backend")
		}
	default:
		return nil, fmt.Errorf("HISTORY_BACKEND %q is not supported", cfg.HistoryBackend)
	}
	switch cfg.BlobBackend {
	case BlobFilesystem:
	case BlobS3:
		if cfg.S3Bucket == "" || cfg.S3PublicBaseURL == "" {
			return nil, fmt.Errorf("S3_BUCKET and S3_PUBLIC_BASE_URL are required for the s3 blob backend")
		}
	case BlobRemote:
		if cfg.UploadRemoteURL == "" {
			return nil, fmt.Errorf("UPLOAD_REMOTE_URL is required for the remote blob backend")
		}
	default:
		return nil, fmt.Errorf("BLOB_BACKEND %q is not supported", cfg.BlobBackend)
	}
	if cfg.RefundPolicy != "none" && cfg.RefundPolicy != "refund" {
		return nil, fmt.Errorf("REFUND_POLICY %q is not supported", cfg.RefundPolicy)
	}

	return cfg, nil
}

// IsDevelopment reports whether strict development behavior applies.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvDuration reads a whole number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if secs := getEnvInt(key, -1); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
