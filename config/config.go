package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	RateLimit  RateLimitConfig
	Import     ImportConfig
	Cache      CacheConfig
	Log        LogConfig
	Bootstrap  BootstrapConfig
	BcryptCost int
}

type ServerConfig struct {
	Port           string
	Environment    string
	CORSOrigin     string
	MaxUploadBytes int64
	// TrustedProxies are the CIDRs or IPs allowed to set X-Forwarded-For.
	// Empty means the client IP is always the socket peer.
	TrustedProxies []string
}

func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver          string
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN prefers DATABASE_URL when it is set.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type RateLimitConfig struct {
	Window time.Duration
	Max    int
}

type ImportConfig struct {
	BatchSize int
	Workers   int
}

type CacheConfig struct {
	Backend  string
	StatsTTL time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type BootstrapConfig struct {
	AdminEmail    string
	AdminUsername string
	AdminPassword string
}

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: No .env file found, using environment variables")
	}
}

func GetEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func GetEnvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return fallback
	}
	return n
}

func GetEnvBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(val))
	if err != nil {
		return fallback
	}
	return b
}

// GetEnvList splits a comma separated value, dropping blank entries.
func GetEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetEnvDuration accepts Go durations ("15m") or plain milliseconds ("900000").
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	if ms, err := strconv.ParseInt(val, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return d
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           GetEnv("PORT", "8080"),
			Environment:    GetEnv("APP_ENV", "development"),
			CORSOrigin:     GetEnv("CORS_ORIGIN", "http://localhost:3001"),
			MaxUploadBytes: int64(GetEnvInt("MAX_UPLOAD_MB", 100)) << 20,
			TrustedProxies: GetEnvList("TRUSTED_PROXIES"),
		},
		Database: DatabaseConfig{
			Driver:          GetEnv("DB_DRIVER", "postgres"),
			URL:             GetEnv("DATABASE_URL", ""),
			Host:            GetEnv("DB_HOST", "localhost"),
			Port:            GetEnvInt("DB_PORT", 5432),
			User:            GetEnv("DB_USER", "postgres"),
			Password:        GetEnv("DB_PASSWORD", ""),
			Name:            GetEnv("DB_NAME", "election_observer"),
			SSLMode:         GetEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    GetEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    GetEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: GetEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     GetEnv("REDIS_URI", "localhost:6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:     GetEnv("JWT_SECRET", ""),
			AccessTTL:  GetEnvDuration("JWT_EXPIRES_IN", 24*time.Hour),
			RefreshTTL: GetEnvDuration("JWT_REFRESH_EXPIRES_IN", 7*24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Window: GetEnvDuration("RATE_LIMIT_WINDOW_MS", 15*time.Minute),
			Max:    GetEnvInt("RATE_LIMIT_MAX_REQUESTS", 100),
		},
		Import: ImportConfig{
			BatchSize: clamp(GetEnvInt("IMPORT_BATCH_SIZE", 250), 100, 500),
			Workers:   GetEnvInt("IMPORT_WORKERS", 16),
		},
		Cache: CacheConfig{
			Backend:  GetEnv("CACHE_BACKEND", "redis"),
			StatsTTL: GetEnvDuration("STATS_CACHE_TTL", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  GetEnv("LOG_LEVEL", "info"),
			Format: GetEnv("LOG_FORMAT", "json"),
		},
		Bootstrap: BootstrapConfig{
			AdminEmail:    GetEnv("ADMIN_EMAIL", ""),
			AdminUsername: GetEnv("ADMIN_USERNAME", "admin"),
			AdminPassword: GetEnv("ADMIN_PASSWORD", ""),
		},
		BcryptCost: GetEnvInt("BCRYPT_ROUNDS", 12),
	}

	if cfg.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "sqlite" {
		return nil, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", cfg.Database.Driver)
	}
	if cfg.Import.Workers < 1 {
		cfg.Import.Workers = 1
	}
	if cfg.RateLimit.Max < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_MAX_REQUESTS must be positive, got %d", cfg.RateLimit.Max)
	}
	return cfg, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
