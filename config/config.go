package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Admin    AdminConfig
	Quiz     QuizConfig
	Client   ClientConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/moodquiz?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AdminConfig gates the admin dashboard endpoints.
type AdminConfig struct {
	PasswordHash string // bcrypt; empty disables admin auth
}

// QuizConfig describes the fixed question set and the Likert range.
type QuizConfig struct {
	QuestionsFile string
	ScoreMin      int
	ScoreMax      int
}

// ClientConfig holds settings for the offline-first client (worker, dashboard).
type ClientConfig struct {
	APIBaseURL      string
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	HealthTimeout   time.Duration
	LocalStore      string // sqlite | redis | memory
	SQLitePath      string
	RedisPrefix     string
	SyncMode        string // records | batch
	SyncConcurrency int
	SyncInterval    time.Duration
	AdminToken      string
}

// AdminAuthEnabled reports whether admin routes require a JWT.
func (c AdminConfig) AdminAuthEnabled() bool {
	return c.PasswordHash != ""
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	jwtExpire, _ := strconv.Atoi(getEnv("JWT_EXPIRE_HOURS", "12"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "moodquiz"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: jwtExpire,
		},
		Admin: AdminConfig{
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		},
		Quiz: QuizConfig{
			QuestionsFile: getEnv("QUESTIONS_FILE", ""),
			ScoreMin:      getEnvInt("SCORE_MIN", 1),
			ScoreMax:      getEnvInt("SCORE_MAX", 5),
		},
		Client: ClientConfig{
			APIBaseURL:      strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8080"), "/"),
			WriteTimeout:    getEnvMillis("CLIENT_WRITE_TIMEOUT_MS", 3000),
			ReadTimeout:     getEnvMillis("CLIENT_READ_TIMEOUT_MS", 5000),
			HealthTimeout:   getEnvMillis("CLIENT_HEALTH_TIMEOUT_MS", 2000),
			LocalStore:      strings.ToLower(getEnv("LOCAL_STORE", "sqlite")),
			SQLitePath:      getEnv("LOCAL_SQLITE_PATH", "moodquiz-local.db"),
			RedisPrefix:     getEnv("LOCAL_REDIS_PREFIX", "moodquiz:local:"),
			SyncMode:        strings.ToLower(getEnv("SYNC_MODE", "records")),
			SyncConcurrency: getEnvInt("SYNC_CONCURRENCY", 8),
			SyncInterval:    time.Duration(getEnvInt("SYNC_INTERVAL_SEC", 60)) * time.Second,
			AdminToken:      getEnv("ADMIN_TOKEN", ""),
		},
	}
	if cfg.Quiz.ScoreMin > cfg.Quiz.ScoreMax {
		return nil, fmt.Errorf("invalid score range %d..%d", cfg.Quiz.ScoreMin, cfg.Quiz.ScoreMax)
	}
	switch cfg.Client.LocalStore {
	case "sqlite", "redis", "memory":
	default:
		return nil, fmt.Errorf("unknown LOCAL_STORE %q", cfg.Client.LocalStore)
	}
	switch cfg.Client.SyncMode {
	case "records", "batch":
	default:
		return nil, fmt.Errorf("unknown SYNC_MODE %q", cfg.Client.SyncMode)
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvMillis(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Millisecond
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
