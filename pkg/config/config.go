package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store backend selectors.
const (
	StoreBackendFile     = "file"
	StoreBackendSQLite   = "sqlite"
	StoreBackendPostgres = "postgres"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	JWT      JWTConfig
	Operator OperatorConfig
	CORS     CORSConfig
	Log      LogConfig
	Queue    QueueConfig
	Limits   LimitsConfig
	Download DownloadConfig
	Ingest   IngestConfig
	Exports  ExportsConfig
}

// StoreConfig selects and locates the snapshot persistence backend.
type StoreConfig struct {
	Backend    string
	DataDir    string
	SQLitePath string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig tunes the Redis-backed stats/response cache.
type CacheConfig struct {
	Enabled  bool
	StatsTTL time.Duration
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

// OperatorConfig holds the single operator account allowed to log in.
type OperatorConfig struct {
	Username     string
	PasswordHash string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// QueueConfig tunes the download dispatch pipeline.
type QueueConfig struct {
	Slots         int
	Autostart     bool
	MaxRetries    int
	RetryDelay    time.Duration
	OverrideSlots int
}

// LimitsConfig holds per-download thresholds. Zero disables a threshold.
type LimitsConfig struct {
	MaxItems  int
	MaxTime   time.Duration
	MaxSizeMB float64
}

// DownloadConfig locates the external download tool.
type DownloadConfig struct {
	Bin       string
	ExtraArgs []string
	TargetDir string
}

// IngestConfig governs link-file ingestion and the scheduled directory sweep.
type IngestConfig struct {
	LinkFilesDir        string
	TrimTrailingClosers bool
	ScanEnabled         bool
	ScanSchedule        string
	WorkerRetries       int
}

// ExportsConfig controls report generation and signed download URLs.
type ExportsConfig struct {
	Enabled         bool
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Store = StoreConfig{
		Backend:    v.GetString("STORE_BACKEND"),
		DataDir:    v.GetString("DATA_DIR"),
		SQLitePath: v.GetString("SQLITE_PATH"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Cache = CacheConfig{
		Enabled:  v.GetBool("ENABLE_CACHE"),
		StatsTTL: parseDuration(v.GetString("STATS_CACHE_TTL"), 30*time.Second),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.Operator = OperatorConfig{
		Username:     v.GetString("OPERATOR_USERNAME"),
		PasswordHash: v.GetString("OPERATOR_PASSWORD_HASH"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Queue = QueueConfig{
		Slots:         v.GetInt("QUEUE_SLOTS"),
		Autostart:     v.GetBool("QUEUE_AUTOSTART"),
		MaxRetries:    v.GetInt("QUEUE_MAX_RETRIES"),
		RetryDelay:    parseDuration(v.GetString("QUEUE_RETRY_DELAY"), 5*time.Second),
		OverrideSlots: v.GetInt("OVERRIDE_SLOTS"),
	}

	cfg.Limits = LimitsConfig{
		MaxItems:  v.GetInt("LIMIT_MAX_ITEMS"),
		MaxTime:   time.Duration(v.GetInt("LIMIT_MAX_SECONDS")) * time.Second,
		MaxSizeMB: v.GetFloat64("LIMIT_MAX_SIZE_MB"),
	}

	cfg.Download = DownloadConfig{
		Bin:       v.GetString("GALLERY_DL_BIN"),
		ExtraArgs: splitAndTrim(v.GetString("GALLERY_DL_ARGS")),
		TargetDir: v.GetString("DOWNLOAD_DIR"),
	}

	cfg.Ingest = IngestConfig{
		LinkFilesDir:        v.GetString("LINK_FILES_DIR"),
		TrimTrailingClosers: v.GetBool("TRIM_TRAILING_CLOSERS"),
		ScanEnabled:         v.GetBool("INGEST_SCAN_ENABLED"),
		ScanSchedule:        v.GetString("INGEST_SCAN_SCHEDULE"),
		WorkerRetries:       v.GetInt("INGEST_WORKER_RETRIES"),
	}

	cfg.Exports = ExportsConfig{
		Enabled:         v.GetBool("ENABLE_EXPORTS"),
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STORE_BACKEND", StoreBackendFile)
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("SQLITE_PATH", "./data/garden.db")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "link_garden")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("STATS_CACHE_TTL", "30s")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("OPERATOR_USERNAME", "operator")
	v.SetDefault("OPERATOR_PASSWORD_HASH", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("QUEUE_SLOTS", 1)
	v.SetDefault("QUEUE_AUTOSTART", false)
	v.SetDefault("QUEUE_MAX_RETRIES", 3)
	v.SetDefault("QUEUE_RETRY_DELAY", "5s")
	v.SetDefault("OVERRIDE_SLOTS", 1)

	v.SetDefault("LIMIT_MAX_ITEMS", 1000)
	v.SetDefault("LIMIT_MAX_SECONDS", 3600)
	v.SetDefault("LIMIT_MAX_SIZE_MB", 500)

	v.SetDefault("GALLERY_DL_BIN", "gallery-dl")
	v.SetDefault("GALLERY_DL_ARGS", "")
	v.SetDefault("DOWNLOAD_DIR", "./downloads")

	v.SetDefault("LINK_FILES_DIR", "./link_files")
	v.SetDefault("TRIM_TRAILING_CLOSERS", false)
	v.SetDefault("INGEST_SCAN_ENABLED", false)
	v.SetDefault("INGEST_SCAN_SCHEDULE", "*/5 * * * *")
	v.SetDefault("INGEST_WORKER_RETRIES", 0)

	v.SetDefault("ENABLE_EXPORTS", false)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
