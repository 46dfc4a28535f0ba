package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Skolae      SkolaeConfig
	School      SchoolConfig
	Credentials CredentialsConfig
	Cache       CacheConfig
	Sync        SyncConfig
	Homework    HomeworkConfig
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

type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedHeaders []string
	MaxAge         time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// SkolaeConfig points the Skolae plugin at the Kordis authentication and API hosts.
type SkolaeConfig struct {
	AuthURL  string
	APIURL   string
	ClientID string
	Timeout  time.Duration
}

// SchoolConfig holds calendar conventions shared by every school plugin.
type SchoolConfig struct {
	Timezone string
}

// Location resolves the configured school time zone, falling back to UTC.
func (c SchoolConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CredentialsConfig configures at-rest sealing of vendor passwords.
type CredentialsConfig struct {
	Secret string
}

// CacheConfig governs caching of normalized school data.
type CacheConfig struct {
	Enabled      bool
	PeriodsTTL   time.Duration
	GradesTTL    time.Duration
	TimetableTTL time.Duration
}

// SyncConfig tunes the background warm-up queue.
type SyncConfig struct {
	Enabled    bool
	Workers    int
	Retries    int
	RetryDelay time.Duration
	Interval   time.Duration
}

// HomeworkConfig gates the custom homework endpoints.
type HomeworkConfig struct {
	Enabled bool
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

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

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 30*24*time.Hour),
	}

	cfg.CORS = CORSConfig{
		AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS")),
		AllowedHeaders: splitAndTrim(v.GetString("ALLOWED_HEADERS")),
		MaxAge:         parseDuration(v.GetString("CORS_MAX_AGE"), 10*time.Minute),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Skolae = SkolaeConfig{
		AuthURL:  strings.TrimRight(v.GetString("SKOLAE_AUTH_URL"), "/"),
		APIURL:   strings.TrimRight(v.GetString("SKOLAE_API_URL"), "/"),
		ClientID: v.GetString("SKOLAE_CLIENT_ID"),
		Timeout:  parseDuration(v.GetString("SKOLAE_TIMEOUT"), 20*time.Second),
	}

	cfg.School = SchoolConfig{Timezone: v.GetString("SCHOOL_TIMEZONE")}

	cfg.Credentials = CredentialsConfig{Secret: v.GetString("CREDENTIALS_SECRET")}

	cfg.Cache = CacheConfig{
		Enabled:      v.GetBool("ENABLE_CACHE"),
		PeriodsTTL:   parseDuration(v.GetString("PERIODS_CACHE_TTL"), 24*time.Hour),
		GradesTTL:    parseDuration(v.GetString("GRADES_CACHE_TTL"), 30*time.Minute),
		TimetableTTL: parseDuration(v.GetString("TIMETABLE_CACHE_TTL"), 15*time.Minute),
	}

	cfg.Sync = SyncConfig{
		Enabled:    v.GetBool("ENABLE_SYNC"),
		Workers:    v.GetInt("SYNC_WORKERS"),
		Retries:    v.GetInt("SYNC_RETRIES"),
		RetryDelay: parseDuration(v.GetString("SYNC_RETRY_DELAY"), 5*time.Second),
		Interval:   parseDuration(v.GetString("SYNC_INTERVAL"), 0),
	}

	cfg.Homework = HomeworkConfig{Enabled: v.GetBool("ENABLE_HOMEWORK")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "school_hub")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "school-hub-api")
	v.SetDefault("JWT_EXPIRATION", "720h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("ALLOWED_HEADERS", "Authorization,Content-Type,X-Requested-With,X-Request-ID")
	v.SetDefault("CORS_MAX_AGE", "10m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SKOLAE_AUTH_URL", "https://authentication.kordis.fr")
	v.SetDefault("SKOLAE_API_URL", "https://api.kordis.fr")
	v.SetDefault("SKOLAE_CLIENT_ID", "skolae-app")
	v.SetDefault("SKOLAE_TIMEOUT", "20s")
	v.SetDefault("SCHOOL_TIMEZONE", "Europe/Paris")

	v.SetDefault("CREDENTIALS_SECRET", "dev_credentials_secret")

	v.SetDefault("ENABLE_CACHE", true)
	v.SetDefault("PERIODS_CACHE_TTL", "24h")
	v.SetDefault("GRADES_CACHE_TTL", "30m")
	v.SetDefault("TIMETABLE_CACHE_TTL", "15m")

	v.SetDefault("ENABLE_SYNC", false)
	v.SetDefault("SYNC_WORKERS", 2)
	v.SetDefault("SYNC_RETRIES", 2)
	v.SetDefault("SYNC_RETRY_DELAY", "5s")
	v.SetDefault("SYNC_INTERVAL", "")

	v.SetDefault("ENABLE_HOMEWORK", true)
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
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
