package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Auth     AuthConfig
	Store    StoreConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Push     PushConfig
	Gas      GasConfig
	Client   ClientConfig
	Logger   LoggerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// AuthConfig defines session token parameters.
type AuthConfig struct {
	JWTSecret          string
	SessionTTLDays     int
	ClockSkewLeewaySec int
	SessionCookieName  string
	LegacyCookieName   string
	CookieSecure       bool
	BcryptCost         int
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Backend            string
	SupabaseURL        string
	SupabaseServiceKey string
	TimeoutSeconds     int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

// PushConfig holds FCM push delivery values.
type PushConfig struct {
	ServiceAccountB64 string
	Enabled           bool
}

// GasConfig holds the upstream sheet-export endpoint.
type GasConfig struct {
	ExecURL        string
	TimeoutSeconds int
}

// ClientConfig is the public runtime configuration served to browsers. No
// secrets belong here.
type ClientConfig struct {
	APIBase            string
	MapCenter          string
	AppName            string
	SupportTel         string
	FirebaseVapidKey   string
	FirebaseConfigJSON string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Development bool
}

// Store backends.
const (
	StoreBackendSupabase = "supabase"
	StoreBackendPostgres = "postgres"
)

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	backend := getEnv("STORE_BACKEND", StoreBackendSupabase)
	if backend != StoreBackendSupabase && backend != StoreBackendPostgres {
		return nil, fmt.Errorf("invalid STORE_BACKEND %q", backend)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "request-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Auth: AuthConfig{
			// JWT_SECRET is the primary name; AUTH_JWT_SECRET remains
			// accepted for older deployments.
			JWTSecret:          getEnv("JWT_SECRET", os.Getenv("AUTH_JWT_SECRET")),
			SessionTTLDays:     getEnvAsInt("AUTH_SESSION_TTL_DAYS", 14),
			ClockSkewLeewaySec: getEnvAsInt("AUTH_CLOCK_SKEW_LEEWAY_SECONDS", 30),
			SessionCookieName:  getEnv("AUTH_SESSION_COOKIE", "clos_session"),
			LegacyCookieName:   getEnv("AUTH_LEGACY_COOKIE", "clos_token"),
			CookieSecure:       getEnvAsBool("AUTH_COOKIE_SECURE", true),
			BcryptCost:         getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Store: StoreConfig{
			Backend:            backend,
			SupabaseURL:        os.Getenv("SUPABASE_URL"),
			SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_KEY"),
			TimeoutSeconds:     getEnvAsInt("STORE_TIMEOUT_SECONDS", 15),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},
		Push: PushConfig{
			ServiceAccountB64: os.Getenv("FIREBASE_SERVICE_ACCOUNT_B64"),
			Enabled:           os.Getenv("FIREBASE_SERVICE_ACCOUNT_B64") != "",
		},
		Gas: GasConfig{
			ExecURL:        os.Getenv("GAS_EXEC_URL"),
			TimeoutSeconds: getEnvAsInt("GAS_TIMEOUT_SECONDS", 20),
		},
		Client: ClientConfig{
			APIBase:            getEnv("CLIENT_API_BASE", "/api"),
			MapCenter:          getEnv("CLIENT_MAP_CENTER", "31.29,34.24"),
			AppName:            getEnv("CLIENT_APP_NAME", "CLOS Requests"),
			SupportTel:         os.Getenv("CLIENT_SUPPORT_TEL"),
			FirebaseVapidKey:   os.Getenv("FIREBASE_VAPID_KEY"),
			FirebaseConfigJSON: os.Getenv("FIREBASE_CONFIG_JSON"),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Store.Backend == StoreBackendSupabase && cfg.Store.SupabaseURL == "" {
		return nil, fmt.Errorf("SUPABASE_URL is required for the supabase backend")
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SessionTTL returns the session token lifetime.
func (a AuthConfig) SessionTTL() time.Duration {
	days := a.SessionTTLDays
	if days <= 0 {
		days = 14
	}
	return time.Duration(days) * 24 * time.Hour
}

// ClockSkewLeeway returns the accepted clock skew for token validation.
func (a AuthConfig) ClockSkewLeeway() time.Duration {
	if a.ClockSkewLeewaySec <= 0 {
		return 0
	}
	return time.Duration(a.ClockSkewLeewaySec) * time.Second
}

// Timeout returns the record store request timeout.
func (s StoreConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Timeout returns the sheet-export request timeout.
func (g GasConfig) Timeout() time.Duration {
	if g.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(g.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
