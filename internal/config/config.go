package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session backends understood by SessionConfig.Backend.
const (
	SessionBackendMemory   = "memory"
	SessionBackendRedis    = "redis"
	SessionBackendPostgres = "postgres"
)

// Config aggregates runtime configuration for the console.
type Config struct {
	App       AppConfig
	Backend   BackendConfig
	Session   SessionConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Guard     GuardConfig
	RateLimit RateLimitConfig
	DevAPI    DevAPIConfig
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

// BackendConfig points at the remote REST API.
type BackendConfig struct {
	BaseURL        string
	TimeoutSeconds int
	RefreshPath    string
}

// SessionConfig selects and tunes the durable session store.
type SessionConfig struct {
	Backend      string
	CookieName   string
	CookieSecure bool
	TTLMinutes   int
	Channel      string
	KeyPrefix    string
	GateIdleMins int
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
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// GuardConfig configures route admission.
type GuardConfig struct {
	LoginPath        string
	AccessDeniedPath string
	MappingFile      string
	EmptyPermissions string
}

// RateLimitConfig throttles login attempts per client IP.
type RateLimitConfig struct {
	LoginPerMinute int
	LoginBurst     int
}

// DevAPIConfig configures the local stand-in backend.
type DevAPIConfig struct {
	Host            string
	Port            string
	JWTSecret       string
	TokenTTLMinutes int
	BcryptCost      int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "admin-console"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Backend: BackendConfig{
			BaseURL:        strings.TrimRight(getEnv("BACKEND_BASE_URL", "http://127.0.0.1:8081"), "/"),
			TimeoutSeconds: getEnvAsInt("BACKEND_TIMEOUT_SECONDS", 15),
			RefreshPath:    os.Getenv("BACKEND_REFRESH_PATH"),
		},
		Session: SessionConfig{
			Backend:      strings.ToLower(getEnv("SESSION_BACKEND", SessionBackendMemory)),
			CookieName:   getEnv("SESSION_COOKIE_NAME", "console_sid"),
			CookieSecure: getEnvAsBool("SESSION_COOKIE_SECURE", false),
			TTLMinutes:   getEnvAsInt("SESSION_TTL_MINUTES", 720),
			Channel:      getEnv("SESSION_CHANNEL", "console_session_changes"),
			KeyPrefix:    getEnv("SESSION_KEY_PREFIX", "console:session"),
			GateIdleMins: getEnvAsInt("SESSION_GATE_IDLE_MINUTES", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Guard: GuardConfig{
			LoginPath:        getEnv("GUARD_LOGIN_PATH", "/login"),
			AccessDeniedPath: getEnv("GUARD_ACCESS_DENIED_PATH", "/access-denied"),
			MappingFile:      os.Getenv("GUARD_MAPPING_FILE"),
			EmptyPermissions: strings.ToLower(getEnv("GUARD_EMPTY_PERMISSIONS", "allow")),
		},
		RateLimit: RateLimitConfig{
			LoginPerMinute: getEnvAsInt("LOGIN_RATE_PER_MINUTE", 20),
			LoginBurst:     getEnvAsInt("LOGIN_RATE_BURST", 5),
		},
		DevAPI: DevAPIConfig{
			Host:            getEnv("DEVAPI_HOST", "127.0.0.1"),
			Port:            getEnv("DEVAPI_PORT", "8081"),
			JWTSecret:       getEnv("DEVAPI_JWT_SECRET", "dev-secret"),
			TokenTTLMinutes: getEnvAsInt("DEVAPI_TOKEN_TTL_MINUTES", 60),
			BcryptCost:      getEnvAsInt("DEVAPI_BCRYPT_COST", 10),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Session.Backend {
	case SessionBackendMemory, SessionBackendRedis:
	case SessionBackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("SESSION_BACKEND=postgres requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("invalid SESSION_BACKEND %q", c.Session.Backend)
	}
	switch c.Guard.EmptyPermissions {
	case "allow", "deny":
	default:
		return fmt.Errorf("invalid GUARD_EMPTY_PERMISSIONS %q", c.Guard.EmptyPermissions)
	}
	return nil
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

// Timeout returns the outbound request timeout.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// TTL returns how long an untouched session survives in the durable store.
func (s SessionConfig) TTL() time.Duration {
	if s.TTLMinutes <= 0 {
		return 0
	}
	return time.Duration(s.TTLMinutes) * time.Minute
}

// GateIdle returns how long an unused gate is kept in memory.
func (s SessionConfig) GateIdle() time.Duration {
	if s.GateIdleMins <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(s.GateIdleMins) * time.Minute
}

// Addr returns the dev backend bind address.
func (d DevAPIConfig) Addr() string {
	return fmt.Sprintf("%s:%s", d.Host, d.Port)
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
