package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Attempt store backends
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Quota scopes
const (
	QuotaScopeAnon         = "anon"
	QuotaScopeUser         = "user"
	QuotaScopeLogin        = "login"
	QuotaScopeRefresh      = "refresh"
	QuotaScopeOrderCreate  = "order_create"
	QuotaScopeOrderConfirm = "order_confirm"
)

// QuotaScopes lists the request quotas that can be configured
var QuotaScopes = []string{
	QuotaScopeAnon,
	QuotaScopeUser,
	QuotaScopeLogin,
	QuotaScopeRefresh,
	QuotaScopeOrderCreate,
	QuotaScopeOrderConfirm,
}

// defaultQuotaLimits are requests per window when nothing is configured
var defaultQuotaLimits = map[string]int{
	QuotaScopeAnon:         50,
	QuotaScopeUser:         200,
	QuotaScopeLogin:        5,
	QuotaScopeRefresh:      10,
	QuotaScopeOrderCreate:  20,
	QuotaScopeOrderConfirm: 10,
}

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Security  SecurityConfig
	Audit     AuditConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
	// AdminUsername and AdminPassword seed the first administrator at startup
	AdminUsername string
	AdminPassword string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres, sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	LogLevel        string
	AutoMigrate     bool

	// SlowQueryThreshold marks statements worth a warning. Row-locking
	// statements use LockWaitThreshold since they include time spent queued.
	SlowQueryThreshold time.Duration
	LockWaitThreshold  time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
	RefreshSecret          string
	MaxRefreshCount        int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// QuotaConfig is the request budget of one scope
type QuotaConfig struct {
	Limit  int
	Window time.Duration
}

// SecurityConfig holds the failed-attempt policy and request quotas
type SecurityConfig struct {
	MaxFailedAttempts int
	AttemptWindow     time.Duration
	BlockDuration     time.Duration
	Store             string // memory, redis
	QuotasEnabled     bool
	Quotas            map[string]QuotaConfig
	// DefaultRetryAfter is sent when a refusal carries no wait of its own
	DefaultRetryAfter time.Duration
}

// AuditConfig controls where audit records go besides the database
type AuditConfig struct {
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
	// DedupeTTL is how long a handled order event id is remembered
	DedupeTTL time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	DBTraceEnabled    bool    // Enable database query tracing (otelgorm)
	MetricsEnabled    bool
	MetricsInterval   time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SHOP_ prefix (e.g., SHOP_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/shopcore")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds the configuration from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("SHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:          v.GetString("app.name"),
			Env:           v.GetString("app.env"),
			Port:          v.GetString("app.port"),
			AdminUsername: v.GetString("app.admin_username"),
			AdminPassword: v.GetString("app.admin_password"),
		},
		Database: DatabaseConfig{
			Driver:             v.GetString("database.driver"),
			Host:               v.GetString("database.host"),
			Port:               v.GetInt("database.port"),
			User:               v.GetString("database.user"),
			Password:           v.GetString("database.password"),
			DBName:             v.GetString("database.dbname"),
			SSLMode:            v.GetString("database.sslmode"),
			SQLitePath:         v.GetString("database.sqlite_path"),
			MaxOpenConns:       v.GetInt("database.max_open_conns"),
			MaxIdleConns:       v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime:    v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime:    v.GetInt("database.conn_max_idle_time"),
			LogLevel:           v.GetString("database.log_level"),
			AutoMigrate:        v.GetBool("database.auto_migrate"),
			SlowQueryThreshold: v.GetDuration("database.slow_query_threshold"),
			LockWaitThreshold:  v.GetDuration("database.lock_wait_threshold"),
		},
		Redis: RedisConfig{
			Enabled:   v.GetBool("redis.enabled"),
			Host:      v.GetString("redis.host"),
			Port:      v.GetInt("redis.port"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			KeyPrefix: v.GetString("redis.key_prefix"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			Issuer:                 v.GetString("jwt.issuer"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			MaxRefreshCount:        v.GetInt("jwt.max_refresh_count"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Security: SecurityConfig{
			MaxFailedAttempts: v.GetInt("security.max_failed_attempts"),
			AttemptWindow:     v.GetDuration("security.attempt_window"),
			BlockDuration:     v.GetDuration("security.block_duration"),
			Store:             v.GetString("security.store"),
			QuotasEnabled:     !v.IsSet("security.quotas_enabled") || v.GetBool("security.quotas_enabled"),
			DefaultRetryAfter: v.GetDuration("security.default_retry_after"),
			Quotas:            make(map[string]QuotaConfig, len(QuotaScopes)),
		},
		Audit: AuditConfig{
			KafkaEnabled: v.GetBool("audit.kafka_enabled"),
			KafkaBrokers: v.GetStringSlice("audit.kafka_brokers"),
			KafkaTopic:   v.GetString("audit.kafka_topic"),
			DedupeTTL:    v.GetDuration("audit.dedupe_ttl"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
		},
	}

	for _, scope := range QuotaScopes {
		cfg.Security.Quotas[scope] = QuotaConfig{
			Limit:  v.GetInt("security.quotas." + scope + ".limit"),
			Window: v.GetDuration("security.quotas." + scope + ".window"),
		}
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "shopcore"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPostgres
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "shopcore"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "shopcore.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Database.SlowQueryThreshold == 0 {
		cfg.Database.SlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.Database.LockWaitThreshold == 0 {
		cfg.Database.LockWaitThreshold = time.Second
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "shopcore:"
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.RefreshTokenExpiration == 0 {
		cfg.JWT.RefreshTokenExpiration = 168 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "shopcore"
	}
	if cfg.JWT.MaxRefreshCount == 0 {
		cfg.JWT.MaxRefreshCount = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	// An empty origin list means no cross-origin requests until configured
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Security.MaxFailedAttempts == 0 {
		cfg.Security.MaxFailedAttempts = 5
	}
	if cfg.Security.AttemptWindow == 0 {
		cfg.Security.AttemptWindow = 5 * time.Minute
	}
	if cfg.Security.BlockDuration == 0 {
		cfg.Security.BlockDuration = 15 * time.Minute
	}
	if cfg.Security.DefaultRetryAfter <= 0 {
		cfg.Security.DefaultRetryAfter = 60 * time.Second
	}
	if cfg.Security.Store == "" {
		cfg.Security.Store = StoreMemory
	}
	for scope, q := range cfg.Security.Quotas {
		if q.Limit == 0 {
			q.Limit = defaultQuotaLimits[scope]
		}
		if q.Window == 0 {
			q.Window = time.Minute
		}
		cfg.Security.Quotas[scope] = q
	}
	if cfg.Audit.KafkaTopic == "" {
		cfg.Audit.KafkaTopic = "shopcore.audit"
	}
	if cfg.Audit.DedupeTTL <= 0 {
		cfg.Audit.DedupeTTL = 24 * time.Hour
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Security.MaxFailedAttempts < 1 {
		return fmt.Errorf("security.max_failed_attempts must be at least 1")
	}
	if c.Security.AttemptWindow < 0 || c.Security.BlockDuration < 0 {
		return fmt.Errorf("security.attempt_window and security.block_duration must be positive")
	}
	switch c.Security.Store {
	case StoreMemory:
	case StoreRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("security.store=redis requires redis.enabled=true")
		}
	default:
		return fmt.Errorf("security.store must be %q or %q, got %q", StoreMemory, StoreRedis, c.Security.Store)
	}
	for scope, q := range c.Security.Quotas {
		if q.Limit < 0 || q.Window < 0 {
			return fmt.Errorf("security.quotas.%s must be positive", scope)
		}
	}

	if c.Audit.KafkaEnabled && len(c.Audit.KafkaBrokers) == 0 {
		return fmt.Errorf("audit.kafka_brokers is required when audit.kafka_enabled is true")
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Driver == DriverSQLite {
			return fmt.Errorf("database.driver cannot be sqlite in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		// Per-process counters would let each instance grant its own budget
		if c.Security.Store != StoreRedis {
			return fmt.Errorf("security.store must be redis in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	if d.Driver == DriverSQLite {
		return d.SQLitePath
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
