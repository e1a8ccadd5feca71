package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Shopify   ShopifyConfig
	RealAuth  RealAuthConfig
	Sync      SyncConfig
	Storage   StorageConfig
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
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres or sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string // file path when Driver is sqlite
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	AutoMigrate     bool // create the schema on startup instead of running cmd/migrate
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	// RateLimit is the sustained requests per second allowed per client on
	// the batch trigger endpoints; 0 disables limiting
	RateLimit      float64
	RateLimitBurst int
}

// ShopifyConfig holds the default source shop credentials
type ShopifyConfig struct {
	ShopDomain         string
	AccessToken        string
	APIVersion         string
	MetafieldNamespace string
	APIBaseURL         string // overrides the endpoint derived from ShopDomain
	TimeoutSeconds     int
}

// RealAuthConfig holds the destination API settings
type RealAuthConfig struct {
	APIBaseURL        string
	APIKey            string
	ContactEmail      string // email sent on every order
	DocumentationName string
	DashboardURL      string // base for order links written back to the source
	TimeoutSeconds    int
}

// SyncConfig holds catalog synchronization settings
type SyncConfig struct {
	PageSize       int
	ItemInterval   time.Duration // pause before each non-skipped item
	PageCooldown   time.Duration // pause after every PageSize examined items
	Burst          int
	Workers        int
	SlotPolicy     string // attach or drop
	DefaultBrandID int64
	FilterTag      string
	RequireImages  bool
	MetadataPrefix string
	LockEnabled    bool
	LockTTL        time.Duration
	RunInterval    time.Duration // 0 disables periodic full-catalog runs
	MaxBatches     int           // upper bound of batches per run, 0 means unbounded
}

// StorageConfig holds S3-compatible object storage settings for batch reports
type StorageConfig struct {
	Enabled           bool
	Endpoint          string
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	PresignExpiration time.Duration
	ReportPrefix      string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool          // Whether to export metrics
	CollectorEndpoint string        // OTEL Collector endpoint (e.g., "localhost:4317")
	ServiceName       string        // Service name for resources
	Insecure          bool          // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration // Periodic reader export interval
	SamplingRatio     float64       // Trace sampling ratio (0.0-1.0)
	LogsEnabled       bool          // Bridge zap logs to the collector
	DBTracing         bool          // Trace GORM queries
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CATALOGSYNC_ prefix (e.g., CATALOGSYNC_REALAUTH_API_KEY)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("CATALOGSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
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
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			RateLimit:        v.GetFloat64("http.rate_limit"),
			RateLimitBurst:   v.GetInt("http.rate_limit_burst"),
		},
		Shopify: ShopifyConfig{
			ShopDomain:         v.GetString("shopify.shop_domain"),
			AccessToken:        v.GetString("shopify.access_token"),
			APIVersion:         v.GetString("shopify.api_version"),
			MetafieldNamespace: v.GetString("shopify.metafield_namespace"),
			APIBaseURL:         v.GetString("shopify.api_base_url"),
			TimeoutSeconds:     v.GetInt("shopify.timeout_seconds"),
		},
		RealAuth: RealAuthConfig{
			APIBaseURL:        v.GetString("realauth.api_base_url"),
			APIKey:            v.GetString("realauth.api_key"),
			ContactEmail:      v.GetString("realauth.contact_email"),
			DocumentationName: v.GetString("realauth.documentation_name"),
			DashboardURL:      v.GetString("realauth.dashboard_url"),
			TimeoutSeconds:    v.GetInt("realauth.timeout_seconds"),
		},
		Sync: SyncConfig{
			PageSize:       v.GetInt("sync.page_size"),
			ItemInterval:   v.GetDuration("sync.item_interval"),
			PageCooldown:   v.GetDuration("sync.page_cooldown"),
			Burst:          v.GetInt("sync.burst"),
			Workers:        v.GetInt("sync.workers"),
			SlotPolicy:     v.GetString("sync.slot_policy"),
			DefaultBrandID: v.GetInt64("sync.default_brand_id"),
			FilterTag:      v.GetString("sync.filter_tag"),
			RequireImages:  v.GetBool("sync.require_images"),
			MetadataPrefix: v.GetString("sync.metadata_prefix"),
			LockEnabled:    v.GetBool("sync.lock_enabled"),
			LockTTL:        v.GetDuration("sync.lock_ttl"),
			RunInterval:    v.GetDuration("sync.run_interval"),
			MaxBatches:     v.GetInt("sync.max_batches"),
		},
		Storage: StorageConfig{
			Enabled:           v.GetBool("storage.enabled"),
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
			ReportPrefix:      v.GetString("storage.report_prefix"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTracing:         v.GetBool("telemetry.db_tracing"),
		},
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
		cfg.App.Name = "catalogsync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
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
		cfg.Database.DBName = "catalogsync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
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
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
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
	// A batch may include a page cooldown, so writes get a generous deadline
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 5 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.RateLimit > 0 && cfg.HTTP.RateLimitBurst <= 0 {
		cfg.HTTP.RateLimitBurst = 1
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Shopify.APIVersion == "" {
		cfg.Shopify.APIVersion = "2024-10"
	}
	if cfg.Shopify.MetafieldNamespace == "" {
		cfg.Shopify.MetafieldNamespace = "custom"
	}
	if cfg.Shopify.TimeoutSeconds == 0 {
		cfg.Shopify.TimeoutSeconds = 30
	}
	if cfg.RealAuth.APIBaseURL == "" {
		cfg.RealAuth.APIBaseURL = "https://customer-api.realauthentication.com"
	}
	if cfg.RealAuth.DocumentationName == "" {
		cfg.RealAuth.DocumentationName = "RA"
	}
	if cfg.RealAuth.TimeoutSeconds == 0 {
		cfg.RealAuth.TimeoutSeconds = 30
	}
	if cfg.Sync.PageSize == 0 {
		cfg.Sync.PageSize = 20
	}
	if cfg.Sync.ItemInterval == 0 {
		cfg.Sync.ItemInterval = 300 * time.Millisecond
	}
	if cfg.Sync.PageCooldown == 0 {
		cfg.Sync.PageCooldown = time.Minute
	}
	if cfg.Sync.Burst == 0 {
		cfg.Sync.Burst = 1
	}
	if cfg.Sync.Workers == 0 {
		cfg.Sync.Workers = 1
	}
	if cfg.Sync.SlotPolicy == "" {
		cfg.Sync.SlotPolicy = "attach"
	}
	if cfg.Sync.DefaultBrandID == 0 {
		cfg.Sync.DefaultBrandID = 2
	}
	if cfg.Sync.MetadataPrefix == "" {
		cfg.Sync.MetadataPrefix = "rau_"
	}
	if cfg.Sync.LockTTL == 0 {
		cfg.Sync.LockTTL = 5 * time.Minute
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.ReportPrefix == "" {
		cfg.Storage.ReportPrefix = "catalog-sync/batches"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "catalogsync"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 30 * time.Second
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
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

	if c.Sync.PageSize <= 0 {
		return fmt.Errorf("sync.page_size must be positive")
	}
	if c.Sync.Workers < 1 {
		return fmt.Errorf("sync.workers must be at least 1")
	}
	if c.Sync.ItemInterval < 0 || c.Sync.PageCooldown < 0 {
		return fmt.Errorf("sync.item_interval and sync.page_cooldown cannot be negative")
	}
	switch c.Sync.SlotPolicy {
	case "attach", "drop":
	default:
		return fmt.Errorf("sync.slot_policy must be attach or drop, got %q", c.Sync.SlotPolicy)
	}
	if c.Sync.LockEnabled && c.Sync.LockTTL <= 0 {
		return fmt.Errorf("sync.lock_ttl must be positive when sync.lock_enabled is set")
	}

	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage.enabled is set")
	}

	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1")
	}

	if c.App.Env == "production" {
		if c.Shopify.AccessToken == "" {
			return fmt.Errorf("shopify.access_token is required in production")
		}
		if c.RealAuth.APIKey == "" {
			return fmt.Errorf("realauth.api_key is required in production")
		}
		if c.Database.Driver == "postgres" {
			if c.Database.Password == "" {
				return fmt.Errorf("database.password is required in production")
			}
			if c.Database.SSLMode == "disable" {
				return fmt.Errorf("database.sslmode cannot be 'disable' in production")
			}
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.DBName
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
