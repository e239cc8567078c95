package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	GRPC      GRPCSettings      `mapstructure:"grpc"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	Session   SessionSettings   `mapstructure:"session"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Lockout   LockoutSettings   `mapstructure:"lockout"`
	TwoFactor TwoFactorSettings `mapstructure:"two_factor"`
	Argon2    Argon2Settings    `mapstructure:"argon2"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	Storage   StorageSettings   `mapstructure:"storage"`
	Security  SecuritySettings  `mapstructure:"security"`
}

type AppSettings struct {
	Name         string `mapstructure:"name"`
	Env          string `mapstructure:"env"`
	LogLevel     string `mapstructure:"log_level"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`

	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
	// TrustedProxies lists the proxy IPs or CIDRs whose forwarding headers
	// are believed. Empty means the client IP is always the peer address.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type GRPCSettings struct {
	Host           string  `mapstructure:"host"`
	Port           int     `mapstructure:"port"`
	RequestsPerSec float64 `mapstructure:"requests_per_sec"`
	Burst          int     `mapstructure:"burst"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	Schema            string        `mapstructure:"schema"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures Redis connection, TLS and key prefixes
type RedisSettings struct {
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	DB               int    `mapstructure:"db"`
	Password         string `mapstructure:"password"`
	TLSEnabled       bool   `mapstructure:"tls_enabled"`
	SessionPrefix    string `mapstructure:"session_prefix"`
	RateLimitPrefix  string `mapstructure:"rate_limit_prefix"`
	LockoutPrefix    string `mapstructure:"lockout_prefix"`
	RevocationPrefix string `mapstructure:"revocation_prefix"`
	OTPPrefix        string `mapstructure:"otp_prefix"`
}

// KafkaSettings configures the event producer and the directory event consumer
type KafkaSettings struct {
	Enabled        bool     `mapstructure:"enabled"`
	Brokers        []string `mapstructure:"brokers"`
	TopicPrefix    string   `mapstructure:"topic_prefix"`
	Async          bool     `mapstructure:"async"`
	ConsumerGroup  string   `mapstructure:"consumer_group"`
	DirectoryTopic string   `mapstructure:"directory_topic"`
}

type JWTSettings struct {
	KeyDirectory string        `mapstructure:"key_directory"`
	KeyID        string        `mapstructure:"key_id"`
	Issuer       string        `mapstructure:"issuer"`
	Audience     []string      `mapstructure:"audience"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
}

// SessionSettings configures session lifetime and the expiry janitor
type SessionSettings struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// RateLimitTierSettings is one fixed-window policy.
type RateLimitTierSettings struct {
	Window      time.Duration `mapstructure:"window"`
	MaxRequests int           `mapstructure:"max_requests"`
}

// RateLimitSettings configures the three limiter tiers and the strict-tier slow-down
type RateLimitSettings struct {
	General       RateLimitTierSettings `mapstructure:"general"`
	Auth          RateLimitTierSettings `mapstructure:"auth"`
	Strict        RateLimitTierSettings `mapstructure:"strict"`
	SoftThreshold int                   `mapstructure:"soft_threshold"`
	DelayBase     time.Duration         `mapstructure:"delay_base"`
	DelayMax      time.Duration         `mapstructure:"delay_max"`
	DelayMode     string                `mapstructure:"delay_mode"`
}

// LockoutSettings configures failed-login lockout
type LockoutSettings struct {
	Threshold   int           `mapstructure:"threshold"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
	ResetWindow time.Duration `mapstructure:"reset_window"`
}

// TwoFactorSettings configures TOTP validation
type TwoFactorSettings struct {
	Issuer string `mapstructure:"issuer"`
	Skew   uint   `mapstructure:"skew"`
	Digits int    `mapstructure:"digits"`
	Period uint   `mapstructure:"period"`
}

// Argon2Settings configures Argon2id password hashing parameters
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

type TelemetrySettings struct {
	MetricsPort  int     `mapstructure:"metrics_port"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// StorageSettings selects the state and directory backends
type StorageSettings struct {
	Backend          string `mapstructure:"backend"`
	DirectoryBackend string `mapstructure:"directory_backend"`
	SeedFile         string `mapstructure:"seed_file"`
}

// SecuritySettings holds cross-cutting security policy knobs
type SecuritySettings struct {
	DegradationPolicy string `mapstructure:"degradation_policy"`
	AdminManageLevel  int    `mapstructure:"admin_manage_level"`
}

var envKeys = []string{
	"app.name",
	"app.env",
	"app.log_level",
	"app.host",
	"app.port",
	"app.max_body_bytes",
	"app.cors_allowed_origins",
	"app.trusted_proxies",
	"grpc.host",
	"grpc.port",
	"grpc.requests_per_sec",
	"grpc.burst",
	"postgres.host",
	"postgres.port",
	"postgres.user",
	"postgres.password",
	"postgres.database",
	"postgres.schema",
	"postgres.ssl_mode",
	"postgres.max_conns",
	"postgres.min_conns",
	"postgres.max_conn_lifetime",
	"postgres.max_conn_idle_time",
	"postgres.health_check_period",
	"redis.host",
	"redis.port",
	"redis.db",
	"redis.password",
	"redis.tls_enabled",
	"redis.session_prefix",
	"redis.rate_limit_prefix",
	"redis.lockout_prefix",
	"redis.revocation_prefix",
	"redis.otp_prefix",
	"kafka.enabled",
	"kafka.brokers",
	"kafka.topic_prefix",
	"kafka.async",
	"kafka.consumer_group",
	"kafka.directory_topic",
	"jwt.key_directory",
	"jwt.key_id",
	"jwt.issuer",
	"jwt.audience",
	"jwt.token_ttl",
	"session.ttl",
	"session.sweep_interval",
	"rate_limit.general.window",
	"rate_limit.general.max_requests",
	"rate_limit.auth.window",
	"rate_limit.auth.max_requests",
	"rate_limit.strict.window",
	"rate_limit.strict.max_requests",
	"rate_limit.soft_threshold",
	"rate_limit.delay_base",
	"rate_limit.delay_max",
	"rate_limit.delay_mode",
	"lockout.threshold",
	"lockout.cooldown",
	"lockout.reset_window",
	"two_factor.issuer",
	"two_factor.skew",
	"two_factor.digits",
	"two_factor.period",
	"argon2.memory",
	"argon2.iterations",
	"argon2.parallelism",
	"argon2.salt_length",
	"argon2.key_length",
	"telemetry.metrics_port",
	"telemetry.otlp_endpoint",
	"telemetry.service_name",
	"telemetry.sampling_rate",
	"storage.backend",
	"storage.directory_backend",
	"storage.seed_file",
	"security.degradation_policy",
	"security.admin_manage_level",
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("ADMINAUTH")

	setDefaults(v)

	if err := bindEnvs(v, envKeys); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Defaults returns the built-in configuration without reading the environment.
func Defaults() (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal default config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *AppConfig) Validate() error {
	for name, tier := range map[string]RateLimitTierSettings{
		"general": c.RateLimit.General,
		"auth":    c.RateLimit.Auth,
		"strict":  c.RateLimit.Strict,
	} {
		if tier.Window <= 0 || tier.MaxRequests <= 0 {
			return fmt.Errorf("rate_limit.%s: window and max_requests must be positive", name)
		}
	}
	if c.Lockout.Threshold <= 0 || c.Lockout.Cooldown <= 0 {
		return fmt.Errorf("lockout: threshold and cooldown must be positive")
	}
	if c.Session.TTL <= 0 || c.JWT.TokenTTL <= 0 {
		return fmt.Errorf("session.ttl and jwt.token_ttl must be positive")
	}
	for _, proxy := range c.App.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return fmt.Errorf("app.trusted_proxies: invalid entry %q", proxy)
			}
		}
	}
	switch c.Storage.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("storage.backend: unsupported value %q", c.Storage.Backend)
	}
	switch c.Storage.DirectoryBackend {
	case "memory", "postgres":
	default:
		return fmt.Errorf("storage.directory_backend: unsupported value %q", c.Storage.DirectoryBackend)
	}
	switch c.RateLimit.DelayMode {
	case "sleep", "reject":
	default:
		return fmt.Errorf("rate_limit.delay_mode: unsupported value %q", c.RateLimit.DelayMode)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "admin-auth")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.max_body_bytes", 1<<20)
	v.SetDefault("app.cors_allowed_origins", []string{"*"})
	v.SetDefault("app.trusted_proxies", []string{})

	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50051)
	v.SetDefault("grpc.requests_per_sec", 200.0)
	v.SetDefault("grpc.burst", 50)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "admin_auth")
	v.SetDefault("postgres.password", "admin_auth_password")
	v.SetDefault("postgres.database", "admin")
	v.SetDefault("postgres.schema", "public")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.session_prefix", "admin:sess")
	v.SetDefault("redis.rate_limit_prefix", "admin:rl")
	v.SetDefault("redis.lockout_prefix", "admin:lockout")
	v.SetDefault("redis.revocation_prefix", "admin:revoked")
	v.SetDefault("redis.otp_prefix", "admin:otp:used")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "admin")
	v.SetDefault("kafka.async", true)
	v.SetDefault("kafka.consumer_group", "admin-auth")
	v.SetDefault("kafka.directory_topic", "admin.directory.events")

	v.SetDefault("jwt.key_directory", "./secrets")
	v.SetDefault("jwt.key_id", "")
	v.SetDefault("jwt.issuer", "admin-auth")
	v.SetDefault("jwt.audience", []string{"admin-console"})
	v.SetDefault("jwt.token_ttl", "8h")

	v.SetDefault("session.ttl", "8h")
	v.SetDefault("session.sweep_interval", "5m")

	v.SetDefault("rate_limit.general.window", "15m")
	v.SetDefault("rate_limit.general.max_requests", 100)
	v.SetDefault("rate_limit.auth.window", "15m")
	v.SetDefault("rate_limit.auth.max_requests", 5)
	v.SetDefault("rate_limit.strict.window", "15m")
	v.SetDefault("rate_limit.strict.max_requests", 5)
	v.SetDefault("rate_limit.soft_threshold", 3)
	v.SetDefault("rate_limit.delay_base", "100ms")
	v.SetDefault("rate_limit.delay_max", "2s")
	v.SetDefault("rate_limit.delay_mode", "sleep")

	v.SetDefault("lockout.threshold", 5)
	v.SetDefault("lockout.cooldown", "15m")
	v.SetDefault("lockout.reset_window", "15m")

	v.SetDefault("two_factor.issuer", "Admin Console")
	v.SetDefault("two_factor.skew", 1)
	v.SetDefault("two_factor.digits", 6)
	v.SetDefault("two_factor.period", 30)

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("telemetry.metrics_port", 9090)
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "admin-auth")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.directory_backend", "memory")
	v.SetDefault("storage.seed_file", "")

	v.SetDefault("security.degradation_policy", "lenient")
	v.SetDefault("security.admin_manage_level", 10)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "ADMINAUTH_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
