package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Config holds the application's configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Vault     VaultConfig     `mapstructure:"vault"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Security  SecurityConfig  `mapstructure:"security"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Verifier  VerifierConfig  `mapstructure:"verifier"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	PprofEnabled    bool          `mapstructure:"pprof_enabled"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug, release, test
}

// HTTPAddr returns the listen address of the HTTP server.
func (c *ServerConfig) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GRPCAddr returns the listen address of the gRPC server.
func (c *ServerConfig) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GRPCPort)
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// GetDSN returns the connection string, preferring an explicit URL.
func (c *DatabaseConfig) GetDSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Address      string `mapstructure:"address"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

type VaultConfig struct {
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	MountPath  string `mapstructure:"mount_path"`
	SecretPath string `mapstructure:"secret_path"`
}

// Key material sources.
const (
	KeySourceFile  = "file"
	KeySourceVault = "vault"
)

type JWTConfig struct {
	KeySource         string `mapstructure:"key_source"`
	PrivateKeyPath    string `mapstructure:"private_key_path"`
	PublicKeyPath     string `mapstructure:"public_key_path"`
	ExpiresIn         string `mapstructure:"expires_in"`
	GenerateIfMissing bool   `mapstructure:"generate_if_missing"`
}

// Lifetime returns the parsed token lifetime.
func (c *JWTConfig) Lifetime() (time.Duration, error) {
	return ParseTokenLifetime(c.ExpiresIn)
}

type SecurityConfig struct {
	BcryptRounds int `mapstructure:"bcrypt_rounds"`
}

// Rate limiter backends.
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Backend  string        `mapstructure:"backend"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// Audit drivers.
const (
	AuditDriverLog      = "log"
	AuditDriverDatabase = "database"
	AuditDriverKafka    = "kafka"
)

type AuditConfig struct {
	Driver       string   `mapstructure:"driver"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`
}

// VerifierConfig configures consumer-side verification against a remote issuer.
type VerifierConfig struct {
	AuthServiceURL string        `mapstructure:"auth_service_url"`
	KeyTTL         time.Duration `mapstructure:"key_ttl"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
}

// AdminConfig holds the credentials used by the seed-admin command.
type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port must be between 0 and 65535, got %d", c.Server.GRPCPort)
	}
	switch c.JWT.KeySource {
	case KeySourceFile:
		if c.JWT.PrivateKeyPath == "" || c.JWT.PublicKeyPath == "" {
			return fmt.Errorf("jwt.private_key_path and jwt.public_key_path are required")
		}
	case KeySourceVault:
		if c.Vault.Address == "" || c.Vault.SecretPath == "" {
			return fmt.Errorf("vault.address and vault.secret_path are required when jwt.key_source is vault")
		}
	default:
		return fmt.Errorf("unknown jwt.key_source %q", c.JWT.KeySource)
	}
	if _, err := c.JWT.Lifetime(); err != nil {
		return err
	}
	if c.Security.BcryptRounds < 4 || c.Security.BcryptRounds > 31 {
		return fmt.Errorf("security.bcrypt_rounds must be between 4 and 31, got %d", c.Security.BcryptRounds)
	}
	if c.RateLimit.Enabled {
		switch c.RateLimit.Backend {
		case RateLimitBackendMemory:
		case RateLimitBackendRedis:
			if !c.Redis.Enabled {
				return fmt.Errorf("rate_limit.backend redis requires redis.enabled")
			}
		default:
			return fmt.Errorf("unknown rate_limit.backend %q", c.RateLimit.Backend)
		}
		if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate_limit.requests and rate_limit.window must be positive")
		}
	}
	switch c.Audit.Driver {
	case AuditDriverLog, AuditDriverDatabase:
	case AuditDriverKafka:
		if len(c.Audit.KafkaBrokers) == 0 || c.Audit.KafkaTopic == "" {
			return fmt.Errorf("audit.kafka_brokers and audit.kafka_topic are required for the kafka driver")
		}
	default:
		return fmt.Errorf("unknown audit.driver %q", c.Audit.Driver)
	}
	if c.Verifier.KeyTTL <= 0 || c.Verifier.FetchTimeout <= 0 {
		return fmt.Errorf("verifier.key_ttl and verifier.fetch_timeout must be positive")
	}
	return nil
}

// ParseTokenLifetime parses a token lifetime expressed either as a raw number of seconds
// ("3600"), a number of days ("7d"), or a Go duration ("24h", "90m").
func ParseTokenLifetime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("token lifetime is empty")
	}

	var d time.Duration
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		if d, err = scaleLifetime(secs, time.Second); err != nil {
			return 0, fmt.Errorf("invalid token lifetime %q: %w", s, err)
		}
	} else if strings.HasSuffix(s, "d") {
		days, err := strconv.ParseInt(strings.TrimSuffix(s, "d"), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid token lifetime %q", s)
		}
		if d, err = scaleLifetime(days, 24*time.Hour); err != nil {
			return 0, fmt.Errorf("invalid token lifetime %q: %w", s, err)
		}
	} else {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid token lifetime %q: %w", s, err)
		}
		d = parsed
	}

	if d <= 0 {
		return 0, fmt.Errorf("token lifetime must be positive, got %q", s)
	}
	return d, nil
}

// scaleLifetime returns n units, rejecting counts whose duration does not fit in an int64.
func scaleLifetime(n int64, unit time.Duration) (time.Duration, error) {
	limit := int64(math.MaxInt64 / unit)
	if n > limit || n < -limit {
		return 0, fmt.Errorf("exceeds the maximum of %d", limit)
	}
	return time.Duration(n) * unit, nil
}
