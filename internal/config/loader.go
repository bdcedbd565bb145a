package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Mateusz-G541/pokedex-auth-service/pkg/constants"
)

const envPrefix = "POKEDEX_AUTH"

// legacyEnv maps config keys to the plain environment variable names the service has
// always honoured. Prefixed variables (POKEDEX_AUTH_SERVER_PORT) take precedence.
var legacyEnv = map[string]string{
	"server.port":               "PORT",
	"server.cors_origins":       "CORS_ORIGIN",
	"database.url":              "DATABASE_URL",
	"redis.address":             "REDIS_URL",
	"jwt.private_key_path":      "JWT_PRIVATE_KEY_PATH",
	"jwt.public_key_path":       "JWT_PUBLIC_KEY_PATH",
	"jwt.expires_in":            "JWT_EXPIRES_IN",
	"security.bcrypt_rounds":    "BCRYPT_ROUNDS",
	"verifier.auth_service_url": "AUTH_SERVICE_URL",
	"admin.email":               "ADMIN_EMAIL",
	"admin.password":            "ADMIN_PASSWORD",
	"log.level":                 "LOG_LEVEL",
	"vault.address":             "VAULT_ADDR",
	"vault.token":               "VAULT_TOKEN",
}

// Loader reads configuration from defaults, an optional config file, .env files and the
// environment, and can watch the config file for changes.
type Loader struct {
	v          *viper.Viper
	configFile string
	dotEnv     []string
}

// NewLoader creates a Loader. An empty configFile searches for config.yaml in the usual
// locations.
func NewLoader(configFile string) *Loader {
	return &Loader{v: viper.New(), configFile: configFile, dotEnv: []string{".env"}}
}

// WithDotEnv overrides the .env files loaded before reading the environment.
func (l *Loader) WithDotEnv(files ...string) *Loader {
	l.dotEnv = files
	return l
}

// LoadConfig loads the configuration using a default Loader.
func LoadConfig(configFile string) (*Config, error) {
	return NewLoader(configFile).Load()
}

// Load loads the configuration from file, .env, and environment variables.
func (l *Loader) Load() (*Config, error) {
	if err := loadDotEnv(l.dotEnv...); err != nil {
		return nil, err
	}

	v := l.v
	setDefaults(v)

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/pokedex-auth/")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", legacy, err)
		}
	}

	return l.unmarshal()
}

// Watch re-reads the config file whenever it changes and passes the result to onChange.
// It is a no-op when no config file was found.
func (l *Loader) Watch(onChange func(*Config, error)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		onChange(l.unmarshal())
	})
	l.v.WatchConfig()
}

// ConfigFileUsed returns the path of the config file that was read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) unmarshal() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func loadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.pprof_enabled", false)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.database", "pokedex_auth")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 1)

	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.mount_path", "secret")
	v.SetDefault("vault.secret_path", "pokedex-auth/jwt")

	v.SetDefault("jwt.key_source", KeySourceFile)
	v.SetDefault("jwt.private_key_path", "./keys/private.pem")
	v.SetDefault("jwt.public_key_path", "./keys/public.pem")
	v.SetDefault("jwt.expires_in", "24h")
	v.SetDefault("jwt.generate_if_missing", false)

	v.SetDefault("security.bcrypt_rounds", constants.DefaultBcryptCost)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.backend", RateLimitBackendMemory)
	v.SetDefault("rate_limit.requests", 20)
	v.SetDefault("rate_limit.window", time.Minute)

	v.SetDefault("audit.driver", AuditDriverLog)
	v.SetDefault("audit.kafka_brokers", []string{})
	v.SetDefault("audit.kafka_topic", "pokedex-auth-audit")

	v.SetDefault("verifier.auth_service_url", constants.DefaultAuthServiceURL)
	v.SetDefault("verifier.key_ttl", constants.PublicKeyCacheTTL)
	v.SetDefault("verifier.fetch_timeout", constants.PublicKeyFetchTimeout)

	v.SetDefault("admin.email", "admin@pokedex.com")
	v.SetDefault("admin.password", "AdminPass123!")

	v.SetDefault("log.level", string(constants.LogLevelInfo))
	v.SetDefault("log.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("tracing.service_name", constants.ServiceName)
	v.SetDefault("tracing.sampling_rate", 1.0)
}
