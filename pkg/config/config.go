package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Storage backends selectable with APP_STORAGE.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config groups the application settings, read through Viper from env vars and an optional file.
type Config struct {
	App       AppConfig
	DB        DBConfig
	JWT       JWTConfig
	HTTP      HTTPConfig
	Inventory InventoryConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
}

// AppConfig general settings.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
	Storage  string // postgres | memory
	Swagger  bool

	// MasterDataFile is loaded into the in-memory store at startup (APP_STORAGE=memory).
	MasterDataFile   string
	MasterDataLatin1 bool
}

// IsProduction reports whether the app runs with production settings.
func (c AppConfig) IsProduction() bool { return c.Env == "production" }

// DBConfig PostgreSQL settings.
// When DatabaseURL is set it is used as the full connection string.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int32
	MinConns    int32
}

// ConnectionString returns DATABASE_URL when set, otherwise the DSN built from the parts.
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN builds a postgres URL with the password escaped.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig token settings.
type JWTConfig struct {
	Secret     string
	Expiration int // minutes
	Issuer     string
}

// HTTPConfig HTTP server settings.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr returns host:port.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// InventoryConfig settings of the movement engine and stock queries.
type InventoryConfig struct {
	LowStockThreshold decimal.Decimal
	LowStockTopN      int
	AdjustEnabled     bool
	LockTimeout       time.Duration
	TxTimeout         time.Duration
	StockCardMaxRows  int
}

// RedisConfig idempotency store. An empty URL disables Idempotency-Key handling.
type RedisConfig struct {
	URL            string
	IdempotencyTTL time.Duration
}

// RabbitMQConfig movement event publishing. An empty URL disables publishing.
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// Load reads configuration from env vars (and optionally .env / config.env files).
// Env vars take precedence.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	threshold, err := getDecimal(v, "LOW_STOCK_THRESHOLD", decimal.NewFromInt(10))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "smart-erp-inventory"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
			Storage:  strings.ToLower(getString(v, "APP_STORAGE", StoragePostgres)),
			Swagger:  getBool(v, "SWAGGER_ENABLED", true),

			MasterDataFile:   getString(v, "MASTER_DATA_FILE", ""),
			MasterDataLatin1: getBool(v, "MASTER_DATA_LATIN1", false),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "smart_erp"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    int32(getInt(v, "DB_MAX_CONNS", 25)),
			MinConns:    int32(getInt(v, "DB_MIN_CONNS", 2)),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "smart-erp"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Inventory: InventoryConfig{
			LowStockThreshold: threshold,
			LowStockTopN:      getInt(v, "LOW_STOCK_TOP_N", 5),
			AdjustEnabled:     getBool(v, "INVENTORY_ADJUST_ENABLED", false),
			LockTimeout:       getDuration(v, "INVENTORY_LOCK_TIMEOUT", 5*time.Second),
			TxTimeout:         getDuration(v, "INVENTORY_TX_TIMEOUT", 10*time.Second),
			StockCardMaxRows:  getInt(v, "STOCK_CARD_MAX_ROWS", 500),
		},
		Redis: RedisConfig{
			URL:            getString(v, "REDIS_URL", ""),
			IdempotencyTTL: getDuration(v, "IDEMPOTENCY_TTL", 24*time.Hour),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      getString(v, "RABBITMQ_URL", ""),
			Exchange: getString(v, "RABBITMQ_EXCHANGE", "inventory.events"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.App.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("APP_STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, c.App.Storage)
	}
	if c.App.IsProduction() && c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.Inventory.LowStockThreshold.IsNegative() {
		return fmt.Errorf("LOW_STOCK_THRESHOLD must not be negative")
	}
	if c.Inventory.LowStockTopN <= 0 {
		return fmt.Errorf("LOW_STOCK_TOP_N must be positive")
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if !v.IsSet(key) {
		return def
	}
	if s, ok := v.Get(key).(string); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return def
		}
		return n
	}
	return v.GetInt(key)
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if !v.IsSet(key) {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return def
	}
	return b
}

func getDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	if !v.IsSet(key) {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return def
	}
	return d
}

func getDecimal(v *viper.Viper, key string, def decimal.Decimal) (decimal.Decimal, error) {
	if !v.IsSet(key) {
		return def, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
