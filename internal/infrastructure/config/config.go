package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	domain "github.com/Zhima-Mochi/inventory-tracker/internal/domain/inventory"
	"github.com/Zhima-Mochi/inventory-tracker/internal/infrastructure/jsonfile"
	"github.com/Zhima-Mochi/inventory-tracker/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/inventory-tracker/internal/infrastructure/redisstore"
)

// Config groups the process configuration. Environment variables win over
// config.env / .env files, and bound command-line flags win over both.
type Config struct {
	App       AppConfig
	Inventory InventoryConfig
	Log       zaplogger.Config
	HTTP      HTTPConfig
	Redis     RedisConfig
}

type AppConfig struct {
	Name string
	Env  string
}

type InventoryConfig struct {
	File              string
	LowStockThreshold int
}

type HTTPConfig struct {
	Addr      string
	// RateLimit is requests per second across the API; 0 disables limiting.
	RateLimit float64
	RateBurst int
}

// RedisConfig selects the Redis snapshot backend when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

const (
	KeyServiceName       = "SERVICE_NAME"
	KeyEnv               = "ENV"
	KeyInventoryFile     = "INVENTORY_FILE"
	KeyLowStockThreshold = "LOW_STOCK_THRESHOLD"
	KeyLogLevel          = "LOG_LEVEL"
	KeyLogFormat         = "LOG_FORMAT"
	KeyLogFile           = "LOG_FILE"
	KeyHTTPAddr          = "HTTP_ADDR"
	KeyHTTPRateLimit     = "HTTP_RATE_LIMIT"
	KeyHTTPRateBurst     = "HTTP_RATE_BURST"
	KeyRedisAddr         = "REDIS_ADDR"
	KeyRedisPassword     = "REDIS_PASSWORD"
	KeyRedisDB           = "REDIS_DB"
	KeyRedisKey          = "REDIS_KEY"
)

// New returns a viper instance with defaults, env binding and optional
// config files already applied. A .env file only fills variables that are
// not already set in the environment.
func New() *viper.Viper {
	_ = godotenv.Load() // optional

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // optional

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyServiceName, "inventory-tracker")
	v.SetDefault(KeyEnv, "dev")
	v.SetDefault(KeyInventoryFile, jsonfile.DefaultPath)
	v.SetDefault(KeyLowStockThreshold, domain.DefaultLowStockThreshold)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyHTTPAddr, ":8080")
	v.SetDefault(KeyHTTPRateLimit, 0)
	v.SetDefault(KeyHTTPRateBurst, 20)
	v.SetDefault(KeyRedisAddr, "")
	v.SetDefault(KeyRedisPassword, "")
	v.SetDefault(KeyRedisDB, 0)
	v.SetDefault(KeyRedisKey, redisstore.DefaultKey)
}

// Load reads the configuration from v.
func Load(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Name: v.GetString(KeyServiceName),
			Env:  v.GetString(KeyEnv),
		},
		Inventory: InventoryConfig{
			File:              v.GetString(KeyInventoryFile),
			LowStockThreshold: v.GetInt(KeyLowStockThreshold),
		},
		Log: zaplogger.Config{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
			File:   v.GetString(KeyLogFile),
		},
		HTTP: HTTPConfig{
			Addr:      v.GetString(KeyHTTPAddr),
			RateLimit: v.GetFloat64(KeyHTTPRateLimit),
			RateBurst: v.GetInt(KeyHTTPRateBurst),
		},
		Redis: RedisConfig{
			Addr:     v.GetString(KeyRedisAddr),
			Password: v.GetString(KeyRedisPassword),
			DB:       v.GetInt(KeyRedisDB),
			Key:      v.GetString(KeyRedisKey),
		},
	}
}
