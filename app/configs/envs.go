package configs

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/Rakhulsr/axen-cart/app/models"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type ENV struct {
	Port       string
	AppEnv     string
	LogLevel   string
	AppAuthKey string
	AppEncKey  string

	StorageDriver       string
	StoragePollInterval time.Duration
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	DBHost              string
	DBUser              string
	DBPassword          string
	DBName              string
	DBPort              string

	CartScope      string
	CartPriceMerge string
	DiscountRate   decimal.Decimal
	ShippingCost   decimal.Decimal
	HandoffMaxAge  time.Duration
	CSRFEnabled    bool
}

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageMySQL  = "mysql"

	PriceMergeOverwriteNonZero = "overwrite-nonzero"
	PriceMergeKeepExisting     = "keep-existing"
)

var ErrInvalidEnv = errors.New("invalid environment")

// LoadEnv reads .env (when present) and the process environment. Values
// that don't parse are reported rather than silently defaulted.
func LoadEnv() (ENV, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("Warning: No .env file found ")
	}

	env := ENV{
		Port:           getEnv("APP_PORT", ":8080"),
		AppEnv:         getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AppAuthKey:     os.Getenv("APP_AUTH_KEY"),
		AppEncKey:      os.Getenv("APP_ENC_KEY"),
		StorageDriver:  getEnv("STORAGE_DRIVER", StorageMemory),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		DBHost:         getEnv("DB_HOST", "127.0.0.1"),
		DBUser:         getEnv("DB_USER", "root"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         getEnv("DB_NAME", "axen_cart"),
		DBPort:         getEnv("DB_PORT", "3306"),
		CartScope:      getEnv("CART_SCOPE", "session"),
		CartPriceMerge: getEnv("CART_PRICE_MERGE", PriceMergeOverwriteNonZero),
	}

	var err error
	if env.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil {
		return ENV{}, fmt.Errorf("%w: REDIS_DB: %v", ErrInvalidEnv, err)
	}
	if env.StoragePollInterval, err = time.ParseDuration(getEnv("STORAGE_POLL_INTERVAL", "1s")); err != nil {
		return ENV{}, fmt.Errorf("%w: STORAGE_POLL_INTERVAL: %v", ErrInvalidEnv, err)
	}
	if env.HandoffMaxAge, err = time.ParseDuration(getEnv("HANDOFF_MAX_AGE", "30m")); err != nil {
		return ENV{}, fmt.Errorf("%w: HANDOFF_MAX_AGE: %v", ErrInvalidEnv, err)
	}
	if env.DiscountRate, err = decimal.NewFromString(getEnv("DISCOUNT_RATE", models.DefaultDiscountRate.String())); err != nil {
		return ENV{}, fmt.Errorf("%w: DISCOUNT_RATE: %v", ErrInvalidEnv, err)
	}
	if env.ShippingCost, err = decimal.NewFromString(getEnv("SHIPPING_COST", "8")); err != nil {
		return ENV{}, fmt.Errorf("%w: SHIPPING_COST: %v", ErrInvalidEnv, err)
	}
	if env.CSRFEnabled, err = strconv.ParseBool(getEnv("CSRF_ENABLED", "false")); err != nil {
		return ENV{}, fmt.Errorf("%w: CSRF_ENABLED: %v", ErrInvalidEnv, err)
	}

	if err := env.Validate(); err != nil {
		return ENV{}, err
	}
	return env, nil
}

func (e ENV) Validate() error {
	switch e.StorageDriver {
	case StorageMemory, StorageRedis, StorageMySQL:
	default:
		return fmt.Errorf("%w: STORAGE_DRIVER %q", ErrInvalidEnv, e.StorageDriver)
	}
	switch e.CartScope {
	case "session", "device":
	default:
		return fmt.Errorf("%w: CART_SCOPE %q", ErrInvalidEnv, e.CartScope)
	}
	switch e.CartPriceMerge {
	case PriceMergeOverwriteNonZero, PriceMergeKeepExisting:
	default:
		return fmt.Errorf("%w: CART_PRICE_MERGE %q", ErrInvalidEnv, e.CartPriceMerge)
	}
	return e.PricingPolicy().Validate()
}

func (e ENV) PricingPolicy() models.PricingPolicy {
	return models.PricingPolicy{
		DiscountRate: e.DiscountRate,
		ShippingCost: e.ShippingCost,
	}
}

func (e ENV) IsProduction() bool {
	return e.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
