package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"dishdash-be/internal/utils"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	EnginePostgres = "postgres"
	EngineRedis    = "redis"

	StatusPolicyStrict     = "strict"
	StatusPolicyPermissive = "permissive"

	PriceCheckStrict = "strict"
	PriceCheckOff    = "off"
)

type Config struct {
	AppEnv  string
	AppPort string

	// DBEngine picks the storage engine for the life of the process.
	DBEngine string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	JWTSecret string
	TokenTTL  time.Duration

	DeliveryFee       decimal.Decimal
	OrderStatusPolicy string
	OrderPriceCheck   string

	CORSOrigin     string
	StorageTimeout time.Duration
	// TrustedProxies may set X-Forwarded-For; everyone else is keyed by
	// their own address.
	TrustedProxies []*net.IPNet
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:  getEnv("APP_ENV", "development"),
		AppPort: getEnv("APP_PORT", "5000"),

		DBEngine: strings.ToLower(getEnv("DB_ENGINE", EnginePostgres)),

		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisPrefix:   getEnv("REDIS_PREFIX", "dishdash"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		OrderStatusPolicy: strings.ToLower(getEnv("ORDER_STATUS_POLICY", StatusPolicyStrict)),
		OrderPriceCheck:   strings.ToLower(getEnv("ORDER_PRICE_CHECK", PriceCheckStrict)),

		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),
	}

	var err error
	if cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil {
		log.Printf("invalid REDIS_DB, using 0: %v", err)
		cfg.RedisDB = 0
	}
	if cfg.TokenTTL, err = time.ParseDuration(getEnv("TOKEN_TTL", "168h")); err != nil {
		log.Printf("invalid TOKEN_TTL, using 168h: %v", err)
		cfg.TokenTTL = 7 * 24 * time.Hour
	}
	if cfg.StorageTimeout, err = time.ParseDuration(getEnv("STORAGE_TIMEOUT", "5s")); err != nil {
		log.Printf("invalid STORAGE_TIMEOUT, using 5s: %v", err)
		cfg.StorageTimeout = 5 * time.Second
	}
	if cfg.TrustedProxies, err = utils.ParseNets(os.Getenv("TRUSTED_PROXIES")); err != nil {
		log.Printf("invalid TRUSTED_PROXIES, trusting none: %v", err)
		cfg.TrustedProxies = nil
	}
	if cfg.DeliveryFee, err = decimal.NewFromString(getEnv("DELIVERY_FEE", "5.00")); err != nil {
		log.Printf("invalid DELIVERY_FEE, using 5.00: %v", err)
		cfg.DeliveryFee = decimal.NewFromInt(5)
	}

	return cfg
}

// Validate reports configuration that would make the server unusable.
func (c *Config) Validate() error {
	var errs []error

	switch c.DBEngine {
	case EnginePostgres:
		if c.DBHost == "" || c.DBName == "" {
			errs = append(errs, errors.New("DB_HOST and DB_NAME are required for the postgres engine"))
		}
	case EngineRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis engine"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DB_ENGINE %q (use %q or %q)", c.DBEngine, EnginePostgres, EngineRedis))
	}

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	}
	if c.OrderStatusPolicy != StatusPolicyStrict && c.OrderStatusPolicy != StatusPolicyPermissive {
		errs = append(errs, fmt.Errorf("unknown ORDER_STATUS_POLICY %q", c.OrderStatusPolicy))
	}
	if c.OrderPriceCheck != PriceCheckStrict && c.OrderPriceCheck != PriceCheckOff {
		errs = append(errs, fmt.Errorf("unknown ORDER_PRICE_CHECK %q", c.OrderPriceCheck))
	}
	if c.DeliveryFee.IsNegative() {
		errs = append(errs, errors.New("DELIVERY_FEE must not be negative"))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
