package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Success loading from env", func(t *testing.T) {
		t.Setenv("DB_ENGINE", "Redis")
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("DB_USER", "testuser")
		t.Setenv("DB_PASSWORD", "testpass")
		t.Setenv("DB_NAME", "testdb")
		t.Setenv("DB_PORT", "5433")
		t.Setenv("APP_PORT", "8080")
		t.Setenv("APP_ENV", "test")
		t.Setenv("REDIS_ADDR", "redis:6379")
		t.Setenv("REDIS_DB", "2")
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("TOKEN_TTL", "1h")
		t.Setenv("DELIVERY_FEE", "7.50")
		t.Setenv("ORDER_STATUS_POLICY", "permissive")
		t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8")

		cfg := LoadConfig()

		require.NotNil(t, cfg)
		assert.Equal(t, EngineRedis, cfg.DBEngine)
		assert.Equal(t, "localhost", cfg.DBHost)
		assert.Equal(t, "testuser", cfg.DBUser)
		assert.Equal(t, "testpass", cfg.DBPassword)
		assert.Equal(t, "testdb", cfg.DBName)
		assert.Equal(t, "5433", cfg.DBPort)
		assert.Equal(t, "8080", cfg.AppPort)
		assert.Equal(t, "test", cfg.AppEnv)
		assert.Equal(t, "redis:6379", cfg.RedisAddr)
		assert.Equal(t, 2, cfg.RedisDB)
		assert.Equal(t, time.Hour, cfg.TokenTTL)
		assert.True(t, decimal.RequireFromString("7.5").Equal(cfg.DeliveryFee))
		assert.Equal(t, StatusPolicyPermissive, cfg.OrderStatusPolicy)
		require.Len(t, cfg.TrustedProxies, 1)
		assert.Equal(t, "10.0.0.0/8", cfg.TrustedProxies[0].String())
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Defaults", func(t *testing.T) {
		for _, k := range []string{"DB_ENGINE", "APP_PORT", "DELIVERY_FEE", "TOKEN_TTL", "ORDER_STATUS_POLICY", "ORDER_PRICE_CHECK", "STORAGE_TIMEOUT", "TRUSTED_PROXIES"} {
			t.Setenv(k, "")
		}

		cfg := LoadConfig()

		assert.Equal(t, EnginePostgres, cfg.DBEngine)
		assert.Equal(t, "5000", cfg.AppPort)
		assert.True(t, decimal.NewFromInt(5).Equal(cfg.DeliveryFee))
		assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
		assert.Equal(t, 5*time.Second, cfg.StorageTimeout)
		assert.Equal(t, StatusPolicyStrict, cfg.OrderStatusPolicy)
		assert.Equal(t, PriceCheckStrict, cfg.OrderPriceCheck)
		assert.Empty(t, cfg.TrustedProxies)
	})

	t.Run("Invalid Trusted Proxies", func(t *testing.T) {
		t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,not-an-ip")

		cfg := LoadConfig()

		assert.Empty(t, cfg.TrustedProxies)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DBEngine:          EnginePostgres,
			DBHost:            "localhost",
			DBName:            "food",
			JWTSecret:         "s",
			OrderStatusPolicy: StatusPolicyStrict,
			OrderPriceCheck:   PriceCheckStrict,
			DeliveryFee:       decimal.NewFromInt(5),
		}
	}

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("UnknownEngine", func(t *testing.T) {
		cfg := valid()
		cfg.DBEngine = "dynamodb"
		assert.ErrorContains(t, cfg.Validate(), "unknown DB_ENGINE")
	})

	t.Run("MissingSecret", func(t *testing.T) {
		cfg := valid()
		cfg.JWTSecret = ""
		assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")
	})

	t.Run("PostgresWithoutHost", func(t *testing.T) {
		cfg := valid()
		cfg.DBHost = ""
		assert.ErrorContains(t, cfg.Validate(), "DB_HOST")
	})

	t.Run("NegativeFee", func(t *testing.T) {
		cfg := valid()
		cfg.DeliveryFee = decimal.NewFromInt(-1)
		assert.ErrorContains(t, cfg.Validate(), "DELIVERY_FEE")
	})
}
