package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load(New())

	assert.Equal(t, "inventory-tracker", cfg.App.Name)
	assert.Equal(t, "inventory.json", cfg.Inventory.File)
	assert.Equal(t, 5, cfg.Inventory.LowStockThreshold)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Zero(t, cfg.HTTP.RateLimit)
	assert.Equal(t, 20, cfg.HTTP.RateBurst)
	assert.Equal(t, "inventory", cfg.Redis.Key)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv(KeyInventoryFile, "/tmp/stock.json")
	t.Setenv(KeyLowStockThreshold, "12")
	t.Setenv(KeyLogFormat, "json")
	t.Setenv(KeyRedisAddr, "localhost:6379")
	t.Setenv(KeyHTTPRateLimit, "2.5")

	cfg := Load(New())

	assert.Equal(t, "/tmp/stock.json", cfg.Inventory.File)
	assert.Equal(t, 12, cfg.Inventory.LowStockThreshold)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 2.5, cfg.HTTP.RateLimit)
}

func TestLoad_ExplicitSetWins(t *testing.T) {
	t.Setenv(KeyInventoryFile, "/from/env.json")
	v := New()
	v.Set(KeyInventoryFile, "/from/flag.json")

	assert.Equal(t, "/from/flag.json", Load(v).Inventory.File)
}
