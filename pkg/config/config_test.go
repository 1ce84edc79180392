package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ENV", cfg.Shipping.NumberPrefix)
	assert.Equal(t, 6, cfg.Shipping.NumberPadding)
	assert.True(t, cfg.Shipping.StrictTransitions)
	assert.Equal(t, 3, cfg.Delivery.StepAttempts)
	assert.Equal(t, time.Minute, cfg.Delivery.ReconcileInterval)
	assert.False(t, cfg.Routes.AutoComplete)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.DB.MinConns)
	assert.Equal(t, time.Hour, cfg.DB.MaxConnLife)
	assert.False(t, cfg.DB.ForceIPv4)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SHIPPING_NUMBER_PREFIX", "MKT")
	t.Setenv("SHIPPING_NUMBER_PADDING", "8")
	t.Setenv("SHIPPING_STRICT_TRANSITIONS", "false")
	t.Setenv("DELIVERY_STEP_BACKOFF", "50ms")
	t.Setenv("HTTP_REQUEST_TIMEOUT", "5")
	t.Setenv("ROUTES_AUTO_COMPLETE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "MKT", cfg.Shipping.NumberPrefix)
	assert.Equal(t, 8, cfg.Shipping.NumberPadding)
	assert.False(t, cfg.Shipping.StrictTransitions)
	assert.Equal(t, 50*time.Millisecond, cfg.Delivery.StepBackoff)
	assert.Equal(t, 5*time.Second, cfg.HTTP.RequestTimeout)
	assert.True(t, cfg.Routes.AutoComplete)
}

func TestLoad_RejectsZeroPadding(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SHIPPING_NUMBER_PADDING", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_PoolDesdeEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_MAX_CONNS", "8")
	t.Setenv("DB_MIN_CONNS", "3")
	t.Setenv("DB_MAX_CONN_IDLE", "2m")
	t.Setenv("DB_FORCE_IPV4", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.DB.MaxConns)
	assert.Equal(t, 3, cfg.DB.MinConns)
	assert.Equal(t, 2*time.Minute, cfg.DB.MaxConnIdle)
	assert.True(t, cfg.DB.ForceIPv4)
}

func TestLoad_RechazaMinimoMayorQueMaximo(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_MAX_CONNS", "2")
	t.Setenv("DB_MIN_CONNS", "5")

	_, err := Load()
	assert.Error(t, err)
}

func TestDSN_EscapesPassword(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss/word", DBName: "envios", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%2Fword@db:5432/envios?sslmode=disable", c.DSN())
}
