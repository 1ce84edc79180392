package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Envios-api/internal/application/dto"
)

func TestTrackingKey(t *testing.T) {
	assert.Equal(t, "tracking:tenant-a:ENV-000001", TrackingKey("tenant-a", "ENV-000001"))
}

// Requiere un Redis real: REDIS_TEST_ADDR=localhost:6379.
func TestTrackingCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR no definido")
	}
	ctx := context.Background()
	c, err := NewTrackingCache(ctx, addr, "", 0, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	tenant := "t-" + uuid.NewString()

	got, err := c.GetTracking(ctx, tenant, "ENV-000001")
	require.NoError(t, err)
	assert.Nil(t, got)

	resp := &dto.TrackingResponse{Numero: "ENV-000001", State: "in_transit", Events: []dto.TrackingEventResponse{}}
	require.NoError(t, c.SetTracking(ctx, tenant, "ENV-000001", resp))

	got, err = c.GetTracking(ctx, tenant, "ENV-000001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "in_transit", got.State)

	// Otro tenant no ve la entrada.
	other, err := c.GetTracking(ctx, "otro-"+tenant, "ENV-000001")
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, c.Invalidate(ctx, tenant, "ENV-000001", ""))
	got, err = c.GetTracking(ctx, tenant, "ENV-000001")
	require.NoError(t, err)
	assert.Nil(t, got)
}
