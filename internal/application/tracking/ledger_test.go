package tracking_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Envios-api/internal/application/dto"
	"github.com/jhoicas/Envios-api/internal/application/tracking"
	"github.com/jhoicas/Envios-api/internal/domain/entity"
	"github.com/jhoicas/Envios-api/internal/infrastructure/memory"
	"github.com/jhoicas/Envios-api/pkg/logger"
)

type failingCache struct{ tracking.NopCache }

func (failingCache) GetTracking(context.Context, string, string) (*dto.TrackingResponse, error) {
	return nil, errors.New("redis caído")
}

func (failingCache) Invalidate(context.Context, string, ...string) error {
	return errors.New("redis caído")
}

func TestLedger_AppendEsIdempotentePorID(t *testing.T) {
	store := memory.NewStore()
	events := store.Repos().Events
	ledger := tracking.NewLedger(nil, logger.Nop())
	ctx := context.Background()
	shipment := &entity.Shipment{ID: "s-1", TenantID: "t-1", Numero: "ENV-000001"}

	first, err := ledger.Append(ctx, events, shipment, tracking.Entry{ID: "task-1", State: entity.ShipmentDelivered, Description: "Entrega confirmada"})
	require.NoError(t, err)
	assert.Equal(t, "task-1", first.ID)
	_, err = ledger.Append(ctx, events, shipment, tracking.Entry{ID: "task-1", State: entity.ShipmentDelivered, Description: "Entrega confirmada"})
	require.NoError(t, err)

	generated, err := ledger.Append(ctx, events, shipment, tracking.Entry{State: entity.ShipmentReturned, Description: "Envío devuelto"})
	require.NoError(t, err)
	assert.NotEmpty(t, generated.ID)

	history, err := ledger.History(ctx, events, "t-1", "s-1", false)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, entity.ShipmentDelivered, history[0].State)
	assert.Equal(t, entity.ShipmentReturned, history[1].State)

	other, err := ledger.History(ctx, events, "t-2", "s-1", false)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestLedger_FallosDeCacheNoSePropagan(t *testing.T) {
	ledger := tracking.NewLedger(failingCache{}, logger.Nop())
	ctx := context.Background()

	assert.Nil(t, ledger.Cached(ctx, "t-1", "ENV-000001"))
	assert.NotPanics(t, func() {
		ledger.Invalidate(ctx, &entity.Shipment{ID: "s-1", TenantID: "t-1", Numero: "ENV-000001"})
	})
}
