package shipping_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Envios-api/internal/application/dto"
	"github.com/jhoicas/Envios-api/internal/application/shipping"
	"github.com/jhoicas/Envios-api/internal/domain"
)

func TestBulk_ExitoParcial(t *testing.T) {
	uc, _ := newUseCase(t, shipping.Config{}, nil)
	bulk := shipping.NewBulkIntake(uc)
	ctx := context.Background()

	items := make([]dto.CreateShipmentRequest, 5)
	for i := range items {
		items[i] = validRequest()
	}
	items[1].Destination = ""
	items[3].Destination = ""

	resp, err := bulk.Create(ctx, tenantA, userID, items)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.CreatedCount)
	require.Len(t, resp.Errors, 2)
	assert.Equal(t, 2, resp.Errors[0].Row)
	assert.Equal(t, 4, resp.Errors[1].Row)
	assert.Contains(t, resp.Errors[0].Error, "destination")

	var numeros []string
	for _, c := range resp.Created {
		numeros = append(numeros, c.Numero)
		got, err := uc.Get(ctx, tenantA, c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.Numero, got.Numero)
	}
	assert.Equal(t, []string{"ENV-000001", "ENV-000002", "ENV-000003"}, numeros)

	// la numeración continúa después del bloque reservado
	next, err := uc.Create(ctx, tenantA, userID, validRequest())
	require.NoError(t, err)
	assert.Equal(t, "ENV-000004", next.Numero)
}

func TestBulk_CadaFilaAbreSuLibro(t *testing.T) {
	uc, _ := newUseCase(t, shipping.Config{}, nil)
	ctx := context.Background()
	resp, err := shipping.NewBulkIntake(uc).Create(ctx, tenantA, userID, []dto.CreateShipmentRequest{validRequest(), validRequest()})
	require.NoError(t, err)
	for _, c := range resp.Created {
		events, err := uc.History(ctx, tenantA, c.ID, false)
		require.NoError(t, err)
		assert.Len(t, events, 1)
	}
}

func TestBulk_FalloDeAlmacenamientoDejaHueco(t *testing.T) {
	uc, store := newUseCase(t, shipping.Config{}, nil)
	ctx := context.Background()
	store.FailOn("shipments.Create", errors.New("timeout"))

	resp, err := shipping.NewBulkIntake(uc).Create(ctx, tenantA, userID, []dto.CreateShipmentRequest{validRequest(), validRequest(), validRequest()})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.CreatedCount)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, 1, resp.Errors[0].Row)
	assert.Equal(t, "ENV-000002", resp.Created[0].Numero)
	assert.Equal(t, "ENV-000003", resp.Created[1].Numero)
}

func TestBulk_TodasFallan(t *testing.T) {
	uc, _ := newUseCase(t, shipping.Config{}, nil)
	bad := validRequest()
	bad.Recipient = ""

	resp, err := shipping.NewBulkIntake(uc).Create(context.Background(), tenantA, userID, []dto.CreateShipmentRequest{bad, bad})
	assert.ErrorIs(t, err, domain.ErrBatchFailed)
	require.NotNil(t, resp)
	assert.Zero(t, resp.CreatedCount)
	assert.Len(t, resp.Errors, 2)
}

func TestBulk_LoteVacio(t *testing.T) {
	uc, _ := newUseCase(t, shipping.Config{}, nil)
	_, err := shipping.NewBulkIntake(uc).Create(context.Background(), tenantA, userID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBulk_ErroresDelParserSeReportanPorFila(t *testing.T) {
	uc, _ := newUseCase(t, shipping.Config{}, nil)
	rows := []shipping.BulkRow{
		{Item: validRequest()},
		{Err: errors.New("weight: valor no numérico")},
	}
	resp, err := shipping.NewBulkIntake(uc).CreateRows(context.Background(), tenantA, userID, rows)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.CreatedCount)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, 2, resp.Errors[0].Row)
	assert.Equal(t, "weight: valor no numérico", resp.Errors[0].Error)
}
