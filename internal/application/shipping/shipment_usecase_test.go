package shipping_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Envios-api/internal/application/dto"
	"github.com/jhoicas/Envios-api/internal/application/routes"
	"github.com/jhoicas/Envios-api/internal/application/shipping"
	"github.com/jhoicas/Envios-api/internal/application/tracking"
	"github.com/jhoicas/Envios-api/internal/domain"
	"github.com/jhoicas/Envios-api/internal/infrastructure/memory"
	"github.com/jhoicas/Envios-api/pkg/logger"
)

const (
	tenantA = "tenant-a"
	tenantB = "tenant-b"
	userID  = "user-1"
)

// recordingCache caché en memoria que registra invalidaciones.
type recordingCache struct {
	mu          sync.Mutex
	entries     map[string]*dto.TrackingResponse
	invalidated []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: map[string]*dto.TrackingResponse{}}
}

func (c *recordingCache) GetTracking(_ context.Context, tenantID, code string) (*dto.TrackingResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[tenantID+"|"+code], nil
}

func (c *recordingCache) SetTracking(_ context.Context, tenantID, code string, resp *dto.TrackingResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tenantID+"|"+code] = resp
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, tenantID string, codes ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, code := range codes {
		delete(c.entries, tenantID+"|"+code)
		c.invalidated = append(c.invalidated, code)
	}
	return nil
}

func newUseCase(t *testing.T, cfg shipping.Config, cache tracking.Cache) (*shipping.ShipmentUseCase, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	ledger := tracking.NewLedger(cache, logger.Nop())
	uc := shipping.NewShipmentUseCase(store, store.Repos(), ledger, nil, cfg, logger.Nop())
	return uc, store
}

func validRequest() dto.CreateShipmentRequest {
	w := decimal.RequireFromString("2.5")
	return dto.CreateShipmentRequest{
		Origin:      "Bodega Central",
		Destination: "Calle 10 # 20-30",
		Recipient:   "Ana Pérez",
		Weight:      &w,
	}
}

func ptr[T any](v T) *T { return &v }

func TestCreate_NumeracionSecuencial(t *testing.T) {
	uc, _ := newUseCase(t, shipping.Config{StrictTransitions: true}, nil)
	ctx := context.Background()

	var numeros []string
	for i := 0; i < 5; i++ {
		s, err := uc.Create(ctx, tenantA, userID, validRequest())
		require.NoError(t, err)
		assert.Equal(t, "pending", s.State)
		numeros = append(numeros, s.Numero)
	}
	assert.Equal(t, []string{"ENV-000001", "ENV-000002", "ENV-000003", "ENV-000004", "ENV-000005"}, numeros)

	// la numeración es independiente por tenant
	other, err := uc.Create(ctx, tenantB, userID, validRequest())
	require.NoError(t, err)
	assert.Equal(t, "ENV-000001", other.Numero)
}

func TestCreate_PrefijoConfigurable(t *testing.T) {
	uc, _ := newUseCase(t, shipping.Config{Prefix: "GUIA", Padding: 4}, nil)
	s, err := uc.Create(context.Background(), tenantA, userID, validRequest())
	require.NoError(t, err)
	assert.Equal(t, "GUIA-0001", s.Numero)
	assert.Equal(t, 1, s.Pieces)
	assert.True(t, decimal.RequireFromString("2.5").Equal(s.Weight))
}

func TestCreate_CamposObligatorios(t *testing.T) {
	uc, _ := newUseCase(t, shipping.Config{}, nil)
	ctx := context.Background()

	for _, mutate := range []func(*dto.CreateShipmentRequest){
		func(r *dto.CreateShipmentRequest) { r.Origin = "" },
		func(r *dto.CreateShipmentRequest) { r.Destination = "  " },
		func(r *dto.CreateShipmentRequest) { r.Recipient = "" },
		func(r *dto.CreateShipmentRequest) { r.Pieces = ptr(-1) },
	} {
		req := validRequest()
		mutate(&req)
		_, err := uc.Create(ctx, tenantA, userID, req)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}

	list, err := uc.List(ctx, tenantA, dto.ShipmentFilterRequest{})
	require.NoError(t, err)
	assert.Zero(t, list.Page.Total, "no debe persistirse ningún envío inválido")
}

func TestCreate_AbreLibroConEventoPending(t *testing.T) {
	uc, _ := newUseCase(t, shipping.Config{}, nil)
	ctx := context.Background()

	s, err := uc.Create(ctx, tenantA, userID, validRequest())
	require.NoError(t, err)

	events, err := uc.History(ctx, tenantA, s.ID, false)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "pending", events[0].State)
	assert.Equal(t, "Envío creado", events[0].Description)
	assert.Equal(t, userID, *events[0].UserID)
}

func TestCreate_SiFallaElEventoNoQuedaEnvio(t *testing.T) {
	uc, store := newUseCase(t, shipping.Config{}, nil)
	ctx := context.Background()
	store.FailOn("events.Append", errors.New("disco lleno"))

	_, err := uc.Create(ctx, tenantA, userID, validRequest())
	require.Error(t, err)

	list, err := uc.List(ctx, tenantA, dto.ShipmentFilterRequest{})
	require.NoError(t, err)
	assert.Zero(t, list.Page.Total)
}

func TestUpdate_UnEventoPorCambioDeEstado(t *testing.T) {
	uc, _ := newUseCase(t, shipping.Config{StrictTransitions: true}, nil)
	ctx := context.Background()

	s, err := uc.Create(ctx, tenantA, userID, validRequest())
	require.NoError(t, err)

	for _, st := range []string{"in_transit", "in_transit", "out_for_delivery"} {
		_, err := uc.Update(ctx, tenantA, userID, s.ID, dto.UpdateShipmentRequest{State: ptr(st)})
		require.NoError(t, err)
	}

	events, err := uc.History(ctx, tenantA, s.ID, false)
	require.NoError(t, err)
	require.Len(t, events, 3, "creación + dos cambios reales; el repetido es no-op")
	assert.Equal(t, "Estado actualizado a in_transit", events[1].Description)
	assert.Equal(t, "out_for_delivery", events[2].State)

	newest, err := uc.History(ctx, tenantA, s.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "out_for_delivery", newest[0].State)
}

func TestUpdate_DescripcionYUbicacionPersonalizadas(t *testing.T) {
	uc, _ := newUseCase(t, shipping.Config{StrictTransitions: true}, nil)
	ctx := context.Background()
	s, err := uc.Create(ctx, tenantA, userID, validRequest())
	require.NoError(t, err)

	_, err = uc.Update(ctx, tenantA, userID, s.ID, dto.UpdateShipmentRequest{
		State:       ptr("in_transit"),
		Description: ptr("Salió del centro de distribución"),
		Location:    ptr("Medellín"),
		Lat:         ptr(6.24),
		Lng:         ptr(-75.58),
	})
	require.NoError(t, err)

	events, err := uc.History(ctx, tenantA, s.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "Salió del centro de distribución", events[0].Description)
	assert.Equal(t, "Medellín", events[0].Location)
	assert.InDelta(t, 6.24, *events[0].Lat, 1e-9)
}

func TestUpdate_TransicionInvalidaEnModoEstricto(t *testing.T) {
	uc, _ := newUseCase(t, shipping.Config{StrictTransitions: true}, nil)
	ctx := context.Background()
	s, err := uc.Create(ctx, tenantA, userID, validRequest())
	require.NoError(t, err)

	_, err = uc.Update(ctx, tenantA, userID, s.ID, dto.UpdateShipmentRequest{State: ptr("delivered"), Recipient: ptr("Otro")})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err := uc.Get(ctx, tenantA, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", got.State)
	assert.Equal(t, "Ana Pérez", got.Recipient, "la actualización se descarta completa")

	events, err := uc.History(ctx, tenantA, s.ID, false)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestUpdate_ModoPermisivoAceptaYRegistra(t *testing.T) {
	uc, _ := newUseCase(t, shipping.Config{StrictTransitions: false}, nil)
	ctx := context.Background()
	s, err := uc.Create(ctx, tenantA, userID, validRequest())
	require.NoError(t, err)

	got, err := uc.Update(ctx, tenantA, userID, s.ID, dto.UpdateShipmentRequest{State: ptr("delivered")})
	require.NoError(t, err)
	assert.Equal(t, "delivered", got.State)
	assert.NotNil(t, got.DeliveredAt)

	events, err := uc.History(ctx, tenantA, s.ID, false)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestUpdate_EstadoDesconocido(t *testing.T) {
	uc, _ := newUseCase(t, shipping.Config{StrictTransitions: false}, nil)
	ctx := context.Background()
	s, err := uc.Create(ctx, tenantA, userID, validRequest())
	require.NoError(t, err)

	_, err = uc.Update(ctx, tenantA, userID, s.ID, dto.UpdateShipmentRequest{State: ptr("extraviado")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdate_SiFallaElGuardadoNoQuedaEvento(t *testing.T) {
	uc, store := newUseCase(t, shipping.Config{StrictTransitions: true}, nil)
	ctx := context.Background()
	s, err := uc.Create(ctx, tenantA, userID, validRequest())
	require.NoError(t, err)

	store.FailOn("shipments.Update", errors.New("conexión perdida"))
	_, err = uc.Update(ctx, tenantA, userID, s.ID, dto.UpdateShipmentRequest{State: ptr("in_transit")})
	require.Error(t, err)

	events, err := uc.History(ctx, tenantA, s.ID, false)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestUpdate_NoEncontrado(t *testing.T) {
	uc, _ := newUseCase(t, shipping.Config{}, nil)
	_, err := uc.Update(context.Background(), tenantA, userID, "no-existe", dto.UpdateShipmentRequest{Recipient: ptr("X")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAislamientoPorTenant(t *testing.T) {
	uc, _ := newUseCase(t, shipping.Config{}, nil)
	ctx := context.Background()
	s, err := uc.Create(ctx, tenantA, userID, validRequest())
	require.NoError(t, err)

	_, err = uc.Get(ctx, tenantB, s.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = uc.History(ctx, tenantB, s.ID, true)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = uc.Update(ctx, tenantB, userID, s.ID, dto.UpdateShipmentRequest{State: ptr("in_transit")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = uc.Track(ctx, tenantB, s.Numero)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := uc.List(ctx, tenantB, dto.ShipmentFilterRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestCreate_RutaYTransportadoraDeOtroTenant(t *testing.T) {
	uc, store := newUseCase(t, shipping.Config{StrictTransitions: true}, nil)
	routeUC := routes.NewRouteUseCase(store, store.Repos(), logger.Nop())
	ctx := context.Background()
	foreign, err := routeUC.Create(ctx, tenantB, dto.CreateRouteRequest{Name: "Ruta B"})
	require.NoError(t, err)
	store.AddCarrier(tenantB, "car-b", "Transportes B")

	req := validRequest()
	req.RouteID = &foreign.ID
	_, err = uc.Create(ctx, tenantA, userID, req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	req = validRequest()
	req.CarrierID = ptr("car-b")
	_, err = uc.Create(ctx, tenantA, userID, req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	list, err := uc.List(ctx, tenantA, dto.ShipmentFilterRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Items, "nada se persiste")
	route, err := routeUC.Get(ctx, tenantB, foreign.ID)
	require.NoError(t, err)
	assert.Empty(t, route.Stops)

	// tampoco por actualización
	s, err := uc.Create(ctx, tenantA, userID, validRequest())
	require.NoError(t, err)
	_, err = uc.Update(ctx, tenantA, userID, s.ID, dto.UpdateShipmentRequest{CarrierID: ptr("car-b")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	got, err := uc.Get(ctx, tenantA, s.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CarrierID)
}

func TestCreate_ConRutaEntraComoUltimaParada(t *testing.T) {
	uc, store := newUseCase(t, shipping.Config{StrictTransitions: true}, nil)
	routeUC := routes.NewRouteUseCase(store, store.Repos(), logger.Nop())
	ctx := context.Background()
	route, err := routeUC.Create(ctx, tenantA, dto.CreateRouteRequest{Name: "Reparto AM"})
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 2; i++ {
		req := validRequest()
		req.RouteID = &route.ID
		s, err := uc.Create(ctx, tenantA, userID, req)
		require.NoError(t, err)
		require.NotNil(t, s.RouteID)
		assert.Equal(t, route.ID, *s.RouteID)
		ids = append(ids, s.ID)
	}

	detail, err := routeUC.Get(ctx, tenantA, route.ID)
	require.NoError(t, err)
	require.Len(t, detail.Stops, 2)
	for i, stop := range detail.Stops {
		assert.Equal(t, ids[i], stop.ShipmentID)
		assert.Equal(t, i, stop.OrderIndex)
		assert.Equal(t, "Calle 10 # 20-30", stop.Address)
	}
}

func TestList_FiltrosYResumenes(t *testing.T) {
	uc, store := newUseCase(t, shipping.Config{StrictTransitions: true}, nil)
	ctx := context.Background()
	store.AddCarrier(tenantA, "car-1", "Servientrega")

	req := validRequest()
	req.CarrierID = ptr("car-1")
	withCarrier, err := uc.Create(ctx, tenantA, userID, req)
	require.NoError(t, err)
	plain, err := uc.Create(ctx, tenantA, userID, validRequest())
	require.NoError(t, err)
	_, err = uc.Update(ctx, tenantA, userID, plain.ID, dto.UpdateShipmentRequest{State: ptr("in_transit")})
	require.NoError(t, err)

	byCarrier, err := uc.List(ctx, tenantA, dto.ShipmentFilterRequest{CarrierID: "car-1"})
	require.NoError(t, err)
	require.Len(t, byCarrier.Items, 1)
	assert.Equal(t, withCarrier.ID, byCarrier.Items[0].ID)
	assert.Equal(t, "Servientrega", byCarrier.Items[0].CarrierName)

	byState, err := uc.List(ctx, tenantA, dto.ShipmentFilterRequest{State: "in_transit"})
	require.NoError(t, err)
	require.Len(t, byState.Items, 1)
	assert.Equal(t, plain.ID, byState.Items[0].ID)

	page, err := uc.List(ctx, tenantA, dto.ShipmentFilterRequest{PageRequest: dto.PageRequest{Page: 2, Limit: 1}})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Page.Total)
	assert.Equal(t, 1, page.Page.Offset)

	_, err = uc.List(ctx, tenantA, dto.ShipmentFilterRequest{State: "perdido"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = uc.List(ctx, tenantA, dto.ShipmentFilterRequest{From: "ayer"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTrack_PorNumeroYCodigoExterno(t *testing.T) {
	cache := newRecordingCache()
	uc, _ := newUseCase(t, shipping.Config{StrictTransitions: true}, cache)
	ctx := context.Background()

	req := validRequest()
	req.TrackingCode = "SRV123456"
	s, err := uc.Create(ctx, tenantA, userID, req)
	require.NoError(t, err)

	byNumero, err := uc.Track(ctx, tenantA, s.Numero)
	require.NoError(t, err)
	assert.Equal(t, "pending", byNumero.State)
	assert.Len(t, byNumero.Events, 1)

	byCode, err := uc.Track(ctx, tenantA, "SRV123456")
	require.NoError(t, err)
	assert.Equal(t, s.Numero, byCode.Numero)

	// un cambio de estado invalida la consulta cacheada
	_, err = uc.Update(ctx, tenantA, userID, s.ID, dto.UpdateShipmentRequest{State: ptr("in_transit")})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{s.Numero, "SRV123456"}, cache.invalidated)

	fresh, err := uc.Track(ctx, tenantA, s.Numero)
	require.NoError(t, err)
	assert.Equal(t, "in_transit", fresh.State)
	require.Len(t, fresh.Events, 2)
	assert.Equal(t, "in_transit", fresh.Events[0].State, "más reciente primero")

	_, err = uc.Track(ctx, "", s.Numero)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdate_CambioDeCodigoInvalidaElAnterior(t *testing.T) {
	cache := newRecordingCache()
	uc, _ := newUseCase(t, shipping.Config{StrictTransitions: true}, cache)
	ctx := context.Background()

	req := validRequest()
	req.TrackingCode = "OLD-1"
	s, err := uc.Create(ctx, tenantA, userID, req)
	require.NoError(t, err)
	_, err = uc.Track(ctx, tenantA, "OLD-1")
	require.NoError(t, err)

	_, err = uc.Update(ctx, tenantA, userID, s.ID, dto.UpdateShipmentRequest{TrackingCode: ptr("NEW-1")})
	require.NoError(t, err)
	assert.Contains(t, cache.invalidated, "OLD-1")
	assert.Contains(t, cache.invalidated, "NEW-1")

	_, err = uc.Track(ctx, tenantA, "OLD-1")
	assert.ErrorIs(t, err, domain.ErrNotFound, "el código reemplazado ya no responde desde la caché")
	byNew, err := uc.Track(ctx, tenantA, "NEW-1")
	require.NoError(t, err)
	assert.Equal(t, s.Numero, byNew.Numero)
}

func TestLabel_SinGenerador(t *testing.T) {
	uc, _ := newUseCase(t, shipping.Config{}, nil)
	ctx := context.Background()
	s, err := uc.Create(ctx, tenantA, userID, validRequest())
	require.NoError(t, err)
	_, _, err = uc.Label(ctx, tenantA, s.ID)
	assert.Error(t, err)
}
