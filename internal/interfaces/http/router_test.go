package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Envios-api/internal/application/delivery"
	"github.com/jhoicas/Envios-api/internal/application/dto"
	"github.com/jhoicas/Envios-api/internal/application/routes"
	"github.com/jhoicas/Envios-api/internal/application/shipping"
	"github.com/jhoicas/Envios-api/internal/application/tracking"
	"github.com/jhoicas/Envios-api/internal/infrastructure/importer"
	"github.com/jhoicas/Envios-api/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/Envios-api/internal/interfaces/http"
	"github.com/jhoicas/Envios-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

type testAPI struct {
	t     *testing.T
	app   *fiber.App
	token string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memory.NewStore()
	log := logger.Nop()
	ledger := tracking.NewLedger(nil, log)
	shipmentUC := shipping.NewShipmentUseCase(store, store.Repos(), ledger, nil, shipping.Config{StrictTransitions: true}, log)

	app := fiber.New()
	app.Use(apphttp.AccessLog(log))
	apphttp.Router(app, apphttp.RouterDeps{
		ShipmentUC: shipmentUC,
		BulkIntake: shipping.NewBulkIntake(shipmentUC),
		FileParser: importer.Parse,
		RouteUC:    routes.NewRouteUseCase(store, store.Repos(), log),
		DeliveryUC: delivery.NewDeliveryUseCase(store, store.Repos(), ledger, delivery.Config{StrictTransitions: true}, log),
		JWTSecret:  testJWTSecret,
		Log:        log,
	})
	return &testAPI{t: t, app: app, token: bearer(t, testTenantID, "admin")}
}

// do envía la petición con el token del tenant de prueba y decodifica el JSON en out (si no es nil).
func (a *testAPI) do(method, path string, body any, out any) int {
	a.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", a.token)
	}
	return a.send(req, out)
}

func (a *testAPI) send(req *http.Request, out any) int {
	a.t.Helper()
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (a *testAPI) createShipment(recipient string) dto.ShipmentResponse {
	a.t.Helper()
	var out dto.ShipmentResponse
	status := a.do(http.MethodPost, "/api/shipments", dto.CreateShipmentRequest{
		Origin: "Bodega Norte", Destination: "Calle 10 # 5-20", Recipient: recipient,
	}, &out)
	require.Equal(a.t, http.StatusCreated, status)
	return out
}

func ptr[T any](v T) *T { return &v }

// ──────────────────────────────────────────────────────────────────────────────
// Envíos
// ──────────────────────────────────────────────────────────────────────────────

func TestShipments_CrearYConsultar(t *testing.T) {
	api := newTestAPI(t)

	created := api.createShipment("Ana Pérez")
	assert.Equal(t, "ENV-000001", created.Numero)
	assert.Equal(t, "pending", created.State)

	var got dto.ShipmentResponse
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/shipments/"+created.ID, nil, &got))
	assert.Equal(t, created.Numero, got.Numero)

	var list dto.ShipmentListResponse
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/shipments?state=pending&limit=5", nil, &list))
	assert.Equal(t, 1, list.Page.Total)
	assert.Equal(t, 5, list.Page.Limit)
}

func TestShipments_ErroresMapeados(t *testing.T) {
	api := newTestAPI(t)

	var e dto.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/shipments", dto.CreateShipmentRequest{Origin: "A"}, &e))
	assert.Equal(t, "VALIDATION", e.Code)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/shipments/no-existe", nil, &e))
	assert.Equal(t, "NOT_FOUND", e.Code)

	created := api.createShipment("Ana")
	assert.Equal(t, http.StatusOK, api.do(http.MethodPut, "/api/shipments/"+created.ID,
		dto.UpdateShipmentRequest{State: ptr("in_transit")}, nil))
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPut, "/api/shipments/"+created.ID,
		dto.UpdateShipmentRequest{State: ptr("pending")}, &e))
	assert.Equal(t, "INVALID_TRANSITION", e.Code)
}

func TestShipments_SinTokenRetorna401(t *testing.T) {
	api := newTestAPI(t)
	api.token = ""

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/shipments", nil, nil))
}

func TestShipments_OtroTenantNoVe(t *testing.T) {
	api := newTestAPI(t)
	created := api.createShipment("Ana")

	api.token = bearer(t, "tenant-b", "admin")
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/shipments/"+created.ID, nil, nil))
}

func TestShipments_HistorialDeEventos(t *testing.T) {
	api := newTestAPI(t)
	created := api.createShipment("Ana")
	require.Equal(t, http.StatusOK, api.do(http.MethodPut, "/api/shipments/"+created.ID,
		dto.UpdateShipmentRequest{State: ptr("in_transit"), Location: ptr("Centro de acopio")}, nil))

	var events []dto.TrackingEventResponse
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/shipments/"+created.ID+"/events", nil, &events))
	require.Len(t, events, 2)
	assert.Equal(t, "pending", events[0].State)
	assert.Equal(t, "in_transit", events[1].State)

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/shipments/"+created.ID+"/events?order=desc", nil, &events))
	assert.Equal(t, "in_transit", events[0].State)
}

// ──────────────────────────────────────────────────────────────────────────────
// Seguimiento público
// ──────────────────────────────────────────────────────────────────────────────

func TestTracking_PublicoSinToken(t *testing.T) {
	api := newTestAPI(t)
	created := api.createShipment("Ana")
	api.token = ""

	var out dto.TrackingResponse
	req := httptest.NewRequest(http.MethodGet, "/api/shipments/tracking/"+created.Numero, nil)
	req.Header.Set(apphttp.TenantHeader, testTenantID)
	assert.Equal(t, http.StatusOK, api.send(req, &out))
	assert.Equal(t, created.Numero, out.Numero)
	require.Len(t, out.Events, 1)

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/public/tracking/"+created.Numero+"?tenant="+testTenantID, nil, nil))
}

func TestTracking_SinTenantOtroTenant(t *testing.T) {
	api := newTestAPI(t)
	created := api.createShipment("Ana")
	api.token = ""

	var e dto.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/shipments/tracking/"+created.Numero, nil, &e))
	assert.Equal(t, "VALIDATION", e.Code)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/shipments/tracking/"+created.Numero+"?tenant=otro", nil, nil))
}

// ──────────────────────────────────────────────────────────────────────────────
// Carga masiva
// ──────────────────────────────────────────────────────────────────────────────

func TestBulk_ParcialYTotalmenteFallido(t *testing.T) {
	api := newTestAPI(t)

	var out dto.BulkCreateShipmentsResponse
	status := api.do(http.MethodPost, "/api/shipments/bulk", dto.BulkCreateShipmentsRequest{Items: []dto.CreateShipmentRequest{
		{Origin: "A", Destination: "B", Recipient: "C"},
		{Origin: "A"},
	}}, &out)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, 1, out.CreatedCount)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, 2, out.Errors[0].Row)

	status = api.do(http.MethodPost, "/api/shipments/bulk", dto.BulkCreateShipmentsRequest{Items: []dto.CreateShipmentRequest{{Origin: "A"}}}, &out)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, 0, out.CreatedCount)
	assert.Len(t, out.Errors, 1)

	var e dto.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/shipments/bulk", dto.BulkCreateShipmentsRequest{}, &e))
	assert.Equal(t, "VALIDATION", e.Code)
}

func TestBulk_RequiereRolGestor(t *testing.T) {
	api := newTestAPI(t)
	api.token = bearer(t, testTenantID, "repartidor")

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/api/shipments/bulk",
		dto.BulkCreateShipmentsRequest{Items: []dto.CreateShipmentRequest{{Origin: "A", Destination: "B", Recipient: "C"}}}, nil))
}

func TestBulk_UploadCSV(t *testing.T) {
	api := newTestAPI(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "lote.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("origen,destino,destinatario\nBodega,Calle 1,Ana\nBodega,Calle 2,\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/shipments/bulk/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", api.token)

	var out dto.BulkCreateShipmentsResponse
	assert.Equal(t, http.StatusCreated, api.send(req, &out))
	assert.Equal(t, 1, out.CreatedCount)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, 2, out.Errors[0].Row)
}

// ──────────────────────────────────────────────────────────────────────────────
// Rutas y entregas
// ──────────────────────────────────────────────────────────────────────────────

func TestRoutes_OptimizeYEntrega(t *testing.T) {
	api := newTestAPI(t)

	var route dto.RouteResponse
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/routes", dto.CreateRouteRequest{Name: "Reparto AM"}, &route))

	var e dto.ErrorResponse
	far := api.createShipment("Lejos")
	near := api.createShipment("Cerca")
	var stopFar, stopNear dto.RouteStopResponse
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/routes/"+route.ID+"/stops",
		dto.AddStopRequest{ShipmentID: far.ID}, &stopFar))

	// Sin coordenadas no hay nada que optimizar.
	assert.Equal(t, http.StatusUnprocessableEntity, api.do(http.MethodPost, "/api/routes/"+route.ID+"/optimize", nil, &e))
	assert.Equal(t, "NO_GEOLOCATED_STOPS", e.Code)

	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/routes/"+route.ID+"/stops",
		dto.AddStopRequest{ShipmentID: near.ID, Lat: ptr(4.60), Lng: ptr(-74.08)}, &stopNear))

	var opt dto.OptimizeRouteResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/routes/"+route.ID+"/optimize", nil, &opt))
	require.Len(t, opt.Stops, 2)
	assert.Equal(t, stopNear.ID, opt.Stops[0].ID)
	assert.Equal(t, 1, opt.Unlocated)

	req := httptest.NewRequest(http.MethodGet, "/api/routes/"+route.ID+"/geojson", nil)
	req.Header.Set("Authorization", api.token)
	resp, err := api.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/geo+json", resp.Header.Get("Content-Type"))

	require.Equal(t, http.StatusOK, api.do(http.MethodPut, "/api/shipments/"+near.ID,
		dto.UpdateShipmentRequest{State: ptr("out_for_delivery")}, nil))

	var confirmed dto.ConfirmDeliveryResponse
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/deliveries", dto.CreateDeliveryRequest{
		ShipmentID: near.ID, RouteStopID: ptr(stopNear.ID), SignedBy: "Portería",
	}, &confirmed))
	assert.True(t, confirmed.Consistent)
	assert.Len(t, confirmed.SideEffects, 3)

	var shipment dto.ShipmentResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/shipments/"+near.ID, nil, &shipment))
	assert.Equal(t, "delivered", shipment.State)

	var again dto.ConfirmDeliveryResponse
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/deliveries/"+confirmed.Delivery.ID, nil, &again))
	assert.Equal(t, confirmed.Delivery.ID, again.Delivery.ID)

	var deliveries dto.DeliveryListResponse
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/deliveries?shipment_id="+near.ID, nil, &deliveries))
	assert.Len(t, deliveries.Items, 1)
}

func TestRoutes_DeleteSoloGestor(t *testing.T) {
	api := newTestAPI(t)
	var route dto.RouteResponse
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/routes", dto.CreateRouteRequest{Name: "R"}, &route))

	admin := api.token
	api.token = bearer(t, testTenantID, "repartidor")
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, "/api/routes/"+route.ID, nil, nil))

	api.token = admin
	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/api/routes/"+route.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/routes/"+route.ID, nil, nil))
}

func TestDeliveries_Validacion(t *testing.T) {
	api := newTestAPI(t)

	var e dto.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/deliveries", dto.CreateDeliveryRequest{}, &e))
	assert.Equal(t, "VALIDATION", e.Code)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/api/deliveries",
		dto.CreateDeliveryRequest{ShipmentID: "no-existe"}, &e))
}

func TestLabel_SinGeneradorRetorna500(t *testing.T) {
	api := newTestAPI(t)
	created := api.createShipment("Ana")

	var e dto.ErrorResponse
	assert.Equal(t, http.StatusInternalServerError, api.do(http.MethodGet, "/api/shipments/"+created.ID+"/label", nil, &e))
	assert.Equal(t, "INTERNAL", e.Code)
	assert.Equal(t, "error interno", e.Message)
}
