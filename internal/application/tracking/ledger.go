package tracking

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Envios-api/internal/application/dto"
	"github.com/jhoicas/Envios-api/internal/domain/entity"
	"github.com/jhoicas/Envios-api/internal/domain/repository"
	"github.com/jhoicas/Envios-api/pkg/logger"
)

// Cache puerto de caché para la consulta pública de seguimiento.
// GetTracking devuelve (nil, nil) si no hay entrada.
type Cache interface {
	GetTracking(ctx context.Context, tenantID, code string) (*dto.TrackingResponse, error)
	SetTracking(ctx context.Context, tenantID, code string, resp *dto.TrackingResponse) error
	Invalidate(ctx context.Context, tenantID string, codes ...string) error
}

// NopCache caché deshabilitada.
type NopCache struct{}

func (NopCache) GetTracking(context.Context, string, string) (*dto.TrackingResponse, error) {
	return nil, nil
}
func (NopCache) SetTracking(context.Context, string, string, *dto.TrackingResponse) error { return nil }
func (NopCache) Invalidate(context.Context, string, ...string) error                      { return nil }

// Entry datos de una nueva entrada del libro. ID vacío genera uno nuevo.
type Entry struct {
	ID          string
	State       entity.ShipmentState
	Description string
	Location    string
	Lat         *float64
	Lng         *float64
	UserID      *string
}

// Ledger libro de seguimiento de envíos: solo agrega y lee en orden.
// Los únicos llamadores son la creación de envíos, el cambio de estado y la confirmación de entrega.
type Ledger struct {
	cache Cache
	log   *logger.Logger
	now   func() time.Time
}

// NewLedger construye el libro. cache puede ser nil (sin caché).
func NewLedger(cache Cache, log *logger.Logger) *Ledger {
	if cache == nil {
		cache = NopCache{}
	}
	return &Ledger{cache: cache, log: log, now: time.Now}
}

// Append agrega una entrada para el envío usando el repositorio recibido (normalmente atado a una tx).
func (l *Ledger) Append(ctx context.Context, events repository.TrackingEventRepository, shipment *entity.Shipment, e Entry) (*entity.TrackingEvent, error) {
	id := e.ID
	if id == "" {
		id = uuid.New().String()
	}
	ev := &entity.TrackingEvent{
		ID:          id,
		TenantID:    shipment.TenantID,
		ShipmentID:  shipment.ID,
		State:       e.State,
		Description: e.Description,
		Location:    e.Location,
		Lat:         e.Lat,
		Lng:         e.Lng,
		UserID:      e.UserID,
		CreatedAt:   l.now(),
	}
	if err := events.Append(ctx, ev); err != nil {
		return nil, fmt.Errorf("append tracking event: %w", err)
	}
	return ev, nil
}

// History devuelve las entradas del envío: más reciente primero para mostrar, más antigua primero para auditoría.
func (l *Ledger) History(ctx context.Context, events repository.TrackingEventRepository, tenantID, shipmentID string, newestFirst bool) ([]*entity.TrackingEvent, error) {
	return events.ListByShipment(ctx, tenantID, shipmentID, newestFirst)
}

// Invalidate descarta la consulta pública cacheada del envío. previous son códigos que el envío
// dejó de usar (ej. un tracking_code reemplazado). Los errores solo se registran.
func (l *Ledger) Invalidate(ctx context.Context, shipment *entity.Shipment, previous ...string) {
	codes := []string{shipment.Numero}
	for _, c := range append([]string{shipment.TrackingCode}, previous...) {
		if c != "" && !slices.Contains(codes, c) {
			codes = append(codes, c)
		}
	}
	if err := l.cache.Invalidate(ctx, shipment.TenantID, codes...); err != nil {
		l.log.Warn().Err(err).Str("shipment_id", shipment.ID).Msg("invalidar caché de seguimiento")
	}
}

// Cached devuelve la consulta pública cacheada o nil.
func (l *Ledger) Cached(ctx context.Context, tenantID, code string) *dto.TrackingResponse {
	resp, err := l.cache.GetTracking(ctx, tenantID, code)
	if err != nil {
		l.log.Debug().Err(err).Str("code", code).Msg("caché de seguimiento no disponible")
		return nil
	}
	return resp
}

// Remember guarda la consulta pública en caché.
func (l *Ledger) Remember(ctx context.Context, tenantID, code string, resp *dto.TrackingResponse) {
	if err := l.cache.SetTracking(ctx, tenantID, code, resp); err != nil {
		l.log.Debug().Err(err).Str("code", code).Msg("guardar caché de seguimiento")
	}
}

// ToEventResponse convierte una entrada del libro a su DTO.
func ToEventResponse(e *entity.TrackingEvent) dto.TrackingEventResponse {
	return dto.TrackingEventResponse{
		ID:          e.ID,
		State:       string(e.State),
		Description: e.Description,
		Location:    e.Location,
		Lat:         e.Lat,
		Lng:         e.Lng,
		UserID:      e.UserID,
		CreatedAt:   e.CreatedAt,
	}
}

// ToEventResponses convierte una lista de entradas.
func ToEventResponses(events []*entity.TrackingEvent) []dto.TrackingEventResponse {
	out := make([]dto.TrackingEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, ToEventResponse(e))
	}
	return out
}
