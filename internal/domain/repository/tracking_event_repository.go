package repository

import (
	"context"

	"github.com/jhoicas/Envios-api/internal/domain/entity"
)

// TrackingEventRepository libro de seguimiento: solo inserción y lectura ordenada.
type TrackingEventRepository interface {
	// Append inserta el evento; un ID ya existente se ignora (reintentos idempotentes).
	Append(ctx context.Context, event *entity.TrackingEvent) error
	ListByShipment(ctx context.Context, tenantID, shipmentID string, newestFirst bool) ([]*entity.TrackingEvent, error)
}
