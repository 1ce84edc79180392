package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/Envios-api/internal/domain/entity"
	"github.com/jhoicas/Envios-api/internal/domain/repository"
)

var _ repository.TrackingEventRepository = (*TrackingEventRepo)(nil)

// TrackingEventRepo libro de seguimiento sobre PostgreSQL (solo inserción).
type TrackingEventRepo struct {
	q Querier
}

// NewTrackingEventRepository construye el adaptador del libro de seguimiento.
func NewTrackingEventRepository(q Querier) *TrackingEventRepo {
	return &TrackingEventRepo{q: q}
}

// Append inserta el evento. Un ID repetido no hace nada.
func (r *TrackingEventRepo) Append(ctx context.Context, e *entity.TrackingEvent) error {
	query := `
		INSERT INTO tracking_events (id, tenant_id, shipment_id, state, description, location, lat, lng, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`
	_, err := r.q.Exec(ctx, query,
		e.ID, e.TenantID, e.ShipmentID, e.State, e.Description, e.Location, e.Lat, e.Lng,
		emptyToNil(e.UserID), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert tracking event: %w", err)
	}
	return nil
}

// ListByShipment devuelve los eventos del envío por fecha de creación.
func (r *TrackingEventRepo) ListByShipment(ctx context.Context, tenantID, shipmentID string, newestFirst bool) ([]*entity.TrackingEvent, error) {
	order := "ASC"
	if newestFirst {
		order = "DESC"
	}
	query := `
		SELECT id, tenant_id, shipment_id, state, description, location, lat, lng, user_id, created_at
		FROM tracking_events
		WHERE tenant_id = $1 AND shipment_id::text = $2
		ORDER BY created_at ` + order + `, id ` + order
	rows, err := r.q.Query(ctx, query, tenantID, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("list tracking events: %w", err)
	}
	defer rows.Close()
	var list []*entity.TrackingEvent
	for rows.Next() {
		var e entity.TrackingEvent
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ShipmentID, &e.State, &e.Description, &e.Location,
			&e.Lat, &e.Lng, &e.UserID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tracking event: %w", err)
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
