package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Envios-api/internal/domain/entity"
)

// ShipmentFilter filtros del listado de envíos. Los campos vacíos no filtran.
type ShipmentFilter struct {
	ID        string
	State     entity.ShipmentState
	CarrierID string
	RouteID   string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// ShipmentRepository define el puerto de persistencia para Shipment (DIP).
// Todas las lecturas filtran por tenantID; GetByID devuelve (nil, nil) si no existe en el tenant.
type ShipmentRepository interface {
	Create(ctx context.Context, shipment *entity.Shipment) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.Shipment, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE) dentro de una transacción.
	GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Shipment, error)
	// GetByCode busca por numero o por código de la transportadora.
	GetByCode(ctx context.Context, tenantID, code string) (*entity.Shipment, error)
	// Update persiste los campos editables; Numero nunca se modifica.
	Update(ctx context.Context, shipment *entity.Shipment) error
	UpdateState(ctx context.Context, tenantID, id string, state entity.ShipmentState, deliveredAt *time.Time, now time.Time) error
	SetRoute(ctx context.Context, tenantID, id string, routeID *string, now time.Time) error
	ClearRoute(ctx context.Context, tenantID, routeID string, now time.Time) error
	List(ctx context.Context, tenantID string, filter ShipmentFilter) ([]*entity.ShipmentSummary, int, error)
}

// SequenceRepository contador atómico de numeración por tenant y prefijo.
type SequenceRepository interface {
	// Reserve reserva n números consecutivos y devuelve el primero del bloque.
	Reserve(ctx context.Context, tenantID, prefix string, n int) (int64, error)
}
