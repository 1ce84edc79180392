package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Envios-api/internal/domain/entity"
)

// RouteFilter filtros del listado de rutas.
type RouteFilter struct {
	Status entity.RouteStatus
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// RouteRepository define el puerto de persistencia para Route.
type RouteRepository interface {
	Create(ctx context.Context, route *entity.Route) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.Route, error)
	// GetForUpdate bloquea la ruta para serializar reordenamientos concurrentes.
	GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Route, error)
	Update(ctx context.Context, route *entity.Route) error
	List(ctx context.Context, tenantID string, filter RouteFilter) ([]*entity.Route, int, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// RouteStopRepository define el puerto de persistencia para RouteStop.
type RouteStopRepository interface {
	Create(ctx context.Context, stop *entity.RouteStop) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.RouteStop, error)
	// ListByRoute devuelve las paradas ordenadas por order_index.
	ListByRoute(ctx context.Context, tenantID, routeID string) ([]*entity.RouteStop, error)
	CountByRoute(ctx context.Context, tenantID, routeID string) (int, error)
	// ShiftFrom desplaza +1 las paradas con order_index >= fromIndex.
	ShiftFrom(ctx context.Context, tenantID, routeID string, fromIndex int) error
	UpdateOrder(ctx context.Context, tenantID, id string, orderIndex int) error
	Complete(ctx context.Context, tenantID, id string, completedAt time.Time, proofURL string) error
	DeleteByRoute(ctx context.Context, tenantID, routeID string) error
}
