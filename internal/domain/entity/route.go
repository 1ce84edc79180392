package entity

import "time"

// RouteStatus estado administrativo de una ruta.
type RouteStatus string

const (
	RoutePending    RouteStatus = "pending"
	RouteInProgress RouteStatus = "in_progress"
	RouteCompleted  RouteStatus = "completed"
	RouteCancelled  RouteStatus = "cancelled"
)

// Valid indica si el estado de ruta es conocido.
func (s RouteStatus) Valid() bool {
	switch s {
	case RoutePending, RouteInProgress, RouteCompleted, RouteCancelled:
		return true
	}
	return false
}

// Route agrupación planificada de paradas asignada a una transportadora y vehículo.
type Route struct {
	ID            string
	TenantID      string
	Name          string
	ScheduledDate *time.Time
	Status        RouteStatus
	CarrierID     *string
	VehicleID     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
