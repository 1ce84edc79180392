package entity

import (
	"time"

	"github.com/paulmach/orb"
)

// RouteStopStatus estado de una parada dentro de la ruta.
type RouteStopStatus string

const (
	StopPending   RouteStopStatus = "pending"
	StopCompleted RouteStopStatus = "completed"
	StopFailed    RouteStopStatus = "failed"
)

// RouteStop posición de un envío dentro de una ruta. OrderIndex es 0-based y contiguo por ruta.
type RouteStop struct {
	ID          string
	TenantID    string
	RouteID     string
	ShipmentID  string
	Address     string
	Recipient   string
	Lat         *float64
	Lng         *float64
	OrderIndex  int
	Status      RouteStopStatus
	Notes       string
	CompletedAt *time.Time
	ProofURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Geolocated indica si la parada tiene latitud y longitud.
func (s *RouteStop) Geolocated() bool {
	return s.Lat != nil && s.Lng != nil
}

// Point devuelve la parada como punto planar (X = lng, Y = lat).
func (s *RouteStop) Point() orb.Point {
	if !s.Geolocated() {
		return orb.Point{}
	}
	return orb.Point{*s.Lng, *s.Lat}
}

// Closed indica si la parada ya fue atendida (completada o fallida).
func (s *RouteStop) Closed() bool {
	return s.Status == StopCompleted || s.Status == StopFailed
}
