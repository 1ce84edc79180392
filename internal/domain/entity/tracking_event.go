package entity

import "time"

// TrackingEvent entrada del libro de seguimiento de un envío. Solo se inserta, nunca se modifica.
type TrackingEvent struct {
	ID          string
	TenantID    string
	ShipmentID  string
	State       ShipmentState
	Description string
	Location    string
	Lat         *float64
	Lng         *float64
	UserID      *string
	CreatedAt   time.Time
}
