package dto

import "time"

// TrackingEventResponse entrada del libro de seguimiento.
type TrackingEventResponse struct {
	ID          string    `json:"id"`
	State       string    `json:"state"`
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
	Lat         *float64  `json:"lat,omitempty"`
	Lng         *float64  `json:"lng,omitempty"`
	UserID      *string   `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TrackingResponse consulta pública de seguimiento: resumen del envío y eventos (más reciente primero).
type TrackingResponse struct {
	Numero            string                  `json:"numero"`
	TrackingCode      string                  `json:"tracking_code,omitempty"`
	State             string                  `json:"state"`
	Origin            string                  `json:"origin"`
	Destination       string                  `json:"destination"`
	Recipient         string                  `json:"recipient"`
	EstimatedDelivery *time.Time              `json:"estimated_delivery,omitempty"`
	DeliveredAt       *time.Time              `json:"delivered_at,omitempty"`
	Events            []TrackingEventResponse `json:"events"`
}
