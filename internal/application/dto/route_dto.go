package dto

import "time"

// CreateRouteRequest entrada para crear una ruta. ScheduledDate en formato YYYY-MM-DD.
type CreateRouteRequest struct {
	Name          string  `json:"name" validate:"required"`
	ScheduledDate string  `json:"scheduled_date"`
	Status        string  `json:"status"`
	CarrierID     *string `json:"carrier_id"`
	VehicleID     *string `json:"vehicle_id"`
}

// UpdateRouteRequest actualización parcial de una ruta.
type UpdateRouteRequest struct {
	Name          *string `json:"name"`
	ScheduledDate *string `json:"scheduled_date"`
	Status        *string `json:"status"`
	CarrierID     *string `json:"carrier_id"`
	VehicleID     *string `json:"vehicle_id"`
}

// RouteFilterRequest filtros de GET /routes.
type RouteFilterRequest struct {
	Status string `query:"status"`
	From   string `query:"from"`
	To     string `query:"to"`
	PageRequest
}

// RouteResponse salida de una ruta; Stops solo en el detalle.
type RouteResponse struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	ScheduledDate string              `json:"scheduled_date,omitempty"`
	Status        string              `json:"status"`
	CarrierID     *string             `json:"carrier_id,omitempty"`
	VehicleID     *string             `json:"vehicle_id,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Stops         []RouteStopResponse `json:"stops,omitempty"`
}

// RouteListResponse lista paginada de rutas.
type RouteListResponse struct {
	Items []RouteResponse `json:"items"`
	Page  PageResponse    `json:"page"`
}

// AddStopRequest agrega un envío a la ruta. Sin OrderIndex la parada va al final.
type AddStopRequest struct {
	ShipmentID string   `json:"shipment_id" validate:"required"`
	Address    *string  `json:"address"`
	Recipient  *string  `json:"recipient"`
	Lat        *float64 `json:"lat"`
	Lng        *float64 `json:"lng"`
	Notes      string   `json:"notes"`
	OrderIndex *int     `json:"order_index"`
}

// StopOrder par (parada, posición) del reordenamiento manual.
type StopOrder struct {
	ID         string `json:"id"`
	OrderIndex int    `json:"order_index"`
}

// ReorderStopsRequest reordenamiento manual; se aplica tal cual lo envía el cliente.
type ReorderStopsRequest struct {
	Order []StopOrder `json:"order"`
}

// RouteStopResponse salida de una parada.
type RouteStopResponse struct {
	ID          string     `json:"id"`
	RouteID     string     `json:"route_id"`
	ShipmentID  string     `json:"shipment_id"`
	Address     string     `json:"address"`
	Recipient   string     `json:"recipient"`
	Lat         *float64   `json:"lat,omitempty"`
	Lng         *float64   `json:"lng,omitempty"`
	OrderIndex  int        `json:"order_index"`
	Status      string     `json:"status"`
	Notes       string     `json:"notes,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ProofURL    string     `json:"proof_url,omitempty"`
}

// OptimizeRouteResponse orden calculado por la heurística del vecino más cercano.
// Distance es la longitud plana del recorrido en unidades de lat/lng.
type OptimizeRouteResponse struct {
	RouteID   string              `json:"route_id"`
	Stops     []RouteStopResponse `json:"stops"`
	Distance  float64             `json:"distance"`
	Unlocated int                 `json:"unlocated"`
}
