package dto

import "time"

// CreateDeliveryRequest registra un intento de entrega. State por defecto "delivered".
type CreateDeliveryRequest struct {
	ShipmentID    string     `json:"shipment_id" validate:"required"`
	State         string     `json:"state"`
	RouteStopID   *string    `json:"route_stop_id"`
	SignedBy      string     `json:"signed_by"`
	ProofURL      string     `json:"proof_url"`
	Location      string     `json:"location"`
	Lat           *float64   `json:"lat"`
	Lng           *float64   `json:"lng"`
	Notes         string     `json:"notes"`
	FailureReason string     `json:"failure_reason"`
	DeliveredAt   *time.Time `json:"delivered_at"`
}

// DeliveryResponse salida de un intento de entrega.
type DeliveryResponse struct {
	ID            string    `json:"id"`
	ShipmentID    string    `json:"shipment_id"`
	RouteStopID   *string   `json:"route_stop_id,omitempty"`
	State         string    `json:"state"`
	DeliveredAt   time.Time `json:"delivered_at"`
	SignedBy      string    `json:"signed_by,omitempty"`
	ProofURL      string    `json:"proof_url,omitempty"`
	Location      string    `json:"location,omitempty"`
	Lat           *float64  `json:"lat,omitempty"`
	Lng           *float64  `json:"lng,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	UserID        *string   `json:"user_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// SideEffectResponse resultado de un efecto secundario de la confirmación.
type SideEffectResponse struct {
	Step     string `json:"step"`
	Status   string `json:"status"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

// ConfirmDeliveryResponse entrega creada más el resultado de cada efecto secundario.
// Consistent es false si algún efecto no se pudo aplicar todavía.
type ConfirmDeliveryResponse struct {
	Delivery    DeliveryResponse     `json:"delivery"`
	SideEffects []SideEffectResponse `json:"side_effects"`
	Consistent  bool                 `json:"consistent"`
}

// DeliveryListResponse lista de intentos de entrega.
type DeliveryListResponse struct {
	Items []DeliveryResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}
