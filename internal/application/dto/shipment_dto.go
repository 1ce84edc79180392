package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateShipmentRequest entrada para crear un envío. Origin, Destination y Recipient son obligatorios.
type CreateShipmentRequest struct {
	Origin            string           `json:"origin" validate:"required"`
	Destination       string           `json:"destination" validate:"required"`
	Recipient         string           `json:"recipient" validate:"required"`
	TrackingCode      string           `json:"tracking_code"`
	CarrierID         *string          `json:"carrier_id"`
	RouteID           *string          `json:"route_id"`
	Weight            *decimal.Decimal `json:"weight"`
	Pieces            *int             `json:"pieces"`
	EstimatedDelivery *time.Time       `json:"estimated_delivery"`
}

// UpdateShipmentRequest actualización parcial. Si State viene y es distinto del actual
// se registra un evento de seguimiento con Description/Location/Lat/Lng.
type UpdateShipmentRequest struct {
	Origin            *string          `json:"origin"`
	Destination       *string          `json:"destination"`
	Recipient         *string          `json:"recipient"`
	TrackingCode      *string          `json:"tracking_code"`
	CarrierID         *string          `json:"carrier_id"`
	Weight            *decimal.Decimal `json:"weight"`
	Pieces            *int             `json:"pieces"`
	EstimatedDelivery *time.Time       `json:"estimated_delivery"`
	State             *string          `json:"state"`
	Description       *string          `json:"description"`
	Location          *string          `json:"location"`
	Lat               *float64         `json:"lat"`
	Lng               *float64         `json:"lng"`
}

// ShipmentFilterRequest filtros de GET /shipments.
type ShipmentFilterRequest struct {
	State     string `query:"state"`
	CarrierID string `query:"carrier_id"`
	RouteID   string `query:"route_id"`
	From      string `query:"from"`
	To        string `query:"to"`
	PageRequest
}

// ShipmentResponse salida de un envío.
type ShipmentResponse struct {
	ID                string          `json:"id"`
	Numero            string          `json:"numero"`
	TrackingCode      string          `json:"tracking_code,omitempty"`
	State             string          `json:"state"`
	Origin            string          `json:"origin"`
	Destination       string          `json:"destination"`
	Recipient         string          `json:"recipient"`
	CarrierID         *string         `json:"carrier_id,omitempty"`
	CarrierName       string          `json:"carrier_name,omitempty"`
	RouteID           *string         `json:"route_id,omitempty"`
	RouteName         string          `json:"route_name,omitempty"`
	Weight            decimal.Decimal `json:"weight"`
	Pieces            int             `json:"pieces"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery,omitempty"`
	DeliveredAt       *time.Time      `json:"delivered_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ShipmentListResponse lista paginada de envíos.
type ShipmentListResponse struct {
	Items []ShipmentResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// BulkCreateShipmentsRequest carga masiva de envíos.
type BulkCreateShipmentsRequest struct {
	Items []CreateShipmentRequest `json:"items"`
}

// BulkRowError error de una fila de la carga masiva (Row es 1-based).
type BulkRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// BulkCreateShipmentsResponse resultado de la carga masiva.
type BulkCreateShipmentsResponse struct {
	CreatedCount int                `json:"created_count"`
	Errors       []BulkRowError     `json:"errors"`
	Created      []ShipmentResponse `json:"created"`
}
