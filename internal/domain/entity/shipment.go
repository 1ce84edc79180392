package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShipmentState estado del ciclo de vida de un envío.
type ShipmentState string

// Estados de envío observados en la operación.
const (
	ShipmentPending        ShipmentState = "pending"
	ShipmentInTransit      ShipmentState = "in_transit"
	ShipmentOutForDelivery ShipmentState = "out_for_delivery"
	ShipmentDelivered      ShipmentState = "delivered"
	ShipmentNotDelivered   ShipmentState = "not_delivered"
	ShipmentPartial        ShipmentState = "partial"
	ShipmentReturned       ShipmentState = "returned"
)

// shipmentTransitions grafo de transiciones permitidas. Los estados sin entrada son terminales.
var shipmentTransitions = map[ShipmentState][]ShipmentState{
	ShipmentPending:        {ShipmentInTransit, ShipmentOutForDelivery, ShipmentReturned},
	ShipmentInTransit:      {ShipmentOutForDelivery, ShipmentDelivered, ShipmentNotDelivered, ShipmentPartial, ShipmentReturned},
	ShipmentOutForDelivery: {ShipmentDelivered, ShipmentNotDelivered, ShipmentPartial, ShipmentReturned, ShipmentInTransit},
	ShipmentNotDelivered:   {ShipmentOutForDelivery, ShipmentInTransit, ShipmentReturned},
	ShipmentPartial:        {ShipmentOutForDelivery, ShipmentDelivered, ShipmentReturned},
}

// ParseShipmentState valida un string y lo convierte en ShipmentState.
func ParseShipmentState(s string) (ShipmentState, bool) {
	st := ShipmentState(s)
	if st.Valid() {
		return st, true
	}
	return "", false
}

// Valid indica si el estado pertenece al conjunto cerrado de estados.
func (s ShipmentState) Valid() bool {
	switch s {
	case ShipmentPending, ShipmentInTransit, ShipmentOutForDelivery,
		ShipmentDelivered, ShipmentNotDelivered, ShipmentPartial, ShipmentReturned:
		return true
	}
	return false
}

// Terminal indica si el envío ya no admite más transiciones.
func (s ShipmentState) Terminal() bool {
	return s == ShipmentDelivered || s == ShipmentReturned
}

// CanTransitionTo indica si next es alcanzable desde s. El mismo estado siempre es válido (no-op).
func (s ShipmentState) CanTransitionTo(next ShipmentState) bool {
	if s == next {
		return true
	}
	for _, allowed := range shipmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Shipment representa el recorrido lógico de un paquete desde el origen hasta el destino.
// Numero se asigna una sola vez al crear y nunca cambia.
type Shipment struct {
	ID                string
	TenantID          string
	Numero            string
	TrackingCode      string // código externo de la transportadora (opcional)
	State             ShipmentState
	Origin            string
	Destination       string
	Recipient         string
	CarrierID         *string
	RouteID           *string
	Weight            decimal.Decimal
	Pieces            int
	EstimatedDelivery *time.Time
	DeliveredAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ShipmentSummary envío con los resúmenes de ruta y transportadora para listados.
type ShipmentSummary struct {
	Shipment
	RouteName   string
	CarrierName string
}
