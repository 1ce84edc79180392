package entity

import "time"

// Resultados posibles de un intento de entrega.
var deliveryOutcomes = map[ShipmentState]bool{
	ShipmentDelivered:    true,
	ShipmentNotDelivered: true,
	ShipmentPartial:      true,
	ShipmentReturned:     true,
}

// IsDeliveryOutcome indica si el estado puede ser resultado de un intento de entrega.
func IsDeliveryOutcome(s ShipmentState) bool {
	return deliveryOutcomes[s]
}

// Delivery registro de un intento físico de entrega. Se crea una vez por intento y no se actualiza.
// Un envío puede tener varios intentos; el más reciente es el que cuenta.
type Delivery struct {
	ID            string
	TenantID      string
	ShipmentID    string
	RouteStopID   *string
	State         ShipmentState
	DeliveredAt   time.Time
	SignedBy      string
	ProofURL      string
	Location      string
	Lat           *float64
	Lng           *float64
	Notes         string
	FailureReason string
	UserID        *string
	CreatedAt     time.Time
}
