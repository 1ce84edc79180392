package entity

import "time"

// DeliveryStep efecto secundario de una confirmación de entrega.
type DeliveryStep string

const (
	StepShipmentState DeliveryStep = "shipment_state"
	StepTrackingEvent DeliveryStep = "tracking_event"
	StepRouteStop     DeliveryStep = "route_stop"
)

// DeliveryTaskStatus estado de ejecución de un paso del outbox.
type DeliveryTaskStatus string

const (
	TaskPending DeliveryTaskStatus = "pending"
	TaskDone    DeliveryTaskStatus = "done"
	TaskFailed  DeliveryTaskStatus = "failed"
)

// DeliveryTask fila de outbox: un efecto secundario de una Delivery y su resultado.
type DeliveryTask struct {
	ID         string
	TenantID   string
	DeliveryID string
	Step       DeliveryStep
	Status     DeliveryTaskStatus
	Attempts   int
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
