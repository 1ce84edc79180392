package repository

// Repos agrupa los repositorios del núcleo de envíos atados a una misma transacción.
type Repos struct {
	Shipments  ShipmentRepository
	Sequences  SequenceRepository
	Events     TrackingEventRepository
	Routes     RouteRepository
	Stops      RouteStopRepository
	Deliveries DeliveryRepository
	Tasks      DeliveryTaskRepository
	Carriers   CarrierRepository
}
