package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Envios-api/internal/domain/entity"
)

// DeliveryRepository define el puerto de persistencia para Delivery (solo inserción).
type DeliveryRepository interface {
	Create(ctx context.Context, delivery *entity.Delivery) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.Delivery, error)
	// List devuelve intentos del más reciente al más antiguo; shipmentID vacío = todos.
	List(ctx context.Context, tenantID, shipmentID string, limit, offset int) ([]*entity.Delivery, error)
}

// DeliveryTaskRepository outbox de efectos secundarios de una entrega.
type DeliveryTaskRepository interface {
	Create(ctx context.Context, task *entity.DeliveryTask) error
	ListByDelivery(ctx context.Context, tenantID, deliveryID string) ([]*entity.DeliveryTask, error)
	// SaveResult persiste Status, Attempts, LastError y UpdatedAt.
	SaveResult(ctx context.Context, task *entity.DeliveryTask) error
	// ListRetryable lista tareas pendientes o fallidas de cualquier tenant con menos de maxAttempts
	// intentos y sin actividad desde before.
	ListRetryable(ctx context.Context, maxAttempts int, before time.Time, limit int) ([]*entity.DeliveryTask, error)
}
