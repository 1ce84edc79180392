package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Envios-api/internal/domain"
	"github.com/jhoicas/Envios-api/internal/domain/entity"
	"github.com/jhoicas/Envios-api/internal/domain/repository"
)

var (
	_ repository.DeliveryRepository     = (*DeliveryRepo)(nil)
	_ repository.DeliveryTaskRepository = (*DeliveryTaskRepo)(nil)
)

const deliveryColumns = `id, tenant_id, shipment_id, route_stop_id, state, delivered_at, signed_by, proof_url,
	location, lat, lng, notes, failure_reason, user_id, created_at`

// DeliveryRepo intentos de entrega sobre PostgreSQL. Solo inserción.
type DeliveryRepo struct {
	q Querier
}

// NewDeliveryRepository construye el adaptador de persistencia para entregas.
func NewDeliveryRepository(q Querier) *DeliveryRepo {
	return &DeliveryRepo{q: q}
}

func scanDelivery(row pgx.Row) (*entity.Delivery, error) {
	var d entity.Delivery
	err := row.Scan(&d.ID, &d.TenantID, &d.ShipmentID, &d.RouteStopID, &d.State, &d.DeliveredAt, &d.SignedBy,
		&d.ProofURL, &d.Location, &d.Lat, &d.Lng, &d.Notes, &d.FailureReason, &d.UserID, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create persiste un intento de entrega.
func (r *DeliveryRepo) Create(ctx context.Context, d *entity.Delivery) error {
	query := `
		INSERT INTO deliveries (` + deliveryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		d.ID, d.TenantID, d.ShipmentID, emptyToNil(d.RouteStopID), d.State, d.DeliveredAt, d.SignedBy,
		d.ProofURL, d.Location, d.Lat, d.Lng, d.Notes, d.FailureReason, emptyToNil(d.UserID), d.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert delivery: %w", domain.ErrConflict)
		}
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// GetByID obtiene un intento de entrega del tenant.
func (r *DeliveryRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Delivery, error) {
	d, err := scanDelivery(r.q.QueryRow(ctx,
		`SELECT `+deliveryColumns+` FROM deliveries WHERE tenant_id = $1 AND id = $2`, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	return d, nil
}

// List devuelve intentos del más reciente al más antiguo. shipmentID vacío lista todo el tenant.
func (r *DeliveryRepo) List(ctx context.Context, tenantID, shipmentID string, limit, offset int) ([]*entity.Delivery, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + deliveryColumns + `
		FROM deliveries
		WHERE tenant_id = $1 AND ($2 = '' OR shipment_id::text = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(ctx, query, tenantID, shipmentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()
	var list []*entity.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

const taskColumns = `id, tenant_id, delivery_id, step, status, attempts, last_error, created_at, updated_at`

// DeliveryTaskRepo outbox de efectos secundarios sobre PostgreSQL.
type DeliveryTaskRepo struct {
	q Querier
}

// NewDeliveryTaskRepository construye el adaptador del outbox de entregas.
func NewDeliveryTaskRepository(q Querier) *DeliveryTaskRepo {
	return &DeliveryTaskRepo{q: q}
}

// Create persiste una tarea del outbox.
func (r *DeliveryTaskRepo) Create(ctx context.Context, t *entity.DeliveryTask) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO delivery_tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.TenantID, t.DeliveryID, t.Step, t.Status, t.Attempts, t.LastError, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert delivery task: %w", err)
	}
	return nil
}

func (r *DeliveryTaskRepo) list(ctx context.Context, query string, args ...any) ([]*entity.DeliveryTask, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list delivery tasks: %w", err)
	}
	defer rows.Close()
	var list []*entity.DeliveryTask
	for rows.Next() {
		var t entity.DeliveryTask
		if err := rows.Scan(&t.ID, &t.TenantID, &t.DeliveryID, &t.Step, &t.Status, &t.Attempts,
			&t.LastError, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery task: %w", err)
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

// ListByDelivery devuelve las tareas de una entrega en orden de creación.
func (r *DeliveryTaskRepo) ListByDelivery(ctx context.Context, tenantID, deliveryID string) ([]*entity.DeliveryTask, error) {
	return r.list(ctx, `SELECT `+taskColumns+`
		FROM delivery_tasks WHERE tenant_id = $1 AND delivery_id::text = $2
		ORDER BY created_at, step`, tenantID, deliveryID)
}

// SaveResult persiste el resultado de la última ejecución.
func (r *DeliveryTaskRepo) SaveResult(ctx context.Context, t *entity.DeliveryTask) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE delivery_tasks SET status = $3, attempts = $4, last_error = $5, updated_at = $6
		WHERE tenant_id = $1 AND id = $2`,
		t.TenantID, t.ID, t.Status, t.Attempts, t.LastError, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save delivery task: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListRetryable lista tareas no terminadas de todos los tenants para el reconciliador.
func (r *DeliveryTaskRepo) ListRetryable(ctx context.Context, maxAttempts int, before time.Time, limit int) ([]*entity.DeliveryTask, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.list(ctx, `SELECT `+taskColumns+`
		FROM delivery_tasks
		WHERE status <> $1 AND attempts < $2 AND updated_at <= $3
		ORDER BY updated_at
		LIMIT $4`,
		entity.TaskDone, maxAttempts, before, limit)
}
