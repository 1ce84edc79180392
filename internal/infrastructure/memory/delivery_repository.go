package memory

import (
	"context"
	"time"

	"github.com/jhoicas/Envios-api/internal/domain"
	"github.com/jhoicas/Envios-api/internal/domain/entity"
)

type deliveryRepo struct{ *db }

func (r *deliveryRepo) Create(ctx context.Context, d *entity.Delivery) error {
	return r.with(ctx, "deliveries.Create", func(st *state) error {
		st.deliveries = append(st.deliveries, *d)
		return nil
	})
}

func (r *deliveryRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Delivery, error) {
	var out *entity.Delivery
	err := r.with(ctx, "deliveries.GetByID", func(st *state) error {
		for _, d := range st.deliveries {
			if d.ID == id && d.TenantID == tenantID {
				found := d
				out = &found
				return nil
			}
		}
		return nil
	})
	return out, err
}

// List recorre en orden inverso de inserción (más reciente primero).
func (r *deliveryRepo) List(ctx context.Context, tenantID, shipmentID string, limit, offset int) ([]*entity.Delivery, error) {
	var out []*entity.Delivery
	err := r.with(ctx, "deliveries.List", func(st *state) error {
		var matched []entity.Delivery
		for i := len(st.deliveries) - 1; i >= 0; i-- {
			d := st.deliveries[i]
			if d.TenantID != tenantID || (shipmentID != "" && d.ShipmentID != shipmentID) {
				continue
			}
			matched = append(matched, d)
		}
		for _, d := range paginate(matched, limit, offset) {
			found := d
			out = append(out, &found)
		}
		return nil
	})
	return out, err
}

type taskRepo struct{ *db }

func (r *taskRepo) Create(ctx context.Context, t *entity.DeliveryTask) error {
	return r.with(ctx, "tasks.Create", func(st *state) error {
		st.tasks = append(st.tasks, *t)
		return nil
	})
}

func (r *taskRepo) ListByDelivery(ctx context.Context, tenantID, deliveryID string) ([]*entity.DeliveryTask, error) {
	var out []*entity.DeliveryTask
	err := r.with(ctx, "tasks.ListByDelivery", func(st *state) error {
		for _, t := range st.tasks {
			if t.TenantID == tenantID && t.DeliveryID == deliveryID {
				found := t
				out = append(out, &found)
			}
		}
		return nil
	})
	return out, err
}

func (r *taskRepo) SaveResult(ctx context.Context, t *entity.DeliveryTask) error {
	return r.with(ctx, "tasks.SaveResult", func(st *state) error {
		for i := range st.tasks {
			if st.tasks[i].ID == t.ID && st.tasks[i].TenantID == t.TenantID {
				st.tasks[i].Status = t.Status
				st.tasks[i].Attempts = t.Attempts
				st.tasks[i].LastError = t.LastError
				st.tasks[i].UpdatedAt = t.UpdatedAt
				return nil
			}
		}
		return domain.ErrNotFound
	})
}

func (r *taskRepo) ListRetryable(ctx context.Context, maxAttempts int, before time.Time, limit int) ([]*entity.DeliveryTask, error) {
	var out []*entity.DeliveryTask
	err := r.with(ctx, "tasks.ListRetryable", func(st *state) error {
		for _, t := range st.tasks {
			if t.Status == entity.TaskDone || t.Attempts >= maxAttempts || t.UpdatedAt.After(before) {
				continue
			}
			found := t
			out = append(out, &found)
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}
