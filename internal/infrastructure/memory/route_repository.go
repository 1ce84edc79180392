package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/Envios-api/internal/domain"
	"github.com/jhoicas/Envios-api/internal/domain/entity"
	"github.com/jhoicas/Envios-api/internal/domain/repository"
)

type routeRepo struct{ *db }

func (r *routeRepo) Create(ctx context.Context, route *entity.Route) error {
	return r.with(ctx, "routes.Create", func(st *state) error {
		st.routes[route.ID] = *route
		return nil
	})
}

func (r *routeRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Route, error) {
	var out *entity.Route
	err := r.with(ctx, "routes.GetByID", func(st *state) error {
		if route, ok := st.routes[id]; ok && route.TenantID == tenantID {
			out = &route
		}
		return nil
	})
	return out, err
}

func (r *routeRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Route, error) {
	return r.GetByID(ctx, tenantID, id)
}

func (r *routeRepo) Update(ctx context.Context, route *entity.Route) error {
	return r.with(ctx, "routes.Update", func(st *state) error {
		cur, ok := st.routes[route.ID]
		if !ok || cur.TenantID != route.TenantID {
			return domain.ErrNotFound
		}
		next := *route
		next.CreatedAt = cur.CreatedAt
		st.routes[route.ID] = next
		return nil
	})
}

func (r *routeRepo) List(ctx context.Context, tenantID string, f repository.RouteFilter) ([]*entity.Route, int, error) {
	var out []*entity.Route
	var total int
	err := r.with(ctx, "routes.List", func(st *state) error {
		var matched []entity.Route
		for _, route := range st.routes {
			if route.TenantID != tenantID {
				continue
			}
			if f.Status != "" && route.Status != f.Status {
				continue
			}
			if f.From != nil && (route.ScheduledDate == nil || route.ScheduledDate.Before(*f.From)) {
				continue
			}
			if f.To != nil && (route.ScheduledDate == nil || route.ScheduledDate.After(*f.To)) {
				continue
			}
			matched = append(matched, route)
		}
		sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
		total = len(matched)
		for _, route := range paginate(matched, f.Limit, f.Offset) {
			rt := route
			out = append(out, &rt)
		}
		return nil
	})
	return out, total, err
}

func (r *routeRepo) Delete(ctx context.Context, tenantID, id string) error {
	return r.with(ctx, "routes.Delete", func(st *state) error {
		route, ok := st.routes[id]
		if !ok || route.TenantID != tenantID {
			return domain.ErrNotFound
		}
		delete(st.routes, id)
		return nil
	})
}

type stopRepo struct{ *db }

func (r *stopRepo) Create(ctx context.Context, stop *entity.RouteStop) error {
	return r.with(ctx, "stops.Create", func(st *state) error {
		st.stops[stop.ID] = *stop
		return nil
	})
}

func (r *stopRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.RouteStop, error) {
	var out *entity.RouteStop
	err := r.with(ctx, "stops.GetByID", func(st *state) error {
		if stop, ok := st.stops[id]; ok && stop.TenantID == tenantID {
			out = &stop
		}
		return nil
	})
	return out, err
}

func (r *stopRepo) ListByRoute(ctx context.Context, tenantID, routeID string) ([]*entity.RouteStop, error) {
	var out []*entity.RouteStop
	err := r.with(ctx, "stops.ListByRoute", func(st *state) error {
		for _, stop := range st.stops {
			if stop.TenantID == tenantID && stop.RouteID == routeID {
				s := stop
				out = append(out, &s)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].OrderIndex != out[j].OrderIndex {
				return out[i].OrderIndex < out[j].OrderIndex
			}
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.Before(out[j].CreatedAt)
			}
			return out[i].ID < out[j].ID
		})
		return nil
	})
	return out, err
}

func (r *stopRepo) CountByRoute(ctx context.Context, tenantID, routeID string) (int, error) {
	var n int
	err := r.with(ctx, "stops.CountByRoute", func(st *state) error {
		for _, stop := range st.stops {
			if stop.TenantID == tenantID && stop.RouteID == routeID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *stopRepo) ShiftFrom(ctx context.Context, tenantID, routeID string, fromIndex int) error {
	return r.with(ctx, "stops.ShiftFrom", func(st *state) error {
		for id, stop := range st.stops {
			if stop.TenantID == tenantID && stop.RouteID == routeID && stop.OrderIndex >= fromIndex {
				stop.OrderIndex++
				st.stops[id] = stop
			}
		}
		return nil
	})
}

func (r *stopRepo) UpdateOrder(ctx context.Context, tenantID, id string, orderIndex int) error {
	return r.with(ctx, "stops.UpdateOrder", func(st *state) error {
		stop, ok := st.stops[id]
		if !ok || stop.TenantID != tenantID {
			return domain.ErrNotFound
		}
		stop.OrderIndex = orderIndex
		st.stops[id] = stop
		return nil
	})
}

func (r *stopRepo) Complete(ctx context.Context, tenantID, id string, completedAt time.Time, proofURL string) error {
	return r.with(ctx, "stops.Complete", func(st *state) error {
		stop, ok := st.stops[id]
		if !ok || stop.TenantID != tenantID {
			return domain.ErrNotFound
		}
		stop.Status = entity.StopCompleted
		stop.CompletedAt = &completedAt
		if proofURL != "" {
			stop.ProofURL = proofURL
		}
		stop.UpdatedAt = completedAt
		st.stops[id] = stop
		return nil
	})
}

func (r *stopRepo) DeleteByRoute(ctx context.Context, tenantID, routeID string) error {
	return r.with(ctx, "stops.DeleteByRoute", func(st *state) error {
		for id, stop := range st.stops {
			if stop.TenantID == tenantID && stop.RouteID == routeID {
				delete(st.stops, id)
			}
		}
		return nil
	})
}
