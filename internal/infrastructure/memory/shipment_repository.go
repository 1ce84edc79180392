package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/Envios-api/internal/domain"
	"github.com/jhoicas/Envios-api/internal/domain/entity"
	"github.com/jhoicas/Envios-api/internal/domain/repository"
)

type shipmentRepo struct{ *db }

func (r *shipmentRepo) Create(ctx context.Context, s *entity.Shipment) error {
	return r.with(ctx, "shipments.Create", func(st *state) error {
		if _, ok := st.shipments[s.ID]; ok {
			return fmt.Errorf("insert shipment: %w", domain.ErrConflict)
		}
		for _, other := range st.shipments {
			if other.TenantID == s.TenantID && other.Numero == s.Numero {
				return fmt.Errorf("insert shipment: numero %s duplicado: %w", s.Numero, domain.ErrConflict)
			}
		}
		st.shipments[s.ID] = *s
		return nil
	})
}

func (r *shipmentRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Shipment, error) {
	var out *entity.Shipment
	err := r.with(ctx, "shipments.GetByID", func(st *state) error {
		if s, ok := st.shipments[id]; ok && s.TenantID == tenantID {
			out = &s
		}
		return nil
	})
	return out, err
}

func (r *shipmentRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Shipment, error) {
	return r.GetByID(ctx, tenantID, id)
}

func (r *shipmentRepo) GetByCode(ctx context.Context, tenantID, code string) (*entity.Shipment, error) {
	var out *entity.Shipment
	err := r.with(ctx, "shipments.GetByCode", func(st *state) error {
		for _, s := range st.shipments {
			if s.TenantID != tenantID {
				continue
			}
			if s.Numero == code || (s.TrackingCode != "" && s.TrackingCode == code) {
				found := s
				out = &found
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *shipmentRepo) Update(ctx context.Context, s *entity.Shipment) error {
	return r.with(ctx, "shipments.Update", func(st *state) error {
		cur, ok := st.shipments[s.ID]
		if !ok || cur.TenantID != s.TenantID {
			return domain.ErrNotFound
		}
		next := *s
		next.Numero = cur.Numero
		next.CreatedAt = cur.CreatedAt
		st.shipments[s.ID] = next
		return nil
	})
}

func (r *shipmentRepo) UpdateState(ctx context.Context, tenantID, id string, next entity.ShipmentState, deliveredAt *time.Time, now time.Time) error {
	return r.with(ctx, "shipments.UpdateState", func(st *state) error {
		s, ok := st.shipments[id]
		if !ok || s.TenantID != tenantID {
			return domain.ErrNotFound
		}
		s.State = next
		if deliveredAt != nil {
			s.DeliveredAt = deliveredAt
		}
		s.UpdatedAt = now
		st.shipments[id] = s
		return nil
	})
}

func (r *shipmentRepo) SetRoute(ctx context.Context, tenantID, id string, routeID *string, now time.Time) error {
	return r.with(ctx, "shipments.SetRoute", func(st *state) error {
		s, ok := st.shipments[id]
		if !ok || s.TenantID != tenantID {
			return domain.ErrNotFound
		}
		s.RouteID = routeID
		s.UpdatedAt = now
		st.shipments[id] = s
		return nil
	})
}

func (r *shipmentRepo) ClearRoute(ctx context.Context, tenantID, routeID string, now time.Time) error {
	return r.with(ctx, "shipments.ClearRoute", func(st *state) error {
		for id, s := range st.shipments {
			if s.TenantID == tenantID && s.RouteID != nil && *s.RouteID == routeID {
				s.RouteID = nil
				s.UpdatedAt = now
				st.shipments[id] = s
			}
		}
		return nil
	})
}

func (r *shipmentRepo) List(ctx context.Context, tenantID string, f repository.ShipmentFilter) ([]*entity.ShipmentSummary, int, error) {
	var out []*entity.ShipmentSummary
	var total int
	err := r.with(ctx, "shipments.List", func(st *state) error {
		var matched []entity.Shipment
		for _, s := range st.shipments {
			if s.TenantID != tenantID || !matchShipment(s, f) {
				continue
			}
			matched = append(matched, s)
		}
		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
				return matched[i].CreatedAt.After(matched[j].CreatedAt)
			}
			return matched[i].Numero > matched[j].Numero
		})
		total = len(matched)
		for _, s := range paginate(matched, f.Limit, f.Offset) {
			sum := &entity.ShipmentSummary{Shipment: s}
			if s.RouteID != nil {
				if route, ok := st.routes[*s.RouteID]; ok && route.TenantID == tenantID {
					sum.RouteName = route.Name
				}
			}
			if s.CarrierID != nil {
				sum.CarrierName = st.carriers[key(tenantID, *s.CarrierID)]
			}
			out = append(out, sum)
		}
		return nil
	})
	return out, total, err
}

func matchShipment(s entity.Shipment, f repository.ShipmentFilter) bool {
	switch {
	case f.ID != "" && s.ID != f.ID:
		return false
	case f.State != "" && s.State != f.State:
		return false
	case f.CarrierID != "" && (s.CarrierID == nil || *s.CarrierID != f.CarrierID):
		return false
	case f.RouteID != "" && (s.RouteID == nil || *s.RouteID != f.RouteID):
		return false
	case f.From != nil && s.CreatedAt.Before(*f.From):
		return false
	case f.To != nil && s.CreatedAt.After(*f.To):
		return false
	}
	return true
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

type sequenceRepo struct{ *db }

func (r *sequenceRepo) Reserve(ctx context.Context, tenantID, prefix string, n int) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("reserve sequence: n debe ser positivo")
	}
	var first int64
	err := r.with(ctx, "sequences.Reserve", func(st *state) error {
		k := key(tenantID, prefix)
		first = st.sequences[k] + 1
		st.sequences[k] += int64(n)
		return nil
	})
	return first, err
}

type eventRepo struct{ *db }

func (r *eventRepo) Append(ctx context.Context, e *entity.TrackingEvent) error {
	return r.with(ctx, "events.Append", func(st *state) error {
		if st.eventIDs[e.ID] {
			return nil
		}
		st.eventIDs[e.ID] = true
		st.events = append(st.events, *e)
		return nil
	})
}

func (r *eventRepo) ListByShipment(ctx context.Context, tenantID, shipmentID string, newestFirst bool) ([]*entity.TrackingEvent, error) {
	var out []*entity.TrackingEvent
	err := r.with(ctx, "events.ListByShipment", func(st *state) error {
		for _, e := range st.events {
			if e.TenantID == tenantID && e.ShipmentID == shipmentID {
				ev := e
				out = append(out, &ev)
			}
		}
		// orden de inserción como desempate para eventos con la misma marca de tiempo
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
		if newestFirst {
			for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
				out[i], out[j] = out[j], out[i]
			}
		}
		return nil
	})
	return out, err
}

type carrierRepo struct{ *db }

func (r *carrierRepo) Exists(ctx context.Context, tenantID, id string) (bool, error) {
	var ok bool
	err := r.with(ctx, "carriers.Exists", func(st *state) error {
		_, ok = st.carriers[key(tenantID, id)]
		return nil
	})
	return ok, err
}
