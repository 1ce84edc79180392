package routes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Envios-api/internal/application/dto"
	"github.com/jhoicas/Envios-api/internal/domain"
	"github.com/jhoicas/Envios-api/internal/domain/entity"
	"github.com/jhoicas/Envios-api/internal/domain/repository"
	"github.com/jhoicas/Envios-api/pkg/logger"
)

const dateLayout = "2006-01-02"

// RouteUseCase secuenciador de rutas: CRUD de rutas, paradas, reordenamiento y optimización.
type RouteUseCase struct {
	txRunner TxRunner
	repos    repository.Repos
	log      *logger.Logger
	now      func() time.Time
}

// NewRouteUseCase construye el caso de uso.
func NewRouteUseCase(txRunner TxRunner, repos repository.Repos, log *logger.Logger) *RouteUseCase {
	return &RouteUseCase{txRunner: txRunner, repos: repos, log: log, now: time.Now}
}

// Create crea una ruta. Sin estado explícito queda en pending.
func (uc *RouteUseCase) Create(ctx context.Context, tenantID string, in dto.CreateRouteRequest) (*dto.RouteResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Invalid("name es obligatorio")
	}
	status := entity.RoutePending
	if in.Status != "" {
		status = entity.RouteStatus(in.Status)
		if !status.Valid() {
			return nil, domain.Invalid("status desconocido: %q", in.Status)
		}
	}
	scheduled, err := parseScheduledDate(in.ScheduledDate)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	route := &entity.Route{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		Name:          name,
		ScheduledDate: scheduled,
		Status:        status,
		CarrierID:     in.CarrierID,
		VehicleID:     in.VehicleID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.repos.Routes.Create(ctx, route); err != nil {
		return nil, err
	}
	return toRouteResponse(route, nil), nil
}

// Get devuelve la ruta con sus paradas ordenadas.
func (uc *RouteUseCase) Get(ctx context.Context, tenantID, id string) (*dto.RouteResponse, error) {
	route, err := uc.repos.Routes.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if route == nil {
		return nil, domain.ErrNotFound
	}
	stops, err := uc.repos.Stops.ListByRoute(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return toRouteResponse(route, stops), nil
}

// List lista rutas por estado y rango de fecha programada.
func (uc *RouteUseCase) List(ctx context.Context, tenantID string, in dto.RouteFilterRequest) (*dto.RouteListResponse, error) {
	in.PageRequest.Normalize()
	filter := repository.RouteFilter{Limit: in.Limit, Offset: in.Offset}
	if in.Status != "" {
		filter.Status = entity.RouteStatus(in.Status)
		if !filter.Status.Valid() {
			return nil, domain.Invalid("status desconocido: %q", in.Status)
		}
	}
	var err error
	if filter.From, err = parseScheduledDate(in.From); err != nil {
		return nil, err
	}
	if filter.To, err = parseScheduledDate(in.To); err != nil {
		return nil, err
	}
	list, total, err := uc.repos.Routes.List(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.RouteResponse, 0, len(list))
	for _, r := range list {
		items = append(items, *toRouteResponse(r, nil))
	}
	return &dto.RouteListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset, Total: total},
	}, nil
}

// Update actualización parcial; el estado lo fija el administrador.
func (uc *RouteUseCase) Update(ctx context.Context, tenantID, id string, in dto.UpdateRouteRequest) (*dto.RouteResponse, error) {
	route, err := uc.repos.Routes.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if route == nil {
		return nil, domain.ErrNotFound
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.Invalid("name no puede quedar vacío")
		}
		route.Name = name
	}
	if in.Status != nil {
		status := entity.RouteStatus(*in.Status)
		if !status.Valid() {
			return nil, domain.Invalid("status desconocido: %q", *in.Status)
		}
		route.Status = status
	}
	if in.ScheduledDate != nil {
		if route.ScheduledDate, err = parseScheduledDate(*in.ScheduledDate); err != nil {
			return nil, err
		}
	}
	if in.CarrierID != nil {
		route.CarrierID = optional(*in.CarrierID)
	}
	if in.VehicleID != nil {
		route.VehicleID = optional(*in.VehicleID)
	}
	route.UpdatedAt = uc.now()
	if err := uc.repos.Routes.Update(ctx, route); err != nil {
		return nil, err
	}
	return uc.Get(ctx, tenantID, id)
}

// Delete elimina la ruta y sus paradas y desasigna los envíos, en una transacción.
func (uc *RouteUseCase) Delete(ctx context.Context, tenantID, id string) error {
	now := uc.now()
	return uc.txRunner.Run(ctx, func(r repository.Repos) error {
		route, err := r.Routes.GetForUpdate(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if route == nil {
			return domain.ErrNotFound
		}
		if err := r.Shipments.ClearRoute(ctx, tenantID, id, now); err != nil {
			return err
		}
		if err := r.Stops.DeleteByRoute(ctx, tenantID, id); err != nil {
			return err
		}
		return r.Routes.Delete(ctx, tenantID, id)
	})
}

// AddStop agrega un envío a la ruta. Sin posición explícita va al final; con posición se inserta
// ahí (acotada a [0, cantidad]) y las paradas siguientes se desplazan una posición.
func (uc *RouteUseCase) AddStop(ctx context.Context, tenantID, routeID string, in dto.AddStopRequest) (*dto.RouteStopResponse, error) {
	if strings.TrimSpace(in.ShipmentID) == "" {
		return nil, domain.Invalid("shipment_id es obligatorio")
	}
	if err := validateCoords(in.Lat, in.Lng); err != nil {
		return nil, err
	}
	now := uc.now()
	var stop *entity.RouteStop
	err := uc.txRunner.Run(ctx, func(r repository.Repos) error {
		route, err := r.Routes.GetForUpdate(ctx, tenantID, routeID)
		if err != nil {
			return err
		}
		if route == nil {
			return domain.ErrNotFound
		}
		shipment, err := r.Shipments.GetByID(ctx, tenantID, in.ShipmentID)
		if err != nil {
			return err
		}
		if shipment == nil {
			return fmt.Errorf("envío %s: %w", in.ShipmentID, domain.ErrNotFound)
		}
		count, err := r.Stops.CountByRoute(ctx, tenantID, routeID)
		if err != nil {
			return err
		}
		index := count
		if in.OrderIndex != nil {
			index = min(max(*in.OrderIndex, 0), count)
			if index < count {
				if err := r.Stops.ShiftFrom(ctx, tenantID, routeID, index); err != nil {
					return err
				}
			}
		}
		stop = &entity.RouteStop{
			ID:         uuid.New().String(),
			TenantID:   tenantID,
			RouteID:    routeID,
			ShipmentID: shipment.ID,
			Address:    shipment.Destination,
			Recipient:  shipment.Recipient,
			Lat:        in.Lat,
			Lng:        in.Lng,
			OrderIndex: index,
			Status:     entity.StopPending,
			Notes:      in.Notes,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if in.Address != nil && strings.TrimSpace(*in.Address) != "" {
			stop.Address = strings.TrimSpace(*in.Address)
		}
		if in.Recipient != nil && strings.TrimSpace(*in.Recipient) != "" {
			stop.Recipient = strings.TrimSpace(*in.Recipient)
		}
		if err := r.Stops.Create(ctx, stop); err != nil {
			return err
		}
		return r.Shipments.SetRoute(ctx, tenantID, shipment.ID, &routeID, now)
	})
	if err != nil {
		return nil, err
	}
	resp := toStopResponse(stop)
	return &resp, nil
}

// Reorder aplica el orden enviado por el cliente tal cual. Cada parada debe pertenecer a la ruta.
func (uc *RouteUseCase) Reorder(ctx context.Context, tenantID, routeID string, in dto.ReorderStopsRequest) ([]dto.RouteStopResponse, error) {
	if len(in.Order) == 0 {
		return nil, domain.Invalid("order no puede estar vacío")
	}
	var stops []*entity.RouteStop
	err := uc.txRunner.Run(ctx, func(r repository.Repos) error {
		route, err := r.Routes.GetForUpdate(ctx, tenantID, routeID)
		if err != nil {
			return err
		}
		if route == nil {
			return domain.ErrNotFound
		}
		current, err := r.Stops.ListByRoute(ctx, tenantID, routeID)
		if err != nil {
			return err
		}
		owned := make(map[string]bool, len(current))
		for _, s := range current {
			owned[s.ID] = true
		}
		for _, o := range in.Order {
			if !owned[o.ID] {
				return domain.Invalid("la parada %s no pertenece a la ruta", o.ID)
			}
			if o.OrderIndex < 0 {
				return domain.Invalid("order_index no puede ser negativo")
			}
		}
		for _, o := range in.Order {
			if err := r.Stops.UpdateOrder(ctx, tenantID, o.ID, o.OrderIndex); err != nil {
				return err
			}
		}
		stops, err = r.Stops.ListByRoute(ctx, tenantID, routeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toStopResponses(stops), nil
}

func toRouteResponse(r *entity.Route, stops []*entity.RouteStop) *dto.RouteResponse {
	resp := &dto.RouteResponse{
		ID:        r.ID,
		Name:      r.Name,
		Status:    string(r.Status),
		CarrierID: r.CarrierID,
		VehicleID: r.VehicleID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.ScheduledDate != nil {
		resp.ScheduledDate = r.ScheduledDate.Format(dateLayout)
	}
	if stops != nil {
		resp.Stops = toStopResponses(stops)
	}
	return resp
}

func toStopResponse(s *entity.RouteStop) dto.RouteStopResponse {
	return dto.RouteStopResponse{
		ID:          s.ID,
		RouteID:     s.RouteID,
		ShipmentID:  s.ShipmentID,
		Address:     s.Address,
		Recipient:   s.Recipient,
		Lat:         s.Lat,
		Lng:         s.Lng,
		OrderIndex:  s.OrderIndex,
		Status:      string(s.Status),
		Notes:       s.Notes,
		CompletedAt: s.CompletedAt,
		ProofURL:    s.ProofURL,
	}
}

func toStopResponses(stops []*entity.RouteStop) []dto.RouteStopResponse {
	out := make([]dto.RouteStopResponse, 0, len(stops))
	for _, s := range stops {
		out = append(out, toStopResponse(s))
	}
	return out
}

func parseScheduledDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, domain.Invalid("fecha %q debe tener formato YYYY-MM-DD", s)
	}
	return &t, nil
}

// validateCoords exige latitud y longitud juntas y dentro de rango.
func validateCoords(lat, lng *float64) error {
	if (lat == nil) != (lng == nil) {
		return domain.Invalid("lat y lng deben enviarse juntas")
	}
	if lat == nil {
		return nil
	}
	if *lat < -90 || *lat > 90 {
		return domain.Invalid("lat fuera de rango")
	}
	if *lng < -180 || *lng > 180 {
		return domain.Invalid("lng fuera de rango")
	}
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
