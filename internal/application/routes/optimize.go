package routes

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/jhoicas/Envios-api/internal/application/dto"
	"github.com/jhoicas/Envios-api/internal/domain"
	"github.com/jhoicas/Envios-api/internal/domain/entity"
	"github.com/jhoicas/Envios-api/internal/domain/repository"
	"github.com/jhoicas/Envios-api/internal/domain/routing"
	"github.com/jhoicas/Envios-api/internal/infrastructure/metrics"
)

// Optimize ordena las paradas geolocalizadas con el vecino más cercano partiendo de la primera en el
// orden actual. Las paradas sin coordenadas conservan su orden relativo y quedan al final.
// Todo se escribe en una transacción con la ruta bloqueada.
func (uc *RouteUseCase) Optimize(ctx context.Context, tenantID, routeID string) (*dto.OptimizeRouteResponse, error) {
	var (
		ordered  []*entity.RouteStop
		distance float64
		geoCount int
	)
	err := uc.txRunner.Run(ctx, func(r repository.Repos) error {
		route, err := r.Routes.GetForUpdate(ctx, tenantID, routeID)
		if err != nil {
			return err
		}
		if route == nil {
			return domain.ErrNotFound
		}
		stops, err := r.Stops.ListByRoute(ctx, tenantID, routeID)
		if err != nil {
			return err
		}
		var geo, unlocated []*entity.RouteStop
		for _, s := range stops {
			if s.Geolocated() {
				geo = append(geo, s)
			} else {
				unlocated = append(unlocated, s)
			}
		}
		if len(geo) == 0 {
			return domain.ErrNoGeolocatedStops
		}

		points := make([]orb.Point, len(geo))
		for i, s := range geo {
			points[i] = s.Point()
		}
		visit := routing.NearestNeighbor(points)
		distance = routing.PathLength(points, visit)
		geoCount = len(geo)

		ordered = make([]*entity.RouteStop, 0, len(stops))
		for _, i := range visit {
			ordered = append(ordered, geo[i])
		}
		ordered = append(ordered, unlocated...)
		for idx, s := range ordered {
			if s.OrderIndex == idx {
				continue
			}
			if err := r.Stops.UpdateOrder(ctx, tenantID, s.ID, idx); err != nil {
				return err
			}
			s.OrderIndex = idx
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RouteOptimizationStops.Observe(float64(geoCount))
	uc.log.Tenant(tenantID).Info().Str("route_id", routeID).Int("stops", geoCount).Float64("distance", distance).Msg("ruta optimizada")
	return &dto.OptimizeRouteResponse{
		RouteID:   routeID,
		Stops:     toStopResponses(ordered),
		Distance:  distance,
		Unlocated: len(ordered) - geoCount,
	}, nil
}

// GeoJSON devuelve la ruta como FeatureCollection: un Point por parada geolocalizada y la
// LineString del recorrido en el orden actual.
func (uc *RouteUseCase) GeoJSON(ctx context.Context, tenantID, routeID string) ([]byte, error) {
	route, err := uc.repos.Routes.GetByID(ctx, tenantID, routeID)
	if err != nil {
		return nil, err
	}
	if route == nil {
		return nil, domain.ErrNotFound
	}
	stops, err := uc.repos.Stops.ListByRoute(ctx, tenantID, routeID)
	if err != nil {
		return nil, err
	}

	fc := geojson.NewFeatureCollection()
	line := orb.LineString{}
	for _, s := range stops {
		if !s.Geolocated() {
			continue
		}
		feature := geojson.NewFeature(s.Point())
		feature.Properties["id"] = s.ID
		feature.Properties["shipment_id"] = s.ShipmentID
		feature.Properties["order_index"] = s.OrderIndex
		feature.Properties["status"] = string(s.Status)
		feature.Properties["address"] = s.Address
		feature.Properties["recipient"] = s.Recipient
		fc.Append(feature)
		line = append(line, s.Point())
	}
	if len(line) >= 2 {
		path := geojson.NewFeature(line)
		path.Properties["route_id"] = route.ID
		path.Properties["name"] = route.Name
		fc.Append(path)
	}
	return fc.MarshalJSON()
}
