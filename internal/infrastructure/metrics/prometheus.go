package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var HTTPRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "envios_http_requests_total",
		Help: "Total de peticiones HTTP recibidas",
	},
	[]string{"route", "method", "status"},
)

var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "envios_http_request_duration_seconds",
		Help:    "Duración de las peticiones HTTP en segundos",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"route", "method"},
)

var ShipmentsCreatedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "envios_shipments_created_total",
		Help: "Envíos creados",
	},
	[]string{"source"}, // single | bulk
)

var ShipmentTransitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "envios_shipment_transitions_total",
		Help: "Cambios de estado de envíos registrados en el libro de seguimiento",
	},
	[]string{"from", "to", "allowed"},
)

var DeliveriesConfirmedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "envios_deliveries_confirmed_total",
		Help: "Intentos de entrega registrados por resultado",
	},
	[]string{"state"},
)

var DeliverySideEffectsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "envios_delivery_side_effects_total",
		Help: "Ejecuciones de efectos secundarios de entrega por paso y resultado",
	},
	[]string{"step", "status"},
)

var RouteOptimizationStops = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "envios_route_optimization_stops",
		Help:    "Paradas geolocalizadas por optimización de ruta",
		Buckets: []float64{2, 5, 10, 20, 50, 100},
	},
)

var registerOnce sync.Once

// Register registra los colectores en el registro por defecto de Prometheus (idempotente).
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			ShipmentsCreatedTotal,
			ShipmentTransitionsTotal,
			DeliveriesConfirmedTotal,
			DeliverySideEffectsTotal,
			RouteOptimizationStops,
		)
	})
}
