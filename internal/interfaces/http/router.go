package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Envios-api/internal/application/delivery"
	"github.com/jhoicas/Envios-api/internal/application/routes"
	"github.com/jhoicas/Envios-api/internal/application/shipping"
	"github.com/jhoicas/Envios-api/pkg/logger"
)

// Roles con permiso de administración de rutas y carga masiva.
var managerRoles = []string{"admin", "operador"}

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ShipmentUC *shipping.ShipmentUseCase
	BulkIntake *shipping.BulkIntake
	FileParser FileParser
	RouteUC    *routes.RouteUseCase
	DeliveryUC *delivery.DeliveryUseCase
	JWTSecret  string
	Log        *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	api := app.Group("/api")

	// Seguimiento público: se registra antes del grupo protegido para no exigir token.
	trackingHandler := NewTrackingHandler(deps.ShipmentUC, log)
	api.Get("/shipments/tracking/:code", trackingHandler.Track)
	api.Get("/public/tracking/:code", trackingHandler.Track)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Shipments
	shipments := protected.Group("/shipments")
	shipmentHandler := NewShipmentHandler(deps.ShipmentUC, deps.BulkIntake, deps.FileParser, log)
	shipments.Post("/", shipmentHandler.Create)
	shipments.Get("/", shipmentHandler.List)
	shipments.Post("/bulk", RequireRole(managerRoles...), shipmentHandler.Bulk)
	shipments.Post("/bulk/upload", RequireRole(managerRoles...), shipmentHandler.Upload)
	shipments.Get("/:id", shipmentHandler.GetByID)
	shipments.Put("/:id", shipmentHandler.Update)
	shipments.Get("/:id/events", shipmentHandler.Events)
	shipments.Get("/:id/label", shipmentHandler.Label)

	// Routes
	routeGroup := protected.Group("/routes")
	routeHandler := NewRouteHandler(deps.RouteUC, log)
	routeGroup.Post("/", routeHandler.Create)
	routeGroup.Get("/", routeHandler.List)
	routeGroup.Get("/:id", routeHandler.GetByID)
	routeGroup.Put("/:id", routeHandler.Update)
	routeGroup.Delete("/:id", RequireRole(managerRoles...), routeHandler.Delete)
	routeGroup.Post("/:id/stops", routeHandler.AddStop)
	routeGroup.Put("/:id/stops/reorder", routeHandler.Reorder)
	routeGroup.Post("/:id/optimize", routeHandler.Optimize)
	routeGroup.Get("/:id/geojson", routeHandler.GeoJSON)

	// Deliveries
	deliveries := protected.Group("/deliveries")
	deliveryHandler := NewDeliveryHandler(deps.DeliveryUC, log)
	deliveries.Post("/", deliveryHandler.Confirm)
	deliveries.Get("/", deliveryHandler.List)
	deliveries.Get("/:id", deliveryHandler.GetByID)
}
