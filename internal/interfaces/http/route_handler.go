package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Envios-api/internal/application/dto"
	"github.com/jhoicas/Envios-api/internal/application/routes"
	"github.com/jhoicas/Envios-api/pkg/logger"
)

// RouteHandler maneja rutas de reparto y sus paradas (protegido).
type RouteHandler struct {
	uc  *routes.RouteUseCase
	log *logger.Logger
}

// NewRouteHandler construye el handler.
func NewRouteHandler(uc *routes.RouteUseCase, log *logger.Logger) *RouteHandler {
	return &RouteHandler{uc: uc, log: log}
}

// Create godoc
// @Summary      Crear ruta
// @Tags         routes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateRouteRequest  true  "Datos de la ruta"
// @Success      201   {object}  dto.RouteResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/routes [post]
func (h *RouteHandler) Create(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in dto.CreateRouteRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.Create(c.UserContext(), tenantID, in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID ruta con sus paradas ordenadas.
// GET /api/routes/:id
func (h *RouteHandler) GetByID(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.Get(c.UserContext(), tenantID, c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// List GET /api/routes
func (h *RouteHandler) List(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in dto.RouteFilterRequest
	if err := c.QueryParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "parámetros de consulta inválidos"})
	}
	out, err := h.uc.List(c.UserContext(), tenantID, in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// Update PUT /api/routes/:id
func (h *RouteHandler) Update(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in dto.UpdateRouteRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.Update(c.UserContext(), tenantID, c.Params("id"), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// Delete elimina la ruta y desasigna sus envíos.
// DELETE /api/routes/:id
func (h *RouteHandler) Delete(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	if err := h.uc.Delete(c.UserContext(), tenantID, c.Params("id")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddStop godoc
// @Summary      Agregar parada
// @Description  Sin order_index la parada va al final; con order_index desplaza las siguientes.
// @Tags         routes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "ID de la ruta"
// @Param        body  body  dto.AddStopRequest  true  "Parada"
// @Success      201   {object}  dto.RouteStopResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/routes/{id}/stops [post]
func (h *RouteHandler) AddStop(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in dto.AddStopRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.AddStop(c.UserContext(), tenantID, c.Params("id"), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Reorder PUT /api/routes/:id/stops/reorder
func (h *RouteHandler) Reorder(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in dto.ReorderStopsRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.Reorder(c.UserContext(), tenantID, c.Params("id"), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// Optimize godoc
// @Summary      Optimizar orden de paradas
// @Description  Vecino más cercano desde la primera parada geolocalizada. Las paradas sin coordenadas quedan al final.
// @Tags         routes
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la ruta"
// @Success      200  {object}  dto.OptimizeRouteResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/routes/{id}/optimize [post]
func (h *RouteHandler) Optimize(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.Optimize(c.UserContext(), tenantID, c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// GeoJSON paradas y recorrido como FeatureCollection.
// GET /api/routes/:id/geojson
func (h *RouteHandler) GeoJSON(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.GeoJSON(c.UserContext(), tenantID, c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/geo+json")
	return c.Send(out)
}
