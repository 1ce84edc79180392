package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Envios-api/internal/application/delivery"
	"github.com/jhoicas/Envios-api/internal/application/dto"
	"github.com/jhoicas/Envios-api/pkg/logger"
)

// DeliveryHandler confirmación y consulta de intentos de entrega (protegido).
type DeliveryHandler struct {
	uc  *delivery.DeliveryUseCase
	log *logger.Logger
}

// NewDeliveryHandler construye el handler.
func NewDeliveryHandler(uc *delivery.DeliveryUseCase, log *logger.Logger) *DeliveryHandler {
	return &DeliveryHandler{uc: uc, log: log}
}

// Confirm godoc
// @Summary      Confirmar entrega
// @Description  Registra el intento y aplica estado del envío, evento de seguimiento y parada.
// @Description  Si algún efecto falla la respuesta es 201 con consistent=false y el reconciliador lo reintenta.
// @Tags         deliveries
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateDeliveryRequest  true  "Intento de entrega"
// @Success      201   {object}  dto.ConfirmDeliveryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/deliveries [post]
func (h *DeliveryHandler) Confirm(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in dto.CreateDeliveryRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.Confirm(c.UserContext(), tenantID, GetUserID(c), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID GET /api/deliveries/:id
func (h *DeliveryHandler) GetByID(c *fiber.Ctx) error {
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

// List GET /api/deliveries?shipment_id=
func (h *DeliveryHandler) List(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	page := dto.PageRequest{
		Page:   c.QueryInt("page", 0),
		Limit:  c.QueryInt("limit", 20),
		Offset: c.QueryInt("offset", 0),
	}
	out, err := h.uc.List(c.UserContext(), tenantID, c.Query("shipment_id"), page)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}
