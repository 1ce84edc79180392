package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Envios-api/internal/application/dto"
	"github.com/jhoicas/Envios-api/internal/application/shipping"
	"github.com/jhoicas/Envios-api/pkg/logger"
)

// TrackingHandler consulta pública de seguimiento (sin token).
type TrackingHandler struct {
	uc  *shipping.ShipmentUseCase
	log *logger.Logger
}

// NewTrackingHandler construye el handler.
func NewTrackingHandler(uc *shipping.ShipmentUseCase, log *logger.Logger) *TrackingHandler {
	return &TrackingHandler{uc: uc, log: log}
}

// Track godoc
// @Summary      Seguimiento público de un envío
// @Description  Busca por numero o código de transportadora dentro del tenant indicado.
// @Tags         tracking
// @Produce      json
// @Param        code         path    string  true   "Numero o código de transportadora"
// @Param        X-Tenant-ID  header  string  false  "Tenant"
// @Param        tenant       query   string  false  "Tenant (alternativa al header)"
// @Success      200  {object}  dto.TrackingResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/shipments/tracking/{code} [get]
func (h *TrackingHandler) Track(c *fiber.Ctx) error {
	tenantID := publicTenant(c)
	if tenantID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "tenant requerido (header X-Tenant-ID o ?tenant=)"})
	}
	out, err := h.uc.Track(c.UserContext(), tenantID, c.Params("code"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}
