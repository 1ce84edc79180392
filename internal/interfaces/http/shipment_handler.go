package http

import (
	"errors"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Envios-api/internal/application/dto"
	"github.com/jhoicas/Envios-api/internal/application/shipping"
	"github.com/jhoicas/Envios-api/internal/domain"
	"github.com/jhoicas/Envios-api/pkg/logger"
)

// FileParser convierte un archivo de carga masiva (xlsx/csv) en filas.
type FileParser func(filename string, r io.Reader, charset string) ([]shipping.BulkRow, error)

// ShipmentHandler maneja las peticiones HTTP de envíos (protegido).
type ShipmentHandler struct {
	uc     *shipping.ShipmentUseCase
	bulk   *shipping.BulkIntake
	parser FileParser
	log    *logger.Logger
}

// NewShipmentHandler construye el handler. parser puede ser nil (sin carga por archivo).
func NewShipmentHandler(uc *shipping.ShipmentUseCase, bulk *shipping.BulkIntake, parser FileParser, log *logger.Logger) *ShipmentHandler {
	return &ShipmentHandler{uc: uc, bulk: bulk, parser: parser, log: log}
}

// Create godoc
// @Summary      Crear envío
// @Description  Asigna el numero del tenant y registra el evento inicial de seguimiento.
// @Tags         shipments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateShipmentRequest  true  "Datos del envío"
// @Success      201   {object}  dto.ShipmentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/shipments [post]
func (h *ShipmentHandler) Create(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in dto.CreateShipmentRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.Create(c.UserContext(), tenantID, GetUserID(c), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener envío
// @Tags         shipments
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del envío"
// @Success      200  {object}  dto.ShipmentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/shipments/{id} [get]
func (h *ShipmentHandler) GetByID(c *fiber.Ctx) error {
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

// List godoc
// @Summary      Listar envíos
// @Tags         shipments
// @Security     Bearer
// @Produce      json
// @Param        state       query  string  false  "Estado"
// @Param        carrier_id  query  string  false  "Transportadora"
// @Param        route_id    query  string  false  "Ruta"
// @Param        from        query  string  false  "Desde (YYYY-MM-DD)"
// @Param        to          query  string  false  "Hasta (YYYY-MM-DD)"
// @Param        page        query  int     false  "Página (1-based)"
// @Param        limit       query  int     false  "Límite"  default(20)
// @Success      200  {object}  dto.ShipmentListResponse
// @Router       /api/shipments [get]
func (h *ShipmentHandler) List(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in dto.ShipmentFilterRequest
	if err := c.QueryParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "parámetros de consulta inválidos"})
	}
	out, err := h.uc.List(c.UserContext(), tenantID, in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Actualizar envío
// @Description  Actualización parcial. Un cambio de estado agrega un evento al libro de seguimiento.
// @Tags         shipments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID del envío"
// @Param        body  body  dto.UpdateShipmentRequest  true  "Campos a modificar"
// @Success      200   {object}  dto.ShipmentResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/shipments/{id} [put]
func (h *ShipmentHandler) Update(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in dto.UpdateShipmentRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.Update(c.UserContext(), tenantID, GetUserID(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// Events historial del libro de seguimiento. ?order=desc devuelve el más reciente primero.
// GET /api/shipments/:id/events
func (h *ShipmentHandler) Events(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	out, err := h.uc.History(c.UserContext(), tenantID, c.Params("id"), c.Query("order") == "desc")
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// Label etiqueta PDF del envío.
// GET /api/shipments/:id/label
func (h *ShipmentHandler) Label(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	pdf, filename, err := h.uc.Label(c.UserContext(), tenantID, c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+filename+`.pdf"`)
	return c.Send(pdf)
}

// Bulk godoc
// @Summary      Carga masiva de envíos
// @Description  Cada fila se valida y crea por separado; los errores se reportan por fila (1-based).
// @Tags         shipments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BulkCreateShipmentsRequest  true  "Envíos"
// @Success      201   {object}  dto.BulkCreateShipmentsResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.BulkCreateShipmentsResponse
// @Router       /api/shipments/bulk [post]
func (h *ShipmentHandler) Bulk(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	var in dto.BulkCreateShipmentsRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.bulk.Create(c.UserContext(), tenantID, GetUserID(c), in.Items)
	return h.bulkResult(c, out, err)
}

// Upload carga masiva desde un archivo multipart "file" (.xlsx o .csv).
// El campo opcional "charset=latin1" decodifica CSV en ISO-8859-1.
// POST /api/shipments/bulk/upload
func (h *ShipmentHandler) Upload(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	if h.parser == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{Code: "NOT_IMPLEMENTED", Message: "carga por archivo no habilitada"})
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "archivo requerido en el campo file"})
	}
	rows, err := h.parseUpload(fh, c.FormValue("charset"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	out, err := h.bulk.CreateRows(c.UserContext(), tenantID, GetUserID(c), rows)
	return h.bulkResult(c, out, err)
}

func (h *ShipmentHandler) parseUpload(fh *multipart.FileHeader, charset string) ([]shipping.BulkRow, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return h.parser(fh.Filename, f, charset)
}

func (h *ShipmentHandler) bulkResult(c *fiber.Ctx, out *dto.BulkCreateShipmentsResponse, err error) error {
	if errors.Is(err, domain.ErrBatchFailed) && out != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(out)
	}
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}
