package shipping

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Envios-api/internal/application/dto"
	"github.com/jhoicas/Envios-api/internal/application/tracking"
	"github.com/jhoicas/Envios-api/internal/domain"
	"github.com/jhoicas/Envios-api/internal/domain/entity"
	"github.com/jhoicas/Envios-api/internal/domain/repository"
	"github.com/jhoicas/Envios-api/internal/infrastructure/metrics"
	"github.com/jhoicas/Envios-api/pkg/logger"
	"github.com/shopspring/decimal"
)

// Descripción fija del evento con el que abre el libro de cada envío.
const createdDescription = "Envío creado"

// Config parámetros de numeración y de la máquina de estados.
type Config struct {
	Prefix            string // prefijo del numero, ej. "ENV"
	Padding           int    // dígitos del consecutivo
	StrictTransitions bool   // true rechaza transiciones fuera de la tabla
}

func (c Config) withDefaults() Config {
	if c.Prefix == "" {
		c.Prefix = "ENV"
	}
	if c.Padding <= 0 {
		c.Padding = 6
	}
	return c
}

// FormatNumero arma el código legible PREFIJO-000123.
func FormatNumero(prefix string, padding int, seq int64) string {
	return fmt.Sprintf("%s-%0*d", prefix, padding, seq)
}

// ShipmentUseCase registro de envíos: creación, cambios de estado y consultas.
type ShipmentUseCase struct {
	txRunner TxRunner
	repos    repository.Repos
	ledger   *tracking.Ledger
	labels   LabelGenerator
	cfg      Config
	log      *logger.Logger
	now      func() time.Time
}

// NewShipmentUseCase construye el caso de uso. repos son los repositorios fuera de transacción (lecturas).
func NewShipmentUseCase(txRunner TxRunner, repos repository.Repos, ledger *tracking.Ledger, labels LabelGenerator, cfg Config, log *logger.Logger) *ShipmentUseCase {
	return &ShipmentUseCase{
		txRunner: txRunner,
		repos:    repos,
		ledger:   ledger,
		labels:   labels,
		cfg:      cfg.withDefaults(),
		log:      log,
		now:      time.Now,
	}
}

// validateCreate revisa los campos obligatorios de un envío.
func validateCreate(in dto.CreateShipmentRequest) error {
	switch {
	case strings.TrimSpace(in.Origin) == "":
		return domain.Invalid("origin es obligatorio")
	case strings.TrimSpace(in.Destination) == "":
		return domain.Invalid("destination es obligatorio")
	case strings.TrimSpace(in.Recipient) == "":
		return domain.Invalid("recipient es obligatorio")
	}
	if in.Weight != nil && in.Weight.IsNegative() {
		return domain.Invalid("weight no puede ser negativo")
	}
	if in.Pieces != nil && *in.Pieces < 0 {
		return domain.Invalid("pieces no puede ser negativo")
	}
	return nil
}

// newShipment construye la entidad en estado pending a partir del request ya validado.
func (uc *ShipmentUseCase) newShipment(tenantID, numero string, in dto.CreateShipmentRequest, now time.Time) *entity.Shipment {
	s := &entity.Shipment{
		ID:                uuid.New().String(),
		TenantID:          tenantID,
		Numero:            numero,
		TrackingCode:      strings.TrimSpace(in.TrackingCode),
		State:             entity.ShipmentPending,
		Origin:            strings.TrimSpace(in.Origin),
		Destination:       strings.TrimSpace(in.Destination),
		Recipient:         strings.TrimSpace(in.Recipient),
		CarrierID:         optionalPtr(in.CarrierID),
		RouteID:           optionalPtr(in.RouteID),
		Weight:            decimal.Zero,
		Pieces:            1,
		EstimatedDelivery: in.EstimatedDelivery,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if in.Weight != nil {
		s.Weight = *in.Weight
	}
	if in.Pieces != nil {
		s.Pieces = *in.Pieces
	}
	return s
}

// checkCarrier exige que la transportadora sea del tenant.
func checkCarrier(ctx context.Context, r repository.Repos, tenantID string, carrierID *string) error {
	if carrierID == nil {
		return nil
	}
	ok, err := r.Carriers.Exists(ctx, tenantID, *carrierID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Invalid("carrier_id %s no existe", *carrierID)
	}
	return nil
}

// insertWithOpeningEvent persiste el envío y el evento pending inicial dentro de la tx recibida.
// Con route_id el envío entra a la ruta como última parada, igual que al asignarlo después.
func (uc *ShipmentUseCase) insertWithOpeningEvent(ctx context.Context, r repository.Repos, s *entity.Shipment, userID string) error {
	if err := checkCarrier(ctx, r, s.TenantID, s.CarrierID); err != nil {
		return err
	}
	var stopIndex int
	if s.RouteID != nil {
		route, err := r.Routes.GetForUpdate(ctx, s.TenantID, *s.RouteID)
		if err != nil {
			return err
		}
		if route == nil {
			return domain.Invalid("route_id %s no existe", *s.RouteID)
		}
		if stopIndex, err = r.Stops.CountByRoute(ctx, s.TenantID, route.ID); err != nil {
			return err
		}
	}
	if err := r.Shipments.Create(ctx, s); err != nil {
		return err
	}
	if s.RouteID != nil {
		err := r.Stops.Create(ctx, &entity.RouteStop{
			ID:         uuid.New().String(),
			TenantID:   s.TenantID,
			RouteID:    *s.RouteID,
			ShipmentID: s.ID,
			Address:    s.Destination,
			Recipient:  s.Recipient,
			OrderIndex: stopIndex,
			Status:     entity.StopPending,
			CreatedAt:  s.CreatedAt,
			UpdatedAt:  s.CreatedAt,
		})
		if err != nil {
			return err
		}
	}
	_, err := uc.ledger.Append(ctx, r.Events, s, tracking.Entry{
		State:       entity.ShipmentPending,
		Description: createdDescription,
		UserID:      optional(userID),
	})
	return err
}

// Create crea un envío en estado pending con su numero consecutivo y el evento inicial, en una sola transacción.
func (uc *ShipmentUseCase) Create(ctx context.Context, tenantID, userID string, in dto.CreateShipmentRequest) (*dto.ShipmentResponse, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	now := uc.now()
	var created *entity.Shipment
	err := uc.txRunner.Run(ctx, func(r repository.Repos) error {
		seq, err := r.Sequences.Reserve(ctx, tenantID, uc.cfg.Prefix, 1)
		if err != nil {
			return err
		}
		s := uc.newShipment(tenantID, FormatNumero(uc.cfg.Prefix, uc.cfg.Padding, seq), in, now)
		if err := uc.insertWithOpeningEvent(ctx, r, s, userID); err != nil {
			return err
		}
		created = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.ShipmentsCreatedTotal.WithLabelValues("single").Inc()
	uc.log.Tenant(tenantID).Info().Str("shipment_id", created.ID).Str("numero", created.Numero).Msg("envío creado")
	return toShipmentResponse(&entity.ShipmentSummary{Shipment: *created}), nil
}

// checkTransition aplica la tabla de transiciones según el modo configurado.
func (uc *ShipmentUseCase) checkTransition(tenantID string, s *entity.Shipment, next entity.ShipmentState) error {
	allowed := s.State.CanTransitionTo(next)
	metrics.ShipmentTransitionsTotal.WithLabelValues(string(s.State), string(next), fmt.Sprint(allowed)).Inc()
	if allowed {
		return nil
	}
	if uc.cfg.StrictTransitions {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, s.State, next)
	}
	uc.log.Tenant(tenantID).Warn().Str("shipment_id", s.ID).
		Str("from", string(s.State)).Str("to", string(next)).
		Msg("transición fuera de la tabla aceptada")
	return nil
}

// Update aplica una actualización parcial. Si cambia el estado, bloquea el envío, valida la
// transición y agrega el evento al libro antes de guardar, todo en la misma transacción.
func (uc *ShipmentUseCase) Update(ctx context.Context, tenantID, userID, id string, in dto.UpdateShipmentRequest) (*dto.ShipmentResponse, error) {
	var next entity.ShipmentState
	if in.State != nil {
		st, ok := entity.ParseShipmentState(*in.State)
		if !ok {
			return nil, domain.Invalid("state desconocido: %q", *in.State)
		}
		next = st
	}
	required := []struct {
		field string
		value *string
	}{{"origin", in.Origin}, {"destination", in.Destination}, {"recipient", in.Recipient}}
	for _, f := range required {
		if f.value != nil && strings.TrimSpace(*f.value) == "" {
			return nil, domain.Invalid("%s no puede quedar vacío", f.field)
		}
	}
	if in.Weight != nil && in.Weight.IsNegative() {
		return nil, domain.Invalid("weight no puede ser negativo")
	}
	if in.Pieces != nil && *in.Pieces < 0 {
		return nil, domain.Invalid("pieces no puede ser negativo")
	}

	now := uc.now()
	var (
		updated      *entity.Shipment
		previousCode string
	)
	err := uc.txRunner.Run(ctx, func(r repository.Repos) error {
		s, err := r.Shipments.GetForUpdate(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if s == nil {
			return domain.ErrNotFound
		}
		previousCode = s.TrackingCode
		applyShipmentFields(s, in)
		if in.CarrierID != nil {
			if err := checkCarrier(ctx, r, tenantID, s.CarrierID); err != nil {
				return err
			}
		}
		if next != "" && next != s.State {
			if err := uc.checkTransition(tenantID, s, next); err != nil {
				return err
			}
			desc := fmt.Sprintf("Estado actualizado a %s", next)
			if in.Description != nil && strings.TrimSpace(*in.Description) != "" {
				desc = strings.TrimSpace(*in.Description)
			}
			entry := tracking.Entry{State: next, Description: desc, Lat: in.Lat, Lng: in.Lng, UserID: optional(userID)}
			if in.Location != nil {
				entry.Location = *in.Location
			}
			if _, err := uc.ledger.Append(ctx, r.Events, s, entry); err != nil {
				return err
			}
			s.State = next
			if next == entity.ShipmentDelivered {
				s.DeliveredAt = &now
			}
		}
		s.UpdatedAt = now
		if err := r.Shipments.Update(ctx, s); err != nil {
			return err
		}
		updated = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.ledger.Invalidate(ctx, updated, previousCode)
	return uc.Get(ctx, tenantID, updated.ID)
}

func applyShipmentFields(s *entity.Shipment, in dto.UpdateShipmentRequest) {
	if in.Origin != nil {
		s.Origin = strings.TrimSpace(*in.Origin)
	}
	if in.Destination != nil {
		s.Destination = strings.TrimSpace(*in.Destination)
	}
	if in.Recipient != nil {
		s.Recipient = strings.TrimSpace(*in.Recipient)
	}
	if in.TrackingCode != nil {
		s.TrackingCode = strings.TrimSpace(*in.TrackingCode)
	}
	if in.CarrierID != nil {
		s.CarrierID = optional(*in.CarrierID)
	}
	if in.Weight != nil {
		s.Weight = *in.Weight
	}
	if in.Pieces != nil {
		s.Pieces = *in.Pieces
	}
	if in.EstimatedDelivery != nil {
		s.EstimatedDelivery = in.EstimatedDelivery
	}
}

// Get devuelve un envío del tenant con los resúmenes de ruta y transportadora.
func (uc *ShipmentUseCase) Get(ctx context.Context, tenantID, id string) (*dto.ShipmentResponse, error) {
	list, _, err := uc.repos.Shipments.List(ctx, tenantID, repository.ShipmentFilter{ID: id, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, domain.ErrNotFound
	}
	return toShipmentResponse(list[0]), nil
}

// List lista envíos del tenant con filtros y paginación.
func (uc *ShipmentUseCase) List(ctx context.Context, tenantID string, in dto.ShipmentFilterRequest) (*dto.ShipmentListResponse, error) {
	in.PageRequest.Normalize()
	filter := repository.ShipmentFilter{
		CarrierID: in.CarrierID,
		RouteID:   in.RouteID,
		Limit:     in.Limit,
		Offset:    in.Offset,
	}
	if in.State != "" {
		st, ok := entity.ParseShipmentState(in.State)
		if !ok {
			return nil, domain.Invalid("state desconocido: %q", in.State)
		}
		filter.State = st
	}
	var err error
	if filter.From, err = parseDate(in.From, false); err != nil {
		return nil, domain.Invalid("from debe tener formato YYYY-MM-DD")
	}
	if filter.To, err = parseDate(in.To, true); err != nil {
		return nil, domain.Invalid("to debe tener formato YYYY-MM-DD")
	}
	list, total, err := uc.repos.Shipments.List(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ShipmentResponse, 0, len(list))
	for _, s := range list {
		items = append(items, *toShipmentResponse(s))
	}
	return &dto.ShipmentListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset, Total: total},
	}, nil
}

// History devuelve el libro de seguimiento del envío (newestFirst=false para auditoría).
func (uc *ShipmentUseCase) History(ctx context.Context, tenantID, id string, newestFirst bool) ([]dto.TrackingEventResponse, error) {
	s, err := uc.repos.Shipments.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, domain.ErrNotFound
	}
	events, err := uc.ledger.History(ctx, uc.repos.Events, tenantID, id, newestFirst)
	if err != nil {
		return nil, err
	}
	return tracking.ToEventResponses(events), nil
}

// Track consulta pública por numero o código de transportadora dentro de un tenant.
func (uc *ShipmentUseCase) Track(ctx context.Context, tenantID, code string) (*dto.TrackingResponse, error) {
	code = strings.TrimSpace(code)
	if tenantID == "" || code == "" {
		return nil, domain.Invalid("tenant y código son obligatorios")
	}
	if cached := uc.ledger.Cached(ctx, tenantID, code); cached != nil {
		return cached, nil
	}
	s, err := uc.repos.Shipments.GetByCode(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, domain.ErrNotFound
	}
	events, err := uc.ledger.History(ctx, uc.repos.Events, tenantID, s.ID, true)
	if err != nil {
		return nil, err
	}
	resp := &dto.TrackingResponse{
		Numero:            s.Numero,
		TrackingCode:      s.TrackingCode,
		State:             string(s.State),
		Origin:            s.Origin,
		Destination:       s.Destination,
		Recipient:         s.Recipient,
		EstimatedDelivery: s.EstimatedDelivery,
		DeliveredAt:       s.DeliveredAt,
		Events:            tracking.ToEventResponses(events),
	}
	uc.ledger.Remember(ctx, tenantID, code, resp)
	return resp, nil
}

// Label genera la etiqueta PDF del envío. Devuelve el numero para el nombre del archivo.
func (uc *ShipmentUseCase) Label(ctx context.Context, tenantID, id string) ([]byte, string, error) {
	if uc.labels == nil {
		return nil, "", fmt.Errorf("generador de etiquetas no configurado")
	}
	s, err := uc.Get(ctx, tenantID, id)
	if err != nil {
		return nil, "", err
	}
	pdf, err := uc.labels.ShipmentLabel(s)
	if err != nil {
		return nil, "", fmt.Errorf("generar etiqueta: %w", err)
	}
	return pdf, s.Numero, nil
}

func toShipmentResponse(s *entity.ShipmentSummary) *dto.ShipmentResponse {
	return &dto.ShipmentResponse{
		ID:                s.ID,
		Numero:            s.Numero,
		TrackingCode:      s.TrackingCode,
		State:             string(s.State),
		Origin:            s.Origin,
		Destination:       s.Destination,
		Recipient:         s.Recipient,
		CarrierID:         s.CarrierID,
		CarrierName:       s.CarrierName,
		RouteID:           s.RouteID,
		RouteName:         s.RouteName,
		Weight:            s.Weight,
		Pieces:            s.Pieces,
		EstimatedDelivery: s.EstimatedDelivery,
		DeliveredAt:       s.DeliveredAt,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

// parseDate interpreta YYYY-MM-DD; endOfDay lleva la fecha al último instante del día.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalPtr(p *string) *string {
	if p == nil {
		return nil
	}
	return optional(*p)
}
