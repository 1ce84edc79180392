package delivery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/Envios-api/internal/application/dto"
	"github.com/jhoicas/Envios-api/internal/application/tracking"
	"github.com/jhoicas/Envios-api/internal/domain"
	"github.com/jhoicas/Envios-api/internal/domain/entity"
	"github.com/jhoicas/Envios-api/internal/domain/repository"
	"github.com/jhoicas/Envios-api/internal/infrastructure/metrics"
	"github.com/jhoicas/Envios-api/pkg/logger"
)

// Config reintentos de los efectos secundarios y modo de transiciones.
type Config struct {
	StepAttempts       int           // intentos inmediatos por paso dentro de la petición
	StepBackoff        time.Duration // espera base entre intentos (lineal)
	MaxAttempts        int           // tope total de intentos, contando los del reconciliador
	RetryAfter         time.Duration // antigüedad mínima de una tarea para que la tome el reconciliador
	StrictTransitions  bool
	AutoCompleteRoutes bool // la ruta pasa a completed cuando todas sus paradas están cerradas
}

func (c Config) withDefaults() Config {
	if c.StepAttempts <= 0 {
		c.StepAttempts = 3
	}
	if c.StepBackoff < 0 {
		c.StepBackoff = 0
	}
	if c.MaxAttempts < c.StepAttempts {
		c.MaxAttempts = c.StepAttempts + 5
	}
	if c.RetryAfter <= 0 {
		c.RetryAfter = 30 * time.Second
	}
	return c
}

// DeliveryUseCase flujo de confirmación de entrega: registra el intento con su outbox en una
// transacción y luego aplica los efectos secundarios en paralelo, con reintento y resultado por paso.
type DeliveryUseCase struct {
	txRunner TxRunner
	repos    repository.Repos
	ledger   *tracking.Ledger
	cfg      Config
	log      *logger.Logger
	now      func() time.Time
}

// NewDeliveryUseCase construye el caso de uso.
func NewDeliveryUseCase(txRunner TxRunner, repos repository.Repos, ledger *tracking.Ledger, cfg Config, log *logger.Logger) *DeliveryUseCase {
	return &DeliveryUseCase{
		txRunner: txRunner,
		repos:    repos,
		ledger:   ledger,
		cfg:      cfg.withDefaults(),
		log:      log,
		now:      time.Now,
	}
}

// Confirm registra un intento de entrega. Si la Delivery se crea, la respuesta informa el resultado
// de cada efecto secundario y Consistent=false cuando alguno quedó pendiente para el reconciliador.
func (uc *DeliveryUseCase) Confirm(ctx context.Context, tenantID, userID string, in dto.CreateDeliveryRequest) (*dto.ConfirmDeliveryResponse, error) {
	if strings.TrimSpace(in.ShipmentID) == "" {
		return nil, domain.Invalid("shipment_id es obligatorio")
	}
	outcome := entity.ShipmentDelivered
	if in.State != "" {
		outcome = entity.ShipmentState(in.State)
		if !entity.IsDeliveryOutcome(outcome) {
			return nil, domain.Invalid("state debe ser delivered, not_delivered, partial o returned")
		}
	}
	if (in.Lat == nil) != (in.Lng == nil) {
		return nil, domain.Invalid("lat y lng deben enviarse juntas")
	}

	shipment, err := uc.repos.Shipments.GetByID(ctx, tenantID, in.ShipmentID)
	if err != nil {
		return nil, err
	}
	if shipment == nil {
		return nil, domain.ErrNotFound
	}
	var stopID *string
	if in.RouteStopID != nil && strings.TrimSpace(*in.RouteStopID) != "" {
		stop, err := uc.repos.Stops.GetByID(ctx, tenantID, *in.RouteStopID)
		if err != nil {
			return nil, err
		}
		if stop == nil {
			return nil, fmt.Errorf("parada %s: %w", *in.RouteStopID, domain.ErrNotFound)
		}
		if stop.ShipmentID != shipment.ID {
			return nil, domain.Invalid("la parada %s no corresponde al envío", stop.ID)
		}
		stopID = &stop.ID
	}
	if !shipment.State.CanTransitionTo(outcome) {
		if uc.cfg.StrictTransitions {
			return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, shipment.State, outcome)
		}
		uc.log.Tenant(tenantID).Warn().Str("shipment_id", shipment.ID).
			Str("from", string(shipment.State)).Str("to", string(outcome)).
			Msg("entrega con transición fuera de la tabla aceptada")
	}

	now := uc.now()
	d := &entity.Delivery{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		ShipmentID:    shipment.ID,
		RouteStopID:   stopID,
		State:         outcome,
		DeliveredAt:   now,
		SignedBy:      strings.TrimSpace(in.SignedBy),
		ProofURL:      strings.TrimSpace(in.ProofURL),
		Location:      strings.TrimSpace(in.Location),
		Lat:           in.Lat,
		Lng:           in.Lng,
		Notes:         strings.TrimSpace(in.Notes),
		FailureReason: strings.TrimSpace(in.FailureReason),
		UserID:        optional(userID),
		CreatedAt:     now,
	}
	if in.DeliveredAt != nil {
		d.DeliveredAt = *in.DeliveredAt
	}

	steps := []entity.DeliveryStep{entity.StepShipmentState, entity.StepTrackingEvent}
	if stopID != nil {
		steps = append(steps, entity.StepRouteStop)
	}
	tasks := make([]*entity.DeliveryTask, 0, len(steps))
	for _, step := range steps {
		tasks = append(tasks, &entity.DeliveryTask{
			ID:         uuid.New().String(),
			TenantID:   tenantID,
			DeliveryID: d.ID,
			Step:       step,
			Status:     entity.TaskPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	err = uc.txRunner.Run(ctx, func(r repository.Repos) error {
		if err := r.Deliveries.Create(ctx, d); err != nil {
			return err
		}
		for _, t := range tasks {
			if err := r.Tasks.Create(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.DeliveriesConfirmedTotal.WithLabelValues(string(outcome)).Inc()

	uc.execute(ctx, d, tasks, uc.cfg.StepAttempts)

	resp := &dto.ConfirmDeliveryResponse{
		Delivery:    toDeliveryResponse(d),
		SideEffects: toSideEffects(tasks),
		Consistent:  allDone(tasks),
	}
	if !resp.Consistent {
		uc.log.Tenant(tenantID).Warn().Str("delivery_id", d.ID).Msg("entrega registrada con efectos secundarios pendientes")
	}
	return resp, nil
}

// execute aplica los pasos en paralelo. Cada paso reintenta de forma independiente y persiste su
// resultado; el fallo de uno no cancela a los demás.
func (uc *DeliveryUseCase) execute(ctx context.Context, d *entity.Delivery, tasks []*entity.DeliveryTask, attempts int) {
	var g errgroup.Group
	for _, t := range tasks {
		g.Go(func() error {
			return uc.runTask(ctx, d, t, attempts)
		})
	}
	if err := g.Wait(); err != nil {
		uc.log.Tenant(d.TenantID).Debug().Err(err).Str("delivery_id", d.ID).Msg("entrega con pasos pendientes")
	}

	if shipment, err := uc.repos.Shipments.GetByID(ctx, d.TenantID, d.ShipmentID); err == nil && shipment != nil {
		uc.ledger.Invalidate(ctx, shipment)
	}
}

// runTask ejecuta un paso con reintentos, persiste su resultado y devuelve el último error.
func (uc *DeliveryUseCase) runTask(ctx context.Context, d *entity.Delivery, t *entity.DeliveryTask, attempts int) error {
	if t.Attempts >= uc.cfg.MaxAttempts {
		return nil
	}
	var err error
	for i := 1; i <= attempts; i++ {
		t.Attempts++
		if err = uc.apply(ctx, d, t); err == nil {
			break
		}
		if i == attempts || t.Attempts >= uc.cfg.MaxAttempts || !sleep(ctx, uc.cfg.StepBackoff*time.Duration(i)) {
			break
		}
	}
	t.UpdatedAt = uc.now()
	if err != nil {
		t.Status = entity.TaskFailed
		t.LastError = err.Error()
		uc.log.Tenant(d.TenantID).Warn().Err(err).
			Str("delivery_id", d.ID).Str("step", string(t.Step)).Int("attempts", t.Attempts).
			Msg("efecto secundario de entrega falló")
	} else {
		t.Status = entity.TaskDone
		t.LastError = ""
	}
	metrics.DeliverySideEffectsTotal.WithLabelValues(string(t.Step), string(t.Status)).Inc()

	if saveErr := uc.repos.Tasks.SaveResult(context.WithoutCancel(ctx), t); saveErr != nil {
		uc.log.Tenant(d.TenantID).Error().Err(saveErr).Str("task_id", t.ID).Msg("guardar resultado de tarea de entrega")
	}
	if err != nil {
		return fmt.Errorf("%s: %w", t.Step, err)
	}
	return nil
}

// apply ejecuta un paso. Los tres pasos son idempotentes para que el reconciliador pueda repetirlos.
func (uc *DeliveryUseCase) apply(ctx context.Context, d *entity.Delivery, t *entity.DeliveryTask) error {
	switch t.Step {
	case entity.StepShipmentState:
		return uc.applyShipmentState(ctx, d)
	case entity.StepTrackingEvent:
		_, err := uc.ledger.Append(ctx, uc.repos.Events, &entity.Shipment{ID: d.ShipmentID, TenantID: d.TenantID}, tracking.Entry{
			ID:          t.ID,
			State:       d.State,
			Description: describe(d),
			Location:    d.Location,
			Lat:         d.Lat,
			Lng:         d.Lng,
			UserID:      d.UserID,
		})
		return err
	case entity.StepRouteStop:
		return uc.applyRouteStop(ctx, d)
	}
	return fmt.Errorf("paso desconocido %q", t.Step)
}

// applyShipmentState fija el estado del envío salvo que un intento posterior o un cambio manual
// ya lo hayan reemplazado; en ese caso el paso queda hecho sin tocar el envío.
func (uc *DeliveryUseCase) applyShipmentState(ctx context.Context, d *entity.Delivery) error {
	return uc.txRunner.Run(ctx, func(r repository.Repos) error {
		s, err := r.Shipments.GetForUpdate(ctx, d.TenantID, d.ShipmentID)
		if err != nil {
			return err
		}
		if s == nil {
			return domain.ErrNotFound
		}
		latest, err := r.Deliveries.List(ctx, d.TenantID, d.ShipmentID, 1, 0)
		if err != nil {
			return err
		}
		if len(latest) > 0 && latest[0].ID != d.ID {
			return nil
		}
		// Un cambio de estado registrado en el libro después de la entrega manda sobre ella.
		events, err := r.Events.ListByShipment(ctx, d.TenantID, d.ShipmentID, true)
		if err != nil {
			return err
		}
		if len(events) > 0 && events[0].State != d.State && !events[0].CreatedAt.Before(d.CreatedAt) {
			uc.log.Tenant(d.TenantID).Info().Str("delivery_id", d.ID).
				Str("state", string(events[0].State)).
				Msg("estado de la entrega reemplazado por un cambio posterior")
			return nil
		}
		var deliveredAt *time.Time
		if d.State == entity.ShipmentDelivered {
			deliveredAt = &d.DeliveredAt
		}
		return r.Shipments.UpdateState(ctx, d.TenantID, d.ShipmentID, d.State, deliveredAt, uc.now())
	})
}

// applyRouteStop cierra la parada y, si está habilitado, completa la ruta cuando ya no quedan paradas abiertas.
func (uc *DeliveryUseCase) applyRouteStop(ctx context.Context, d *entity.Delivery) error {
	if d.RouteStopID == nil {
		return nil
	}
	return uc.txRunner.Run(ctx, func(r repository.Repos) error {
		stop, err := r.Stops.GetByID(ctx, d.TenantID, *d.RouteStopID)
		if err != nil {
			return err
		}
		if stop == nil {
			return domain.ErrNotFound
		}
		if err := r.Stops.Complete(ctx, d.TenantID, stop.ID, d.DeliveredAt, d.ProofURL); err != nil {
			return err
		}
		if !uc.cfg.AutoCompleteRoutes {
			return nil
		}
		route, err := r.Routes.GetForUpdate(ctx, d.TenantID, stop.RouteID)
		if err != nil || route == nil || route.Status == entity.RouteCompleted || route.Status == entity.RouteCancelled {
			return err
		}
		stops, err := r.Stops.ListByRoute(ctx, d.TenantID, stop.RouteID)
		if err != nil {
			return err
		}
		for _, s := range stops {
			if !s.Closed() {
				return nil
			}
		}
		route.Status = entity.RouteCompleted
		route.UpdatedAt = uc.now()
		return r.Routes.Update(ctx, route)
	})
}

func describe(d *entity.Delivery) string {
	var desc string
	switch d.State {
	case entity.ShipmentDelivered:
		desc = "Entrega confirmada"
		if d.SignedBy != "" {
			desc += ", recibe " + d.SignedBy
		}
	case entity.ShipmentNotDelivered:
		desc = "Entrega no realizada"
		if d.FailureReason != "" {
			desc += ": " + d.FailureReason
		}
	case entity.ShipmentPartial:
		desc = "Entrega parcial"
	case entity.ShipmentReturned:
		desc = "Envío devuelto"
	}
	if d.Notes != "" {
		desc += ". " + d.Notes
	}
	return desc
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func allDone(tasks []*entity.DeliveryTask) bool {
	for _, t := range tasks {
		if t.Status != entity.TaskDone {
			return false
		}
	}
	return true
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
