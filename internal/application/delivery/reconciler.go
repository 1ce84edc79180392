package delivery

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/jhoicas/Envios-api/internal/domain/entity"
)

const reconcileBatch = 100

// Reconcile reintenta una vez las tareas pendientes o fallidas de cualquier tenant que no hayan
// agotado sus intentos. Devuelve cuántas quedaron aplicadas.
func (uc *DeliveryUseCase) Reconcile(ctx context.Context) (int, error) {
	tasks, err := uc.repos.Tasks.ListRetryable(ctx, uc.cfg.MaxAttempts, uc.now().Add(-uc.cfg.RetryAfter), reconcileBatch)
	if err != nil {
		return 0, err
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	byDelivery := map[string][]*entity.DeliveryTask{}
	var order []string
	for _, t := range tasks {
		k := t.TenantID + "|" + t.DeliveryID
		if _, ok := byDelivery[k]; !ok {
			order = append(order, k)
		}
		byDelivery[k] = append(byDelivery[k], t)
	}

	done := 0
	for _, k := range order {
		group := byDelivery[k]
		d, err := uc.repos.Deliveries.GetByID(ctx, group[0].TenantID, group[0].DeliveryID)
		if err != nil {
			return done, err
		}
		if d == nil {
			continue
		}
		uc.execute(ctx, d, group, 1)
		for _, t := range group {
			if t.Status == entity.TaskDone {
				done++
			}
		}
	}
	uc.log.Info().Int("tasks", len(tasks)).Int("done", done).Msg("reconciliación de entregas")
	return done, nil
}

// Reconciler ejecuta Reconcile periódicamente con gocron.
type Reconciler struct {
	uc        *DeliveryUseCase
	interval  time.Duration
	scheduler gocron.Scheduler
}

// NewReconciler construye el job; interval <= 0 usa un minuto.
func NewReconciler(uc *DeliveryUseCase, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reconciler{uc: uc, interval: interval}
}

// Start programa el job y lo deja corriendo hasta Shutdown.
func (r *Reconciler) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() {
			if _, err := r.uc.Reconcile(ctx); err != nil {
				r.uc.log.Error().Err(err).Msg("reconciliación de entregas falló")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}
	r.scheduler = scheduler
	scheduler.Start()
	return nil
}

// Shutdown detiene el scheduler y espera al job en curso.
func (r *Reconciler) Shutdown() error {
	if r.scheduler == nil {
		return nil
	}
	return r.scheduler.Shutdown()
}
