package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Envios-api/internal/application/delivery"
	"github.com/jhoicas/Envios-api/internal/application/routes"
	"github.com/jhoicas/Envios-api/internal/application/shipping"
	"github.com/jhoicas/Envios-api/internal/domain/repository"
)

var (
	_ shipping.TxRunner = (*TxRunner)(nil)
	_ routes.TxRunner   = (*TxRunner)(nil)
	_ delivery.TxRunner = (*TxRunner)(nil)
)

// NewRepos construye todos los repositorios del núcleo sobre un pool o una tx.
func NewRepos(q Querier) repository.Repos {
	return repository.Repos{
		Shipments:  NewShipmentRepository(q),
		Sequences:  NewSequenceRepository(q),
		Events:     NewTrackingEventRepository(q),
		Routes:     NewRouteRepository(q),
		Stops:      NewRouteStopRepository(q),
		Deliveries: NewDeliveryRepository(q),
		Tasks:      NewDeliveryTaskRepository(q),
		Carriers:   NewCarrierRepository(q),
	}
}

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(repos repository.Repos) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
