package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Envios-api/internal/domain"
	"github.com/jhoicas/Envios-api/internal/domain/entity"
	"github.com/jhoicas/Envios-api/internal/domain/repository"
)

var _ repository.RouteRepository = (*RouteRepo)(nil)

const routeColumns = `id, tenant_id, name, scheduled_date, status, carrier_id, vehicle_id, created_at, updated_at`

// RouteRepo implementación del puerto RouteRepository sobre PostgreSQL.
type RouteRepo struct {
	q Querier
}

// NewRouteRepository construye el adaptador de persistencia para rutas.
func NewRouteRepository(q Querier) *RouteRepo {
	return &RouteRepo{q: q}
}

func scanRoute(row pgx.Row, extra ...any) (*entity.Route, error) {
	var rt entity.Route
	dest := []any{&rt.ID, &rt.TenantID, &rt.Name, &rt.ScheduledDate, &rt.Status,
		&rt.CarrierID, &rt.VehicleID, &rt.CreatedAt, &rt.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &rt, nil
}

// Create persiste una nueva ruta.
func (r *RouteRepo) Create(ctx context.Context, rt *entity.Route) error {
	query := `
		INSERT INTO routes (` + routeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		rt.ID, rt.TenantID, rt.Name, rt.ScheduledDate, rt.Status,
		emptyToNil(rt.CarrierID), emptyToNil(rt.VehicleID), rt.CreatedAt, rt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert route: %w", err)
	}
	return nil
}

// GetByID obtiene una ruta del tenant.
func (r *RouteRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Route, error) {
	return r.getOne(ctx, `SELECT `+routeColumns+` FROM routes WHERE tenant_id = $1 AND id = $2`, tenantID, id)
}

// GetForUpdate obtiene la ruta con bloqueo de fila.
func (r *RouteRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Route, error) {
	return r.getOne(ctx, `SELECT `+routeColumns+` FROM routes WHERE tenant_id = $1 AND id = $2 FOR UPDATE`, tenantID, id)
}

func (r *RouteRepo) getOne(ctx context.Context, query string, args ...any) (*entity.Route, error) {
	rt, err := scanRoute(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get route: %w", err)
	}
	return rt, nil
}

// Update actualiza los campos editables de la ruta.
func (r *RouteRepo) Update(ctx context.Context, rt *entity.Route) error {
	query := `
		UPDATE routes SET name = $3, scheduled_date = $4, status = $5, carrier_id = $6, vehicle_id = $7, updated_at = $8
		WHERE tenant_id = $1 AND id = $2`
	cmd, err := r.q.Exec(ctx, query,
		rt.TenantID, rt.ID, rt.Name, rt.ScheduledDate, rt.Status,
		emptyToNil(rt.CarrierID), emptyToNil(rt.VehicleID), rt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update route: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List lista rutas del tenant, más recientes primero.
func (r *RouteRepo) List(ctx context.Context, tenantID string, f repository.RouteFilter) ([]*entity.Route, int, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.From != nil {
		add("scheduled_date >= $%d", *f.From)
	}
	if f.To != nil {
		add("scheduled_date <= $%d", *f.To)
	}
	filterArgs := len(args)

	query := `SELECT ` + routeColumns + `, COUNT(*) OVER() FROM routes WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list routes: %w", err)
	}
	defer rows.Close()
	var (
		list  []*entity.Route
		total int
	)
	for rows.Next() {
		rt, err := scanRoute(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan route: %w", err)
		}
		list = append(list, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list routes: %w", err)
	}
	if len(list) == 0 && f.Offset > 0 {
		countQuery := `SELECT COUNT(*) FROM routes WHERE ` + strings.Join(where, " AND ")
		if err := r.q.QueryRow(ctx, countQuery, args[:filterArgs]...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count routes: %w", err)
		}
	}
	return list, total, nil
}

// Delete elimina la ruta; las paradas caen en cascada.
func (r *RouteRepo) Delete(ctx context.Context, tenantID, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM routes WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete route: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ repository.RouteStopRepository = (*RouteStopRepo)(nil)

const stopColumns = `id, tenant_id, route_id, shipment_id, address, recipient, lat, lng, order_index,
	status, notes, completed_at, proof_url, created_at, updated_at`

// RouteStopRepo implementación del puerto RouteStopRepository sobre PostgreSQL.
type RouteStopRepo struct {
	q Querier
}

// NewRouteStopRepository construye el adaptador de persistencia para paradas.
func NewRouteStopRepository(q Querier) *RouteStopRepo {
	return &RouteStopRepo{q: q}
}

func scanStop(row pgx.Row) (*entity.RouteStop, error) {
	var s entity.RouteStop
	err := row.Scan(&s.ID, &s.TenantID, &s.RouteID, &s.ShipmentID, &s.Address, &s.Recipient, &s.Lat, &s.Lng,
		&s.OrderIndex, &s.Status, &s.Notes, &s.CompletedAt, &s.ProofURL, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create persiste una parada.
func (r *RouteStopRepo) Create(ctx context.Context, s *entity.RouteStop) error {
	query := `
		INSERT INTO route_stops (` + stopColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.TenantID, s.RouteID, s.ShipmentID, s.Address, s.Recipient, s.Lat, s.Lng, s.OrderIndex,
		s.Status, s.Notes, s.CompletedAt, s.ProofURL, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert route stop: %w", err)
	}
	return nil
}

// GetByID obtiene una parada del tenant.
func (r *RouteStopRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.RouteStop, error) {
	s, err := scanStop(r.q.QueryRow(ctx,
		`SELECT `+stopColumns+` FROM route_stops WHERE tenant_id = $1 AND id = $2`, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get route stop: %w", err)
	}
	return s, nil
}

// ListByRoute devuelve las paradas de la ruta ordenadas por order_index.
func (r *RouteStopRepo) ListByRoute(ctx context.Context, tenantID, routeID string) ([]*entity.RouteStop, error) {
	query := `SELECT ` + stopColumns + `
		FROM route_stops WHERE tenant_id = $1 AND route_id::text = $2
		ORDER BY order_index, created_at, id`
	rows, err := r.q.Query(ctx, query, tenantID, routeID)
	if err != nil {
		return nil, fmt.Errorf("list route stops: %w", err)
	}
	defer rows.Close()
	var list []*entity.RouteStop
	for rows.Next() {
		s, err := scanStop(rows)
		if err != nil {
			return nil, fmt.Errorf("scan route stop: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// CountByRoute cuenta las paradas de la ruta.
func (r *RouteStopRepo) CountByRoute(ctx context.Context, tenantID, routeID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM route_stops WHERE tenant_id = $1 AND route_id::text = $2`, tenantID, routeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count route stops: %w", err)
	}
	return n, nil
}

// ShiftFrom abre un hueco en fromIndex desplazando las paradas siguientes.
func (r *RouteStopRepo) ShiftFrom(ctx context.Context, tenantID, routeID string, fromIndex int) error {
	_, err := r.q.Exec(ctx, `
		UPDATE route_stops SET order_index = order_index + 1, updated_at = now()
		WHERE tenant_id = $1 AND route_id::text = $2 AND order_index >= $3`,
		tenantID, routeID, fromIndex)
	if err != nil {
		return fmt.Errorf("shift route stops: %w", err)
	}
	return nil
}

// UpdateOrder fija el order_index de una parada.
func (r *RouteStopRepo) UpdateOrder(ctx context.Context, tenantID, id string, orderIndex int) error {
	cmd, err := r.q.Exec(ctx,
		`UPDATE route_stops SET order_index = $3, updated_at = now() WHERE tenant_id = $1 AND id = $2`,
		tenantID, id, orderIndex)
	if err != nil {
		return fmt.Errorf("update route stop order: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Complete marca la parada como completada. proofURL vacío conserva el anterior.
func (r *RouteStopRepo) Complete(ctx context.Context, tenantID, id string, completedAt time.Time, proofURL string) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE route_stops
		SET status = $3, completed_at = $4, proof_url = COALESCE(NULLIF($5, ''), proof_url), updated_at = $4
		WHERE tenant_id = $1 AND id = $2`,
		tenantID, id, entity.StopCompleted, completedAt, proofURL)
	if err != nil {
		return fmt.Errorf("complete route stop: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteByRoute elimina todas las paradas de la ruta.
func (r *RouteStopRepo) DeleteByRoute(ctx context.Context, tenantID, routeID string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM route_stops WHERE tenant_id = $1 AND route_id::text = $2`, tenantID, routeID)
	if err != nil {
		return fmt.Errorf("delete route stops: %w", err)
	}
	return nil
}
