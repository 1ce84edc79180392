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

var (
	_ repository.ShipmentRepository = (*ShipmentRepo)(nil)
	_ repository.SequenceRepository = (*SequenceRepo)(nil)
)

const shipmentColumns = `
	s.id, s.tenant_id, s.numero, s.tracking_code, s.state, s.origin, s.destination, s.recipient,
	s.carrier_id, s.route_id, s.weight, s.pieces, s.estimated_delivery, s.delivered_at,
	s.created_at, s.updated_at`

// ShipmentRepo implementación del puerto ShipmentRepository sobre PostgreSQL.
type ShipmentRepo struct {
	q Querier
}

// NewShipmentRepository construye el adaptador de persistencia para envíos.
func NewShipmentRepository(q Querier) *ShipmentRepo {
	return &ShipmentRepo{q: q}
}

func scanShipment(row pgx.Row, extra ...any) (*entity.Shipment, error) {
	var s entity.Shipment
	dest := []any{
		&s.ID, &s.TenantID, &s.Numero, &s.TrackingCode, &s.State, &s.Origin, &s.Destination, &s.Recipient,
		&s.CarrierID, &s.RouteID, &s.Weight, &s.Pieces, &s.EstimatedDelivery, &s.DeliveredAt,
		&s.CreatedAt, &s.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &s, nil
}

// Create persiste un nuevo envío. Un numero repetido dentro del tenant devuelve ErrConflict.
func (r *ShipmentRepo) Create(ctx context.Context, s *entity.Shipment) error {
	query := `
		INSERT INTO shipments (id, tenant_id, numero, tracking_code, state, origin, destination, recipient,
			carrier_id, route_id, weight, pieces, estimated_delivery, delivered_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.TenantID, s.Numero, s.TrackingCode, s.State, s.Origin, s.Destination, s.Recipient,
		emptyToNil(s.CarrierID), emptyToNil(s.RouteID), s.Weight, s.Pieces, s.EstimatedDelivery, s.DeliveredAt,
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert shipment: numero %s duplicado: %w", s.Numero, domain.ErrConflict)
		}
		return fmt.Errorf("insert shipment: %w", err)
	}
	return nil
}

// GetByID obtiene un envío del tenant por ID.
func (r *ShipmentRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Shipment, error) {
	return r.getOne(ctx, `SELECT`+shipmentColumns+` FROM shipments s WHERE s.tenant_id = $1 AND s.id = $2`, tenantID, id)
}

// GetForUpdate obtiene el envío bloqueando la fila hasta el fin de la transacción.
func (r *ShipmentRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Shipment, error) {
	return r.getOne(ctx, `SELECT`+shipmentColumns+` FROM shipments s WHERE s.tenant_id = $1 AND s.id = $2 FOR UPDATE`, tenantID, id)
}

// GetByCode busca por numero o por código de la transportadora; gana el numero.
func (r *ShipmentRepo) GetByCode(ctx context.Context, tenantID, code string) (*entity.Shipment, error) {
	query := `SELECT` + shipmentColumns + `
		FROM shipments s
		WHERE s.tenant_id = $1 AND (s.numero = $2 OR (s.tracking_code <> '' AND s.tracking_code = $2))
		ORDER BY (s.numero = $2) DESC
		LIMIT 1`
	return r.getOne(ctx, query, tenantID, code)
}

func (r *ShipmentRepo) getOne(ctx context.Context, query string, args ...any) (*entity.Shipment, error) {
	s, err := scanShipment(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	return s, nil
}

// Update persiste los campos editables. Numero y created_at no se tocan.
func (r *ShipmentRepo) Update(ctx context.Context, s *entity.Shipment) error {
	query := `
		UPDATE shipments SET tracking_code = $3, state = $4, origin = $5, destination = $6, recipient = $7,
			carrier_id = $8, route_id = $9, weight = $10, pieces = $11, estimated_delivery = $12,
			delivered_at = $13, updated_at = $14
		WHERE tenant_id = $1 AND id = $2`
	cmd, err := r.q.Exec(ctx, query,
		s.TenantID, s.ID, s.TrackingCode, s.State, s.Origin, s.Destination, s.Recipient,
		emptyToNil(s.CarrierID), emptyToNil(s.RouteID), s.Weight, s.Pieces, s.EstimatedDelivery,
		s.DeliveredAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update shipment: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateState cambia solo el estado (y delivered_at si viene).
func (r *ShipmentRepo) UpdateState(ctx context.Context, tenantID, id string, state entity.ShipmentState, deliveredAt *time.Time, now time.Time) error {
	query := `
		UPDATE shipments SET state = $3, delivered_at = COALESCE($4, delivered_at), updated_at = $5
		WHERE tenant_id = $1 AND id = $2`
	cmd, err := r.q.Exec(ctx, query, tenantID, id, state, deliveredAt, now)
	if err != nil {
		return fmt.Errorf("update shipment state: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetRoute asigna (o quita con nil) la ruta del envío.
func (r *ShipmentRepo) SetRoute(ctx context.Context, tenantID, id string, routeID *string, now time.Time) error {
	cmd, err := r.q.Exec(ctx,
		`UPDATE shipments SET route_id = $3, updated_at = $4 WHERE tenant_id = $1 AND id = $2`,
		tenantID, id, emptyToNil(routeID), now)
	if err != nil {
		return fmt.Errorf("set shipment route: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClearRoute desasigna la ruta de todos los envíos que la referencian.
func (r *ShipmentRepo) ClearRoute(ctx context.Context, tenantID, routeID string, now time.Time) error {
	_, err := r.q.Exec(ctx,
		`UPDATE shipments SET route_id = NULL, updated_at = $3 WHERE tenant_id = $1 AND route_id = $2`,
		tenantID, routeID, now)
	if err != nil {
		return fmt.Errorf("clear shipment route: %w", err)
	}
	return nil
}

// List lista envíos del tenant con nombre de ruta y transportadora, del más reciente al más antiguo.
// El total ignora limit/offset.
func (r *ShipmentRepo) List(ctx context.Context, tenantID string, f repository.ShipmentFilter) ([]*entity.ShipmentSummary, int, error) {
	where := []string{"s.tenant_id = $1"}
	args := []any{tenantID}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.ID != "" {
		add("s.id::text = $%d", f.ID)
	}
	if f.State != "" {
		add("s.state = $%d", f.State)
	}
	if f.CarrierID != "" {
		add("s.carrier_id::text = $%d", f.CarrierID)
	}
	if f.RouteID != "" {
		add("s.route_id::text = $%d", f.RouteID)
	}
	if f.From != nil {
		add("s.created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("s.created_at <= $%d", *f.To)
	}

	query := `SELECT` + shipmentColumns + `,
			COALESCE(rt.name, ''), COALESCE(c.name, ''), COUNT(*) OVER()
		FROM shipments s
		LEFT JOIN routes rt ON rt.id = s.route_id AND rt.tenant_id = s.tenant_id
		LEFT JOIN carriers c ON c.id = s.carrier_id AND c.tenant_id = s.tenant_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY s.created_at DESC, s.numero DESC`
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
		return nil, 0, fmt.Errorf("list shipments: %w", err)
	}
	defer rows.Close()

	var (
		list  []*entity.ShipmentSummary
		total int
	)
	for rows.Next() {
		var routeName, carrierName string
		s, err := scanShipment(rows, &routeName, &carrierName, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan shipment: %w", err)
		}
		list = append(list, &entity.ShipmentSummary{Shipment: *s, RouteName: routeName, CarrierName: carrierName})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list shipments: %w", err)
	}
	if len(list) == 0 && f.Offset > 0 {
		// La página quedó vacía; el total sale de una consulta aparte.
		countQuery := `SELECT COUNT(*) FROM shipments s WHERE ` + strings.Join(where, " AND ")
		nFilters := len(where)
		if err := r.q.QueryRow(ctx, countQuery, args[:nFilters]...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count shipments: %w", err)
		}
	}
	return list, total, nil
}

// SequenceRepo contador de numeración por tenant y prefijo.
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el contador de numeración.
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

// Reserve incrementa el contador en n de forma atómica y devuelve el primer número del bloque.
func (r *SequenceRepo) Reserve(ctx context.Context, tenantID, prefix string, n int) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("reserve sequence: n debe ser positivo")
	}
	query := `
		INSERT INTO shipment_sequences (tenant_id, prefix, last_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, prefix)
		DO UPDATE SET last_value = shipment_sequences.last_value + EXCLUDED.last_value
		RETURNING last_value`
	var last int64
	if err := r.q.QueryRow(ctx, query, tenantID, prefix, n).Scan(&last); err != nil {
		return 0, fmt.Errorf("reserve sequence: %w", err)
	}
	return last - int64(n) + 1, nil
}
