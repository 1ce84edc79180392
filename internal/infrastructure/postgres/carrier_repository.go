package postgres

import (
	"context"
	"fmt"
)

// CarrierRepository consulta el catálogo de transportadoras.
type CarrierRepository struct {
	q Querier
}

// NewCarrierRepository construye el repositorio.
func NewCarrierRepository(q Querier) *CarrierRepository {
	return &CarrierRepository{q: q}
}

// Exists indica si la transportadora pertenece al tenant. Un id que no es UUID simplemente no existe.
func (r *CarrierRepository) Exists(ctx context.Context, tenantID, id string) (bool, error) {
	var ok bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM carriers WHERE tenant_id = $1 AND id::text = $2)`,
		tenantID, id,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("carrier exists: %w", err)
	}
	return ok, nil
}
