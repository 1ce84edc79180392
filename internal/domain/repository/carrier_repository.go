package repository

import "context"

// CarrierRepository catálogo de transportadoras del tenant. Lo administra otro sistema; aquí solo se consulta.
type CarrierRepository interface {
	Exists(ctx context.Context, tenantID, id string) (bool, error)
}
