package shipping

import (
	"context"

	"github.com/jhoicas/Envios-api/internal/application/dto"
	"github.com/jhoicas/Envios-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
type TxRunner interface {
	Run(ctx context.Context, fn func(r repository.Repos) error) error
}

// LabelGenerator genera la etiqueta imprimible (PDF) de un envío.
type LabelGenerator interface {
	ShipmentLabel(shipment *dto.ShipmentResponse) ([]byte, error)
}
