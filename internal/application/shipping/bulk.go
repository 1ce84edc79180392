package shipping

import (
	"cmp"
	"context"
	"slices"

	"github.com/jhoicas/Envios-api/internal/application/dto"
	"github.com/jhoicas/Envios-api/internal/domain"
	"github.com/jhoicas/Envios-api/internal/domain/entity"
	"github.com/jhoicas/Envios-api/internal/domain/repository"
	"github.com/jhoicas/Envios-api/internal/infrastructure/metrics"
)

// BulkRow fila de entrada de la carga masiva. Err viene del parser (archivo) cuando la fila no se pudo leer.
type BulkRow struct {
	Item dto.CreateShipmentRequest
	Err  error
}

// BulkIntake creación masiva de envíos con aislamiento por fila.
type BulkIntake struct {
	shipments *ShipmentUseCase
}

// NewBulkIntake construye la carga masiva sobre el registro de envíos.
func NewBulkIntake(shipments *ShipmentUseCase) *BulkIntake {
	return &BulkIntake{shipments: shipments}
}

// Create procesa items del body JSON.
func (b *BulkIntake) Create(ctx context.Context, tenantID, userID string, items []dto.CreateShipmentRequest) (*dto.BulkCreateShipmentsResponse, error) {
	rows := make([]BulkRow, len(items))
	for i, it := range items {
		rows[i] = BulkRow{Item: it}
	}
	return b.CreateRows(ctx, tenantID, userID, rows)
}

// CreateRows valida todas las filas, reserva un bloque de numeración para las válidas y crea
// cada una en su propia transacción. Un error de fila no detiene el lote.
// Devuelve domain.ErrBatchFailed (junto con el resultado) solo si ninguna fila se creó.
func (b *BulkIntake) CreateRows(ctx context.Context, tenantID, userID string, rows []BulkRow) (*dto.BulkCreateShipmentsResponse, error) {
	if len(rows) == 0 {
		return nil, domain.Invalid("items no puede estar vacío")
	}
	uc := b.shipments
	resp := &dto.BulkCreateShipmentsResponse{
		Errors:  []dto.BulkRowError{},
		Created: []dto.ShipmentResponse{},
	}

	valid := make([]int, 0, len(rows))
	for i, row := range rows {
		err := row.Err
		if err == nil {
			err = validateCreate(row.Item)
		}
		if err != nil {
			resp.Errors = append(resp.Errors, dto.BulkRowError{Row: i + 1, Error: err.Error()})
			continue
		}
		valid = append(valid, i)
	}

	if len(valid) > 0 {
		var base int64
		err := uc.txRunner.Run(ctx, func(r repository.Repos) error {
			var err error
			base, err = r.Sequences.Reserve(ctx, tenantID, uc.cfg.Prefix, len(valid))
			return err
		})
		if err != nil {
			return nil, err
		}

		now := uc.now()
		for n, i := range valid {
			numero := FormatNumero(uc.cfg.Prefix, uc.cfg.Padding, base+int64(n))
			var created *entity.Shipment
			err := uc.txRunner.Run(ctx, func(r repository.Repos) error {
				s := uc.newShipment(tenantID, numero, rows[i].Item, now)
				if err := uc.insertWithOpeningEvent(ctx, r, s, userID); err != nil {
					return err
				}
				created = s
				return nil
			})
			if err != nil {
				uc.log.Tenant(tenantID).Warn().Err(err).Int("row", i+1).Str("numero", numero).Msg("fila de carga masiva no creada")
				resp.Errors = append(resp.Errors, dto.BulkRowError{Row: i + 1, Error: err.Error()})
				continue
			}
			resp.Created = append(resp.Created, *toShipmentResponse(&entity.ShipmentSummary{Shipment: *created}))
		}
	}

	resp.CreatedCount = len(resp.Created)
	sortRowErrors(resp.Errors)
	metrics.ShipmentsCreatedTotal.WithLabelValues("bulk").Add(float64(resp.CreatedCount))
	uc.log.Tenant(tenantID).Info().Int("rows", len(rows)).Int("created", resp.CreatedCount).Int("errors", len(resp.Errors)).Msg("carga masiva procesada")
	if resp.CreatedCount == 0 {
		return resp, domain.ErrBatchFailed
	}
	return resp, nil
}

func sortRowErrors(errs []dto.BulkRowError) {
	slices.SortStableFunc(errs, func(a, b dto.BulkRowError) int { return cmp.Compare(a.Row, b.Row) })
}
