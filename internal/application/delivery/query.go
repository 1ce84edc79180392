package delivery

import (
	"context"

	"github.com/jhoicas/Envios-api/internal/application/dto"
	"github.com/jhoicas/Envios-api/internal/domain"
	"github.com/jhoicas/Envios-api/internal/domain/entity"
)

// Get devuelve un intento de entrega con el estado actual de sus efectos secundarios.
func (uc *DeliveryUseCase) Get(ctx context.Context, tenantID, id string) (*dto.ConfirmDeliveryResponse, error) {
	d, err := uc.repos.Deliveries.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, domain.ErrNotFound
	}
	tasks, err := uc.repos.Tasks.ListByDelivery(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return &dto.ConfirmDeliveryResponse{
		Delivery:    toDeliveryResponse(d),
		SideEffects: toSideEffects(tasks),
		Consistent:  allDone(tasks),
	}, nil
}

// List lista intentos del más reciente al más antiguo, opcionalmente de un solo envío.
func (uc *DeliveryUseCase) List(ctx context.Context, tenantID, shipmentID string, page dto.PageRequest) (*dto.DeliveryListResponse, error) {
	page.Normalize()
	list, err := uc.repos.Deliveries.List(ctx, tenantID, shipmentID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.DeliveryResponse, 0, len(list))
	for _, d := range list {
		items = append(items, toDeliveryResponse(d))
	}
	return &dto.DeliveryListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: len(items)},
	}, nil
}

func toDeliveryResponse(d *entity.Delivery) dto.DeliveryResponse {
	return dto.DeliveryResponse{
		ID:            d.ID,
		ShipmentID:    d.ShipmentID,
		RouteStopID:   d.RouteStopID,
		State:         string(d.State),
		DeliveredAt:   d.DeliveredAt,
		SignedBy:      d.SignedBy,
		ProofURL:      d.ProofURL,
		Location:      d.Location,
		Lat:           d.Lat,
		Lng:           d.Lng,
		Notes:         d.Notes,
		FailureReason: d.FailureReason,
		UserID:        d.UserID,
		CreatedAt:     d.CreatedAt,
	}
}

func toSideEffects(tasks []*entity.DeliveryTask) []dto.SideEffectResponse {
	out := make([]dto.SideEffectResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, dto.SideEffectResponse{
			Step:     string(t.Step),
			Status:   string(t.Status),
			Attempts: t.Attempts,
			Error:    t.LastError,
		})
	}
	return out
}
