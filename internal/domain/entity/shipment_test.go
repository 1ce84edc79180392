package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Envios-api/internal/domain/entity"
)

func TestShipmentState_Transiciones(t *testing.T) {
	cases := []struct {
		from, to entity.ShipmentState
		ok       bool
	}{
		{entity.ShipmentPending, entity.ShipmentInTransit, true},
		{entity.ShipmentInTransit, entity.ShipmentOutForDelivery, true},
		{entity.ShipmentOutForDelivery, entity.ShipmentDelivered, true},
		{entity.ShipmentOutForDelivery, entity.ShipmentNotDelivered, true},
		{entity.ShipmentNotDelivered, entity.ShipmentOutForDelivery, true},
		{entity.ShipmentPending, entity.ShipmentDelivered, false},
		{entity.ShipmentDelivered, entity.ShipmentInTransit, false},
		{entity.ShipmentReturned, entity.ShipmentPending, false},
		{entity.ShipmentDelivered, entity.ShipmentDelivered, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s → %s", tc.from, tc.to)
	}
}

func TestParseShipmentState(t *testing.T) {
	st, ok := entity.ParseShipmentState("out_for_delivery")
	assert.True(t, ok)
	assert.Equal(t, entity.ShipmentOutForDelivery, st)

	_, ok = entity.ParseShipmentState("perdido")
	assert.False(t, ok)
}

func TestShipmentState_Terminal(t *testing.T) {
	assert.True(t, entity.ShipmentDelivered.Terminal())
	assert.True(t, entity.ShipmentReturned.Terminal())
	assert.False(t, entity.ShipmentNotDelivered.Terminal())
}

func TestIsDeliveryOutcome(t *testing.T) {
	assert.True(t, entity.IsDeliveryOutcome(entity.ShipmentPartial))
	assert.False(t, entity.IsDeliveryOutcome(entity.ShipmentInTransit))
}
