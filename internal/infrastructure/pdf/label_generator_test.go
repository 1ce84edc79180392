package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Envios-api/internal/application/dto"
)

func TestShipmentLabel(t *testing.T) {
	eta := time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC)
	g := NewMarotoLabelGenerator("https://envios.example.com/tracking/")

	out, err := g.ShipmentLabel(&dto.ShipmentResponse{
		Numero:            "ENV-000042",
		Origin:            "Bodega Norte",
		Destination:       "Calle 10 # 5-20, Bogotá",
		Recipient:         "Ana Pérez",
		CarrierName:       "Servientrega",
		Weight:            decimal.RequireFromString("2.5"),
		Pieces:            2,
		EstimatedDelivery: &eta,
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestQRData(t *testing.T) {
	s := &dto.ShipmentResponse{Numero: "ENV-000001"}
	assert.Equal(t, "ENV-000001", NewMarotoLabelGenerator("").qrData(s))
	assert.Equal(t, "https://x/t/ENV-000001", NewMarotoLabelGenerator("https://x/t/").qrData(s))
}
