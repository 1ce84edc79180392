// Package pdf genera la etiqueta de despacho de un envío.
//
// Layout (A6 vertical):
//
//	┌──────────────────────────────┐
//	│  REMITENTE / N° de envío     │
//	│  ──────────────────────────  │
//	│  DESTINATARIO + dirección    │
//	│  ──────────────────────────  │
//	│  Peso | Piezas | Entrega est.│
//	│  Código de barras (numero)   │
//	│  QR de seguimiento           │
//	└──────────────────────────────┘
package pdf

import (
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/Envios-api/internal/application/dto"
	"github.com/jhoicas/Envios-api/internal/application/shipping"
)

var _ shipping.LabelGenerator = (*MarotoLabelGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoLabelGenerator implementa shipping.LabelGenerator usando Maroto v2.
type MarotoLabelGenerator struct {
	trackingURL string
}

// NewMarotoLabelGenerator construye el generador. trackingURL es la base del enlace público
// que se codifica en el QR (se le concatena el numero); vacío codifica solo el numero.
func NewMarotoLabelGenerator(trackingURL string) *MarotoLabelGenerator {
	return &MarotoLabelGenerator{trackingURL: trackingURL}
}

// ShipmentLabel genera el PDF de la etiqueta y devuelve sus bytes.
func (g *MarotoLabelGenerator) ShipmentLabel(s *dto.ShipmentResponse) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A6).
		WithLeftMargin(6).WithRightMargin(6).
		WithTopMargin(6).WithBottomMargin(6).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Etiqueta "+s.Numero, true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(headerRow(s))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(recipientRow(s))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(detailsRow(s))
	m.AddRows(row.New(18).Add(col.New(12).Add(code.NewBar(s.Numero, props.Barcode{Percent: 90, Center: true}))))
	m.AddRows(row.New(36).Add(
		col.New(6).Add(code.NewQr(g.qrData(s), props.Rect{Percent: 95, Center: true})),
		col.New(6).Add(
			text.New("Escanea para seguir\ntu envío", props.Text{Size: 8, Top: 10, Left: 2, Color: colorGray}),
		),
	))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar etiqueta: %w", err)
	}
	return doc.GetBytes(), nil
}

func (g *MarotoLabelGenerator) qrData(s *dto.ShipmentResponse) string {
	if g.trackingURL == "" {
		return s.Numero
	}
	return g.trackingURL + s.Numero
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(s *dto.ShipmentResponse) core.Row {
	return row.New(16).Add(
		col.New(6).Add(
			text.New("REMITENTE", props.Text{Style: fontstyle.Bold, Size: 7, Color: colorPrimary, Top: 1}),
			text.New(s.Origin, props.Text{Size: 8, Top: 5}),
		),
		col.New(6).Add(
			text.New(s.Numero, props.Text{Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 1}),
			text.New(nonEmpty(s.CarrierName, ""), props.Text{Size: 7, Align: align.Right, Top: 8, Color: colorGray}),
		),
	)
}

func recipientRow(s *dto.ShipmentResponse) core.Row {
	return row.New(20).Add(
		col.New(12).Add(
			text.New("DESTINATARIO", props.Text{Style: fontstyle.Bold, Size: 7, Color: colorPrimary, Top: 1}),
			text.New(s.Recipient, props.Text{Style: fontstyle.Bold, Size: 11, Top: 5}),
			text.New(s.Destination, props.Text{Size: 9, Top: 12}),
		),
	)
}

func detailsRow(s *dto.ShipmentResponse) core.Row {
	estimated := "-"
	if s.EstimatedDelivery != nil {
		estimated = s.EstimatedDelivery.Format("02/01/2006")
	}
	cell := func(label, value string) core.Col {
		return col.New(4).Add(
			text.New(label, props.Text{Size: 6.5, Color: colorGray, Top: 1, Align: align.Center}),
			text.New(value, props.Text{Style: fontstyle.Bold, Size: 9, Top: 5, Align: align.Center}),
		)
	}
	return row.New(11).Add(
		cell("Peso (kg)", s.Weight.String()),
		cell("Piezas", fmt.Sprintf("%d", s.Pieces)),
		cell("Entrega est.", estimated),
	)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
