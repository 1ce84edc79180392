// Package importer lee archivos de carga masiva de envíos (XLSX o CSV) y los convierte en filas
// para la carga masiva. La primera fila es el encabezado; el orden de las columnas es libre.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/Envios-api/internal/application/dto"
	"github.com/jhoicas/Envios-api/internal/application/shipping"
	"github.com/jhoicas/Envios-api/internal/domain"
)

// ErrUnsupportedFormat extensión distinta de .xlsx o .csv.
var ErrUnsupportedFormat = errors.New("formato de archivo no soportado (use .xlsx o .csv)")

// Encabezados aceptados por columna (en minúsculas, sin espacios alrededor).
var headerAliases = map[string]string{
	"origin":             "origin",
	"origen":             "origin",
	"destination":        "destination",
	"destino":            "destination",
	"recipient":          "recipient",
	"destinatario":       "recipient",
	"tracking_code":      "tracking_code",
	"guia":               "tracking_code",
	"guía":               "tracking_code",
	"carrier_id":         "carrier_id",
	"transportadora":     "carrier_id",
	"route_id":           "route_id",
	"ruta":               "route_id",
	"weight":             "weight",
	"peso":               "weight",
	"pieces":             "pieces",
	"piezas":             "pieces",
	"estimated_delivery": "estimated_delivery",
	"entrega_estimada":   "estimated_delivery",
}

var requiredColumns = []string{"origin", "destination", "recipient"}

// Parse elige el lector por extensión. charset "latin1" o "iso-8859-1" aplica solo a CSV.
func Parse(filename string, r io.Reader, charset string) ([]shipping.BulkRow, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return ParseXLSX(r)
	case ".csv":
		return ParseCSV(r, isLatin1(charset))
	default:
		return nil, ErrUnsupportedFormat
	}
}

func isLatin1(charset string) bool {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return true
	}
	return false
}

// ParseCSV lee un CSV separado por comas o punto y coma. latin1 decodifica ISO-8859-1.
func ParseCSV(r io.Reader, latin1 bool) ([]shipping.BulkRow, error) {
	if latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("leer CSV: %w", err)
	}
	text := strings.TrimPrefix(string(data), "\ufeff")

	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	if first, _, _ := strings.Cut(text, "\n"); strings.Count(first, ";") > strings.Count(first, ",") {
		cr.Comma = ';'
	}
	records, err := cr.ReadAll()
	if err != nil {
		return nil, domain.Invalid("CSV mal formado: %v", err)
	}
	return fromRecords(records)
}

// ParseXLSX lee la primera hoja del libro.
func ParseXLSX(r io.Reader) ([]shipping.BulkRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.Invalid("XLSX inválido: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.Invalid("el libro no tiene hojas")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("leer hoja %s: %w", sheets[0], err)
	}
	return fromRecords(records)
}

func fromRecords(records [][]string) ([]shipping.BulkRow, error) {
	if len(records) == 0 {
		return nil, domain.Invalid("el archivo está vacío")
	}
	cols := map[string]int{}
	for i, h := range records[0] {
		if name, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, dup := cols[name]; !dup {
				cols[name] = i
			}
		}
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, domain.Invalid("falta la columna %s", name)
		}
	}

	rows := make([]shipping.BulkRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		item, err := toRequest(rec, cols)
		rows = append(rows, shipping.BulkRow{Item: item, Err: err})
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func toRequest(rec []string, cols map[string]int) (dto.CreateShipmentRequest, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	req := dto.CreateShipmentRequest{
		Origin:       get("origin"),
		Destination:  get("destination"),
		Recipient:    get("recipient"),
		TrackingCode: get("tracking_code"),
	}
	if v := get("carrier_id"); v != "" {
		req.CarrierID = &v
	}
	if v := get("route_id"); v != "" {
		req.RouteID = &v
	}
	if v := get("weight"); v != "" {
		w, err := decimal.NewFromString(strings.ReplaceAll(v, ",", "."))
		if err != nil {
			return req, domain.Invalid("weight inválido: %q", v)
		}
		req.Weight = &w
	}
	if v := get("pieces"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, domain.Invalid("pieces inválido: %q", v)
		}
		req.Pieces = &n
	}
	if v := get("estimated_delivery"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return req, domain.Invalid("estimated_delivery inválido: %q", v)
		}
		req.EstimatedDelivery = &t
	}
	return req, nil
}

func parseDate(v string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("fecha %q", v)
}
