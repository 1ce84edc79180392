// import_shipments carga envíos desde un archivo .csv o .xlsx directamente en PostgreSQL,
// con la misma validación por fila que POST /api/shipments/bulk/upload.
//
// Uso: go run ./cmd/import_shipments -tenant <id> [-user <id>] [-charset latin1] archivo.csv
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jhoicas/Envios-api/internal/application/shipping"
	"github.com/jhoicas/Envios-api/internal/application/tracking"
	"github.com/jhoicas/Envios-api/internal/domain"
	"github.com/jhoicas/Envios-api/internal/infrastructure/importer"
	"github.com/jhoicas/Envios-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Envios-api/pkg/config"
	"github.com/jhoicas/Envios-api/pkg/logger"
)

func main() {
	tenantID := flag.String("tenant", "", "tenant dueño de los envíos (obligatorio)")
	userID := flag.String("user", "", "usuario que figura en el evento de creación")
	charset := flag.String("charset", "", "latin1 para CSV en ISO-8859-1")
	flag.Parse()

	if *tenantID == "" || flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Uso: import_shipments -tenant <id> [-user <id>] [-charset latin1] archivo")
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir archivo: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	rows, err := importer.Parse(filepath.Base(path), f, *charset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer archivo: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Conexión a PostgreSQL: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	shipmentUC := shipping.NewShipmentUseCase(
		postgres.NewTxRunner(pool), postgres.NewRepos(pool),
		tracking.NewLedger(nil, log), nil,
		shipping.Config{
			Prefix:            cfg.Shipping.NumberPrefix,
			Padding:           cfg.Shipping.NumberPadding,
			StrictTransitions: cfg.Shipping.StrictTransitions,
		}, log)

	out, err := shipping.NewBulkIntake(shipmentUC).CreateRows(ctx, *tenantID, *userID, rows)
	if err != nil && !errors.Is(err, domain.ErrBatchFailed) {
		fmt.Fprintf(os.Stderr, "Carga masiva: %v\n", err)
		os.Exit(1)
	}

	for _, s := range out.Created {
		fmt.Printf("creado  %s  %s\n", s.Numero, s.Recipient)
	}
	for _, e := range out.Errors {
		fmt.Fprintf(os.Stderr, "fila %d: %s\n", e.Row, e.Error)
	}
	fmt.Printf("%d de %d filas creadas\n", out.CreatedCount, len(rows))
	if out.CreatedCount == 0 {
		os.Exit(1)
	}
}
