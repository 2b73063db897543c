// import_stock carga el stock inicial de un proyecto desde la hoja de inventario exportada a CSV.
// Registra ajustes positivos con la referencia indicada; repetir la misma referencia no hace nada.
//
// Uso: go run ./cmd/import_stock -project OBRA-01 -location ALM-01 -ref INV-2026-03 -file inventario.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/epp-kardex/internal/application/inventory"
	"github.com/jhoicas/epp-kardex/internal/infrastructure/ledger"
	"github.com/jhoicas/epp-kardex/pkg/config"
	"github.com/jhoicas/epp-kardex/pkg/logger"
)

func main() {
	var (
		project  = flag.String("project", "", "Código de proyecto")
		location = flag.String("location", "", "Código de ubicación")
		ref      = flag.String("ref", "", "Referencia de la carga (idempotencia)")
		file     = flag.String("file", "inventario.csv", "CSV epp;talla;cantidad")
		latin1   = flag.Bool("latin1", true, "El CSV viene en Windows-1252 (exportado de Excel)")
		at       = flag.String("at", "", "Fecha efectiva RFC3339 (vacío = ahora)")
		actor    = flag.String("actor", "import_stock", "Usuario que registra la carga")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, App: "import_stock"})

	f, err := os.Open(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	rows, err := readRows(f, *latin1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", *file, err)
		os.Exit(1)
	}

	in := inventory.SeedInput{
		ProjectCode:  *project,
		LocationCode: *location,
		Reference:    *ref,
		Actor:        *actor,
		Notes:        "carga desde " + *file,
		Rows:         rows,
	}
	if *at != "" {
		t, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Fecha -at inválida: %v\n", err)
			os.Exit(1)
		}
		in.OccurredAt = t
	}

	ctx := context.Background()
	l, err := ledger.Open(ctx, cfg, log.Component("ledger"))
	if err != nil {
		log.Fatal().Err(err).Msg("abrir kardex")
	}
	defer l.Close()

	aggregator := inventory.NewStockAggregator(l.Movements, l.Stocks, l.Catalog)
	validator := inventory.NewValidator(l.Catalog, aggregator)
	seed := inventory.NewSeedUseCase(l.TxRunner, l.Catalog, validator, log.Component("seed"))

	res, err := seed.Seed(ctx, in)
	if err != nil {
		log.Error().Err(err).Str("reference", *ref).Msg("carga rechazada")
		os.Exit(1)
	}
	if res.Skipped {
		fmt.Printf("Referencia %s ya cargada: sin cambios\n", res.Reference)
		return
	}
	fmt.Printf("Referencia %s: %d ajustes registrados\n", res.Reference, res.Inserted)
}
