package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/epp-kardex/internal/application/inventory"
)

var expectedHeader = []string{"epp", "talla", "cantidad"}

// readRows lee el CSV exportado de la hoja de inventario: epp;talla;cantidad.
// Excel en español exporta en Windows-1252, de ahí latin1.
func readRows(r io.Reader, latin1 bool) ([]inventory.SeedRow, error) {
	if latin1 {
		r = transform.NewReader(r, charmap.Windows1252.NewDecoder())
	}
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("leer CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("el CSV debe tener cabecera y al menos una fila")
	}
	header := records[0]
	if len(header) != len(expectedHeader) {
		return nil, fmt.Errorf("cabecera esperada %v, recibida %v", expectedHeader, header)
	}
	for i, h := range header {
		if !strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), expectedHeader[i]) {
			return nil, fmt.Errorf("cabecera esperada %v, recibida %v", expectedHeader, header)
		}
	}

	rows := make([]inventory.SeedRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != len(expectedHeader) {
			return nil, fmt.Errorf("fila %d: se esperaban %d columnas, hay %d", i+2, len(expectedHeader), len(rec))
		}
		qty := strings.TrimSpace(rec[2])
		if qty == "" {
			qty = "0"
		}
		n, err := strconv.ParseInt(qty, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("fila %d: cantidad %q no es un entero", i+2, rec[2])
		}
		rows = append(rows, inventory.SeedRow{ItemName: rec[0], Size: rec[1], Quantity: n})
	}
	return rows, nil
}
