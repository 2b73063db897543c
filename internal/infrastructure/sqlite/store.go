// Package sqlite implementa el kardex sobre SQLite (driver modernc, sin cgo) para instalaciones
// de una sola sede.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jhoicas/epp-kardex/internal/application/inventory"
	"github.com/jhoicas/epp-kardex/internal/domain"
	"github.com/jhoicas/epp-kardex/internal/domain/repository"
)

//go:embed schema.sql
var schema string

var _ inventory.TxRunner = (*Store)(nil)

// querier es lo común entre *sql.DB y *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store abre la base y serializa las transacciones de escritura. SQLite admite un solo escritor;
// el mutex evita SQLITE_BUSY en vez de reintentar.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open abre (o crea) la base en path. ":memory:" sirve para tests.
func Open(ctx context.Context, path string, migrate bool) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &Store{db: db}
	if migrate {
		if _, err := db.ExecContext(ctx, schema); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return s, nil
}

// Close cierra la base.
func (s *Store) Close() error { return s.db.Close() }

// Ping verifica que la base responda.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// DB expone la conexión (carga de catálogo, tests).
func (s *Store) DB() *sql.DB { return s.db }

// Movements repositorio de movimientos fuera de transacción.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{q: s.db} }

// Stocks repositorio de saldos fuera de transacción.
func (s *Store) Stocks() *StockRepo { return &StockRepo{q: s.db} }

// Catalog repositorio de catálogo.
func (s *Store) Catalog() *CatalogRepo { return &CatalogRepo{q: s.db} }

// Run ejecuta fn dentro de una transacción; Commit si fn no devuelve error.
func (s *Store) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	stockRepo repository.StockRepository,
) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&MovementRepo{q: tx}, &StockRepo{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func mapWriteError(op string, err error) error {
	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%s: %w", op, domain.ErrConflict)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return domain.NewConstraintError(op, "", "referencia inexistente")
		}
		// Sin códigos extendidos solo llega SQLITE_CONSTRAINT.
		if se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			switch msg := se.Error(); {
			case strings.Contains(msg, "UNIQUE"):
				return fmt.Errorf("%s: %w", op, domain.ErrConflict)
			case strings.Contains(msg, "FOREIGN KEY"):
				return domain.NewConstraintError(op, "", "referencia inexistente")
			}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func micros(t time.Time) int64 { return t.UTC().Truncate(time.Microsecond).UnixMicro() }

func fromMicros(v int64) time.Time { return time.UnixMicro(v).UTC() }

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
