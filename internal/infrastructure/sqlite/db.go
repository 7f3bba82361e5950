// Package sqlite es el almacenamiento embebido del ledger (DB_DRIVER=sqlite):
// desarrollo local, demos y pruebas de integración sin PostgreSQL.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Querier es lo común entre *sql.DB y *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
  id              TEXT    PRIMARY KEY,
  owner_id        TEXT    NOT NULL,
  sku             TEXT    NOT NULL,
  name            TEXT    NOT NULL,
  barcode         TEXT,
  current_stock   INTEGER NOT NULL DEFAULT 0 CHECK (current_stock >= 0),
  min_stock_level INTEGER NOT NULL DEFAULT 0 CHECK (min_stock_level >= 0),
  created_at      INTEGER NOT NULL,
  updated_at      INTEGER NOT NULL,
  UNIQUE (owner_id, sku)
);
CREATE INDEX IF NOT EXISTS idx_products_owner_barcode ON products(owner_id, barcode);

CREATE TABLE IF NOT EXISTS inventory_logs (
  seq             INTEGER PRIMARY KEY AUTOINCREMENT,
  id              TEXT    NOT NULL UNIQUE,
  product_id      TEXT    NOT NULL REFERENCES products(id),
  type            TEXT    NOT NULL CHECK (type IN ('in', 'out', 'stocktake')),
  quantity        INTEGER NOT NULL,
  quantity_change INTEGER NOT NULL,
  stock_after     INTEGER NOT NULL,
  reference       TEXT    NOT NULL DEFAULT '',
  notes           TEXT    NOT NULL DEFAULT '',
  created_by      TEXT    NOT NULL,
  created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_inventory_logs_product_created ON inventory_logs(product_id, created_at, seq);
`

// Open abre (o crea) la base y aplica el esquema.
// Una sola conexión abierta; las transacciones toman el lock de escritura al empezar (_txlock=immediate).
func Open(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return db, nil
}

func isUniqueViolation(err error) bool {
	return hasCode(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE, "UNIQUE constraint failed")
}

func isCheckViolation(err error) bool {
	return hasCode(err, sqlite3.SQLITE_CONSTRAINT_CHECK, "CHECK constraint failed")
}

func hasCode(err error, code int, text string) bool {
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) && sqlErr.Code() == code {
		return true
	}
	return strings.Contains(err.Error(), text)
}

// Tiempos como nanosegundos Unix (UTC).
func toUnix(t time.Time) int64 { return t.UTC().UnixNano() }

func fromUnix(n int64) time.Time { return time.Unix(0, n).UTC() }

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
