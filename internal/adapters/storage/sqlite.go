package storage

// sqlite.go — estado persistente del agente en un único fichero SQLite.
//
// Tablas:
//   - `trades`: ledger append-only del learning layer. outcome es NULL hasta la liquidación.
//   - `day_totals` + `day_assets`: contadores diarios. Se actualizan juntos dentro de
//     una transacción para que overall == Σ assets se cumpla siempre en disco.
//   - `history_points`: buffer acotado de observaciones por símbolo (seq 0 = más antigua).
//   - Prune automático al arrancar: contadores de más de 90 días.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
-- Ledger de trades: id monotónico, outcome liquidable más tarde
CREATE TABLE IF NOT EXISTS trades (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp TEXT    NOT NULL,
    asset     TEXT    NOT NULL,
    action    TEXT    NOT NULL,
    amount    REAL    NOT NULL DEFAULT 0,
    outcome   REAL,
    reasoning TEXT    NOT NULL DEFAULT ''
);

-- Contadores diarios (fecha UTC YYYY-MM-DD)
CREATE TABLE IF NOT EXISTS day_totals (
    date    TEXT PRIMARY KEY,
    overall INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS day_assets (
    date  TEXT    NOT NULL,
    asset TEXT    NOT NULL,
    count INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (date, asset)
);

-- Buffer de historia por símbolo, máx HistoryCapacity filas
CREATE TABLE IF NOT EXISTS history_points (
    symbol    TEXT    NOT NULL,
    seq       INTEGER NOT NULL,
    timestamp TEXT    NOT NULL,
    price     REAL    NOT NULL DEFAULT 0,
    volume    REAL    NOT NULL DEFAULT 0,
    PRIMARY KEY (symbol, seq)
);

CREATE INDEX IF NOT EXISTS idx_trades_asset ON trades(asset, id);
`

const retentionCounters = 90 * 24 * time.Hour

// SQLiteStorage implementa ports.CounterStore, ports.HistoryStore y ports.Ledger
// usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia contadores antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina contadores de días antiguos para mantener la DB ligera.
// El ledger y la historia no se podan: el ledger alimenta las estadísticas
// y la historia ya está acotada por símbolo.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionCounters).Format("2006-01-02")
	s.db.ExecContext(ctx, `DELETE FROM day_assets WHERE date < ?`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM day_totals WHERE date < ?`, cutoff)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
