package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alejandrodnm/easel/internal/domain"
)

// GetCounts devuelve los contadores de la fecha, o {0, {}} si no hay fila.
func (s *SQLiteStorage) GetCounts(ctx context.Context, date string) (domain.DayCounters, error) {
	c, err := readCounts(ctx, s.db, date)
	if err != nil {
		return domain.DayCounters{}, fmt.Errorf("storage.GetCounts: %w", err)
	}
	return c, nil
}

// IncrementCounts suma 1 a overall y a assets[symbol] en una sola transacción.
func (s *SQLiteStorage) IncrementCounts(ctx context.Context, date, symbol string) (domain.DayCounters, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.DayCounters{}, fmt.Errorf("storage.IncrementCounts: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO day_totals (date, overall) VALUES (?, 1)
		ON CONFLICT(date) DO UPDATE SET overall = overall + 1
	`, date); err != nil {
		return domain.DayCounters{}, fmt.Errorf("storage.IncrementCounts: overall: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO day_assets (date, asset, count) VALUES (?, ?, 1)
		ON CONFLICT(date, asset) DO UPDATE SET count = count + 1
	`, date, symbol); err != nil {
		return domain.DayCounters{}, fmt.Errorf("storage.IncrementCounts: asset %s: %w", symbol, err)
	}

	c, err := readCounts(ctx, tx, date)
	if err != nil {
		return domain.DayCounters{}, fmt.Errorf("storage.IncrementCounts: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.DayCounters{}, fmt.Errorf("storage.IncrementCounts: commit: %w", err)
	}
	return c, nil
}

// ResetCounts borra los contadores de la fecha (equivale a {0, {}}).
func (s *SQLiteStorage) ResetCounts(ctx context.Context, date string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.ResetCounts: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM day_assets WHERE date = ?`, date); err != nil {
		return fmt.Errorf("storage.ResetCounts: assets: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM day_totals WHERE date = ?`, date); err != nil {
		return fmt.Errorf("storage.ResetCounts: overall: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.ResetCounts: commit: %w", err)
	}
	return nil
}

// querier es lo común entre *sql.DB y *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func readCounts(ctx context.Context, q querier, date string) (domain.DayCounters, error) {
	c := domain.NewDayCounters()

	err := q.QueryRowContext(ctx, `SELECT overall FROM day_totals WHERE date = ?`, date).Scan(&c.Overall)
	if errors.Is(err, sql.ErrNoRows) {
		return c, nil
	}
	if err != nil {
		return domain.DayCounters{}, fmt.Errorf("read overall %s: %w", date, err)
	}

	rows, err := q.QueryContext(ctx, `SELECT asset, count FROM day_assets WHERE date = ?`, date)
	if err != nil {
		return domain.DayCounters{}, fmt.Errorf("read assets %s: %w", date, err)
	}
	defer rows.Close()

	for rows.Next() {
		var asset string
		var n int
		if err := rows.Scan(&asset, &n); err != nil {
			return domain.DayCounters{}, fmt.Errorf("scan asset row: %w", err)
		}
		c.Assets[asset] = n
	}
	return c, rows.Err()
}
