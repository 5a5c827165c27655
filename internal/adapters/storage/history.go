package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/alejandrodnm/easel/internal/domain"
)

// LoadHistory devuelve el buffer del símbolo, de más antiguo a más reciente.
// Los símbolos no distinguen mayúsculas.
func (s *SQLiteStorage) LoadHistory(ctx context.Context, symbol string) ([]domain.HistoryPoint, error) {
	symbol = strings.ToUpper(symbol)
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, price, volume
		FROM history_points
		WHERE symbol = ?
		ORDER BY seq ASC
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadHistory: query %s: %w", symbol, err)
	}
	defer rows.Close()

	var points []domain.HistoryPoint
	for rows.Next() {
		var ts string
		var p domain.HistoryPoint
		if err := rows.Scan(&ts, &p.Price, &p.Volume); err != nil {
			return nil, fmt.Errorf("storage.LoadHistory: scan row: %w", err)
		}
		p.Timestamp = parseTime(ts)
		points = append(points, p)
	}
	return points, rows.Err()
}

// SaveHistory reemplaza el buffer del símbolo dentro de una transacción.
func (s *SQLiteStorage) SaveHistory(ctx context.Context, symbol string, points []domain.HistoryPoint) error {
	symbol = strings.ToUpper(symbol)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveHistory: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM history_points WHERE symbol = ?`, symbol); err != nil {
		return fmt.Errorf("storage.SaveHistory: clear %s: %w", symbol, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO history_points (symbol, seq, timestamp, price, volume)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveHistory: prepare: %w", err)
	}
	defer stmt.Close()

	for i, p := range points {
		if _, err := stmt.ExecContext(ctx, symbol, i, formatTime(p.Timestamp), p.Price, p.Volume); err != nil {
			return fmt.Errorf("storage.SaveHistory: insert %s[%d]: %w", symbol, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveHistory: commit: %w", err)
	}
	return nil
}
