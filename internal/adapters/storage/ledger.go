package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alejandrodnm/easel/internal/domain"
)

// InsertTrade añade un trade al ledger y devuelve su ID.
func (s *SQLiteStorage) InsertTrade(ctx context.Context, rec domain.TradeRecord) (int64, error) {
	var outcome sql.NullFloat64
	if rec.Outcome != nil {
		outcome = sql.NullFloat64{Float64: *rec.Outcome, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (timestamp, asset, action, amount, outcome, reasoning)
		VALUES (?, ?, ?, ?, ?, ?)
	`, formatTime(rec.Timestamp), rec.Asset, string(rec.Action), rec.Amount, outcome, rec.Reasoning)
	if err != nil {
		return 0, fmt.Errorf("storage.InsertTrade: insert %s: %w", rec.Asset, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage.InsertTrade: last id: %w", err)
	}
	return id, nil
}

// UpdateOutcome fija el resultado de un trade. Devuelve domain.ErrNotFound si no existe.
func (s *SQLiteStorage) UpdateOutcome(ctx context.Context, id int64, outcome float64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE trades SET outcome = ? WHERE id = ?`, outcome, id)
	if err != nil {
		return fmt.Errorf("storage.UpdateOutcome: update %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage.UpdateOutcome: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("storage.UpdateOutcome: trade %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// TradesByAsset devuelve los trades del activo en orden de inserción.
func (s *SQLiteStorage) TradesByAsset(ctx context.Context, asset string) ([]domain.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, asset, action, amount, outcome, reasoning
		FROM trades
		WHERE asset = ?
		ORDER BY id ASC
	`, asset)
	if err != nil {
		return nil, fmt.Errorf("storage.TradesByAsset: query %s: %w", asset, err)
	}
	defer rows.Close()

	var recs []domain.TradeRecord
	for rows.Next() {
		var r domain.TradeRecord
		var ts, action string
		var outcome sql.NullFloat64
		if err := rows.Scan(&r.ID, &ts, &r.Asset, &action, &r.Amount, &outcome, &r.Reasoning); err != nil {
			return nil, fmt.Errorf("storage.TradesByAsset: scan row: %w", err)
		}
		r.Timestamp = parseTime(ts)
		r.Action = domain.Action(action)
		if outcome.Valid {
			o := outcome.Float64
			r.Outcome = &o
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// Assets devuelve los activos distintos presentes en el ledger.
func (s *SQLiteStorage) Assets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT asset FROM trades ORDER BY asset`)
	if err != nil {
		return nil, fmt.Errorf("storage.Assets: query: %w", err)
	}
	defer rows.Close()

	var assets []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("storage.Assets: scan row: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}
