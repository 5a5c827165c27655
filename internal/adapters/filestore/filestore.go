// Package filestore persiste contadores diarios e historia como ficheros JSON.
//
// Cada escritura va a un fichero temporal en el mismo directorio y se publica
// con rename, así un lector nunca ve un fichero a medio escribir.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/alejandrodnm/easel/internal/domain"
)

// Store implementa ports.CounterStore y ports.HistoryStore sobre un directorio.
//
// Layout:
//
//	<dir>/trade_counts_<YYYY-MM-DD>.json   {"overall": n, "assets": {...}}
//	<dir>/history_<SYMBOL>.json            [{timestamp, price, volume}, ...]
type Store struct {
	dir string
	mu  sync.Mutex // serializa read-modify-write dentro del proceso
}

// New crea el directorio si no existe.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore.New: mkdir %q: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// GetCounts devuelve {0, {}} si no existe el fichero del día.
func (s *Store) GetCounts(_ context.Context, date string) (domain.DayCounters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.readCounts(date)
	if err != nil {
		return domain.DayCounters{}, fmt.Errorf("filestore.GetCounts: %w", err)
	}
	return c, nil
}

// IncrementCounts lee, incrementa y reemplaza el fichero del día de forma atómica.
func (s *Store) IncrementCounts(_ context.Context, date, symbol string) (domain.DayCounters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.readCounts(date)
	if err != nil {
		return domain.DayCounters{}, fmt.Errorf("filestore.IncrementCounts: %w", err)
	}
	c = c.Increment(symbol)
	if err := writeJSONAtomic(s.countsPath(date), c); err != nil {
		return domain.DayCounters{}, fmt.Errorf("filestore.IncrementCounts: %w", err)
	}
	return c, nil
}

// ResetCounts escribe {0, {}} para la fecha.
func (s *Store) ResetCounts(_ context.Context, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeJSONAtomic(s.countsPath(date), domain.NewDayCounters()); err != nil {
		return fmt.Errorf("filestore.ResetCounts: %w", err)
	}
	return nil
}

// LoadHistory devuelve nil si el símbolo no tiene historia.
func (s *Store) LoadHistory(_ context.Context, symbol string) ([]domain.HistoryPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var points []domain.HistoryPoint
	if err := readJSON(s.historyPath(symbol), &points); err != nil {
		return nil, fmt.Errorf("filestore.LoadHistory: %w", err)
	}
	return points, nil
}

// SaveHistory reemplaza el fichero del símbolo.
func (s *Store) SaveHistory(_ context.Context, symbol string, points []domain.HistoryPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if points == nil {
		points = []domain.HistoryPoint{}
	}
	if err := writeJSONAtomic(s.historyPath(symbol), points); err != nil {
		return fmt.Errorf("filestore.SaveHistory: %w", err)
	}
	return nil
}

func (s *Store) readCounts(date string) (domain.DayCounters, error) {
	c := domain.NewDayCounters()
	if err := readJSON(s.countsPath(date), &c); err != nil {
		return domain.DayCounters{}, err
	}
	if c.Assets == nil {
		c.Assets = map[string]int{}
	}
	return c, nil
}

func (s *Store) countsPath(date string) string {
	return filepath.Join(s.dir, "trade_counts_"+safeName(date)+".json")
}

func (s *Store) historyPath(symbol string) string {
	return filepath.Join(s.dir, "history_"+safeName(strings.ToUpper(symbol))+".json")
}

// readJSON deja out intacto si el fichero no existe.
func readJSON(path string, out any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// writeJSONAtomic escribe en un temporal del mismo directorio, hace fsync y renombra.
func writeJSONAtomic(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op tras un rename correcto

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// safeName deja solo caracteres seguros para un nombre de fichero.
func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
