// Package journal guarda el registro de auditoría de las ejecuciones como JSON lines.
package journal

import (
	"bufio"
	"context"
	cryptorand "crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alejandrodnm/easel/internal/domain"
	"github.com/oklog/ulid/v2"
)

// File implementa ports.Journal: una entrada por línea, solo append.
// Las entradas sin ID reciben un ULID monotónico (ordenable por tiempo).
type File struct {
	path    string
	mu      sync.Mutex
	entropy io.Reader
}

// NewFile crea el directorio padre si no existe. El fichero se abre en cada Append.
func NewFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal.NewFile: mkdir: %w", err)
	}

	var seed int64
	_ = binary.Read(cryptorand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &File{
		path:    path,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0),
	}, nil
}

// Path devuelve la ruta del fichero.
func (f *File) Path() string {
	return f.path
}

// Append escribe la entrada al final del fichero.
func (f *File) Append(_ context.Context, entry domain.JournalEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.ID == "" {
		id, err := ulid.New(ulid.Timestamp(entry.Timestamp), f.entropy)
		if err != nil {
			return fmt.Errorf("journal.Append: ulid: %w", err)
		}
		entry.ID = id.String()
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("journal.Append: encode: %w", err)
	}

	fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("journal.Append: open: %w", err)
	}
	if _, err := fh.Write(append(line, '\n')); err != nil {
		fh.Close()
		return fmt.Errorf("journal.Append: write: %w", err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("journal.Append: close: %w", err)
	}
	return nil
}

// ReadAll lee todas las entradas. Un fichero inexistente devuelve nil.
// Las entradas se devuelven en orden de escritura; Execution queda como JSON genérico.
func ReadAll(path string) ([]domain.JournalEntry, error) {
	fh, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("journal.ReadAll: open: %w", err)
	}
	defer fh.Close()

	var entries []domain.JournalEntry
	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for n := 1; sc.Scan(); n++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e domain.JournalEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("journal.ReadAll: line %d: %w", n, err)
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}
