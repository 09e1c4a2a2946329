// Package journal persists framed records flowing through the journal stage.
// A Strategy owns the storage backend; the Writer layers batch flushing on
// top. The stage treats records as opaque bytes.
package journal

import (
	"fmt"

	"github.com/velostream/velostream/internal/runtime/config"
	errs "github.com/velostream/velostream/internal/runtime/errors"
)

// Strategy is a journalling backend. Implementations are used from a single
// stage thread; they do not need to be concurrency-safe.
type Strategy interface {
	Open() error
	Write(p []byte) (int, error)
	Flush() error
	Close() error
}

// ByName builds the strategy selected by the configuration. The config must
// have been normalized and validated.
func ByName(cfg *config.Config) (Strategy, error) {
	switch cfg.JournalStrategy {
	case config.JournalStrategySeek:
		return NewSeek(cfg.JournalDir, cfg.JournalFileSize, cfg.JournalPageSize, cfg.JournalCount), nil
	case config.JournalStrategyPositional:
		return NewPositional(cfg.JournalDir, cfg.JournalFileSize, cfg.JournalPageSize, cfg.JournalCount), nil
	case config.JournalStrategySQLite:
		return NewSQLite(cfg.SQLiteFile), nil
	default:
		return nil, fmt.Errorf("velostream: unknown journal strategy %q", cfg.JournalStrategy)
	}
}

// Writer hands records to a strategy and honours the flushing toggle: when
// flushing is disabled, Flush is a no-op and durability is left to the
// backend.
type Writer struct {
	strategy Strategy
	flushing bool
}

// NewWriter wraps a strategy. A nil strategy is a usage error and panics.
func NewWriter(strategy Strategy, flushingEnabled bool) *Writer {
	if strategy == nil {
		panic(errs.ErrJournallingRequired)
	}
	return &Writer{strategy: strategy, flushing: flushingEnabled}
}

// Write persists one framed record.
func (w *Writer) Write(p []byte) error {
	n, err := w.strategy.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return fmt.Errorf("velostream: short journal write: %d of %d bytes", n, len(p))
	}
	return nil
}

// Flush commits the current batch when flushing is enabled.
func (w *Writer) Flush() error {
	if !w.flushing {
		return nil
	}
	return w.strategy.Flush()
}

// Close releases the underlying strategy.
func (w *Writer) Close() error {
	return w.strategy.Close()
}
