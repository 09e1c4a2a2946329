package journal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velostream/velostream/internal/runtime/config"
	errs "github.com/velostream/velostream/internal/runtime/errors"
)

func TestSeekWritesSequentially(t *testing.T) {
	dir := t.TempDir()
	s := NewSeek(dir, 1024, 256, 2)
	require.NoError(t, s.Open())
	defer s.Close()

	n, err := s.Write([]byte("first-record"))
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = s.Write([]byte("second-record"))
	require.NoError(t, err)
	require.NoError(t, s.Flush())

	data, err := os.ReadFile(filepath.Join(dir, "journal-0.dat"))
	require.NoError(t, err)
	assert.Equal(t, int64(1024), int64(len(data)), "file preallocated to full size")
	assert.Equal(t, "first-recordsecond-record", string(data[:25]))
}

func TestPositionalWritesSequentially(t *testing.T) {
	dir := t.TempDir()
	s := NewPositional(dir, 1024, 256, 2)
	require.NoError(t, s.Open())
	defer s.Close()

	_, err := s.Write([]byte("abc"))
	require.NoError(t, err)
	_, err = s.Write([]byte("def"))
	require.NoError(t, err)
	require.NoError(t, s.Flush())

	data, err := os.ReadFile(filepath.Join(dir, "journal-0.dat"))
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(data[:6]))
}

func TestFileJournalRotatesWhenFull(t *testing.T) {
	dir := t.TempDir()
	s := NewSeek(dir, 32, 16, 2)
	require.NoError(t, s.Open())
	defer s.Close()

	record := []byte("0123456789abcdef0123") // 20 bytes
	_, err := s.Write(record)
	require.NoError(t, err)

	// 20 more bytes do not fit in the 32-byte file: rotate to journal-1.
	_, err = s.Write(record)
	require.NoError(t, err)
	require.NoError(t, s.Flush())

	data, err := os.ReadFile(filepath.Join(dir, "journal-1.dat"))
	require.NoError(t, err)
	assert.Equal(t, string(record), string(data[:20]))
}

func TestFileJournalRefusesOversizedRecord(t *testing.T) {
	dir := t.TempDir()
	s := NewPositional(dir, 32, 16, 1)
	require.NoError(t, s.Open())
	defer s.Close()

	_, err := s.Write(make([]byte, 64))
	assert.Error(t, err)
}

func TestSQLiteJournalRoundTrip(t *testing.T) {
	s := NewSQLite(":memory:")
	require.NoError(t, s.Open())
	defer s.Close()

	for _, record := range []string{"one", "two", "three"} {
		n, err := s.Write([]byte(record))
		require.NoError(t, err)
		assert.Equal(t, len(record), n)
	}
	require.NoError(t, s.Flush())

	rows, err := s.db.Query(`SELECT record FROM journal ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()

	var got []string
	for rows.Next() {
		var record []byte
		require.NoError(t, rows.Scan(&record))
		got = append(got, string(record))
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"one", "two", "three"}, got)
}

func TestWriterFlushRespectsToggle(t *testing.T) {
	strategy := &recordingStrategy{}

	w := NewWriter(strategy, false)
	require.NoError(t, w.Write([]byte("x")))
	require.NoError(t, w.Flush())
	assert.Zero(t, strategy.flushes, "flushing disabled: Flush is a no-op")

	w = NewWriter(strategy, true)
	require.NoError(t, w.Flush())
	assert.Equal(t, 1, strategy.flushes)
}

func TestWriterNilStrategyPanics(t *testing.T) {
	assert.PanicsWithValue(t, errs.ErrJournallingRequired, func() { NewWriter(nil, true) })
}

func TestByName(t *testing.T) {
	cfg := (&config.Config{
		JournalEnabled:  true,
		JournalStrategy: config.JournalStrategySQLite,
		SQLiteFile:      ":memory:",
	}).Normalize()

	s, err := ByName(cfg)
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)

	cfg.JournalStrategy = config.JournalStrategyPositional
	cfg.JournalDir = t.TempDir()
	s, err = ByName(cfg)
	require.NoError(t, err)
	assert.IsType(t, &Positional{}, s)

	cfg.JournalStrategy = "bogus"
	_, err = ByName(cfg)
	assert.Error(t, err)
}

type recordingStrategy struct {
	writes  [][]byte
	flushes int
}

func (r *recordingStrategy) Open() error { return nil }

func (r *recordingStrategy) Write(p []byte) (int, error) {
	r.writes = append(r.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (r *recordingStrategy) Flush() error {
	r.flushes++
	return nil
}

func (r *recordingStrategy) Close() error { return nil }
