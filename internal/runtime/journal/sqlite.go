package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite journals records as BLOB rows. Writes accumulate in one transaction
// per batch; Flush commits it. Use ":memory:" as the path for testing.
type SQLite struct {
	path string
	db   *sql.DB
	tx   *sql.Tx
	stmt *sql.Stmt
}

// NewSQLite builds a sqlite-backed journalling strategy at the given
// database path.
func NewSQLite(path string) *SQLite {
	return &SQLite{path: path}
}

func (s *SQLite) Open() error {
	dsn := s.path
	if dsn == ":memory:" {
		// A plain ":memory:" database is private to one connection; a named
		// shared-cache memory database is seen by every pooled connection.
		dsn = fmt.Sprintf("file:velostream-journal-%p?mode=memory&cache=shared", s)
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("velostream: sqlite journal: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS journal (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		record BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return fmt.Errorf("velostream: sqlite journal schema: %w", err)
	}
	s.db = db
	return s.begin()
}

func (s *SQLite) begin() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("velostream: sqlite journal tx: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO journal (record) VALUES (?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("velostream: sqlite journal stmt: %w", err)
	}
	s.tx, s.stmt = tx, stmt
	return nil
}

func (s *SQLite) Write(p []byte) (int, error) {
	if _, err := s.stmt.Exec(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush commits the batch transaction and opens the next one.
func (s *SQLite) Flush() error {
	s.stmt.Close()
	if err := s.tx.Commit(); err != nil {
		return err
	}
	return s.begin()
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	if s.stmt != nil {
		s.stmt.Close()
	}
	if s.tx != nil {
		s.tx.Commit()
	}
	err := s.db.Close()
	s.db, s.tx, s.stmt = nil, nil, nil
	return err
}
