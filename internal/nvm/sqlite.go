// internal/nvm/sqlite.go
package nvm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// SQLite stores the image as one row per written byte. Missing rows read
// as Erased, so a fresh database is an erased memory.
type SQLite struct {
	db   *sql.DB
	size int
}

const sqliteOpTimeout = 5 * time.Second

// OpenSQLite opens or creates the database at dsn.
func OpenSQLite(dsn string, size int) (*SQLite, error) {
	if size <= 0 {
		return nil, fmt.Errorf("nvm sqlite: invalid size %d", size)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	// single writer
	db.SetMaxOpenConns(1)

	for _, p := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=FULL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("nvm sqlite: set %s: %w", p, err)
		}
	}

	schema := `
CREATE TABLE IF NOT EXISTS eeprom (
  pos   INTEGER PRIMARY KEY,
  value INTEGER NOT NULL CHECK(value BETWEEN 0 AND 255)
);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("nvm sqlite: schema: %w", err)
	}

	return &SQLite{db: db, size: size}, nil
}

func (m *SQLite) Size() int { return m.size }

func (m *SQLite) Load(off int) (byte, error) {
	if err := checkRange(m.size, off); err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()

	var v int64
	err := m.db.QueryRowContext(ctx, `SELECT value FROM eeprom WHERE pos = ?`, off).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return Erased, nil
	}
	if err != nil {
		return 0, fmt.Errorf("nvm sqlite: read %d: %w", off, err)
	}
	return byte(v), nil
}

func (m *SQLite) Store(off int, b byte) error {
	if err := checkRange(m.size, off); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()

	var err error
	if b == Erased {
		_, err = m.db.ExecContext(ctx, `DELETE FROM eeprom WHERE pos = ?`, off)
	} else {
		_, err = m.db.ExecContext(ctx,
			`INSERT INTO eeprom(pos, value) VALUES(?, ?)
			 ON CONFLICT(pos) DO UPDATE SET value = excluded.value`, off, int64(b))
	}
	if err != nil {
		return fmt.Errorf("nvm sqlite: write %d: %w", off, err)
	}
	return nil
}

func (m *SQLite) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}
