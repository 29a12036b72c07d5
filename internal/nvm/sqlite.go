package nvm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stagetwo/webgate/internal/infrastructure/database"
)

// opTimeout bounds each read or write against the database. Region calls
// carry no context, matching the storage primitive they model.
const opTimeout = 5 * time.Second

// SQLite is a Region stored as a BLOB row in the nvm_regions table.
// Writes are read-modify-write inside one transaction.
type SQLite struct {
	mu     sync.Mutex
	db     *database.DB
	name   string
	size   int64
	closed bool
}

// OpenSQLite opens the named region, creating a zero-filled row when none
// exists. A stored blob of a different length is resized to size, keeping
// the overlapping prefix. The nvm_regions table must already be migrated.
func OpenSQLite(ctx context.Context, db *database.DB, name string, size int64) (*SQLite, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	if name == "" {
		return nil, fmt.Errorf("nvm: region name is required")
	}

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		var data []byte
		err := tx.QueryRowContext(ctx, "SELECT data FROM nvm_regions WHERE name = ?", name).Scan(&data)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx,
				"INSERT INTO nvm_regions (name, data, updated_at) VALUES (?, ?, ?)",
				name, make([]byte, size), now())
			return err
		case err != nil:
			return err
		case int64(len(data)) == size:
			return nil
		}

		resized := make([]byte, size)
		copy(resized, data)
		_, err = tx.ExecContext(ctx,
			"UPDATE nvm_regions SET data = ?, updated_at = ? WHERE name = ?",
			resized, now(), name)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("opening nvm region %q: %w", name, err)
	}

	return &SQLite{db: db, name: name, size: size}, nil
}

// ReadAt reads len(p) bytes at off.
func (r *SQLite) ReadAt(p []byte, off int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, ErrClosed
	}
	if err := checkRange(off, len(p), r.size); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var data []byte
	if err := r.db.QueryRowContext(ctx, "SELECT data FROM nvm_regions WHERE name = ?", r.name).Scan(&data); err != nil {
		return 0, fmt.Errorf("reading nvm region %q: %w", r.name, err)
	}

	buf := make([]byte, r.size)
	copy(buf, data)
	return copy(p, buf[off:]), nil
}

// WriteAt writes p at off.
func (r *SQLite) WriteAt(p []byte, off int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, ErrClosed
	}
	if err := checkRange(off, len(p), r.size); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var data []byte
		if err := tx.QueryRowContext(ctx, "SELECT data FROM nvm_regions WHERE name = ?", r.name).Scan(&data); err != nil {
			return err
		}
		buf := make([]byte, r.size)
		copy(buf, data)
		copy(buf[off:], p)

		_, err := tx.ExecContext(ctx,
			"UPDATE nvm_regions SET data = ?, updated_at = ? WHERE name = ?",
			buf, now(), r.name)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("writing nvm region %q: %w", r.name, err)
	}
	return len(p), nil
}

// Size returns the region length in bytes.
func (r *SQLite) Size() int64 {
	return r.size
}

// Close detaches the region. The database itself stays open.
func (r *SQLite) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
