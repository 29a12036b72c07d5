package nvm

import (
	"context"
	"fmt"
	"io"

	"github.com/stagetwo/webgate/internal/infrastructure/config"
	"github.com/stagetwo/webgate/internal/infrastructure/database"
)

// Region is a fixed-size, byte-addressable non-volatile store.
//
// ReadAt and WriteAt follow io.ReaderAt and io.WriterAt, except that a
// short access is never partially applied: either all of p is in range
// or the call fails with ErrOutOfRange.
type Region interface {
	io.ReaderAt
	io.WriterAt
	io.Closer

	// Size returns the region length in bytes.
	Size() int64
}

// checkRange validates an access of n bytes at off against size.
func checkRange(off int64, n int, size int64) error {
	if off < 0 || int64(n) > size || off > size-int64(n) {
		return fmt.Errorf("%w: %d bytes at offset %d, region is %d bytes", ErrOutOfRange, n, off, size)
	}
	return nil
}

// Open creates the region selected by cfg.Backend. db is only used by the
// sqlite backend and may be nil otherwise.
func Open(ctx context.Context, cfg config.NVMConfig, db *database.DB) (Region, error) {
	size := int64(cfg.Size)

	switch cfg.Backend {
	case config.NVMBackendFile:
		return OpenFile(cfg.Path, size)
	case config.NVMBackendSQLite:
		if db == nil {
			return nil, fmt.Errorf("nvm: sqlite backend needs a database")
		}
		return OpenSQLite(ctx, db, cfg.Name, size)
	case config.NVMBackendMemory:
		return NewMemory(size)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
