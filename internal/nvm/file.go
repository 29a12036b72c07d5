package nvm

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// dirPermissions is the permission mode for the region's directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the region file.
	filePermissions = 0600
)

// File is a Region backed by a pre-sized file. Every write is followed by
// an fsync so a successful WriteAt survives power loss.
type File struct {
	mu   sync.Mutex
	f    *os.File
	path string
	size int64
}

// OpenFile opens or creates the region file at path. A missing or short
// file is extended with zero bytes to size; a longer file is left as is
// and only its first size bytes are addressable.
func OpenFile(path string, size int64) (*File, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating nvm directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, filePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening nvm file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("stat nvm file: %w", err)
	}

	if info.Size() < size {
		if err := f.Truncate(size); err != nil {
			f.Close() //nolint:errcheck // Best effort cleanup on error path
			return nil, fmt.Errorf("sizing nvm file: %w", err)
		}
		if err := f.Sync(); err != nil {
			f.Close() //nolint:errcheck // Best effort cleanup on error path
			return nil, fmt.Errorf("syncing nvm file: %w", err)
		}
	}

	return &File{f: f, path: path, size: size}, nil
}

// ReadAt reads len(p) bytes at off.
func (r *File) ReadAt(p []byte, off int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		return 0, ErrClosed
	}
	if err := checkRange(off, len(p), r.size); err != nil {
		return 0, err
	}

	n, err := r.f.ReadAt(p, off)
	if err != nil {
		return n, fmt.Errorf("reading nvm file: %w", err)
	}
	return n, nil
}

// WriteAt writes p at off and syncs the file.
func (r *File) WriteAt(p []byte, off int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		return 0, ErrClosed
	}
	if err := checkRange(off, len(p), r.size); err != nil {
		return 0, err
	}

	n, err := r.f.WriteAt(p, off)
	if err != nil {
		return n, fmt.Errorf("writing nvm file: %w", err)
	}
	if err := r.f.Sync(); err != nil {
		return n, fmt.Errorf("syncing nvm file: %w", err)
	}
	return n, nil
}

// Size returns the addressable length in bytes.
func (r *File) Size() int64 {
	return r.size
}

// Path returns the backing file path.
func (r *File) Path() string {
	return r.path
}

// Close closes the backing file. Further access returns ErrClosed.
func (r *File) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	if err != nil {
		return fmt.Errorf("closing nvm file: %w", err)
	}
	return nil
}
