package nvm

import (
	"sync"
)

// Memory is a volatile Region backed by a byte slice.
type Memory struct {
	mu     sync.RWMutex
	buf    []byte
	closed bool
}

// NewMemory returns a zero-filled region of size bytes.
func NewMemory(size int64) (*Memory, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	return &Memory{buf: make([]byte, size)}, nil
}

// ReadAt copies len(p) bytes starting at off into p.
func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrClosed
	}
	if err := checkRange(off, len(p), int64(len(m.buf))); err != nil {
		return 0, err
	}
	return copy(p, m.buf[off:]), nil
}

// WriteAt copies p into the region starting at off.
func (m *Memory) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	if err := checkRange(off, len(p), int64(len(m.buf))); err != nil {
		return 0, err
	}
	return copy(m.buf[off:], p), nil
}

// Size returns the region length in bytes.
func (m *Memory) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.buf))
}

// Close marks the region closed. Contents are discarded.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.buf = nil
	return nil
}
