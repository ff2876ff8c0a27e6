// Package storage is the key/value persistence surface presets are written
// through. Each gateway is scoped to one workspace and stores one string blob
// per key; writes replace the blob wholesale.
package storage

import (
	"fmt"
	"sync"

	"github.com/CrazyForks/tiny-svg/config"
)

// Gateway reads and writes whole serialized blobs.
type Gateway interface {
	// Read returns the stored blob, or false when the key was never written
	// or the backing store is unavailable.
	Read(key string) (string, bool)
	// Write replaces the blob stored under key.
	Write(key, value string) error
}

// Memory is a map-backed Gateway.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Read(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *Memory) Write(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Open builds the gateway selected by cfg. The returned close func releases
// any underlying handle and is never nil.
func Open(cfg config.StorageConfig) (Gateway, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case "memory":
		return NewMemory(), noop, nil
	case "file":
		fg, err := NewFile(cfg.Path, cfg.Workspace)
		if err != nil {
			return nil, noop, err
		}
		return fg, noop, nil
	case "sqlite":
		sg, err := OpenSQLite(cfg.Path, cfg.Workspace)
		if err != nil {
			return nil, noop, err
		}
		return sg, sg.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
