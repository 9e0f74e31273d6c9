package files

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"
)

// FlagName is the persisted acknowledgement flag.
const FlagName = "forgaile.answered"

// ErrUnknownDriver is returned by Open for an unsupported backend name.
var ErrUnknownDriver = errors.New("files: unknown ack store driver")

// AckStore persists the acknowledgement flag per key.
type AckStore interface {
	Acknowledged(ctx context.Context, key string) (bool, error)
	SetAcknowledged(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
	Close() error
}

// Key scopes the flag to a visitor. An empty scope yields the bare flag name.
func Key(scope string) string {
	scope = strings.Trim(scope, "/")
	if scope == "" {
		return FlagName
	}
	return path.Join(scope, FlagName)
}

// Open selects a backend: "file" (JSON file at path), "sqlite" (database at path) or "memory".
func Open(driver, path string) (AckStore, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "file", "json":
		return NewFileAckStore(path)
	case "sqlite":
		return OpenSQLite(path)
	case "memory", "":
		return NewMemoryAckStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// MemoryAckStore keeps flags for the life of the process.
type MemoryAckStore struct {
	mu    sync.RWMutex
	flags map[string]time.Time
}

func NewMemoryAckStore() *MemoryAckStore {
	return &MemoryAckStore{flags: make(map[string]time.Time)}
}

func (m *MemoryAckStore) Acknowledged(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.flags[key]
	return ok, nil
}

func (m *MemoryAckStore) SetAcknowledged(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.flags[key]; !ok {
		m.flags[key] = time.Now().UTC()
	}
	return nil
}

func (m *MemoryAckStore) Reset(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.flags, key)
	return nil
}

func (m *MemoryAckStore) Close() error { return nil }
