package history

import (
	"strings"
	"sync"

	"github.com/comigor/bizanalyst/internal/logger"
)

// KV is the flat key-value namespace chat records live in.
type KV interface {
	Set(key, value string) error
	// Get reports ok=false for keys that were never written.
	Get(key string) (value string, ok bool, err error)
	// Keys returns the keys starting with prefix in scan order.
	Keys(prefix string) ([]string, error)
	Close() error
}

// MemoryKV keeps records in process memory. Scan order is first-write order.
type MemoryKV struct {
	mu     sync.Mutex
	order  []string
	values map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.values[key]; !exists {
		m.order = append(m.order, key)
	}
	m.values[key] = value
	return nil
}

func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) Keys(prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, k := range m.order {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *MemoryKV) Close() error { return nil }

// Open returns the SQLite backend at path. If the database cannot be opened
// the history is kept in memory for the lifetime of the process.
func Open(path string) KV {
	if path == "" || path == ":memory:" {
		return NewMemoryKV()
	}
	kv, err := OpenSQLite(path)
	if err != nil {
		logger.L.Warn("sqlite open failed; using in-memory history", "path", path, "error", err)
		return NewMemoryKV()
	}
	logger.L.Info("sqlite history DB initialized", "path", path)
	return kv
}
