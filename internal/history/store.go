// Package history persists conversations as JSON records in a key-value
// backend. Each record is an independent unit; there is no eviction and no
// cross-record transaction.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/comigor/bizanalyst/internal/logger"
	"github.com/comigor/bizanalyst/internal/session"
)

// ErrNotFound is returned by Load for ids that are absent or unreadable.
var ErrNotFound = errors.New("chat not found")

func errMissingField(name string) error {
	return fmt.Errorf("record is missing %q", name)
}

// Store saves, lists and loads chat records.
type Store interface {
	// Save persists s when it holds more than one message. It reports
	// whether a record was written; write failures are logged, not returned.
	Save(s *session.Session) (Record, bool)
	// ListAll returns every readable record, most recent first.
	ListAll() []Record
	// Load returns the record stored under id.
	Load(id string) (Record, error)
}

// KVStore implements Store on top of a KV backend.
type KVStore struct {
	kv    KV
	now   func() time.Time
	newID func() string
}

// NewKVStore returns a store writing to kv.
func NewKVStore(kv KV) *KVStore {
	return &KVStore{
		kv:    kv,
		now:   func() time.Time { return time.Now().UTC() },
		newID: NewID,
	}
}

// NewID mints a time-ordered chat identifier.
func NewID() string {
	return KeyPrefix + uuid.Must(uuid.NewV7()).String()
}

func (st *KVStore) Save(s *session.Session) (Record, bool) {
	if s.Len() <= 1 {
		return Record{}, false
	}

	id := s.ChatID()
	if id == "" {
		id = st.newID()
	}
	messages := s.Messages()
	rec := Record{
		ID:        id,
		Title:     Title(messages),
		Messages:  messages,
		Timestamp: st.now(),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		logger.L.Error("failed to encode chat record", "id", id, "error", err)
		return Record{}, false
	}
	if err := st.kv.Set(id, string(data)); err != nil {
		logger.L.Error("failed to save chat", "id", id, "error", err)
		return Record{}, false
	}
	if err := s.Bind(id); err != nil {
		logger.L.Error("saved chat under an unexpected id", "id", id, "error", err)
	}

	logger.L.Debug("chat saved", "id", id, "messages", len(messages))
	return rec, true
}

func (st *KVStore) ListAll() []Record {
	keys, err := st.kv.Keys(KeyPrefix)
	if err != nil {
		logger.L.Error("failed to list chat keys", "error", err)
		return nil
	}

	records := make([]Record, 0, len(keys))
	for _, key := range keys {
		value, ok, err := st.kv.Get(key)
		if err != nil || !ok {
			logger.L.Warn("skipping unreadable chat", "key", key, "error", err)
			continue
		}
		rec, err := decodeRecord(value)
		if err != nil {
			logger.L.Warn("skipping malformed chat record", "key", key, "error", err)
			continue
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records
}

func (st *KVStore) Load(id string) (Record, error) {
	value, ok, err := st.kv.Get(id)
	if err != nil {
		return Record{}, fmt.Errorf("read chat %s: %w", id, err)
	}
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rec, err := decodeRecord(value)
	if err != nil {
		logger.L.Warn("stored chat is malformed", "id", id, "error", err)
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}
