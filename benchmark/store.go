package benchmark

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// RecordStore keeps a history of reported records across runs.
// Records are grouped by session id and ordered by message id within a session.
type RecordStore interface {
	// Put stores a record under the given session
	Put(sessionID string, m Metrics) error

	// Get retrieves a single record
	// Returns ErrRecordNotFound if it doesn't exist
	Get(sessionID string, messageID uint32) (Metrics, error)

	// Records returns every record of a session in message id order.
	// An empty session id returns all sessions.
	// Session ids must not contain '/', see ValidateSessionID.
	Records(sessionID string) ([]Metrics, error)

	// Flush ensures all pending writes are persisted to storage
	Flush() error

	// Close releases the backend's resources
	Close() error
}

// StoreType names a record store backend
type StoreType string

const (
	StoreTypeNone   StoreType = ""
	StoreTypePebble StoreType = "pebble"
	StoreTypeMemory StoreType = "memory"
)

// StoreConfig holds configuration for store creation
type StoreConfig struct {
	Type     StoreType
	Path     string
	ReadOnly bool

	// Pebble-specific options
	BlockCacheSize int64 // bytes, negative means disabled
}

// Common store errors
var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrStoreClosed     = errors.New("store is closed")
	ErrBackendNotFound = errors.New("store backend not found")
	ErrInvalidSession  = errors.New("invalid session id")
)

// sessionSeparator ends the session part of a record key
const sessionSeparator = '/'

// ValidateSessionID rejects ids that would make one session's keys a prefix
// match for another's
func ValidateSessionID(sessionID string) error {
	if strings.ContainsRune(sessionID, sessionSeparator) {
		return fmt.Errorf("%w: %q contains %q", ErrInvalidSession, sessionID, sessionSeparator)
	}
	return nil
}

// NewRecordStore creates a store based on the configuration.
// StoreTypeNone yields a nil store and no error.
func NewRecordStore(cfg StoreConfig) (RecordStore, error) {
	switch cfg.Type {
	case StoreTypeNone:
		return nil, nil
	case StoreTypePebble:
		return NewPebbleStore(cfg)
	case StoreTypeMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrBackendNotFound, cfg.Type)
	}
}

// recordKey is the session id followed by a separator and the big-endian message id,
// so byte order matches message order inside a session.
func recordKey(sessionID string, messageID uint32) []byte {
	key := make([]byte, 0, len(sessionID)+5)
	key = append(key, sessionID...)
	key = append(key, sessionSeparator)
	return binary.BigEndian.AppendUint32(key, messageID)
}

func sessionPrefix(sessionID string) []byte {
	if sessionID == "" {
		return nil
	}
	return append([]byte(sessionID), sessionSeparator)
}

func encodeRecord(m Metrics) ([]byte, error) {
	return json.Marshal(m)
}

func decodeRecord(raw []byte) (Metrics, error) {
	var m Metrics
	if err := json.Unmarshal(raw, &m); err != nil {
		return Metrics{}, fmt.Errorf("failed to decode record: %w", err)
	}
	return m, nil
}

// MemoryStore is an in-memory RecordStore. Data is lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
	closed  bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

func (s *MemoryStore) Put(sessionID string, m Metrics) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}
	raw, err := encodeRecord(m)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.records[string(recordKey(sessionID, m.MessageID))] = raw
	return nil
}

func (s *MemoryStore) Get(sessionID string, messageID uint32) (Metrics, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return Metrics{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Metrics{}, ErrStoreClosed
	}

	raw, ok := s.records[string(recordKey(sessionID, messageID))]
	if !ok {
		return Metrics{}, ErrRecordNotFound
	}
	return decodeRecord(raw)
}

func (s *MemoryStore) Records(sessionID string) ([]Metrics, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	prefix := string(sessionPrefix(sessionID))
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]Metrics, 0, len(keys))
	for _, k := range keys {
		m, err := decodeRecord(s.records[k])
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *MemoryStore) Flush() error { return nil }

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
