package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/berth-dev/docchat/internal/chat"
	"github.com/berth-dev/docchat/internal/config"
	"github.com/berth-dev/docchat/internal/log"
)

// DefaultKey is the storage key used when none is configured.
const DefaultKey = "docchat-widget"

// state is the persisted blob.
type state struct {
	Session     *chat.SessionRecord `json:"session,omitempty"`
	WidgetState *chat.WidgetState   `json:"widgetState,omitempty"`
}

// Store reads and writes the widget blob. Every write is a
// read-modify-write of the whole blob. It is safe within one process but
// not across processes sharing the same backend.
//
// Storage failures never reach the caller: they are logged and the store
// continues in memory for the rest of the process.
type Store struct {
	mu       sync.Mutex
	backend  Backend
	key      string
	logger   *log.Logger
	degraded bool
}

// New wraps backend. An empty key means DefaultKey.
func New(backend Backend, key string, logger *log.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{backend: backend, key: key, logger: logger}
}

// Open builds a Store from config. root is the project root that relative
// paths are resolved against. If the SQLite database cannot be opened the
// store starts degraded on an in-memory backend.
func Open(cfg config.StorageConfig, root string, logger *log.Logger) *Store {
	if cfg.Backend == "memory" {
		return New(NewMemoryBackend(), cfg.Key, logger)
	}

	path := cfg.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	backend, err := NewSQLiteBackend(path)
	if err != nil {
		s := New(NewMemoryBackend(), cfg.Key, logger)
		s.degraded = true
		s.logFailure("open", err)
		return s
	}
	return New(backend, cfg.Key, logger)
}

// Degraded reports whether the store fell back to memory.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// Close releases the backend.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Close()
}

// SaveSession stores rec, keeping the widget state.
func (s *Store) SaveSession(rec chat.SessionRecord) {
	s.update(func(st *state) { st.Session = &rec })
}

// GetSession returns the stored session record, or nil.
func (s *Store) GetSession() *chat.SessionRecord {
	return s.read().Session
}

// GetSessionID returns the stored session id, or "".
func (s *Store) GetSessionID() string {
	if rec := s.GetSession(); rec != nil {
		return rec.SessionID
	}
	return ""
}

// ClearSession removes the session record, keeping the widget state.
func (s *Store) ClearSession() {
	s.update(func(st *state) { st.Session = nil })
}

// SaveWidgetState stores ws, keeping the session record.
func (s *Store) SaveWidgetState(ws chat.WidgetState) {
	s.update(func(st *state) { st.WidgetState = &ws })
}

// GetWidgetState returns the stored widget state, or nil.
func (s *Store) GetWidgetState() *chat.WidgetState {
	return s.read().WidgetState
}

// ClearWidgetState removes the widget state, keeping the session record.
func (s *Store) ClearWidgetState() {
	s.update(func(st *state) { st.WidgetState = nil })
}

// ClearAll removes the whole blob.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Delete(s.key); err != nil {
		s.fallback("delete", err)
		_ = s.backend.Delete(s.key)
	}
}

func (s *Store) read() state {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// load must be called with s.mu held. A missing or unparsable blob is empty.
func (s *Store) load() state {
	var st state
	raw, ok, err := s.backend.Get(s.key)
	if err != nil {
		s.fallback("get", err)
		return st
	}
	if !ok || raw == "" {
		return st
	}
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		s.logFailure("decode", err)
		return state{}
	}
	return st
}

func (s *Store) update(mutate func(*state)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.load()
	mutate(&st)

	data, err := json.Marshal(st)
	if err != nil {
		s.logFailure("encode", err)
		return
	}
	if err := s.backend.Set(s.key, string(data)); err != nil {
		s.fallback("set", err)
		_ = s.backend.Set(s.key, string(data))
	}
}

// fallback swaps to an in-memory backend. Must be called with s.mu held.
func (s *Store) fallback(op string, err error) {
	s.logFailure(op, err)
	if s.degraded {
		return
	}
	_ = s.backend.Close()
	s.backend = NewMemoryBackend()
	s.degraded = true
}

func (s *Store) logFailure(op string, err error) {
	s.logger.Warn(log.LogEvent{
		Event: log.EventStorageFailed,
		Op:    "storage_" + op,
		Code:  string(chat.CodeStorageFailed),
		Error: fmt.Sprintf("%s: %v", s.key, err),
	})
}
