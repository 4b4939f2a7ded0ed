package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berth-dev/docchat/internal/chat"
	"github.com/berth-dev/docchat/internal/config"
)

func testRecord(id string) chat.SessionRecord {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return chat.SessionRecord{
		SessionID:  id,
		Title:      "Documentation Chat",
		CreatedAt:  now,
		LastActive: now,
		Status:     chat.StatusActive,
	}
}

func TestSQLiteSessionPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	b, err := NewSQLiteBackend(path)
	require.NoError(t, err)
	s := New(b, "", nil)
	s.SaveSession(testRecord("abc"))
	require.NoError(t, s.Close())

	b2, err := NewSQLiteBackend(path)
	require.NoError(t, err)
	s2 := New(b2, "", nil)
	defer s2.Close()

	assert.Equal(t, "abc", s2.GetSessionID())
	rec := s2.GetSession()
	require.NotNil(t, rec)
	assert.Equal(t, "Documentation Chat", rec.Title)
	assert.True(t, rec.CreatedAt.Equal(testRecord("abc").CreatedAt))
}

func TestPartialUpdatesPreserveOtherField(t *testing.T) {
	s := New(NewMemoryBackend(), "k", nil)

	s.SaveSession(testRecord("abc"))
	s.SaveWidgetState(chat.DefaultWidgetState().Minimize())

	assert.Equal(t, "abc", s.GetSessionID())
	ws := s.GetWidgetState()
	require.NotNil(t, ws)
	assert.True(t, ws.IsMinimized)

	s.ClearSession()
	assert.Empty(t, s.GetSessionID())
	assert.NotNil(t, s.GetWidgetState())

	s.SaveSession(testRecord("def"))
	s.ClearWidgetState()
	assert.Nil(t, s.GetWidgetState())
	assert.Equal(t, "def", s.GetSessionID())

	s.ClearAll()
	assert.Nil(t, s.GetSession())
}

func TestCorruptBlobReadsAsEmpty(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Set("k", "{not json"))
	s := New(b, "k", nil)

	assert.Nil(t, s.GetSession())
	assert.Empty(t, s.GetSessionID())

	s.SaveSession(testRecord("fresh"))
	assert.Equal(t, "fresh", s.GetSessionID())
}

type failingBackend struct{ closed bool }

var errDisk = errors.New("disk full")

func (f *failingBackend) Get(string) (string, bool, error) { return "", false, errDisk }
func (f *failingBackend) Set(string, string) error         { return errDisk }
func (f *failingBackend) Delete(string) error              { return errDisk }
func (f *failingBackend) Close() error                     { f.closed = true; return nil }

func TestBackendFailureDegradesToMemory(t *testing.T) {
	fb := &failingBackend{}
	s := New(fb, "k", nil)

	s.SaveSession(testRecord("abc"))

	assert.True(t, s.Degraded())
	assert.True(t, fb.closed)
	assert.Equal(t, "abc", s.GetSessionID())
}

func TestOpenMemoryBackend(t *testing.T) {
	cfg := config.DefaultConfig().Storage
	cfg.Backend = "memory"
	s := Open(cfg, t.TempDir(), nil)
	defer s.Close()

	assert.False(t, s.Degraded())
	s.SaveSession(testRecord("m"))
	assert.Equal(t, "m", s.GetSessionID())
}

func TestOpenSQLiteRelativePath(t *testing.T) {
	root := t.TempDir()
	cfg := config.DefaultConfig().Storage
	s := Open(cfg, root, nil)
	defer s.Close()

	assert.False(t, s.Degraded())
	assert.FileExists(t, filepath.Join(root, ".docchat", "state.db"))
}

func TestSQLiteDeleteMissingKey(t *testing.T) {
	b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Delete("nope"))
	_, ok, err := b.Get("nope")
	require.NoError(t, err)
	assert.False(t, ok)
}
