package chatapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berth-dev/docchat/internal/chat"
	"github.com/berth-dev/docchat/internal/config"
	"github.com/berth-dev/docchat/internal/log"
)

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := config.DefaultConfig().API
	cfg.BaseURL = srv.URL + "/api"
	return NewClient(cfg, opts...)
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var m map[string]any
	data, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestCreateSessionSendsNullUserID(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/start", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		got = decodeBody(t, r)
		_, _ = w.Write([]byte(`{"id":"sess-1","session_title":"Documentation Chat","created_at":"2026-01-01T10:00:00.123456","updated_at":"2026-01-01T10:00:00.123456","is_active":true}`))
	}))

	sess, err := c.CreateSession(context.Background(), "Documentation Chat")
	require.NoError(t, err)

	assert.Equal(t, "Documentation Chat", got["session_title"])
	v, present := got["user_id"]
	assert.True(t, present, "user_id must be sent")
	assert.Nil(t, v)

	assert.Equal(t, "sess-1", sess.ID)
	assert.Equal(t, chat.StatusActive, sess.Status)
	assert.Equal(t, 2026, sess.CreatedAt.Year())
}

func TestSendMessageOmitsSelectedTextInDefaultMode(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = decodeBody(t, r)
		_, _ = w.Write([]byte(`{"response":"hello"}`))
	}))

	res, err := c.SendMessage(context.Background(), SendRequest{SessionID: "s1", Message: "hi", Mode: chat.ModeDefault})
	require.NoError(t, err)

	assert.Equal(t, "DEFAULT", got["mode"])
	_, present := got["selected_text"]
	assert.False(t, present)

	assert.Equal(t, "hello", res.Message.Content)
	assert.Equal(t, chat.SenderAssistant, res.Message.Sender)
	assert.Equal(t, chat.MessageDelivered, res.Message.Status)
	assert.Equal(t, "s1", res.Message.SessionID, "session id defaults to the request")
	assert.False(t, res.Message.Timestamp.IsZero())
}

func TestSendMessageScopedCarriesSelection(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = decodeBody(t, r)
		_, _ = w.Write([]byte(`{"response":"scoped","session_id":"s1","timestamp":"2026-02-03T04:05:06Z",
			"context_sources":[
				{"text":"Robots perceive the world","chapter_title":"User Selected Text","chapter_number":"Selected Text","score":1.0},
				{"id":"bad","title":"Bad","url":"ftp://nope"}
			]}`))
	}))

	res, err := c.SendMessage(context.Background(), SendRequest{
		SessionID: "s1", Message: "explain", Mode: chat.ModeSelectedText, SelectedText: "Robots perceive the world",
	})
	require.NoError(t, err)

	assert.Equal(t, "SELECTED_TEXT", got["mode"])
	assert.Equal(t, "Robots perceive the world", got["selected_text"])

	require.Len(t, res.Sources, 1)
	assert.Equal(t, "User Selected Text", res.Sources[0].Title)
	assert.Equal(t, "Robots perceive the world", res.Sources[0].Excerpt)
	require.NotNil(t, res.Sources[0].Confidence)
	assert.InDelta(t, 1.0, *res.Sources[0].Confidence, 1e-9)
	assert.Equal(t, time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC), res.Message.Timestamp.UTC())
}

func TestSendMessageMissingResponseIsInvalid(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "log.jsonl")
	logger, err := log.NewLogger(logPath, "info")
	require.NoError(t, err)
	defer logger.Close()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"session_id":"s1"}`))
	}), WithLogger(logger))

	_, err = c.SendMessage(context.Background(), SendRequest{SessionID: "s1", Message: "hi"})
	require.Error(t, err)
	assert.Equal(t, chat.CodeInvalidResponse, CodeOf(err))

	events, err := logger.ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, log.EventAPIRequestFailed, events[0].Event)
	assert.Equal(t, "send_message", events[0].Op)
}

func TestSendMessageNonStringResponseIsInvalid(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":42}`))
	}))
	_, err := c.SendMessage(context.Background(), SendRequest{SessionID: "s1", Message: "hi"})
	assert.Equal(t, chat.CodeInvalidResponse, CodeOf(err))
}

func TestSendMessageBlankResponseIsInvalid(t *testing.T) {
	for _, body := range []string{`{"response":""}`, `{"response":"  \n\t"}`} {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		res, err := c.SendMessage(context.Background(), SendRequest{SessionID: "s1", Message: "hi"})
		require.Error(t, err, body)
		assert.Equal(t, chat.CodeInvalidResponse, CodeOf(err), body)
		assert.Empty(t, res.Message.ID, body)
	}
}

func TestGetSessionMapsHistory(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/session/abc", r.URL.Path)
		_, _ = w.Write([]byte(`{"session_id":"abc","session_title":"Documentation Chat",
			"created_at":"2026-01-01T00:00:00Z","updated_at":"2026-01-01T00:05:00Z",
			"messages":[
				{"id":1,"role":"user","content":"q1","timestamp":"2026-01-01T00:01:00Z"},
				{"id":2,"role":"assistant","content":"a1","timestamp":"2026-01-01T00:02:00Z"}
			]}`))
	}))

	sess, msgs, err := c.GetSession(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, chat.StatusActive, sess.Status)
	require.Len(t, msgs, 2)
	assert.Equal(t, "1", msgs[0].ID)
	assert.Equal(t, chat.SenderUser, msgs[0].Sender)
	assert.Equal(t, chat.SenderAssistant, msgs[1].Sender)
	assert.Equal(t, chat.MessageDelivered, msgs[1].Status)
}

func TestGetSessionSkipsBlankHistory(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"session_id":"abc","session_title":"t",
			"messages":[
				{"id":1,"role":"user","content":"q1"},
				{"id":2,"role":"assistant","content":""},
				{"id":3,"role":"assistant","content":"   "},
				{"id":4,"role":"assistant","content":"a1"}
			]}`))
	}))
	sess, msgs, err := c.GetSession(context.Background(), "abc")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "1", msgs[0].ID)
	assert.Equal(t, "4", msgs[1].ID)
	assert.Equal(t, "a1", msgs[1].Content)
	assert.Equal(t, chat.StatusActive, sess.Status)
}

func TestGetSessionOnlyBlankHistoryIsInactive(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"session_id":"abc","messages":[{"id":1,"role":"assistant","content":""}]}`))
	}))
	sess, msgs, err := c.GetSession(context.Background(), "abc")
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, chat.StatusInactive, sess.Status)
}

func TestGetSessionEmptyIsInactive(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"session_id":"abc","session_title":"t","messages":[]}`))
	}))
	sess, msgs, err := c.GetSession(context.Background(), "abc")
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, chat.StatusInactive, sess.Status)
}

func TestNotFoundClassification(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Session not found"}`))
	}))

	_, _, err := c.GetSession(context.Background(), "gone")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Session not found", apiErr.Message)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	err = c.DeleteSession(context.Background(), "gone")
	assert.True(t, IsNotFound(err))
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		code      chat.Code
		transient bool
	}{
		{http.StatusTooManyRequests, chat.CodeRateLimited, true},
		{http.StatusInternalServerError, chat.CodeServerError, true},
		{http.StatusBadRequest, chat.CodeUnknown, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			_, err := c.HealthCheck(context.Background())
			assert.Equal(t, tt.code, CodeOf(err))
			assert.Equal(t, tt.transient, IsTransient(err))
		})
	}
}

func TestHealthCheckReturnsBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	body, err := c.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", body["status"])
}

func TestConnectionRefused(t *testing.T) {
	cfg := config.DefaultConfig().API
	cfg.BaseURL = "http://127.0.0.1:1/api"
	c := NewClient(cfg)
	_, err := c.CreateSession(context.Background(), "t")
	assert.Equal(t, chat.CodeConnectionFailed, CodeOf(err))
	assert.True(t, IsTransient(err))
}

// blockingDoer never answers until release is closed.
type blockingDoer struct {
	release chan struct{}
	done    chan struct{}
}

func (d *blockingDoer) Do(req *http.Request) (*http.Response, error) {
	<-d.release
	close(d.done)
	return nil, errors.New("released")
}

func TestTimeoutWinsRace(t *testing.T) {
	d := &blockingDoer{release: make(chan struct{}), done: make(chan struct{})}
	cfg := config.DefaultConfig().API
	cfg.RequestTimeoutMs = 30
	c := NewClient(cfg, WithHTTPDoer(d))

	start := time.Now()
	_, err := c.SendMessage(context.Background(), SendRequest{SessionID: "s1", Message: "hi"})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, chat.CodeTimeout, CodeOf(err))
	assert.Less(t, elapsed, 2*time.Second)

	// The abandoned request keeps running until it settles on its own.
	close(d.release)
	select {
	case <-d.done:
	case <-time.After(2 * time.Second):
		t.Fatal("abandoned request never settled")
	}
}

func TestCallerCancellation(t *testing.T) {
	d := &blockingDoer{release: make(chan struct{}), done: make(chan struct{})}
	defer close(d.release)
	c := NewClient(config.DefaultConfig().API, WithHTTPDoer(d))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.HealthCheck(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
