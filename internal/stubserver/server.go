// Package stubserver serves the chat backend contract from memory. It
// answers with canned text and never does retrieval; it exists for tests
// and for running the reader without a real backend.
package stubserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Faults injects failures. Zero values mean normal behaviour.
type Faults struct {
	// Delay stalls every handler before it answers.
	Delay time.Duration
	// OmitResponse drops the "response" field from message replies.
	OmitResponse bool
	// Status codes forced on the matching endpoint.
	HealthStatus  int
	StartStatus   int
	MessageStatus int
	SessionStatus int
}

// Message is one stored chat turn.
type Message struct {
	ID           int
	Role         string
	Content      string
	SelectedText string
	Timestamp    time.Time
}

// SendRecord captures the body of the last message request.
type SendRecord struct {
	SessionID    string  `json:"session_id"`
	Message      string  `json:"message"`
	Mode         string  `json:"mode"`
	SelectedText *string `json:"selected_text"`
}

type session struct {
	id        string
	title     string
	createdAt time.Time
	updatedAt time.Time
	active    bool
	messages  []Message
}

// Server is an in-memory chat backend.
type Server struct {
	mu       sync.Mutex
	basePath string
	sessions map[string]*session
	faults   Faults
	calls    map[string]int
	lastSend *SendRecord
	nextMsg  int
}

// Option configures a Server.
type Option func(*Server)

// WithBasePath mounts the routes under prefix instead of /api.
func WithBasePath(prefix string) Option {
	return func(s *Server) { s.basePath = "/" + strings.Trim(prefix, "/") }
}

// New creates an empty Server.
func New(opts ...Option) *Server {
	s := &Server{
		basePath: "/api",
		sessions: make(map[string]*session),
		calls:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the gin engine serving the contract.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.countAndDelay())

	api := r.Group(s.basePath)
	{
		api.GET("/health", s.health)
		api.POST("/v1/chat/start", s.start)
		api.POST("/v1/chat/message", s.message)
		api.GET("/v1/chat/session/:id", s.getSession)
		api.DELETE("/v1/chat/session/:id", s.deleteSession)
	}
	return r
}

// SetFaults replaces the active fault set.
func (s *Server) SetFaults(f Faults) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = f
}

// Calls returns how many requests hit the route with the given method
// and path pattern, e.g. "POST /v1/chat/message".
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// HasSession reports whether id exists and was not deleted.
func (s *Server) HasSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return ok && sess.active
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sess := range s.sessions {
		if sess.active {
			n++
		}
	}
	return n
}

// LastSend returns the last message request body, or nil.
func (s *Server) LastSend() *SendRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSend == nil {
		return nil
	}
	rec := *s.lastSend
	return &rec
}

// Seed inserts a session with history, returning its id.
func (s *Server) Seed(title string, msgs ...Message) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	sess := &session{id: uuid.NewString(), title: title, createdAt: now, updatedAt: now, active: true}
	for _, m := range msgs {
		s.nextMsg++
		m.ID = s.nextMsg
		if m.Timestamp.IsZero() {
			m.Timestamp = now
		}
		sess.messages = append(sess.messages, m)
	}
	s.sessions[sess.id] = sess
	return sess.id
}

// Running is a Server bound to a local port.
type Running struct {
	listener net.Listener
	server   *http.Server
	basePath string
	errCh    chan error
}

// Start binds addr ("127.0.0.1:0" picks a free port) and serves in the
// background.
func (s *Server) Start(addr string) (*Running, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("stubserver: binding listener: %w", err)
	}
	r := &Running{
		listener: ln,
		server:   &http.Server{Handler: s.Handler()},
		basePath: s.basePath,
		errCh:    make(chan error, 1),
	}
	go func() { r.errCh <- r.server.Serve(ln) }()
	return r, nil
}

// Addr returns the address the server is listening on (e.g. "127.0.0.1:12345").
func (r *Running) Addr() string {
	return r.listener.Addr().String()
}

// URL returns the base URL clients should be configured with.
func (r *Running) URL() string {
	return "http://" + r.Addr() + r.basePath
}

// Stop gracefully shuts down the server.
func (r *Running) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("stubserver: shutting down: %w", err)
	}
	if err := <-r.errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	r, err := s.Start(addr)
	if err != nil {
		return err
	}
	select {
	case err := <-r.errCh:
		return err
	case <-ctx.Done():
		return r.Stop()
	}
}

func (s *Server) countAndDelay() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.Request.Method + " " + strings.TrimPrefix(c.FullPath(), s.basePath)
		s.mu.Lock()
		s.calls[route]++
		delay := s.faults.Delay
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-c.Request.Context().Done():
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

func (s *Server) fault(pick func(Faults) int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pick(s.faults)
}

func (s *Server) health(c *gin.Context) {
	if code := s.fault(func(f Faults) int { return f.HealthStatus }); code != 0 {
		c.JSON(code, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "docchat-stub"})
}
