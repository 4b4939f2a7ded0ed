// Package coordinator owns the chat transcript and the session lifecycle:
// resuming or creating a session at startup, sending questions scoped by
// the current mode, and clearing the conversation.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/berth-dev/docchat/internal/chat"
	"github.com/berth-dev/docchat/internal/chatapi"
	"github.com/berth-dev/docchat/internal/config"
	"github.com/berth-dev/docchat/internal/log"
	"github.com/berth-dev/docchat/internal/retry"
)

// ErrorReply is the assistant text shown when a question could not be answered.
const ErrorReply = "Sorry, I encountered an error processing your message. Please try again."

var (
	// ErrNoSession is returned by Send when no backend session exists.
	ErrNoSession = errors.New("no active chat session")
	// ErrBusy is returned by Send while another send is in flight.
	ErrBusy = errors.New("a message is already being sent")
)

// ChatAPI is the part of the remote client the coordinator uses.
type ChatAPI interface {
	CreateSession(ctx context.Context, title string) (chat.Session, error)
	GetSession(ctx context.Context, id string) (chat.Session, []chat.Message, error)
	SendMessage(ctx context.Context, req chatapi.SendRequest) (chatapi.SendResult, error)
	DeleteSession(ctx context.Context, id string) error
}

// SessionStore mirrors the current session identity locally.
type SessionStore interface {
	GetSessionID() string
	SaveSession(rec chat.SessionRecord)
	ClearSession()
}

// ModeSource supplies the query mode and accepts reset requests.
type ModeSource interface {
	Mode() chat.Mode
	ClearSelection()
	SwitchToDefault()
}

// Options tune the coordinator.
type Options struct {
	SessionTitle   string
	ClearTitle     string
	WelcomeMessage string

	// RecoverOnSend makes Send try to create a session when none exists
	// instead of failing with ErrNoSession.
	RecoverOnSend bool

	// SendRetry retries transient send failures. Nil sends once.
	SendRetry *retry.Policy

	// Notify is called with a fresh snapshot after every state change.
	Notify func(State)

	Logger *log.Logger
	Now    func() time.Time
}

// OptionsFromConfig fills Options from the session and retry sections.
func OptionsFromConfig(cfg *config.Config, logger *log.Logger) Options {
	opts := Options{
		SessionTitle:   cfg.Session.Title,
		ClearTitle:     cfg.Session.ClearTitle,
		WelcomeMessage: cfg.Session.WelcomeMessage,
		RecoverOnSend:  cfg.Session.RecoverOnSend,
		Logger:         logger,
	}
	if cfg.Retry.Sends {
		p := retry.FromConfig(cfg.Retry, chatapi.IsTransient)
		opts.SendRetry = &p
	}
	return opts
}

// State is a snapshot for the presentation layer.
type State struct {
	Session    *chat.Session
	Transcript []chat.Message
	Loading    bool
	Mode       chat.Mode
	Degraded   bool
}

// Preview is the truncated selected text for the mode indicator.
func (s State) Preview() string {
	return s.Mode.Preview()
}

// Coordinator drives one chat session. Sends must be serialized by the
// caller; the mutex only guards snapshots.
type Coordinator struct {
	api   ChatAPI
	store SessionStore
	mode  ModeSource
	opts  Options

	mu         sync.Mutex
	session    *chat.Session
	transcript []chat.Message
	loading    bool
}

// New creates a coordinator in degraded state with only the welcome
// message. Call Initialize to attach a session.
func New(api ChatAPI, store SessionStore, mode ModeSource, opts Options) *Coordinator {
	if opts.SessionTitle == "" {
		opts.SessionTitle = "Documentation Chat"
	}
	if opts.ClearTitle == "" {
		opts.ClearTitle = "New Documentation Chat"
	}
	if opts.WelcomeMessage == "" {
		opts.WelcomeMessage = "Hello! How can I help you with the documentation today?"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Coordinator{api: api, store: store, mode: mode, opts: opts}
	c.transcript = []chat.Message{c.welcome()}
	return c
}

// State returns a snapshot of the transcript and flags.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Coordinator) stateLocked() State {
	st := State{
		Transcript: append([]chat.Message(nil), c.transcript...),
		Loading:    c.loading,
		Mode:       c.mode.Mode(),
		Degraded:   c.session == nil,
	}
	if c.session != nil {
		sess := *c.session
		st.Session = &sess
	}
	return st
}

// Conversation returns the most recent messages as a bounded conversation.
func (c *Coordinator) Conversation() *chat.Conversation {
	st := c.State()
	id := ""
	created := c.opts.Now()
	if st.Session != nil {
		id = st.Session.ID
		created = st.Session.CreatedAt
	}
	if len(st.Transcript) > 0 && st.Transcript[0].Timestamp.Before(created) {
		created = st.Transcript[0].Timestamp
	}
	return chat.ConversationFrom(id, st.Transcript, created)
}

// SwitchToDefault drops the selection scope at the reader's request.
func (c *Coordinator) SwitchToDefault() {
	c.mode.SwitchToDefault()
	c.notify()
}

// Initialize resumes the stored session or starts a new one. When the
// backend cannot create a session the coordinator stays degraded: the
// transcript holds only the welcome message and nothing is persisted. The
// returned error explains the degradation; the coordinator is usable
// either way.
func (c *Coordinator) Initialize(ctx context.Context) error {
	if id := c.store.GetSessionID(); id != "" {
		sess, msgs, err := c.api.GetSession(ctx, id)
		if err == nil {
			if len(msgs) == 0 {
				msgs = []chat.Message{c.welcome()}
			}
			c.mu.Lock()
			c.session = &sess
			c.transcript = msgs
			c.mu.Unlock()

			c.store.SaveSession(sess.Record())
			c.opts.Logger.Info(log.LogEvent{
				Event:     log.EventSessionResumed,
				SessionID: sess.ID,
				Data:      map[string]any{"messages": len(msgs)},
			})
			c.notify()
			return nil
		}
		c.opts.Logger.Warn(log.LogEvent{
			Event:     log.EventSessionResumed,
			SessionID: id,
			Code:      string(chatapi.CodeOf(err)),
			Error:     err.Error(),
		})
		if chatapi.IsNotFound(err) {
			c.store.ClearSession()
		}
	}

	err := c.startSession(ctx, c.opts.SessionTitle)
	c.mu.Lock()
	c.transcript = []chat.Message{c.welcome()}
	c.mu.Unlock()
	c.notify()
	return err
}

// Send asks a question. Validation failures and a missing session return
// an error without touching the transcript. Otherwise the user message is
// appended at once and resolved in place when the backend answers; a
// failed call appends ErrorReply and returns the cause. Either way the
// selection is cleared and the mode returns to default.
func (c *Coordinator) Send(ctx context.Context, text string) error {
	if err := chat.ValidateMessageText(text); err != nil {
		c.opts.Logger.Info(log.LogEvent{Event: log.EventMessageRejected, Code: string(chatapi.CodeOf(err)), Error: err.Error()})
		return err
	}
	text = strings.TrimSpace(text)

	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrBusy
	}
	sess := c.session
	c.mu.Unlock()

	if sess == nil {
		if !c.opts.RecoverOnSend {
			c.opts.Logger.Warn(log.LogEvent{Event: log.EventMessageRejected, Error: ErrNoSession.Error()})
			return ErrNoSession
		}
		if err := c.startSession(ctx, c.opts.SessionTitle); err != nil {
			return fmt.Errorf("%w: %w", ErrNoSession, err)
		}
		c.mu.Lock()
		sess = c.session
		c.mu.Unlock()
	}

	mode := c.mode.Mode()
	if mode.IsSelectedText() {
		if err := chat.ValidateSelectionText(mode.SelectedText()); err != nil {
			c.opts.Logger.Info(log.LogEvent{Event: log.EventMessageRejected, Code: string(chatapi.CodeOf(err)), Error: err.Error()})
			// The selection can never be sent, so drop it rather than
			// rejecting every later message too.
			c.mode.ClearSelection()
			c.notify()
			return err
		}
	}

	user := chat.NewUserMessage(sess.ID, text, c.opts.Now())
	c.mu.Lock()
	c.transcript = append(c.transcript, user)
	c.loading = true
	c.mu.Unlock()
	c.notify()

	defer func() {
		c.mode.ClearSelection()
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
		c.notify()
	}()

	req := chatapi.SendRequest{SessionID: sess.ID, Message: text, Mode: mode.Kind()}
	if mode.IsSelectedText() {
		req.SelectedText = mode.SelectedText()
	}

	start := time.Now()
	res, err := c.send(ctx, req)

	c.mu.Lock()
	c.resolveLocked(user.ID, err == nil)
	if err == nil {
		c.transcript = append(c.transcript, res.Message)
		if c.session != nil {
			c.session.Touch(res.Message.Timestamp)
		}
	} else {
		c.transcript = append(c.transcript,
			chat.NewAssistantMessage(sess.ID, ErrorReply, chat.MessageError, c.opts.Now()))
	}
	c.mu.Unlock()

	ev := log.LogEvent{
		SessionID:  sess.ID,
		Mode:       string(mode.Kind()),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		ev.Event = log.EventMessageFailed
		ev.Code = string(chatapi.CodeOf(err))
		ev.Error = err.Error()
		c.opts.Logger.Error(ev)
		return err
	}
	ev.Event = log.EventMessageSent
	ev.Data = map[string]any{"sources": len(res.Sources)}
	c.opts.Logger.Info(ev)
	return nil
}

// Clear ends the current session and starts a new one. It never fails:
// whatever happens remotely, the transcript is reset to the welcome
// message and the stored session is replaced or removed.
func (c *Coordinator) Clear(ctx context.Context) {
	c.mu.Lock()
	old := c.session
	c.mu.Unlock()

	if old != nil {
		if err := c.api.DeleteSession(ctx, old.ID); err != nil && !chatapi.IsNotFound(err) {
			c.opts.Logger.Warn(log.LogEvent{
				Event:     log.EventSessionCleared,
				SessionID: old.ID,
				Code:      string(chatapi.CodeOf(err)),
				Error:     err.Error(),
			})
		}
	}
	c.store.ClearSession()

	c.mu.Lock()
	c.session = nil
	c.transcript = []chat.Message{c.welcome()}
	c.mu.Unlock()

	_ = c.startSession(ctx, c.opts.ClearTitle)
	c.opts.Logger.Info(log.LogEvent{Event: log.EventSessionCleared})
	c.notify()
}

// startSession creates and persists a session, or logs degradation.
func (c *Coordinator) startSession(ctx context.Context, title string) error {
	sess, err := c.api.CreateSession(ctx, title)
	if err != nil {
		c.opts.Logger.Error(log.LogEvent{
			Event: log.EventSessionDegraded,
			Code:  string(chatapi.CodeOf(err)),
			Error: err.Error(),
		})
		return fmt.Errorf("creating session: %w", err)
	}

	c.mu.Lock()
	c.session = &sess
	c.mu.Unlock()
	c.store.SaveSession(sess.Record())
	c.opts.Logger.Info(log.LogEvent{Event: log.EventSessionCreated, SessionID: sess.ID})
	return nil
}

func (c *Coordinator) send(ctx context.Context, req chatapi.SendRequest) (chatapi.SendResult, error) {
	if c.opts.SendRetry == nil {
		return c.api.SendMessage(ctx, req)
	}
	return retry.Do(ctx, *c.opts.SendRetry, c.opts.Logger, "send_message",
		func(ctx context.Context) (chatapi.SendResult, error) {
			return c.api.SendMessage(ctx, req)
		})
}

// resolveLocked settles the optimistic user message in place.
func (c *Coordinator) resolveLocked(id string, ok bool) {
	status := chat.MessageError
	if ok {
		status = chat.MessageDelivered
	}
	for i := range c.transcript {
		if c.transcript[i].ID == id {
			c.transcript[i].Resolve(status)
			return
		}
	}
}

func (c *Coordinator) welcome() chat.Message {
	return chat.WelcomeMessage(c.opts.WelcomeMessage, c.opts.Now())
}

func (c *Coordinator) notify() {
	if c.opts.Notify == nil {
		return
	}
	c.opts.Notify(c.State())
}
