// Package chat holds the domain types shared by the chat client: sessions,
// messages, context sources, the query mode and the widget display state.
package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a conversation session.
type SessionStatus string

const (
	StatusActive   SessionStatus = "active"
	StatusInactive SessionStatus = "inactive"
	StatusArchived SessionStatus = "archived"
)

// Session is a server-side conversation container.
type Session struct {
	ID         string
	Title      string
	CreatedAt  time.Time
	LastActive time.Time
	Status     SessionStatus
}

// Validate checks the session invariants.
func (s Session) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("session id is required")
	}
	if strings.TrimSpace(s.Title) == "" {
		return errors.New("session title is required")
	}
	if s.CreatedAt.After(time.Now().Add(time.Minute)) {
		return fmt.Errorf("session created_at %s is in the future", s.CreatedAt.Format(time.RFC3339))
	}
	switch s.Status {
	case StatusActive, StatusInactive, StatusArchived:
	default:
		return fmt.Errorf("invalid session status %q", s.Status)
	}
	return nil
}

// IsActive reports whether the session is accepting messages.
func (s Session) IsActive() bool {
	return s.Status == StatusActive
}

// Touch records activity on the session.
func (s *Session) Touch(now time.Time) {
	s.LastActive = now
}

// Archive marks the session archived.
func (s *Session) Archive() {
	s.Status = StatusArchived
}

// Record returns the persisted form of the session.
func (s Session) Record() SessionRecord {
	return SessionRecord{
		SessionID:  s.ID,
		Title:      s.Title,
		CreatedAt:  s.CreatedAt,
		LastActive: s.LastActive,
		Status:     s.Status,
	}
}

// SessionRecord is the JSON form of a session mirrored into local storage.
type SessionRecord struct {
	SessionID  string        `json:"sessionId"`
	Title      string        `json:"title"`
	CreatedAt  time.Time     `json:"createdAt"`
	LastActive time.Time     `json:"lastActive"`
	Status     SessionStatus `json:"status"`
}

// Session converts the record back into a Session.
func (r SessionRecord) Session() Session {
	status := r.Status
	if status == "" {
		status = StatusActive
	}
	return Session{
		ID:         r.SessionID,
		Title:      r.Title,
		CreatedAt:  r.CreatedAt,
		LastActive: r.LastActive,
		Status:     status,
	}
}

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// MessageStatus tracks delivery of a message.
type MessageStatus string

const (
	MessageSending   MessageStatus = "sending"
	MessageSent      MessageStatus = "sent"
	MessageDelivered MessageStatus = "delivered"
	MessageError     MessageStatus = "error"
)

// Message is one entry of the transcript. Sender is fixed at creation.
type Message struct {
	ID        string          `json:"id"`
	SessionID string          `json:"sessionId"`
	Sender    Sender          `json:"sender"`
	Content   string          `json:"content"`
	Timestamp time.Time       `json:"timestamp"`
	Status    MessageStatus   `json:"status"`
	Sources   []ContextSource `json:"sources,omitempty"`
}

// NewUserMessage builds an optimistic user message in the sent state.
func NewUserMessage(sessionID, content string, now time.Time) Message {
	return Message{
		ID:        "user_" + uuid.NewString(),
		SessionID: sessionID,
		Sender:    SenderUser,
		Content:   content,
		Timestamp: now,
		Status:    MessageSent,
	}
}

// NewAssistantMessage builds an assistant message with the given status.
func NewAssistantMessage(sessionID, content string, status MessageStatus, now time.Time) Message {
	return Message{
		ID:        "ai_" + uuid.NewString(),
		SessionID: sessionID,
		Sender:    SenderAssistant,
		Content:   content,
		Timestamp: now,
		Status:    status,
	}
}

// WelcomeMessage is the assistant greeting that opens every transcript.
func WelcomeMessage(text string, now time.Time) Message {
	return Message{
		ID:        "welcome",
		Sender:    SenderAssistant,
		Content:   text,
		Timestamp: now,
		Status:    MessageDelivered,
	}
}

// Validate checks the message invariants.
func (m Message) Validate() error {
	if m.ID == "" {
		return errors.New("message id is required")
	}
	if strings.TrimSpace(m.Content) == "" {
		return errors.New("message content is required")
	}
	switch m.Sender {
	case SenderUser, SenderAssistant:
	default:
		return fmt.Errorf("invalid sender %q", m.Sender)
	}
	switch m.Status {
	case MessageSending, MessageSent, MessageDelivered, MessageError:
	default:
		return fmt.Errorf("invalid message status %q", m.Status)
	}
	return nil
}

// Resolve moves a pending message to delivered or error. It reports false
// when the message was already resolved or the target status is not final.
func (m *Message) Resolve(status MessageStatus) bool {
	if m.Status != MessageSending && m.Status != MessageSent {
		return false
	}
	if status != MessageDelivered && status != MessageError {
		return false
	}
	m.Status = status
	return true
}

// Failed reports whether the message could not be delivered.
func (m Message) Failed() bool {
	return m.Status == MessageError
}

// ContextSource is a documentation excerpt the backend cited for an answer.
type ContextSource struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	URL        string   `json:"url,omitempty"`
	Excerpt    string   `json:"excerpt,omitempty"`
	PageID     string   `json:"pageId,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Validate checks that the source can be shown to the reader.
func (c ContextSource) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return errors.New("source title is required")
	}
	if c.URL != "" && !ValidSourceURL(c.URL) {
		return fmt.Errorf("%s: %q", CodeInvalidSourceURL, c.URL)
	}
	if c.Confidence != nil && (*c.Confidence < 0 || *c.Confidence > 1) {
		return fmt.Errorf("source confidence %v out of range", *c.Confidence)
	}
	return nil
}

// ValidSourceURL accepts site-relative paths and absolute http(s) URLs.
func ValidSourceURL(u string) bool {
	return strings.HasPrefix(u, "/") ||
		strings.HasPrefix(u, "http://") ||
		strings.HasPrefix(u, "https://")
}
