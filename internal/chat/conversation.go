package chat

import (
	"fmt"
	"time"
)

// MaxConversationMessages caps the messages kept in a Conversation.
const MaxConversationMessages = 50

// Conversation is a bounded, exportable view of a session transcript.
type Conversation struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	IsActive  bool      `json:"isActive"`
}

// NewConversation starts an empty conversation.
func NewConversation(id string, now time.Time) *Conversation {
	return &Conversation{
		ID:        id,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
		IsActive:  true,
	}
}

// AddMessage appends msg. It fails once the conversation is full.
func (c *Conversation) AddMessage(msg Message) error {
	if len(c.Messages) >= MaxConversationMessages {
		return fmt.Errorf("conversation %s is full (%d messages)", c.ID, MaxConversationMessages)
	}
	c.Messages = append(c.Messages, msg)
	if msg.Timestamp.After(c.UpdatedAt) {
		c.UpdatedAt = msg.Timestamp
	}
	return nil
}

// ConversationFrom builds a conversation from the most recent messages of
// a transcript.
func ConversationFrom(id string, transcript []Message, createdAt time.Time) *Conversation {
	c := NewConversation(id, createdAt)
	start := 0
	if len(transcript) > MaxConversationMessages {
		start = len(transcript) - MaxConversationMessages
	}
	for _, m := range transcript[start:] {
		_ = c.AddMessage(m)
	}
	return c
}

// Validate checks the conversation invariants.
func (c Conversation) Validate() error {
	if len(c.Messages) > MaxConversationMessages {
		return fmt.Errorf("conversation has %d messages, max %d", len(c.Messages), MaxConversationMessages)
	}
	if c.UpdatedAt.Before(c.CreatedAt) {
		return fmt.Errorf("conversation updated_at precedes created_at")
	}
	return nil
}
