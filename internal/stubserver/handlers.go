package stubserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const previewRunes = 60

type startRequest struct {
	SessionTitle string  `json:"session_title"`
	UserID       *string `json:"user_id"`
}

func (s *Server) start(c *gin.Context) {
	if code := s.fault(func(f Faults) int { return f.StartStatus }); code != 0 {
		c.JSON(code, gin.H{"detail": "Failed to create chat session"})
		return
	}

	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	title := strings.TrimSpace(req.SessionTitle)
	if title == "" {
		title = "New Chat Session"
	}

	now := time.Now().UTC()
	sess := &session{id: uuid.NewString(), title: title, createdAt: now, updatedAt: now, active: true}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"id":            sess.id,
		"session_title": sess.title,
		"created_at":    sess.createdAt.Format(time.RFC3339Nano),
		"updated_at":    sess.updatedAt.Format(time.RFC3339Nano),
		"is_active":     true,
	})
}

func (s *Server) message(c *gin.Context) {
	var req SendRecord
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	s.lastSend = &req
	faults := s.faults
	sess, ok := s.sessions[req.SessionID]
	if ok && !sess.active {
		ok = false
	}
	s.mu.Unlock()

	if faults.MessageStatus != 0 {
		c.JSON(faults.MessageStatus, gin.H{"detail": "Failed to process chat message"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Session not found"})
		return
	}

	selected := ""
	if req.SelectedText != nil {
		selected = *req.SelectedText
	}
	answer, sources := reply(req.Message, selected)
	now := time.Now().UTC()

	s.mu.Lock()
	s.nextMsg++
	sess.messages = append(sess.messages, Message{ID: s.nextMsg, Role: "user", Content: req.Message, SelectedText: selected, Timestamp: now})
	s.nextMsg++
	sess.messages = append(sess.messages, Message{ID: s.nextMsg, Role: "assistant", Content: answer, Timestamp: now})
	sess.updatedAt = now
	s.mu.Unlock()

	body := gin.H{
		"session_id":      req.SessionID,
		"context_sources": sources,
		"timestamp":       now.Format(time.RFC3339Nano),
	}
	if !faults.OmitResponse {
		body["response"] = answer
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) getSession(c *gin.Context) {
	if code := s.fault(func(f Faults) int { return f.SessionStatus }); code != 0 {
		c.JSON(code, gin.H{"detail": "Failed to retrieve chat session"})
		return
	}

	s.mu.Lock()
	sess, ok := s.sessions[c.Param("id")]
	if !ok || !sess.active {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"detail": "Session not found"})
		return
	}
	msgs := make([]gin.H, 0, len(sess.messages))
	for _, m := range sess.messages {
		var sel any
		if m.SelectedText != "" {
			sel = m.SelectedText
		}
		msgs = append(msgs, gin.H{
			"id":            m.ID,
			"role":          m.Role,
			"content":       m.Content,
			"selected_text": sel,
			"timestamp":     m.Timestamp.Format(time.RFC3339Nano),
		})
	}
	body := gin.H{
		"session_id":    sess.id,
		"session_title": sess.title,
		"messages":      msgs,
		"created_at":    sess.createdAt.Format(time.RFC3339Nano),
		"updated_at":    sess.updatedAt.Format(time.RFC3339Nano),
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, body)
}

func (s *Server) deleteSession(c *gin.Context) {
	if code := s.fault(func(f Faults) int { return f.SessionStatus }); code != 0 {
		c.JSON(code, gin.H{"detail": "Failed to close chat session"})
		return
	}

	s.mu.Lock()
	sess, ok := s.sessions[c.Param("id")]
	if ok && sess.active {
		sess.active = false
	} else {
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session closed successfully"})
}

// reply builds a canned answer. Scoped questions cite the selection as
// their only source.
func reply(question, selected string) (string, []gin.H) {
	if strings.TrimSpace(selected) == "" {
		return "From the documentation: " + question, []gin.H{{
			"id":         "doc-1",
			"title":      "Introduction",
			"url":        "/docs/intro",
			"excerpt":    "Overview of the documentation set.",
			"confidence": 0.5,
		}}
	}
	preview := selected
	if r := []rune(selected); len(r) > previewRunes {
		preview = string(r[:previewRunes]) + "..."
	}
	return "Selected text mode: about \"" + preview + "\": " + question, []gin.H{{
		"text":           selected,
		"chapter_number": "Selected Text",
		"chapter_title":  "User Selected Text",
		"score":          1.0,
	}}
}
