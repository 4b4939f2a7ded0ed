package chatapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/berth-dev/docchat/internal/chat"
)

type createSessionRequest struct {
	SessionTitle string  `json:"session_title"`
	UserID       *string `json:"user_id"`
}

type sessionResponse struct {
	ID           string `json:"id"`
	SessionTitle string `json:"session_title"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	IsActive     *bool  `json:"is_active"`
}

type sendMessageRequest struct {
	SessionID    string `json:"session_id"`
	Message      string `json:"message"`
	Mode         string `json:"mode"`
	SelectedText string `json:"selected_text,omitempty"`
}

type sendMessageResponse struct {
	Response       *string          `json:"response"`
	SessionID      string           `json:"session_id"`
	Timestamp      string           `json:"timestamp"`
	ContextSources []map[string]any `json:"context_sources"`
}

type getSessionResponse struct {
	SessionID    string        `json:"session_id"`
	SessionTitle string        `json:"session_title"`
	CreatedAt    string        `json:"created_at"`
	UpdatedAt    string        `json:"updated_at"`
	Messages     []wireMessage `json:"messages"`
}

type wireMessage struct {
	ID           json.RawMessage `json:"id"`
	Role         string          `json:"role"`
	Content      string          `json:"content"`
	SelectedText *string         `json:"selected_text"`
	Timestamp    string          `json:"timestamp"`
}

type errorResponse struct {
	Detail any `json:"detail"`
}

// Backends emit ISO timestamps with and without a zone.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// parseTime returns the zero time for empty or unrecognised input.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func rawID(raw json.RawMessage) string {
	return strings.Trim(strings.TrimSpace(string(raw)), `"`)
}

// toSources maps backend source objects, dropping the ones that cannot be
// shown. Both the documented shape (title, url, excerpt, confidence) and
// the retrieval shape (chapter_title, text, score) are accepted.
func toSources(raw []map[string]any) []chat.ContextSource {
	var out []chat.ContextSource
	for i, m := range raw {
		src := chat.ContextSource{
			ID:      firstString(m, "id"),
			Title:   firstString(m, "title", "chapter_title"),
			URL:     firstString(m, "url"),
			Excerpt: firstString(m, "excerpt", "text"),
			PageID:  firstString(m, "pageId", "page_id", "chapter_number"),
		}
		if src.ID == "" {
			src.ID = fmt.Sprintf("source_%d", i+1)
		}
		if c, ok := firstFloat(m, "confidence", "score"); ok && c >= 0 && c <= 1 {
			src.Confidence = &c
		}
		if src.Validate() != nil {
			continue
		}
		out = append(out, src)
	}
	return out
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%g", v)
		}
	}
	return ""
}

func firstFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k].(float64); ok {
			return v, true
		}
	}
	return 0, false
}

// detailOf pulls the backend's "detail" field out of an error body.
func detailOf(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Detail == nil {
		return ""
	}
	switch d := er.Detail.(type) {
	case string:
		return d
	default:
		b, _ := json.Marshal(d)
		return string(b)
	}
}
