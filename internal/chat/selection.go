package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TextSelection is a snapshot of a passage the reader highlighted.
type TextSelection struct {
	ID          string         `json:"id"`
	Content     string         `json:"content"`
	StartOffset int            `json:"startOffset"`
	EndOffset   int            `json:"endOffset"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// NewTextSelection snapshots content with its offsets in the source document.
func NewTextSelection(content string, start, end int) TextSelection {
	return TextSelection{
		ID:          uuid.NewString(),
		Content:     content,
		StartOffset: start,
		EndOffset:   end,
		Timestamp:   time.Now(),
		Metadata:    map[string]any{},
	}
}

// IsValid reports whether the selection holds any non-blank text.
func (s TextSelection) IsValid() bool {
	return strings.TrimSpace(s.Content) != ""
}

// Length returns the content length in runes.
func (s TextSelection) Length() int {
	return len([]rune(s.Content))
}

// WordCount returns the number of whitespace-separated words.
func (s TextSelection) WordCount() int {
	return WordCount(s.Content)
}

// WordCount counts whitespace-separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
