package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectedTextModeBlankCollapsesToDefault(t *testing.T) {
	m := SelectedTextMode("   \n\t")
	assert.Equal(t, ModeDefault, m.Kind())
	assert.False(t, m.IsSelectedText())
	assert.Empty(t, m.SelectedText())
	assert.Equal(t, "Default Mode", m.Label())
}

func TestSelectedTextModeBindsText(t *testing.T) {
	m := SelectedTextMode("Robots perceive the world")
	assert.Equal(t, ModeSelectedText, m.Kind())
	assert.True(t, m.IsSelectedText())
	assert.Equal(t, "Robots perceive the world", m.SelectedText())
	assert.Equal(t, "Focus Mode", m.Label())
	assert.Equal(t, "Responding based on selected text only", m.Description())
}

func TestZeroModeIsDefault(t *testing.T) {
	var m Mode
	assert.Equal(t, ModeDefault, m.Kind())
	assert.Equal(t, "Searching entire textbook for answers", m.Description())
}

func TestModePreviewTruncates(t *testing.T) {
	long := strings.Repeat("é", 75)
	p := SelectedTextMode(long).Preview()
	assert.Equal(t, strings.Repeat("é", PreviewLength)+"...", p)

	short := SelectedTextMode("short").Preview()
	assert.Equal(t, "short", short)
}

func TestMessageResolveOnlyOnce(t *testing.T) {
	m := NewUserMessage("s1", "hi", time.Now())
	require.Equal(t, MessageSent, m.Status)

	assert.True(t, m.Resolve(MessageDelivered))
	assert.Equal(t, MessageDelivered, m.Status)
	assert.False(t, m.Resolve(MessageError))
	assert.Equal(t, MessageDelivered, m.Status)
}

func TestMessageResolveRejectsNonFinal(t *testing.T) {
	m := NewUserMessage("s1", "hi", time.Now())
	assert.False(t, m.Resolve(MessageSending))
	assert.Equal(t, MessageSent, m.Status)
}

func TestValidateMessageText(t *testing.T) {
	tests := []struct {
		name string
		text string
		code Code
	}{
		{"empty", "", CodeMessageEmpty},
		{"whitespace", "  \n ", CodeMessageEmpty},
		{"too long", strings.Repeat("a", MaxMessageLength+1), CodeMessageTooLong},
		{"ok", "What is a servo?", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessageText(tt.text)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.code, verr.Code)
		})
	}
}

func TestSanitizeSelection(t *testing.T) {
	in := `Robots <script>alert(1)</script>perceive <a onclick="x()" href="javascript:void(0)">the world</a>`
	out := SanitizeSelection(in)
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, strings.ToLower(out), "javascript:")
	assert.NotContains(t, out, "onclick=")
	assert.Contains(t, out, "Robots")
}

func TestWidgetStateTransitions(t *testing.T) {
	w := DefaultWidgetState()
	require.NoError(t, w.Validate())

	w = w.Minimize()
	assert.False(t, w.IsVisible)
	assert.True(t, w.IsMinimized)
	require.NoError(t, w.Validate())

	w = w.Toggle()
	assert.True(t, w.IsVisible)
	assert.False(t, w.IsMinimized)

	w = w.SetError("boom")
	require.NoError(t, w.Validate())
	w.ErrorMessage = ""
	assert.Error(t, w.Validate())

	bad := WidgetState{IsVisible: true, IsMinimized: true}
	assert.Error(t, bad.Validate())
}

func TestConversationCap(t *testing.T) {
	now := time.Now()
	c := NewConversation("c1", now)
	for i := 0; i < MaxConversationMessages; i++ {
		require.NoError(t, c.AddMessage(NewUserMessage("s", "m", now)))
	}
	assert.Error(t, c.AddMessage(NewUserMessage("s", "overflow", now)))
	assert.NoError(t, c.Validate())
}

func TestConversationFromKeepsMostRecent(t *testing.T) {
	now := time.Now()
	var transcript []Message
	for i := 0; i < 60; i++ {
		transcript = append(transcript, NewUserMessage("s", strings.Repeat("x", i+1), now))
	}
	c := ConversationFrom("c1", transcript, now)
	require.Len(t, c.Messages, MaxConversationMessages)
	assert.Equal(t, transcript[10].ID, c.Messages[0].ID)
}

func TestContextSourceValidate(t *testing.T) {
	conf := 0.8
	ok := ContextSource{ID: "1", Title: "Sensors", URL: "/docs/sensors", Confidence: &conf}
	assert.NoError(t, ok.Validate())

	badURL := ContextSource{ID: "1", Title: "Sensors", URL: "ftp://x"}
	assert.Error(t, badURL.Validate())

	high := 1.5
	badConf := ContextSource{ID: "1", Title: "Sensors", Confidence: &high}
	assert.Error(t, badConf.Validate())
}

func TestSessionValidate(t *testing.T) {
	s := Session{ID: "abc", Title: "Documentation Chat", CreatedAt: time.Now(), Status: StatusActive}
	require.NoError(t, s.Validate())

	s.Status = "bogus"
	assert.Error(t, s.Validate())

	rec := Session{ID: "abc", Title: "t", CreatedAt: time.Now(), Status: StatusInactive}.Record()
	assert.Equal(t, "abc", rec.SessionID)
	assert.Equal(t, StatusInactive, rec.Session().Status)
}

func TestTextSelection(t *testing.T) {
	s := NewTextSelection("Robots perceive the world", 0, 25)
	assert.True(t, s.IsValid())
	assert.Equal(t, 4, s.WordCount())
	assert.NotEmpty(t, s.ID)

	assert.False(t, NewTextSelection("  ", 0, 2).IsValid())
}
