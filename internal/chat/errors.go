package chat

import (
	"fmt"
	"regexp"
	"strings"
)

// Code classifies failures for logging and user-facing text.
type Code string

const (
	CodeConnectionFailed   Code = "API_CONNECTION_FAILED"
	CodeTimeout            Code = "REQUEST_TIMEOUT"
	CodeInvalidResponse    Code = "INVALID_RESPONSE"
	CodeRateLimited        Code = "RATE_LIMIT_EXCEEDED"
	CodeNotFound           Code = "CONVERSATION_NOT_FOUND"
	CodeServerError        Code = "SERVER_ERROR"
	CodeUnknown            Code = "UNKNOWN_ERROR"
	CodeMessageEmpty       Code = "MESSAGE_EMPTY"
	CodeMessageTooLong     Code = "MESSAGE_TOO_LONG"
	CodeSelectionTooLong   Code = "SELECTION_TOO_LONG"
	CodeInvalidSourceURL   Code = "INVALID_SOURCE_URL"
	CodeStorageFailed      Code = "SESSION_STORAGE_FAILED"
	CodeInvalidMessageForm Code = "INVALID_MESSAGE_FORMAT"
)

// Length limits applied before anything is sent.
const (
	MaxMessageLength   = 2000
	MaxSelectionLength = 5000
)

// ValidationError rejects input before it reaches the transcript.
type ValidationError struct {
	Code    Code
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateMessageText checks a question typed by the reader.
func ValidateMessageText(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return &ValidationError{Code: CodeMessageEmpty, Message: "message cannot be empty"}
	}
	if n := len([]rune(trimmed)); n > MaxMessageLength {
		return &ValidationError{
			Code:    CodeMessageTooLong,
			Message: fmt.Sprintf("message is %d characters, max %d", n, MaxMessageLength),
		}
	}
	return nil
}

// ValidateSelectionText checks a selected passage.
func ValidateSelectionText(text string) error {
	if n := len([]rune(text)); n > MaxSelectionLength {
		return &ValidationError{
			Code:    CodeSelectionTooLong,
			Message: fmt.Sprintf("selection is %d characters, max %d", n, MaxSelectionLength),
		}
	}
	return nil
}

var (
	scriptBlock   = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	jsScheme      = regexp.MustCompile(`(?i)javascript:`)
	inlineHandler = regexp.MustCompile(`(?i)\bon\w+\s*=`)
)

// SanitizeSelection strips script blocks and inline handlers from text
// copied out of rendered documentation.
func SanitizeSelection(text string) string {
	text = scriptBlock.ReplaceAllString(text, "")
	text = jsScheme.ReplaceAllString(text, "")
	text = inlineHandler.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// UserMessage maps a code to text suitable for the reader.
func UserMessage(code Code) string {
	switch code {
	case CodeConnectionFailed:
		return "Unable to connect to the chat service. Please check your connection and try again."
	case CodeTimeout:
		return "The request took too long to complete. Please try again."
	case CodeRateLimited:
		return "Too many requests. Please wait a moment before trying again."
	case CodeInvalidResponse, CodeServerError:
		return "Received an invalid response from the server. Please try again."
	case CodeMessageEmpty:
		return "Please enter a message before sending."
	case CodeMessageTooLong:
		return fmt.Sprintf("Message is too long. Please keep it under %d characters.", MaxMessageLength)
	case CodeSelectionTooLong:
		return fmt.Sprintf("Selected text is too long. Please select fewer than %d characters.", MaxSelectionLength)
	case CodeNotFound:
		return "The conversation could not be found."
	case CodeStorageFailed:
		return "Unable to save your conversation locally."
	default:
		return "An unexpected error occurred. Please try again."
	}
}
