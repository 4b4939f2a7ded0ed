// Package chatapi is the client for the remote documentation chat backend.
// Every call races the HTTP round trip against a timeout; the first to
// settle wins and the other is left to finish on its own.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/berth-dev/docchat/internal/chat"
	"github.com/berth-dev/docchat/internal/config"
	"github.com/berth-dev/docchat/internal/log"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the five-endpoint chat contract.
type Client struct {
	baseURL        string
	endpoints      config.Endpoints
	healthTimeout  time.Duration
	requestTimeout time.Duration
	http           Doer
	logger         *log.Logger
	now            func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPDoer replaces the HTTP transport.
func WithHTTPDoer(d Doer) Option {
	return func(c *Client) { c.http = d }
}

// WithLogger sets the event logger for failed calls.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithClock overrides the time source used for defaulted timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a Client for cfg.
func NewClient(cfg config.APIConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		endpoints:      cfg.Endpoints,
		healthTimeout:  cfg.HealthTimeout(),
		requestTimeout: cfg.RequestTimeout(),
		http:           &http.Client{},
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root the client was built for.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SendRequest is one question sent to the backend.
type SendRequest struct {
	SessionID    string
	Message      string
	Mode         chat.ModeKind
	SelectedText string
}

// SendResult is the backend's answer to a SendRequest.
type SendResult struct {
	Message chat.Message
	Sources []chat.ContextSource
}

// HealthCheck probes the backend. The body shape is backend-defined; a
// non-object body yields an empty map.
func (c *Client) HealthCheck(ctx context.Context) (map[string]any, error) {
	body, err := c.do(ctx, "health_check", http.MethodGet, c.endpoints.Health, nil, c.healthTimeout)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	_ = json.Unmarshal(body, &out)
	return out, nil
}

// CreateSession starts a new anonymous session.
func (c *Client) CreateSession(ctx context.Context, title string) (chat.Session, error) {
	const op = "create_session"
	body, err := c.do(ctx, op, http.MethodPost, c.endpoints.Start,
		createSessionRequest{SessionTitle: title}, c.requestTimeout)
	if err != nil {
		return chat.Session{}, err
	}

	var resp sessionResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.ID == "" {
		return chat.Session{}, c.invalid(op, c.endpoints.Start, err, "session response missing id")
	}

	status := chat.StatusActive
	if resp.IsActive != nil && !*resp.IsActive {
		status = chat.StatusInactive
	}
	created := parseTime(resp.CreatedAt)
	if created.IsZero() {
		created = c.now()
	}
	updated := parseTime(resp.UpdatedAt)
	if updated.IsZero() {
		updated = created
	}
	if resp.SessionTitle == "" {
		resp.SessionTitle = title
	}
	return chat.Session{
		ID:         resp.ID,
		Title:      resp.SessionTitle,
		CreatedAt:  created,
		LastActive: updated,
		Status:     status,
	}, nil
}

// GetSession fetches a session and its history in server order. A 404 is
// reported as a CONVERSATION_NOT_FOUND error.
func (c *Client) GetSession(ctx context.Context, id string) (chat.Session, []chat.Message, error) {
	const op = "get_session"
	path := c.sessionPath(id)
	body, err := c.do(ctx, op, http.MethodGet, path, nil, c.requestTimeout)
	if err != nil {
		return chat.Session{}, nil, err
	}

	var resp getSessionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return chat.Session{}, nil, c.invalid(op, path, err, "malformed session body")
	}
	if resp.SessionID == "" {
		resp.SessionID = id
	}

	msgs := make([]chat.Message, 0, len(resp.Messages))
	for i, wm := range resp.Messages {
		if strings.TrimSpace(wm.Content) == "" {
			continue
		}
		sender := chat.SenderAssistant
		if wm.Role == string(chat.SenderUser) {
			sender = chat.SenderUser
		}
		msgID := rawID(wm.ID)
		if msgID == "" {
			msgID = fmt.Sprintf("%s_%d", resp.SessionID, i)
		}
		msgs = append(msgs, chat.Message{
			ID:        msgID,
			SessionID: resp.SessionID,
			Sender:    sender,
			Content:   wm.Content,
			Timestamp: parseTime(wm.Timestamp),
			Status:    chat.MessageDelivered,
		})
	}

	status := chat.StatusInactive
	if len(msgs) > 0 {
		status = chat.StatusActive
	}
	sess := chat.Session{
		ID:         resp.SessionID,
		Title:      resp.SessionTitle,
		CreatedAt:  parseTime(resp.CreatedAt),
		LastActive: parseTime(resp.UpdatedAt),
		Status:     status,
	}
	return sess, msgs, nil
}

// SendMessage posts a question. selected_text is only sent when set. The
// reply must carry a non-blank string "response" or the call fails with
// INVALID_RESPONSE.
func (c *Client) SendMessage(ctx context.Context, req SendRequest) (SendResult, error) {
	const op = "send_message"
	mode := req.Mode
	if mode == "" {
		mode = chat.ModeDefault
	}
	body, err := c.do(ctx, op, http.MethodPost, c.endpoints.Message, sendMessageRequest{
		SessionID:    req.SessionID,
		Message:      req.Message,
		Mode:         string(mode),
		SelectedText: req.SelectedText,
	}, c.requestTimeout)
	if err != nil {
		return SendResult{}, err
	}

	var resp sendMessageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return SendResult{}, c.invalid(op, c.endpoints.Message, err, "malformed message body")
	}
	if resp.Response == nil {
		return SendResult{}, c.invalid(op, c.endpoints.Message, nil, "response field missing")
	}
	if strings.TrimSpace(*resp.Response) == "" {
		return SendResult{}, c.invalid(op, c.endpoints.Message, nil, "response is blank")
	}

	sessionID := resp.SessionID
	if sessionID == "" {
		sessionID = req.SessionID
	}
	ts := parseTime(resp.Timestamp)
	if ts.IsZero() {
		ts = c.now()
	}
	sources := toSources(resp.ContextSources)

	msg := chat.NewAssistantMessage(sessionID, *resp.Response, chat.MessageDelivered, ts)
	msg.Sources = sources
	return SendResult{Message: msg, Sources: sources}, nil
}

// DeleteSession closes a session. A 404 is reported as a
// CONVERSATION_NOT_FOUND error.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	_, err := c.do(ctx, "delete_session", http.MethodDelete, c.sessionPath(id), nil, c.requestTimeout)
	return err
}

func (c *Client) sessionPath(id string) string {
	return strings.TrimRight(c.endpoints.Session, "/") + "/" + url.PathEscape(id)
}

type roundTrip struct {
	status int
	body   []byte
	err    error
}

// do performs one call and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, op, method, path string, payload any, timeout time.Duration) ([]byte, error) {
	target := c.baseURL + path
	start := time.Now()

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, c.fail(op, target, start, &Error{Op: op, Code: chat.CodeInvalidMessageForm, Message: "encoding request", Err: err})
		}
		reqBody = bytes.NewReader(data)
	}

	// The request outlives a cancelled caller; only its result is dropped.
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), method, target, reqBody)
	if err != nil {
		return nil, c.fail(op, target, start, &Error{Op: op, Code: chat.CodeConnectionFailed, Message: "building request", Err: err})
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	ch := make(chan roundTrip, 1)
	go func() {
		resp, err := c.http.Do(req)
		if err != nil {
			ch <- roundTrip{err: err}
			return
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		ch <- roundTrip{status: resp.StatusCode, body: body, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var rt roundTrip
	select {
	case rt = <-ch:
	case <-timer.C:
		return nil, c.fail(op, target, start, &Error{
			Op: op, Code: chat.CodeTimeout,
			Message: fmt.Sprintf("request timed out after %s", timeout),
		})
	case <-ctx.Done():
		return nil, c.fail(op, target, start, &Error{
			Op: op, Code: chat.CodeTimeout, Message: "request abandoned", Err: ctx.Err(),
		})
	}

	if rt.err != nil {
		return nil, c.fail(op, target, start, &Error{
			Op: op, Code: chat.CodeConnectionFailed, Status: rt.status,
			Message: "connection failed", Err: rt.err,
		})
	}
	if rt.status < 200 || rt.status > 299 {
		msg := detailOf(rt.body)
		if msg == "" {
			msg = fmt.Sprintf("HTTP error %d %s", rt.status, http.StatusText(rt.status))
		}
		return nil, c.fail(op, target, start, &Error{
			Op: op, Code: codeForStatus(rt.status), Status: rt.status, Message: msg,
		})
	}
	return rt.body, nil
}

func (c *Client) invalid(op, path string, cause error, msg string) error {
	return c.fail(op, c.baseURL+path, time.Now(), &Error{
		Op: op, Code: chat.CodeInvalidResponse, Status: http.StatusOK, Message: msg, Err: cause,
	})
}

// fail logs e and returns it.
func (c *Client) fail(op, target string, start time.Time, e *Error) error {
	errText := e.Message
	if e.Err != nil {
		errText += ": " + e.Err.Error()
	}
	c.logger.Error(log.LogEvent{
		Event:      log.EventAPIRequestFailed,
		Op:         op,
		URL:        target,
		Status:     e.Status,
		Code:       string(e.Code),
		Error:      errText,
		DurationMs: time.Since(start).Milliseconds(),
	})
	return e
}
