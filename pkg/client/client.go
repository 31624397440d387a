package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/naveenspark/taskdash/pkg/domain"
)

const (
	// HeaderAuthToken carries the session token on protected requests.
	HeaderAuthToken = "x-auth-token"
	// HeaderRequestID tags every request for correlation with backend logs.
	HeaderRequestID = "X-Request-ID"
)

// TokenSource supplies the session token attached to protected requests.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

// Token returns f().
func (f TokenFunc) Token() string { return f() }

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token returns the token itself.
func (s StaticToken) Token() string { return string(s) }

type tokenKey struct{}

// WithToken returns a context whose requests use token instead of the
// client's TokenSource.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the register payload.
type Registration struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// TaskInput is the payload for creating a task. AssignedTo is set only by
// the admin assignment view.
type TaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AssignedTo  string `json:"assignedTo,omitempty"`
}

// TaskUpdate is the payload for editing a task.
type TaskUpdate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Confirmation is the body returned by delete endpoints.
type Confirmation struct {
	Message string `json:"message,omitempty"`
	Msg     string `json:"msg,omitempty"`
}

// Text returns whichever confirmation field the backend filled in.
func (c *Confirmation) Text() string {
	if c == nil {
		return ""
	}
	if c.Message != "" {
		return c.Message
	}
	return c.Msg
}

// Client is the task backend API client.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	timeout    time.Duration
	log        logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout sets a per-request timeout. Zero means wait for the transport.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the request logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a new API client. tokens may be nil for a client that only
// calls public endpoints or always passes WithToken.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{},
		log:        discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// --- Auth ---

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, creds Credentials) (*domain.AuthResponse, error) {
	var resp domain.AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/auth/login", false, creds, &resp); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("client.Login: %w", &DecodeError{Err: errors.New("response has no token")})
	}
	return &resp, nil
}

// Register creates an account and returns its session token.
func (c *Client) Register(ctx context.Context, reg Registration) (*domain.AuthResponse, error) {
	var resp domain.AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/auth/register", false, reg, &resp); err != nil {
		return nil, fmt.Errorf("client.Register: %w", err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("client.Register: %w", &DecodeError{Err: errors.New("response has no token")})
	}
	return &resp, nil
}

// --- Profile ---

// GetProfile returns the authenticated user's profile.
func (c *Client) GetProfile(ctx context.Context) (*domain.Profile, error) {
	var p domain.Profile
	if err := c.doRequest(ctx, http.MethodGet, "/api/users/viewProfile", true, nil, &p); err != nil {
		return nil, fmt.Errorf("client.GetProfile: %w", err)
	}
	return &p, nil
}

// UpdateProfile saves a new name and email for the authenticated user.
func (c *Client) UpdateProfile(ctx context.Context, p domain.Profile) (*domain.Profile, error) {
	var updated domain.Profile
	if err := c.doRequest(ctx, http.MethodPut, "/api/users/updateProfile", true, p, &updated); err != nil {
		return nil, fmt.Errorf("client.UpdateProfile: %w", err)
	}
	return &updated, nil
}

// --- Tasks ---

// ListTasks returns the tasks visible to the authenticated user.
func (c *Client) ListTasks(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := c.doRequest(ctx, http.MethodGet, "/api/tasks/getAll", true, nil, &tasks); err != nil {
		return nil, fmt.Errorf("client.ListTasks: %w", err)
	}
	return tasks, nil
}

// CreateTask creates a task, optionally assigned to another user.
func (c *Client) CreateTask(ctx context.Context, in TaskInput) (*domain.Task, error) {
	var created domain.Task
	if err := c.doRequest(ctx, http.MethodPost, "/api/tasks/create", true, in, &created); err != nil {
		return nil, fmt.Errorf("client.CreateTask: %w", err)
	}
	return &created, nil
}

// UpdateTask edits a task's title and description.
func (c *Client) UpdateTask(ctx context.Context, id string, in TaskUpdate) (*domain.Task, error) {
	var updated domain.Task
	if err := c.doRequest(ctx, http.MethodPut, "/api/tasks/update/"+url.PathEscape(id), true, in, &updated); err != nil {
		return nil, fmt.Errorf("client.UpdateTask: %w", err)
	}
	return &updated, nil
}

// DeleteTask deletes a task by ID.
func (c *Client) DeleteTask(ctx context.Context, id string) (*Confirmation, error) {
	var conf Confirmation
	if err := c.doRequest(ctx, http.MethodDelete, "/api/tasks/delete/"+url.PathEscape(id), true, nil, &conf); err != nil {
		return nil, fmt.Errorf("client.DeleteTask: %w", err)
	}
	return &conf, nil
}

// ListTasksForUser returns the tasks assigned to a user (admin).
func (c *Client) ListTasksForUser(ctx context.Context, userID string) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := c.doRequest(ctx, http.MethodGet, "/api/tasks/getTasksForUser/"+url.PathEscape(userID), true, nil, &tasks); err != nil {
		return nil, fmt.Errorf("client.ListTasksForUser: %w", err)
	}
	return tasks, nil
}

// --- Users (admin) ---

// ListUsers returns every registered user.
func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := c.doRequest(ctx, http.MethodGet, "/api/users/getAllUsers", true, nil, &users); err != nil {
		return nil, fmt.Errorf("client.ListUsers: %w", err)
	}
	return users, nil
}

// DeleteUser deletes a user by ID.
func (c *Client) DeleteUser(ctx context.Context, id string) (*Confirmation, error) {
	var conf Confirmation
	if err := c.doRequest(ctx, http.MethodDelete, "/api/admin/deleteProfile/"+url.PathEscape(id), true, nil, &conf); err != nil {
		return nil, fmt.Errorf("client.DeleteUser: %w", err)
	}
	return &conf, nil
}

// Token resolves the token a request made with ctx would carry.
func (c *Client) Token(ctx context.Context) string {
	if tok, ok := ctx.Value(tokenKey{}).(string); ok {
		return tok
	}
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

func (c *Client) doRequest(ctx context.Context, method, path string, auth bool, body any, out any) error {
	var token string
	if auth {
		token = c.Token(ctx)
		if token == "" {
			return ErrAuthenticationMissing
		}
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(HeaderAuthToken, token)
	}
	reqID := uuid.NewString()
	req.Header.Set(HeaderRequestID, reqID)

	log := c.log.WithFields(logrus.Fields{"method": method, "path": path, "request_id": reqID})
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("api request failed")
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close
	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "duration": time.Since(start)})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Message: serverMessage(respBody)}
		log.WithField("message", httpErr.Message).Info("api request rejected")
		return httpErr
	}
	log.Debug("api request")

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

// serverMessage extracts the human-readable message from an error body.
// The backend uses "message" or "msg", validation failures arrive as an
// "errors" array, and some middleware answers with "error".
func serverMessage(body []byte) string {
	var apiErr struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
		Error   string `json:"error"`
		Errors  []struct {
			Msg string `json:"msg"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &apiErr) == nil {
		switch {
		case apiErr.Message != "":
			return apiErr.Message
		case apiErr.Msg != "":
			return apiErr.Msg
		case apiErr.Error != "":
			return apiErr.Error
		case len(apiErr.Errors) > 0 && apiErr.Errors[0].Msg != "":
			return apiErr.Errors[0].Msg
		}
	}
	return strings.TrimSpace(string(body))
}
