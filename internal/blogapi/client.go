// Package blogapi is a typed client for the GoodThings REST backend.
package blogapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"goodthings/internal/models"
)

const (
	// AuthHeader carries the session token on authenticated requests.
	AuthHeader      = "x-auth-token"
	RequestIDHeader = "X-Request-ID"

	maxErrorBody = 4 << 10
)

// Client talks to the backend. It holds no session state; callers pass the
// token to each authenticated call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	validate   *validator.Validate
	logger     *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		validate:   validator.New(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type nameResponse struct {
	Name string `json:"name"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Probe calls the unauthenticated root endpoint and returns its body.
func (c *Client) Probe(ctx context.Context) (string, error) {
	body, err := c.do(ctx, "probe", http.MethodGet, "/", "", nil, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// Me verifies token and returns the display name it belongs to.
func (c *Client) Me(ctx context.Context, token string) (string, error) {
	var resp nameResponse
	if _, err := c.do(ctx, "verify token", http.MethodGet, "/api/auth", token, nil, &resp); err != nil {
		return "", err
	}
	if resp.Name == "" {
		return "", &Error{Op: "verify token", Kind: ErrServer, Message: "response carried no name"}
	}
	return resp.Name, nil
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (string, error) {
	if err := c.validate.Struct(creds); err != nil {
		return "", &Error{Op: "login", Kind: ErrInvalidInput, Err: err}
	}

	var resp tokenResponse
	if _, err := c.do(ctx, "login", http.MethodPost, "/api/auth", "", creds, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", &Error{Op: "login", Kind: ErrServer, Message: "response carried no token"}
	}
	return resp.Token, nil
}

// Register creates an account and returns its first token.
func (c *Client) Register(ctx context.Context, reg models.Registration) (string, error) {
	if err := c.validate.Struct(reg); err != nil {
		return "", &Error{Op: "register", Kind: ErrInvalidInput, Err: err}
	}

	var resp tokenResponse
	if _, err := c.do(ctx, "register", http.MethodPost, "/api/users", "", reg, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", &Error{Op: "register", Kind: ErrServer, Message: "response carried no token"}
	}
	return resp.Token, nil
}

// ListPosts returns every post of the token's owner, in server order.
func (c *Client) ListPosts(ctx context.Context, token string) ([]models.Post, error) {
	var posts []models.Post
	if _, err := c.do(ctx, "list posts", http.MethodGet, "/api/posts", token, nil, &posts); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

func (c *Client) CreatePost(ctx context.Context, token string, draft models.PostDraft) (*models.Post, error) {
	if err := c.validate.Struct(draft); err != nil {
		return nil, &Error{Op: "create post", Kind: ErrInvalidInput, Err: err}
	}

	var post models.Post
	if _, err := c.do(ctx, "create post", http.MethodPost, "/api/posts", token, draft, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) UpdatePost(ctx context.Context, token, id string, draft models.PostDraft) (*models.Post, error) {
	if id == "" {
		return nil, &Error{Op: "update post", Kind: ErrInvalidInput, Message: "post id is required"}
	}
	if err := c.validate.Struct(draft); err != nil {
		return nil, &Error{Op: "update post", Kind: ErrInvalidInput, Err: err}
	}

	var post models.Post
	if _, err := c.do(ctx, "update post", http.MethodPut, "/api/posts/"+url.PathEscape(id), token, draft, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost removes a post. The response body is ignored.
func (c *Client) DeletePost(ctx context.Context, token, id string) error {
	if id == "" {
		return &Error{Op: "delete post", Kind: ErrInvalidInput, Message: "post id is required"}
	}
	_, err := c.do(ctx, "delete post", http.MethodDelete, "/api/posts/"+url.PathEscape(id), token, nil, nil)
	return err
}

// do performs one request. in is encoded as JSON when non-nil; out is decoded
// from a 2xx body when non-nil. The raw body is returned either way.
func (c *Client) do(ctx context.Context, op, method, path, token string, in, out any) ([]byte, error) {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, &Error{Op: op, Kind: ErrInvalidInput, Err: fmt.Errorf("marshal request: %w", err)}
		}
		reqBody = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, &Error{Op: op, Kind: ErrNetwork, Err: fmt.Errorf("create request: %w", err)}
	}
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	if token != "" {
		httpReq.Header.Set(AuthHeader, token)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set(RequestIDHeader, requestID)

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Error{Op: op, Kind: ErrNetwork, Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: op, Kind: ErrNetwork, Err: fmt.Errorf("read response: %w", err)}
	}

	c.logger.Debug("backend call",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Op:      op,
			Status:  resp.StatusCode,
			Message: errorMessage(body),
			Kind:    kindForStatus(resp.StatusCode),
		}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return nil, &Error{Op: op, Status: resp.StatusCode, Kind: ErrServer, Err: fmt.Errorf("unmarshal response: %w", err)}
		}
	}

	return body, nil
}

// errorMessage pulls a human readable message out of an error body.
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Msg     string `json:"msg"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, m := range []string{payload.Error, payload.Msg, payload.Message} {
			if m != "" {
				return m
			}
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return text
}
