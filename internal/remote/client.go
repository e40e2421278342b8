// Package remote talks to the moodquiz HTTP API. Every failure, whatever its
// cause, is reported as ErrUnavailable so callers have one thing to fall back on.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/moodquiz/backend/internal/models"
)

// ErrUnavailable covers transport errors, deadlines, non-2xx statuses and
// envelopes that report failure or cannot be decoded.
var ErrUnavailable = errors.New("remote unavailable")

// ErrRejected additionally marks failures where the server refused the input
// itself (400, 422). Resending the same record will fail the same way.
var ErrRejected = errors.New("rejected by server")

// Client calls the API rooted at baseURL. Deadlines come from the caller's context.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client. A nil httpClient uses http.DefaultClient.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, token: token, http: httpClient}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.token = token
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type responseRequest struct {
	UserID     int64      `json:"user_id"`
	QuestionID int        `json:"question_id"`
	Score      int        `json:"score"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

// Health probes GET /api/health.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

// CreateUser stores a user and returns it with its server id.
func (c *Client) CreateUser(ctx context.Context, in models.NewUser) (models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodPost, "/api/users", in, &u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// SubmitResponse stores one answer. A zero timestamp lets the server stamp it.
func (c *Client) SubmitResponse(ctx context.Context, in models.NewResponse) (models.Response, error) {
	body := responseRequest{UserID: in.UserID.Value, QuestionID: in.QuestionID, Score: in.Score}
	if !in.Timestamp.IsZero() {
		ts := in.Timestamp
		body.Timestamp = &ts
	}
	var r models.Response
	if err := c.do(ctx, http.MethodPost, "/api/responses", body, &r); err != nil {
		return models.Response{}, err
	}
	return r, nil
}

// ListResponses returns every response joined with its user, newest first.
func (c *Client) ListResponses(ctx context.Context) ([]models.ResponseRow, error) {
	var rows []models.ResponseRow
	if err := c.do(ctx, http.MethodGet, "/api/responses", nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListUserResponses returns one user's responses ordered by question id.
func (c *Client) ListUserResponses(ctx context.Context, userID int64) ([]models.Response, error) {
	var rows []models.Response
	path := "/api/responses/user/" + strconv.FormatInt(userID, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Sync uploads a batch of local records in one server-side transaction.
func (c *Client) Sync(ctx context.Context, batch models.SyncBatch) (models.SyncResult, error) {
	var res models.SyncResult
	if err := c.do(ctx, http.MethodPost, "/api/sync", batch, &res); err != nil {
		return models.SyncResult{}, err
	}
	return res, nil
}

// Login exchanges the admin password for a token.
func (c *Client) Login(ctx context.Context, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	in := map[string]string{"password": password}
	if err := c.do(ctx, http.MethodPost, "/api/admin/login", in, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity {
		return fmt.Errorf("%w: %w: %s %s: status %d: %s", ErrUnavailable, ErrRejected, method, path, resp.StatusCode, errorText(raw))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s: status %d", ErrUnavailable, method, path, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: decode envelope: %v", ErrUnavailable, err)
	}
	if !env.Success {
		return fmt.Errorf("%w: %s %s: %s", ErrUnavailable, method, path, env.Error)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decode data: %v", ErrUnavailable, err)
	}
	return nil
}

// errorText pulls the envelope error out of a failed response, if any.
func errorText(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	return env.Error
}
