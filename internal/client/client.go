// Package client talks to the formpulse backend over HTTP and WebSocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"formpulse/internal/apperr"
	"formpulse/internal/model"
)

const defaultTimeout = 15 * time.Second

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client implements every backend contract the builder, respondent and
// analytics packages depend on.
type Client struct {
	baseURL string
	http    *http.Client
	dialer  *websocket.Dialer

	mu    sync.RWMutex
	token string
}

// New creates a client for cfg.BaseURL, e.g. "http://localhost:8080".
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		dialer:  &websocket.Dialer{HandshakeTimeout: timeout},
		token:   cfg.Token,
	}
}

// Token returns the bearer credential in use.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer credential.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Register creates a creator account and keeps the returned token.
func (c *Client) Register(ctx context.Context, email, password string) (*model.AuthResponse, error) {
	return c.authenticate(ctx, "register", email, password)
}

// Login exchanges credentials for a token and keeps it.
func (c *Client) Login(ctx context.Context, email, password string) (*model.AuthResponse, error) {
	return c.authenticate(ctx, "login", email, password)
}

func (c *Client) authenticate(ctx context.Context, action, email, password string) (*model.AuthResponse, error) {
	var out model.AuthResponse
	body := model.CredentialsRequest{Email: email, Password: password}
	if err := c.do(ctx, action, http.MethodPost, "/v1/auth/"+action, body, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Check reports whether the current token is still accepted.
func (c *Client) Check(ctx context.Context) (*model.AuthCheck, error) {
	var out model.AuthCheck
	if err := c.do(ctx, "check auth", http.MethodGet, "/v1/auth/check", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the current token and forgets it.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, "logout", http.MethodPost, "/v1/auth/logout", nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

func (c *Client) ListSurveys(ctx context.Context) ([]model.Survey, error) {
	var out []model.Survey
	if err := c.do(ctx, "list surveys", http.MethodGet, "/v1/surveys", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSurvey(ctx context.Context, id string) (*model.Survey, error) {
	var out model.Survey
	if err := c.do(ctx, "get survey", http.MethodGet, "/v1/surveys/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPublicSurvey fetches the respondent view. 401 and 410 answers come back
// as apperr.ErrAuthRequired and *apperr.ExpiredError.
func (c *Client) GetPublicSurvey(ctx context.Context, id string) (*model.Survey, error) {
	var out model.Survey
	if err := c.do(ctx, "get public survey", http.MethodGet, "/v1/surveys/public/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateSurvey(ctx context.Context, p model.SavePayload) (*model.Survey, error) {
	var out model.Survey
	if err := c.do(ctx, "create survey", http.MethodPost, "/v1/surveys", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSurvey(ctx context.Context, id string, p model.SavePayload) (*model.Survey, error) {
	var out model.Survey
	if err := c.do(ctx, "update survey", http.MethodPut, "/v1/surveys/"+url.PathEscape(id), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSurvey(ctx context.Context, id string) error {
	return c.do(ctx, "delete survey", http.MethodDelete, "/v1/surveys/"+url.PathEscape(id), nil, nil)
}

func (c *Client) SubmitResponse(ctx context.Context, req model.SubmitRequest) (*model.ResponseRecord, error) {
	var out model.ResponseRecord
	if err := c.do(ctx, "submit response", http.MethodPost, "/v1/responses", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListResponses(ctx context.Context, surveyID string) ([]model.ResponseRecord, error) {
	var out []model.ResponseRecord
	if err := c.do(ctx, "list responses", http.MethodGet, "/v1/responses/"+url.PathEscape(surveyID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExportCSV downloads the server-rendered CSV and the suggested filename.
func (c *Client) ExportCSV(ctx context.Context, surveyID string) (filename string, data []byte, err error) {
	const op = "export responses"
	resp, err := c.send(ctx, op, http.MethodGet, "/v1/responses/"+url.PathEscape(surveyID)+"/export", nil)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, apperr.Wrap(op, err)
	}
	if _, params, perr := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); perr == nil {
		filename = params["filename"]
	}
	return filename, data, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	resp, err := c.send(ctx, op, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Wrap(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// send performs the request and turns any non-2xx answer into a typed error.
func (c *Client) send(ctx context.Context, op, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, apperr.Wrap(op, fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, apperr.FromStatus(op, resp.StatusCode, raw)
	}
	return resp, nil
}
