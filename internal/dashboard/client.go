// Package dashboard is an HTTP client for the dashboard API routes.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/api"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/models"
)

// APIError is a non-2xx answer from the dashboard.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("dashboard: status %d", e.Status)
	}
	return e.Message
}

// IsCode reports whether err is an APIError carrying code.
func IsCode(err error, code string) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Code == code
}

// Client calls one dashboard deployment.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// New returns a client for base. token may be empty for the auth routes.
func New(base, token string) *Client {
	return &Client{
		base:  strings.TrimRight(base, "/"),
		token: token,
		http:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (*api.LoginResponse, error) {
	var out api.LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", api.LoginRequest{Email: email, Password: password}, &out)
	return &out, err
}

// Register creates an unconfirmed account.
func (c *Client) Register(ctx context.Context, name, email, password string) (*api.MessageResponse, error) {
	var out api.MessageResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register", api.RegisterRequest{Name: name, Email: email, Password: password}, &out)
	return &out, err
}

// Confirm submits a verification code.
func (c *Client) Confirm(ctx context.Context, email, code string) (*api.MessageResponse, error) {
	var out api.MessageResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/confirm", api.ConfirmRequest{Email: email, Code: code}, &out)
	return &out, err
}

// Resend requests a new verification code.
func (c *Client) Resend(ctx context.Context, email string) (*api.MessageResponse, error) {
	var out api.MessageResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/resend", api.ResendRequest{Email: email}, &out)
	return &out, err
}

// History fetches one page of the caller's claims. An empty risk means all.
func (c *Client) History(ctx context.Context, page, limit int, risk string) (*api.HistoryResponse, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if risk != "" {
		q.Set("risk_level", risk)
	}
	p := "/api/claims/history"
	if len(q) > 0 {
		p += "?" + q.Encode()
	}
	var out api.HistoryResponse
	err := c.do(ctx, http.MethodGet, p, nil, &out)
	return &out, err
}

// Claim fetches one claim by id.
func (c *Client) Claim(ctx context.Context, id string) (*models.StoredClaim, error) {
	var out models.StoredClaim
	err := c.do(ctx, http.MethodGet, "/api/claims/"+url.PathEscape(id), nil, &out)
	return &out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ae := &APIError{Status: resp.StatusCode}
		var e api.ErrorResponse
		if json.Unmarshal(raw, &e) == nil {
			ae.Code, ae.Message = e.Code, e.Error
		}
		return ae
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}
