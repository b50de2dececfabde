// Package supabase is a thin client for the Supabase auth (GoTrue) REST API.
// It covers only what the app uses: magic-link sign-in, OTP verification,
// token refresh, and sign-out. Calls are plain request/response; any
// de-duplication of concurrent calls happens in the layers above.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to one Supabase project.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
}

func NewClient(baseURL, anonKey string) *Client {
	return &Client{
		baseURL: baseURL,
		anonKey: anonKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Session is the token payload returned by verify and refresh.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// ExpiresAt converts the relative expiry to an absolute time from now.
func (s Session) ExpiresAt(now time.Time) time.Time {
	return now.Add(time.Duration(s.ExpiresIn) * time.Second)
}

// User is the subset of the auth user object the app reads.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// APIError is a non-2xx response from the auth API.
type APIError struct {
	Status  int
	Code    string `json:"error_code"`
	Message string `json:"msg"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("supabase: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("supabase: status %d", e.Status)
}

// SendMagicLink asks the backend to email a sign-in link / OTP code.
func (c *Client) SendMagicLink(ctx context.Context, email string) error {
	body := map[string]any{"email": email, "create_user": true}
	return c.do(ctx, "/auth/v1/otp", "", body, nil)
}

// VerifyOTP exchanges an emailed code for a session.
func (c *Client) VerifyOTP(ctx context.Context, email, token string) (*Session, error) {
	body := map[string]any{"type": "magiclink", "email": email, "token": token}
	var s Session
	if err := c.do(ctx, "/auth/v1/verify", "", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// RefreshToken exchanges a refresh token for fresh session tokens.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	body := map[string]any{"refresh_token": refreshToken}
	var s Session
	if err := c.do(ctx, "/auth/v1/token?grant_type=refresh_token", "", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SignOut revokes the session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, "/auth/v1/logout", accessToken, nil, nil)
}

func (c *Client) do(ctx context.Context, path, bearer string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.anonKey)
	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
