package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSendMagicLink(t *testing.T) {
	t.Parallel()

	var gotPath, gotKey, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	require.NoError(t, c.SendMagicLink(context.Background(), "a@b.com"))
	require.Equal(t, "/auth/v1/otp", gotPath)
	require.Equal(t, "anon-key", gotKey)
	require.Equal(t, "Bearer anon-key", gotAuth)
	require.Equal(t, "a@b.com", gotBody["email"])
	require.Equal(t, true, gotBody["create_user"])
}

func TestVerifyOTP(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/verify", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "magiclink", body["type"])
		require.Equal(t, "123456", body["token"])
		_ = json.NewEncoder(w).Encode(Session{
			AccessToken:  "access",
			RefreshToken: "refresh",
			ExpiresIn:    3600,
			User:         User{ID: "user-1", Email: "a@b.com"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	s, err := c.VerifyOTP(context.Background(), "a@b.com", "123456")
	require.NoError(t, err)
	require.Equal(t, "access", s.AccessToken)
	require.Equal(t, "user-1", s.User.ID)

	now := time.Now()
	require.Equal(t, now.Add(time.Hour), s.ExpiresAt(now))
}

func TestRefreshToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/token", r.URL.Path)
		require.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		_ = json.NewEncoder(w).Encode(Session{AccessToken: "new-access", RefreshToken: "new-refresh", ExpiresIn: 3600})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	s, err := c.RefreshToken(context.Background(), "old-refresh")
	require.NoError(t, err)
	require.Equal(t, "new-access", s.AccessToken)
}

func TestSignOutUsesAccessToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/logout", r.URL.Path)
		require.Equal(t, "Bearer user-access", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	require.NoError(t, c.SignOut(context.Background(), "user-access"))
}

func TestAPIErrorDecoded(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error_code":"over_email_send_rate_limit","msg":"rate limited"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key")
	err := c.SendMagicLink(context.Background(), "a@b.com")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	require.Equal(t, "over_email_send_rate_limit", apiErr.Code)
	require.Contains(t, apiErr.Error(), "rate limited")
}
