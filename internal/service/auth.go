package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yeser/yeser/internal/database"
	"github.com/yeser/yeser/internal/database/repository"
	"github.com/yeser/yeser/internal/ops"
	"github.com/yeser/yeser/internal/supabase"
)

// ErrNotSignedIn is returned when an operation needs a session and none is
// stored.
var ErrNotSignedIn = errors.New("not signed in")

// refreshLeeway is how close to expiry a session may get before startup
// refreshes it.
const refreshLeeway = 5 * time.Minute

// AuthService wraps the Supabase auth client. Every remote call goes through
// the operation manager so concurrent triggers of the same logical operation
// (a double-pressed send button, two views refreshing tokens) collapse into
// one request.
type AuthService struct {
	Client   *supabase.Client
	Sessions *repository.SessionRepo
	Ops      *ops.Manager
	Log      *slog.Logger
}

// SendMagicLink emails a sign-in code. shared=true means this call joined an
// identical in-flight send rather than issuing a new one.
func (s *AuthService) SendMagicLink(ctx context.Context, email string) (shared bool, err error) {
	_, shared, err = s.Ops.Do(ctx, "magic_link:"+email, ops.TypeMagicLink, func(ctx context.Context) (any, error) {
		return nil, s.Client.SendMagicLink(ctx, email)
	})
	return shared, err
}

// Sending reports whether any magic-link send is outstanding, for gating the
// send button.
func (s *AuthService) Sending() bool {
	return s.Ops.HasType(ops.TypeMagicLink)
}

// ConfirmMagicLink verifies the emailed code and persists the session.
func (s *AuthService) ConfirmMagicLink(ctx context.Context, email, token string) (*repository.Session, error) {
	v, _, err := s.Ops.Do(ctx, "confirm_magic_link:"+email, ops.TypeConfirmMagicLink, func(ctx context.Context) (any, error) {
		remote, err := s.Client.VerifyOTP(ctx, email, token)
		if err != nil {
			return nil, err
		}
		sess := sessionFromRemote(remote)
		if err := s.Sessions.Save(ctx, sess); err != nil {
			return nil, fmt.Errorf("persist session: %w", err)
		}
		return &sess, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*repository.Session), nil
}

// Current returns the stored session, or nil when signed out.
func (s *AuthService) Current(ctx context.Context) (*repository.Session, error) {
	return s.Sessions.Current(ctx)
}

// RefreshIfNeeded refreshes the stored session when it is missing little
// time to expiry. Safe to call on every startup; concurrent callers share
// one refresh.
func (s *AuthService) RefreshIfNeeded(ctx context.Context) (*repository.Session, error) {
	sess, err := s.Sessions.Current(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotSignedIn
	}
	if time.Until(sess.ExpiresAt) > refreshLeeway {
		return sess, nil
	}

	v, _, err := s.Ops.Do(ctx, "session_tokens:"+sess.UserID, ops.TypeSessionTokens, func(ctx context.Context) (any, error) {
		remote, err := s.Client.RefreshToken(ctx, sess.RefreshToken)
		if err != nil {
			return nil, err
		}
		fresh := sessionFromRemote(remote)
		if fresh.Email == "" {
			fresh.Email = sess.Email
		}
		if fresh.UserID == "" {
			fresh.UserID = sess.UserID
		}
		if err := s.Sessions.Save(ctx, fresh); err != nil {
			return nil, fmt.Errorf("persist session: %w", err)
		}
		return &fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*repository.Session), nil
}

// SignOut revokes the remote session, clears the stored one, and stops
// advertising any outstanding magic-link sends.
func (s *AuthService) SignOut(ctx context.Context) error {
	sess, err := s.Sessions.Current(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	_, _, err = s.Ops.Do(ctx, "logout:"+sess.UserID, ops.TypeLogout, func(ctx context.Context) (any, error) {
		if err := s.Client.SignOut(ctx, sess.AccessToken); err != nil {
			// Revocation failure shouldn't trap the user in a session;
			// clear locally regardless.
			s.Log.Warn("remote sign-out failed", "err", err)
		}
		return nil, s.Sessions.Clear(ctx)
	})
	if err == nil {
		s.Ops.CancelType(ops.TypeMagicLink)
	}
	return err
}

func sessionFromRemote(remote *supabase.Session) repository.Session {
	return repository.Session{
		ID:           uuid.NewString(),
		UserID:       remote.User.ID,
		Email:        remote.User.Email,
		AccessToken:  remote.AccessToken,
		RefreshToken: remote.RefreshToken,
		ExpiresAt:    remote.ExpiresAt(database.Now()),
	}
}
