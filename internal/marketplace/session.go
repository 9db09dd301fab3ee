package marketplace

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	pkgerrors "github.com/angelmondragon/resellsync/pkg/errors"
)

const (
	defaultRefreshBuffer = 5 * time.Minute
	// assumed lifetime when the access token carries no readable exp claim
	fallbackTokenLifetime = time.Hour
)

const loginMutation = `mutation Login($email: String!, $password: String!) {
  obtainToken(input: {email: $email, password: $password}) {
    success
    message
    token
    refreshToken
  }
}`

const refreshMutation = `mutation RefreshToken($refreshToken: String!) {
  refreshToken(refreshToken: $refreshToken) {
    token
  }
}`

// Credentials are the tokens of an authenticated session.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// expiresWithin reports whether the access token is missing or expires within buffer.
func (c Credentials) expiresWithin(now time.Time, buffer time.Duration) bool {
	if c.AccessToken == "" {
		return true
	}
	return c.ExpiresAt.Sub(now) < buffer
}

// Session owns the marketplace tokens. Logs in on first use, refreshes when the
// access token is about to expire and falls back to a fresh login when refresh fails.
type Session struct {
	mu       sync.Mutex
	client   *Client
	email    string
	password string
	buffer   time.Duration
	creds    Credentials
	now      func() time.Time
}

func newSession(client *Client, email, password string, buffer time.Duration) *Session {
	if buffer <= 0 {
		buffer = defaultRefreshBuffer
	}
	return &Session{
		client:   client,
		email:    strings.TrimSpace(email),
		password: password,
		buffer:   buffer,
		now:      time.Now,
	}
}

// EnsureValid returns credentials whose access token outlives the refresh buffer.
func (s *Session) EnsureValid(ctx context.Context) (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.creds.expiresWithin(now, s.buffer) {
		return s.creds, nil
	}
	if s.creds.RefreshToken != "" {
		err := s.refresh(ctx)
		if err == nil {
			return s.creds, nil
		}
		s.client.logg.Warn(s.client.logg.WithField(ctx, "error", err.Error()), "marketplace token refresh failed, logging in again")
	}
	if err := s.login(ctx); err != nil {
		return Credentials{}, err
	}
	return s.creds, nil
}

// Invalidate drops the cached tokens so the next call logs in again.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.creds = Credentials{}
	s.mu.Unlock()
}

func (s *Session) login(ctx context.Context) error {
	var out struct {
		ObtainToken struct {
			Success      bool   `json:"success"`
			Message      string `json:"message"`
			Token        string `json:"token"`
			RefreshToken string `json:"refreshToken"`
		} `json:"obtainToken"`
	}
	err := s.client.do(ctx, graphqlRequest{
		OperationName: "Login",
		Query:         loginMutation,
		Variables:     map[string]any{"email": s.email, "password": s.password},
	}, "", &out)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "marketplace login failed")
	}
	if !out.ObtainToken.Success || out.ObtainToken.Token == "" {
		msg := out.ObtainToken.Message
		if msg == "" {
			msg = "marketplace login rejected"
		}
		return pkgerrors.New(pkgerrors.CodeUnauthorized, msg)
	}
	s.creds = Credentials{
		AccessToken:  out.ObtainToken.Token,
		RefreshToken: out.ObtainToken.RefreshToken,
		ExpiresAt:    tokenExpiry(out.ObtainToken.Token, s.now()),
	}
	s.client.logg.Info(s.client.logg.WithField(ctx, "expires_at", s.creds.ExpiresAt), "marketplace session established")
	return nil
}

func (s *Session) refresh(ctx context.Context) error {
	var out struct {
		RefreshToken struct {
			Token string `json:"token"`
		} `json:"refreshToken"`
	}
	err := s.client.do(ctx, graphqlRequest{
		OperationName: "RefreshToken",
		Query:         refreshMutation,
		Variables:     map[string]any{"refreshToken": s.creds.RefreshToken},
	}, "", &out)
	if err != nil {
		return err
	}
	if out.RefreshToken.Token == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "token refresh returned no token")
	}
	s.creds.AccessToken = out.RefreshToken.Token
	s.creds.ExpiresAt = tokenExpiry(out.RefreshToken.Token, s.now())
	s.client.logg.Debug(ctx, "marketplace token refreshed")
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// marketplace is the only party that can verify it.
func tokenExpiry(token string, now time.Time) time.Time {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil || claims.ExpiresAt == nil {
		return now.Add(fallbackTokenLifetime)
	}
	return claims.ExpiresAt.Time
}
