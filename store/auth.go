package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dngg/dngg-frontend-go/internal"
	"github.com/dngg/dngg-frontend-go/model"
	"github.com/golang-jwt/jwt/v5"
)

// AuthStore holds the authenticated-user identity. It hydrates from the local
// database on creation and writes through on every mutation, so the session
// survives restarts the way the browser's persisted store did.
type AuthStore struct {
	d internal.Dependencies

	mu      sync.RWMutex
	session *model.AuthSession
	subs    []func()
}

func NewAuthStore(ctx context.Context, d internal.Dependencies) (*AuthStore, error) {
	s := &AuthStore{d: d}
	var session model.AuthSession
	err := d.Database(ctx).First(&session).Error
	if err == nil {
		s.session = &session
	}
	return s, nil
}

// Token returns the current bearer token, or "" when there is no session or
// the token has expired.
func (s *AuthStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ""
	}
	if s.session.ExpiresAt != nil && s.session.ExpiresAt.Before(time.Now()) {
		return ""
	}
	return s.session.Token
}

// Session returns a copy of the persisted session, nil when logged out.
func (s *AuthStore) Session() *model.AuthSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	cp := *s.session
	return &cp
}

// SetToken stores a fresh token. Identity and expiry are read from the token
// claims without verifying the signature; verification is the backend's job.
func (s *AuthStore) SetToken(ctx context.Context, token string) error {
	session := model.AuthSession{ID: 1, Token: token}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		slog.Warn(fmt.Sprintf("token is not a parsable JWT, storing it opaque : %s", err.Error()))
	} else {
		if sub, err := claims.GetSubject(); err == nil {
			session.UserID = sub
		}
		if email, ok := claims["email"].(string); ok {
			session.Email = email
		}
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			t := exp.Time
			session.ExpiresAt = &t
		}
	}

	if err := s.d.Database(ctx).Save(&session).Error; err != nil {
		return err
	}
	s.mu.Lock()
	s.session = &session
	s.mu.Unlock()
	s.notify()
	return nil
}

// ClearToken implements client.TokenSource. The gateway calls it on any 401.
func (s *AuthStore) ClearToken() error {
	return s.Clear(context.Background())
}

func (s *AuthStore) Clear(ctx context.Context) error {
	if err := s.d.Database(ctx).Where("1 = 1").Delete(&model.AuthSession{}).Error; err != nil {
		return err
	}
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
	s.notify()
	return nil
}

// Subscribe registers fn to run after every session change.
func (s *AuthStore) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *AuthStore) notify() {
	s.mu.RLock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()
	for _, fn := range subs {
		fn()
	}
}
