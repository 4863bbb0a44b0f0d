package storefront

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"bookstore/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the signed-in state of one client: the access token and a
// snapshot of the user profile, mirrored to Storage.
type Session struct {
	mu      sync.RWMutex
	storage Storage
	token   string
	user    *models.User
}

// LoadSession rehydrates a session from storage. Missing keys mean signed out.
func LoadSession(storage Storage) (*Session, error) {
	s := &Session{storage: storage}

	token, ok, err := storage.Get(KeyToken)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if ok {
		s.token = string(token)
	}

	raw, ok, err := storage.Get(KeyUser)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if ok {
		var u models.User
		if err := json.Unmarshal(raw, &u); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		s.user = &u
	}

	return s, nil
}

func (s *Session) SignIn(token string, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Set(KeyToken, []byte(token)); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	s.token = token
	return s.saveUser(user)
}

// UpdateUser replaces the profile snapshot, keeping the token.
func (s *Session) UpdateUser(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveUser(user)
}

func (s *Session) saveUser(user *models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.storage.Set(KeyUser, raw); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	s.user = user
	return nil
}

func (s *Session) SignOut() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.user = nil
	if err := s.storage.Delete(KeyToken); err != nil {
		return err
	}
	return s.storage.Delete(KeyUser)
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Authenticated reports whether the stored token is present and unexpired at now.
// The signature is not checked; only the server can do that.
func (s *Session) Authenticated(now time.Time) bool {
	token := s.Token()
	if token == "" {
		return false
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && now.Before(claims.ExpiresAt.Time)
}
