// Package session holds the client-side login state: the session store and
// its durable storage, the route gate, and the login flow.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"strings"
	"sync"

	"github.com/FolkodeGroup/mediapp/pkg/api/client"
)

// User is the identity record returned by the API. It is kept opaque.
type User map[string]any

// DisplayName returns the first non-empty of name, username and email.
func (u User) DisplayName() string {
	for _, key := range []string{"name", "username", "email"} {
		if s, ok := u[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// Credentials are the values typed into the login form.
type Credentials struct {
	Username string
	Password string
}

// Authenticator performs the login request. *client.Client satisfies it.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (client.LoginResponse, error)
}

// ErrIncompleteLogin is returned when a login response lacks the user or the token.
var ErrIncompleteLogin = errors.New("session: login response missing user or token")

// State is a point-in-time copy of the session.
type State struct {
	User          User
	Token         string
	Loading       bool
	Authenticated bool
}

// Store owns the session state. It is safe for concurrent use.
type Store struct {
	auth    Authenticator
	storage Storage
	logger  *slog.Logger

	mu      sync.RWMutex
	user    User
	token   string
	loading bool

	restoreOnce sync.Once
}

// NewStore returns an empty store that reports Loading until Restore runs.
func NewStore(auth Authenticator, storage Storage, logger *slog.Logger) *Store {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{auth: auth, storage: storage, logger: logger, loading: true}
}

// Login authenticates and, on success, sets and persists user and token.
// On failure the error is returned unchanged and the state is untouched.
// A response without both user and token fails with ErrIncompleteLogin.
func (s *Store) Login(ctx context.Context, creds Credentials) error {
	resp, err := s.auth.Login(ctx, creds.Username, creds.Password)
	if err != nil {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		return err
	}
	user := User(resp.User)
	if user == nil || strings.TrimSpace(resp.Token) == "" {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		return ErrIncompleteLogin
	}

	s.mu.Lock()
	s.user = user
	s.token = resp.Token
	s.loading = false
	s.mu.Unlock()

	s.persist(user, resp.Token)
	s.logger.Debug("session started", "user", user.DisplayName())
	return nil
}

// Logout clears the session in memory and in storage. It never fails.
func (s *Store) Logout() {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.loading = false
	s.mu.Unlock()

	s.clearStored()
}

// Restore loads a previous session from storage. Only the first call does
// any work; Loading is false afterwards whatever the outcome.
func (s *Store) Restore() {
	s.restoreOnce.Do(func() {
		user, token, ok := s.readStored()

		s.mu.Lock()
		defer s.mu.Unlock()
		if ok && s.token == "" {
			s.user = user
			s.token = token
		}
		s.loading = false
	})
}

func (s *Store) readStored() (User, string, bool) {
	rawUser, okUser, err := s.storage.Get(KeyUser)
	if err != nil {
		s.logger.Warn("read stored user", "error", err)
		return nil, "", false
	}
	rawToken, okToken, err := s.storage.Get(KeyToken)
	if err != nil {
		s.logger.Warn("read stored token", "error", err)
		return nil, "", false
	}
	if !okUser || !okToken {
		return nil, "", false
	}
	var user User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil || user == nil {
		s.logger.Warn("stored user is not valid JSON", "error", err)
		return nil, "", false
	}
	var token string
	if err := json.Unmarshal([]byte(rawToken), &token); err != nil || token == "" {
		s.logger.Warn("stored token is not valid JSON", "error", err)
		return nil, "", false
	}
	return user, token, true
}

// persist writes user and token as a pair. If either write fails both keys
// are removed, so a later Restore never pairs one login's user with another's token.
func (s *Store) persist(user User, token string) {
	rawUser, err := json.Marshal(user)
	if err != nil {
		s.logger.Warn("encode session user", "error", err)
		s.clearStored()
		return
	}
	rawToken, err := json.Marshal(token)
	if err != nil {
		s.logger.Warn("encode session token", "error", err)
		s.clearStored()
		return
	}
	for _, kv := range [][2]string{{KeyUser, string(rawUser)}, {KeyToken, string(rawToken)}} {
		if err := s.storage.Set(kv[0], kv[1]); err != nil {
			s.logger.Warn("persist session value, dropping stored session", "key", kv[0], "error", err)
			s.clearStored()
			return
		}
	}
}

func (s *Store) clearStored() {
	for _, key := range []string{KeyUser, KeyToken} {
		if err := s.storage.Delete(key); err != nil {
			s.logger.Warn("remove session key", "key", key, "error", err)
		}
	}
}

// IsAuthenticated reports whether a token is held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Loading reports whether restoration has not completed yet.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Token returns the current token, empty when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		User:          maps.Clone(s.user),
		Token:         s.token,
		Loading:       s.loading,
		Authenticated: s.token != "",
	}
}
