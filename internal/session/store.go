// Package session owns the authentication lifecycle of one portal client:
// restoring a persisted identity, logging in against the remote API and
// logging out. Token and payload are always written and cleared together.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hmsportal/internal/model"
	"hmsportal/internal/service"
	"hmsportal/internal/storage"
)

// Persisted keys.
const (
	TokenKey   = "token"
	SessionKey = "session"
)

// persistFailure is shown when the API accepted the login but the portal could
// not store the session.
const persistFailure = "Unable to start your session, please try again"

// LoginResult is the outcome of Login. It never carries a Go error: failures
// are reported through Message.
type LoginResult struct {
	OK      bool
	Session *model.Session
	Message string
}

// Store holds the identity of one client in memory and mirrors it to storage.
type Store struct {
	storage storage.Storage
	auth    service.AuthService
	logger  zerolog.Logger

	mu       sync.RWMutex
	token    string
	current  *model.Session
	lastUsed time.Time

	restoreOnce sync.Once
	restored    chan struct{}
}

// NewStore creates an empty store. Call Restore before reading it.
func NewStore(st storage.Storage, auth service.AuthService, logger zerolog.Logger) *Store {
	return &Store{
		storage:  st,
		auth:     auth,
		logger:   logger,
		lastUsed: time.Now(),
		restored: make(chan struct{}),
	}
}

// Restore loads the persisted identity. Only a non-empty token together with a
// payload that decodes to a session with a role is accepted; anything else
// clears both keys. It never contacts the API and runs at most once; concurrent
// callers block until the first run finishes.
func (s *Store) Restore(ctx context.Context) {
	s.restoreOnce.Do(func() {
		defer close(s.restored)
		if err := s.restore(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("discarding persisted session")
			if err := s.storage.Delete(ctx, TokenKey, SessionKey); err != nil {
				s.logger.Error().Err(err).Msg("clear persisted session")
			}
		}
	})
}

var errNoSession = errors.New("no persisted session")

func (s *Store) restore(ctx context.Context) error {
	token, hasToken, err := s.storage.Get(ctx, TokenKey)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	payload, hasPayload, err := s.storage.Get(ctx, SessionKey)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	if !hasToken && !hasPayload {
		// Nothing to discard, but a lone key must not survive either.
		return s.storage.Delete(ctx, TokenKey, SessionKey)
	}
	if !hasToken || token == "" || !hasPayload {
		return errNoSession
	}

	var sess model.Session
	if err := json.Unmarshal([]byte(payload), &sess); err != nil {
		return fmt.Errorf("decode session: %w", err)
	}
	if !sess.Valid() {
		return fmt.Errorf("decode session: missing role")
	}

	s.set(token, &sess)
	return nil
}

// Restored is closed once Restore has finished.
func (s *Store) Restored() <-chan struct{} {
	return s.restored
}

// WaitRestored blocks until Restore has finished or ctx is done.
func (s *Store) WaitRestored(ctx context.Context) bool {
	select {
	case <-s.restored:
		return true
	case <-ctx.Done():
		return false
	}
}

// Login authenticates against the remote API and persists the result.
func (s *Store) Login(ctx context.Context, email, password string) (result LoginResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("login panicked")
			s.set("", nil)
			result = LoginResult{Message: service.DefaultLoginFailure}
		}
	}()

	s.Restore(ctx)
	s.set("", nil)

	resp, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.logger.Info().Err(err).Msg("login rejected")
		return LoginResult{Message: loginMessage(err)}
	}

	sess := resp.Session()
	payload, err := json.Marshal(sess)
	if err != nil {
		s.logger.Error().Err(err).Msg("encode session")
		return LoginResult{Message: persistFailure}
	}

	if err := s.storage.SetMany(ctx, map[string]string{
		TokenKey:   resp.Token,
		SessionKey: string(payload),
	}); err != nil {
		s.logger.Error().Err(err).Msg("persist session")
		if err := s.storage.Delete(ctx, TokenKey, SessionKey); err != nil {
			s.logger.Error().Err(err).Msg("roll back persisted session")
		}
		return LoginResult{Message: persistFailure}
	}

	s.set(resp.Token, &sess)
	s.logger.Info().Int64("user_id", sess.User.ID).Str("role", string(sess.Role())).Msg("logged in")
	return LoginResult{OK: true, Session: &sess}
}

func loginMessage(err error) string {
	var authErr *service.AuthError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	return service.DefaultLoginFailure
}

// Logout clears storage and memory. Memory is cleared even if storage fails.
// A pending restore finishes first so it cannot bring the session back.
func (s *Store) Logout(ctx context.Context) error {
	s.Restore(ctx)
	s.set("", nil)
	if err := s.storage.Delete(ctx, TokenKey, SessionKey); err != nil {
		return fmt.Errorf("clear persisted session: %w", err)
	}
	return nil
}

// Invalidate drops the session after the API rejected its token.
func (s *Store) Invalidate(ctx context.Context) {
	if err := s.Logout(ctx); err != nil {
		s.logger.Error().Err(err).Msg("invalidate session")
		return
	}
	s.logger.Info().Msg("session invalidated by api")
}

// Current returns a copy of the session, if any.
func (s *Store) Current() (model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return model.Session{}, false
	}
	return *s.current, true
}

// Authenticated reports whether a session is loaded.
func (s *Store) Authenticated() bool {
	_, ok := s.Current()
	return ok
}

// Token returns the bearer token, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Role returns the session's role, or "".
func (s *Store) Role() model.Role {
	sess, _ := s.Current()
	return sess.Role()
}

// EmployeeID is the only accessor pages use to find the current employee.
func (s *Store) EmployeeID() (int64, bool) {
	sess, ok := s.Current()
	if !ok {
		return 0, false
	}
	return sess.ResolveEmployeeID()
}

func (s *Store) set(token string, sess *model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.current = sess
}

func (s *Store) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *Store) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUsed
}
