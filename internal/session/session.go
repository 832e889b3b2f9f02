package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// State is the lifecycle of an admin session
type State string

const (
	StateAbsent      State = "absent"
	StateValid       State = "valid"
	StateInvalidated State = "invalidated"
)

// ErrNoSession is returned when an authenticated operation is attempted
// without a usable token.
var ErrNoSession = errors.New("no admin session")

const tokenFileName = "session.json"

type tokenFile struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Session holds the admin token pair and its lifecycle state. It is passed
// explicitly into every authenticated call site; nothing reads tokens from
// ambient process state. A 401 from any admin call invalidates the session
// for the remainder of the process.
type Session struct {
	mu      sync.Mutex
	state   State
	access  string
	refresh string
	path    string
	log     *zap.Logger
}

// Load reads the persisted token pair from stateDir. A missing file yields
// an absent session, not an error.
func Load(stateDir string, log *zap.Logger) (*Session, error) {
	s := &Session{
		state: StateAbsent,
		path:  filepath.Join(stateDir, tokenFileName),
		log:   log,
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		// A corrupt session file is treated as absent; the admin logs in again.
		log.Warn("Discarding unreadable session file", zap.String("path", s.path), zap.Error(err))
		return s, nil
	}
	if tf.AccessToken != "" {
		s.state = StateValid
		s.access = tf.AccessToken
		s.refresh = tf.RefreshToken
	}
	return s, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Token returns the bearer token, or ErrNoSession when the session is
// absent or has been invalidated.
func (s *Session) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateValid {
		return "", ErrNoSession
	}
	return s.access, nil
}

// RefreshToken returns the refresh token if one was issued.
func (s *Session) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh
}

// SetTokens stores a freshly issued token pair and persists it.
func (s *Session) SetTokens(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateValid
	s.access = access
	s.refresh = refresh

	data, err := json.Marshal(tokenFile{AccessToken: access, RefreshToken: refresh})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// Invalidate marks the session unusable after the server rejected its token.
// The persisted pair is removed so the next run starts unauthenticated.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateInvalidated {
		return
	}
	s.state = StateInvalidated
	s.access = ""
	s.refresh = ""
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("Failed to remove session file", zap.String("path", s.path), zap.Error(err))
	}
	s.log.Info("Admin session invalidated")
}

// Clear removes the token pair after an explicit logout.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateAbsent
	s.access = ""
	s.refresh = ""
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("Failed to remove session file", zap.String("path", s.path), zap.Error(err))
	}
}

// LooksExpired inspects the access token's exp claim without verifying the
// signature (the client holds no signing key). It is a local hint only;
// the server's 401 is the authoritative verdict.
func (s *Session) LooksExpired(now time.Time) bool {
	s.mu.Lock()
	access := s.access
	s.mu.Unlock()
	if access == "" {
		return false
	}

	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(access, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
