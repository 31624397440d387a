package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/naveenspark/taskdash/pkg/domain"
)

const (
	tokenFile = "token"
	userFile  = "user"
)

// DefaultDir returns ~/.taskdash.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".taskdash"), nil
}

// Store persists the session as two files in a directory: the raw token and
// the JSON-encoded user. Every operation goes to disk so that a logout in
// one process is seen by the next request of another.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string { return s.dir }

// Token returns the stored token, or "" when there is none.
func (s *Store) Token() string {
	data, err := os.ReadFile(filepath.Join(s.dir, tokenFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Load returns the stored session. It returns ErrNoSession when no token is stored.
func (s *Store) Load() (*Session, error) {
	token := s.Token()
	if token == "" {
		return nil, ErrNoSession
	}
	var user *domain.User
	data, err := os.ReadFile(filepath.Join(s.dir, userFile))
	switch {
	case err == nil:
		var u domain.User
		if jsonErr := json.Unmarshal(data, &u); jsonErr == nil {
			user = &u
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("session.Load: %w", err)
	}
	return New(token, user), nil
}

// Set stores a new session. A nil user removes any previously stored user.
func (s *Store) Set(token string, user *domain.User) (*Session, error) {
	if token == "" {
		return nil, fmt.Errorf("session.Set: %w", ErrNoSession)
	}
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return nil, fmt.Errorf("session.Set: create dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, tokenFile), []byte(token), 0600); err != nil {
		return nil, fmt.Errorf("session.Set: save token: %w", err)
	}
	userPath := filepath.Join(s.dir, userFile)
	if user == nil {
		if err := os.Remove(userPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("session.Set: remove user: %w", err)
		}
		return New(token, nil), nil
	}
	data, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("session.Set: marshal user: %w", err)
	}
	if err := os.WriteFile(userPath, data, 0600); err != nil {
		return nil, fmt.Errorf("session.Set: save user: %w", err)
	}
	return New(token, user), nil
}

// Clear removes the stored session. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	for _, name := range []string{tokenFile, userFile} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("session.Clear: %w", err)
		}
	}
	return nil
}

// Current returns the stored session, or nil when there is none or it
// cannot be read.
func (s *Store) Current() *Session {
	sess, err := s.Load()
	if err != nil {
		return nil
	}
	return sess
}
