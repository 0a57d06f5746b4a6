package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	accessTokenFile  = "access_token.txt"
	refreshTokenFile = "refresh_token.txt"
)

// Store persists the access and refresh tokens as two plain-text slots
// under a secrets directory, one token per file, overwrite-on-save.
// Concurrent refreshes from multiple processes can race and overwrite each
// other; callers must serialize externally.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created lazily
// on the first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// AccessToken loads the current access token.
func (s *Store) AccessToken() (string, error) {
	return s.load("access", accessTokenFile)
}

// RefreshToken loads the current refresh token.
func (s *Store) RefreshToken() (string, error) {
	return s.load("refresh", refreshTokenFile)
}

// SaveAccessToken replaces the access token slot.
func (s *Store) SaveAccessToken(token string) error {
	return s.save(accessTokenFile, token)
}

// SaveRefreshToken replaces the refresh token slot.
func (s *Store) SaveRefreshToken(token string) error {
	return s.save(refreshTokenFile, token)
}

func (s *Store) load(slot, filename string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrTokenNotFound{Slot: slot, Err: err}
		}
		return "", fmt.Errorf("read %s token: %w", slot, err)
	}
	return strings.TrimRight(string(raw), "\n"), nil
}

func (s *Store) save(filename, token string) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create secrets directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, filename), []byte(token), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return nil
}
