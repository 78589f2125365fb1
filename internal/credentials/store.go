// Package credentials persists bridge whitelist tokens between runs.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotFound is returned by Load when no username is stored.
var ErrNotFound = errors.New("no stored username")

// Store loads and saves the username issued by a bridge.
type Store interface {
	Load(ctx context.Context, host string) (string, error)
	Save(ctx context.Context, host, username string) error
}

// FileStore keeps a single username in a flat text file. The host is not
// recorded; one file serves one bridge.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the stored username.
func (s *FileStore) Load(_ context.Context, _ string) (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	username := strings.TrimSpace(string(data))
	if username == "" {
		return "", ErrNotFound
	}
	return username, nil
}

// Save writes the username, replacing any previous one.
func (s *FileStore) Save(_ context.Context, _ string, username string) error {
	if err := os.WriteFile(s.path, []byte(username), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}
