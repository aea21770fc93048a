// Package tokensvc keeps the bearer token of the portal user between runs.
package tokensvc

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

type FileStore struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// NewFileStore stores the token at path on fs; afero.NewOsFs() in production, afero.NewMemMapFs() in tests.
func NewFileStore(fs afero.Fs, path string) *FileStore {
	return &FileStore{fs: fs, path: path}
}

func (s *FileStore) Path() string { return s.path }

// Token returns the stored token, or an empty string if there is none.
func (s *FileStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Wrap(err, "reading token file")
	}
	return strings.TrimSpace(string(b)), nil
}

func (s *FileStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "creating token directory")
	}
	if err := afero.WriteFile(s.fs, s.path, []byte(token), 0o600); err != nil {
		return errors.Wrap(err, "writing token file")
	}
	return nil
}

// Clear logs out. Clearing a missing token is not an error.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing token file")
	}
	return nil
}
