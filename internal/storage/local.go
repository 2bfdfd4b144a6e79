package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"easel/internal/textutil"
)

// LocalStore writes and reads banner files under a single directory.
type LocalStore struct {
	dir string
}

// NewLocalStore constructs a store rooted at dir, creating it if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("storage: banners directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create banners directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Dir returns the directory the store writes into.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save writes data under the supplied filename and returns the full path.
// The filename is sanitized; path separators are rejected.
func (s *LocalStore) Save(filename string, data []byte) (string, error) {
	clean, err := s.resolve(filename)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(clean, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write banner: %w", err)
	}
	return clean, nil
}

// Read returns the contents of a previously saved banner.
func (s *LocalStore) Read(filename string) ([]byte, error) {
	clean, err := s.resolve(filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("storage: read banner: %w", err)
	}
	return data, nil
}

// Exists reports whether a banner file is present.
func (s *LocalStore) Exists(filename string) bool {
	clean, err := s.resolve(filename)
	if err != nil {
		return false
	}
	info, err := os.Stat(clean)
	return err == nil && !info.IsDir()
}

// Remove deletes a banner file if present.
func (s *LocalStore) Remove(filename string) error {
	clean, err := s.resolve(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(clean); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: remove banner: %w", err)
	}
	return nil
}

func (s *LocalStore) resolve(filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "", errors.New("storage: filename required")
	}
	if strings.ContainsAny(filename, `/\`) || filename != filepath.Base(filename) {
		return "", fmt.Errorf("storage: invalid filename %q", filename)
	}
	return filepath.Join(s.dir, filename), nil
}

// BannerFileName derives a stable, filesystem-safe banner filename from the
// request id and product name.
func BannerFileName(requestID, product string) string {
	token := textutil.SanitizeToken(product)
	short := requestID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("banner_%s_%s.png", token, short)
}

// LowResFileName derives the staging filename for the pre-upscale render.
func LowResFileName(requestID string) string {
	short := requestID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("lowres_%s.png", short)
}
