// Package uploads stores complaint evidence files on local disk under
// content-addressed keys, so re-uploading the same document is a no-op
// and keys are safe to embed in URLs.
package uploads

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when no file exists for a key.
var ErrNotFound = errors.New("upload not found")

// MaxUploadSize bounds a single evidence file.
const MaxUploadSize = 25 << 20 // 25 MiB

// Store is a local-disk evidence store.
type Store struct {
	dir string
}

// New creates the store, making the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Put writes the content and returns its key: the base58-encoded
// SHA-256 of the bytes, with the original extension preserved for
// content-type sniffing on the way back out.
func (s *Store) Put(ctx context.Context, filename string, r io.Reader) (string, error) {
	limited := io.LimitReader(r, MaxUploadSize+1)

	tmp, err := os.CreateTemp(s.dir, "upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	hash := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, hash), limited)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if n > MaxUploadSize {
		return "", fmt.Errorf("upload exceeds %d bytes", MaxUploadSize)
	}

	key := base58.Encode(hash.Sum(nil))
	if ext := sanitizeExt(filename); ext != "" {
		key += ext
	}

	dest := filepath.Join(s.dir, key)
	if _, statErr := os.Stat(dest); statErr == nil {
		// Same content already stored.
		return key, nil
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}

	log.Debug().Str("key", key).Int64("bytes", n).Msg("Stored upload")

	return key, nil
}

// Open returns a reader for a stored file.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if key != filepath.Base(key) {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 8 {
		return ""
	}
	for _, r := range ext {
		switch {
		case r == '.':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		default:
			return ""
		}
	}
	return ext
}
