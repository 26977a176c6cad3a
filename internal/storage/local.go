package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStore keeps images under a directory served at urlPrefix.
type LocalStore struct {
	dir       string
	urlPrefix string
}

func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, folder), 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (s *LocalStore) Save(_ context.Context, upload Upload) (Object, error) {
	key, _, err := objectKey(upload.Name)
	if err != nil {
		return Object{}, err
	}

	f, err := os.Create(filepath.Join(s.dir, filepath.FromSlash(key)))
	if err != nil {
		return Object{}, fmt.Errorf("create image file: %w", err)
	}

	if _, err := io.Copy(f, upload.Body); err != nil {
		f.Close()
		return Object{}, fmt.Errorf("write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		return Object{}, fmt.Errorf("close image file: %w", err)
	}

	return Object{URL: path.Join(s.urlPrefix, key), Filename: key}, nil
}

func (s *LocalStore) Delete(_ context.Context, filename string) error {
	// Only keys this store issued are deleted.
	if filename == "" || !strings.HasPrefix(filename, folder+"/") || strings.Contains(filename, "..") {
		return nil
	}

	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(filename)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete image file: %w", err)
	}
	return nil
}
