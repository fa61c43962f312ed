package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Bruhadev45/Cardsnap-AI/internal/photostore"
)

type LocalPhotoStore struct {
	basePath string
}

func NewLocalPhotoStore(basePath string) (*LocalPhotoStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create photo directory: %w", err)
	}
	return &LocalPhotoStore{basePath: basePath}, nil
}

// Save writes r under key, replacing any previous content. A partially
// written file is removed.
func (s *LocalPhotoStore) Save(ctx context.Context, key string, r io.Reader) (int64, error) {
	filePath, err := s.safeJoin(key)
	if err != nil {
		return 0, err
	}

	f, err := os.Create(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	n, err := io.Copy(f, r)
	if err != nil {
		if cerr := f.Close(); cerr != nil {
			slog.Error("failed to close file after write error", "error", cerr)
		}
		if rerr := os.Remove(filePath); rerr != nil {
			slog.Error("failed to remove file after write error", "error", rerr)
		}
		return 0, fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		if rerr := os.Remove(filePath); rerr != nil {
			slog.Error("failed to remove file after close error", "error", rerr)
		}
		return 0, fmt.Errorf("failed to close file: %w", err)
	}
	return n, nil
}

func (s *LocalPhotoStore) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	filePath, err := s.safeJoin(key)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", photostore.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	return f, photostore.ExtToMimeType(filePath), nil
}

func (s *LocalPhotoStore) Delete(ctx context.Context, key string) error {
	filePath, err := s.safeJoin(key)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return photostore.ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalPhotoStore) Size(ctx context.Context, key string) (int64, error) {
	filePath, err := s.safeJoin(key)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, photostore.ErrNotFound
		}
		return 0, fmt.Errorf("failed to stat file: %w", err)
	}
	return info.Size(), nil
}

// safeJoin resolves key relative to basePath and rejects directory traversal.
func (s *LocalPhotoStore) safeJoin(key string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, key))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}
