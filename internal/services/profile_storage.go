package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ProfilePicturePrefix is the public URL prefix for locally stored pictures.
const ProfilePicturePrefix = "/uploads/profiles/"

// PictureStorage persists profile pictures and returns the path or URL that
// is stored on the user record.
type PictureStorage interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Remove(ctx context.Context, storedPath string) error
}

// LocalPictureStorage writes pictures under <root>/profiles. root is the
// directory served at /uploads.
type LocalPictureStorage struct {
	root string
}

func NewLocalPictureStorage(root string) (*LocalPictureStorage, error) {
	if err := os.MkdirAll(filepath.Join(root, "profiles"), 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalPictureStorage{root: root}, nil
}

func (s *LocalPictureStorage) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	name := path.Base(filepath.ToSlash(filename))
	if name == "." || name == "/" || name == ".." {
		return "", errors.New("invalid filename")
	}

	dst, err := os.OpenFile(filepath.Join(s.root, "profiles", name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create picture file: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write picture file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close picture file: %w", err)
	}
	return ProfilePicturePrefix + name, nil
}

// Remove deletes a locally stored picture. Paths outside the profiles prefix
// (e.g. Cloudinary URLs from an earlier configuration) are ignored, and a
// missing file is not an error.
func (s *LocalPictureStorage) Remove(ctx context.Context, storedPath string) error {
	if !strings.HasPrefix(storedPath, ProfilePicturePrefix) {
		return nil
	}
	name := path.Base(strings.TrimPrefix(storedPath, ProfilePicturePrefix))
	if name == "." || name == "/" || name == ".." {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, "profiles", name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
