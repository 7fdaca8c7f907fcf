package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

var ErrInvalidRef = errors.New("invalid file reference")

// FileStore keeps uploads on local disk under root. References are slash
// separated paths relative to root, e.g. "avatars/<uuid>.png".
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) Root() string {
	return s.root
}

func (s *FileStore) Save(ctx context.Context, folder string, upload *domain.ImageUpload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if folder == "" || strings.ContainsAny(folder, `/\.`) {
		return "", fmt.Errorf("%w: folder %q", ErrInvalidRef, folder)
	}

	dir := filepath.Join(s.root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	name := uuid.NewString() + upload.Extension()
	if err := os.WriteFile(filepath.Join(dir, name), upload.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return path.Join(folder, name), nil
}

// Delete removes the referenced file. A missing file is not an error.
func (s *FileStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full, err := s.resolve(ref)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *FileStore) resolve(ref string) (string, error) {
	clean := path.Clean("/" + ref)
	if ref == "" || clean == "/" || clean != "/"+ref {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean[1:])), nil
}

var _ ports.FileStore = (*FileStore)(nil)
