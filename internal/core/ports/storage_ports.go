package ports

import (
	"context"

	"github.com/vncsmyrnk/polls/internal/core/domain"
)

// FileStore keeps uploaded images. The returned reference is opaque to the core.
type FileStore interface {
	Save(ctx context.Context, folder string, upload *domain.ImageUpload) (string, error)
	Delete(ctx context.Context, ref string) error
}
