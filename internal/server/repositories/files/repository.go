package files

import (
	"context"
	"time"

	"github.com/dmitrijs2005/mycloud/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.File) (*models.File, error)
	GetByID(ctx context.Context, id string) (*models.File, error)
	GetByLink(ctx context.Context, link string) (*models.File, error)
	ListByUser(ctx context.Context, userID string) ([]*models.File, error)

	// ExistsStoredPath reports whether the owner already has a record using
	// the given on-disk path.
	ExistsStoredPath(ctx context.Context, userID, storedPath string) (bool, error)

	Rename(ctx context.Context, id, name string) error
	UpdateComment(ctx context.Context, id, comment string) error

	// SetLink assigns the share token if none is set yet. It returns false
	// when the record already carries a link (the link is immutable).
	SetLink(ctx context.Context, id, link string) (bool, error)

	SetLastDownload(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}
