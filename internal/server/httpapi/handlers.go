package httpapi

import (
	"context"
	"io"
	"time"

	"github.com/dmitrijs2005/mycloud/internal/logging"
	"github.com/dmitrijs2005/mycloud/internal/server/models"
)

// SessionAPI is the slice of the session service the HTTP layer needs.
type SessionAPI interface {
	Login(ctx context.Context, login, password string) (*models.Session, *models.UserInfo, error)
	Resolve(ctx context.Context, token string) (*models.UserInfo, error)
	Logout(ctx context.Context, login string) (bool, error)
	CheckSession(ctx context.Context, login, password string) (*models.UserInfo, error)
}

// FileAPI is the slice of the file service the HTTP layer needs.
type FileAPI interface {
	Upload(ctx context.Context, subject *models.UserInfo, ownerID, name, comment string, size int64, content io.Reader) (*models.File, error)
	Download(ctx context.Context, subject *models.UserInfo, fileID string, shared bool) (*models.File, io.ReadCloser, error)
	Update(ctx context.Context, subject *models.UserInfo, fileID string, change *models.FileChange) (*models.File, error)
	Delete(ctx context.Context, subject *models.UserInfo, fileID string) error
	GetLink(ctx context.Context, subject *models.UserInfo, fileID string) (string, error)
	LookupByLink(ctx context.Context, link string) (*models.File, error)
	ListByUser(ctx context.Context, subject *models.UserInfo, ownerID string) ([]*models.File, error)
}

// UserAPI is the slice of the user service the HTTP layer needs.
type UserAPI interface {
	Register(ctx context.Context, name, login, email, password string) (*models.UserInfo, error)
	Get(ctx context.Context, subject *models.UserInfo, targetID string) (*models.UserInfo, error)
	List(ctx context.Context, subject *models.UserInfo) ([]*models.UserInfo, error)
	Update(ctx context.Context, subject *models.UserInfo, targetID string, change *models.UserChange) (*models.UserInfo, error)
	Delete(ctx context.Context, subject *models.UserInfo, targetID string) error
}

// Handlers bundles the services and settings the HTTP endpoints work with.
type Handlers struct {
	sessions  SessionAPI
	files     FileAPI
	users     UserAPI
	cookieTTL time.Duration
	logger    logging.Logger
}

// NewHandlers constructs the endpoint set. cookieTTL is the advisory
// max-age stamped on the session cookie.
func NewHandlers(sessions SessionAPI, files FileAPI, users UserAPI, cookieTTL time.Duration, logger logging.Logger) *Handlers {
	return &Handlers{
		sessions:  sessions,
		files:     files,
		users:     users,
		cookieTTL: cookieTTL,
		logger:    logger.With("module", "httpapi"),
	}
}
