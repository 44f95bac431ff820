// Package sessions declares the repository contract for live session records.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/mycloud/internal/server/models"
)

// Repository defines operations for issuing, resolving, and revoking
// sessions. At most one live session exists per login; implementations
// enforce this with a uniqueness constraint on the login.
type Repository interface {
	// Create stores a new session. A live session for the same login yields
	// common.ErrorConflict.
	Create(ctx context.Context, session *models.Session) error

	// FindByToken resolves a session by its opaque token, returning
	// common.ErrorNotFound when absent.
	FindByToken(ctx context.Context, token string) (*models.Session, error)

	// FindByLogin returns the live session for login, if any.
	FindByLogin(ctx context.Context, login string) (*models.Session, error)

	// DeleteByLogin revokes the live session for login and reports whether
	// one existed. Revoking an absent session is not an error.
	DeleteByLogin(ctx context.Context, login string) (bool, error)
}
