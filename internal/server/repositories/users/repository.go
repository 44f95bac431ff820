package users

import (
	"context"

	"github.com/dmitrijs2005/mycloud/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	UpdateInfo(ctx context.Context, id, name, email string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetAdmin(ctx context.Context, id string, admin bool) error
	Delete(ctx context.Context, id string) error

	// LockByID takes the user's row lock for the rest of the transaction.
	// Callers that must see a frozen view of the user's files (the delete
	// cascade) lock first; uploads contend on the same lock through
	// ApplyStorageDelta.
	LockByID(ctx context.Context, id string) error

	// ApplyStorageDelta adds delta to the user's storage counter in a single
	// atomic statement, clamping at zero. It returns the new total and
	// whether clamping occurred.
	ApplyStorageDelta(ctx context.Context, id string, delta int64) (int64, bool, error)
}
