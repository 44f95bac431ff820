package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"unicode"

	"github.com/dmitrijs2005/mycloud/internal/common"
	"github.com/dmitrijs2005/mycloud/internal/dbx"
	"github.com/dmitrijs2005/mycloud/internal/logging"
	"github.com/dmitrijs2005/mycloud/internal/server/auth"
	"github.com/dmitrijs2005/mycloud/internal/server/authz"
	"github.com/dmitrijs2005/mycloud/internal/server/blob"
	"github.com/dmitrijs2005/mycloud/internal/server/models"
	"github.com/dmitrijs2005/mycloud/internal/server/repositories/repomanager"
)

var (
	loginPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9]{3,19}$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// validatePassword enforces the signup password policy: at least six
// characters containing at least one letter and one digit.
func validatePassword(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", common.ErrorInvalidArgument)
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("%w: password must contain a letter and a digit", common.ErrorInvalidArgument)
	}
	return nil
}

// UserService implements account management: registration, listing,
// partial updates, deletion, and the bootstrap administrator.
type UserService struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	hasher auth.PasswordHasher
	blobs  blob.Storage
	logger logging.Logger
}

// NewUserService constructs a UserService.
func NewUserService(db *sql.DB, rm repomanager.RepositoryManager, hasher auth.PasswordHasher, blobs blob.Storage, logger logging.Logger) *UserService {
	return &UserService{
		db:     db,
		rm:     rm,
		hasher: hasher,
		blobs:  blobs,
		logger: logger.With("module", "users"),
	}
}

// Register creates a regular (non-admin) account. Registration is open, no
// session required. A taken login is reported as common.ErrorConflict; the
// unique index on login makes the check atomic under concurrent signups.
func (s *UserService) Register(ctx context.Context, name, login, email, password string) (*models.UserInfo, error) {
	if !loginPattern.MatchString(login) {
		return nil, fmt.Errorf("%w: login must start with a letter and be 4-20 letters or digits", common.ErrorInvalidArgument)
	}
	if !emailPattern.MatchString(email) {
		return nil, fmt.Errorf("%w: invalid email", common.ErrorInvalidArgument)
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if name == "" {
		name = login
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Name:         name,
		Login:        login,
		PasswordHash: hash,
		Email:        email,
	}

	if _, err := s.rm.Users(s.db).Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "login", login)

	return user.Info(), nil
}

// Get returns the target account's public projection. Regular users may
// only fetch themselves.
func (s *UserService) Get(ctx context.Context, subject *models.UserInfo, targetID string) (*models.UserInfo, error) {
	if err := authz.CanActOnUser(subject, targetID); err != nil {
		return nil, err
	}
	user, err := s.rm.Users(s.db).GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return user.Info(), nil
}

// List returns all accounts. Administrators only.
func (s *UserService) List(ctx context.Context, subject *models.UserInfo) ([]*models.UserInfo, error) {
	if subject == nil {
		return nil, common.ErrorUnauthorized
	}
	if !authz.CanActAsAdmin(subject) {
		return nil, common.ErrorForbidden
	}

	users, err := s.rm.Users(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}

	result := make([]*models.UserInfo, 0, len(users))
	for _, u := range users {
		result = append(result, u.Info())
	}
	return result, nil
}

// Update applies a partial change to the target account. Users may change
// their own name, email, and password; the admin flag is admin-only. All
// requested fields commit in one transaction.
func (s *UserService) Update(ctx context.Context, subject *models.UserInfo, targetID string, change *models.UserChange) (*models.UserInfo, error) {
	if err := authz.CanMutateUser(subject, targetID, change); err != nil {
		return nil, err
	}

	current, err := s.rm.Users(s.db).GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	name := current.Name
	email := current.Email
	if change.Name != nil {
		if *change.Name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", common.ErrorInvalidArgument)
		}
		name = *change.Name
	}
	if change.Email != nil {
		if !emailPattern.MatchString(*change.Email) {
			return nil, fmt.Errorf("%w: invalid email", common.ErrorInvalidArgument)
		}
		email = *change.Email
	}

	var hash string
	if change.Password != nil {
		if err := validatePassword(*change.Password); err != nil {
			return nil, err
		}
		if hash, err = s.hasher.Hash(*change.Password); err != nil {
			return nil, fmt.Errorf("error hashing password: %w", err)
		}
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.rm.Users(tx)
		if change.Name != nil || change.Email != nil {
			if err := repo.UpdateInfo(ctx, targetID, name, email); err != nil {
				return err
			}
		}
		if change.Password != nil {
			if err := repo.UpdatePassword(ctx, targetID, hash); err != nil {
				return err
			}
		}
		if change.Admin != nil {
			if err := repo.SetAdmin(ctx, targetID, *change.Admin); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error updating user: %w", err)
	}

	updated, err := s.rm.Users(s.db).GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return updated.Info(), nil
}

// Delete removes the target account. Administrators only; an admin cannot
// delete itself. File records go with the account via the foreign key
// cascade, then the orphaned blobs are removed best-effort: a blob that
// cannot be deleted is logged and reported as common.ErrorPartialFailure,
// but the account stays gone.
func (s *UserService) Delete(ctx context.Context, subject *models.UserInfo, targetID string) error {
	if subject == nil {
		return common.ErrorUnauthorized
	}
	if !authz.CanActAsAdmin(subject) {
		return common.ErrorForbidden
	}
	if subject.ID == targetID {
		return fmt.Errorf("%w: cannot delete own account", common.ErrorInvalidArgument)
	}

	// The row lock freezes the file list: an upload commits its record and
	// quota increment under the same lock, so it either lands before the
	// list or blocks until the account is gone and fails, cleaning up its
	// own blob.
	var files []*models.File
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.rm.Users(tx).LockByID(ctx, targetID); err != nil {
			return err
		}
		var err error
		if files, err = s.rm.Files(tx).ListByUser(ctx, targetID); err != nil {
			return fmt.Errorf("error listing user files: %w", err)
		}
		return s.rm.Users(tx).Delete(ctx, targetID)
	})
	if err != nil {
		return err
	}

	var failed int
	for _, f := range files {
		key := blob.Key(f.UserID, f.StoredPath)
		if err := s.blobs.Delete(ctx, key); err != nil {
			failed++
			s.logger.Error(ctx, "blob removal failed for deleted user", "key", key, "error", err)
		}
	}

	s.logger.Info(ctx, "user deleted", "user_id", targetID, "files", len(files))

	if failed > 0 {
		return fmt.Errorf("%w: %d blobs not removed", common.ErrorPartialFailure, failed)
	}
	return nil
}

// EnsureAdmin creates the bootstrap administrator account if no account
// with the given login exists yet. Idempotent: an existing account, admin
// or not, is left untouched.
func (s *UserService) EnsureAdmin(ctx context.Context, name, login, email, password string) error {
	if _, err := s.rm.Users(s.db).GetByLogin(ctx, login); err == nil {
		return nil
	} else if !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("error searching user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Name:         name,
		Login:        login,
		PasswordHash: hash,
		Email:        email,
		Admin:        true,
	}

	if _, err := s.rm.Users(s.db).Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrorConflict) {
			// Another instance won the bootstrap race.
			return nil
		}
		return fmt.Errorf("error creating admin: %w", err)
	}

	s.logger.Info(ctx, "bootstrap admin created", "login", login)

	return nil
}
