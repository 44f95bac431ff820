// Package services contains server-side business logic. This file implements
// SessionService: establishing, resolving, and revoking cookie-carried
// sessions backed by server-side records.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mycloud/internal/common"
	"github.com/dmitrijs2005/mycloud/internal/logging"
	"github.com/dmitrijs2005/mycloud/internal/server/auth"
	"github.com/dmitrijs2005/mycloud/internal/server/models"
	"github.com/dmitrijs2005/mycloud/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// newSessionToken is a seam for tests; production uses random v4 UUIDs.
var newSessionToken = func() string { return uuid.NewString() }

// SessionService provides authentication-related operations:
//   - Login: verify credentials and open the single live session
//   - Resolve: map an opaque token back to its user
//   - Logout: revoke the live session
//   - CheckSession: confirm a live session together with credentials
type SessionService struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	hasher auth.PasswordHasher
	logger logging.Logger
}

// NewSessionService constructs a SessionService using repositories and the
// credential hasher.
func NewSessionService(db *sql.DB, rm repomanager.RepositoryManager, hasher auth.PasswordHasher, logger logging.Logger) *SessionService {
	return &SessionService{
		db:     db,
		rm:     rm,
		hasher: hasher,
		logger: logger.With("module", "sessions"),
	}
}

// Login verifies credentials and opens a session. An unknown login and a
// wrong password both return common.ErrorInvalidCredentials so callers
// cannot enumerate accounts; the unknown-login path still runs a hash
// comparison to keep timing comparable. A login that already has a live
// session yields common.ErrorConflict; the client must log out first. The
// sessions table's unique(login) index makes the check-then-act atomic under
// concurrent logins.
func (s *SessionService) Login(ctx context.Context, login, password string) (*models.Session, *models.UserInfo, error) {
	userRepo := s.rm.Users(s.db)

	user, err := userRepo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(password, auth.DummyDigest)
			return nil, nil, common.ErrorInvalidCredentials
		}
		return nil, nil, fmt.Errorf("error searching user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, nil, common.ErrorInvalidCredentials
	}

	session := &models.Session{
		Token:  newSessionToken(),
		Login:  user.Login,
		UserID: user.ID,
	}

	if err := s.rm.Sessions(s.db).Create(ctx, session); err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, nil, common.ErrorConflict
		}
		return nil, nil, fmt.Errorf("error creating session: %w", err)
	}

	s.logger.Info(ctx, "session opened", "login", user.Login)

	return session, user.Info(), nil
}

// Resolve maps the opaque token to the owning user's public projection. An
// unknown token resolves to (nil, nil): the caller treats that as
// unauthenticated, not as a failure.
func (s *SessionService) Resolve(ctx context.Context, token string) (*models.UserInfo, error) {
	if token == "" {
		return nil, nil
	}

	session, err := s.rm.Sessions(s.db).FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error searching session: %w", err)
	}

	user, err := s.rm.Users(s.db).GetByLogin(ctx, session.Login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// The subject vanished under a live session; treat the token
			// as dead rather than failing the request.
			return nil, nil
		}
		return nil, fmt.Errorf("error resolving session user: %w", err)
	}

	return user.Info(), nil
}

// Logout revokes the live session for login and reports whether one was
// removed. Logging out an already-logged-out login returns false, nil.
func (s *SessionService) Logout(ctx context.Context, login string) (bool, error) {
	removed, err := s.rm.Sessions(s.db).DeleteByLogin(ctx, login)
	if err != nil {
		return false, fmt.Errorf("error deleting session: %w", err)
	}
	if removed {
		s.logger.Info(ctx, "session closed", "login", login)
	}
	return removed, nil
}

// CheckSession confirms that login has a live session and that the supplied
// credentials are valid, returning the public user projection. An absent
// session yields common.ErrorUnauthorized.
func (s *SessionService) CheckSession(ctx context.Context, login, password string) (*models.UserInfo, error) {
	if _, err := s.rm.Sessions(s.db).FindByLogin(ctx, login); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching session: %w", err)
	}

	user, err := s.rm.Users(s.db).GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInvalidCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, common.ErrorInvalidCredentials
	}

	return user.Info(), nil
}
