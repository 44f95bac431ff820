// Package sessions provides a PostgreSQL-backed repository for live session
// records used in the server's authentication flow.
package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mycloud/internal/common"
	"github.com/dmitrijs2005/mycloud/internal/dbx"
	"github.com/dmitrijs2005/mycloud/internal/server/models"
)

// PostgresRepository implements session storage over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new session row. The unique index on login makes the
// check-then-act of login atomic: a concurrent duplicate insert fails here
// and is reported as common.ErrorConflict.
func (r *PostgresRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (token, login, user_id)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, session.Token, session.Login, session.UserID); err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) find(ctx context.Context, query, arg string) (*models.Session, error) {
	session := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&session.Token, &session.Login, &session.UserID, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return session, nil
}

// FindByToken returns the session row for the given opaque token.
// If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) FindByToken(ctx context.Context, token string) (*models.Session, error) {
	query := `
		SELECT token, login, user_id, created_at
		FROM sessions
		WHERE token = $1
	`
	return r.find(ctx, query, token)
}

// FindByLogin returns the live session for login, if any.
func (r *PostgresRepository) FindByLogin(ctx context.Context, login string) (*models.Session, error) {
	query := `
		SELECT token, login, user_id, created_at
		FROM sessions
		WHERE login = $1
	`
	return r.find(ctx, query, login)
}

// DeleteByLogin removes the live session for login and reports whether a row
// was deleted.
func (r *PostgresRepository) DeleteByLogin(ctx context.Context, login string) (bool, error) {
	query := `
		DELETE FROM sessions
		WHERE login = $1
	`
	res, err := r.db.ExecContext(ctx, query, login)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}
