package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mycloud/internal/common"
	"github.com/dmitrijs2005/mycloud/internal/dbx"
	"github.com/dmitrijs2005/mycloud/internal/server/models"
)

// PostgresRepository implements user storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user. A duplicate login is reported as
// common.ErrorConflict.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (name, login, password_hash, email, is_admin)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Name, user.Login, user.PasswordHash, user.Email, user.Admin).
		Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const selectUser = `SELECT id, name, login, password_hash, email, is_admin, storage_size, created_at FROM users`

func (r *PostgresRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Name, &user.Login, &user.PasswordHash,
		&user.Email, &user.Admin, &user.StorageSize, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	query := selectUser + ` WHERE login = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, login))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := selectUser + ` WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

// List returns all users ordered by login.
func (r *PostgresRepository) List(ctx context.Context) ([]*models.User, error) {
	query := selectUser + ` ORDER BY login`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		var item models.User
		if err := rows.Scan(&item.ID, &item.Name, &item.Login, &item.PasswordHash,
			&item.Email, &item.Admin, &item.StorageSize, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdateInfo(ctx context.Context, id, name, email string) error {
	query := `UPDATE users SET name = $2, email = $3 WHERE id = $1`
	return r.exec(ctx, query, id, name, email)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2 WHERE id = $1`
	return r.exec(ctx, query, id, passwordHash)
}

func (r *PostgresRepository) SetAdmin(ctx context.Context, id string, admin bool) error {
	query := `UPDATE users SET is_admin = $2 WHERE id = $1`
	return r.exec(ctx, query, id, admin)
}

// Delete removes the user row. Files and sessions referencing it are removed
// by the ON DELETE CASCADE constraints.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`
	return r.exec(ctx, query, id)
}

// LockByID acquires the user's row lock. Only meaningful inside a
// transaction; the lock is held until commit or rollback.
func (r *PostgresRepository) LockByID(ctx context.Context, id string) error {
	query := `SELECT id FROM users WHERE id = $1 FOR UPDATE`

	var got string
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&got); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ApplyStorageDelta performs the quota read-modify-write as one statement so
// concurrent uploads cannot lose updates. The previous value is captured with
// FOR UPDATE to report clamping.
func (r *PostgresRepository) ApplyStorageDelta(ctx context.Context, id string, delta int64) (int64, bool, error) {
	query := `
		UPDATE users AS u
		SET storage_size = GREATEST(u.storage_size + $2, 0)
		FROM (SELECT storage_size FROM users WHERE id = $1 FOR UPDATE) AS prev
		WHERE u.id = $1
		RETURNING u.storage_size, prev.storage_size + $2 < 0
	`

	var total int64
	var clamped bool
	if err := r.db.QueryRowContext(ctx, query, id, delta).Scan(&total, &clamped); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, common.ErrorNotFound
		}
		return 0, false, fmt.Errorf("db error: %w", err)
	}
	return total, clamped, nil
}
