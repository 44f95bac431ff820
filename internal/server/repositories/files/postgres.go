package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mycloud/internal/common"
	"github.com/dmitrijs2005/mycloud/internal/dbx"
	"github.com/dmitrijs2005/mycloud/internal/server/models"
)

// PostgresRepository implements file metadata storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new file record. A stored-path collision within the
// owner's namespace is reported as common.ErrorConflict so the caller can
// re-derive the path and retry.
func (r *PostgresRepository) Create(ctx context.Context, file *models.File) (*models.File, error) {
	query := `
		INSERT INTO files (user_id, file_name, stored_path, file_size, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		file.UserID, file.Name, file.StoredPath, file.Size, file.Comment).
		Scan(&file.ID, &file.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return file, nil
}

const selectFile = `SELECT id, user_id, file_name, stored_path, file_size, link, comment, created_at, last_download_at FROM files`

func (r *PostgresRepository) scanFile(row *sql.Row) (*models.File, error) {
	file := &models.File{}
	err := row.Scan(&file.ID, &file.UserID, &file.Name, &file.StoredPath,
		&file.Size, &file.Link, &file.Comment, &file.CreatedAt, &file.LastDownloadAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return file, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := selectFile + ` WHERE id = $1`
	return r.scanFile(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByLink(ctx context.Context, link string) (*models.File, error) {
	query := selectFile + ` WHERE link = $1 AND link <> ''`
	return r.scanFile(r.db.QueryRowContext(ctx, query, link))
}

// ListByUser returns the owner's files, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.File, error) {
	query := selectFile + ` WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		var item models.File
		if err := rows.Scan(&item.ID, &item.UserID, &item.Name, &item.StoredPath,
			&item.Size, &item.Link, &item.Comment, &item.CreatedAt, &item.LastDownloadAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) ExistsStoredPath(ctx context.Context, userID, storedPath string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM files WHERE user_id = $1 AND stored_path = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, storedPath).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
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

func (r *PostgresRepository) Rename(ctx context.Context, id, name string) error {
	query := `UPDATE files SET file_name = $2 WHERE id = $1`
	return r.exec(ctx, query, id, name)
}

func (r *PostgresRepository) UpdateComment(ctx context.Context, id, comment string) error {
	query := `UPDATE files SET comment = $2 WHERE id = $1`
	return r.exec(ctx, query, id, comment)
}

// SetLink writes the share token only when the record has none; a record
// with a link keeps it forever. The partial unique index on link guards
// global uniqueness.
func (r *PostgresRepository) SetLink(ctx context.Context, id, link string) (bool, error) {
	query := `UPDATE files SET link = $2 WHERE id = $1 AND link = ''`

	res, err := r.db.ExecContext(ctx, query, id, link)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return false, common.ErrorConflict
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) SetLastDownload(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE files SET last_download_at = $2 WHERE id = $1`
	return r.exec(ctx, query, id, at)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM files WHERE id = $1`
	return r.exec(ctx, query, id)
}
