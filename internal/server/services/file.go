package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/mycloud/internal/common"
	"github.com/dmitrijs2005/mycloud/internal/dbx"
	"github.com/dmitrijs2005/mycloud/internal/logging"
	"github.com/dmitrijs2005/mycloud/internal/server/authz"
	"github.com/dmitrijs2005/mycloud/internal/server/blob"
	"github.com/dmitrijs2005/mycloud/internal/server/models"
	"github.com/dmitrijs2005/mycloud/internal/server/repositories/repomanager"
)

// FileService orchestrates uploads, downloads, renames, deletes, and share
// links. Metadata mutations and quota updates commit in one transaction;
// blob writes happen before metadata exists, blob deletes after the
// metadata is gone, so the database never references bytes that were never
// stored.
type FileService struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	blobs  blob.Storage
	quota  *QuotaLedger
	logger logging.Logger
}

// NewFileService constructs a FileService.
func NewFileService(db *sql.DB, rm repomanager.RepositoryManager, blobs blob.Storage, quota *QuotaLedger, logger logging.Logger) *FileService {
	return &FileService{
		db:     db,
		rm:     rm,
		blobs:  blobs,
		quota:  quota,
		logger: logger.With("module", "files"),
	}
}

// Upload stores a new file for ownerID (the subject itself, or any user when
// the subject is an admin). The display name is kept as requested even when
// the owner already has a file with that name; only the derived stored path
// is unique. The record insert and the quota increment commit together; if
// that transaction fails the already-written blob is removed again.
func (s *FileService) Upload(ctx context.Context, subject *models.UserInfo, ownerID, name, comment string, size int64, content io.Reader) (*models.File, error) {
	if subject == nil {
		return nil, common.ErrorUnauthorized
	}
	if ownerID == "" {
		ownerID = subject.ID
	}
	if err := authz.CanActOnUser(subject, ownerID); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: file_name is required", common.ErrorInvalidArgument)
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: file_size must not be negative", common.ErrorInvalidArgument)
	}

	displayName, storedPath, err := s.resolveUploadIdentity(ctx, s.db, ownerID, name)
	if err != nil {
		return nil, err
	}

	key := blob.Key(ownerID, storedPath)
	if err := s.blobs.Write(ctx, key, content); err != nil {
		return nil, fmt.Errorf("%w: storing content: %v", common.ErrorTransient, err)
	}

	file := &models.File{
		UserID:     ownerID,
		Name:       displayName,
		StoredPath: storedPath,
		Size:       size,
		Comment:    comment,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.rm.Files(tx).Create(ctx, file); err != nil {
			return err
		}
		_, err := s.quota.ApplyDelta(ctx, tx, ownerID, size)
		return err
	})
	if err != nil {
		s.cleanupBlob(ctx, key)
		if errors.Is(err, common.ErrorConflict) {
			// Lost a same-second stored-path race to a concurrent upload.
			return nil, fmt.Errorf("%w: concurrent upload, retry", common.ErrorTransient)
		}
		return nil, fmt.Errorf("error creating file: %w", err)
	}

	s.logger.Info(ctx, "file uploaded", "user_id", ownerID, "file_id", file.ID, "size", size)

	return file, nil
}

func (s *FileService) cleanupBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn(ctx, "orphan blob left behind", "key", key, "error", err)
	}
}

// Download resolves the file, checks access, and returns the record with an
// open reader over its content. The caller must close the reader on every
// exit path. shared=true marks share-link access, which bypasses ownership.
//
// A record whose blob is gone is a data-integrity anomaly: it is logged and
// surfaced as common.ErrorInconsistent. The last-download timestamp is
// updated after the blob is confirmed readable and is best-effort: a failed
// timestamp write never aborts the download.
func (s *FileService) Download(ctx context.Context, subject *models.UserInfo, fileID string, shared bool) (*models.File, io.ReadCloser, error) {
	file, err := s.rm.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}

	if err := authz.CanAccessFile(subject, file, shared); err != nil {
		return nil, nil, err
	}

	key := blob.Key(file.UserID, file.StoredPath)

	exists, err := s.blobs.Exists(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: checking content: %v", common.ErrorTransient, err)
	}
	if !exists {
		s.logger.Error(ctx, "blob missing for live file record",
			"file_id", file.ID, "key", key)
		return nil, nil, common.ErrorInconsistent
	}

	rc, err := s.blobs.Open(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: opening content: %v", common.ErrorTransient, err)
	}

	now := timeNow().UTC()
	if err := s.rm.Files(s.db).SetLastDownload(ctx, file.ID, now); err != nil {
		s.logger.Warn(ctx, "could not record download time", "file_id", file.ID, "error", err)
	} else {
		file.LastDownloadAt = &now
	}

	return file, rc, nil
}

// Update applies a partial change to the two post-creation-mutable fields,
// file_name and comment, and returns the updated record. Both mutations
// commit in one transaction so a PATCH naming both fields is never half
// applied. Nil fields are left untouched; a present-but-empty value is
// rejected with the field named in the error.
func (s *FileService) Update(ctx context.Context, subject *models.UserInfo, fileID string, change *models.FileChange) (*models.File, error) {
	file, err := s.rm.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if err := authz.CanAccessFile(subject, file, false); err != nil {
		return nil, err
	}

	if change == nil || (change.Name == nil && change.Comment == nil) {
		return nil, fmt.Errorf("%w: nothing to update", common.ErrorInvalidArgument)
	}
	if change.Name != nil && *change.Name == "" {
		return nil, fmt.Errorf("%w: file_name is required", common.ErrorInvalidArgument)
	}
	if change.Comment != nil && *change.Comment == "" {
		return nil, fmt.Errorf("%w: comment is required", common.ErrorInvalidArgument)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.rm.Files(tx)
		if change.Name != nil {
			if err := repo.Rename(ctx, file.ID, *change.Name); err != nil {
				return fmt.Errorf("error renaming file: %w", err)
			}
		}
		if change.Comment != nil {
			if err := repo.UpdateComment(ctx, file.ID, *change.Comment); err != nil {
				return fmt.Errorf("error updating comment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if change.Name != nil {
		file.Name = *change.Name
	}
	if change.Comment != nil {
		file.Comment = *change.Comment
	}
	return file, nil
}

// Delete removes the file. The quota decrement (using the size recorded
// before deletion) and the record delete commit as one transaction, then
// the blob is removed. A blob removal failure after the commit is reported
// as common.ErrorPartialFailure, never as success.
func (s *FileService) Delete(ctx context.Context, subject *models.UserInfo, fileID string) error {
	file, err := s.rm.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		return err
	}

	if err := authz.CanAccessFile(subject, file, false); err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.quota.ApplyDelta(ctx, tx, file.UserID, -file.Size); err != nil {
			return err
		}
		return s.rm.Files(tx).Delete(ctx, file.ID)
	})
	if err != nil {
		return fmt.Errorf("error deleting file: %w", err)
	}

	key := blob.Key(file.UserID, file.StoredPath)
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Error(ctx, "record deleted but blob removal failed", "key", key, "error", err)
		return fmt.Errorf("%w: blob %s not removed", common.ErrorPartialFailure, key)
	}

	s.logger.Info(ctx, "file deleted", "user_id", file.UserID, "file_id", file.ID, "size", file.Size)

	return nil
}

// GetLink returns the file's share token, deriving and persisting it on
// first request. The derivation is deterministic, so every call for the
// same file yields the same token; once stored the link is immutable.
// Requesting a link requires a session but not ownership: handing the token
// out is exactly what sharing is for.
func (s *FileService) GetLink(ctx context.Context, subject *models.UserInfo, fileID string) (string, error) {
	if subject == nil {
		return "", common.ErrorUnauthorized
	}

	file, err := s.rm.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		return "", err
	}
	if file.Link != "" {
		return file.Link, nil
	}

	link := DeriveShareLink(file.ID)

	set, err := s.rm.Files(s.db).SetLink(ctx, file.ID, link)
	if err != nil {
		return "", fmt.Errorf("error storing link: %w", err)
	}
	if !set {
		// A concurrent request won; the stored value is authoritative.
		file, err = s.rm.Files(s.db).GetByID(ctx, fileID)
		if err != nil {
			return "", err
		}
		return file.Link, nil
	}

	return link, nil
}

// LookupByLink resolves a share token back to its file record.
func (s *FileService) LookupByLink(ctx context.Context, link string) (*models.File, error) {
	if link == "" {
		return nil, fmt.Errorf("%w: link is required", common.ErrorInvalidArgument)
	}
	return s.rm.Files(s.db).GetByLink(ctx, link)
}

// ListByUser returns ownerID's files for the owner itself or an admin.
func (s *FileService) ListByUser(ctx context.Context, subject *models.UserInfo, ownerID string) ([]*models.File, error) {
	if err := authz.CanActOnUser(subject, ownerID); err != nil {
		return nil, err
	}
	return s.rm.Files(s.db).ListByUser(ctx, ownerID)
}
