package services

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/dmitrijs2005/mycloud/internal/common"
	"github.com/dmitrijs2005/mycloud/internal/dbx"
	"github.com/google/uuid"
)

// timeNow is a seam for tests.
var timeNow = time.Now

// storedPathAttempts bounds the search for a free on-disk name. One owner
// would need this many uploads within the same second to exhaust it.
const storedPathAttempts = 60

// DeriveShareLink derives the share token for a file id. The derivation is
// a name-based UUID (version 5) over the URL namespace, so it is stable:
// requesting a link for the same file twice yields the same token.
func DeriveShareLink(fileID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fileID)).String()
}

// resolveUploadIdentity decides the pair (display name, stored path) for a
// new upload.
//
// Display names are kept exactly as requested: duplicates within an owner's
// namespace are allowed, so uploading a second "report.pdf" never renames
// either copy. What must be unique per owner is the stored path: it is
// derived from the upload wall-clock second plus the declared extension, and
// while the owner already has a record on that path the timestamp is
// advanced one second and re-derived.
func (s *FileService) resolveUploadIdentity(ctx context.Context, q dbx.DBTX, ownerID, displayName string) (string, string, error) {
	repo := s.rm.Files(q)
	ext := path.Ext(displayName)
	t := timeNow().UTC()

	for i := 0; i < storedPathAttempts; i++ {
		storedPath := t.Add(time.Duration(i)*time.Second).Format("20060102150405") + ext

		exists, err := repo.ExistsStoredPath(ctx, ownerID, storedPath)
		if err != nil {
			return "", "", fmt.Errorf("error checking stored path: %w", err)
		}
		if !exists {
			return displayName, storedPath, nil
		}
	}

	return "", "", fmt.Errorf("%w: no free stored path for upload", common.ErrorConflict)
}
