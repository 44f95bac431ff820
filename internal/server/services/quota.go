package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/mycloud/internal/dbx"
	"github.com/dmitrijs2005/mycloud/internal/logging"
	"github.com/dmitrijs2005/mycloud/internal/server/repositories/repomanager"
)

// QuotaLedger maintains each user's consumed-storage counter. Every change
// goes through ApplyDelta, which runs a single atomic read-modify-write
// statement, so concurrent uploads and deletes cannot lose updates.
//
// Policy: the counter clamps at zero instead of failing. A decrement below
// zero can only mean the counter and the file records diverged at some
// earlier point; the clamp is logged as an accounting anomaly.
type QuotaLedger struct {
	rm     repomanager.RepositoryManager
	logger logging.Logger
}

// NewQuotaLedger constructs a ledger over the given repositories.
func NewQuotaLedger(rm repomanager.RepositoryManager, logger logging.Logger) *QuotaLedger {
	return &QuotaLedger{rm: rm, logger: logger.With("module", "quota")}
}

// ApplyDelta adds a signed byte delta to the user's counter and returns the
// new total. It runs on the caller's DBTX: passing the transaction of the
// triggering file mutation makes the ledger update and the mutation commit
// or roll back as one unit.
func (l *QuotaLedger) ApplyDelta(ctx context.Context, q dbx.DBTX, userID string, delta int64) (int64, error) {
	total, clamped, err := l.rm.Users(q).ApplyStorageDelta(ctx, userID, delta)
	if err != nil {
		return 0, fmt.Errorf("error applying storage delta: %w", err)
	}
	if clamped {
		l.logger.Warn(ctx, "storage counter clamped at zero", "user_id", userID, "delta", delta)
	}
	return total, nil
}
