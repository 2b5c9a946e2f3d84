package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/omarserrano/dishpatch-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ledgerReaper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// LedgerReaperJobParams configure the idempotency ledger reaper.
type LedgerReaperJobParams struct {
	Logger *logger.Logger
	Ledger ledgerReaper
}

// NewLedgerReaperJob builds the job that reaps expired idempotency records.
// A reaped token behaves like a fresh one afterwards, which is the contract:
// retries arriving after the record TTL are new placements.
func NewLedgerReaperJob(params LedgerReaperJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &ledgerReaperJob{
		logg:   params.Logger,
		ledger: params.Ledger,
		now:    time.Now,
	}, nil
}

type ledgerReaperJob struct {
	logg   *logger.Logger
	ledger ledgerReaper
	now    func() time.Time
}

func (j *ledgerReaperJob) Name() string { return "ledger-reaper" }

func (j *ledgerReaperJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	deleted, err := j.ledger.DeleteExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("ledger reap: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"as_of":        now,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "expired idempotency records reaped")
	return nil
}
