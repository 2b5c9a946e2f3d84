package placement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omarserrano/dishpatch-backend/pkg/db/models"
)

// TokenConstraint is the unique index that arbitrates duplicate placement
// tokens. A violation means another request already claimed the token.
const TokenConstraint = "ux_idempotency_keys_token"

// LedgerRepository is the durable token -> order mapping.
type LedgerRepository interface {
	InsertTx(tx *gorm.DB, record models.IdempotencyKey) error
	FindByToken(ctx context.Context, token string) (*models.IdempotencyKey, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Ledger persists idempotency records next to the orders they resolve to.
type Ledger struct {
	db *gorm.DB
}

// NewLedger constructs the ledger repository.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// InsertTx writes the token claim inside the placement transaction. The
// unique index makes the insert the arbiter between concurrent duplicates.
func (l *Ledger) InsertTx(tx *gorm.DB, record models.IdempotencyKey) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return tx.Create(&record).Error
}

// FindByToken returns the record for a token, or nil when unclaimed. Expired
// records are still honored until reaped: replaying late is safer than
// double-charging.
func (l *Ledger) FindByToken(ctx context.Context, token string) (*models.IdempotencyKey, error) {
	var record models.IdempotencyKey
	err := l.db.WithContext(ctx).Where("token = ?", token).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// DeleteExpired reaps ledger rows past their expiry.
func (l *Ledger) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := l.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.IdempotencyKey{})
	return res.RowsAffected, res.Error
}
