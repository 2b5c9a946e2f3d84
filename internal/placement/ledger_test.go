package placement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbpkg "github.com/omarserrano/dishpatch-backend/pkg/db"
	"github.com/omarserrano/dishpatch-backend/pkg/db/models"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS idempotency_keys (
  id TEXT PRIMARY KEY,
  token TEXT NOT NULL,
  order_id TEXT NOT NULL,
  created_at DATETIME,
  expires_at DATETIME NOT NULL
);`
	idx := `CREATE UNIQUE INDEX IF NOT EXISTS ux_idempotency_keys_token ON idempotency_keys (token);`
	require.NoError(t, db.Exec(ddl).Error)
	require.NoError(t, db.Exec(idx).Error)
	t.Cleanup(func() {
		db.Exec("DELETE FROM idempotency_keys")
	})
	return db
}

func TestLedgerInsertAndFind(t *testing.T) {
	db := setupLedgerTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	orderID := uuid.New()
	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.InsertTx(tx, models.IdempotencyKey{
			Token:     "tok-abc",
			OrderID:   orderID,
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		})
	})
	require.NoError(t, err)

	claim, err := ledger.FindByToken(ctx, "tok-abc")
	require.NoError(t, err)
	require.NotNil(t, claim)
	require.Equal(t, orderID, claim.OrderID)

	missing, err := ledger.FindByToken(ctx, "tok-unknown")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestLedgerDuplicateTokenHitsUniqueIndex(t *testing.T) {
	db := setupLedgerTestDB(t)
	ledger := NewLedger(db)

	insert := func(orderID uuid.UUID) error {
		return db.Transaction(func(tx *gorm.DB) error {
			return ledger.InsertTx(tx, models.IdempotencyKey{
				Token:     "tok-dup",
				OrderID:   orderID,
				ExpiresAt: time.Now().UTC().Add(time.Hour),
			})
		})
	}

	require.NoError(t, insert(uuid.New()))
	err := insert(uuid.New())
	require.Error(t, err)
	require.True(t, dbpkg.IsUniqueViolation(err, TokenConstraint))
}

func TestLedgerDeleteExpired(t *testing.T) {
	db := setupLedgerTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		if err := ledger.InsertTx(tx, models.IdempotencyKey{
			Token:     "tok-old",
			OrderID:   uuid.New(),
			ExpiresAt: now.Add(-time.Hour),
		}); err != nil {
			return err
		}
		return ledger.InsertTx(tx, models.IdempotencyKey{
			Token:     "tok-fresh",
			OrderID:   uuid.New(),
			ExpiresAt: now.Add(time.Hour),
		})
	}))

	deleted, err := ledger.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	fresh, err := ledger.FindByToken(ctx, "tok-fresh")
	require.NoError(t, err)
	require.NotNil(t, fresh)

	old, err := ledger.FindByToken(ctx, "tok-old")
	require.NoError(t, err)
	require.Nil(t, old)
}
