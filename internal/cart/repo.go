package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omarserrano/dishpatch-backend/pkg/db/models"
	"github.com/omarserrano/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/omarserrano/dishpatch-backend/pkg/errors"
)

// ErrVersionConflict is returned when a compare-and-swap save loses to a
// concurrent writer. Callers reload the cart and retry.
var ErrVersionConflict = pkgerrors.New(pkgerrors.CodeConflict, "cart was modified concurrently")

// Repository persists carts and their line items.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new cart.
func (r *Repository) Create(ctx context.Context, record *models.Cart) (*models.Cart, error) {
	if record.Status == "" {
		record.Status = enums.CartStatusActive
	}
	if record.Version == 0 {
		record.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// FindByID loads a cart with its items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var record models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_items.created_at ASC")
		}).
		Where("id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Save writes the cart header and replaces its items under optimistic
// locking. The UPDATE only lands when the stored version still matches the
// version the caller read; a zero-row update means somebody got there first
// and the caller must reload and reapply.
func (r *Repository) Save(ctx context.Context, record *models.Cart) (*models.Cart, error) {
	currentVersion := record.Version
	nextVersion := currentVersion + 1

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Cart{}).
			Where("id = ? AND version = ? AND status = ?", record.ID, currentVersion, enums.CartStatusActive).
			Updates(map[string]any{
				"customer_id":        record.CustomerID,
				"restaurant_id":      record.RestaurantID,
				"version":            nextVersion,
				"subtotal_cents":     record.SubtotalCents,
				"tax_cents":          record.TaxCents,
				"delivery_fee_cents": record.DeliveryFeeCents,
				"total_cents":        record.TotalCents,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}

		if err := tx.Where("cart_id = ?", record.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if len(record.Items) == 0 {
			return nil
		}
		items := make([]models.CartItem, len(record.Items))
		copy(items, record.Items)
		for i := range items {
			items[i].CartID = record.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		record.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	record.Version = nextVersion
	return record, nil
}

// MarkConverted flips an active cart to converted, guarded by both status and
// version so a concurrent mutation or second placement cannot sneak through.
func (r *Repository) MarkConverted(ctx context.Context, id uuid.UUID, version int64) error {
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND version = ? AND status = ?", id, version, enums.CartStatusActive).
		Updates(map[string]any{
			"status":  enums.CartStatusConverted,
			"version": version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}
