package menu

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omarserrano/dishpatch-backend/pkg/db/models"
	pkgerrors "github.com/omarserrano/dishpatch-backend/pkg/errors"
)

// ItemReader is the catalog surface the cart service depends on: resolve a
// menu item to its restaurant binding, display name, and live price.
type ItemReader interface {
	GetItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error)
}

// Repository reads menu items from the catalog tables.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a menu repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetItem loads a menu item by id. Unavailable items resolve to a conflict
// so callers surface "item not orderable" rather than "item missing".
func (r *Repository) GetItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	var item models.MenuItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
	}
	if !item.Available {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "menu item is not available")
	}
	return &item, nil
}
