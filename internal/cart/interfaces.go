package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omarserrano/dishpatch-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service
// and the placement orchestrator. The durable store is always authoritative;
// the cache mirror layers on top of it.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	Create(ctx context.Context, record *models.Cart) (*models.Cart, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	Save(ctx context.Context, record *models.Cart) (*models.Cart, error)
	MarkConverted(ctx context.Context, id uuid.UUID, version int64) error
}

// CacheMirror is the non-authoritative read acceleration layer. Every method
// is best-effort: a cache failure never fails the calling operation.
type CacheMirror interface {
	Get(ctx context.Context, cartID uuid.UUID) (*models.Cart, bool)
	Refresh(ctx context.Context, record *models.Cart)
	Invalidate(ctx context.Context, cartID uuid.UUID)
}

// Service exposes cart lifecycle and mutation operations.
type Service interface {
	CreateCart(ctx context.Context, input CreateCartInput) (*models.Cart, error)
	GetCart(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, cartID uuid.UUID, input AddItemInput) (*models.Cart, error)
	UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.Cart, error)
	ClearCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error)
}
