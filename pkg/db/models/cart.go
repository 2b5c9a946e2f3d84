package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/omarserrano/dishpatch-backend/pkg/enums"
)

// Cart is the durable source of truth for a shopping cart. CustomerID is nil
// for guest carts; RestaurantID is nil until the first item binds the cart to
// a restaurant. Version backs the compare-and-swap save path.
type Cart struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID       *uuid.UUID       `gorm:"column:customer_id;type:uuid"`
	RestaurantID     *uuid.UUID       `gorm:"column:restaurant_id;type:uuid"`
	Status           enums.CartStatus `gorm:"column:status;not null;default:'active'"`
	Version          int64            `gorm:"column:version;not null;default:1"`
	SubtotalCents    int64            `gorm:"column:subtotal_cents;not null;default:0"`
	TaxCents         int64            `gorm:"column:tax_cents;not null;default:0"`
	DeliveryFeeCents int64            `gorm:"column:delivery_fee_cents;not null;default:0"`
	TotalCents       int64            `gorm:"column:total_cents;not null;default:0"`
	Items            []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
