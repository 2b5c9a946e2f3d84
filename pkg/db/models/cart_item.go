package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/omarserrano/dishpatch-backend/pkg/types"
)

// CartItem is one line on a cart. Name and UnitPriceCents are snapshots of
// the menu record at add time. OptionsKey is the canonical form of Options
// and, together with MenuItemID, forms the merge key for repeated adds.
type CartItem struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID         uuid.UUID         `gorm:"column:cart_id;type:uuid;not null;index"`
	MenuItemID     uuid.UUID         `gorm:"column:menu_item_id;type:uuid;not null"`
	Name           string            `gorm:"column:name;not null"`
	UnitPriceCents int64             `gorm:"column:unit_price_cents;not null"`
	Quantity       int               `gorm:"column:quantity;not null"`
	Options        types.ItemOptions `gorm:"column:options;type:jsonb;serializer:json"`
	OptionsKey     string            `gorm:"column:options_key;not null;default:''"`
	LineTotalCents int64             `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
