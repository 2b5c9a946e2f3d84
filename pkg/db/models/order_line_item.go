package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/omarserrano/dishpatch-backend/pkg/types"
)

// OrderLineItem is the immutable copy of a cart line taken at placement.
type OrderLineItem struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	MenuItemID     uuid.UUID         `gorm:"column:menu_item_id;type:uuid;not null"`
	Name           string            `gorm:"column:name;not null"`
	UnitPriceCents int64             `gorm:"column:unit_price_cents;not null"`
	Quantity       int               `gorm:"column:quantity;not null"`
	Options        types.ItemOptions `gorm:"column:options;type:jsonb;serializer:json"`
	LineTotalCents int64             `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
}
