package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/omarserrano/dishpatch-backend/pkg/enums"
)

// Order is an immutable snapshot taken from a cart at placement time. Totals
// and line items never change after creation; only Status advances, with the
// full trail kept in StatusEvents.
type Order struct {
	ID                  uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID              uuid.UUID          `gorm:"column:cart_id;type:uuid;not null"`
	CustomerID          uuid.UUID          `gorm:"column:customer_id;type:uuid;not null"`
	RestaurantID        uuid.UUID          `gorm:"column:restaurant_id;type:uuid;not null"`
	Status              enums.OrderStatus  `gorm:"column:status;not null;default:'pending'"`
	SubtotalCents       int64              `gorm:"column:subtotal_cents;not null"`
	TaxCents            int64              `gorm:"column:tax_cents;not null"`
	DeliveryFeeCents    int64              `gorm:"column:delivery_fee_cents;not null"`
	TotalCents          int64              `gorm:"column:total_cents;not null"`
	DeliveryAddress     string             `gorm:"column:delivery_address;not null"`
	SpecialInstructions *string            `gorm:"column:special_instructions"`
	PlacedAt            time.Time          `gorm:"column:placed_at;not null"`
	Items               []OrderLineItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusEvents        []OrderStatusEvent `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
