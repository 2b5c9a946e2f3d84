package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/omarserrano/dishpatch-backend/pkg/enums"
	"github.com/omarserrano/dishpatch-backend/pkg/types"
)

// OrderPlacedLineItem is one frozen line inside an OrderPlacedEvent.
type OrderPlacedLineItem struct {
	MenuItemID     uuid.UUID         `json:"menu_item_id"`
	Name           string            `json:"name"`
	UnitPriceCents int64             `json:"unit_price_cents"`
	Quantity       int               `json:"quantity"`
	Options        types.ItemOptions `json:"options,omitempty"`
	LineTotalCents int64             `json:"line_total_cents"`
}

// OrderPlacedEvent is emitted exactly when an order row is committed. The
// amounts are the frozen snapshot totals, not live cart values.
type OrderPlacedEvent struct {
	OrderID          uuid.UUID             `json:"order_id"`
	CartID           uuid.UUID             `json:"cart_id"`
	CustomerID       uuid.UUID             `json:"customer_id"`
	RestaurantID     uuid.UUID             `json:"restaurant_id"`
	SubtotalCents    int64                 `json:"subtotal_cents"`
	TaxCents         int64                 `json:"tax_cents"`
	DeliveryFeeCents int64                 `json:"delivery_fee_cents"`
	TotalCents       int64                 `json:"total_cents"`
	DeliveryAddress  string                `json:"delivery_address"`
	PlacedAt         time.Time             `json:"placed_at"`
	LineItems        []OrderPlacedLineItem `json:"line_items"`
}

// OrderStatusChangedEvent reports a status transition on an existing order.
type OrderStatusChangedEvent struct {
	OrderID      uuid.UUID         `json:"order_id"`
	CustomerID   uuid.UUID         `json:"customer_id"`
	RestaurantID uuid.UUID         `json:"restaurant_id"`
	FromStatus   enums.OrderStatus `json:"from_status"`
	ToStatus     enums.OrderStatus `json:"to_status"`
	Notes        string            `json:"notes,omitempty"`
	ChangedAt    time.Time         `json:"changed_at"`
}
