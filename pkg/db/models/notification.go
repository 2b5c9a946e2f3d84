package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/omarserrano/dishpatch-backend/pkg/enums"
)

// Notification is a customer-facing message derived from order events.
type Notification struct {
	ID         uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID              `gorm:"column:customer_id;type:uuid;not null"`
	OrderID    *uuid.UUID             `gorm:"column:order_id;type:uuid"`
	Type       enums.NotificationType `gorm:"column:type;not null"`
	Title      string                 `gorm:"column:title;not null"`
	Message    string                 `gorm:"column:message;not null"`
	ReadAt     *time.Time             `gorm:"column:read_at"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime"`
}
