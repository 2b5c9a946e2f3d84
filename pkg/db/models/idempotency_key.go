package models

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyKey maps a client-supplied placement token to the order it
// resolved to. The unique index on Token is the arbiter for concurrent
// duplicate submissions: the losing insert collapses into a lookup.
type IdempotencyKey struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Token     string    `gorm:"column:token;not null;uniqueIndex:ux_idempotency_keys_token"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
}
