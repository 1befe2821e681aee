package subscriptions

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record models the owner_subscriptions row written by the payment
// integration.
type Record struct {
	bun.BaseModel `bun:"table:owner_subscriptions"`

	// ID is the owner id.
	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	Tier      string    `bun:"tier"`
	UpdatedAt time.Time `bun:"updated_at"`
}
