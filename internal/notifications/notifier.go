package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/supawave/supawave-backend/pkg/db/models"
	"github.com/supawave/supawave-backend/pkg/logger"
	"github.com/supawave/supawave-backend/pkg/redis"
)

// StockChange is one (store, product) line after a committed mutation.
type StockChange struct {
	StoreID          uuid.UUID  `json:"store_id"`
	ProductID        uuid.UUID  `json:"product_id"`
	Quantity         int        `json:"quantity"`
	ReservedQuantity int        `json:"reserved_quantity"`
	Delta            int        `json:"delta"`
	Reason           string     `json:"reason"`
	TransferID       *uuid.UUID `json:"transfer_id,omitempty"`
}

// ChangeFromLine snapshots a ledger line.
func ChangeFromLine(line *models.StoreInventory, delta int, reason string, transferID *uuid.UUID) StockChange {
	return StockChange{
		StoreID:          line.StoreID,
		ProductID:        line.ProductID,
		Quantity:         line.Quantity,
		ReservedQuantity: line.ReservedQuantity,
		Delta:            delta,
		Reason:           reason,
		TransferID:       transferID,
	}
}

// StockNotifier is told about stock changes after their transaction commits.
// Implementations must not fail the caller; delivery is best effort.
type StockNotifier interface {
	StockChanged(ctx context.Context, businessID uuid.UUID, changes []StockChange)
}

// Noop drops every notification.
type Noop struct{}

func (Noop) StockChanged(context.Context, uuid.UUID, []StockChange) {}

// StockMessage is the JSON published on the business stock channel.
type StockMessage struct {
	Type       string        `json:"type"`
	BusinessID uuid.UUID     `json:"business_id"`
	Changes    []StockChange `json:"changes"`
	SentAt     time.Time     `json:"sent_at"`
}

const stockMessageType = "stock_changed"

// RedisNotifier publishes stock changes on sw:stock:<business_id> for the
// realtime dashboard feed.
type RedisNotifier struct {
	pub     redis.Publisher
	logg    *logger.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewRedisNotifier builds a notifier on top of the shared redis client.
func NewRedisNotifier(pub redis.Publisher, logg *logger.Logger) *RedisNotifier {
	if logg == nil {
		logg = logger.Nop()
	}
	return &RedisNotifier{
		pub:     pub,
		logg:    logg,
		timeout: 2 * time.Second,
		now:     time.Now,
	}
}

func (n *RedisNotifier) StockChanged(ctx context.Context, businessID uuid.UUID, changes []StockChange) {
	if n == nil || n.pub == nil || len(changes) == 0 {
		return
	}
	// The request may already be finishing; publish on a detached deadline.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	msg := StockMessage{
		Type:       stockMessageType,
		BusinessID: businessID,
		Changes:    changes,
		SentAt:     n.now().UTC(),
	}
	channel := n.pub.StockChannel(businessID.String())
	body, err := json.Marshal(msg)
	if err == nil {
		err = n.pub.Publish(pubCtx, channel, body)
	}
	if err != nil {
		logCtx := n.logg.WithFields(ctx, map[string]any{
			"channel": channel,
			"changes": len(changes),
		})
		n.logg.Warn(logCtx, "stock notification publish failed: "+err.Error())
	}
}
