package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supawave/supawave-backend/pkg/db/models"
)

type fakePublisher struct {
	channel string
	body    []byte
	err     error
	calls   int
}

func (f *fakePublisher) Publish(_ context.Context, channel string, message any) error {
	f.calls++
	f.channel = channel
	if b, ok := message.([]byte); ok {
		f.body = b
	}
	return f.err
}

func (f *fakePublisher) StockChannel(businessID string) string {
	return "sw:stock:" + businessID
}

func TestRedisNotifierPublishesJSON(t *testing.T) {
	pub := &fakePublisher{}
	n := NewRedisNotifier(pub, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return fixed }

	businessID := uuid.New()
	transferID := uuid.New()
	line := &models.StoreInventory{StoreID: uuid.New(), ProductID: uuid.New(), Quantity: 20, ReservedQuantity: 0}
	n.StockChanged(context.Background(), businessID, []StockChange{ChangeFromLine(line, -30, "transfer_out", &transferID)})

	require.Equal(t, 1, pub.calls)
	assert.Equal(t, "sw:stock:"+businessID.String(), pub.channel)

	var msg StockMessage
	require.NoError(t, json.Unmarshal(pub.body, &msg))
	assert.Equal(t, "stock_changed", msg.Type)
	assert.Equal(t, businessID, msg.BusinessID)
	assert.True(t, msg.SentAt.Equal(fixed))
	require.Len(t, msg.Changes, 1)
	assert.Equal(t, 20, msg.Changes[0].Quantity)
	assert.Equal(t, -30, msg.Changes[0].Delta)
	assert.Equal(t, &transferID, msg.Changes[0].TransferID)
}

func TestRedisNotifierSwallowsPublishErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection refused")}
	n := NewRedisNotifier(pub, nil)

	assert.NotPanics(t, func() {
		n.StockChanged(context.Background(), uuid.New(), []StockChange{{StoreID: uuid.New(), ProductID: uuid.New()}})
	})
	assert.Equal(t, 1, pub.calls)
}

func TestRedisNotifierSkipsEmptyBatches(t *testing.T) {
	pub := &fakePublisher{}
	NewRedisNotifier(pub, nil).StockChanged(context.Background(), uuid.New(), nil)
	assert.Zero(t, pub.calls)

	var nilNotifier *RedisNotifier
	assert.NotPanics(t, func() { nilNotifier.StockChanged(context.Background(), uuid.New(), []StockChange{{}}) })
}
