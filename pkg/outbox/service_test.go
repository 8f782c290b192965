package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/supawave/supawave-backend/pkg/db/dbtest"
	"github.com/supawave/supawave-backend/pkg/db/models"
	"github.com/supawave/supawave-backend/pkg/enums"
	"github.com/supawave/supawave-backend/pkg/logger"
	"github.com/supawave/supawave-backend/pkg/outbox"
	"github.com/supawave/supawave-backend/pkg/outbox/payloads"
)

func TestEmitWritesEnvelopeInsideTx(t *testing.T) {
	client := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(client.DB()), logger.Nop())
	ctx := context.Background()

	aggregateID := uuid.New()
	actor := &outbox.ActorRef{UserID: uuid.New(), BusinessID: uuid.New(), Role: "owner"}
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransferApproved,
			AggregateType: enums.AggregateTransfer,
			AggregateID:   aggregateID,
			Actor:         actor,
			Data:          payloads.TransferStatusEvent{TransferID: aggregateID, Status: enums.TransferStatusInTransit},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, client.DB().Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, aggregateID, rows[0].AggregateID)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, actor.UserID, envelope.Actor.UserID)

	var data payloads.TransferStatusEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, enums.TransferStatusInTransit, data.Status)
}

func TestEmitRollsBackWithCaller(t *testing.T) {
	client := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(client.DB()), nil)
	ctx := context.Background()

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := svc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockChanged,
			AggregateType: enums.AggregateStoreInventory,
			AggregateID:   uuid.New(),
			Data:          payloads.StockChangedEvent{Quantity: 1},
		}); err != nil {
			return err
		}
		return errors.New("business failure")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitRequiresTxAndKnownTypes(t *testing.T) {
	svc := outbox.NewService(outbox.NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, outbox.DomainEvent{})
	require.Error(t, err)

	client := dbtest.Open(t)
	err = svc.Emit(context.Background(), client.DB(), outbox.DomainEvent{
		EventType:     "mystery",
		AggregateType: enums.AggregateTransfer,
		AggregateID:   uuid.New(),
	})
	require.Error(t, err)

	err = svc.Emit(context.Background(), client.DB(), outbox.DomainEvent{
		EventType:     enums.EventTransferApproved,
		AggregateType: enums.AggregateTransfer,
		Data:          payloads.TransferStatusEvent{},
	})
	require.ErrorContains(t, err, "aggregate id required")

	err = svc.Emit(context.Background(), client.DB(), outbox.DomainEvent{
		EventType:     enums.EventTransferApproved,
		AggregateType: enums.AggregateTransfer,
		AggregateID:   uuid.New(),
	})
	require.ErrorContains(t, err, "payload required")
}

func TestEmitIfNotExistsDeduplicates(t *testing.T) {
	client := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(client.DB()), nil)
	ctx := context.Background()
	event := outbox.DomainEvent{
		EventType:     enums.EventTransferStalled,
		AggregateType: enums.AggregateTransfer,
		AggregateID:   uuid.New(),
		Data:          payloads.TransferStalledEvent{Status: enums.TransferStatusPending},
	}

	for i := 0; i < 2; i++ {
		require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(ctx, tx, event)
		}))
	}

	var count int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	client := dbtest.Open(t)
	repo := outbox.NewRepository(client.DB())
	dlq := outbox.NewDLQRepository(client.DB())
	db := client.DB()

	newRow := func() models.OutboxEvent {
		row := models.OutboxEvent{
			ID:            uuid.New(),
			EventType:     enums.EventStockChanged,
			AggregateType: enums.AggregateStoreInventory,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"data":{}}`),
		}
		require.NoError(t, repo.Insert(db, row))
		return row
	}
	published := newRow()
	failing := newRow()
	terminal := newRow()

	require.NoError(t, repo.MarkPublishedTx(db, published.ID))
	require.NoError(t, repo.MarkFailedTx(db, failing.ID, errors.New("timeout")))
	require.NoError(t, repo.MarkTerminalTx(db, terminal.ID, errors.New("bad payload"), 5))

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, failing.ID, rows[0].ID)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Equal(t, "timeout", *rows[0].LastError)

	deleted, err := repo.DeletePublishedBefore(db, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	longMsg := strings.Repeat("x", 2048)
	require.NoError(t, dlq.InsertTx(db, models.OutboxDLQ{
		EventID:       terminal.ID,
		EventType:     terminal.EventType,
		AggregateType: terminal.AggregateType,
		AggregateID:   terminal.AggregateID,
		Payload:       terminal.Payload,
		ErrorReason:   enums.OutboxDLQReasonNonRetryable,
		ErrorMessage:  &longMsg,
	}))
	entry, err := dlq.FindByEventID(context.Background(), terminal.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Len(t, *entry.ErrorMessage, 1024)

	missing, err := dlq.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
