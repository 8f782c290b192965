package cron

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/supawave/supawave-backend/pkg/db/dbtest"
	"github.com/supawave/supawave-backend/pkg/db/models"
	"github.com/supawave/supawave-backend/pkg/enums"
	"github.com/supawave/supawave-backend/pkg/logger"
	"github.com/supawave/supawave-backend/pkg/outbox"
)

func TestOutboxRetentionJobDeletesOnlyOldPublishedRows(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	old := now.AddDate(0, 0, -31)
	recent := now.AddDate(0, 0, -2)
	rows := []struct {
		publishedAt *time.Time
	}{{&old}, {&recent}, {nil}}
	for _, r := range rows {
		row := models.OutboxEvent{
			EventType:     enums.EventStockChanged,
			AggregateType: enums.AggregateStoreInventory,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			PublishedAt:   r.publishedAt,
		}
		require.NoError(t, conn.Create(&row).Error)
	}

	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.Nop(),
		DB:         client,
		Repository: outbox.NewRepository(conn),
	})
	require.NoError(t, err)
	job := jobIface.(*outboxRetentionJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	var remaining int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&remaining).Error)
	require.EqualValues(t, 2, remaining)
	var unpublished int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("published_at IS NULL").Count(&unpublished).Error)
	require.EqualValues(t, 1, unpublished)
}

func TestOutboxRetentionJobRequiresDeps(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logger.Nop()})
	require.Error(t, err)
}
