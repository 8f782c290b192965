package outbox

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supawave/supawave-backend/pkg/db/dbtest"
	"github.com/supawave/supawave-backend/pkg/db/models"
	"github.com/supawave/supawave-backend/pkg/enums"
)

func TestDLQEntryForKeepsPayloadAndTrimsMessage(t *testing.T) {
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventTransferCompleted,
		AggregateType: enums.AggregateTransfer,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":1}`),
		AttemptCount:  4,
	}
	at := time.Date(2026, 1, 5, 9, 0, 0, 0, time.FixedZone("EST", -5*3600))
	cause := errors.New(strings.Repeat("é", 600))

	entry := DLQEntryFor(event, enums.OutboxDLQReasonMaxAttempts, cause, at)
	assert.Equal(t, event.ID, entry.EventID)
	assert.Equal(t, 4, entry.AttemptCount)
	assert.JSONEq(t, `{"version":1}`, string(entry.Payload))
	assert.Equal(t, time.UTC, entry.FailedAt.Location())
	require.NotNil(t, entry.ErrorMessage)
	assert.LessOrEqual(t, len(*entry.ErrorMessage), maxDLQErrorLen)
	assert.True(t, utf8.ValidString(*entry.ErrorMessage))

	assert.Nil(t, DLQEntryFor(event, enums.OutboxDLQReasonUnroutable, nil, at).ErrorMessage)
}

func TestDLQInsertRejectsUnknownReason(t *testing.T) {
	db := dbtest.Open(t).DB()
	repo := NewDLQRepository(db)
	err := repo.InsertTx(db, models.OutboxDLQ{EventID: uuid.New(), ErrorReason: "timeout"})
	require.Error(t, err)
	require.Error(t, repo.InsertTx(nil, models.OutboxDLQ{}))
}
