package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/supawave/supawave-backend/pkg/db/models"
	"github.com/supawave/supawave-backend/pkg/enums"
	"github.com/supawave/supawave-backend/pkg/logger"
	"github.com/supawave/supawave-backend/pkg/outbox"
	"github.com/supawave/supawave-backend/pkg/outbox/payloads"
)

const (
	defaultStaleTransferAge = 72 * time.Hour
	staleTransferBatch      = 200
)

type staleTransferReader interface {
	ListStale(ctx context.Context, status enums.TransferStatus, cutoff time.Time, flag enums.OutboxEventType, limit int) ([]models.InventoryTransfer, error)
}

// StaleTransfersJobParams configure the stale-transfers job.
type StaleTransfersJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Transfers staleTransferReader
	Outbox    outbox.Emitter
	MaxAge    time.Duration
}

// NewStaleTransfersJob builds the job that flags transfers left pending or in
// transit for longer than MaxAge. Each transfer is flagged at most once.
func NewStaleTransfersJob(params StaleTransfersJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Transfers == nil {
		return nil, fmt.Errorf("transfer reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultStaleTransferAge
	}
	return &staleTransfersJob{
		logg:      params.Logger,
		db:        params.DB,
		transfers: params.Transfers,
		outbox:    params.Outbox,
		maxAge:    maxAge,
		now:       time.Now,
	}, nil
}

type staleTransfersJob struct {
	logg      *logger.Logger
	db        txRunner
	transfers staleTransferReader
	outbox    outbox.Emitter
	maxAge    time.Duration
	now       func() time.Time
}

func (j *staleTransfersJob) Name() string { return "stale-transfers" }

func (j *staleTransfersJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.maxAge)
	var err error
	for _, status := range []enums.TransferStatus{enums.TransferStatusPending, enums.TransferStatusInTransit} {
		err = multierr.Append(err, j.flag(ctx, status, cutoff))
	}
	return err
}

func (j *staleTransfersJob) flag(ctx context.Context, status enums.TransferStatus, cutoff time.Time) error {
	rows, err := j.transfers.ListStale(ctx, status, cutoff, enums.EventTransferStalled, staleTransferBatch)
	if err != nil {
		return fmt.Errorf("list stale %s transfers: %w", status, err)
	}
	var errs error
	flagged := 0
	for _, t := range rows {
		event := outbox.DomainEvent{
			EventType:     enums.EventTransferStalled,
			AggregateType: enums.AggregateTransfer,
			AggregateID:   t.ID,
			OccurredAt:    j.now().UTC(),
			Data: payloads.TransferStalledEvent{
				TransferID:  t.ID,
				BusinessID:  t.BusinessID,
				FromStoreID: t.FromStoreID,
				ToStoreID:   t.ToStoreID,
				Status:      t.Status,
				Since:       t.UpdatedAt,
			},
		}
		if err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			return j.outbox.EmitIfNotExists(ctx, tx, event)
		}); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("flag transfer %s: %w", t.ID, err))
			continue
		}
		flagged++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"status":  string(status),
		"cutoff":  cutoff,
		"scanned": len(rows),
		"flagged": flagged,
	})
	j.logg.Info(logCtx, "stale transfer scan complete")
	return errs
}
