package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/supawave/supawave-backend/api/responses"
	"github.com/supawave/supawave-backend/api/validators"
	"github.com/supawave/supawave-backend/internal/transfers"
	"github.com/supawave/supawave-backend/pkg/auth"
	"github.com/supawave/supawave-backend/pkg/enums"
	pkgerrors "github.com/supawave/supawave-backend/pkg/errors"
	"github.com/supawave/supawave-backend/pkg/logger"
)

type transferItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gt=0,lte=2147483647"`
}

type transferCreateRequest struct {
	FromStoreID string                `json:"from_store_id" validate:"required,uuid"`
	ToStoreID   string                `json:"to_store_id" validate:"required,uuid,nefield=FromStoreID"`
	Notes       string                `json:"notes" validate:"max=1000"`
	Items       []transferItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (req transferCreateRequest) toInput() (transfers.BuildInput, error) {
	from, err := uuid.Parse(req.FromStoreID)
	if err != nil {
		return transfers.BuildInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from_store_id")
	}
	to, err := uuid.Parse(req.ToStoreID)
	if err != nil {
		return transfers.BuildInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to_store_id")
	}
	lines := make([]transfers.LineInput, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return transfers.BuildInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product_id")
		}
		lines = append(lines, transfers.LineInput{ProductID: productID, Quantity: item.Quantity})
	}
	return transfers.BuildInput{
		FromStoreID: from,
		ToStoreID:   to,
		Notes:       strings.TrimSpace(req.Notes),
		Lines:       lines,
	}, nil
}

func transferServiceMissing(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
}

// TransferList pages the business's transfers, newest first. The optional
// status query narrows the result to one workflow state.
func TransferList(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			transferServiceMissing(w, r, logg)
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list := transfers.ListParams{Pagination: params}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseTransferStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter").
					WithDetails(map[string]any{"field": "status"}))
				return
			}
			list.Status = &status
		}

		page, err := svc.List(r.Context(), actor, list)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// TransferCreate builds and persists a pending transfer request.
func TransferCreate(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			transferServiceMissing(w, r, logg)
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req transferCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := req.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transfer, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, transfer)
	}
}

func TransferGet(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return func(w http.ResponseWriter, r *http.Request) { transferServiceMissing(w, r, logg) }
	}
	return transferAction(svc.Get, logg)
}

// TransferApprove moves a pending transfer to in_transit and reserves stock
// at the source store.
func TransferApprove(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return func(w http.ResponseWriter, r *http.Request) { transferServiceMissing(w, r, logg) }
	}
	return transferAction(svc.Approve, logg)
}

// TransferComplete settles an in_transit transfer into the destination store.
func TransferComplete(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return func(w http.ResponseWriter, r *http.Request) { transferServiceMissing(w, r, logg) }
	}
	return transferAction(svc.Complete, logg)
}

func TransferCancel(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return func(w http.ResponseWriter, r *http.Request) { transferServiceMissing(w, r, logg) }
	}
	return transferAction(svc.Cancel, logg)
}

type transferOp func(ctx context.Context, actor auth.Actor, id uuid.UUID) (*transfers.TransferDTO, error)

func transferAction(op transferOp, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		transferID, err := validators.ParseUUIDParam(r, "transferId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		transfer, err := op(r.Context(), actor, transferID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transfer)
	}
}
