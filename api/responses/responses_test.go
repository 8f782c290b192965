package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/supawave/supawave-backend/pkg/errors"
	"github.com/supawave/supawave-backend/pkg/logger"
	"github.com/supawave/supawave-backend/pkg/types"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var body struct {
		Error types.APIError `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return body.Error
}

func TestWriteSuccessStatus(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"hello": "world"})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var body types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode success envelope: %v", err)
	}
	if body.Data.(map[string]any)["hello"] != "world" {
		t.Fatalf("unexpected payload %v", body.Data)
	}
}

func TestWriteErrorSurfacesInsufficientStockMessage(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeInsufficientStock, "Insufficient stock for Cola").
		WithDetails(map[string]any{"requested": 30, "available": 25})
	WriteError(context.Background(), logger.Nop(), w, err)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	apiErr := decodeError(t, w)
	if apiErr.Code != "INSUFFICIENT_STOCK" || apiErr.Message != "Insufficient stock for Cola" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
	if apiErr.Details == nil {
		t.Fatal("expected shortage details")
	}
}

func TestWriteErrorHidesStorageDetails(t *testing.T) {
	w := httptest.NewRecorder()
	log := logger.Nop()
	ctx := log.WithRequestID(context.Background(), "req-42")
	err := pkgerrors.Wrap(pkgerrors.CodeStorage, errors.New("dial tcp 10.0.0.3:5432: refused"), "approve transfer")
	WriteError(ctx, log, w, err)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After on retryable error")
	}
	apiErr := decodeError(t, w)
	if apiErr.Message != "storage unavailable" || apiErr.Details != nil {
		t.Fatalf("storage error leaked: %+v", apiErr)
	}
	if !apiErr.Retryable || apiErr.RequestID != "req-42" {
		t.Fatalf("expected retryable flag and request id, got %+v", apiErr)
	}
}

func TestWriteErrorDefaultsToInternalForUntypedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("boom"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	apiErr := decodeError(t, w)
	if apiErr.Code != string(pkgerrors.CodeInternal) || apiErr.Details != nil {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestWriteErrorInvariantViolationIsOpaque(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeInvariantViolation, "inventory invariant violated during commit_transfer_out").
		WithDetails(map[string]any{"quantity": 3})
	WriteError(context.Background(), logger.Nop(), w, err)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	apiErr := decodeError(t, w)
	if apiErr.Code != "INVARIANT_VIOLATION" || apiErr.Message != "inventory consistency error" || apiErr.Details != nil {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}
