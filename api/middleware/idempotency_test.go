package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/supawave/supawave-backend/pkg/auth"
	"github.com/supawave/supawave-backend/pkg/enums"
	pkgerrors "github.com/supawave/supawave-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
	ttl  time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key], _ = value.(string)
	f.ttl = ttl
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

var owner = auth.Actor{UserID: uuid.New(), BusinessID: uuid.New(), Role: enums.UserRoleOwner}

func approveRequest(actor auth.Actor, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers/abc/approve", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req.WithContext(WithActor(req.Context(), actor))
}

func countingHandler(calls *int, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"call":%d}`, *calls)
	})
}

func TestIdempotencyPassesThroughWithoutKey(t *testing.T) {
	store := newFakeStore()
	var calls int
	mw := Idempotency(store, 0, nil)(countingHandler(&calls, http.StatusOK))
	mw.ServeHTTP(httptest.NewRecorder(), approveRequest(owner, "", "{}"))
	mw.ServeHTTP(httptest.NewRecorder(), approveRequest(owner, "", "{}"))
	if calls != 2 || len(store.data) != 0 {
		t.Fatalf("expected two uncached calls, got calls=%d stored=%d", calls, len(store.data))
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	var calls int
	mw := Idempotency(store, 0, nil)(countingHandler(&calls, http.StatusOK))

	first := httptest.NewRecorder()
	mw.ServeHTTP(first, approveRequest(owner, "k1", "{}"))
	replay := httptest.NewRecorder()
	mw.ServeHTTP(replay, approveRequest(owner, "k1", "{}"))

	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
	if replay.Code != http.StatusOK || strings.TrimSpace(replay.Body.String()) != `{"call":1}` {
		t.Fatalf("unexpected replay %d %s", replay.Code, replay.Body.String())
	}
	if replay.Header().Get("Idempotent-Replayed") != "true" || replay.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("replay headers missing: %v", replay.Header())
	}
	if store.ttl != DefaultIdempotencyTTL {
		t.Fatalf("expected default ttl, got %s", store.ttl)
	}

	// another user with the same key is not replayed
	other := owner
	other.UserID = uuid.New()
	mw.ServeHTTP(httptest.NewRecorder(), approveRequest(other, "k1", "{}"))
	if calls != 2 {
		t.Fatalf("expected separate scope per user, calls=%d", calls)
	}
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	var calls int
	mw := Idempotency(store, time.Hour, nil)(countingHandler(&calls, http.StatusCreated))
	mw.ServeHTTP(httptest.NewRecorder(), approveRequest(owner, "xyz", `{"a":1}`))

	resp := httptest.NewRecorder()
	mw.ServeHTTP(resp, approveRequest(owner, "xyz", `{"a":2}`))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	store := newFakeStore()
	var calls int
	mw := Idempotency(store, 0, nil)(countingHandler(&calls, http.StatusServiceUnavailable))
	mw.ServeHTTP(httptest.NewRecorder(), approveRequest(owner, "retry-me", "{}"))
	mw.ServeHTTP(httptest.NewRecorder(), approveRequest(owner, "retry-me", "{}"))
	if calls != 2 {
		t.Fatalf("expected retry to reach handler, calls=%d", calls)
	}
}

func TestIdempotencyRejectsOversizedBody(t *testing.T) {
	store := newFakeStore()
	var calls int
	mw := Idempotency(store, 0, nil)(countingHandler(&calls, http.StatusOK))

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, approveRequest(owner, "big", strings.Repeat("x", maxIdempotentBodyBytes+1)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized body, got %d", rec.Code)
	}
	if calls != 0 || len(store.data) != 0 {
		t.Fatalf("oversized body must not reach the handler, calls=%d stored=%d", calls, len(store.data))
	}
}
