package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/supawave/supawave-backend/pkg/errors"
)

type lineBody struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

type transferBody struct {
	FromStoreID string     `json:"from_store_id" validate:"required,uuid"`
	Items       []lineBody `json:"items" validate:"dive"`
}

func TestDecodeJSONBodyReportsNestedFields(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(
		`{"from_store_id":"nope","items":[{"product_id":"5d0c3f43-3a6e-4ad9-a0a4-5b2a3ba4f001","quantity":0}]}`))
	var body transferBody
	err := DecodeJSONBody(r, &body)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, "must be a valid uuid", details["from_store_id"])
	require.Equal(t, "must be greater than 0", details["items[0].quantity"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"from_store_id":"x","extra":1}`))
	var body transferBody
	require.True(t, pkgerrors.IsCode(DecodeJSONBody(r, &body), pkgerrors.CodeValidation))
}

func TestParsePagination(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=3&page_size=50", nil)
	p, err := ParsePagination(r)
	require.NoError(t, err)
	require.Equal(t, 3, p.Page)
	require.Equal(t, 50, p.PageSize)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	p, err = ParsePagination(r)
	require.NoError(t, err)
	require.Equal(t, 1, p.Page)
	require.Zero(t, p.PageSize)

	r = httptest.NewRequest(http.MethodGet, "/?page_size=1000", nil)
	_, err = ParsePagination(r)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseUUIDParam(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("storeId", "not-a-uuid")
	r := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.WithValue(context.Background(), chi.RouteCtxKey, rctx))
	_, err := ParseUUIDParam(r, "storeId")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSanitizeString(t *testing.T) {
	require.Equal(t, "cola", SanitizeString("  cola  ", 10))
	require.Equal(t, "col", SanitizeString("cola", 3))
	require.Equal(t, "diet cola", SanitizeString(" diet \t\n cola ", 0))
	require.Equal(t, "café", SanitizeString("café latte", 4))
	require.Equal(t, "ab", SanitizeString("a\x00b", 10))
}

func TestSearchTerm(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/inventory?search=%20%20sparkling%20%20water%20", nil)
	require.Equal(t, "sparkling water", SearchTerm(r, "search", 100))
	require.Equal(t, "spark", SearchTerm(r, "search", 5))
}
