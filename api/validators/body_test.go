package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/lacasita-io/storefront-backend/pkg/errors"
)

type testPayload struct {
	VariantID uuid.UUID `json:"variant_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=99"`
}

func decodeTest(t *testing.T, body string) (testPayload, error) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
	var payload testPayload
	err := DecodeJSONBody(req, &payload)
	return payload, err
}

func TestDecodeJSONBody(t *testing.T) {
	variantID := uuid.New()
	payload, err := decodeTest(t, `{"variant_id":"`+variantID.String()+`","quantity":3}`)
	require.NoError(t, err)
	require.Equal(t, variantID, payload.VariantID)
	require.Equal(t, 3, payload.Quantity)
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	_, err := decodeTest(t, `{"variant_id":"`+uuid.NewString()+`","quantity":1,"price":99999}`)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestDecodeJSONBodyRejectsMalformedJSON(t *testing.T) {
	_, err := decodeTest(t, `{"variant_id":`)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestDecodeJSONBodyValidationMessages(t *testing.T) {
	_, err := decodeTest(t, `{"quantity":500}`)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	// field names come from the json tags, not the struct fields
	require.Equal(t, "is required", details["variant_id"])
	require.Equal(t, "must be at most 99", details["quantity"])
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=25", nil)
	value, err := ParseQueryInt(req, "limit", 20, 1, 100)
	require.NoError(t, err)
	require.Equal(t, 25, value)

	// absent values fall back to the default
	value, err = ParseQueryInt(req, "page_size", 20, 1, 100)
	require.NoError(t, err)
	require.Equal(t, 20, value)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=many", nil)
	_, err = ParseQueryInt(req, "limit", 20, 1, 100)
	require.Error(t, err)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=500", nil)
	_, err = ParseQueryInt(req, "limit", 20, 1, 100)
	require.Error(t, err)
}

func TestParsePathUUID(t *testing.T) {
	id := uuid.New()
	parsed, err := ParsePathUUID(id.String(), "orderId")
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = ParsePathUUID("nope", "orderId")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
