package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeIdempotencyStore struct {
	values map[string]string
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{values: map[string]string{}}
}

func (s *fakeIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *fakeIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = fmt.Sprint(value)
	return true, nil
}

func (s *fakeIdempotencyStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.values[key] = fmt.Sprint(value)
	return nil
}

func (s *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (s *fakeIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func placeOrderHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"order_number":1000}}`))
	})
}

func TestIdempotencyStoresAndReplays(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0
	handler := Idempotency(store, nil)(placeOrderHandler(&calls))

	body := `{"shipping_address_id":"0d9c3a42-8c3f-4a7c-9f68-0f6a2f3b1c11"}`
	first := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	first.Header.Set("Idempotency-Key", "order-attempt-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, calls)
	require.Len(t, store.values, 1)

	// the replay serves the stored response without re-running the handler
	replay := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	replay.Header.Set("Idempotency-Key", "order-attempt-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, replay)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, calls)
	require.Contains(t, rec.Body.String(), `"order_number":1000`)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestIdempotencyRejectsReusedKeyWithDifferentBody(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0
	handler := Idempotency(store, nil)(placeOrderHandler(&calls))

	first := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"shipping_address_id":"a"}`))
	first.Header.Set("Idempotency-Key", "order-attempt-1")
	handler.ServeHTTP(httptest.NewRecorder(), first)
	require.Equal(t, 1, calls)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"shipping_address_id":"b"}`))
	second.Header.Set("Idempotency-Key", "order-attempt-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, second)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, 1, calls)
	require.Contains(t, rec.Body.String(), "IDEMPOTENCY_KEY_REUSED")
}

func TestIdempotencyRequiresKeyOnGuardedRoutes(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0
	handler := Idempotency(store, nil)(placeOrderHandler(&calls))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, calls)
	require.Contains(t, rec.Body.String(), "Idempotency-Key")
}

func TestIdempotencyIgnoresUnguardedRoutes(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0
	handler := Idempotency(store, nil)(placeOrderHandler(&calls))

	// reads are never guarded
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, calls)

	// neither are writes outside the rule table
	req = httptest.NewRequest(http.MethodPost, "/api/v1/addresses", strings.NewReader(`{}`))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 2, calls)
	require.Empty(t, store.values)
}

// Mounts the middleware above a nested chi router the way the production
// router does, where the route pattern is not resolved yet when it runs.
func TestIdempotencyGuardsChiMountedRoutes(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0

	root := chi.NewRouter()
	root.Route("/api", func(r chi.Router) {
		r.Use(Idempotency(store, nil))
		r.Route("/v1/orders", func(r chi.Router) {
			r.Method(http.MethodPost, "/", placeOrderHandler(&calls))
		})
	})

	// a keyless POST must be refused, not silently waved through
	keyless := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	root.ServeHTTP(rec, keyless)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, calls)

	body := `{"shipping_address_id":"a"}`
	first := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	first.Header.Set("Idempotency-Key", "order-attempt-1")
	rec = httptest.NewRecorder()
	root.ServeHTTP(rec, first)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, calls)
	require.Len(t, store.values, 1)

	replay := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	replay.Header.Set("Idempotency-Key", "order-attempt-1")
	rec = httptest.NewRecorder()
	root.ServeHTTP(rec, replay)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, calls)
}

func TestIdempotencyScopesKeysByUser(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0
	handler := Idempotency(store, nil)(placeOrderHandler(&calls))

	body := `{"shipping_address_id":"a"}`
	for _, userID := range []string{"user-1", "user-2"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "order-attempt-1")
		req = req.WithContext(WithUserID(req.Context(), userID))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	// the same key under different users never collides
	require.Equal(t, 2, calls)
	require.Len(t, store.values, 2)
}
