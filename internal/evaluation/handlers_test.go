package evaluation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-discount/internal/auth"
	"github.com/noah-isme/backend-discount/internal/store"
)

const fixedCart = `{"cart":{"lines":[
  {"id":"gid://shopify/CartLine/0","quantity":2,"cost":{"amountPerQuantity":{"amount":"100.0"}},
   "merchandise":{"__typename":"ProductVariant","id":"gid://shopify/ProductVariant/1",
     "product":{"inCollections":[{"collectionId":"gid://shopify/Collection/496241049921","isMember":true}]}}}
]}}`

type testServer struct {
	router   http.Handler
	verifier *auth.Verifier
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	st := store.NewCachedStore(store.NewRedisStore(client), client, time.Minute)
	svc := newService(t, st)
	verifier := auth.NewVerifier("admin-secret", "", "")

	r := chi.NewRouter()
	r.Route("/api/v1", func(v chi.Router) {
		Mount(v, svc, RouteOptions{
			Admin: []func(http.Handler) http.Handler{auth.Middleware{Parser: verifier}.RequireAuth},
		})
	})
	return testServer{router: r, verifier: verifier}
}

func (s testServer) do(t *testing.T, method, path, body string, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if admin {
		token, err := s.verifier.Sign("ops", time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func TestRunFixedEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rr := srv.do(t, http.MethodPost, "/api/v1/discounts/fixed/run", fixedCart, false)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Evaluation-ID"))
	assert.JSONEq(t, `{
	  "discounts": [{
	    "message": "15% discount applied to eligible collection items.",
	    "targets": [{"cartLine": {"id": "gid://shopify/CartLine/0", "quantity": null}}],
	    "value": {"percentage": {"value": 15}}
	  }],
	  "discountApplicationStrategy": "FIRST"
	}`, rr.Body.String())
}

func TestRunEndpointRejectsInvalidInput(t *testing.T) {
	srv := newTestServer(t)
	rr := srv.do(t, http.MethodPost, "/api/v1/discounts/tiered/run", `{"cart":`, false)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "BAD_REQUEST")
}

func TestRunTieredEndpointAbortsOnMalformedConfiguration(t *testing.T) {
	srv := newTestServer(t)
	rr := srv.do(t, http.MethodPost, "/api/v1/discounts/tiered/run", `{"discountNode":{"metafield":{"value":"nope"}},"cart":{"lines":[]}}`, false)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "EVALUATION_ABORTED")
}

func TestFixedRuleEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rr := srv.do(t, http.MethodGet, "/api/v1/discounts/fixed/rule", "", false)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "gid://shopify/Collection/496241049921", body.Data["target_collection"])
	assert.Equal(t, 150.0, body.Data["threshold"])
}

func TestAdminConfigurationFlow(t *testing.T) {
	srv := newTestServer(t)
	path := "/api/v1/admin/discounts/spring/configuration"
	config := `{"collection_ids":[],"mapping":[{"collection":"gid://shopify/Collection/5","threshold":300}]}`

	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodPut, path, config, false).Code)

	rr := srv.do(t, http.MethodGet, path, "", true)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = srv.do(t, http.MethodPut, path, `{"mapping":[]}`, true)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = srv.do(t, http.MethodPut, path, config, true)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"data":`+config+`}`, rr.Body.String())

	rr = srv.do(t, http.MethodPost, "/api/v1/discounts/spring/run", storedCart, false)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"12.5% off"`)

	rr = srv.do(t, http.MethodGet, path, "", true)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = srv.do(t, http.MethodDelete, path, "", true)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = srv.do(t, http.MethodPost, "/api/v1/discounts/spring/run", storedCart, false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"discounts":[],"discountApplicationStrategy":"FIRST"}`, rr.Body.String())
}

func TestStoredRunWithoutStore(t *testing.T) {
	r := chi.NewRouter()
	Mount(r, newService(t, nil), RouteOptions{})
	req := httptest.NewRequest(http.MethodPost, "/discounts/spring/run", strings.NewReader(storedCart)).WithContext(context.Background())
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
