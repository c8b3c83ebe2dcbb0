package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/portal-backend/internal/domain"
)

type fakeShopify struct {
	tokenExchanges int
	draftOrders    int
	lastToken      string
	lastPayload    map[string]any
}

func newFakeShopify(t *testing.T) (*httptest.Server, *fakeShopify) {
	t.Helper()
	f := &fakeShopify{}
	mux := http.NewServeMux()

	mux.HandleFunc("/admin/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenExchanges++
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "client_credentials", body["grant_type"])
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-abc"})
	})

	mux.HandleFunc("/admin/api/2024-10/draft_orders.json", func(w http.ResponseWriter, r *http.Request) {
		f.draftOrders++
		f.lastToken = r.Header.Get("X-Shopify-Access-Token")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastPayload))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"draft_order": map[string]any{
				"id":          int64(9001),
				"name":        "#D1",
				"invoice_url": "https://shop.test/invoice/9001",
			},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, f
}

func TestCreateDraftOrder(t *testing.T) {
	srv, fake := newFakeShopify(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	c := NewShopifyClient(srv.URL, "key", "secret", rdb)
	account := &domain.ClientAccount{ID: "a1", Email: "ops@acme.test"}
	project := &domain.Project{ID: "p1", Name: "Website relaunch", Currency: "USD"}

	order, err := c.CreateDraftOrder(context.Background(), account, project, 125050, "Phase 1 invoice")
	require.NoError(t, err)
	assert.Equal(t, int64(9001), order.ID)
	assert.Equal(t, "#D1", order.Name)
	assert.Equal(t, "https://shop.test/invoice/9001", order.InvoiceURL)

	assert.Equal(t, "tok-abc", fake.lastToken)
	draft := fake.lastPayload["draft_order"].(map[string]any)
	assert.Equal(t, "ops@acme.test", draft["email"])
	assert.Equal(t, "USD", draft["currency"])
	items := draft["line_items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "Project: Website relaunch", item["title"])
	// Minor units rendered as a decimal price string.
	assert.Equal(t, "1250.50", item["price"])
}

func TestAccessTokenCached(t *testing.T) {
	srv, fake := newFakeShopify(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	c := NewShopifyClient(srv.URL, "key", "secret", rdb)
	account := &domain.ClientAccount{Email: "ops@acme.test"}
	project := &domain.Project{Name: "P", Currency: "USD"}

	for i := 0; i < 2; i++ {
		_, err := c.CreateDraftOrder(context.Background(), account, project, 100, "")
		require.NoError(t, err)
	}

	assert.Equal(t, 1, fake.tokenExchanges, "second call must reuse the cached token")
	assert.Equal(t, 2, fake.draftOrders)

	// Token expiry forces a fresh exchange.
	mr.FastForward(tokenTTL + 1)
	_, err := c.CreateDraftOrder(context.Background(), account, project, 100, "")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.tokenExchanges)
}
