// Package orders holds the outbound Shopify draft-order gateway. It is
// invoked post-commit with the finalized entities; failures here are
// logged and retried by the caller and never roll back a core mutation.
package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/atelierhq/portal-backend/internal/domain"
)

const (
	tokenKey = "shopify:access_token"
	// Shopify refreshes admin tokens on a 24h cycle; keep a margin.
	tokenTTL = 23 * time.Hour

	defaultTimeout = 15 * time.Second
)

// ShopifyClient is a thin Admin API gateway for draft-order creation.
// The access token lives in Redis behind a TTL; the limiter stays inside
// Shopify's 2 req/s bucket.
type ShopifyClient struct {
	shopURL   string
	apiKey    string
	apiSecret string
	http      *http.Client
	redis     *redis.Client
	limiter   *rate.Limiter
}

func NewShopifyClient(shopURL, apiKey, apiSecret string, rdb *redis.Client) *ShopifyClient {
	return &ShopifyClient{
		shopURL:   shopURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		http:      &http.Client{Timeout: defaultTimeout},
		redis:     rdb,
		limiter:   rate.NewLimiter(rate.Limit(2), 2),
	}
}

func (c *ShopifyClient) accessToken(ctx context.Context) (string, error) {
	tok, err := c.redis.Get(ctx, tokenKey).Result()
	if err == nil && tok != "" {
		return tok, nil
	}
	if err != nil && err != redis.Nil {
		return "", fmt.Errorf("token cache: %w", err)
	}

	tok, err = c.exchangeToken(ctx)
	if err != nil {
		return "", err
	}
	if err := c.redis.Set(ctx, tokenKey, tok, tokenTTL).Err(); err != nil {
		// A failed cache write just means an extra exchange next time.
		return tok, nil
	}
	return tok, nil
}

func (c *ShopifyClient) exchangeToken(ctx context.Context) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"client_id":     c.apiKey,
		"client_secret": c.apiSecret,
		"grant_type":    "client_credentials",
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.shopURL+"/admin/oauth/access_token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("token exchange status %d: %s", resp.StatusCode, b)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	return out.AccessToken, nil
}

// DraftOrder is the created order reference handed back to callers.
type DraftOrder struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	InvoiceURL string `json:"invoice_url"`
}

// CreateDraftOrder creates a draft order for a project invoice. Amount is
// minor currency units.
func (c *ShopifyClient) CreateDraftOrder(ctx context.Context, account *domain.ClientAccount, project *domain.Project, amount int64, note string) (*DraftOrder, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	tok, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"draft_order": map[string]any{
			"note":       note,
			"email":      account.Email,
			"currency":   project.Currency,
			"line_items": []map[string]any{
				{
					"title":    fmt.Sprintf("Project: %s", project.Name),
					"price":    fmt.Sprintf("%d.%02d", amount/100, amount%100),
					"quantity": 1,
				},
			},
		},
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.shopURL+"/admin/api/2024-10/draft_orders.json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", tok)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shopify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("shopify status %d: %s", resp.StatusCode, b)
	}

	var out struct {
		DraftOrder struct {
			ID         int64  `json:"id"`
			Name       string `json:"name"`
			InvoiceURL string `json:"invoice_url"`
		} `json:"draft_order"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode draft order: %w", err)
	}
	return &DraftOrder{ID: out.DraftOrder.ID, Name: out.DraftOrder.Name, InvoiceURL: out.DraftOrder.InvoiceURL}, nil
}
