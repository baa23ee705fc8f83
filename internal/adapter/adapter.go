// Package adapter defines the external warehouse and marketplace
// capabilities the sync scheduler drives, and an HTTP-backed implementation
// of both shared by every concrete integration (Amazon, eBay, Shopify, or a
// physical warehouse WMS) since none of them differ in transport, only in
// base URL, auth scheme, and response shape.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/navneet-singh26/inventory-sync/pkg/httpclient"
)

// RemoteOrder is an order surfaced by a marketplace's list_orders capability.
type RemoteOrder struct {
	ID         string    `json:"id"`
	SKU        string    `json:"sku"`
	Quantity   int64     `json:"quantity"`
	PlacedAt   time.Time `json:"placed_at"`
}

// WarehouseAdapter is the capability surface the scheduler drives to pull
// authoritative stock from a physical or third-party-operated warehouse.
type WarehouseAdapter interface {
	Name() string
	GetStock(ctx context.Context, sku string) (int64, error)
}

// MarketplaceAdapter is the capability surface the scheduler drives to push
// stock to, and pull orders from, an external sales channel.
type MarketplaceAdapter interface {
	Name() string
	GetStock(ctx context.Context, sku string) (int64, error)
	UpdateStock(ctx context.Context, sku string, quantity int64) error
	ListOrders(ctx context.Context, from, to time.Time) ([]RemoteOrder, error)
}

// AuthScheme describes how outbound requests are authenticated.
type AuthScheme int

const (
	AuthNone AuthScheme = iota
	AuthBearer
	AuthAPIKeyHeader
)

// Config parameterizes a single concrete adapter instance. The same
// implementation serves Amazon, eBay, Shopify, or any WMS endpoint by
// varying these fields — no per-vendor Go type is needed.
type Config struct {
	Name       string
	BaseURL    string
	AuthScheme AuthScheme
	AuthValue  string
	// APIKeyHeader names the header used when AuthScheme is AuthAPIKeyHeader.
	APIKeyHeader string
}

// HTTPAdapter implements both WarehouseAdapter and MarketplaceAdapter over a
// circuit-breaker-wrapped HTTP client, against a uniform REST contract:
// GET {base}/stock/{sku}, PUT {base}/stock/{sku}, GET {base}/orders?from=&to=.
type HTTPAdapter struct {
	cfg    Config
	client *httpclient.CircuitBreakerClient
	logger *slog.Logger
}

// New builds an HTTPAdapter. cbCfg should generally come from
// httpclient.DefaultCircuitBreakerConfig(cfg.Name) with task-specific
// overrides.
func New(cfg Config, cbCfg httpclient.CircuitBreakerConfig, logger *slog.Logger) *HTTPAdapter {
	base := httpclient.New(httpclient.DefaultConfig())
	return &HTTPAdapter{
		cfg:    cfg,
		client: httpclient.NewCircuitBreakerClient(base, cbCfg, logger),
		logger: logger,
	}
}

func (a *HTTPAdapter) Name() string { return a.cfg.Name }

func (a *HTTPAdapter) authorize(req *http.Request) {
	switch a.cfg.AuthScheme {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+a.cfg.AuthValue)
	case AuthAPIKeyHeader:
		header := a.cfg.APIKeyHeader
		if header == "" {
			header = "X-Api-Key"
		}
		req.Header.Set(header, a.cfg.AuthValue)
	}
}

type stockResponse struct {
	Quantity int64 `json:"quantity"`
}

// GetStock satisfies both WarehouseAdapter and MarketplaceAdapter.
func (a *HTTPAdapter) GetStock(ctx context.Context, sku string) (int64, error) {
	url := fmt.Sprintf("%s/stock/%s", a.cfg.BaseURL, sku)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("build get_stock request: %w", err)
	}
	a.authorize(req)

	resp, err := a.client.Do(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("%s get_stock(%s): %w", a.cfg.Name, sku, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("%s get_stock(%s): status %d: %s", a.cfg.Name, sku, resp.StatusCode, body)
	}

	var out stockResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("%s get_stock(%s): decode response: %w", a.cfg.Name, sku, err)
	}
	return out.Quantity, nil
}

// UpdateStock pushes the authoritative quantity for sku to the remote side.
func (a *HTTPAdapter) UpdateStock(ctx context.Context, sku string, quantity int64) error {
	url := fmt.Sprintf("%s/stock/%s", a.cfg.BaseURL, sku)
	payload, err := json.Marshal(stockResponse{Quantity: quantity})
	if err != nil {
		return fmt.Errorf("encode update_stock payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build update_stock request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	a.authorize(req)

	resp, err := a.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%s update_stock(%s): %w", a.cfg.Name, sku, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s update_stock(%s): status %d: %s", a.cfg.Name, sku, resp.StatusCode, body)
	}
	return nil
}

type ordersResponse struct {
	Orders []RemoteOrder `json:"orders"`
}

// ListOrders pulls orders placed within [from, to).
func (a *HTTPAdapter) ListOrders(ctx context.Context, from, to time.Time) ([]RemoteOrder, error) {
	url := fmt.Sprintf("%s/orders?from=%s&to=%s", a.cfg.BaseURL, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build list_orders request: %w", err)
	}
	a.authorize(req)

	resp, err := a.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s list_orders: %w", a.cfg.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s list_orders: status %d: %s", a.cfg.Name, resp.StatusCode, body)
	}

	var out ordersResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%s list_orders: decode response: %w", a.cfg.Name, err)
	}
	return out.Orders, nil
}
