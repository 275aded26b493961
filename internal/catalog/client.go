// Package catalog is the read-only client for the product catalog (ERP)
// collaborator. It only ever reports current figures; quotation snapshots are
// never written back.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"storefront_backend/platform/config"

	"golang.org/x/sync/errgroup"
)

// Product carries the live catalog figures for one SKU.
type Product struct {
	Sku         string `json:"sku"`
	Price       int64  `json:"price"`
	SellableQty int    `json:"sellableQty"`
}

// Client talks to the catalog HTTP API. Stock and price live on separate
// endpoints upstream, so a lookup fans out to both concurrently.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a catalog client. Returns nil when no base URL is
// configured; callers treat a nil client as "catalog unavailable".
func NewClient(cfg config.CatalogConfig) *Client {
	baseURL := cfg.GetCatalogBaseURL()
	if baseURL == "" {
		return nil
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.GetCatalogAPIKey(),
		http:    &http.Client{Timeout: cfg.GetCatalogTimeout()},
	}
}

type stockEntry struct {
	Sku         string `json:"sku"`
	SellableQty int    `json:"sellableQty"`
}

type priceEntry struct {
	Sku   string `json:"sku"`
	Price int64  `json:"price"`
}

// Lookup fetches current sellable quantity and price for the given SKUs in
// one batched round trip per endpoint. SKUs unknown to the catalog are simply
// absent from the result.
func (c *Client) Lookup(ctx context.Context, skus []string) (map[string]Product, error) {
	if len(skus) == 0 {
		return map[string]Product{}, nil
	}

	var (
		mu     sync.Mutex
		result = make(map[string]Product, len(skus))
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var payload struct {
			Items []stockEntry `json:"items"`
		}
		if err := c.getJSON(gctx, "/v1/stock", skus, &payload); err != nil {
			return fmt.Errorf("catalog stock lookup: %w", err)
		}
		mu.Lock()
		defer mu.Unlock()
		for _, entry := range payload.Items {
			p := result[entry.Sku]
			p.Sku = entry.Sku
			p.SellableQty = entry.SellableQty
			result[entry.Sku] = p
		}
		return nil
	})

	g.Go(func() error {
		var payload struct {
			Items []priceEntry `json:"items"`
		}
		if err := c.getJSON(gctx, "/v1/prices", skus, &payload); err != nil {
			return fmt.Errorf("catalog price lookup: %w", err)
		}
		mu.Lock()
		defer mu.Unlock()
		for _, entry := range payload.Items {
			p := result[entry.Sku]
			p.Sku = entry.Sku
			p.Price = entry.Price
			result[entry.Sku] = p
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) getJSON(ctx context.Context, path string, skus []string, out interface{}) error {
	query := url.Values{}
	for _, sku := range skus {
		query.Add("sku", sku)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
