// Package stockread merges a persisted quotation with live catalog figures.
// It is strictly read-only: nothing here ever writes to the quotation store,
// so it is safe to call concurrently with any lifecycle operation.
package stockread

import (
	"context"

	"storefront_backend/internal/catalog"
	"storefront_backend/internal/quotation/repository"
	"storefront_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the read surface the reader needs from the quotation store.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Quotation, error)
	GetItems(ctx context.Context, quotationID uuid.UUID) ([]repository.Item, error)
}

// Catalog is the batched lookup surface of the catalog collaborator.
type Catalog interface {
	Lookup(ctx context.Context, skus []string) (map[string]catalog.Product, error)
}

// MergedItem pairs one persisted item with the catalog's current figures.
// When the catalog had no data for the SKU, the current fields mirror the
// quoted ones and CatalogFound is false.
type MergedItem struct {
	Item               repository.Item
	CurrentPrice       int64
	CurrentSellableQty int
	CatalogFound       bool
}

// Result is a reconciled quotation view.
type Result struct {
	Quotation *repository.Quotation
	Items     []MergedItem
}

// Reader loads quotations and reconciles them against live stock.
type Reader struct {
	store   Store
	catalog Catalog
	log     *logger.Logger
}

// New creates a Reader. catalog may be nil, in which case every item falls
// back to its quoted values.
func New(store Store, cat Catalog, log *logger.Logger) *Reader {
	return &Reader{store: store, catalog: cat, log: log}
}

// Get loads a quotation with its items and merges current catalog data per
// SKU. A failed or partial catalog lookup degrades to quoted values; only an
// unknown quotation id fails the read.
func (r *Reader) Get(ctx context.Context, id uuid.UUID) (*Result, error) {
	q, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := r.store.GetItems(ctx, id)
	if err != nil {
		return nil, err
	}

	products := r.lookup(ctx, q.Number, items)

	result := &Result{Quotation: q}
	for _, item := range items {
		merged := MergedItem{
			Item:               item,
			CurrentPrice:       item.Price,
			CurrentSellableQty: item.Quantity,
		}
		if product, ok := products[item.ProductSku]; ok {
			merged.CurrentPrice = product.Price
			merged.CurrentSellableQty = product.SellableQty
			merged.CatalogFound = true
		}
		result.Items = append(result.Items, merged)
	}
	return result, nil
}

// lookup issues one batched catalog call for the distinct SKUs. Any failure
// is logged and reported as an empty result so the read still succeeds.
func (r *Reader) lookup(ctx context.Context, number string, items []repository.Item) map[string]catalog.Product {
	if r.catalog == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(items))
	skus := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductSku]; ok {
			continue
		}
		seen[item.ProductSku] = struct{}{}
		skus = append(skus, item.ProductSku)
	}

	products, err := r.catalog.Lookup(ctx, skus)
	if err != nil {
		r.log.Warn("catalog lookup failed, serving quoted values",
			"quotation_number", number, "error", err.Error())
		return nil
	}
	return products
}
