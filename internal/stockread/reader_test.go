package stockread

import (
	"context"
	"errors"
	"testing"

	"storefront_backend/internal/catalog"
	"storefront_backend/internal/quotation/repository"
	"storefront_backend/platform/apperr"
	"storefront_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	quotation *repository.Quotation
	items     []repository.Item
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*repository.Quotation, error) {
	if f.quotation == nil || f.quotation.ID != id {
		return nil, apperr.NotFound("quotation not found")
	}
	return f.quotation, nil
}

func (f *fakeStore) GetItems(_ context.Context, _ uuid.UUID) ([]repository.Item, error) {
	return f.items, nil
}

type fakeCatalog struct {
	products map[string]catalog.Product
	err      error
	calls    int
	lastSkus []string
}

func (f *fakeCatalog) Lookup(_ context.Context, skus []string) (map[string]catalog.Product, error) {
	f.calls++
	f.lastSkus = skus
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func testStore() *fakeStore {
	id := uuid.New()
	return &fakeStore{
		quotation: &repository.Quotation{ID: id, Number: "QT-2026-00001", Status: "PROCESSING"},
		items: []repository.Item{
			{ID: uuid.New(), QuotationID: id, ProductSku: "A-100", ProductName: "Widget", Quantity: 3, Price: 100000},
			{ID: uuid.New(), QuotationID: id, ProductSku: "B-200", ProductName: "Gadget", Quantity: 1, Price: 50000},
		},
	}
}

func TestGetMergesCatalogData(t *testing.T) {
	store := testStore()
	cat := &fakeCatalog{products: map[string]catalog.Product{
		"A-100": {Sku: "A-100", Price: 95000, SellableQty: 12},
		"B-200": {Sku: "B-200", Price: 52000, SellableQty: 0},
	}}
	reader := New(store, cat, logger.New("development"))

	result, err := reader.Get(context.Background(), store.quotation.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	first := result.Items[0]
	if first.CurrentPrice != 95000 || first.CurrentSellableQty != 12 || !first.CatalogFound {
		t.Fatalf("unexpected merge for A-100: %+v", first)
	}
	if first.Item.Price != 100000 {
		t.Fatalf("quoted price must stay untouched, got %d", first.Item.Price)
	}
	if cat.calls != 1 {
		t.Fatalf("expected a single batched lookup, got %d", cat.calls)
	}
	if len(cat.lastSkus) != 2 {
		t.Fatalf("expected 2 distinct skus, got %v", cat.lastSkus)
	}
}

func TestGetPartialCatalogFallsBack(t *testing.T) {
	store := testStore()
	cat := &fakeCatalog{products: map[string]catalog.Product{
		"A-100": {Sku: "A-100", Price: 95000, SellableQty: 12},
	}}
	reader := New(store, cat, logger.New("development"))

	result, err := reader.Get(context.Background(), store.quotation.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	missing := result.Items[1]
	if missing.CatalogFound {
		t.Fatal("expected CatalogFound=false for missing sku")
	}
	if missing.CurrentPrice != 50000 || missing.CurrentSellableQty != 1 {
		t.Fatalf("missing sku should fall back to quoted values, got %+v", missing)
	}
}

func TestGetCatalogFailureDegrades(t *testing.T) {
	store := testStore()
	cat := &fakeCatalog{err: errors.New("erp down")}
	reader := New(store, cat, logger.New("development"))

	result, err := reader.Get(context.Background(), store.quotation.ID)
	if err != nil {
		t.Fatalf("read must survive catalog failure, got %v", err)
	}
	for _, item := range result.Items {
		if item.CatalogFound {
			t.Fatal("no item should report catalog data after a failed lookup")
		}
		if item.CurrentPrice != item.Item.Price {
			t.Fatalf("expected fallback to quoted price, got %d", item.CurrentPrice)
		}
	}
}

func TestGetDeduplicatesSkus(t *testing.T) {
	store := testStore()
	store.items = append(store.items, repository.Item{
		ID: uuid.New(), QuotationID: store.quotation.ID,
		ProductSku: "A-100", ProductName: "Widget", Quantity: 2, Price: 100000,
	})
	cat := &fakeCatalog{products: map[string]catalog.Product{}}
	reader := New(store, cat, logger.New("development"))

	if _, err := reader.Get(context.Background(), store.quotation.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(cat.lastSkus) != 2 {
		t.Fatalf("expected deduplicated skus, got %v", cat.lastSkus)
	}
}

func TestGetUnknownQuotation(t *testing.T) {
	reader := New(testStore(), nil, logger.New("development"))

	_, err := reader.Get(context.Background(), uuid.New())
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestGetNilCatalog(t *testing.T) {
	store := testStore()
	reader := New(store, nil, logger.New("development"))

	result, err := reader.Get(context.Background(), store.quotation.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for _, item := range result.Items {
		if item.CatalogFound {
			t.Fatal("nil catalog must fall back to quoted values")
		}
	}
}
