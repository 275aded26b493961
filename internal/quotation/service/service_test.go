package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"storefront_backend/internal/notifier"
	"storefront_backend/internal/quotation/repository"
	"storefront_backend/internal/quotation/transport"
	"storefront_backend/internal/stockread"
	"storefront_backend/platform/apperr"
	"storefront_backend/platform/logger"

	"github.com/google/uuid"
)

// memStore mimics the repository's guarded-update semantics in memory.
type memStore struct {
	mu         sync.Mutex
	seq        int
	quotations map[uuid.UUID]*repository.Quotation
	items      map[uuid.UUID][]repository.Item

	failSubmitOffer bool
	failPending     bool
}

func newMemStore() *memStore {
	return &memStore{
		quotations: make(map[uuid.UUID]*repository.Quotation),
		items:      make(map[uuid.UUID][]repository.Item),
	}
}

func (m *memStore) NextNumber(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return fmt.Sprintf("QT-2026-%05d", m.seq), nil
}

func (m *memStore) CreateWithItems(_ context.Context, q *repository.Quotation, items []repository.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *q
	m.quotations[q.ID] = &clone
	m.items[q.ID] = append([]repository.Item(nil), items...)
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*repository.Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[id]
	if !ok {
		return nil, apperr.NotFound("quotation not found")
	}
	clone := *q
	return &clone, nil
}

func (m *memStore) GetItems(_ context.Context, id uuid.UUID) ([]repository.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]repository.Item(nil), m.items[id]...), nil
}

func (m *memStore) GetItemsBatch(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]repository.Item, error) {
	result := make(map[uuid.UUID][]repository.Item, len(ids))
	for _, id := range ids {
		items, _ := m.GetItems(ctx, id)
		result[id] = items
	}
	return result, nil
}

func (m *memStore) ListAll(_ context.Context) ([]repository.Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []repository.Quotation
	for _, q := range m.quotations {
		result = append(result, *q)
	}
	return result, nil
}

func (m *memStore) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]repository.Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []repository.Quotation
	for _, q := range m.quotations {
		if q.CustomerID != nil && *q.CustomerID == customerID {
			result = append(result, *q)
		}
	}
	return result, nil
}

func (m *memStore) PendingCount(_ context.Context) (int, error) {
	if m.failPending {
		return 0, errors.New("store unreachable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, q := range m.quotations {
		if q.Status == "PENDING" || q.Status == "PROCESSING" {
			count++
		}
	}
	return count, nil
}

func (m *memStore) guarded(id uuid.UUID, expected string, apply func(q *repository.Quotation)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[id]
	if !ok {
		return apperr.NotFound("quotation not found")
	}
	if q.Status != expected {
		return repository.ErrStaleStatus
	}
	apply(q)
	return nil
}

func (m *memStore) StartProcessing(_ context.Context, id uuid.UUID, processedBy string, at time.Time) error {
	return m.guarded(id, "PENDING", func(q *repository.Quotation) {
		q.Status = "PROCESSING"
		q.ProcessedBy = &processedBy
		q.ProcessedAt = &at
	})
}

func (m *memStore) Cancel(_ context.Context, id uuid.UUID, _ time.Time) error {
	return m.guarded(id, "PENDING", func(q *repository.Quotation) {
		q.Status = "CANCELLED"
	})
}

func (m *memStore) Confirm(_ context.Context, id uuid.UUID, p repository.ConfirmParams) error {
	return m.guarded(id, "OFFERED", func(q *repository.Quotation) {
		q.Status = "CONFIRMED"
		q.ConfirmedAt = &p.ConfirmedAt
		q.ShippingCost = p.ShippingCost
		q.FreeShipping = p.FreeShipping
	})
}

func (m *memStore) Ship(_ context.Context, id uuid.UUID, p repository.ShipParams) error {
	return m.guarded(id, "CONFIRMED", func(q *repository.Quotation) {
		q.Status = "SHIPPED"
		q.ShippedAt = &p.ShippedAt
		q.TrackingNumber = &p.TrackingNumber
		q.ShippingNotes = p.ShippingNotes
	})
}

func (m *memStore) Complete(_ context.Context, id uuid.UUID, at time.Time) error {
	return m.guarded(id, "SHIPPED", func(q *repository.Quotation) {
		q.Status = "COMPLETED"
		q.CompletedAt = &at
	})
}

func (m *memStore) UpdateItemAnnotation(_ context.Context, quotationID uuid.UUID, ann repository.ItemAnnotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items[quotationID]
	for i := range items {
		if items[i].ID == ann.ItemID {
			items[i].IsAvailable = ann.IsAvailable
			items[i].AvailableQty = ann.AvailableQty
			items[i].AdminNote = ann.AdminNote
			return nil
		}
	}
	return apperr.NotFound("quotation item not found")
}

func (m *memStore) SubmitOffer(_ context.Context, id uuid.UUID, p repository.OfferParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// All-or-nothing: an injected fault leaves no annotation behind.
	if m.failSubmitOffer {
		return errors.New("transaction aborted")
	}

	q, ok := m.quotations[id]
	if !ok {
		return apperr.NotFound("quotation not found")
	}
	if q.Status != "PROCESSING" {
		return repository.ErrStaleStatus
	}

	items := m.items[id]
	for _, ann := range p.Annotations {
		found := false
		for i := range items {
			if items[i].ID == ann.ItemID {
				items[i].IsAvailable = ann.IsAvailable
				items[i].AvailableQty = ann.AvailableQty
				items[i].AdminNote = ann.AdminNote
				found = true
			}
		}
		if !found {
			return apperr.NotFound("quotation item not found")
		}
	}

	q.Status = "OFFERED"
	q.AdminNotes = p.AdminNotes
	q.SpecialDiscount = p.SpecialDiscount
	q.OfferedAt = &p.OfferedAt
	return nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []notifier.Event
	snaps  []notifier.Snapshot
}

func (r *recordingDispatcher) Dispatch(event notifier.Event, snap notifier.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.snaps = append(r.snaps, snap)
}

func newTestService(store *memStore, dispatcher notifier.Dispatcher) *Service {
	log := logger.New("development")
	reader := stockread.New(store, nil, log)
	return New(store, reader, dispatcher, log)
}

func createTestQuotation(t *testing.T, svc *Service) *transport.QuotationResponse {
	t.Helper()
	resp, err := svc.Create(context.Background(), transport.CreateQuotationRequest{
		ContactEmail: "customer@example.com",
		ContactPhone: "081234567890",
		Items: []transport.CreateItemRequest{
			{ProductSku: "A-100", ProductName: "Widget", Quantity: 3, Price: 100000},
		},
	})
	if err != nil {
		t.Fatalf("create quotation: %v", err)
	}
	return resp
}

func TestHappyPathLifecycle(t *testing.T) {
	store := newMemStore()
	dispatcher := &recordingDispatcher{}
	svc := newTestService(store, dispatcher)
	ctx := context.Background()

	q := createTestQuotation(t, svc)
	if q.TotalAmount != 300000 {
		t.Fatalf("expected totalAmount 300000, got %d", q.TotalAmount)
	}
	if q.Status != transport.StatusPending {
		t.Fatalf("expected PENDING, got %s", q.Status)
	}

	if _, err := svc.StartProcessing(ctx, q.ID, "Jane Staff"); err != nil {
		t.Fatalf("start processing: %v", err)
	}
	stored, _ := store.GetByID(ctx, q.ID)
	if stored.Status != "PROCESSING" || stored.ProcessedBy == nil || *stored.ProcessedBy != "Jane Staff" {
		t.Fatalf("unexpected state after start processing: %+v", stored)
	}

	available := true
	qty := 3
	itemID := store.items[q.ID][0].ID
	err := svc.AnnotateItem(ctx, q.ID, itemID, transport.AnnotateItemRequest{
		IsAvailable: &available, AvailableQty: &qty,
	})
	if err != nil {
		t.Fatalf("annotate item: %v", err)
	}

	discount := 10.0
	result, err := svc.SubmitOffer(ctx, q.ID, transport.SubmitOfferRequest{SpecialDiscount: &discount})
	if err != nil {
		t.Fatalf("submit offer: %v", err)
	}
	if result.Status != transport.StatusOffered {
		t.Fatalf("expected OFFERED, got %s", result.Status)
	}

	if len(dispatcher.events) != 1 || dispatcher.events[0] != notifier.EventOffered {
		t.Fatalf("expected one OFFERED dispatch, got %v", dispatcher.events)
	}
	snap := dispatcher.snaps[0]
	if snap.DiscountAmount != 30000 {
		t.Fatalf("expected discount amount 30000, got %f", snap.DiscountAmount)
	}
	if snap.FinalTotal != 270000 {
		t.Fatalf("expected final total 270000, got %f", snap.FinalTotal)
	}

	if _, err := svc.ConfirmOrder(ctx, q.ID, transport.ConfirmOrderRequest{ShippingCost: 20000}); err != nil {
		t.Fatalf("confirm order: %v", err)
	}
	if _, err := svc.ShipOrder(ctx, q.ID, transport.ShipOrderRequest{TrackingNumber: "JNE-1"}); err != nil {
		t.Fatalf("ship order: %v", err)
	}
	if _, err := svc.CompleteOrder(ctx, q.ID); err != nil {
		t.Fatalf("complete order: %v", err)
	}

	want := []notifier.Event{notifier.EventOffered, notifier.EventConfirmed, notifier.EventShipped, notifier.EventCompleted}
	if len(dispatcher.events) != len(want) {
		t.Fatalf("expected %d dispatches, got %d", len(want), len(dispatcher.events))
	}
	for i, event := range want {
		if dispatcher.events[i] != event {
			t.Fatalf("dispatch %d: expected %s, got %s", i, event, dispatcher.events[i])
		}
	}
}

func TestCreateRequiresContactChannel(t *testing.T) {
	svc := newTestService(newMemStore(), nil)

	_, err := svc.Create(context.Background(), transport.CreateQuotationRequest{
		Items: []transport.CreateItemRequest{{ProductSku: "A", ProductName: "A", Quantity: 1, Price: 1}},
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInvalidTransitionLeavesStateUntouched(t *testing.T) {
	store := newMemStore()
	dispatcher := &recordingDispatcher{}
	svc := newTestService(store, dispatcher)
	ctx := context.Background()

	q := createTestQuotation(t, svc)

	_, err := svc.ShipOrder(ctx, q.ID, transport.ShipOrderRequest{TrackingNumber: "JNE-1"})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for ship on PENDING, got %v", err)
	}

	stored, _ := store.GetByID(ctx, q.ID)
	if stored.Status != "PENDING" {
		t.Fatalf("status must stay PENDING, got %s", stored.Status)
	}
	if len(dispatcher.events) != 0 {
		t.Fatalf("no notification may be dispatched, got %v", dispatcher.events)
	}
}

func TestFreeShippingForcesZeroCost(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	q := createTestQuotation(t, svc)
	if _, err := svc.StartProcessing(ctx, q.ID, "Jane"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SubmitOffer(ctx, q.ID, transport.SubmitOfferRequest{}); err != nil {
		t.Fatal(err)
	}

	_, err := svc.ConfirmOrder(ctx, q.ID, transport.ConfirmOrderRequest{
		ShippingCost: 50000,
		FreeShipping: true,
	})
	if err != nil {
		t.Fatalf("confirm order: %v", err)
	}

	stored, _ := store.GetByID(ctx, q.ID)
	if stored.ShippingCost != 0 || !stored.FreeShipping {
		t.Fatalf("expected shippingCost 0 with freeShipping, got %d/%v", stored.ShippingCost, stored.FreeShipping)
	}
}

func TestCancelIsTerminal(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	q := createTestQuotation(t, svc)
	if _, err := svc.Cancel(ctx, q.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := svc.StartProcessing(ctx, q.ID, "Jane"); apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error after cancel, got %v", err)
	}
	if _, err := svc.Cancel(ctx, q.ID); apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("cancel is not repeatable, got %v", err)
	}
}

func TestSubmitOfferAtomicity(t *testing.T) {
	store := newMemStore()
	dispatcher := &recordingDispatcher{}
	svc := newTestService(store, dispatcher)
	ctx := context.Background()

	q := createTestQuotation(t, svc)
	if _, err := svc.StartProcessing(ctx, q.ID, "Jane"); err != nil {
		t.Fatal(err)
	}

	store.failSubmitOffer = true
	available := true
	discount := 10.0
	_, err := svc.SubmitOffer(ctx, q.ID, transport.SubmitOfferRequest{
		Items:           []transport.ItemAnnotationRequest{{ItemID: store.items[q.ID][0].ID, IsAvailable: &available}},
		SpecialDiscount: &discount,
	})
	if err == nil {
		t.Fatal("expected submit offer to fail")
	}

	stored, _ := store.GetByID(ctx, q.ID)
	if stored.Status != "PROCESSING" {
		t.Fatalf("status must stay PROCESSING after failed offer, got %s", stored.Status)
	}
	if stored.SpecialDiscount != nil {
		t.Fatal("discount must not be persisted after failed offer")
	}
	if item := store.items[q.ID][0]; item.IsAvailable != nil {
		t.Fatal("item annotation must not be persisted after failed offer")
	}
	if len(dispatcher.events) != 0 {
		t.Fatalf("no notification after failed write, got %v", dispatcher.events)
	}
}

func TestConcurrentTransitionLosesGracefully(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	q := createTestQuotation(t, svc)
	if _, err := svc.StartProcessing(ctx, q.ID, "Jane"); err != nil {
		t.Fatal(err)
	}

	// Simulate the race window: status changes between the service's read
	// and the guarded write.
	store.quotations[q.ID].Status = "OFFERED"
	err := store.StartProcessing(ctx, q.ID, "Second Staff", time.Now())
	if !errors.Is(err, repository.ErrStaleStatus) {
		t.Fatalf("expected stale-status error, got %v", err)
	}
	mapped := svc.mapTransitionError(err, transport.StatusPending)
	if apperr.GetKind(mapped) != apperr.KindValidation {
		t.Fatalf("stale status must map to validation, got %v", mapped)
	}
}

func TestPendingCountSwallowsErrors(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)

	createTestQuotation(t, svc)
	if got := svc.PendingCount(context.Background()); got != 1 {
		t.Fatalf("expected pending count 1, got %d", got)
	}

	store.failPending = true
	if got := svc.PendingCount(context.Background()); got != 0 {
		t.Fatalf("expected 0 on store failure, got %d", got)
	}
}

func TestListMineScopesByCustomer(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	customerID := uuid.New()
	_, err := svc.Create(ctx, transport.CreateQuotationRequest{
		CustomerID:   &customerID,
		ContactEmail: "mine@example.com",
		Items:        []transport.CreateItemRequest{{ProductSku: "A", ProductName: "A", Quantity: 1, Price: 1000}},
	})
	if err != nil {
		t.Fatal(err)
	}
	createTestQuotation(t, svc) // guest quotation, different owner

	mine, err := svc.ListMine(ctx, customerID)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("expected 1 owned quotation, got %d", len(mine))
	}

	all, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 quotations in staff view, got %d", len(all))
	}
}

func TestGetDetailFallsBackWithoutCatalog(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	q := createTestQuotation(t, svc)
	detail, err := svc.GetDetail(ctx, q.ID)
	if err != nil {
		t.Fatalf("get detail: %v", err)
	}
	if len(detail.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(detail.Items))
	}
	item := detail.Items[0]
	if item.CatalogFound {
		t.Fatal("expected CatalogFound=false without catalog client")
	}
	if item.CurrentPrice != 100000 || item.CurrentSellableQty != 3 {
		t.Fatalf("expected quoted fallback values, got %+v", item)
	}
}
