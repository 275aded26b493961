// Package service owns the quotation lifecycle state machine. All status
// mutations go through here; handlers never touch the repository directly.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront_backend/internal/notifier"
	"storefront_backend/internal/quotation/repository"
	"storefront_backend/internal/quotation/transport"
	"storefront_backend/internal/stockread"
	"storefront_backend/platform/apperr"
	"storefront_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence surface the service needs. Implemented by
// repository.Repository; tests substitute an in-memory fake.
type Store interface {
	NextNumber(ctx context.Context) (string, error)
	CreateWithItems(ctx context.Context, q *repository.Quotation, items []repository.Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Quotation, error)
	GetItems(ctx context.Context, quotationID uuid.UUID) ([]repository.Item, error)
	GetItemsBatch(ctx context.Context, quotationIDs []uuid.UUID) (map[uuid.UUID][]repository.Item, error)
	ListAll(ctx context.Context) ([]repository.Quotation, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]repository.Quotation, error)
	PendingCount(ctx context.Context) (int, error)
	StartProcessing(ctx context.Context, id uuid.UUID, processedBy string, at time.Time) error
	Cancel(ctx context.Context, id uuid.UUID, at time.Time) error
	Confirm(ctx context.Context, id uuid.UUID, p repository.ConfirmParams) error
	Ship(ctx context.Context, id uuid.UUID, p repository.ShipParams) error
	Complete(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateItemAnnotation(ctx context.Context, quotationID uuid.UUID, ann repository.ItemAnnotation) error
	SubmitOffer(ctx context.Context, id uuid.UUID, p repository.OfferParams) error
}

// Service implements the quotation lifecycle and listing operations.
type Service struct {
	store      Store
	stock      *stockread.Reader
	dispatcher notifier.Dispatcher
	log        *logger.Logger
}

// New creates a quotation service. dispatcher may be nil, which disables
// notifications entirely (useful in tests).
func New(store Store, stock *stockread.Reader, dispatcher notifier.Dispatcher, log *logger.Logger) *Service {
	return &Service{store: store, stock: stock, dispatcher: dispatcher, log: log}
}

// =============================================================================
// Creation (checkout seam)
// =============================================================================

// Create persists a new quotation with its item snapshot. The total is
// computed once, here; later transitions never recompute it.
func (s *Service) Create(ctx context.Context, req transport.CreateQuotationRequest) (*transport.QuotationResponse, error) {
	if req.ContactEmail == "" && req.ContactPhone == "" {
		return nil, apperr.Validation("at least one contact channel (email or phone) is required")
	}

	number, err := s.store.NextNumber(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to create quotation", err)
	}

	now := time.Now()
	q := &repository.Quotation{
		ID:           uuid.New(),
		Number:       number,
		CustomerID:   req.CustomerID,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Status:       string(transport.StatusPending),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	items := make([]repository.Item, 0, len(req.Items))
	priced := make([]PricedItem, 0, len(req.Items))
	for i, in := range req.Items {
		items = append(items, repository.Item{
			ID:          uuid.New(),
			QuotationID: q.ID,
			ProductSku:  in.ProductSku,
			ProductName: in.ProductName,
			Brand:       in.Brand,
			Quantity:    in.Quantity,
			Price:       in.Price,
			SortOrder:   i,
			CreatedAt:   now,
		})
		priced = append(priced, PricedItem{Price: in.Price, Quantity: in.Quantity})
	}
	q.TotalAmount = Subtotal(priced)

	if err := s.store.CreateWithItems(ctx, q, items); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to create quotation", err)
	}

	resp := toResponse(q, items)
	return &resp, nil
}

// =============================================================================
// Lifecycle transitions
// =============================================================================

// StartProcessing moves a PENDING quotation to PROCESSING and records who
// picked it up. processedBy is set exactly once.
func (s *Service) StartProcessing(ctx context.Context, id uuid.UUID, staffName string) (*transport.TransitionResponse, error) {
	q, err := s.requireStatus(ctx, id, transport.StatusPending)
	if err != nil {
		return nil, err
	}

	if err := s.store.StartProcessing(ctx, id, staffName, time.Now()); err != nil {
		return nil, s.mapTransitionError(err, transport.StatusPending)
	}

	return transitionResponse(q, transport.StatusProcessing), nil
}

// Cancel moves a PENDING quotation to the terminal CANCELLED state.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*transport.TransitionResponse, error) {
	q, err := s.requireStatus(ctx, id, transport.StatusPending)
	if err != nil {
		return nil, err
	}

	if err := s.store.Cancel(ctx, id, time.Now()); err != nil {
		return nil, s.mapTransitionError(err, transport.StatusPending)
	}

	return transitionResponse(q, transport.StatusCancelled), nil
}

// AnnotateItem records a staff availability determination on a single item.
// Allowed only while the parent quotation is in PROCESSING.
func (s *Service) AnnotateItem(ctx context.Context, quotationID, itemID uuid.UUID, req transport.AnnotateItemRequest) error {
	if _, err := s.requireStatus(ctx, quotationID, transport.StatusProcessing); err != nil {
		return err
	}

	err := s.store.UpdateItemAnnotation(ctx, quotationID, repository.ItemAnnotation{
		ItemID:       itemID,
		IsAvailable:  req.IsAvailable,
		AvailableQty: req.AvailableQty,
		AdminNote:    req.AdminNote,
	})
	if err != nil {
		return s.mapTransitionError(err, transport.StatusProcessing)
	}
	return nil
}

// SubmitOffer writes the full annotation batch plus the quotation's offer
// fields in one transaction, then dispatches the OFFERED notification.
func (s *Service) SubmitOffer(ctx context.Context, id uuid.UUID, req transport.SubmitOfferRequest) (*transport.TransitionResponse, error) {
	q, err := s.requireStatus(ctx, id, transport.StatusProcessing)
	if err != nil {
		return nil, err
	}

	params := repository.OfferParams{
		AdminNotes:      req.AdminNotes,
		SpecialDiscount: req.SpecialDiscount,
		OfferedAt:       time.Now(),
	}
	for _, in := range req.Items {
		params.Annotations = append(params.Annotations, repository.ItemAnnotation{
			ItemID:       in.ItemID,
			IsAvailable:  in.IsAvailable,
			AvailableQty: in.AvailableQty,
			AdminNote:    in.AdminNote,
		})
	}

	if err := s.store.SubmitOffer(ctx, id, params); err != nil {
		return nil, s.mapTransitionError(err, transport.StatusProcessing)
	}

	s.notify(ctx, id, notifier.EventOffered)
	return transitionResponse(q, transport.StatusOffered), nil
}

// ConfirmOrder moves OFFERED to CONFIRMED and records shipping cost. A free
// shipment always persists a zero cost, whatever the caller supplied.
func (s *Service) ConfirmOrder(ctx context.Context, id uuid.UUID, req transport.ConfirmOrderRequest) (*transport.TransitionResponse, error) {
	q, err := s.requireStatus(ctx, id, transport.StatusOffered)
	if err != nil {
		return nil, err
	}

	cost := req.ShippingCost
	if req.FreeShipping {
		cost = 0
	}

	err = s.store.Confirm(ctx, id, repository.ConfirmParams{
		ShippingCost: cost,
		FreeShipping: req.FreeShipping,
		ConfirmedAt:  time.Now(),
	})
	if err != nil {
		return nil, s.mapTransitionError(err, transport.StatusOffered)
	}

	s.notify(ctx, id, notifier.EventConfirmed)
	return transitionResponse(q, transport.StatusConfirmed), nil
}

// ShipOrder moves CONFIRMED to SHIPPED with tracking details.
func (s *Service) ShipOrder(ctx context.Context, id uuid.UUID, req transport.ShipOrderRequest) (*transport.TransitionResponse, error) {
	q, err := s.requireStatus(ctx, id, transport.StatusConfirmed)
	if err != nil {
		return nil, err
	}

	var notes *string
	if req.ShippingNotes != "" {
		notes = &req.ShippingNotes
	}

	err = s.store.Ship(ctx, id, repository.ShipParams{
		TrackingNumber: req.TrackingNumber,
		ShippingNotes:  notes,
		ShippedAt:      time.Now(),
	})
	if err != nil {
		return nil, s.mapTransitionError(err, transport.StatusConfirmed)
	}

	s.notify(ctx, id, notifier.EventShipped)
	return transitionResponse(q, transport.StatusShipped), nil
}

// CompleteOrder moves SHIPPED to the terminal COMPLETED state.
func (s *Service) CompleteOrder(ctx context.Context, id uuid.UUID) (*transport.TransitionResponse, error) {
	q, err := s.requireStatus(ctx, id, transport.StatusShipped)
	if err != nil {
		return nil, err
	}

	if err := s.store.Complete(ctx, id, time.Now()); err != nil {
		return nil, s.mapTransitionError(err, transport.StatusShipped)
	}

	s.notify(ctx, id, notifier.EventCompleted)
	return transitionResponse(q, transport.StatusCompleted), nil
}

// =============================================================================
// Listing / queries
// =============================================================================

// List returns all quotations with items, newest first. Staff view.
func (s *Service) List(ctx context.Context) ([]transport.QuotationResponse, error) {
	quotations, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list quotations", err)
	}
	return s.attachItems(ctx, quotations)
}

// ListMine returns the calling customer's quotations, newest first.
func (s *Service) ListMine(ctx context.Context, customerID uuid.UUID) ([]transport.QuotationResponse, error) {
	quotations, err := s.store.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list quotations", err)
	}
	return s.attachItems(ctx, quotations)
}

// GetDetail returns a quotation with live catalog figures merged per item.
func (s *Service) GetDetail(ctx context.Context, id uuid.UUID) (*transport.DetailResponse, error) {
	result, err := s.stock.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	base := toResponse(result.Quotation, nil)
	resp := transport.DetailResponse{QuotationResponse: base}
	for _, merged := range result.Items {
		resp.Items = append(resp.Items, transport.DetailItemResponse{
			ItemResponse:       itemResponse(merged.Item),
			CurrentPrice:       merged.CurrentPrice,
			CurrentSellableQty: merged.CurrentSellableQty,
			CatalogFound:       merged.CatalogFound,
		})
	}
	return &resp, nil
}

// PendingCount counts quotations awaiting staff attention. Errors are
// swallowed: a broken badge is not worth a failed page.
func (s *Service) PendingCount(ctx context.Context) int {
	count, err := s.store.PendingCount(ctx)
	if err != nil {
		s.log.DatabaseError("quotations.pending_count", err)
		return 0
	}
	return count
}

// =============================================================================
// Internals
// =============================================================================

// requireStatus re-reads the quotation and rejects the operation when it is
// not in the expected state. The SQL status guard remains the authority under
// concurrency; this read exists for precise error messages.
func (s *Service) requireStatus(ctx context.Context, id uuid.UUID, expected transport.Status) (*repository.Quotation, error) {
	q, err := s.store.GetByID(ctx, id)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindNotFound {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load quotation", err)
	}
	if q.Status != string(expected) {
		return nil, apperr.Validation(invalidTransitionMsg(q.Status, expected))
	}
	return q, nil
}

func invalidTransitionMsg(current string, expected transport.Status) string {
	return fmt.Sprintf("operation requires status %s, quotation is %s", expected, current)
}

func (s *Service) mapTransitionError(err error, expected transport.Status) error {
	if errors.Is(err, repository.ErrStaleStatus) {
		return apperr.Validation(fmt.Sprintf("quotation left status %s concurrently, please refresh", expected))
	}
	if apperr.GetKind(err) == apperr.KindNotFound {
		return err
	}
	return apperr.Wrap(apperr.KindInternal, "failed to update quotation", err)
}

// notify builds a post-commit snapshot and hands it to the dispatcher. Any
// failure here is logged and dropped; the transition already succeeded.
func (s *Service) notify(ctx context.Context, id uuid.UUID, event notifier.Event) {
	if s.dispatcher == nil {
		return
	}

	q, err := s.store.GetByID(ctx, id)
	if err != nil {
		s.log.NotificationError("snapshot", id.String(), string(event), err)
		return
	}
	items, err := s.store.GetItems(ctx, id)
	if err != nil {
		s.log.NotificationError("snapshot", q.Number, string(event), err)
		return
	}

	s.dispatcher.Dispatch(event, buildSnapshot(q, items))
}

func buildSnapshot(q *repository.Quotation, items []repository.Item) notifier.Snapshot {
	snap := notifier.Snapshot{
		ID:              q.ID,
		Number:          q.Number,
		ContactEmail:    q.ContactEmail,
		ContactPhone:    q.ContactPhone,
		TotalAmount:     q.TotalAmount,
		SpecialDiscount: q.SpecialDiscount,
		DiscountAmount:  DiscountAmount(q.TotalAmount, q.SpecialDiscount),
		FinalTotal:      FinalTotal(q.TotalAmount, q.SpecialDiscount, q.ShippingCost, q.FreeShipping),
		ShippingCost:    q.ShippingCost,
		FreeShipping:    q.FreeShipping,
		AdminNotes:      q.AdminNotes,
	}
	if q.TrackingNumber != nil {
		snap.TrackingNumber = *q.TrackingNumber
	}
	if q.ShippingNotes != nil {
		snap.ShippingNotes = *q.ShippingNotes
	}
	for _, item := range items {
		snap.Items = append(snap.Items, notifier.SnapshotItem{
			ProductSku:   item.ProductSku,
			ProductName:  item.ProductName,
			Brand:        item.Brand,
			Quantity:     item.Quantity,
			Price:        item.Price,
			IsAvailable:  item.IsAvailable,
			AvailableQty: item.AvailableQty,
			AdminNote:    item.AdminNote,
		})
	}
	return snap
}

func (s *Service) attachItems(ctx context.Context, quotations []repository.Quotation) ([]transport.QuotationResponse, error) {
	if len(quotations) == 0 {
		return []transport.QuotationResponse{}, nil
	}

	ids := make([]uuid.UUID, 0, len(quotations))
	for _, q := range quotations {
		ids = append(ids, q.ID)
	}

	itemsByID, err := s.store.GetItemsBatch(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load quotation items", err)
	}

	result := make([]transport.QuotationResponse, 0, len(quotations))
	for i := range quotations {
		result = append(result, toResponse(&quotations[i], itemsByID[quotations[i].ID]))
	}
	return result, nil
}

func transitionResponse(q *repository.Quotation, status transport.Status) *transport.TransitionResponse {
	return &transport.TransitionResponse{ID: q.ID, Number: q.Number, Status: status}
}

func itemResponse(item repository.Item) transport.ItemResponse {
	return transport.ItemResponse{
		ID:           item.ID,
		ProductSku:   item.ProductSku,
		ProductName:  item.ProductName,
		Brand:        item.Brand,
		Quantity:     item.Quantity,
		Price:        item.Price,
		LineTotal:    item.Price * int64(item.Quantity),
		IsAvailable:  item.IsAvailable,
		AvailableQty: item.AvailableQty,
		AdminNote:    item.AdminNote,
	}
}

func toResponse(q *repository.Quotation, items []repository.Item) transport.QuotationResponse {
	resp := transport.QuotationResponse{
		ID:              q.ID,
		Number:          q.Number,
		CustomerID:      q.CustomerID,
		ContactEmail:    q.ContactEmail,
		ContactPhone:    q.ContactPhone,
		Status:          transport.Status(q.Status),
		TotalAmount:     q.TotalAmount,
		SpecialDiscount: q.SpecialDiscount,
		DiscountAmount:  DiscountAmount(q.TotalAmount, q.SpecialDiscount),
		FinalTotal:      FinalTotal(q.TotalAmount, q.SpecialDiscount, q.ShippingCost, q.FreeShipping),
		AdminNotes:      q.AdminNotes,
		ProcessedBy:     q.ProcessedBy,
		ProcessedAt:     q.ProcessedAt,
		OfferedAt:       q.OfferedAt,
		ConfirmedAt:     q.ConfirmedAt,
		ShippedAt:       q.ShippedAt,
		CompletedAt:     q.CompletedAt,
		ShippingCost:    q.ShippingCost,
		FreeShipping:    q.FreeShipping,
		TrackingNumber:  q.TrackingNumber,
		ShippingNotes:   q.ShippingNotes,
		CreatedAt:       q.CreatedAt,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, itemResponse(item))
	}
	return resp
}
