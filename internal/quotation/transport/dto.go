package transport

import (
	"time"

	"github.com/google/uuid"
)

// Status defines the lifecycle state of a quotation.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusOffered    Status = "OFFERED"
	StatusConfirmed  Status = "CONFIRMED"
	StatusShipped    Status = "SHIPPED"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// =============================================================================
// Requests
// =============================================================================

// CreateItemRequest is the input for a single requested item. The product
// fields are snapshotted from the catalog by the checkout caller; they are
// deliberately not live references.
type CreateItemRequest struct {
	ProductSku  string `json:"productSku" validate:"required,max=100"`
	ProductName string `json:"productName" validate:"required,max=500"`
	Brand       string `json:"brand" validate:"max=200"`
	Quantity    int    `json:"quantity" validate:"required,min=1"`
	Price       int64  `json:"price" validate:"min=0"`
}

// CreateQuotationRequest is the request body for creating a new quotation.
// Either customerId or a guest email/phone pair must resolve to a contact
// channel; the service rejects requests with neither.
type CreateQuotationRequest struct {
	CustomerID   *uuid.UUID          `json:"customerId"`
	ContactEmail string              `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone string              `json:"contactPhone" validate:"omitempty,max=32"`
	Items        []CreateItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ItemAnnotationRequest carries a staff availability determination for one item.
type ItemAnnotationRequest struct {
	ItemID       uuid.UUID `json:"itemId" validate:"required"`
	IsAvailable  *bool     `json:"isAvailable"`
	AvailableQty *int      `json:"availableQty" validate:"omitempty,min=0"`
	AdminNote    *string   `json:"adminNote" validate:"omitempty,max=2000"`
}

// AnnotateItemRequest is the request body for annotating a single item while
// the parent quotation is in PROCESSING.
type AnnotateItemRequest struct {
	IsAvailable  *bool   `json:"isAvailable"`
	AvailableQty *int    `json:"availableQty" validate:"omitempty,min=0"`
	AdminNote    *string `json:"adminNote" validate:"omitempty,max=2000"`
}

// SubmitOfferRequest is the request body for composing an offer. The discount
// range is enforced here at the boundary; the engine itself passes the value
// through unchanged.
type SubmitOfferRequest struct {
	Items           []ItemAnnotationRequest `json:"items" validate:"omitempty,dive"`
	AdminNotes      *string                 `json:"adminNotes" validate:"omitempty,max=4000"`
	SpecialDiscount *float64                `json:"specialDiscount" validate:"omitempty,min=0,max=100"`
}

// ConfirmOrderRequest is the request body for confirming an offered quotation.
type ConfirmOrderRequest struct {
	ShippingCost int64 `json:"shippingCost" validate:"min=0"`
	FreeShipping bool  `json:"freeShipping"`
}

// ShipOrderRequest is the request body for marking a confirmed order shipped.
type ShipOrderRequest struct {
	TrackingNumber string `json:"trackingNumber" validate:"required,max=100"`
	ShippingNotes  string `json:"shippingNotes" validate:"max=2000"`
}

// =============================================================================
// Responses
// =============================================================================

// ItemResponse is the response for a single quotation item.
type ItemResponse struct {
	ID           uuid.UUID `json:"id"`
	ProductSku   string    `json:"productSku"`
	ProductName  string    `json:"productName"`
	Brand        string    `json:"brand,omitempty"`
	Quantity     int       `json:"quantity"`
	Price        int64     `json:"price"`
	LineTotal    int64     `json:"lineTotal"`
	IsAvailable  *bool     `json:"isAvailable"`
	AvailableQty *int      `json:"availableQty"`
	AdminNote    *string   `json:"adminNote"`
}

// DetailItemResponse extends ItemResponse with live catalog figures. When the
// catalog has no data for the SKU, the current fields mirror the quoted ones.
type DetailItemResponse struct {
	ItemResponse
	CurrentPrice       int64 `json:"currentPrice"`
	CurrentSellableQty int   `json:"currentSellableQty"`
	CatalogFound       bool  `json:"catalogFound"`
}

// QuotationResponse is the standard quotation view.
type QuotationResponse struct {
	ID              uuid.UUID      `json:"id"`
	Number          string         `json:"number"`
	CustomerID      *uuid.UUID     `json:"customerId"`
	ContactEmail    string         `json:"contactEmail,omitempty"`
	ContactPhone    string         `json:"contactPhone,omitempty"`
	Status          Status         `json:"status"`
	TotalAmount     int64          `json:"totalAmount"`
	SpecialDiscount *float64       `json:"specialDiscount"`
	DiscountAmount  float64        `json:"discountAmount"`
	FinalTotal      float64        `json:"finalTotal"`
	AdminNotes      *string        `json:"adminNotes"`
	ProcessedBy     *string        `json:"processedBy"`
	ProcessedAt     *time.Time     `json:"processedAt"`
	OfferedAt       *time.Time     `json:"offeredAt"`
	ConfirmedAt     *time.Time     `json:"confirmedAt"`
	ShippedAt       *time.Time     `json:"shippedAt"`
	CompletedAt     *time.Time     `json:"completedAt"`
	ShippingCost    int64          `json:"shippingCost"`
	FreeShipping    bool           `json:"freeShipping"`
	TrackingNumber  *string        `json:"trackingNumber"`
	ShippingNotes   *string        `json:"shippingNotes"`
	Items           []ItemResponse `json:"items"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// DetailResponse is the staff detail view with live stock reconciliation.
type DetailResponse struct {
	QuotationResponse
	Items []DetailItemResponse `json:"items"`
}

// TransitionResponse is the minimal result of a lifecycle operation.
type TransitionResponse struct {
	ID     uuid.UUID `json:"id"`
	Number string    `json:"number"`
	Status Status    `json:"status"`
}

// PendingCountResponse carries the notification-badge count.
type PendingCountResponse struct {
	Count int `json:"count"`
}
