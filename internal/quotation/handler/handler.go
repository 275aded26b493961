// Package handler exposes the quotation lifecycle over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront_backend/internal/quotation/service"
	"storefront_backend/internal/quotation/transport"
	"storefront_backend/platform/httpkit"
	"storefront_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid quotation ID"
	msgInvalidItemID    = "invalid item ID"
)

// Handler handles HTTP requests for quotations.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new quotation handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Create persists a new quotation from the checkout flow.
// POST /api/v1/quotations
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// ListMine retrieves the calling customer's quotations.
// GET /api/v1/quotations/mine
func (h *Handler) ListMine(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.ListMine(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// List retrieves all quotations (staff view).
// GET /api/v1/staff/quotations
func (h *Handler) List(c *gin.Context) {
	result, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// PendingCount returns the notification-badge count.
// GET /api/v1/staff/quotations/pending-count
func (h *Handler) PendingCount(c *gin.Context) {
	httpkit.OK(c, transport.PendingCountResponse{
		Count: h.svc.PendingCount(c.Request.Context()),
	})
}

// GetDetail retrieves one quotation with live stock reconciliation.
// GET /api/v1/staff/quotations/:id
func (h *Handler) GetDetail(c *gin.Context) {
	id, ok := h.quotationID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetDetail(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// StartProcessing moves a quotation from PENDING to PROCESSING.
// POST /api/v1/staff/quotations/:id/process
func (h *Handler) StartProcessing(c *gin.Context) {
	id, ok := h.quotationID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	staffName := identity.Name()
	if staffName == "" {
		staffName = identity.Email()
	}

	result, err := h.svc.StartProcessing(c.Request.Context(), id, staffName)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Cancel moves a PENDING quotation to CANCELLED.
// POST /api/v1/staff/quotations/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := h.quotationID(c)
	if !ok {
		return
	}

	result, err := h.svc.Cancel(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// AnnotateItem records a staff availability determination on one item.
// PATCH /api/v1/staff/quotations/:id/items/:itemId
func (h *Handler) AnnotateItem(c *gin.Context) {
	id, ok := h.quotationID(c)
	if !ok {
		return
	}
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidItemID, nil)
		return
	}

	var req transport.AnnotateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if err := h.svc.AnnotateItem(c.Request.Context(), id, itemID, req); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// SubmitOffer writes the offer transactionally and notifies the customer.
// POST /api/v1/staff/quotations/:id/offer
func (h *Handler) SubmitOffer(c *gin.Context) {
	id, ok := h.quotationID(c)
	if !ok {
		return
	}

	var req transport.SubmitOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.SubmitOffer(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ConfirmOrder moves an OFFERED quotation to CONFIRMED.
// POST /api/v1/staff/quotations/:id/confirm
func (h *Handler) ConfirmOrder(c *gin.Context) {
	id, ok := h.quotationID(c)
	if !ok {
		return
	}

	var req transport.ConfirmOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.ConfirmOrder(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ShipOrder moves a CONFIRMED quotation to SHIPPED.
// POST /api/v1/staff/quotations/:id/ship
func (h *Handler) ShipOrder(c *gin.Context) {
	id, ok := h.quotationID(c)
	if !ok {
		return
	}

	var req transport.ShipOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.ShipOrder(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CompleteOrder moves a SHIPPED quotation to COMPLETED.
// POST /api/v1/staff/quotations/:id/complete
func (h *Handler) CompleteOrder(c *gin.Context) {
	id, ok := h.quotationID(c)
	if !ok {
		return
	}

	result, err := h.svc.CompleteOrder(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) quotationID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}
