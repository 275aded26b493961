// Package quotation provides the sales-quotation fulfillment bounded context:
// lifecycle state machine, offer transaction, stock reconciliation view, and
// customer notifications.
package quotation

import (
	apphttp "storefront_backend/internal/http"
	"storefront_backend/internal/notifier"
	"storefront_backend/internal/quotation/handler"
	"storefront_backend/internal/quotation/repository"
	"storefront_backend/internal/quotation/service"
	"storefront_backend/internal/stockread"
	"storefront_backend/platform/logger"
	"storefront_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the quotation bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule wires the quotation module. catalog may be nil (no live stock);
// dispatcher may be nil (notifications disabled).
func NewModule(pool *pgxpool.Pool, cat stockread.Catalog, dispatcher notifier.Dispatcher, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	reader := stockread.New(repo, cat, log)
	svc := service.New(repo, reader, dispatcher, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "quotation"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts quotation routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Checkout seam: creates a quotation on behalf of the storefront.
	ctx.V1.POST("/quotations", m.handler.Create)

	// Customer view, scoped by the authenticated identity.
	ctx.Protected.GET("/quotations/mine", m.handler.ListMine)

	// Staff back office.
	ctx.Staff.GET("/quotations", m.handler.List)
	ctx.Staff.GET("/quotations/pending-count", m.handler.PendingCount)
	ctx.Staff.GET("/quotations/:id", m.handler.GetDetail)
	ctx.Staff.POST("/quotations/:id/process", m.handler.StartProcessing)
	ctx.Staff.POST("/quotations/:id/cancel", m.handler.Cancel)
	ctx.Staff.PATCH("/quotations/:id/items/:itemId", m.handler.AnnotateItem)
	ctx.Staff.POST("/quotations/:id/offer", m.handler.SubmitOffer)
	ctx.Staff.POST("/quotations/:id/confirm", m.handler.ConfirmOrder)
	ctx.Staff.POST("/quotations/:id/ship", m.handler.ShipOrder)
	ctx.Staff.POST("/quotations/:id/complete", m.handler.CompleteOrder)
}
