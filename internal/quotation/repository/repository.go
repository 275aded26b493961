package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// =============================================================================
// Domain Models
// =============================================================================

// Quotation is the database model for a quotation header.
type Quotation struct {
	ID              uuid.UUID  `db:"id"`
	Number          string     `db:"number"`
	CustomerID      *uuid.UUID `db:"customer_id"`
	ContactEmail    string     `db:"contact_email"`
	ContactPhone    string     `db:"contact_phone"`
	Status          string     `db:"status"`
	TotalAmount     int64      `db:"total_amount"`
	SpecialDiscount *float64   `db:"special_discount"`
	AdminNotes      *string    `db:"admin_notes"`
	ProcessedBy     *string    `db:"processed_by"`
	ProcessedAt     *time.Time `db:"processed_at"`
	OfferedAt       *time.Time `db:"offered_at"`
	ConfirmedAt     *time.Time `db:"confirmed_at"`
	ShippedAt       *time.Time `db:"shipped_at"`
	CompletedAt     *time.Time `db:"completed_at"`
	ShippingCost    int64      `db:"shipping_cost"`
	FreeShipping    bool       `db:"free_shipping"`
	TrackingNumber  *string    `db:"tracking_number"`
	ShippingNotes   *string    `db:"shipping_notes"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// Item is the database model for a quotation line item. Product fields are a
// snapshot of the catalog at request time, not a live reference.
type Item struct {
	ID           uuid.UUID `db:"id"`
	QuotationID  uuid.UUID `db:"quotation_id"`
	ProductSku   string    `db:"product_sku"`
	ProductName  string    `db:"product_name"`
	Brand        string    `db:"brand"`
	Quantity     int       `db:"quantity"`
	Price        int64     `db:"price"`
	IsAvailable  *bool     `db:"is_available"`
	AvailableQty *int      `db:"available_qty"`
	AdminNote    *string   `db:"admin_note"`
	SortOrder    int       `db:"sort_order"`
	CreatedAt    time.Time `db:"created_at"`
}

// ItemAnnotation carries the staff-writable fields of an item.
type ItemAnnotation struct {
	ItemID       uuid.UUID
	IsAvailable  *bool
	AvailableQty *int
	AdminNote    *string
}

// OfferParams carries the fields written atomically by SubmitOffer.
type OfferParams struct {
	Annotations     []ItemAnnotation
	AdminNotes      *string
	SpecialDiscount *float64
	OfferedAt       time.Time
}

// ConfirmParams carries the fields written by Confirm.
type ConfirmParams struct {
	ShippingCost int64
	FreeShipping bool
	ConfirmedAt  time.Time
}

// ShipParams carries the fields written by Ship.
type ShipParams struct {
	TrackingNumber string
	ShippingNotes  *string
	ShippedAt      time.Time
}

// ErrStaleStatus is returned when a guarded status update matched the row by
// id but not by expected status, i.e. a concurrent transition won the race.
var ErrStaleStatus = errors.New("quotation status changed concurrently")

const quotationNotFoundMsg = "quotation not found"
const itemNotFoundMsg = "quotation item not found"

// =============================================================================
// Repository
// =============================================================================

// Repository provides database operations for quotations.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new quotation repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// NextNumber atomically generates the next human-readable quotation number.
func (r *Repository) NextNumber(ctx context.Context) (string, error) {
	var nextNum int
	query := `
		INSERT INTO quotation_counters (year, last_number)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_number = quotation_counters.last_number + 1
		RETURNING last_number`

	year := time.Now().Year()
	if err := r.pool.QueryRow(ctx, query, year).Scan(&nextNum); err != nil {
		return "", fmt.Errorf("failed to generate quotation number: %w", err)
	}

	return fmt.Sprintf("QT-%d-%05d", year, nextNum), nil
}

// CreateWithItems inserts a quotation and its items in a single transaction.
func (r *Repository) CreateWithItems(ctx context.Context, q *Quotation, items []Item) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	headerQuery := `
		INSERT INTO quotations (
			id, number, customer_id, contact_email, contact_phone, status,
			total_amount, shipping_cost, free_shipping, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	if _, err := tx.Exec(ctx, headerQuery,
		q.ID, q.Number, q.CustomerID, q.ContactEmail, q.ContactPhone, q.Status,
		q.TotalAmount, q.ShippingCost, q.FreeShipping, q.CreatedAt, q.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert quotation: %w", err)
	}

	itemQuery := `
		INSERT INTO quotation_items (
			id, quotation_id, product_sku, product_name, brand,
			quantity, price, sort_order, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, item := range items {
		if _, err := tx.Exec(ctx, itemQuery,
			item.ID, item.QuotationID, item.ProductSku, item.ProductName, item.Brand,
			item.Quantity, item.Price, item.SortOrder, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert quotation item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

const quotationColumns = `id, number, customer_id, contact_email, contact_phone, status,
		total_amount, special_discount, admin_notes, processed_by, processed_at,
		offered_at, confirmed_at, shipped_at, completed_at,
		shipping_cost, free_shipping, tracking_number, shipping_notes,
		created_at, updated_at`

func scanQuotation(row pgx.Row) (*Quotation, error) {
	var q Quotation
	err := row.Scan(
		&q.ID, &q.Number, &q.CustomerID, &q.ContactEmail, &q.ContactPhone, &q.Status,
		&q.TotalAmount, &q.SpecialDiscount, &q.AdminNotes, &q.ProcessedBy, &q.ProcessedAt,
		&q.OfferedAt, &q.ConfirmedAt, &q.ShippedAt, &q.CompletedAt,
		&q.ShippingCost, &q.FreeShipping, &q.TrackingNumber, &q.ShippingNotes,
		&q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(quotationNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get quotation: %w", err)
	}
	return &q, nil
}

// GetByID retrieves a quotation header by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Quotation, error) {
	query := `SELECT ` + quotationColumns + ` FROM quotations WHERE id = $1`
	return scanQuotation(r.pool.QueryRow(ctx, query, id))
}

// GetItems retrieves all items for a quotation in insertion order.
func (r *Repository) GetItems(ctx context.Context, quotationID uuid.UUID) ([]Item, error) {
	itemsByQuotation, err := r.GetItemsBatch(ctx, []uuid.UUID{quotationID})
	if err != nil {
		return nil, err
	}
	return itemsByQuotation[quotationID], nil
}

// GetItemsBatch retrieves items for multiple quotations in one query.
func (r *Repository) GetItemsBatch(ctx context.Context, quotationIDs []uuid.UUID) (map[uuid.UUID][]Item, error) {
	query := `
		SELECT id, quotation_id, product_sku, product_name, brand,
			quantity, price, is_available, available_qty, admin_note, sort_order, created_at
		FROM quotation_items
		WHERE quotation_id = ANY($1)
		ORDER BY sort_order ASC`

	rows, err := r.pool.Query(ctx, query, quotationIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotation items: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]Item, len(quotationIDs))
	for rows.Next() {
		var it Item
		if err := rows.Scan(
			&it.ID, &it.QuotationID, &it.ProductSku, &it.ProductName, &it.Brand,
			&it.Quantity, &it.Price, &it.IsAvailable, &it.AvailableQty, &it.AdminNote,
			&it.SortOrder, &it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quotation item: %w", err)
		}
		result[it.QuotationID] = append(result[it.QuotationID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quotation items: %w", err)
	}
	return result, nil
}

// ListAll retrieves all quotations, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]Quotation, error) {
	return r.list(ctx, `SELECT `+quotationColumns+` FROM quotations ORDER BY created_at DESC`)
}

// ListByCustomer retrieves quotations owned by a customer, newest first.
func (r *Repository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]Quotation, error) {
	return r.list(ctx,
		`SELECT `+quotationColumns+` FROM quotations WHERE customer_id = $1 ORDER BY created_at DESC`,
		customerID)
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]Quotation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotations: %w", err)
	}
	defer rows.Close()

	var result []Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quotations: %w", err)
	}
	return result, nil
}

// PendingCount counts quotations awaiting staff attention.
func (r *Repository) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM quotations WHERE status IN ('PENDING', 'PROCESSING')`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending quotations: %w", err)
	}
	return count, nil
}

// =============================================================================
// Guarded single-row transitions
// =============================================================================
//
// Every transition write repeats the expected status in the WHERE clause, so
// two concurrent attempts on the same quotation are serialized by the row:
// the loser matches zero rows and gets ErrStaleStatus.

// StartProcessing moves PENDING → PROCESSING and stamps the staff identity.
func (r *Repository) StartProcessing(ctx context.Context, id uuid.UUID, processedBy string, at time.Time) error {
	return r.guardedUpdate(ctx, id, `
		UPDATE quotations
		SET status = 'PROCESSING', processed_by = $2, processed_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'PENDING'`,
		id, processedBy, at)
}

// Cancel moves PENDING → CANCELLED.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.guardedUpdate(ctx, id, `
		UPDATE quotations
		SET status = 'CANCELLED', updated_at = $2
		WHERE id = $1 AND status = 'PENDING'`,
		id, at)
}

// Confirm moves OFFERED → CONFIRMED and records shipping cost.
func (r *Repository) Confirm(ctx context.Context, id uuid.UUID, p ConfirmParams) error {
	return r.guardedUpdate(ctx, id, `
		UPDATE quotations
		SET status = 'CONFIRMED', confirmed_at = $2, shipping_cost = $3, free_shipping = $4, updated_at = $2
		WHERE id = $1 AND status = 'OFFERED'`,
		id, p.ConfirmedAt, p.ShippingCost, p.FreeShipping)
}

// Ship moves CONFIRMED → SHIPPED and records tracking details.
func (r *Repository) Ship(ctx context.Context, id uuid.UUID, p ShipParams) error {
	return r.guardedUpdate(ctx, id, `
		UPDATE quotations
		SET status = 'SHIPPED', shipped_at = $2, tracking_number = $3, shipping_notes = $4, updated_at = $2
		WHERE id = $1 AND status = 'CONFIRMED'`,
		id, p.ShippedAt, p.TrackingNumber, p.ShippingNotes)
}

// Complete moves SHIPPED → COMPLETED.
func (r *Repository) Complete(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.guardedUpdate(ctx, id, `
		UPDATE quotations
		SET status = 'COMPLETED', completed_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'SHIPPED'`,
		id, at)
}

func (r *Repository) guardedUpdate(ctx context.Context, id uuid.UUID, query string, args ...interface{}) error {
	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update quotation status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.explainMiss(ctx, id)
	}
	return nil
}

// explainMiss distinguishes a missing row from a lost status race.
func (r *Repository) explainMiss(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM quotations WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check quotation existence: %w", err)
	}
	if !exists {
		return apperr.NotFound(quotationNotFoundMsg)
	}
	return ErrStaleStatus
}

// UpdateItemAnnotation writes the staff-entered availability fields of one
// item. The join against the parent enforces that annotations only land while
// the quotation is still in PROCESSING.
func (r *Repository) UpdateItemAnnotation(ctx context.Context, quotationID uuid.UUID, ann ItemAnnotation) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE quotation_items i
		SET is_available = $3, available_qty = $4, admin_note = $5
		FROM quotations q
		WHERE i.id = $2 AND i.quotation_id = $1
			AND q.id = i.quotation_id AND q.status = 'PROCESSING'`,
		quotationID, ann.ItemID, ann.IsAvailable, ann.AvailableQty, ann.AdminNote)
	if err != nil {
		return fmt.Errorf("failed to annotate quotation item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.explainItemMiss(ctx, quotationID, ann.ItemID)
	}
	return nil
}

func (r *Repository) explainItemMiss(ctx context.Context, quotationID, itemID uuid.UUID) error {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM quotation_items WHERE id = $1 AND quotation_id = $2)`,
		itemID, quotationID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check item existence: %w", err)
	}
	if !exists {
		return apperr.NotFound(itemNotFoundMsg)
	}
	return ErrStaleStatus
}

// SubmitOffer writes every submitted item annotation and the quotation's offer
// fields as a single all-or-nothing transaction. A partial write (some items
// annotated, quotation still PROCESSING) is never observable.
func (r *Repository) SubmitOffer(ctx context.Context, id uuid.UUID, p OfferParams) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	itemQuery := `
		UPDATE quotation_items
		SET is_available = $3, available_qty = $4, admin_note = $5
		WHERE id = $2 AND quotation_id = $1`

	for _, ann := range p.Annotations {
		result, err := tx.Exec(ctx, itemQuery,
			id, ann.ItemID, ann.IsAvailable, ann.AvailableQty, ann.AdminNote)
		if err != nil {
			return fmt.Errorf("failed to annotate quotation item: %w", err)
		}
		if result.RowsAffected() == 0 {
			return apperr.NotFound(itemNotFoundMsg)
		}
	}

	result, err := tx.Exec(ctx, `
		UPDATE quotations
		SET status = 'OFFERED', admin_notes = $2, special_discount = $3, offered_at = $4, updated_at = $4
		WHERE id = $1 AND status = 'PROCESSING'`,
		id, p.AdminNotes, p.SpecialDiscount, p.OfferedAt)
	if err != nil {
		return fmt.Errorf("failed to update quotation offer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.explainMiss(ctx, id)
	}

	return tx.Commit(ctx)
}
