// Package notifier delivers customer-facing lifecycle notifications over
// email and WhatsApp. Delivery is always best-effort: failures are logged and
// recorded, never returned to the code that triggered the notification.
package notifier

import (
	"context"
	"time"

	"storefront_backend/platform/logger"

	"github.com/google/uuid"
)

// Event identifies the customer-visible lifecycle transition being announced.
type Event string

const (
	EventOffered   Event = "OFFERED"
	EventConfirmed Event = "CONFIRMED"
	EventShipped   Event = "SHIPPED"
	EventCompleted Event = "COMPLETED"
)

// SnapshotItem is an immutable copy of one quotation line at dispatch time.
type SnapshotItem struct {
	ProductSku   string  `json:"productSku"`
	ProductName  string  `json:"productName"`
	Brand        string  `json:"brand"`
	Quantity     int     `json:"quantity"`
	Price        int64   `json:"price"`
	IsAvailable  *bool   `json:"isAvailable"`
	AvailableQty *int    `json:"availableQty"`
	AdminNote    *string `json:"adminNote"`
}

// Snapshot is an immutable copy of the quotation taken after the triggering
// write committed. The dispatcher never reads the database again.
type Snapshot struct {
	ID              uuid.UUID      `json:"id"`
	Number          string         `json:"number"`
	ContactEmail    string         `json:"contactEmail"`
	ContactPhone    string         `json:"contactPhone"`
	Items           []SnapshotItem `json:"items"`
	TotalAmount     int64          `json:"totalAmount"`
	SpecialDiscount *float64       `json:"specialDiscount"`
	DiscountAmount  float64        `json:"discountAmount"`
	FinalTotal      float64        `json:"finalTotal"`
	ShippingCost    int64          `json:"shippingCost"`
	FreeShipping    bool           `json:"freeShipping"`
	AdminNotes      *string        `json:"adminNotes"`
	TrackingNumber  string         `json:"trackingNumber,omitempty"`
	ShippingNotes   string         `json:"shippingNotes,omitempty"`
}

// Dispatcher hands a snapshot off for delivery without blocking the caller.
type Dispatcher interface {
	Dispatch(event Event, snap Snapshot)
}

// Mailer sends one HTML email. A nil Mailer disables the email channel.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// ChatSender sends one plain-text chat message. A nil ChatSender disables the
// chat channel.
type ChatSender interface {
	Send(ctx context.Context, phone, message string) error
}

// AttemptRecorder persists per-channel delivery outcomes for operations.
type AttemptRecorder interface {
	Record(ctx context.Context, attempt Attempt)
}

// Attempt is one delivery attempt on one channel.
type Attempt struct {
	QuotationID     uuid.UUID
	QuotationNumber string
	Event           Event
	Channel         string
	Recipient       string
	Success         bool
	ErrorMessage    string
}

const (
	ChannelEmail = "email"
	ChannelChat  = "whatsapp"
)

// Deliverer renders and delivers a notification on both channels. Channels
// fail independently: an email error never stops the chat attempt.
type Deliverer struct {
	mailer   Mailer
	chat     ChatSender
	attempts AttemptRecorder
	log      *logger.Logger
}

// NewDeliverer creates a Deliverer. mailer, chat, and attempts may each be
// nil; a nil gateway skips its channel, a nil recorder skips bookkeeping.
func NewDeliverer(mailer Mailer, chat ChatSender, attempts AttemptRecorder, log *logger.Logger) *Deliverer {
	return &Deliverer{mailer: mailer, chat: chat, attempts: attempts, log: log}
}

// Deliver attempts both channels for one event. It never returns an error:
// by the time delivery runs, the triggering operation has already succeeded.
func (d *Deliverer) Deliver(ctx context.Context, event Event, snap Snapshot) {
	d.deliverEmail(ctx, event, snap)
	d.deliverChat(ctx, event, snap)
}

func (d *Deliverer) deliverEmail(ctx context.Context, event Event, snap Snapshot) {
	if d.mailer == nil {
		d.log.NotificationSkipped(ChannelEmail, snap.Number, string(event), "mail gateway not configured")
		return
	}
	if snap.ContactEmail == "" {
		d.log.NotificationSkipped(ChannelEmail, snap.Number, string(event), "no contact email")
		return
	}

	subject, body, err := RenderEmail(event, snap)
	if err != nil {
		d.record(ctx, event, snap, ChannelEmail, snap.ContactEmail, err)
		return
	}

	err = d.mailer.Send(ctx, snap.ContactEmail, subject, body)
	d.record(ctx, event, snap, ChannelEmail, snap.ContactEmail, err)
}

func (d *Deliverer) deliverChat(ctx context.Context, event Event, snap Snapshot) {
	if d.chat == nil {
		d.log.NotificationSkipped(ChannelChat, snap.Number, string(event), "chat gateway not configured")
		return
	}
	if snap.ContactPhone == "" {
		d.log.NotificationSkipped(ChannelChat, snap.Number, string(event), "no contact phone")
		return
	}

	message := RenderChat(event, snap)
	err := d.chat.Send(ctx, snap.ContactPhone, message)
	d.record(ctx, event, snap, ChannelChat, snap.ContactPhone, err)
}

func (d *Deliverer) record(ctx context.Context, event Event, snap Snapshot, channel, recipient string, err error) {
	attempt := Attempt{
		QuotationID:     snap.ID,
		QuotationNumber: snap.Number,
		Event:           event,
		Channel:         channel,
		Recipient:       recipient,
		Success:         err == nil,
	}
	if err != nil {
		attempt.ErrorMessage = err.Error()
		d.log.NotificationError(channel, snap.Number, string(event), err)
	}
	if d.attempts != nil {
		d.attempts.Record(ctx, attempt)
	}
}

// GoDispatcher runs delivery on a detached goroutine. It is the fallback when
// no Redis queue is configured. The goroutine gets its own deadline; the
// triggering request's context is deliberately not inherited, since the
// caller may have already returned.
type GoDispatcher struct {
	deliverer *Deliverer
	timeout   time.Duration
}

// NewGoDispatcher creates a goroutine-backed dispatcher.
func NewGoDispatcher(deliverer *Deliverer) *GoDispatcher {
	return &GoDispatcher{deliverer: deliverer, timeout: 30 * time.Second}
}

// Dispatch fires delivery and returns immediately.
func (g *GoDispatcher) Dispatch(event Event, snap Snapshot) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
		defer cancel()
		g.deliverer.Deliver(ctx, event, snap)
	}()
}
