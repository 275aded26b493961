package notifier

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var eventSubjects = map[Event]string{
	EventOffered:   "Your quotation %s is ready",
	EventConfirmed: "Order %s confirmed",
	EventShipped:   "Order %s has shipped",
	EventCompleted: "Order %s completed",
}

var eventIntros = map[Event]string{
	EventOffered:   "Thank you for your request. We have reviewed your quotation and prepared an offer. Please find the details below.",
	EventConfirmed: "Your order has been confirmed and is being prepared for shipment.",
	EventShipped:   "Good news! Your order is on its way.",
	EventCompleted: "Your order has been completed. Thank you for shopping with us.",
}

type emailItemData struct {
	Name             string
	Brand            string
	Note             string
	Quantity         int
	PriceFormatted   string
	AvailabilityMark template.HTML
}

type emailData struct {
	Title             string
	Heading           string
	Intro             string
	Snapshot          Snapshot
	Items             []emailItemData
	SubtotalFormatted string
	HasDiscount       bool
	DiscountPct       string
	DiscountFormatted string
	ShippingFormatted string
	TotalFormatted    string
	TrackingNumber    string
	ShippingNotes     string
	AdminNotes        string
}

// RenderEmail renders the HTML email for one lifecycle event.
func RenderEmail(event Event, snap Snapshot) (subject, body string, err error) {
	subjectFmt, ok := eventSubjects[event]
	if !ok {
		return "", "", fmt.Errorf("no email template for event %q", event)
	}
	subject = fmt.Sprintf(subjectFmt, snap.Number)

	data := emailData{
		Title:             subject,
		Heading:           fmt.Sprintf("Quotation %s", snap.Number),
		Intro:             eventIntros[event],
		Snapshot:          snap,
		SubtotalFormatted: formatIDR(float64(snap.TotalAmount)),
		ShippingFormatted: shippingLabel(snap),
		TotalFormatted:    formatIDR(snap.FinalTotal),
		TrackingNumber:    snap.TrackingNumber,
		ShippingNotes:     snap.ShippingNotes,
	}
	if snap.SpecialDiscount != nil && *snap.SpecialDiscount != 0 {
		data.HasDiscount = true
		data.DiscountPct = trimPct(*snap.SpecialDiscount)
		data.DiscountFormatted = formatIDR(snap.DiscountAmount)
	}
	if snap.AdminNotes != nil {
		data.AdminNotes = *snap.AdminNotes
	}
	for _, item := range snap.Items {
		d := emailItemData{
			Name:             item.ProductName,
			Brand:            item.Brand,
			Quantity:         item.Quantity,
			PriceFormatted:   formatIDR(float64(item.Price)),
			AvailabilityMark: availabilityMark(item.IsAvailable),
		}
		if item.AdminNote != nil {
			d.Note = *item.AdminNote
		}
		data.Items = append(data.Items, d)
	}

	tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/quotation.html")
	if err != nil {
		return "", "", fmt.Errorf("parse notification template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", "", fmt.Errorf("execute notification template: %w", err)
	}
	return subject, buf.String(), nil
}

// RenderChat renders the condensed plain-text message for the chat channel.
func RenderChat(event Event, snap Snapshot) string {
	var b strings.Builder

	switch event {
	case EventOffered:
		fmt.Fprintf(&b, "*Quotation %s* - your offer is ready!\n\n", snap.Number)
	case EventConfirmed:
		fmt.Fprintf(&b, "*Order %s* confirmed.\n\n", snap.Number)
	case EventShipped:
		fmt.Fprintf(&b, "*Order %s* has shipped.\n\n", snap.Number)
	case EventCompleted:
		fmt.Fprintf(&b, "*Order %s* completed. Thank you!\n\n", snap.Number)
	default:
		fmt.Fprintf(&b, "*Quotation %s* update.\n\n", snap.Number)
	}

	for _, item := range snap.Items {
		fmt.Fprintf(&b, "- %s x%d @ %s%s\n",
			item.ProductName, item.Quantity, formatIDR(float64(item.Price)),
			availabilityText(item.IsAvailable))
	}

	fmt.Fprintf(&b, "\nSubtotal: %s\n", formatIDR(float64(snap.TotalAmount)))
	if snap.SpecialDiscount != nil && *snap.SpecialDiscount != 0 {
		fmt.Fprintf(&b, "Discount (%s%%): -%s\n", trimPct(*snap.SpecialDiscount), formatIDR(snap.DiscountAmount))
	}
	fmt.Fprintf(&b, "Shipping: %s\n", shippingLabel(snap))
	fmt.Fprintf(&b, "Total: %s\n", formatIDR(snap.FinalTotal))

	if snap.TrackingNumber != "" {
		fmt.Fprintf(&b, "\nTracking number: %s\n", snap.TrackingNumber)
		if snap.ShippingNotes != "" {
			fmt.Fprintf(&b, "%s\n", snap.ShippingNotes)
		}
	}

	return b.String()
}

func shippingLabel(snap Snapshot) string {
	if snap.FreeShipping {
		return "FREE"
	}
	return formatIDR(float64(snap.ShippingCost))
}

func availabilityMark(isAvailable *bool) template.HTML {
	switch {
	case isAvailable == nil:
		return template.HTML("&ndash;")
	case *isAvailable:
		return template.HTML("&#10003;")
	default:
		return template.HTML("&#10007;")
	}
}

func availabilityText(isAvailable *bool) string {
	switch {
	case isAvailable == nil:
		return ""
	case *isAvailable:
		return " (available)"
	default:
		return " (unavailable)"
	}
}

// trimPct formats a discount percentage without trailing zeros.
func trimPct(pct float64) string {
	return strconv.FormatFloat(pct, 'f', -1, 64)
}

// formatIDR formats rupiah amounts with dot thousand separators. Fractions
// are rounded away; rupiah has no minor unit in practice.
func formatIDR(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	digits := fmt.Sprintf("%.0f", amount)
	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	b.WriteString("Rp")
	for i, ch := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(ch)
	}
	return b.String()
}
