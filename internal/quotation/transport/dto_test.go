package transport

import (
	"testing"

	"storefront_backend/platform/validator"
)

func validCreateRequest() CreateQuotationRequest {
	return CreateQuotationRequest{
		ContactEmail: "customer@example.com",
		Items: []CreateItemRequest{
			{ProductSku: "A-100", ProductName: "Widget", Quantity: 3, Price: 100000},
		},
	}
}

func TestCreateQuotationRequestValidation(t *testing.T) {
	val := validator.New()

	if err := val.Struct(validCreateRequest()); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	noItems := validCreateRequest()
	noItems.Items = nil
	if err := val.Struct(noItems); err == nil {
		t.Fatal("expected rejection without items")
	}

	badEmail := validCreateRequest()
	badEmail.ContactEmail = "not-an-email"
	if err := val.Struct(badEmail); err == nil {
		t.Fatal("expected rejection of malformed email")
	}

	zeroQty := validCreateRequest()
	zeroQty.Items[0].Quantity = 0
	if err := val.Struct(zeroQty); err == nil {
		t.Fatal("expected rejection of zero quantity")
	}
}

func TestSubmitOfferDiscountRange(t *testing.T) {
	val := validator.New()

	for _, pct := range []float64{0, 10, 100} {
		p := pct
		if err := val.Struct(SubmitOfferRequest{SpecialDiscount: &p}); err != nil {
			t.Fatalf("discount %v should pass, got %v", pct, err)
		}
	}

	for _, pct := range []float64{-1, 101, 150} {
		p := pct
		if err := val.Struct(SubmitOfferRequest{SpecialDiscount: &p}); err == nil {
			t.Fatalf("discount %v should be rejected at the boundary", pct)
		}
	}

	// Nil discount is a plain no-discount offer.
	if err := val.Struct(SubmitOfferRequest{}); err != nil {
		t.Fatalf("offer without discount rejected: %v", err)
	}
}

func TestShipOrderRequestValidation(t *testing.T) {
	val := validator.New()

	if err := val.Struct(ShipOrderRequest{TrackingNumber: "JNE-123"}); err != nil {
		t.Fatalf("valid ship request rejected: %v", err)
	}
	if err := val.Struct(ShipOrderRequest{}); err == nil {
		t.Fatal("expected rejection without tracking number")
	}
}
