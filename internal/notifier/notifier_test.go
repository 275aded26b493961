package notifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"storefront_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeMailer struct {
	mu    sync.Mutex
	calls int
	to    string
	body  string
	err   error
}

func (f *fakeMailer) Send(_ context.Context, to, _, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.to = to
	f.body = htmlBody
	return f.err
}

type fakeChat struct {
	mu      sync.Mutex
	calls   int
	phone   string
	message string
	err     error
}

func (f *fakeChat) Send(_ context.Context, phone, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.phone = phone
	f.message = message
	return f.err
}

type fakeRecorder struct {
	mu       sync.Mutex
	attempts []Attempt
}

func (f *fakeRecorder) Record(_ context.Context, attempt Attempt) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, attempt)
}

func testSnapshot() Snapshot {
	pct := 10.0
	qty := 3
	available := true
	return Snapshot{
		ID:           uuid.New(),
		Number:       "QT-2026-00001",
		ContactEmail: "customer@example.com",
		ContactPhone: "6281234567890",
		Items: []SnapshotItem{
			{
				ProductSku:   "A-100",
				ProductName:  "Widget",
				Brand:        "Acme",
				Quantity:     3,
				Price:        100000,
				IsAvailable:  &available,
				AvailableQty: &qty,
			},
		},
		TotalAmount:     300000,
		SpecialDiscount: &pct,
		DiscountAmount:  30000,
		FinalTotal:      270000,
	}
}

func TestDeliverAttemptsBothChannels(t *testing.T) {
	mailer := &fakeMailer{}
	chat := &fakeChat{}
	rec := &fakeRecorder{}
	d := NewDeliverer(mailer, chat, rec, logger.New("development"))

	d.Deliver(context.Background(), EventOffered, testSnapshot())

	if mailer.calls != 1 {
		t.Fatalf("expected 1 email attempt, got %d", mailer.calls)
	}
	if chat.calls != 1 {
		t.Fatalf("expected 1 chat attempt, got %d", chat.calls)
	}
	if len(rec.attempts) != 2 {
		t.Fatalf("expected 2 recorded attempts, got %d", len(rec.attempts))
	}
	for _, a := range rec.attempts {
		if !a.Success {
			t.Fatalf("expected recorded success on channel %s", a.Channel)
		}
	}
}

func TestDeliverEmailFailureDoesNotStopChat(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp unreachable")}
	chat := &fakeChat{}
	rec := &fakeRecorder{}
	d := NewDeliverer(mailer, chat, rec, logger.New("development"))

	d.Deliver(context.Background(), EventOffered, testSnapshot())

	if chat.calls != 1 {
		t.Fatalf("chat channel should still be attempted after email failure, got %d calls", chat.calls)
	}

	var emailAttempt *Attempt
	for i := range rec.attempts {
		if rec.attempts[i].Channel == ChannelEmail {
			emailAttempt = &rec.attempts[i]
		}
	}
	if emailAttempt == nil {
		t.Fatal("expected a recorded email attempt")
	}
	if emailAttempt.Success || emailAttempt.ErrorMessage == "" {
		t.Fatalf("expected failed email attempt with message, got %+v", emailAttempt)
	}
}

func TestDeliverSkipsUnconfiguredChannels(t *testing.T) {
	chat := &fakeChat{}
	rec := &fakeRecorder{}
	d := NewDeliverer(nil, chat, rec, logger.New("development"))

	d.Deliver(context.Background(), EventConfirmed, testSnapshot())

	if chat.calls != 1 {
		t.Fatalf("expected chat attempt with nil mailer, got %d", chat.calls)
	}
	for _, a := range rec.attempts {
		if a.Channel == ChannelEmail {
			t.Fatal("skipped channel should not record an attempt")
		}
	}
}

func TestDeliverSkipsMissingContact(t *testing.T) {
	mailer := &fakeMailer{}
	chat := &fakeChat{}
	d := NewDeliverer(mailer, chat, nil, logger.New("development"))

	snap := testSnapshot()
	snap.ContactEmail = ""
	d.Deliver(context.Background(), EventOffered, snap)

	if mailer.calls != 0 {
		t.Fatalf("expected no email attempt without contact email, got %d", mailer.calls)
	}
	if chat.calls != 1 {
		t.Fatalf("expected chat attempt, got %d", chat.calls)
	}
}

func TestRenderEmailContent(t *testing.T) {
	subject, body, err := RenderEmail(EventOffered, testSnapshot())
	if err != nil {
		t.Fatalf("render email: %v", err)
	}
	if !strings.Contains(subject, "QT-2026-00001") {
		t.Fatalf("subject should carry the quotation number, got %q", subject)
	}
	for _, want := range []string{"Widget", "Rp300.000", "Rp30.000", "Rp270.000", "10%"} {
		if !strings.Contains(body, want) {
			t.Fatalf("email body missing %q", want)
		}
	}
}

func TestRenderChatContent(t *testing.T) {
	snap := testSnapshot()
	snap.TrackingNumber = "JNE-123456"
	message := RenderChat(EventShipped, snap)

	for _, want := range []string{"QT-2026-00001", "Widget x3", "Rp270.000", "JNE-123456"} {
		if !strings.Contains(message, want) {
			t.Fatalf("chat message missing %q in:\n%s", want, message)
		}
	}
}

func TestFormatIDR(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "Rp0"},
		{999, "Rp999"},
		{1000, "Rp1.000"},
		{300000, "Rp300.000"},
		{1234567, "Rp1.234.567"},
		{-50000, "-Rp50.000"},
	}

	for _, tc := range cases {
		if got := formatIDR(tc.in); got != tc.want {
			t.Fatalf("formatIDR(%f): expected %s, got %s", tc.in, tc.want, got)
		}
	}
}
