package phone

import "testing"

func TestNormalize_TrunkPrefixReplaced(t *testing.T) {
	n := NewNormalizer("ID", "62")

	got := n.Normalize("0812-3456-7890")
	if got != "6281234567890" {
		t.Fatalf("expected 6281234567890, got %s", got)
	}
}

func TestNormalize_AlreadyInternational(t *testing.T) {
	n := NewNormalizer("ID", "62")

	got := n.Normalize("+62 812 3456 7890")
	if got != "6281234567890" {
		t.Fatalf("expected 6281234567890, got %s", got)
	}
}

func TestNormalize_GarbageFallsBackToDigits(t *testing.T) {
	n := NewNormalizer("ID", "62")

	// Too short to be a valid number; fallback strips punctuation and
	// swaps the trunk zero.
	got := n.Normalize("(021) 555")
	if got != "6221555" {
		t.Fatalf("expected 6221555, got %s", got)
	}
}

func TestNormalize_Empty(t *testing.T) {
	n := NewNormalizer("ID", "62")

	if got := n.Normalize("   "); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
