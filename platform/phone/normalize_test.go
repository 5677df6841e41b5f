package phone

import "testing"

func TestParseE164LocalNumber(t *testing.T) {
	got, err := ParseE164("0300 1234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "+923001234567" {
		t.Fatalf("expected +923001234567, got %q", got)
	}
}

func TestParseE164RejectsGarbage(t *testing.T) {
	if _, err := ParseE164("not a number"); err == nil {
		t.Fatal("expected error for garbage input")
	}
	if _, err := ParseE164("   "); err == nil {
		t.Fatal("expected error for blank input")
	}
}

func TestNormalizeE164FallsBackToTrimmedInput(t *testing.T) {
	if got := NormalizeE164("  12 "); got != "12" {
		t.Fatalf("expected trimmed fallback, got %q", got)
	}
}
