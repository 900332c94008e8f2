package ticket

import (
	"strings"
	"testing"
)

func TestNewFormat(t *testing.T) {
	code := New()
	if !strings.HasPrefix(code, "TP-") {
		t.Fatalf("expected TP- prefix, got %q", code)
	}
	if len(code) != 11 {
		t.Fatalf("expected 11 chars, got %d (%q)", len(code), code)
	}
	for _, c := range code[3:] {
		if !strings.ContainsRune(alphabet, c) {
			t.Errorf("char %q outside readable alphabet", c)
		}
	}
}

func TestNewNoAmbiguousChars(t *testing.T) {
	for i := 0; i < 200; i++ {
		code := New()
		if strings.ContainsAny(code[3:], "0O1I") {
			t.Fatalf("ambiguous char in %q", code)
		}
	}
}

func TestNewVaries(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		seen[New()] = struct{}{}
	}
	// 40 bits de entropía: una colisión en mil tiradas sería rarísima
	if len(seen) < 999 {
		t.Errorf("too many collisions: %d unique of 1000", len(seen))
	}
}
