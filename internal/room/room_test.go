package room_test

import (
	"math/rand"
	"strings"
	"testing"

	"exam-arena/internal/room"
)

func TestNewCodeIsSixDigits(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		code := room.NewCode(rnd)
		if len(code) != 6 {
			t.Fatalf("expected 6 characters, got %q", code)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("non-digit in code %q", code)
			}
		}
	}
}

func TestAddressEmbedsCode(t *testing.T) {
	addr := room.Address("123456")
	if !strings.HasSuffix(addr, "123456") {
		t.Fatalf("address %q does not end with the code", addr)
	}
	if addr == "123456" {
		t.Fatal("address must carry the application prefix")
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := room.NormalizeCode("  123456\n"); got != "123456" {
		t.Fatalf("expected trimmed code, got %q", got)
	}
}
