package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestPairKeyOrderIndependent(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	if PairKey(a, b) != PairKey(b, a) {
		t.Fatalf("PairKey is not symmetric: %q vs %q", PairKey(a, b), PairKey(b, a))
	}
}

func TestPairKeyFormat(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	key := PairKey(b, a)
	want := a.String() + "_" + b.String()
	if key != want {
		t.Fatalf("PairKey = %q, want %q", key, want)
	}
	if parts := strings.Split(key, "_"); len(parts) != 2 {
		t.Fatalf("PairKey %q must contain exactly one separator", key)
	}
}
