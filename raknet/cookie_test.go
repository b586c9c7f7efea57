package raknet

import "testing"

func TestNewCookieDiffersAcrossCalls(t *testing.T) {
	a, err := newCookie()
	if err != nil {
		t.Fatalf("newCookie: %v", err)
	}
	b, err := newCookie()
	if err != nil {
		t.Fatalf("newCookie: %v", err)
	}
	// Not a correctness guarantee (collisions are astronomically unlikely,
	// not impossible), but a regression test against an accidental
	// always-zero or constant generator.
	if a == b {
		t.Fatalf("two calls to newCookie returned the same value: %d", a)
	}
}

func TestCookiesEqual(t *testing.T) {
	if !cookiesEqual(0x12345678, 0x12345678) {
		t.Fatal("cookiesEqual(x, x) = false")
	}
	if cookiesEqual(0x12345678, 0x12345679) {
		t.Fatal("cookiesEqual(x, x^1) = true")
	}
	if cookiesEqual(0, 0x80000000) {
		t.Fatal("cookiesEqual matched unrelated values")
	}
}
