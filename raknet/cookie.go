package raknet

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
)

// newCookie draws a fresh uniformly random cookie from crypto/rand.
//
// The retrieval pack ships no third-party CSPRNG (golang.org/x/crypto
// provides hashes and ciphers, not a random source), so this is one of the
// few places this module reaches for the standard library where the spec
// explicitly calls for "a cryptographically secure source" — see
// DESIGN.md. crypto/rand.Read on 4 bytes does not block in practice on any
// platform Go supports, satisfying §5's non-blocking requirement.
func newCookie() (uint32, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("raknet: generate cookie: %w", err)
	}
	return be.Uint32(buf[:]), nil
}

// cookiesEqual reports whether a and b match, compared in constant time so
// an off-path attacker cannot learn anything about the correct cookie from
// response timing.
func cookiesEqual(a, b uint32) bool {
	var bufA, bufB [4]byte
	binary.BigEndian.PutUint32(bufA[:], a)
	binary.BigEndian.PutUint32(bufB[:], b)
	return subtle.ConstantTimeCompare(bufA[:], bufB[:]) == 1
}
