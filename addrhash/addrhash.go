// Package addrhash computes a keyed hash of a client address for use in
// log fields, so default-level operational logs don't accumulate raw
// client IPs.
package addrhash

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/netip"

	"golang.org/x/crypto/blake2s"
)

// Size is the length in bytes of a Hash output.
const Size = 16

// NewSecret draws a fresh random 32-byte key from crypto/rand, for
// deployments that don't configure one explicitly.
func NewSecret() ([32]byte, error) {
	var secret [32]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return secret, fmt.Errorf("addrhash: generate secret: %w", err)
	}
	return secret, nil
}

// Hash computes keyed BLAKE2s-128 of addr's bytes with secret as the key,
// grounded on the pack's keyed BLAKE2s MAC idiom.
func Hash(secret [32]byte, addr netip.Addr) ([Size]byte, error) {
	var out [Size]byte
	h, err := blake2s.New128(secret[:])
	if err != nil {
		return out, fmt.Errorf("addrhash: new hash: %w", err)
	}
	if _, err := h.Write(addr.AsSlice()); err != nil {
		return out, fmt.Errorf("addrhash: hash address: %w", err)
	}
	copy(out[:], h.Sum(nil))
	return out, nil
}

// Logger returns a raknet.AddrLogger (see the raknet package) that
// renders addresses as their keyed hash instead of their raw text.
// Callers that don't want to import raknet directly from here get the
// concrete function type back; raknet.AddrLogger is defined as
// func(netip.AddrPort) slog.Value, which this satisfies.
func Logger(secret [32]byte) func(netip.AddrPort) slog.Value {
	return func(addr netip.AddrPort) slog.Value {
		sum, err := Hash(secret, addr.Addr())
		if err != nil {
			return slog.StringValue("unhashable")
		}
		return slog.StringValue(hex.EncodeToString(sum[:]))
	}
}
