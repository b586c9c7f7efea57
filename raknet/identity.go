package raknet

import (
	"errors"
	"sort"
)

// ServerIdentity is the immutable configuration of a RakNet offline-handler.
// It never changes after construction; every datagram handled by this
// package reads it without locking.
type ServerIdentity struct {
	GUID          uint64
	Magic         [MagicSize]byte
	Advertisement []byte // nil means "no advertisement configured"

	// SupportedProtocols, if non-nil, is the sorted set of protocol
	// versions this server accepts. A nil slice accepts any version.
	SupportedProtocols []uint8

	MinMTU, MaxMTU uint16

	SendCookie           bool
	HandlePingExternally bool
}

// ErrInvalidIdentity is wrapped by every validation failure returned from
// NewServerIdentity.
var ErrInvalidIdentity = errors.New("raknet: invalid server identity")

// NewServerIdentity validates opts and returns an immutable ServerIdentity.
// Configuration is validated once, at startup; nothing in the datagram path
// re-validates it.
func NewServerIdentity(opts ServerIdentity) (*ServerIdentity, error) {
	if opts.MinMTU == 0 {
		return nil, errf(ErrInvalidIdentity, "min_mtu must be > 0")
	}
	if opts.MinMTU > opts.MaxMTU {
		return nil, errf(ErrInvalidIdentity, "min_mtu (%d) > max_mtu (%d)", opts.MinMTU, opts.MaxMTU)
	}

	if opts.SupportedProtocols != nil {
		sorted := append([]uint8(nil), opts.SupportedProtocols...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		opts.SupportedProtocols = sorted
	}

	id := opts
	return &id, nil
}

// supports reports whether version is accepted, and the highest configured
// version to quote back in an INCOMPATIBLE_PROTOCOL_VERSION reply.
func (id *ServerIdentity) supports(version uint8) (ok bool, latest uint8) {
	if id.SupportedProtocols == nil {
		return true, 0
	}
	latest = id.SupportedProtocols[len(id.SupportedProtocols)-1]
	i := sort.Search(len(id.SupportedProtocols), func(i int) bool {
		return id.SupportedProtocols[i] >= version
	})
	ok = i < len(id.SupportedProtocols) && id.SupportedProtocols[i] == version
	return ok, latest
}

func clampU16(v, lo, hi uint16) uint16 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
