package raknet

import (
	"fmt"
	"net"
	"net/netip"
)

// errShortBuf is the panic sentinel used by cursor's read methods. It never
// escapes an exported function: callers of cursor recover it at the
// outermost Decode/parse call and turn it into a normal error, the same
// shape as the teacher's zerialize.go chk/pcall idiom, generalized from
// io.Reader streams to flat byte slices.
type errShortBuf struct{}

func (errShortBuf) Error() string { return "unexpected end of buffer" }

// cursor reads sequentially from a byte slice, panicking errShortBuf on
// underrun so callers can read a whole message without an if err != nil
// after every field.
type cursor struct {
	buf []byte
	off int
}

func (c *cursor) take(n int) []byte {
	if n < 0 || c.off+n > len(c.buf) {
		panic(errShortBuf{})
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b
}

func (c *cursor) u8() uint8 {
	return c.take(1)[0]
}

func (c *cursor) u16() uint16 {
	return be.Uint16(c.take(2))
}

func (c *cursor) u32() uint32 {
	return be.Uint32(c.take(4))
}

func (c *cursor) u64() uint64 {
	return be.Uint64(c.take(8))
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.off
}

// rest returns the unread tail of the buffer without advancing.
func (c *cursor) rest() []byte {
	return c.buf[c.off:]
}

// decode runs f, recovering an errShortBuf panic into a normal error.
func decode(f func()) (err error) {
	defer func() {
		switch r := recover().(type) {
		case nil:
		case errShortBuf:
			err = r
		default:
			panic(r)
		}
	}()
	f()
	return nil
}

// writeAddr appends the RakNet wire encoding of addr to buf and returns the
// extended slice. IPv4 addresses are encoded as family(1)=4, four
// complemented (XOR 0xFF) octets, then a big-endian port; IPv6 addresses are
// encoded as family(1)=6, u16 family marker (AF_INET6, always 23 on the
// wire for historical reasons), u16 port, u32 flow info (always 0), 16 raw
// address bytes, u32 scope id (always 0).
func writeAddr(buf []byte, addr netip.AddrPort) []byte {
	ip := addr.Addr()
	if ip.Is4() || ip.Is4In6() {
		buf = append(buf, 4)
		octets := ip.As4()
		for _, o := range octets {
			buf = append(buf, o^0xFF)
		}
		return be.AppendUint16(buf, addr.Port())
	}

	buf = append(buf, 6)
	buf = be.AppendUint16(buf, 23) // AF_INET6 on the wire, independent of host AF_INET6.
	buf = be.AppendUint16(buf, addr.Port())
	buf = be.AppendUint32(buf, 0) // flow info
	octets := ip.As16()
	buf = append(buf, octets[:]...)
	buf = be.AppendUint32(buf, 0) // scope id
	return buf
}

// readAddr decodes a RakNet-encoded address from c.
func readAddr(c *cursor) (netip.AddrPort, error) {
	family := c.u8()
	switch family {
	case 4:
		var octets [4]byte
		copy(octets[:], c.take(4))
		for i := range octets {
			octets[i] ^= 0xFF
		}
		port := c.u16()
		return netip.AddrPortFrom(netip.AddrFrom4(octets), port), nil
	case 6:
		c.u16() // family marker, ignored
		port := c.u16()
		c.u32() // flow info, ignored
		var octets [16]byte
		copy(octets[:], c.take(16))
		c.u32() // scope id, ignored
		return netip.AddrPortFrom(netip.AddrFrom16(octets), port), nil
	default:
		return netip.AddrPort{}, fmt.Errorf("raknet: unknown address family byte: %d", family)
	}
}

// addrPort converts a net.Addr (as delivered by net.PacketConn.ReadFrom)
// into a netip.AddrPort, the representation the wire codec works in.
func addrPort(addr net.Addr) (netip.AddrPort, error) {
	switch a := addr.(type) {
	case *net.UDPAddr:
		ip, ok := netip.AddrFromSlice(a.IP)
		if !ok {
			return netip.AddrPort{}, fmt.Errorf("raknet: invalid UDP address: %v", addr)
		}
		return netip.AddrPortFrom(ip.Unmap(), uint16(a.Port)), nil
	default:
		ap, err := netip.ParseAddrPort(addr.String())
		if err != nil {
			return netip.AddrPort{}, fmt.Errorf("raknet: unparsable peer address %q: %w", addr.String(), err)
		}
		return ap, nil
	}
}
