package proxyproto

import (
	"encoding/binary"
	"fmt"
	"strings"
)

var be = binary.BigEndian

// Signature is the 12-byte magic prefix of a PROXY v2 header. DecodeV2 does
// not require it to be present — matching the original decoder, which
// starts reading at byte 13 without checking bytes 1-12 — so callers who
// want it checked can run VerifySignature first.
var Signature = [12]byte{0x0D, 0x0A, 0x0D, 0x0A, 0x00, 0x0D, 0x0A, 0x51, 0x55, 0x49, 0x54, 0x0A}

// VerifySignature reports whether header begins with Signature. It is an
// opt-in check: DecodeV2 itself skips the first 12 bytes unconditionally.
func VerifySignature(header []byte) bool {
	return len(header) >= 12 && [12]byte(header[:12]) == Signature
}

// HeaderLen reports the total byte length of the PROXY v2 header framing
// data — 16 plus the declared address-info length — without decoding the
// address block. Callers reading a stream that carries a header
// immediately followed by application payload (as with a UDP datagram
// rather than a header-only buffer) use this to find where the header
// ends and the payload begins before calling DecodeV2 on the header
// portion alone.
func HeaderLen(data []byte) (int, error) {
	if len(data) < 16 {
		return 0, errKind(IncompleteHeader, "%d bytes (expected 16+)", len(data))
	}
	cmd := data[12] & 0x0F
	if cmd == 0 {
		return 16, nil
	}
	famTransport := data[13]
	if famTransport == 0x00 {
		return 16, nil
	}
	addressInfoLen := int(be.Uint16(data[14:16]))
	return 16 + addressInfoLen, nil
}

// DecodeV2 parses a PROXY protocol v2 (binary) header. header must contain
// at least the fixed 16-byte prefix; TLV trailers are skipped, not parsed.
func DecodeV2(header []byte) (Message, error) {
	if len(header) < 16 {
		return Message{}, errKind(IncompleteHeader, "%d bytes (expected 16+)", len(header))
	}

	r := v2reader{buf: header, off: 12}

	verCmd := r.u8()
	ver := verCmd >> 4
	cmd := verCmd & 0x0F

	if ver != 2 {
		return Message{}, errKind(UnsupportedVersion, "version 0x%x unsupported", ver)
	}
	if cmd != 0 && cmd != 1 {
		return Message{}, errKind(InvalidCommand, "command 0x%x", cmd)
	}
	if cmd == 0 {
		return Message{Version: V2, Command: Local, ProxiedProtocol: UNKNOWN}, nil
	}

	famTransport := r.u8()
	proto, ok := v2ProxiedProtocols[famTransport]
	if !ok {
		return Message{}, errKind(InvalidFamily, "family/transport byte 0x%x", famTransport)
	}
	if proto == UNKNOWN {
		return Message{Version: V2, Command: Proxy, ProxiedProtocol: UNKNOWN}, nil
	}

	addressInfoLen := int(r.u16())

	var msg Message
	msg.Version = V2
	msg.Command = Proxy
	msg.ProxiedProtocol = proto

	switch {
	case proto.isUnix():
		if addressInfoLen < 216 || r.remaining() < 216 {
			return Message{}, errKind(IncompleteHeader, "incomplete UNIX socket address information: %d bytes (expected 216+)", min(addressInfoLen, r.remaining()))
		}
		msg.SourceAddress = r.nulTerminatedASCII(108)
		msg.DestAddress = r.nulTerminatedASCII(108)

	case proto.is6():
		if addressInfoLen < 36 || r.remaining() < 36 {
			return Message{}, errKind(IncompleteHeader, "incomplete IPv6 address information: %d bytes (expected 36+)", min(addressInfoLen, r.remaining()))
		}
		msg.SourceAddress = r.hexIPv6()
		msg.DestAddress = r.hexIPv6()
		msg.SourcePort = r.u16()
		msg.DestPort = r.u16()

	default: // TCP4/UDP4
		if addressInfoLen < 12 || r.remaining() < 12 {
			return Message{}, errKind(IncompleteHeader, "incomplete IPv4 address information: %d bytes (expected 12+)", min(addressInfoLen, r.remaining()))
		}
		msg.SourceAddress = r.dottedIPv4()
		msg.DestAddress = r.dottedIPv4()
		msg.SourcePort = r.u16()
		msg.DestPort = r.u16()
	}

	for r.skipTLV() {
	}
	if r.err != nil {
		return Message{}, r.err
	}

	return msg, nil
}

var v2ProxiedProtocols = map[byte]ProxiedProtocol{
	0x00: UNKNOWN,
	0x11: TCP4,
	0x12: UDP4,
	0x21: TCP6,
	0x22: UDP6,
	0x31: UnixStream,
	0x32: UnixDgram,
}

// v2reader is a small forward-only byte reader. It never panics: once a
// read runs past the end of buf, every subsequent read returns zero and
// err is set, so callers don't have to check every field individually.
type v2reader struct {
	buf []byte
	off int
	err error
}

func (r *v2reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *v2reader) take(n int) []byte {
	if r.err != nil || r.off+n > len(r.buf) {
		if r.err == nil {
			r.err = errKind(IncompleteHeader, "unexpected end of header")
		}
		return make([]byte, n)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *v2reader) u8() uint8 {
	return r.take(1)[0]
}

func (r *v2reader) u16() uint16 {
	return be.Uint16(r.take(2))
}

func (r *v2reader) dottedIPv4() string {
	b := r.take(4)
	return fmt.Sprintf("%d.%d.%d.%d", b[0], b[1], b[2], b[3])
}

// hexIPv6 renders 16 bytes as eight ':'-separated hex groups with no
// zero-padding within a group, matching Integer.toHexString per group in
// the source this was ported from — this is NOT RFC 5952 canonical form.
func (r *v2reader) hexIPv6() string {
	b := r.take(16)
	groups := make([]string, 8)
	for i := range groups {
		groups[i] = fmt.Sprintf("%x", be.Uint16(b[i*2:i*2+2]))
	}
	return strings.Join(groups, ":")
}

func (r *v2reader) nulTerminatedASCII(fieldLen int) string {
	b := r.take(fieldLen)
	if i := indexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

func (r *v2reader) skipTLV() bool {
	if r.err != nil || r.remaining() < 4 {
		return false
	}
	r.take(1)
	length := int(r.u16())
	r.take(length)
	return r.err == nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
