package proxyproto

import (
	"encoding/binary"
	"testing"
)

func v2Header(t *testing.T, proto byte, srcIP, dstIP [4]byte, srcPort, dstPort uint16, tlv []byte) []byte {
	t.Helper()
	buf := make([]byte, 16)
	copy(buf[:12], Signature[:])
	buf[12] = (2 << 4) | 1 // version 2, command PROXY
	buf[13] = proto
	binary.BigEndian.PutUint16(buf[14:16], 12) // address info length
	buf = append(buf, srcIP[:]...)
	buf = append(buf, dstIP[:]...)
	portBuf := make([]byte, 4)
	binary.BigEndian.PutUint16(portBuf[0:2], srcPort)
	binary.BigEndian.PutUint16(portBuf[2:4], dstPort)
	buf = append(buf, portBuf...)
	buf = append(buf, tlv...)
	return buf
}

func TestDecodeV2IPv4HappyPath(t *testing.T) {
	header := v2Header(t, 0x11, [4]byte{192, 168, 0, 1}, [4]byte{10, 0, 0, 1}, 56324, 443, nil)
	msg, err := DecodeV2(header)
	if err != nil {
		t.Fatalf("DecodeV2: %v", err)
	}
	if msg.ProxiedProtocol != TCP4 {
		t.Fatalf("ProxiedProtocol = %v, want TCP4", msg.ProxiedProtocol)
	}
	if msg.SourceAddress != "192.168.0.1" || msg.SourcePort != 56324 {
		t.Errorf("source = %s:%d", msg.SourceAddress, msg.SourcePort)
	}
	if msg.DestAddress != "10.0.0.1" || msg.DestPort != 443 {
		t.Errorf("dest = %s:%d", msg.DestAddress, msg.DestPort)
	}
}

func TestDecodeV2TLVSkippingPreservesAddresses(t *testing.T) {
	baseline := v2Header(t, 0x11, [4]byte{192, 168, 0, 1}, [4]byte{10, 0, 0, 1}, 1, 2, nil)
	withTLVs := v2Header(t, 0x11, [4]byte{192, 168, 0, 1}, [4]byte{10, 0, 0, 1}, 1, 2,
		append(tlv(0x01, 8), tlv(0x02, 6)...))

	got, err := DecodeV2(withTLVs)
	if err != nil {
		t.Fatalf("DecodeV2 with TLVs: %v", err)
	}
	want, err := DecodeV2(baseline)
	if err != nil {
		t.Fatalf("DecodeV2 baseline: %v", err)
	}
	if got != want {
		t.Fatalf("TLV-bearing header decoded to %+v, want %+v", got, want)
	}
}

func tlv(typ byte, length int) []byte {
	b := make([]byte, 3+length)
	b[0] = typ
	binary.BigEndian.PutUint16(b[1:3], uint16(length))
	return b
}

func TestDecodeV2Unknown16Bytes(t *testing.T) {
	header := make([]byte, 16)
	header[12] = (2 << 4) | 1
	header[13] = 0x00 // UNKNOWN family/transport
	msg, err := DecodeV2(header)
	if err != nil {
		t.Fatalf("DecodeV2: %v", err)
	}
	if msg.ProxiedProtocol != UNKNOWN {
		t.Fatalf("ProxiedProtocol = %v, want UNKNOWN", msg.ProxiedProtocol)
	}
}

func TestDecodeV2IPv4IncompleteHeader(t *testing.T) {
	header := v2Header(t, 0x11, [4]byte{1, 1, 1, 1}, [4]byte{2, 2, 2, 2}, 1, 2, nil)
	if _, err := DecodeV2(header[:len(header)-1]); err == nil {
		t.Fatal("expected IncompleteHeader for an 11-byte address block")
	}
}

func TestDecodeV2IPv6HexRendering(t *testing.T) {
	header := make([]byte, 16)
	copy(header[:12], Signature[:])
	header[12] = (2 << 4) | 1
	header[13] = 0x21 // TCP6
	binary.BigEndian.PutUint16(header[14:16], 36)

	src := make([]byte, 16)
	src[0], src[1] = 0x00, 0x0a // group 0 = 0x000a -> "a", no zero padding
	dst := make([]byte, 16)

	header = append(header, src...)
	header = append(header, dst...)
	header = append(header, 0, 1, 0, 2) // src port 1, dst port 2

	msg, err := DecodeV2(header)
	if err != nil {
		t.Fatalf("DecodeV2: %v", err)
	}
	if msg.SourceAddress != "a:0:0:0:0:0:0:0" {
		t.Fatalf("SourceAddress = %q, want unpadded hex groups", msg.SourceAddress)
	}
}

func TestDecodeV2UnixSocket(t *testing.T) {
	header := make([]byte, 16)
	copy(header[:12], Signature[:])
	header[12] = (2 << 4) | 1
	header[13] = 0x31 // UNIX_STREAM
	binary.BigEndian.PutUint16(header[14:16], 216)

	src := make([]byte, 108)
	copy(src, "/var/run/src.sock")
	dst := make([]byte, 108)
	copy(dst, "/var/run/dst.sock")

	header = append(header, src...)
	header = append(header, dst...)

	msg, err := DecodeV2(header)
	if err != nil {
		t.Fatalf("DecodeV2: %v", err)
	}
	if msg.SourceAddress != "/var/run/src.sock" || msg.DestAddress != "/var/run/dst.sock" {
		t.Fatalf("unexpected UNIX addresses: %+v", msg)
	}
}

func TestDecodeV2LocalCommand(t *testing.T) {
	header := make([]byte, 16)
	header[12] = (2 << 4) | 0 // version 2, command LOCAL

	msg, err := DecodeV2(header)
	if err != nil {
		t.Fatalf("DecodeV2: %v", err)
	}
	if msg.Command != Local || msg.ProxiedProtocol != UNKNOWN {
		t.Fatalf("LOCAL command decoded as %+v", msg)
	}
}

func TestDecodeV2UnsupportedVersion(t *testing.T) {
	header := make([]byte, 16)
	header[12] = (1 << 4) | 1 // version 1 inside a v2 call
	if _, err := DecodeV2(header); err == nil {
		t.Fatal("expected UnsupportedVersion")
	}
}

func TestSourceAddrPortRejectsUnknown(t *testing.T) {
	msg := Message{ProxiedProtocol: UNKNOWN}
	if _, err := msg.SourceAddrPort(); err == nil {
		t.Fatal("expected error for UNKNOWN proxied protocol")
	}
}
