package raknet

import "testing"

func magicFixture() [MagicSize]byte {
	var m [MagicSize]byte
	for i := range m {
		m[i] = byte(i)
	}
	return m
}

func TestAcceptOCR1WithCorrectMagic(t *testing.T) {
	magic := magicFixture()
	data := append([]byte{uint8(OpcodeOpenConnectionRequest1)}, magic[:]...)
	if !Accept(data, magic) {
		t.Fatal("Accept rejected a well-formed OCR1 datagram")
	}
}

func TestAcceptPingSkipsPingTimeBeforeMagic(t *testing.T) {
	magic := magicFixture()
	data := []byte{uint8(OpcodeUnconnectedPing)}
	data = be.AppendUint64(data, 0xDEADBEEF)
	data = append(data, magic[:]...)
	if !Accept(data, magic) {
		t.Fatal("Accept rejected a well-formed ping datagram")
	}
}

func TestAcceptRejectsWrongMagic(t *testing.T) {
	magic := magicFixture()
	var wrong [MagicSize]byte
	data := append([]byte{uint8(OpcodeOpenConnectionRequest1)}, wrong[:]...)
	if Accept(data, magic) {
		t.Fatal("Accept matched a datagram with the wrong magic")
	}
}

func TestAcceptRejectsUnknownOpcode(t *testing.T) {
	magic := magicFixture()
	data := append([]byte{0xFF}, magic[:]...)
	if Accept(data, magic) {
		t.Fatal("Accept matched an unrecognized opcode")
	}
}

func TestAcceptRejectsReplyOpcode(t *testing.T) {
	// A server-sent reply opcode is not one of the three offline request
	// opcodes, so it must be rejected even when the correct magic follows.
	magic := magicFixture()
	data := append([]byte{uint8(OpcodeOpenConnectionReply1)}, magic[:]...)
	if Accept(data, magic) {
		t.Fatal("Accept matched an outbound-only reply opcode")
	}
}

func TestAcceptRejectsTruncatedDatagram(t *testing.T) {
	magic := magicFixture()
	data := append([]byte{uint8(OpcodeOpenConnectionRequest1)}, magic[:8]...)
	if Accept(data, magic) {
		t.Fatal("Accept matched a datagram too short to contain the full magic")
	}
}

func TestAcceptRejectsEmptyDatagram(t *testing.T) {
	magic := magicFixture()
	if Accept(nil, magic) {
		t.Fatal("Accept matched an empty datagram")
	}
}

// TestAcceptDoesNotMutateInput covers invariant 1: a rejected datagram's
// bytes and length are left completely untouched by the classifier.
func TestAcceptDoesNotMutateInput(t *testing.T) {
	magic := magicFixture()
	data := []byte{0xFF, 1, 2, 3}
	cp := append([]byte(nil), data...)

	Accept(data, magic)

	if string(data) != string(cp) {
		t.Fatalf("Accept mutated its input: got %x, want %x", data, cp)
	}
}
