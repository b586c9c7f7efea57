package raknet

// Accept reports whether data is an offline RakNet datagram this package
// should process: its first byte is one of the three offline opcodes, and
// the bytes that follow (after an 8-byte ping timestamp, for
// OpcodeUnconnectedPing) equal magic. Anything else — including datagrams
// belonging to an established session — is rejected and must be passed
// through unchanged by the caller.
//
// Accept never allocates and never mutates data.
func Accept(data []byte, magic [MagicSize]byte) bool {
	if len(data) < 1 {
		return false
	}

	off := 1
	switch Opcode(data[0]) {
	case OpcodeUnconnectedPing:
		off += pingTimeSize
	case OpcodeOpenConnectionRequest1, OpcodeOpenConnectionRequest2:
		// no extra header before the magic
	default:
		return false
	}

	if len(data) < off+MagicSize {
		return false
	}
	return [MagicSize]byte(data[off:off+MagicSize]) == magic
}
