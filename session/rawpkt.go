package session

import "encoding/binary"

var be = binary.BigEndian

// ChannelCount is the maximum channel number + 1, matching RakNet's
// conventional 32 ordering channels.
const ChannelCount = 32

/*
Frame format (big endian), the unit exchanged over the UDP socket once a
session exists:

	rawType
	channel uint8 // < ChannelCount
	switch rawType {
	case rawTypeCtl:
		ctlType
		switch ctlType {
		case ctlAck:
			seqnum // a rawTypeRel the peer no longer needs to resend
		case ctlPing:
			// sent to prevent timeout
		case ctlDisco:
			// peer disconnected
		}
	case rawTypeOrig:
		RakMessage.Payload
	case rawTypeSplit:
		seqnum // identifies the split message
		count, index uint16
		chunk...
	case rawTypeRel:
		seqnum // resent until a ctlAck with the same seqnum arrives
		rawType(Orig|Split)Frame...
	}

This is the teacher's rudp frame shape (rawTypeCtl/Orig/Split/Rel, split
reassembly, ack-gated resend) generalized from Minetest's per-connection
PeerID framing to a channel byte, since a Session here is already bound to
one address by the handshake and needs no PeerID indirection.
*/
type rawType uint8

const (
	rawTypeCtl rawType = iota
	rawTypeOrig
	rawTypeSplit
	rawTypeRel
)

type ctlType uint8

const (
	ctlAck ctlType = iota
	ctlPing
	ctlDisco
)

// seqnum identifies reliable and split frames, wrapping at 16 bits.
type seqnum uint16

const seqnumInit seqnum = 65500

// frameHdrSize is the size of the rawType + channel prefix common to every
// frame.
const frameHdrSize = 1 + 1

const (
	origHdrSize  = 1 // rawTypeOrig
	splitHdrSize = 1 + 2 + 2 + 2
	relHdrSize   = 1 + 2
)

// MaxDatagramSize bounds a single UDP write; larger RakMessages are split.
const MaxDatagramSize = 1400

const (
	maxUnrelFrameSize = MaxDatagramSize - frameHdrSize
	maxRelFrameSize   = maxUnrelFrameSize - relHdrSize
)
