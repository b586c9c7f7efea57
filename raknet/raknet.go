/*
Package raknet implements the connection-establishment core of a RakNet
server: the offline handshake (unconnected ping/pong and the two-phase
OPEN_CONNECTION_REQUEST exchange) that precedes any reliable session.

All exported types in this package are safe for concurrent use by
multiple goroutines unless stated otherwise.
*/
package raknet

import "encoding/binary"

var be = binary.BigEndian

// Opcode identifies an offline RakNet message.
type Opcode uint8

const (
	OpcodeUnconnectedPing              Opcode = 0x01
	OpcodeUnconnectedPingOpenConnections Opcode = 0x02
	OpcodeOpenConnectionRequest1       Opcode = 0x05
	OpcodeOpenConnectionReply1         Opcode = 0x06
	OpcodeOpenConnectionRequest2       Opcode = 0x07
	OpcodeOpenConnectionReply2         Opcode = 0x08
	OpcodeIncompatibleProtocolVersion  Opcode = 0x19
	OpcodeAlreadyConnected             Opcode = 0x12
	OpcodeUnconnectedPong              Opcode = 0x1c
)

// MagicSize is the length in bytes of the UnconnectedMagic constant.
const MagicSize = 16

// pingTimeSize is the length in bytes of the ping timestamp field.
const pingTimeSize = 8
