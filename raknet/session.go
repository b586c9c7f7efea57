package raknet

import (
	"net"
	"net/netip"
)

// Reliability mirrors RakNet's per-message delivery guarantee. It is part
// of the RakMessage shape crossing the handoff boundary in §3/§6 of the
// spec; this package does not interpret it, only carries it.
type Reliability uint8

const (
	Unreliable Reliability = iota
	UnreliableSequenced
	Reliable
	ReliableOrdered
	ReliableSequenced
)

// Priority mirrors RakNet's outbound scheduling priority.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityImmediate
)

// RakMessage is the downstream payload shape a Session exchanges once the
// handshake has handed off to it: a buffer plus the reliability, priority
// and channel it should be carried on. Two RakMessages are equal iff all
// four fields are equal.
type RakMessage struct {
	Payload     []byte
	Reliability Reliability
	Priority    Priority
	Channel     uint8
}

// Session is the interface a successful handshake hands off to. The
// handshake core does not define Session internals; see the session
// package for the concrete adapter of the teacher's reliable transport.
type Session interface {
	Send(RakMessage) error
	Recv() (RakMessage, error)
	Close() error
	RemoteAddr() net.Addr
}

// SessionFactory creates a child Session once OPEN_CONNECTION_REQUEST_2 has
// been fully validated. Returning (nil, nil) signals "a session already
// exists for this address" — the state machine translates that into an
// ALREADY_CONNECTED reply instead of an error.
type SessionFactory interface {
	CreateChildSession(addr netip.AddrPort, clientGUID uint64, protocolVersion uint8, mtu uint16) (Session, error)
}

// SessionFactoryFunc adapts a plain function to SessionFactory.
type SessionFactoryFunc func(addr netip.AddrPort, clientGUID uint64, protocolVersion uint8, mtu uint16) (Session, error)

func (f SessionFactoryFunc) CreateChildSession(addr netip.AddrPort, clientGUID uint64, protocolVersion uint8, mtu uint16) (Session, error) {
	return f(addr, clientGUID, protocolVersion, mtu)
}

// MetricsSink receives handshake-level events. Both methods are called
// synchronously from the datagram-handling goroutine(s); implementations
// must not block.
type MetricsSink interface {
	UnconnectedPing(addr netip.AddrPort)
	ConnectionInit(addr netip.AddrPort, opcode Opcode)
}

// noopMetrics is used when Handler.Metrics is nil.
type noopMetrics struct{}

func (noopMetrics) UnconnectedPing(netip.AddrPort)         {}
func (noopMetrics) ConnectionInit(netip.AddrPort, Opcode) {}
